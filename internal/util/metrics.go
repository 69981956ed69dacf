package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookings_created_total",
		Help: "Total number of apartment bookings committed",
	})

	BookingsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookings_failed_total",
		Help: "Total number of failed booking attempts",
	}, []string{"reason"})

	PaymentsRecordedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_recorded_total",
		Help: "Total number of standalone property payments recorded",
	})

	PaymentsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_failed_total",
		Help: "Total number of rejected payment attempts",
	}, []string{"reason"})

	InvoicesGeneratedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "invoices_generated_total",
		Help: "Total number of invoices composed",
	})

	SummaryCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "summary_cache_hits_total",
		Help: "Payment summary reads served from cache",
	})

	SummaryCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "summary_cache_misses_total",
		Help: "Payment summary reads that fell through to the database",
	})

	BookingTxLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "booking_tx_latency_seconds",
		Help:    "Latency of the booking database transaction",
		Buckets: prometheus.DefBuckets,
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
