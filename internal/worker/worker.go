package worker

import (
	"context"
	"errors"
	"log"

	"estate-service/internal/broker"
	"estate-service/internal/models"
	"estate-service/internal/service"
	"estate-service/internal/store"
)

// BookingWorker consumes booking and payment events to keep derived state
// warm: it refreshes the cached payment summary after a property payment
// lands and records processed event ids for idempotency.
type BookingWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	store        *store.Store
	payments     *service.PaymentService
}

// NewBookingWorker creates a new booking worker
func NewBookingWorker(
	consumer *broker.Consumer,
	store *store.Store,
	payments *service.PaymentService,
) *BookingWorker {
	w := &BookingWorker{
		consumer: consumer,
		store:    store,
		payments: payments,
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnPaymentRecorded(w.handlePaymentRecorded)
	eventHandler.OnBookingConfirmed(w.handleBookingConfirmed)
	w.eventHandler = eventHandler

	return w
}

func (w *BookingWorker) handlePaymentRecorded(ctx context.Context, event *models.PaymentRecordedEvent) error {
	processed, err := w.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return err
	}
	if processed {
		return nil
	}

	if err := w.payments.RefreshSummaryCache(ctx, event.UserID, event.PropertyID); err != nil {
		// A pair with no settled rows yet has no summary to warm.
		if !errors.Is(err, models.ErrNotFound) {
			log.Printf("Failed to refresh summary cache for user %d property %d: %v",
				event.UserID, event.PropertyID, err)
		}
	}

	return w.store.MarkEventProcessed(ctx, event.EventID, event.EventType)
}

func (w *BookingWorker) handleBookingConfirmed(ctx context.Context, event *models.BookingConfirmedEvent) error {
	processed, err := w.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return err
	}
	if processed {
		return nil
	}

	log.Printf("Booking confirmed: booking=%d payment=%d unit=%d invoice=%s",
		event.BookingID, event.PaymentID, event.UnitID, event.InvoiceNumber)

	return w.store.MarkEventProcessed(ctx, event.EventID, event.EventType)
}

// Start starts the worker
func (w *BookingWorker) Start(ctx context.Context) error {
	log.Println("Starting booking worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *BookingWorker) Stop() error {
	log.Println("Stopping booking worker...")
	return w.consumer.Close()
}
