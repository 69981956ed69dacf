package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"estate-service/internal/models"
	"estate-service/internal/service"
	"estate-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Handler contains HTTP handlers
type Handler struct {
	bookingService *service.BookingService
	paymentService *service.PaymentService
	invoiceService *service.InvoiceService
	logger         *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	bookingService *service.BookingService,
	paymentService *service.PaymentService,
	invoiceService *service.InvoiceService,
) *Handler {
	return &Handler{
		bookingService: bookingService,
		paymentService: paymentService,
		invoiceService: invoiceService,
		logger:         util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/bookings", h.bookApartment)
		v1.GET("/bookings/user/:user_id", h.getUserBookings)
		v1.GET("/units", h.getApartmentUnits)

		v1.POST("/payments", h.createPayment)
		v1.GET("/payments", h.getAllPayments)
		v1.GET("/payments/check", h.checkPayment)
		v1.GET("/payments/user/:user_id", h.getUserPaymentHistory)
		v1.GET("/payments/user-all/:user_id", h.getMergedPaymentHistory)
		v1.GET("/payments/invoice/:payment_id", h.generateInvoice)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// respondError maps the error taxonomy onto HTTP statuses. Validation and
// not-found reasons are safe to show; anything else gets a generic message
// with the cause kept in the logs.
func (h *Handler) respondError(c *gin.Context, err error, fallbackMsg string) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": verr.Reason,
		})
	case errors.Is(err, models.ErrUnitUnavailable):
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"message": "Unit is not available for booking",
		})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "Not found",
		})
	default:
		h.logger.Error(fallbackMsg, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": fallbackMsg,
		})
	}
}

// bookApartment handles apartment unit bookings
func (h *Handler) bookApartment(c *gin.Context) {
	var req service.BookApartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	resp, err := h.bookingService.BookApartment(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err, "Server error while processing apartment booking")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Apartment booked successfully",
		"data":    resp,
	})
}

// getUserBookings lists a user's booked apartments
func (h *Handler) getUserBookings(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid user ID"})
		return
	}

	bookings, err := h.bookingService.GetUserBookings(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err, "Server error while fetching booked apartments")
		return
	}

	if len(bookings) == 0 {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "No booked apartments found for this user",
			"data":    []models.BookedApartment{},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": bookings})
}

// getApartmentUnits lists the units of an apartment
func (h *Handler) getApartmentUnits(c *gin.Context) {
	apartmentID, err := strconv.ParseInt(c.Query("apartment_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "apartment_id query parameter is required",
		})
		return
	}

	units, err := h.bookingService.GetApartmentUnits(c.Request.Context(), apartmentID)
	if err != nil {
		h.respondError(c, err, "Failed to fetch apartment units")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": units})
}

// createPayment records a standalone property payment
func (h *Handler) createPayment(c *gin.Context) {
	var req service.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	payment, err := h.paymentService.CreatePayment(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err, "Server error while processing payment")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"payment_id": payment.ID,
			"status":     payment.Status,
		},
	})
}

// checkPayment returns the payment summary for a user+property pair
func (h *Handler) checkPayment(c *gin.Context) {
	userID, uerr := strconv.ParseInt(c.Query("user_id"), 10, 64)
	propertyID, perr := strconv.ParseInt(c.Query("property_id"), 10, 64)
	if uerr != nil || perr != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Missing user_id or property_id",
		})
		return
	}

	summary, err := h.paymentService.GetPaymentSummary(c.Request.Context(), userID, propertyID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "No payment found"})
			return
		}
		h.respondError(c, err, "Server error while checking payment")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"payment_summary": summary},
	})
}

// getUserPaymentHistory lists a user's property-family payments
func (h *Handler) getUserPaymentHistory(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "User ID is required"})
		return
	}

	payments, err := h.paymentService.GetUserPaymentHistory(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err, "Server error while fetching payment history")
		return
	}

	if len(payments) == 0 {
		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"message":  "No payments found for this user",
			"payments": []models.PaymentHistoryEntry{},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "payments": payments})
}

// getMergedPaymentHistory lists both payment families for a user, sorted by
// date descending
func (h *Handler) getMergedPaymentHistory(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "User ID is required"})
		return
	}

	payments, err := h.paymentService.GetMergedPaymentHistory(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err, "Server error while fetching payment history")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "payments": payments})
}

// generateInvoice composes the invoice view for a payment
func (h *Handler) generateInvoice(c *gin.Context) {
	paymentID, err := strconv.ParseInt(c.Param("payment_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Payment ID is required"})
		return
	}

	invoice, err := h.invoiceService.ComposeInvoice(c.Request.Context(), paymentID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Payment not found"})
			return
		}
		h.respondError(c, err, "Server error while generating invoice")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "invoice": invoice})
}

// getAllPayments lists every payment row
func (h *Handler) getAllPayments(c *gin.Context) {
	payments, err := h.paymentService.GetAllPayments(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "Server error while fetching payments")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "payments": payments})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
