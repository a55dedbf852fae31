package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"readu-app-go/internal/core"
	"readu-app-go/internal/session"
)

// BillingHandler handles the payment-relay endpoints.
type BillingHandler struct {
	billingService core.BillingService
	logger         *zap.Logger
}

// NewBillingHandler creates a new BillingHandler.
func NewBillingHandler(bs core.BillingService, logger *zap.Logger) *BillingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BillingHandler{billingService: bs, logger: logger}
}

// CreatePaymentSheet handles POST /paymentsheet. It prepares a customer, an
// ephemeral key and a payment intent, and returns the three secrets the
// client's payment sheet needs.
func (h *BillingHandler) CreatePaymentSheet(c *gin.Context) {
	var req PaymentSheetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, PaymentSheetResponse{OK: false, Error: "invalid request payload"})
		return
	}

	sheet, err := h.billingService.CreatePaymentSheet(c.Request.Context(), req.UserID, req.Email, session.Plan(req.Plan))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, core.ErrInvalidPlan) {
			status = http.StatusBadRequest
		}
		h.logger.Error("paymentsheet preparation failed", zap.Error(err))
		c.JSON(status, PaymentSheetResponse{OK: false, Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, PaymentSheetResponse{
		OK:            true,
		CustomerID:    sheet.CustomerID,
		EphemeralKey:  sheet.EphemeralKey,
		PaymentIntent: sheet.PaymentIntent,
	})
}

// HandleWebhook handles POST /webhook. The endpoint is public; Stripe
// authenticates itself through the Stripe-Signature header, verified in the
// billing service against the configured webhook secret.
func (h *BillingHandler) HandleWebhook(c *gin.Context) {
	signature := c.GetHeader("Stripe-Signature")
	if signature == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Missing Stripe-Signature header"})
		return
	}

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.logger.Error("webhook: failed to read request body", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to read webhook payload"})
		return
	}

	if err := h.billingService.HandleWebhook(c.Request.Context(), signature, payload); err != nil {
		switch {
		case errors.Is(err, core.ErrWebhookSignature):
			h.logger.Warn("webhook: signature verification failed", zap.Error(err))
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Webhook signature verification failed"})
		case errors.Is(err, core.ErrWebhookProcessing):
			h.logger.Error("webhook: processing failed", zap.Error(err))
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Webhook processing error", Details: err.Error()})
		default:
			h.logger.Error("webhook: unexpected error", zap.Error(err))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "An unexpected internal server error occurred."})
		}
		return
	}

	c.JSON(http.StatusOK, WebhookAckResponse{Received: true})
}
