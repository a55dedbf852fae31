package core

import (
	"context"

	"readu-app-go/internal/models"
	"readu-app-go/internal/session"
)

// UserService defines the interface for user-profile operations.
type UserService interface {
	// GetOrCreate retrieves a user by ID, creating a profile with default
	// values when none exists yet.
	GetOrCreate(ctx context.Context, userID, email, displayName, photoURL string) (*models.User, bool, error)
	GetByID(ctx context.Context, userID string) (*models.User, error)
}

// PaymentSheet is the short-lived payment session handed to the client.
type PaymentSheet struct {
	CustomerID    string
	EphemeralKey  string
	PaymentIntent string // client secret
}

// BillingService brokers payment-session creation and webhook processing
// between the client and the payment provider.
type BillingService interface {
	// CreatePaymentSheet creates or reuses a customer and prepares a payment
	// intent priced by plan (zero for the free tier).
	CreatePaymentSheet(ctx context.Context, userID, email string, plan session.Plan) (*PaymentSheet, error)
	// HandleWebhook verifies the provider signature and applies the event,
	// flipping the user's entitlement on a successful payment.
	HandleWebhook(ctx context.Context, signature string, payload []byte) error
}

// AuditService records audit trail events.
type AuditService interface {
	CreateAuditLog(ctx context.Context, logEntry models.AuditLog) error
}
