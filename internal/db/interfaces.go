package db

import (
	"context"

	"readu-app-go/internal/models"
)

// UserRepository defines the interface for user-profile storage operations.
type UserRepository interface {
	GetByID(ctx context.Context, userID string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	// UpdateSubscription flips the entitlement fields without touching the
	// rest of the profile. Used by the payment webhook path.
	UpdateSubscription(ctx context.Context, userID, plan, status, stripeCustomerID string) error
}

// AuditRepository defines the interface for audit log storage operations.
type AuditRepository interface {
	Create(ctx context.Context, logEntry models.AuditLog) error
}
