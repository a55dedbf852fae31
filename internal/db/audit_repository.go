package db

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"

	"readu-app-go/internal/models"
)

const auditCollection = "audit_logs"

// firestoreAuditRepository implements AuditRepository on Firestore with
// auto-generated document IDs.
type firestoreAuditRepository struct {
	client *firestore.Client
}

// NewFirestoreAuditRepository creates a Firestore-backed AuditRepository.
func NewFirestoreAuditRepository(client *firestore.Client) AuditRepository {
	return &firestoreAuditRepository{client: client}
}

func (r *firestoreAuditRepository) Create(ctx context.Context, logEntry models.AuditLog) error {
	_, _, err := r.client.Collection(auditCollection).Add(ctx, logEntry)
	if err != nil {
		return fmt.Errorf("failed to create audit log entry: %w", err)
	}
	return nil
}
