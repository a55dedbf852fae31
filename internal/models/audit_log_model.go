package models

import "time"

// AuditLog is an audit trail event, e.g. a profile creation or a payment
// webhook outcome.
type AuditLog struct {
	ID        string                 `json:"id" firestore:"-"`
	Timestamp time.Time              `json:"timestamp" firestore:"timestamp,serverTimestamp"`
	UserID    string                 `json:"userId" firestore:"userId"`
	Action    string                 `json:"action" firestore:"action"` // e.g., "USER_INITIALIZE", "PAYMENT_SUCCEEDED"
	Details   map[string]interface{} `json:"details,omitempty" firestore:"details,omitempty"`
}
