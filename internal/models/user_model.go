package models

import "time"

// User is the backend profile for a Firebase-authenticated learner.
type User struct {
	ID                 string    `json:"id" firestore:"-"` // Firebase Auth UID, the document ID
	Email              string    `json:"email"`
	DisplayName        string    `json:"displayName,omitempty"`
	PhotoURL           string    `json:"photoURL,omitempty"`
	PhoneNumber        string    `json:"phoneNumber,omitempty"`
	Plan               string    `json:"plan"` // "", "free", "premium", "gold"
	IsSubscribed       bool      `json:"isSubscribed"`
	StripeCustomerID   string    `json:"stripeCustomerId,omitempty"`
	SubscriptionStatus string    `json:"subscriptionStatus,omitempty"` // e.g., "active", "canceled"
	CreatedAt          time.Time `json:"createdAt" firestore:"createdAt,serverTimestamp"`
	UpdatedAt          time.Time `json:"updatedAt" firestore:"updatedAt,serverTimestamp"`
}
