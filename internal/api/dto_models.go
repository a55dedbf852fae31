package api

// ErrorResponse is a generic structure for returning errors via API.
type ErrorResponse struct {
	Error   string `json:"error"`             // A high-level error message
	Details string `json:"details,omitempty"` // More specific details, if available
}

// PaymentSheetRequest identifies the purchase the client wants to prepare.
// All fields are optional; a missing plan defaults to premium pricing.
type PaymentSheetRequest struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Plan   string `json:"plan"`
}

// PaymentSheetResponse is the wire format the mobile client consumes. The OK
// flag is part of the contract: failures respond ok:false with a non-200
// status and a message in Error.
type PaymentSheetResponse struct {
	OK            bool   `json:"ok"`
	CustomerID    string `json:"customerId,omitempty"`
	EphemeralKey  string `json:"ephemeralKey,omitempty"`
	PaymentIntent string `json:"paymentIntent,omitempty"`
	Error         string `json:"error,omitempty"`
}

// WebhookAckResponse acknowledges receipt of a provider webhook.
type WebhookAckResponse struct {
	Received bool `json:"received"`
}

// CourseSummary is the list-view shape of a course, without module detail.
type CourseSummary struct {
	ID           string  `json:"id"`
	Slug         string  `json:"slug"`
	Title        string  `json:"title"`
	CoverImage   string  `json:"coverImage"`
	Progress     float64 `json:"progress"`
	LessonsTotal int     `json:"lessonsTotal"`
	Trophy       bool    `json:"trophy"`
}
