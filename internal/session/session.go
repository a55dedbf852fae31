package session

// Plan is the subscription tier attached to a session.
type Plan string

const (
	PlanNone    Plan = ""
	PlanFree    Plan = "free"
	PlanPremium Plan = "premium"
	PlanGold    Plan = "gold"
)

// Valid reports whether p is one of the known plan values.
func (p Plan) Valid() bool {
	switch p {
	case PlanNone, PlanFree, PlanPremium, PlanGold:
		return true
	}
	return false
}

// Session is the client-held record of the current user's identity and
// entitlement state. It is the sole piece of cross-launch state.
//
// Identity fields use the empty string for "not set". Authentication is a
// derived fact: a session is authenticated exactly when UID is non-empty,
// so there is deliberately no settable IsAuthenticated field.
type Session struct {
	UID          string `json:"uid"`
	Email        string `json:"email"`
	PhoneNumber  string `json:"phoneNumber"`
	DisplayName  string `json:"displayName"`
	PhotoURL     string `json:"photoURL"`
	IsSubscribed bool   `json:"isSubscribed"`
	Plan         Plan   `json:"plan"`
	RememberMe   bool   `json:"rememberMe"`
}

// IsAuthenticated reports whether the session belongs to a signed-in user.
func (s Session) IsAuthenticated() bool {
	return s.UID != ""
}

// UserPatch is a partial set of identity fields for Store.SetUser. Nil
// pointers leave the corresponding session field untouched.
type UserPatch struct {
	UID         *string
	Email       *string
	PhoneNumber *string
	DisplayName *string
	PhotoURL    *string
}

// String returns a pointer to v, for building UserPatch literals.
func String(v string) *string {
	return &v
}
