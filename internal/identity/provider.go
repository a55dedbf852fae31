// Package identity is a thin façade over an external identity service. It
// translates application-level calls (sign in, sign up, phone verification,
// guest sign-in, sign out) into backend calls and feeds resulting identity
// changes into the session store through a subscription.
package identity

import (
	"context"
	"fmt"
	"sync"
)

// User is the identity record a backend reports for the signed-in user.
type User struct {
	UID         string
	Email       string
	PhoneNumber string
	DisplayName string
	PhotoURL    string
	Anonymous   bool
}

// Provider is the capability interface every identity backend must satisfy.
// Backends are interchangeable: the choice is made once at composition time
// and callers stay backend-agnostic.
//
// Every method either succeeds or fails with a provider-defined error
// (usually a *ProviderError). The façade does not retry and does not
// interpret errors beyond passing them to the caller.
type Provider interface {
	SignInEmail(ctx context.Context, email, password string) (*User, error)
	SignUpEmail(ctx context.Context, name, email, password string) (*User, error)
	SendPasswordReset(ctx context.Context, email string) error

	// PhoneStart begins phone-number verification and returns an opaque
	// verification-session handle for PhoneVerify.
	PhoneStart(ctx context.Context, phoneNumber string) (verificationID string, err error)
	PhoneVerify(ctx context.Context, verificationID, code string) (*User, error)

	SignInGuest(ctx context.Context) (*User, error)
	SignOut(ctx context.Context) error

	// OnAuthStateChanged registers fn to observe identity changes. Once the
	// backend has established a state, a new listener also observes the
	// current state immediately on registration. A nil user means signed
	// out. The returned cancel function removes the listener.
	OnAuthStateChanged(fn func(*User)) (cancel func())
}

// ProviderError carries a backend error code and message verbatim. Codes
// follow the Identity Toolkit vocabulary (EMAIL_NOT_FOUND, INVALID_PASSWORD,
// EMAIL_EXISTS, INVALID_CODE, ...) so both backends speak the same language.
type ProviderError struct {
	Code    string
	Message string
}

func (e *ProviderError) Error() string {
	if e.Message != "" && e.Message != e.Code {
		return fmt.Sprintf("identity: %s: %s", e.Code, e.Message)
	}
	return "identity: " + e.Code
}

func providerErr(code string) *ProviderError {
	return &ProviderError{Code: code, Message: code}
}

// authState is the listener registry shared by the backends. It delivers
// updates to listeners in registration order, in the order changes occur.
type authState struct {
	mu        sync.Mutex
	current   *User
	settled   bool
	listeners map[int]func(*User)
	nextID    int
}

func (a *authState) setUser(u *User) {
	a.mu.Lock()
	if a.listeners == nil {
		a.listeners = make(map[int]func(*User))
	}
	a.current = u
	a.settled = true
	fns := make([]func(*User), 0, len(a.listeners))
	for id := 0; id < a.nextID; id++ {
		if fn, ok := a.listeners[id]; ok {
			fns = append(fns, fn)
		}
	}
	a.mu.Unlock()

	for _, fn := range fns {
		fn(u)
	}
}

func (a *authState) OnAuthStateChanged(fn func(*User)) (cancel func()) {
	a.mu.Lock()
	if a.listeners == nil {
		a.listeners = make(map[int]func(*User))
	}
	id := a.nextID
	a.nextID++
	a.listeners[id] = fn
	current := a.current
	settled := a.settled
	a.mu.Unlock()

	// A new listener immediately observes the current state, but only once
	// the backend has established one. Before that, staying silent keeps a
	// rehydrated session from being cleared by a meaningless nil.
	if settled {
		fn(current)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			a.mu.Lock()
			delete(a.listeners, id)
			a.mu.Unlock()
		})
	}
}
