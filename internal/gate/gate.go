// Package gate decides which top-level area of the app the user should be
// looking at, given the current session, and issues redirects when the
// current screen disagrees.
package gate

import (
	"context"

	"go.uber.org/zap"

	"readu-app-go/internal/session"
)

// Location names a screen or screen group the navigator can be on.
type Location string

const (
	LocWelcome     Location = "welcome"
	LocLogIn       Location = "login"
	LocSignUp      Location = "signup"
	LocForgot      Location = "forgot"
	LocPhoneStart  Location = "phone-start"
	LocPhoneVerify Location = "phone-verify"
	LocPayment     Location = "payment"
	LocOnboarding  Location = "onboarding"
	LocHome        Location = "home"
	LocCourse      Location = "course"
	LocLesson      Location = "lesson"
)

// InAuthArea reports whether the location belongs to the auth flow. The
// payment screen lives inside the auth flow: it is the screen an
// authenticated-but-unsubscribed user is parked on.
func (l Location) InAuthArea() bool {
	switch l {
	case LocWelcome, LocLogIn, LocSignUp, LocForgot, LocPhoneStart, LocPhoneVerify, LocPayment, LocOnboarding:
		return true
	}
	return false
}

// Target is the redirect a gate evaluation asks for.
type Target int

const (
	// TargetNone means the current location is acceptable.
	TargetNone Target = iota
	TargetWelcome
	TargetPayment
	TargetHome
)

func (t Target) String() string {
	switch t {
	case TargetNone:
		return "none"
	case TargetWelcome:
		return "welcome"
	case TargetPayment:
		return "payment"
	case TargetHome:
		return "home"
	}
	return "unknown"
}

// Location returns the navigator location a non-none target points at.
func (t Target) Location() Location {
	switch t {
	case TargetWelcome:
		return LocWelcome
	case TargetPayment:
		return LocPayment
	case TargetHome:
		return LocHome
	}
	return ""
}

// Evaluate is the gate's decision table. It is a pure function of the two
// session booleans and the current location.
//
// Precedence, highest first:
//  1. Not authenticated: the user must be on the welcome screen.
//  2. Authenticated but not subscribed: the user must be on the payment screen.
//  3. Authenticated and subscribed: the user must not be inside the auth flow.
//
// Authentication outranks subscription, so a signed-out user is always sent
// to welcome, never to payment.
func Evaluate(authenticated, subscribed bool, loc Location) Target {
	if !authenticated {
		if loc != LocWelcome {
			return TargetWelcome
		}
		return TargetNone
	}
	if !subscribed {
		if loc != LocPayment {
			return TargetPayment
		}
		return TargetNone
	}
	if loc.InAuthArea() {
		return TargetHome
	}
	return TargetNone
}

// Navigator is the navigation surface the gate drives. Replace swaps the
// current screen without growing history, mirroring router.replace.
type Navigator interface {
	// Ready reports whether the root navigator is mounted. The gate issues
	// no redirects before this returns true.
	Ready() bool
	Current() Location
	Replace(Location)
}

// Gate re-evaluates the decision table against a session store and redirects
// through a Navigator. It performs no I/O and cannot fail.
type Gate struct {
	store  *session.Store
	nav    Navigator
	logger *zap.Logger
}

// New creates a Gate over the given store and navigator.
func New(store *session.Store, nav Navigator, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{store: store, nav: nav, logger: logger}
}

// Recheck runs one evaluation against the current session and location,
// redirecting if needed. It is a no-op until the navigator is ready.
func (g *Gate) Recheck() {
	s := g.store.Snapshot()
	g.apply(s)
}

// Bind subscribes the gate to session changes and runs an initial check.
// The subscription is removed when ctx is cancelled, so a late auth or
// payment callback cannot trigger navigation after the owner is gone.
func (g *Gate) Bind(ctx context.Context) {
	cancelSub := g.store.Subscribe(func(s session.Session) {
		select {
		case <-ctx.Done():
			return
		default:
		}
		g.apply(s)
	})
	go func() {
		<-ctx.Done()
		cancelSub()
	}()
	g.Recheck()
}

func (g *Gate) apply(s session.Session) {
	if !g.nav.Ready() {
		return
	}
	target := Evaluate(s.IsAuthenticated(), s.IsSubscribed, g.nav.Current())
	if target == TargetNone {
		return
	}
	g.logger.Debug("gate redirect",
		zap.String("from", string(g.nav.Current())),
		zap.String("to", target.String()),
	)
	g.nav.Replace(target.Location())
}
