package identity

import (
	"context"

	"readu-app-go/internal/session"
)

// Bind subscribes the session store to a provider's auth-state changes:
// a signed-in user is merged into the store, a sign-out clears it. Updates
// are delivered in the order the provider emits them.
//
// The subscription ends when ctx is cancelled, so a sign-in that resolves
// after the owner has gone away cannot write stale state into the store.
func Bind(ctx context.Context, provider Provider, store *session.Store) {
	cancel := provider.OnAuthStateChanged(func(u *User) {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if u == nil {
			store.ClearUser()
			return
		}
		store.SetUser(session.UserPatch{
			UID:         session.String(u.UID),
			Email:       session.String(u.Email),
			PhoneNumber: session.String(u.PhoneNumber),
			DisplayName: session.String(u.DisplayName),
			PhotoURL:    session.String(u.PhotoURL),
		})
	})
	go func() {
		<-ctx.Done()
		cancel()
	}()
}
