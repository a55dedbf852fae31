// Package app is the client-side composition root. It wires the session
// store, the configured identity backend and the route gate together the way
// an embedding application would at startup.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"readu-app-go/internal/config"
	"readu-app-go/internal/gate"
	"readu-app-go/internal/identity"
	"readu-app-go/internal/session"
)

// Client bundles the composed client core.
type Client struct {
	Store    *session.Store
	Provider identity.Provider
	Gate     *gate.Gate
}

// NewClient composes the client core from configuration: a session store
// (encrypted file persistence when SESSION_STORE_PATH is set, in-memory
// otherwise), the identity backend named by IDENTITY_BACKEND, and the route
// gate over the given navigator. Identity changes flow into the store and the
// gate evaluates on every change; both bindings end when ctx is cancelled.
func NewClient(ctx context.Context, cfg *config.Config, nav gate.Navigator, logger *zap.Logger) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: config cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	persister, err := newPersister(cfg)
	if err != nil {
		return nil, err
	}
	store := session.New(persister, session.WithLogger(logger))

	provider, err := newProvider(cfg, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	g := gate.New(store, nav, logger)
	identity.Bind(ctx, provider, store)
	g.Bind(ctx)

	return &Client{Store: store, Provider: provider, Gate: g}, nil
}

// Close flushes and stops the session store.
func (c *Client) Close() error {
	return c.Store.Close()
}

func newPersister(cfg *config.Config) (session.Persister, error) {
	if cfg.SessionStorePath == "" {
		return &session.MemoryPersister{}, nil
	}
	if cfg.SessionStorePassphrase == "" {
		return nil, fmt.Errorf("app: SESSION_STORE_PASSPHRASE is required when SESSION_STORE_PATH is set")
	}
	return session.NewFilePersister(cfg.SessionStorePath, cfg.SessionStorePassphrase)
}

func newProvider(cfg *config.Config, logger *zap.Logger) (identity.Provider, error) {
	switch cfg.IdentityBackend {
	case "firebase":
		return identity.NewFirebaseProvider(cfg.FirebaseAPIKey)
	case "local":
		return identity.NewLocalProvider(logger), nil
	}
	return nil, fmt.Errorf("app: unknown identity backend %q", cfg.IdentityBackend)
}
