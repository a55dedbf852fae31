package session

import (
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Store is the single writable source of truth for the Session. All mutations
// are applied synchronously in memory and delivered to subscribers in
// registration order before the mutating call returns. Each mutation also
// schedules an asynchronous flush to the configured Persister; flush failures
// never block or fail the mutation, but are reported on PersistErrors so the
// owner can log them.
type Store struct {
	mu      sync.Mutex
	current Session

	subMu   sync.Mutex
	subs    map[int]func(Session)
	nextSub int

	persister Persister
	logger    *zap.Logger

	notify      chan struct{}
	persistErrs chan error
	done        chan struct{}
	closeOnce   sync.Once
}

// Option configures a Store.
type Option func(*Store)

// WithLogger attaches a logger used for persistence diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(st *Store) { st.logger = logger }
}

// New creates a Store backed by the given Persister and rehydrates any
// previously persisted session. A corrupt or unreadable record is treated as
// an empty session rather than a boot failure.
func New(persister Persister, opts ...Option) *Store {
	st := &Store{
		current:     Session{RememberMe: true},
		subs:        make(map[int]func(Session)),
		persister:   persister,
		logger:      zap.NewNop(),
		notify:      make(chan struct{}, 1),
		persistErrs: make(chan error, 8),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(st)
	}

	if persister != nil {
		if raw, ok, err := persister.Load(); err != nil {
			st.logger.Warn("session: failed to load persisted session", zap.Error(err))
		} else if ok {
			var rec Session
			if err := json.Unmarshal(raw, &rec); err != nil {
				st.logger.Warn("session: discarding corrupt persisted session", zap.Error(err))
			} else {
				// Authentication is derived from UID on every read, so a
				// stale or tampered flag on disk cannot grant access.
				st.current = rec
			}
		}
		go st.flushLoop()
	}
	return st
}

// Snapshot returns a copy of the current session.
func (st *Store) Snapshot() Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.current
}

// Subscribe registers fn to be called with a snapshot after every mutation.
// The returned cancel function removes the subscription; it is safe to call
// more than once.
func (st *Store) Subscribe(fn func(Session)) (cancel func()) {
	st.subMu.Lock()
	id := st.nextSub
	st.nextSub++
	st.subs[id] = fn
	st.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			st.subMu.Lock()
			delete(st.subs, id)
			st.subMu.Unlock()
		})
	}
}

// SetUser merges the given identity fields into the session. Entitlement
// fields are untouched; authentication follows from the resulting UID.
func (st *Store) SetUser(patch UserPatch) {
	st.mutate(func(s *Session) {
		if patch.UID != nil {
			s.UID = *patch.UID
		}
		if patch.Email != nil {
			s.Email = *patch.Email
		}
		if patch.PhoneNumber != nil {
			s.PhoneNumber = *patch.PhoneNumber
		}
		if patch.DisplayName != nil {
			s.DisplayName = *patch.DisplayName
		}
		if patch.PhotoURL != nil {
			s.PhotoURL = *patch.PhotoURL
		}
	})
}

// ClearUser resets every identity and entitlement field to its empty value.
// The RememberMe preference survives sign-out, matching the persistence
// behavior users expect from the toggle.
func (st *Store) ClearUser() {
	st.mutate(func(s *Session) {
		remember := s.RememberMe
		*s = Session{RememberMe: remember}
	})
}

// SetSubscription updates the entitlement fields independently of identity.
func (st *Store) SetSubscription(isSubscribed bool, plan Plan) {
	st.mutate(func(s *Session) {
		s.IsSubscribed = isSubscribed
		s.Plan = plan
	})
}

// SetRememberMe updates the persistence preference.
func (st *Store) SetRememberMe(remember bool) {
	st.mutate(func(s *Session) {
		s.RememberMe = remember
	})
}

// PersistErrors exposes asynchronous flush failures. The channel is buffered
// and never blocks a mutation; when full, further errors are logged and
// dropped. Draining it is optional.
func (st *Store) PersistErrors() <-chan error {
	return st.persistErrs
}

// Close performs a final synchronous flush and stops the background writer.
func (st *Store) Close() error {
	var err error
	st.closeOnce.Do(func() {
		close(st.done)
		if st.persister != nil {
			err = st.flush()
		}
	})
	return err
}

func (st *Store) mutate(apply func(*Session)) {
	st.mu.Lock()
	apply(&st.current)
	snapshot := st.current
	st.mu.Unlock()

	st.dispatch(snapshot)
	st.scheduleFlush()
}

func (st *Store) dispatch(snapshot Session) {
	st.subMu.Lock()
	fns := make([]func(Session), 0, len(st.subs))
	for id := 0; id < st.nextSub; id++ {
		if fn, ok := st.subs[id]; ok {
			fns = append(fns, fn)
		}
	}
	st.subMu.Unlock()

	for _, fn := range fns {
		fn(snapshot)
	}
}

func (st *Store) scheduleFlush() {
	if st.persister == nil {
		return
	}
	select {
	case st.notify <- struct{}{}:
	default:
		// A flush is already pending; it will pick up the latest state.
	}
}

func (st *Store) flushLoop() {
	for {
		select {
		case <-st.done:
			return
		case <-st.notify:
			if err := st.flush(); err != nil {
				st.reportPersistError(err)
			}
		}
	}
}

func (st *Store) flush() error {
	snapshot := st.Snapshot()
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := st.persister.Store(raw); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	return nil
}

func (st *Store) reportPersistError(err error) {
	select {
	case st.persistErrs <- err:
	default:
		st.logger.Warn("session: persist error channel full, dropping", zap.Error(err))
	}
}
