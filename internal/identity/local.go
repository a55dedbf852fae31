package identity

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// LocalProvider is an in-process identity backend satisfying the same
// Provider contract as FirebaseProvider. It exists for development and tests:
// accounts live in memory, passwords are bcrypt-hashed, and phone
// verification codes are generated locally and logged instead of sent.
type LocalProvider struct {
	mu      sync.Mutex
	byEmail map[string]*localAccount
	byUID   map[string]*localAccount
	pending map[string]pendingVerification
	logger  *zap.Logger

	authState
}

type localAccount struct {
	uid          string
	email        string
	phoneNumber  string
	displayName  string
	passwordHash []byte
	anonymous    bool
}

type pendingVerification struct {
	phoneNumber string
	code        string
}

// NewLocalProvider creates an empty local identity backend.
func NewLocalProvider(logger *zap.Logger) *LocalProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalProvider{
		byEmail: make(map[string]*localAccount),
		byUID:   make(map[string]*localAccount),
		pending: make(map[string]pendingVerification),
		logger:  logger,
	}
}

func (p *LocalProvider) SignInEmail(ctx context.Context, email, password string) (*User, error) {
	p.mu.Lock()
	acct, ok := p.byEmail[email]
	p.mu.Unlock()
	if !ok {
		return nil, providerErr("EMAIL_NOT_FOUND")
	}
	if err := bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(password)); err != nil {
		return nil, providerErr("INVALID_PASSWORD")
	}
	u := acct.user()
	p.setUser(u)
	return u, nil
}

func (p *LocalProvider) SignUpEmail(ctx context.Context, name, email, password string) (*User, error) {
	if email == "" {
		return nil, providerErr("MISSING_EMAIL")
	}
	if len(password) < 6 {
		return nil, providerErr("WEAK_PASSWORD")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("identity: failed to hash password: %w", err)
	}

	p.mu.Lock()
	if _, exists := p.byEmail[email]; exists {
		p.mu.Unlock()
		return nil, providerErr("EMAIL_EXISTS")
	}
	acct := &localAccount{
		uid:          uuid.NewString(),
		email:        email,
		displayName:  name,
		passwordHash: hash,
	}
	p.byEmail[email] = acct
	p.byUID[acct.uid] = acct
	p.mu.Unlock()

	u := acct.user()
	p.setUser(u)
	return u, nil
}

// SendPasswordReset succeeds for known accounts and logs instead of mailing.
func (p *LocalProvider) SendPasswordReset(ctx context.Context, email string) error {
	p.mu.Lock()
	_, ok := p.byEmail[email]
	p.mu.Unlock()
	if !ok {
		return providerErr("EMAIL_NOT_FOUND")
	}
	p.logger.Info("local identity: password reset requested", zap.String("email", email))
	return nil
}

func (p *LocalProvider) PhoneStart(ctx context.Context, phoneNumber string) (string, error) {
	if phoneNumber == "" {
		return "", providerErr("INVALID_PHONE_NUMBER")
	}
	verificationID := uuid.NewString()
	code := fmt.Sprintf("%06d", uuid.New().ID()%1000000)

	p.mu.Lock()
	p.pending[verificationID] = pendingVerification{phoneNumber: phoneNumber, code: code}
	p.mu.Unlock()

	p.logger.Info("local identity: phone verification code issued",
		zap.String("phoneNumber", phoneNumber),
		zap.String("code", code),
	)
	return verificationID, nil
}

func (p *LocalProvider) PhoneVerify(ctx context.Context, verificationID, code string) (*User, error) {
	p.mu.Lock()
	pv, ok := p.pending[verificationID]
	if !ok {
		p.mu.Unlock()
		return nil, providerErr("INVALID_SESSION_INFO")
	}
	if pv.code != code {
		p.mu.Unlock()
		return nil, providerErr("INVALID_CODE")
	}
	delete(p.pending, verificationID)

	// Reuse an account already registered with this number, else create one.
	var acct *localAccount
	for _, a := range p.byUID {
		if a.phoneNumber == pv.phoneNumber {
			acct = a
			break
		}
	}
	if acct == nil {
		acct = &localAccount{
			uid:         uuid.NewString(),
			phoneNumber: pv.phoneNumber,
		}
		p.byUID[acct.uid] = acct
	}
	p.mu.Unlock()

	u := acct.user()
	p.setUser(u)
	return u, nil
}

func (p *LocalProvider) SignInGuest(ctx context.Context) (*User, error) {
	acct := &localAccount{
		uid:       uuid.NewString(),
		anonymous: true,
	}
	p.mu.Lock()
	p.byUID[acct.uid] = acct
	p.mu.Unlock()

	u := acct.user()
	p.setUser(u)
	return u, nil
}

func (p *LocalProvider) SignOut(ctx context.Context) error {
	p.setUser(nil)
	return nil
}

// VerificationCode returns the code pending for a verification session. For
// development tooling; real backends deliver the code over SMS.
func (p *LocalProvider) VerificationCode(verificationID string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pv, ok := p.pending[verificationID]
	if !ok {
		return "", false
	}
	return pv.code, true
}

func (a *localAccount) user() *User {
	return &User{
		UID:         a.uid,
		Email:       a.email,
		PhoneNumber: a.phoneNumber,
		DisplayName: a.displayName,
		Anonymous:   a.anonymous,
	}
}
