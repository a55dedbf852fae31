package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const identityToolkitBaseURL = "https://identitytoolkit.googleapis.com/v1"

// FirebaseProvider talks to the Google Identity Toolkit REST API, the same
// transport the Firebase web SDK uses. It needs only the project's web API
// key; no service account is involved on this path.
type FirebaseProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client

	authState
}

// FirebaseOption configures a FirebaseProvider.
type FirebaseOption func(*FirebaseProvider)

// WithHTTPClient overrides the HTTP client used for Identity Toolkit calls.
func WithHTTPClient(c *http.Client) FirebaseOption {
	return func(p *FirebaseProvider) { p.httpClient = c }
}

// WithBaseURL overrides the Identity Toolkit endpoint, e.g. to point at the
// Firebase Auth emulator.
func WithBaseURL(u string) FirebaseOption {
	return func(p *FirebaseProvider) { p.baseURL = u }
}

// NewFirebaseProvider creates a Provider backed by the Identity Toolkit API.
func NewFirebaseProvider(apiKey string, opts ...FirebaseOption) (*FirebaseProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("identity: firebase API key cannot be empty")
	}
	p := &FirebaseProvider{
		apiKey:     apiKey,
		baseURL:    identityToolkitBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

type accountInfo struct {
	LocalID     string `json:"localId"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoUrl"`
	IDToken     string `json:"idToken"`
	SessionInfo string `json:"sessionInfo"`
}

func (p *FirebaseProvider) SignInEmail(ctx context.Context, email, password string) (*User, error) {
	var resp accountInfo
	err := p.post(ctx, "accounts:signInWithPassword", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	u := &User{
		UID:         resp.LocalID,
		Email:       resp.Email,
		DisplayName: resp.DisplayName,
		PhotoURL:    resp.PhotoURL,
	}
	p.setUser(u)
	return u, nil
}

func (p *FirebaseProvider) SignUpEmail(ctx context.Context, name, email, password string) (*User, error) {
	var resp accountInfo
	err := p.post(ctx, "accounts:signUp", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	u := &User{
		UID:   resp.LocalID,
		Email: resp.Email,
	}
	if name != "" {
		var updated accountInfo
		err := p.post(ctx, "accounts:update", map[string]any{
			"idToken":           resp.IDToken,
			"displayName":       name,
			"returnSecureToken": false,
		}, &updated)
		if err != nil {
			return nil, err
		}
		u.DisplayName = name
	}
	p.setUser(u)
	return u, nil
}

func (p *FirebaseProvider) SendPasswordReset(ctx context.Context, email string) error {
	return p.post(ctx, "accounts:sendOobCode", map[string]any{
		"requestType": "PASSWORD_RESET",
		"email":       email,
	}, &struct{}{})
}

func (p *FirebaseProvider) PhoneStart(ctx context.Context, phoneNumber string) (string, error) {
	var resp accountInfo
	err := p.post(ctx, "accounts:sendVerificationCode", map[string]any{
		"phoneNumber": phoneNumber,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.SessionInfo, nil
}

func (p *FirebaseProvider) PhoneVerify(ctx context.Context, verificationID, code string) (*User, error) {
	var resp accountInfo
	err := p.post(ctx, "accounts:signInWithPhoneNumber", map[string]any{
		"sessionInfo": verificationID,
		"code":        code,
	}, &resp)
	if err != nil {
		return nil, err
	}
	u := &User{
		UID:         resp.LocalID,
		PhoneNumber: resp.PhoneNumber,
	}
	p.setUser(u)
	return u, nil
}

func (p *FirebaseProvider) SignInGuest(ctx context.Context) (*User, error) {
	var resp accountInfo
	err := p.post(ctx, "accounts:signUp", map[string]any{
		"returnSecureToken": true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	u := &User{
		UID:       resp.LocalID,
		Anonymous: true,
	}
	p.setUser(u)
	return u, nil
}

// SignOut discards the local credential. Identity Toolkit keeps no server
// session to revoke on this path.
func (p *FirebaseProvider) SignOut(ctx context.Context) error {
	p.setUser(nil)
	return nil
}

type toolkitErrorEnvelope struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *FirebaseProvider) post(ctx context.Context, endpoint string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("identity: failed to encode %s request: %w", endpoint, err)
	}

	url := fmt.Sprintf("%s/%s?key=%s", p.baseURL, endpoint, p.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("identity: failed to build %s request: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("identity: %s request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("identity: failed to read %s response: %w", endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var envelope toolkitErrorEnvelope
		if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Message != "" {
			// Surface the backend code verbatim; callers display it, we
			// never interpret it.
			return &ProviderError{Code: envelope.Error.Message, Message: envelope.Error.Message}
		}
		return &ProviderError{
			Code:    fmt.Sprintf("HTTP_%d", resp.StatusCode),
			Message: fmt.Sprintf("unexpected status %d from %s", resp.StatusCode, endpoint),
		}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("identity: failed to decode %s response: %w", endpoint, err)
	}
	return nil
}
