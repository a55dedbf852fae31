package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// toolkitServer fakes the Identity Toolkit REST endpoints the provider uses.
func toolkitServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		if r.URL.Query().Get("key") != "test-api-key" {
			t.Errorf("missing or wrong api key: %q", r.URL.RawQuery)
		}

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		writeErr := func(message string) {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"code": 400, "message": message},
			})
		}

		switch {
		case strings.HasSuffix(r.URL.Path, "accounts:signInWithPassword"):
			if body["password"] != "s3cret-pass" {
				writeErr("INVALID_PASSWORD")
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"localId":     "uid-firebase-1",
				"email":       body["email"],
				"displayName": "Ana",
				"idToken":     "tok-1",
			})
		case strings.HasSuffix(r.URL.Path, "accounts:signUp"):
			if _, hasEmail := body["email"]; !hasEmail {
				// No email means anonymous sign-up.
				json.NewEncoder(w).Encode(map[string]any{"localId": "uid-guest-1", "idToken": "tok-g"})
				return
			}
			if body["email"] == "taken@example.com" {
				writeErr("EMAIL_EXISTS")
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"localId": "uid-new-1",
				"email":   body["email"],
				"idToken": "tok-2",
			})
		case strings.HasSuffix(r.URL.Path, "accounts:update"):
			json.NewEncoder(w).Encode(map[string]any{
				"localId":     "uid-new-1",
				"displayName": body["displayName"],
			})
		case strings.HasSuffix(r.URL.Path, "accounts:sendOobCode"):
			if body["requestType"] != "PASSWORD_RESET" {
				writeErr("INVALID_REQ_TYPE")
				return
			}
			json.NewEncoder(w).Encode(map[string]any{"email": body["email"]})
		case strings.HasSuffix(r.URL.Path, "accounts:sendVerificationCode"):
			json.NewEncoder(w).Encode(map[string]any{"sessionInfo": "session-abc"})
		case strings.HasSuffix(r.URL.Path, "accounts:signInWithPhoneNumber"):
			if body["sessionInfo"] != "session-abc" || body["code"] != "123456" {
				writeErr("INVALID_CODE")
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"localId":     "uid-phone-1",
				"phoneNumber": "+359888000111",
			})
		default:
			t.Errorf("unexpected endpoint: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newTestFirebaseProvider(t *testing.T, srv *httptest.Server) *FirebaseProvider {
	t.Helper()
	p, err := NewFirebaseProvider("test-api-key", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewFirebaseProvider: %v", err)
	}
	return p
}

func TestFirebaseSignInEmail(t *testing.T) {
	srv := toolkitServer(t)
	defer srv.Close()
	p := newTestFirebaseProvider(t, srv)

	u, err := p.SignInEmail(context.Background(), "ana@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("SignInEmail: %v", err)
	}
	if u.UID != "uid-firebase-1" || u.Email != "ana@example.com" || u.DisplayName != "Ana" {
		t.Errorf("unexpected user: %+v", u)
	}

	_, err = p.SignInEmail(context.Background(), "ana@example.com", "wrong")
	var pe *ProviderError
	if !errors.As(err, &pe) || pe.Code != "INVALID_PASSWORD" {
		t.Errorf("expected INVALID_PASSWORD, got %v", err)
	}
}

func TestFirebaseSignUpEmailSetsDisplayName(t *testing.T) {
	srv := toolkitServer(t)
	defer srv.Close()
	p := newTestFirebaseProvider(t, srv)

	u, err := p.SignUpEmail(context.Background(), "Boris", "boris@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("SignUpEmail: %v", err)
	}
	if u.UID != "uid-new-1" || u.DisplayName != "Boris" {
		t.Errorf("unexpected user: %+v", u)
	}

	_, err = p.SignUpEmail(context.Background(), "X", "taken@example.com", "s3cret-pass")
	var pe *ProviderError
	if !errors.As(err, &pe) || pe.Code != "EMAIL_EXISTS" {
		t.Errorf("expected EMAIL_EXISTS, got %v", err)
	}
}

func TestFirebasePhoneFlow(t *testing.T) {
	srv := toolkitServer(t)
	defer srv.Close()
	p := newTestFirebaseProvider(t, srv)

	id, err := p.PhoneStart(context.Background(), "+359888000111")
	if err != nil {
		t.Fatalf("PhoneStart: %v", err)
	}
	if id != "session-abc" {
		t.Fatalf("verificationID = %q, want session-abc", id)
	}

	if _, err := p.PhoneVerify(context.Background(), id, "999999"); err == nil {
		t.Fatal("wrong code should fail")
	}

	u, err := p.PhoneVerify(context.Background(), id, "123456")
	if err != nil {
		t.Fatalf("PhoneVerify: %v", err)
	}
	if u.UID != "uid-phone-1" || u.PhoneNumber != "+359888000111" {
		t.Errorf("unexpected user: %+v", u)
	}
}

func TestFirebaseGuestAndSignOutDriveAuthState(t *testing.T) {
	srv := toolkitServer(t)
	defer srv.Close()
	p := newTestFirebaseProvider(t, srv)

	var states []*User
	p.OnAuthStateChanged(func(u *User) { states = append(states, u) })

	u, err := p.SignInGuest(context.Background())
	if err != nil {
		t.Fatalf("SignInGuest: %v", err)
	}
	if !u.Anonymous || u.UID != "uid-guest-1" {
		t.Fatalf("unexpected guest: %+v", u)
	}

	if err := p.SignOut(context.Background()); err != nil {
		t.Fatal(err)
	}

	if len(states) != 2 || states[0] == nil || states[1] != nil {
		t.Fatalf("auth state sequence = %v, want [guest nil]", states)
	}
}

func TestFirebaseSendPasswordReset(t *testing.T) {
	srv := toolkitServer(t)
	defer srv.Close()
	p := newTestFirebaseProvider(t, srv)

	if err := p.SendPasswordReset(context.Background(), "ana@example.com"); err != nil {
		t.Fatalf("SendPasswordReset: %v", err)
	}
}
