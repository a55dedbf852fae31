// Package billing is the client side of the payment flow: it fetches a
// short-lived payment session from the relay and hands it to the payment
// SDK's prebuilt checkout sheet.
package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"readu-app-go/internal/session"
)

// MerchantDisplayName is shown on the payment sheet.
const MerchantDisplayName = "READU Interactive"

// Params identifies the purchase the relay should prepare.
type Params struct {
	UserID string       `json:"userId,omitempty"`
	Email  string       `json:"email,omitempty"`
	Plan   session.Plan `json:"plan,omitempty"`
}

// SheetSecrets is the short-lived payment session the relay returns.
type SheetSecrets struct {
	CustomerID    string
	EphemeralKey  string
	PaymentIntent string // payment intent client secret
}

// SheetConfig is what the checkout sheet needs to initialize.
type SheetConfig struct {
	MerchantDisplayName string
	PaymentIntent       string
	EphemeralKey        string
	CustomerID          string
	BillingEmail        string
}

// Sheet abstracts the payment SDK's prebuilt checkout sheet so the flow can
// be driven (and tested) without the SDK itself.
type Sheet interface {
	Init(cfg SheetConfig) error
	Present() error
}

// Client calls the payment relay.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a relay client. A nil httpClient gets a sane default.
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{httpClient: httpClient}
}

type paymentSheetResponse struct {
	OK            bool   `json:"ok"`
	CustomerID    string `json:"customerId"`
	EphemeralKey  string `json:"ephemeralKey"`
	PaymentIntent string `json:"paymentIntent"`
	Error         string `json:"error"`
}

// PreparePaymentSheet performs the relay round trip. A non-success status or
// an ok:false body yields a generic error carrying the server-supplied
// message when one is present.
func (c *Client) PreparePaymentSheet(ctx context.Context, baseURL string, params Params) (*SheetSecrets, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("billing: failed to encode request: %w", err)
	}

	url := strings.TrimRight(baseURL, "/") + "/paymentsheet"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("billing: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("billing: relay request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("billing: failed to read relay response: %w", err)
	}

	var decoded paymentSheetResponse
	// Decode the body even on non-2xx: failure responses carry {ok:false, error}.
	if err := json.Unmarshal(raw, &decoded); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, fmt.Errorf("billing: server error: %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("billing: failed to decode relay response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 || !decoded.OK {
		if decoded.Error != "" {
			return nil, errors.New(decoded.Error)
		}
		return nil, fmt.Errorf("billing: server error: %d", resp.StatusCode)
	}

	return &SheetSecrets{
		CustomerID:    decoded.CustomerID,
		EphemeralKey:  decoded.EphemeralKey,
		PaymentIntent: decoded.PaymentIntent,
	}, nil
}

// PresentPaymentSheet composes the relay round trip with sheet
// initialization and presentation, failing if any step reports an error.
//
// On success the caller owns updating the session store's entitlement
// fields; the adapter deliberately does not touch the store.
func (c *Client) PresentPaymentSheet(ctx context.Context, baseURL string, params Params, sheet Sheet) error {
	secrets, err := c.PreparePaymentSheet(ctx, baseURL, params)
	if err != nil {
		return err
	}

	err = sheet.Init(SheetConfig{
		MerchantDisplayName: MerchantDisplayName,
		PaymentIntent:       secrets.PaymentIntent,
		EphemeralKey:        secrets.EphemeralKey,
		CustomerID:          secrets.CustomerID,
		BillingEmail:        params.Email,
	})
	if err != nil {
		return fmt.Errorf("billing: failed to initialize payment sheet: %w", err)
	}

	if err := sheet.Present(); err != nil {
		return fmt.Errorf("billing: payment sheet failed: %w", err)
	}
	return nil
}
