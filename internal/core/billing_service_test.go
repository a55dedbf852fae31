package core

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v79"

	"readu-app-go/internal/config"
	"readu-app-go/internal/db"
	"readu-app-go/internal/models"
	"readu-app-go/internal/session"
)

const testWebhookSecret = "whsec_test_secret"

// fakePayments scripts the Stripe slice the billing service uses.
type fakePayments struct {
	foundCustomer *fakeFoundCustomer
	searchErr     error

	lastQuery      string
	customerParams *stripe.CustomerParams
	keyParams      *stripe.EphemeralKeyParams
	intentParams   *stripe.PaymentIntentParams

	createCustomerErr error
	createKeyErr      error
	createIntentErr   error
}

type fakeFoundCustomer struct {
	id string
}

func (f *fakePayments) FindCustomer(ctx context.Context, query string) (*stripe.Customer, error) {
	f.lastQuery = query
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if f.foundCustomer == nil {
		return nil, nil
	}
	return &stripe.Customer{ID: f.foundCustomer.id}, nil
}

func (f *fakePayments) CreateCustomer(ctx context.Context, params *stripe.CustomerParams) (*stripe.Customer, error) {
	f.customerParams = params
	if f.createCustomerErr != nil {
		return nil, f.createCustomerErr
	}
	return &stripe.Customer{ID: "cus_created"}, nil
}

func (f *fakePayments) CreateEphemeralKey(ctx context.Context, params *stripe.EphemeralKeyParams) (*stripe.EphemeralKey, error) {
	f.keyParams = params
	if f.createKeyErr != nil {
		return nil, f.createKeyErr
	}
	return &stripe.EphemeralKey{Secret: "ek_secret"}, nil
}

func (f *fakePayments) CreatePaymentIntent(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	f.intentParams = params
	if f.createIntentErr != nil {
		return nil, f.createIntentErr
	}
	return &stripe.PaymentIntent{ID: "pi_1", ClientSecret: "pi_secret"}, nil
}

// subscriptionUpdate records an UpdateSubscription call on the fake repo.
type subscriptionUpdate struct {
	userID, plan, status, customerID string
}

type fakeUserRepo struct {
	updates   []subscriptionUpdate
	updateErr error
}

func (r *fakeUserRepo) GetByID(ctx context.Context, userID string) (*models.User, error) {
	return nil, errors.New("not implemented")
}
func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) error { return nil }
func (r *fakeUserRepo) Update(ctx context.Context, user *models.User) error { return nil }
func (r *fakeUserRepo) UpdateSubscription(ctx context.Context, userID, plan, status, stripeCustomerID string) error {
	r.updates = append(r.updates, subscriptionUpdate{userID, plan, status, stripeCustomerID})
	return r.updateErr
}

type fakeAudit struct {
	entries []models.AuditLog
}

func (a *fakeAudit) CreateAuditLog(ctx context.Context, logEntry models.AuditLog) error {
	a.entries = append(a.entries, logEntry)
	return nil
}

func billingTestConfig() *config.Config {
	return &config.Config{
		StripeWebhookSecret: testWebhookSecret,
		PremiumAmount:       2289,
		GoldAmount:          5599,
		Currency:            "bgn",
	}
}

func newTestBillingService(t *testing.T, payments PaymentsAPI, repo db.UserRepository, audit AuditService) BillingService {
	t.Helper()
	svc, err := NewBillingService(payments, repo, audit, billingTestConfig(), nil)
	if err != nil {
		t.Fatalf("NewBillingService: %v", err)
	}
	return svc
}

func TestCreatePaymentSheetReusesExistingCustomer(t *testing.T) {
	payments := &fakePayments{foundCustomer: &fakeFoundCustomer{id: "cus_existing"}}
	svc := newTestBillingService(t, payments, nil, nil)

	sheet, err := svc.CreatePaymentSheet(context.Background(), "uid-1", "a@b.c", session.PlanPremium)
	if err != nil {
		t.Fatalf("CreatePaymentSheet: %v", err)
	}

	if payments.lastQuery != "metadata['userId']:'uid-1'" {
		t.Errorf("search query = %q", payments.lastQuery)
	}
	if payments.customerParams != nil {
		t.Error("should not create a customer when one was found")
	}
	if sheet.CustomerID != "cus_existing" || sheet.EphemeralKey != "ek_secret" || sheet.PaymentIntent != "pi_secret" {
		t.Errorf("unexpected sheet: %+v", sheet)
	}

	if got := payments.keyParams; got == nil || got.Customer == nil || *got.Customer != "cus_existing" {
		t.Errorf("ephemeral key params = %+v", got)
	} else if got.StripeVersion == nil || *got.StripeVersion != ephemeralKeyAPIVersion {
		t.Errorf("StripeVersion = %v, want %s", got.StripeVersion, ephemeralKeyAPIVersion)
	}

	intent := payments.intentParams
	if intent == nil {
		t.Fatal("no payment intent created")
	}
	if *intent.Amount != 2289 || *intent.Currency != "bgn" {
		t.Errorf("intent amount/currency = %d/%s", *intent.Amount, *intent.Currency)
	}
	if intent.AutomaticPaymentMethods == nil || !*intent.AutomaticPaymentMethods.Enabled {
		t.Error("automatic payment methods should be enabled")
	}
	if intent.Metadata["plan"] != "premium" || intent.Metadata["userId"] != "uid-1" {
		t.Errorf("intent metadata = %v", intent.Metadata)
	}
}

func TestCreatePaymentSheetCreatesCustomerWhenNoneFound(t *testing.T) {
	payments := &fakePayments{}
	svc := newTestBillingService(t, payments, nil, nil)

	sheet, err := svc.CreatePaymentSheet(context.Background(), "", "new@b.c", session.PlanPremium)
	if err != nil {
		t.Fatalf("CreatePaymentSheet: %v", err)
	}

	if payments.lastQuery != "email:'new@b.c'" {
		t.Errorf("search query = %q", payments.lastQuery)
	}
	created := payments.customerParams
	if created == nil {
		t.Fatal("expected a customer to be created")
	}
	if created.Email == nil || *created.Email != "new@b.c" {
		t.Errorf("created customer email = %v", created.Email)
	}
	if sheet.CustomerID != "cus_created" {
		t.Errorf("sheet customer = %q", sheet.CustomerID)
	}
}

func TestCreatePaymentSheetSearchFailureFallsBackToCreate(t *testing.T) {
	payments := &fakePayments{searchErr: errors.New("search down")}
	svc := newTestBillingService(t, payments, nil, nil)

	sheet, err := svc.CreatePaymentSheet(context.Background(), "uid-1", "a@b.c", session.PlanPremium)
	if err != nil {
		t.Fatalf("search failure should not fail the flow: %v", err)
	}
	if payments.customerParams == nil {
		t.Fatal("expected fallback customer creation")
	}
	if payments.customerParams.Metadata["userId"] != "uid-1" {
		t.Errorf("created customer metadata = %v", payments.customerParams.Metadata)
	}
	if sheet.CustomerID != "cus_created" {
		t.Errorf("sheet customer = %q", sheet.CustomerID)
	}
}

func TestCreatePaymentSheetAmounts(t *testing.T) {
	tests := []struct {
		plan       session.Plan
		wantAmount int64
		wantPlanMD string
	}{
		{session.PlanPremium, 2289, "premium"},
		{session.PlanGold, 5599, "gold"},
		{session.PlanFree, 0, "free"},
		// An unspecified plan is priced free but labeled premium, matching
		// the sheet the client presents by default.
		{session.PlanNone, 0, "premium"},
	}
	for _, tc := range tests {
		t.Run(string(tc.plan)+"/"+tc.wantPlanMD, func(t *testing.T) {
			payments := &fakePayments{foundCustomer: &fakeFoundCustomer{id: "cus_1"}}
			svc := newTestBillingService(t, payments, nil, nil)

			if _, err := svc.CreatePaymentSheet(context.Background(), "uid-1", "", tc.plan); err != nil {
				t.Fatalf("CreatePaymentSheet(%q): %v", tc.plan, err)
			}
			if got := *payments.intentParams.Amount; got != tc.wantAmount {
				t.Errorf("amount = %d, want %d", got, tc.wantAmount)
			}
			if got := payments.intentParams.Metadata["plan"]; got != tc.wantPlanMD {
				t.Errorf("plan metadata = %q, want %q", got, tc.wantPlanMD)
			}
		})
	}
}

func TestCreatePaymentSheetRejectsUnknownPlan(t *testing.T) {
	svc := newTestBillingService(t, &fakePayments{}, nil, nil)
	_, err := svc.CreatePaymentSheet(context.Background(), "uid-1", "", session.Plan("platinum"))
	if !errors.Is(err, ErrInvalidPlan) {
		t.Errorf("error = %v, want ErrInvalidPlan", err)
	}
}

func TestCreatePaymentSheetStripeFailures(t *testing.T) {
	tests := []struct {
		name string
		f    *fakePayments
	}{
		{"customer create fails", &fakePayments{createCustomerErr: errors.New("boom")}},
		{"ephemeral key fails", &fakePayments{foundCustomer: &fakeFoundCustomer{id: "c"}, createKeyErr: errors.New("boom")}},
		{"intent fails", &fakePayments{foundCustomer: &fakeFoundCustomer{id: "c"}, createIntentErr: errors.New("boom")}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := newTestBillingService(t, tc.f, nil, nil)
			_, err := svc.CreatePaymentSheet(context.Background(), "uid-1", "a@b.c", session.PlanPremium)
			if !errors.Is(err, ErrStripeClient) {
				t.Errorf("error = %v, want ErrStripeClient", err)
			}
		})
	}
}

// signPayload produces a Stripe-Signature header for the payload, the same
// scheme the webhook package verifies.
func signPayload(secret string, payload []byte) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func paymentSucceededPayload(userID, plan string) []byte {
	intent := fmt.Sprintf(`{"id":"pi_1","amount":2289,"currency":"bgn","customer":"cus_9","metadata":{%s}}`,
		webhookMetadata(userID, plan))
	return []byte(fmt.Sprintf(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":%s}}`, intent))
}

func webhookMetadata(userID, plan string) string {
	parts := ""
	if userID != "" {
		parts = fmt.Sprintf(`"userId":%q`, userID)
	}
	if plan != "" {
		if parts != "" {
			parts += ","
		}
		parts += fmt.Sprintf(`"plan":%q`, plan)
	}
	return parts
}

func TestHandleWebhookRejectsBadSignature(t *testing.T) {
	repo := &fakeUserRepo{}
	svc := newTestBillingService(t, &fakePayments{}, repo, nil)

	payload := paymentSucceededPayload("uid-1", "premium")
	err := svc.HandleWebhook(context.Background(), "t=1,v1=deadbeef", payload)
	if !errors.Is(err, ErrWebhookSignature) {
		t.Fatalf("error = %v, want ErrWebhookSignature", err)
	}
	if len(repo.updates) != 0 {
		t.Error("no entitlement change should happen on a bad signature")
	}
}

func TestHandleWebhookPaymentSucceeded(t *testing.T) {
	repo := &fakeUserRepo{}
	audit := &fakeAudit{}
	svc := newTestBillingService(t, &fakePayments{}, repo, audit)

	payload := paymentSucceededPayload("uid-1", "premium")
	sig := signPayload(testWebhookSecret, payload)
	if err := svc.HandleWebhook(context.Background(), sig, payload); err != nil {
		t.Fatalf("HandleWebhook: %v", err)
	}

	if len(repo.updates) != 1 {
		t.Fatalf("got %d subscription updates, want 1", len(repo.updates))
	}
	got := repo.updates[0]
	want := subscriptionUpdate{userID: "uid-1", plan: "premium", status: "active", customerID: "cus_9"}
	if got != want {
		t.Errorf("subscription update = %+v, want %+v", got, want)
	}

	if len(audit.entries) != 1 || audit.entries[0].Action != "PAYMENT_SUCCEEDED" || audit.entries[0].UserID != "uid-1" {
		t.Errorf("audit entries = %+v", audit.entries)
	}
}

func TestHandleWebhookDefaultsPlanToPremium(t *testing.T) {
	repo := &fakeUserRepo{}
	svc := newTestBillingService(t, &fakePayments{}, repo, nil)

	payload := paymentSucceededPayload("uid-1", "")
	sig := signPayload(testWebhookSecret, payload)
	if err := svc.HandleWebhook(context.Background(), sig, payload); err != nil {
		t.Fatal(err)
	}
	if len(repo.updates) != 1 || repo.updates[0].plan != "premium" {
		t.Errorf("updates = %+v, want premium plan", repo.updates)
	}
}

func TestHandleWebhookAcksPaymentWithoutUser(t *testing.T) {
	repo := &fakeUserRepo{}
	svc := newTestBillingService(t, &fakePayments{}, repo, nil)

	payload := paymentSucceededPayload("", "premium")
	sig := signPayload(testWebhookSecret, payload)
	if err := svc.HandleWebhook(context.Background(), sig, payload); err != nil {
		t.Fatalf("unattributable payment should be acked, got %v", err)
	}
	if len(repo.updates) != 0 {
		t.Errorf("unexpected updates: %+v", repo.updates)
	}
}

func TestHandleWebhookIgnoresOtherEvents(t *testing.T) {
	repo := &fakeUserRepo{}
	svc := newTestBillingService(t, &fakePayments{}, repo, nil)

	payload := []byte(`{"id":"evt_2","type":"payment_intent.created","data":{"object":{"id":"pi_2"}}}`)
	sig := signPayload(testWebhookSecret, payload)
	if err := svc.HandleWebhook(context.Background(), sig, payload); err != nil {
		t.Fatalf("unhandled event types should be acked, got %v", err)
	}
	if len(repo.updates) != 0 {
		t.Errorf("unexpected updates: %+v", repo.updates)
	}
}

func TestHandleWebhookRepoFailure(t *testing.T) {
	repo := &fakeUserRepo{updateErr: errors.New("firestore down")}
	svc := newTestBillingService(t, &fakePayments{}, repo, nil)

	payload := paymentSucceededPayload("uid-1", "premium")
	sig := signPayload(testWebhookSecret, payload)
	err := svc.HandleWebhook(context.Background(), sig, payload)
	if !errors.Is(err, ErrWebhookProcessing) {
		t.Errorf("error = %v, want ErrWebhookProcessing", err)
	}
}
