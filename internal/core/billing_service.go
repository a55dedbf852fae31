package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
	"go.uber.org/zap"

	"readu-app-go/internal/config"
	"readu-app-go/internal/db"
	"readu-app-go/internal/models"
	"readu-app-go/internal/session"
)

// Billing errors checked by the HTTP layer via errors.Is.
var (
	ErrInvalidPlan       = errors.New("unknown subscription plan")
	ErrStripeClient      = errors.New("stripe client operation failed")
	ErrWebhookSignature  = errors.New("stripe webhook signature verification failed")
	ErrWebhookProcessing = errors.New("stripe webhook processing failed")
)

// ephemeralKeyAPIVersion is the Stripe API version the mobile PaymentSheet
// SDK expects ephemeral keys to be minted against.
const ephemeralKeyAPIVersion = "2024-06-20"

// PaymentsAPI is the slice of the Stripe API the billing service uses. The
// production implementation wraps the Stripe SDK client; tests substitute a
// fake.
type PaymentsAPI interface {
	// FindCustomer runs a customer search and returns the first match, or
	// nil when there is none.
	FindCustomer(ctx context.Context, query string) (*stripe.Customer, error)
	CreateCustomer(ctx context.Context, params *stripe.CustomerParams) (*stripe.Customer, error)
	CreateEphemeralKey(ctx context.Context, params *stripe.EphemeralKeyParams) (*stripe.EphemeralKey, error)
	CreatePaymentIntent(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// billingService implements BillingService against the Stripe API.
type billingService struct {
	payments      PaymentsAPI
	userRepo      db.UserRepository
	auditService  AuditService
	webhookSecret string
	premiumAmount int64
	goldAmount    int64
	currency      string
	logger        *zap.Logger
}

// NewBillingService creates a BillingService. The userRepo and auditService
// are used by the webhook path to persist entitlement changes; either may be
// nil in deployments that do not record them.
func NewBillingService(payments PaymentsAPI, userRepo db.UserRepository, auditService AuditService, appConfig *config.Config, logger *zap.Logger) (BillingService, error) {
	if payments == nil {
		return nil, errors.New("NewBillingService: payments API cannot be nil")
	}
	if appConfig == nil {
		return nil, errors.New("NewBillingService: appConfig cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &billingService{
		payments:      payments,
		userRepo:      userRepo,
		auditService:  auditService,
		webhookSecret: appConfig.StripeWebhookSecret,
		premiumAmount: appConfig.PremiumAmount,
		goldAmount:    appConfig.GoldAmount,
		currency:      appConfig.Currency,
		logger:        logger,
	}, nil
}

// amountFor prices a plan in the smallest currency unit. Only paid tiers
// carry a non-zero amount.
func (s *billingService) amountFor(plan session.Plan) (int64, error) {
	switch plan {
	case session.PlanPremium:
		return s.premiumAmount, nil
	case session.PlanGold:
		return s.goldAmount, nil
	case session.PlanFree, session.PlanNone:
		return 0, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidPlan, plan)
}

// getOrCreateCustomer looks a customer up by userId metadata, then by email,
// and creates one when neither matches. Search failures fall through to
// creation rather than failing the whole flow.
func (s *billingService) getOrCreateCustomer(ctx context.Context, userID, email string) (*stripe.Customer, error) {
	var query string
	switch {
	case userID != "":
		query = fmt.Sprintf("metadata['userId']:'%s'", userID)
	case email != "":
		query = fmt.Sprintf("email:'%s'", email)
	}

	if query != "" {
		existing, err := s.payments.FindCustomer(ctx, query)
		if err != nil {
			s.logger.Warn("billing: customer search failed, falling back to create", zap.Error(err))
		} else if existing != nil {
			return existing, nil
		}
	}

	params := &stripe.CustomerParams{}
	params.Context = ctx
	if email != "" {
		params.Email = stripe.String(email)
	}
	if userID != "" {
		params.AddMetadata("userId", userID)
	}
	customer, err := s.payments.CreateCustomer(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: create customer: %v", ErrStripeClient, err)
	}
	return customer, nil
}

func (s *billingService) CreatePaymentSheet(ctx context.Context, userID, email string, plan session.Plan) (*PaymentSheet, error) {
	amount, err := s.amountFor(plan)
	if err != nil {
		return nil, err
	}

	customer, err := s.getOrCreateCustomer(ctx, userID, email)
	if err != nil {
		return nil, err
	}

	keyParams := &stripe.EphemeralKeyParams{
		Customer:      stripe.String(customer.ID),
		StripeVersion: stripe.String(ephemeralKeyAPIVersion),
	}
	keyParams.Context = ctx
	ephemeralKey, err := s.payments.CreateEphemeralKey(ctx, keyParams)
	if err != nil {
		return nil, fmt.Errorf("%w: create ephemeral key: %v", ErrStripeClient, err)
	}

	intentParams := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(s.currency),
		Customer: stripe.String(customer.ID),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	intentParams.Context = ctx
	if plan == session.PlanNone {
		plan = session.PlanPremium
	}
	intentParams.AddMetadata("plan", string(plan))
	if userID != "" {
		intentParams.AddMetadata("userId", userID)
	}
	intent, err := s.payments.CreatePaymentIntent(ctx, intentParams)
	if err != nil {
		return nil, fmt.Errorf("%w: create payment intent: %v", ErrStripeClient, err)
	}

	return &PaymentSheet{
		CustomerID:    customer.ID,
		EphemeralKey:  ephemeralKey.Secret,
		PaymentIntent: intent.ClientSecret,
	}, nil
}

func (s *billingService) HandleWebhook(ctx context.Context, signature string, payload []byte) error {
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWebhookSignature, err)
	}

	switch event.Type {
	case "payment_intent.succeeded":
		return s.applyPaymentSucceeded(ctx, event)
	default:
		// Other event types are acknowledged without action.
		s.logger.Debug("billing: ignoring webhook event", zap.String("type", string(event.Type)))
		return nil
	}
}

// applyPaymentSucceeded flips the paying user's entitlement using the plan
// and userId recorded in the intent metadata.
func (s *billingService) applyPaymentSucceeded(ctx context.Context, event stripe.Event) error {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return fmt.Errorf("%w: decode payment intent: %v", ErrWebhookProcessing, err)
	}

	userID := intent.Metadata["userId"]
	plan := intent.Metadata["plan"]
	if plan == "" {
		plan = string(session.PlanPremium)
	}
	if userID == "" {
		// Nothing to attribute the payment to; acknowledge and move on.
		s.logger.Warn("billing: payment succeeded without userId metadata",
			zap.String("paymentIntent", intent.ID))
		return nil
	}

	var customerID string
	if intent.Customer != nil {
		customerID = intent.Customer.ID
	}

	if s.userRepo != nil {
		if err := s.userRepo.UpdateSubscription(ctx, userID, plan, "active", customerID); err != nil {
			return fmt.Errorf("%w: update subscription for user '%s': %v", ErrWebhookProcessing, userID, err)
		}
	}

	if s.auditService != nil {
		if err := s.auditService.CreateAuditLog(ctx, models.AuditLog{
			UserID: userID,
			Action: "PAYMENT_SUCCEEDED",
			Details: map[string]interface{}{
				"paymentIntent": intent.ID,
				"plan":          plan,
				"amount":        intent.Amount,
				"currency":      string(intent.Currency),
			},
		}); err != nil {
			// Entitlement is already updated; an audit miss is logged, not fatal.
			s.logger.Warn("billing: failed to write audit log", zap.Error(err))
		}
	}

	s.logger.Info("billing: subscription activated",
		zap.String("userId", userID),
		zap.String("plan", plan),
	)
	return nil
}
