package core

import (
	"context"
	"errors"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

// stripePayments implements PaymentsAPI on the official Stripe SDK client.
type stripePayments struct {
	api *client.API
}

// NewStripePayments creates a PaymentsAPI backed by the Stripe SDK.
func NewStripePayments(secretKey string) (PaymentsAPI, error) {
	if secretKey == "" {
		return nil, errors.New("NewStripePayments: secret key cannot be empty")
	}
	api := &client.API{}
	api.Init(secretKey, nil)
	return &stripePayments{api: api}, nil
}

func (p *stripePayments) FindCustomer(ctx context.Context, query string) (*stripe.Customer, error) {
	params := &stripe.CustomerSearchParams{
		SearchParams: stripe.SearchParams{Query: query, Context: ctx},
	}
	iter := p.api.Customers.Search(params)
	for iter.Next() {
		return iter.Customer(), nil
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return nil, nil
}

func (p *stripePayments) CreateCustomer(ctx context.Context, params *stripe.CustomerParams) (*stripe.Customer, error) {
	return p.api.Customers.New(params)
}

func (p *stripePayments) CreateEphemeralKey(ctx context.Context, params *stripe.EphemeralKeyParams) (*stripe.EphemeralKey, error) {
	return p.api.EphemeralKeys.New(params)
}

func (p *stripePayments) CreatePaymentIntent(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	return p.api.PaymentIntents.New(params)
}
