package payments

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"github.com/stripe/stripe-go/v82/paymentlink"
	"github.com/stripe/stripe-go/v82/price"
	"github.com/stripe/stripe-go/v82/product"
)

// StripeConfig holds the Stripe secret key
type StripeConfig struct {
	APIKey string
}

// StripeProvider creates one-off Stripe payment links
type StripeProvider struct {
	apiKey   string
	currency string
}

// NewStripeProvider creates a Stripe provider charging in currency
func NewStripeProvider(cfg StripeConfig, currency string) *StripeProvider {
	return &StripeProvider{
		apiKey:   cfg.APIKey,
		currency: strings.ToLower(currency),
	}
}

func (p *StripeProvider) Name() string {
	return ProviderStripe
}

// CreatePaymentLink creates a product, a one-time price and a single-use payment link for it
func (p *StripeProvider) CreatePaymentLink(ctx context.Context, req PaymentLinkRequest) (link *PaymentLink, err error) {
	const op = "create_payment_link"
	defer func(start time.Time) { observe(ProviderStripe, op, start, err) }(time.Now())

	stripe.Key = p.apiKey

	productParams := &stripe.ProductParams{
		Name:        stripe.String(req.Name),
		Description: stripe.String(req.Description),
	}
	productParams.Context = ctx
	prod, err := product.New(productParams)
	if err != nil {
		return nil, stripeError(op, err)
	}

	priceParams := &stripe.PriceParams{
		Currency:   stripe.String(p.currency),
		UnitAmount: stripe.Int64(toMinorUnits(req.Amount)),
		Product:    stripe.String(prod.ID),
	}
	priceParams.Context = ctx
	pr, err := price.New(priceParams)
	if err != nil {
		return nil, stripeError(op, err)
	}

	linkParams := &stripe.PaymentLinkParams{
		LineItems: []*stripe.PaymentLinkLineItemParams{
			{
				Price:    stripe.String(pr.ID),
				Quantity: stripe.Int64(1),
			},
		},
		// one completed checkout per link; an invoice is paid exactly once
		Restrictions: &stripe.PaymentLinkRestrictionsParams{
			CompletedSessions: &stripe.PaymentLinkRestrictionsCompletedSessionsParams{
				Limit: stripe.Int64(1),
			},
		},
	}
	if req.RedirectURL != "" {
		linkParams.AfterCompletion = &stripe.PaymentLinkAfterCompletionParams{
			Type: stripe.String("redirect"),
			Redirect: &stripe.PaymentLinkAfterCompletionRedirectParams{
				URL: stripe.String(req.RedirectURL),
			},
		}
	}
	// PaymentIntents do not inherit link metadata, so it is copied onto them too
	intentMeta := make(map[string]string, len(req.Metadata)+1)
	for k, v := range req.Metadata {
		linkParams.AddMetadata(k, v)
		intentMeta[k] = v
	}
	if req.Reference != "" {
		linkParams.AddMetadata("reference", req.Reference)
		intentMeta["reference"] = req.Reference
	}
	linkParams.PaymentIntentData = &stripe.PaymentLinkPaymentIntentDataParams{Metadata: intentMeta}
	linkParams.Context = ctx

	pl, err := paymentlink.New(linkParams)
	if err != nil {
		return nil, stripeError(op, err)
	}

	return &PaymentLink{ID: pl.ID, URL: pl.URL}, nil
}

// GetTransactionStatus reads a PaymentIntent
func (p *StripeProvider) GetTransactionStatus(ctx context.Context, transactionID string) (tx *Transaction, err error) {
	const op = "get_transaction"
	defer func(start time.Time) { observe(ProviderStripe, op, start, err) }(time.Now())

	if strings.TrimSpace(transactionID) == "" {
		return nil, &ProviderError{Provider: ProviderStripe, Op: op, Err: errors.New("transaction id is required")}
	}

	stripe.Key = p.apiKey
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := paymentintent.Get(transactionID, params)
	if err != nil {
		return nil, stripeError(op, err)
	}

	metadata := make(map[string]any, len(pi.Metadata))
	for k, v := range pi.Metadata {
		metadata[k] = v
	}

	created := time.Unix(pi.Created, 0).UTC()
	return &Transaction{
		ID:        pi.ID,
		Status:    mapStripeStatus(pi.Status),
		Amount:    fromMinorUnits(pi.Amount),
		Currency:  strings.ToUpper(string(pi.Currency)),
		CreatedAt: created,
		UpdatedAt: created,
		Metadata:  metadata,
	}, nil
}

func stripeError(op string, err error) error {
	pe := &ProviderError{Provider: ProviderStripe, Op: op, Err: err}
	var se *stripe.Error
	if errors.As(err, &se) {
		pe.StatusCode = se.HTTPStatusCode
	}
	return pe
}

func mapStripeStatus(status stripe.PaymentIntentStatus) TransactionStatus {
	switch status {
	case stripe.PaymentIntentStatusSucceeded:
		return StatusApproved
	case stripe.PaymentIntentStatusProcessing,
		stripe.PaymentIntentStatusRequiresAction,
		stripe.PaymentIntentStatusRequiresCapture,
		stripe.PaymentIntentStatusRequiresConfirmation:
		return StatusPending
	case stripe.PaymentIntentStatusRequiresPaymentMethod:
		return StatusDeclined
	case stripe.PaymentIntentStatusCanceled:
		return StatusVoided
	default:
		return StatusError
	}
}
