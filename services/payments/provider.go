package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/code-centre/tech-centre-api/utils/metrics"
)

// Provider names accepted by GetProvider
const (
	ProviderWompi    = "wompi"
	ProviderMidtrans = "midtrans"
	ProviderStripe   = "stripe"

	DefaultProvider = ProviderWompi
)

// TransactionStatus is the provider independent state of a payment attempt
type TransactionStatus string

const (
	StatusPending  TransactionStatus = "PENDING"
	StatusApproved TransactionStatus = "APPROVED"
	StatusDeclined TransactionStatus = "DECLINED"
	StatusVoided   TransactionStatus = "VOIDED"
	StatusError    TransactionStatus = "ERROR"
)

// PaymentLinkRequest asks a provider for a hosted single-use checkout page.
// Amount is in whole currency units; providers convert to minor units themselves.
type PaymentLinkRequest struct {
	Amount      int64
	Name        string
	Description string
	RedirectURL string
	Reference   string
	Metadata    map[string]string
}

// PaymentLink is the redirect resource returned by a provider
type PaymentLink struct {
	ID        string     `json:"id"`
	URL       string     `json:"url"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Transaction is a payment attempt as reported by the provider
type Transaction struct {
	ID        string            `json:"id"`
	Status    TransactionStatus `json:"status"`
	Amount    int64             `json:"amount"`
	Currency  string            `json:"currency"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	Metadata  map[string]any    `json:"metadata,omitempty"`
}

// Provider is implemented by every payment gateway adapter
type Provider interface {
	Name() string
	CreatePaymentLink(ctx context.Context, req PaymentLinkRequest) (*PaymentLink, error)
	GetTransactionStatus(ctx context.Context, transactionID string) (*Transaction, error)
}

// ProviderError wraps any failure talking to a payment provider.
// StatusCode is zero for transport errors.
type ProviderError struct {
	Provider   string
	Op         string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s failed with status %d: %v", e.Provider, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsProviderError reports whether err came from a provider adapter
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}

// Config selects and configures the active provider
type Config struct {
	Provider string
	Currency string
	Wompi    WompiConfig
	Midtrans MidtransConfig
	Stripe   StripeConfig
}

var (
	providerMu     sync.Mutex
	cachedProvider Provider
)

// GetProvider returns the process wide provider, building it on first use.
// Later calls reuse the same instance regardless of cfg until ResetProvider is called.
func GetProvider(cfg Config) (Provider, error) {
	providerMu.Lock()
	defer providerMu.Unlock()

	if cachedProvider != nil {
		return cachedProvider, nil
	}

	p, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	cachedProvider = p
	return p, nil
}

// ResetProvider drops the cached provider
func ResetProvider() {
	providerMu.Lock()
	cachedProvider = nil
	providerMu.Unlock()
}

// NewProvider builds an uncached provider for cfg.Provider
func NewProvider(cfg Config) (Provider, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if name == "" {
		name = DefaultProvider
	}
	currency := cfg.Currency
	if currency == "" {
		currency = "COP"
	}

	switch name {
	case ProviderWompi:
		return NewWompiProvider(cfg.Wompi, currency), nil
	case ProviderMidtrans:
		if cfg.Midtrans.ServerKey == "" {
			return nil, errors.New("midtrans server key is not configured")
		}
		return NewMidtransProvider(cfg.Midtrans), nil
	case ProviderStripe:
		if cfg.Stripe.APIKey == "" {
			return nil, errors.New("stripe api key is not configured")
		}
		return NewStripeProvider(cfg.Stripe, currency), nil
	default:
		return nil, fmt.Errorf("unknown payment provider %q", cfg.Provider)
	}
}

// toMinorUnits converts whole currency units to cents
func toMinorUnits(amount int64) int64 {
	return amount * 100
}

func fromMinorUnits(cents int64) int64 {
	return cents / 100
}

func observe(provider, op string, start time.Time, err error) {
	metrics.ProviderRequestDuration.WithLabelValues(provider, op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ProviderErrors.WithLabelValues(provider, op).Inc()
	}
}
