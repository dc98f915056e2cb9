package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go"
)

const (
	// WompiBaseURL is the Wompi production API
	WompiBaseURL = "https://production.wompi.co/v1"
	// WompiCheckoutURL hosts the payment link pages
	WompiCheckoutURL = "https://checkout.wompi.co"
	// DefaultTimeout is the HTTP timeout for provider calls
	DefaultTimeout = 15 * time.Second
)

// WompiConfig holds configuration for the Wompi client
type WompiConfig struct {
	BaseURL     string
	CheckoutURL string
	PrivateKey  string
	Timeout     time.Duration
	HTTPClient  *http.Client
	Retry       *RetryConfig // Optional custom retry config for idempotent reads
}

// RetryConfig holds retry configuration for transaction lookups
type RetryConfig struct {
	Attempts uint
	Delay    time.Duration
	MaxDelay time.Duration
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Attempts: 3,
		Delay:    200 * time.Millisecond,
		MaxDelay: 2 * time.Second,
	}
}

// WompiProvider talks to the Wompi REST API
type WompiProvider struct {
	baseURL     string
	checkoutURL string
	privateKey  string
	currency    string
	httpClient  *http.Client
	retry       RetryConfig
}

// NewWompiProvider creates a new Wompi provider
func NewWompiProvider(cfg WompiConfig, currency string) *WompiProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = WompiBaseURL
	}
	if cfg.CheckoutURL == "" {
		cfg.CheckoutURL = WompiCheckoutURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	retryConfig := DefaultRetryConfig()
	if cfg.Retry != nil {
		retryConfig = *cfg.Retry
	}

	return &WompiProvider{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		checkoutURL: strings.TrimRight(cfg.CheckoutURL, "/"),
		privateKey:  cfg.PrivateKey,
		currency:    currency,
		httpClient:  httpClient,
		retry:       retryConfig,
	}
}

func (p *WompiProvider) Name() string {
	return ProviderWompi
}

type wompiPaymentLinkRequest struct {
	Name            string            `json:"name"`
	Description     string            `json:"description"`
	SingleUse       bool              `json:"single_use"`
	CollectShipping bool              `json:"collect_shipping"`
	AmountInCents   int64             `json:"amount_in_cents"`
	Currency        string            `json:"currency"`
	RedirectURL     string            `json:"redirect_url,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

type wompiPaymentLinkResponse struct {
	Data struct {
		ID        string  `json:"id"`
		ExpiresAt *string `json:"expires_at"`
	} `json:"data"`
}

type wompiTransactionResponse struct {
	Data struct {
		ID            string         `json:"id"`
		Status        string         `json:"status"`
		AmountInCents int64          `json:"amount_in_cents"`
		Currency      string         `json:"currency"`
		CreatedAt     string         `json:"created_at"`
		UpdatedAt     string         `json:"updated_at"`
		Metadata      map[string]any `json:"metadata"`
	} `json:"data"`
}

// CreatePaymentLink creates a single-use Wompi payment link for req.Amount
func (p *WompiProvider) CreatePaymentLink(ctx context.Context, req PaymentLinkRequest) (link *PaymentLink, err error) {
	const op = "create_payment_link"
	defer func(start time.Time) { observe(ProviderWompi, op, start, err) }(time.Now())

	body := wompiPaymentLinkRequest{
		Name:            req.Name,
		Description:     req.Description,
		SingleUse:       true,
		CollectShipping: false,
		AmountInCents:   toMinorUnits(req.Amount),
		Currency:        p.currency,
		RedirectURL:     req.RedirectURL,
		Metadata:        req.Metadata,
	}

	var resp wompiPaymentLinkResponse
	if err := p.doRequest(ctx, op, http.MethodPost, "/payment_links", body, &resp); err != nil {
		return nil, err
	}

	if resp.Data.ID == "" {
		return nil, &ProviderError{Provider: ProviderWompi, Op: op, StatusCode: http.StatusOK,
			Err: errors.New("response is missing the payment link id")}
	}

	link = &PaymentLink{
		ID:  resp.Data.ID,
		URL: fmt.Sprintf("%s/l/%s", p.checkoutURL, resp.Data.ID),
	}
	if resp.Data.ExpiresAt != nil {
		if t, perr := time.Parse(time.RFC3339, *resp.Data.ExpiresAt); perr == nil {
			link.ExpiresAt = &t
		}
	}
	return link, nil
}

// GetTransactionStatus fetches a transaction and maps its status.
// Lookups are retried on transport errors, 429 and 5xx responses.
func (p *WompiProvider) GetTransactionStatus(ctx context.Context, transactionID string) (tx *Transaction, err error) {
	const op = "get_transaction"
	defer func(start time.Time) { observe(ProviderWompi, op, start, err) }(time.Now())

	if strings.TrimSpace(transactionID) == "" {
		return nil, &ProviderError{Provider: ProviderWompi, Op: op, Err: errors.New("transaction id is required")}
	}

	var resp wompiTransactionResponse
	err = retry.Do(
		func() error {
			return p.doRequest(ctx, op, http.MethodGet, "/transactions/"+url.PathEscape(transactionID), nil, &resp)
		},
		retry.Context(ctx),
		retry.Attempts(p.retry.Attempts),
		retry.Delay(p.retry.Delay),
		retry.MaxDelay(p.retry.MaxDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetryable),
	)
	if err != nil {
		return nil, err
	}

	if resp.Data.ID == "" {
		return nil, &ProviderError{Provider: ProviderWompi, Op: op, StatusCode: http.StatusOK,
			Err: errors.New("response is missing the transaction id")}
	}

	return &Transaction{
		ID:        resp.Data.ID,
		Status:    mapWompiStatus(resp.Data.Status),
		Amount:    fromMinorUnits(resp.Data.AmountInCents),
		Currency:  resp.Data.Currency,
		CreatedAt: parseProviderTime(resp.Data.CreatedAt),
		UpdatedAt: parseProviderTime(resp.Data.UpdatedAt),
		Metadata:  resp.Data.Metadata,
	}, nil
}

func (p *WompiProvider) doRequest(ctx context.Context, op, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &ProviderError{Provider: ProviderWompi, Op: op, Err: fmt.Errorf("failed to encode request: %w", err)}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return &ProviderError{Provider: ProviderWompi, Op: op, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+p.privateKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return &ProviderError{Provider: ProviderWompi, Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ProviderError{Provider: ProviderWompi, Op: op, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &ProviderError{Provider: ProviderWompi, Op: op, StatusCode: resp.StatusCode,
			Err: fmt.Errorf("unexpected response: %s", truncate(string(respBody), 512))}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return &ProviderError{Provider: ProviderWompi, Op: op, StatusCode: resp.StatusCode,
			Err: fmt.Errorf("malformed response: %w", err)}
	}
	return nil
}

func isRetryable(err error) bool {
	var pe *ProviderError
	if !errors.As(err, &pe) {
		return false
	}
	return pe.StatusCode == 0 || pe.StatusCode == http.StatusTooManyRequests || pe.StatusCode >= 500
}

func mapWompiStatus(status string) TransactionStatus {
	switch TransactionStatus(strings.ToUpper(status)) {
	case StatusPending:
		return StatusPending
	case StatusApproved:
		return StatusApproved
	case StatusDeclined:
		return StatusDeclined
	case StatusVoided:
		return StatusVoided
	default:
		return StatusError
	}
}

func parseProviderTime(value string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n]
}
