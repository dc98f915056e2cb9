package servicestest

import (
	"context"
	"fmt"
	"sync"

	"github.com/code-centre/tech-centre-api/services/payments"
)

// Provider is a scriptable payments.Provider
type Provider struct {
	mu sync.Mutex

	LinkErr      error
	Transactions map[string]*payments.Transaction
	TxErr        error

	linkRequests []payments.PaymentLinkRequest
}

var _ payments.Provider = (*Provider)(nil)

func (p *Provider) Name() string { return "test" }

func (p *Provider) CreatePaymentLink(_ context.Context, req payments.PaymentLinkRequest) (*payments.PaymentLink, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.LinkErr != nil {
		return nil, p.LinkErr
	}
	p.linkRequests = append(p.linkRequests, req)
	id := fmt.Sprintf("lnk_%d", len(p.linkRequests))
	return &payments.PaymentLink{ID: id, URL: "https://pay.test/l/" + id}, nil
}

func (p *Provider) GetTransactionStatus(_ context.Context, transactionID string) (*payments.Transaction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.TxErr != nil {
		return nil, p.TxErr
	}
	tx, ok := p.Transactions[transactionID]
	if !ok {
		return nil, &payments.ProviderError{Provider: "test", Op: "get_transaction", StatusCode: 404, Err: fmt.Errorf("transaction %s not found", transactionID)}
	}
	return tx, nil
}

// LinkRequests returns the payment link requests received so far
func (p *Provider) LinkRequests() []payments.PaymentLinkRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]payments.PaymentLinkRequest(nil), p.linkRequests...)
}
