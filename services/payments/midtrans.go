package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	midtrans "github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"
	"github.com/shopspring/decimal"
)

// MidtransConfig holds the Midtrans server credentials
type MidtransConfig struct {
	ServerKey  string
	Production bool
}

// MidtransProvider issues Snap redirect links and checks status through Core API.
// Midtrans charges in whole rupiah so no minor unit conversion applies.
type MidtransProvider struct {
	snap snap.Client
	core coreapi.Client
}

// NewMidtransProvider creates a Midtrans provider for the sandbox or production environment
func NewMidtransProvider(cfg MidtransConfig) *MidtransProvider {
	env := midtrans.Sandbox
	if cfg.Production {
		env = midtrans.Production
	}

	p := &MidtransProvider{}
	p.snap.New(cfg.ServerKey, env)
	p.core.New(cfg.ServerKey, env)
	return p
}

func (p *MidtransProvider) Name() string {
	return ProviderMidtrans
}

// CreatePaymentLink creates a Snap transaction. The order id doubles as the link id.
func (p *MidtransProvider) CreatePaymentLink(ctx context.Context, req PaymentLinkRequest) (link *PaymentLink, err error) {
	const op = "create_payment_link"
	defer func(start time.Time) { observe(ProviderMidtrans, op, start, err) }(time.Now())

	if req.Amount <= 0 {
		return nil, &ProviderError{Provider: ProviderMidtrans, Op: op, Err: errors.New("amount must be positive")}
	}

	// Midtrans rejects reused order ids, so every link gets a fresh suffix.
	orderID := fmt.Sprintf("%s-%s", req.Reference, strings.Split(uuid.NewString(), "-")[0])

	snapReq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  orderID,
			GrossAmt: req.Amount,
		},
		Items: &[]midtrans.ItemDetails{
			{
				ID:    truncate(req.Reference, 50),
				Price: req.Amount,
				Qty:   1,
				Name:  truncate(req.Name, 50),
			},
		},
		CustomField1: truncate(req.Description, 40),
	}
	if req.RedirectURL != "" {
		snapReq.Callbacks = &snap.Callbacks{Finish: req.RedirectURL}
	}

	resp, mErr := p.snap.CreateTransaction(snapReq)
	if mErr != nil {
		return nil, midtransError(op, mErr)
	}

	return &PaymentLink{
		ID:  orderID,
		URL: resp.RedirectURL,
	}, nil
}

// GetTransactionStatus looks up a transaction by Midtrans transaction id or order id
func (p *MidtransProvider) GetTransactionStatus(ctx context.Context, transactionID string) (tx *Transaction, err error) {
	const op = "get_transaction"
	defer func(start time.Time) { observe(ProviderMidtrans, op, start, err) }(time.Now())

	if strings.TrimSpace(transactionID) == "" {
		return nil, &ProviderError{Provider: ProviderMidtrans, Op: op, Err: errors.New("transaction id is required")}
	}

	resp, mErr := p.core.CheckTransaction(transactionID)
	if mErr != nil {
		return nil, midtransError(op, mErr)
	}

	var amount int64
	if gross, perr := decimal.NewFromString(resp.GrossAmount); perr == nil {
		amount = gross.Round(0).IntPart()
	}

	createdAt := parseProviderTime(resp.TransactionTime)
	return &Transaction{
		ID:        resp.TransactionID,
		Status:    mapMidtransStatus(resp.TransactionStatus, resp.FraudStatus),
		Amount:    amount,
		Currency:  "IDR",
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
		Metadata: map[string]any{
			"order_id":     resp.OrderID,
			"payment_type": resp.PaymentType,
		},
	}, nil
}

func midtransError(op string, mErr *midtrans.Error) error {
	return &ProviderError{
		Provider:   ProviderMidtrans,
		Op:         op,
		StatusCode: mErr.StatusCode,
		Err:        errors.New(mErr.Message),
	}
}

// mapMidtransStatus folds transaction_status and fraud_status into a TransactionStatus
func mapMidtransStatus(transactionStatus, fraudStatus string) TransactionStatus {
	switch strings.ToLower(transactionStatus) {
	case "capture":
		switch strings.ToLower(fraudStatus) {
		case "accept", "":
			return StatusApproved
		case "challenge":
			return StatusPending
		default:
			return StatusDeclined
		}
	case "settlement":
		return StatusApproved
	case "pending", "authorize":
		return StatusPending
	case "deny", "failure":
		return StatusDeclined
	case "cancel", "expire", "refund", "partial_refund":
		return StatusVoided
	default:
		return StatusError
	}
}
