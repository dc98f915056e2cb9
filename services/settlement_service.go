package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/code-centre/tech-centre-api/model"
	"github.com/code-centre/tech-centre-api/services/events"
	"github.com/code-centre/tech-centre-api/services/payments"
	"github.com/code-centre/tech-centre-api/utils/metrics"
	"github.com/samber/lo"
	"gorm.io/datatypes"
)

// DefaultPaymentLinkMinAmount is the smallest invoice amount the provider accepts
const DefaultPaymentLinkMinAmount int64 = 150000

// Invoice meta keys written when a payment link is issued
const (
	MetaPaymentLinkID          = "payment_link_id"
	MetaPaymentLinkURL         = "payment_link_url"
	MetaPaymentProvider        = "payment_provider"
	MetaPaymentLinkRequestedAt = "payment_link_requested_at"
	MetaTransactionID          = "transaction_id"
)

// SettlementConfig holds the settlement knobs read from the environment
type SettlementConfig struct {
	PaymentLinkMinAmount int64
	CheckoutPublicURL    string
	Currency             string
}

// EnrollmentRequest is the input of CreateEnrollmentWithSchedule
type EnrollmentRequest struct {
	StudentID        uint
	CohortID         uint
	AgreedTotal      int64
	InstallmentCount int
	FirstDueDate     time.Time
	// CouponID, when set, is redeemed inside the same transaction
	CouponID       *uint
	InvoiceContext InvoiceContext
}

// PaymentLinkResult is returned to the student requesting a payment link
type PaymentLinkResult struct {
	InvoiceID uint                 `json:"invoice_id"`
	Amount    int64                `json:"amount"`
	Provider  string               `json:"provider"`
	Link      payments.PaymentLink `json:"link"`
}

// ReconcileResult reports what a provider lookup did to an invoice
type ReconcileResult struct {
	Invoice     *model.Invoice        `json:"invoice"`
	Transaction *payments.Transaction `json:"transaction"`
	Settled     bool                  `json:"settled"`
}

// SettlementService creates enrollments together with their invoice schedule
// and drives invoices through payment.
type SettlementService struct {
	store     CheckoutStore
	provider  payments.Provider
	publisher events.Publisher
	notifier  FinanceNotifier
	cfg       SettlementConfig
	log       *slog.Logger
	now       func() time.Time
}

// NewSettlementService creates a new settlement service.
// publisher and notifier may be nil.
func NewSettlementService(
	store CheckoutStore,
	provider payments.Provider,
	publisher events.Publisher,
	notifier FinanceNotifier,
	cfg SettlementConfig,
	log *slog.Logger,
) *SettlementService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if log == nil {
		log = slog.Default()
	}
	if cfg.PaymentLinkMinAmount <= 0 {
		cfg.PaymentLinkMinAmount = DefaultPaymentLinkMinAmount
	}
	if cfg.Currency == "" {
		cfg.Currency = "COP"
	}
	return &SettlementService{
		store:     store,
		provider:  provider,
		publisher: publisher,
		notifier:  notifier,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
	}
}

// Currency is the currency invoices are billed in
func (s *SettlementService) Currency() string {
	return s.cfg.Currency
}

// CreateEnrollmentWithSchedule inserts the enrollment, its invoices and the optional
// coupon redemption as one unit. Nothing is persisted when any step fails.
func (s *SettlementService) CreateEnrollmentWithSchedule(ctx context.Context, req EnrollmentRequest) (*model.Enrollment, error) {
	if req.AgreedTotal <= 0 {
		return nil, wrapCheckoutError(ErrInvalidInput, "Agreed total must be greater than zero", ErrInvalidAmount)
	}
	if req.InstallmentCount < 1 {
		return nil, newCheckoutError(ErrInvalidInput, "Installment count must be at least 1")
	}
	if req.StudentID == 0 || req.CohortID == 0 {
		return nil, newCheckoutError(ErrInvalidInput, "Student and cohort are required")
	}

	firstDue := req.FirstDueDate
	if firstDue.IsZero() {
		firstDue = s.now()
	}
	firstDue = time.Date(firstDue.Year(), firstDue.Month(), firstDue.Day(), 0, 0, 0, 0, time.UTC)

	enrollment := &model.Enrollment{
		StudentID:        req.StudentID,
		CohortID:         req.CohortID,
		CouponID:         req.CouponID,
		AgreedTotal:      req.AgreedTotal,
		InstallmentCount: req.InstallmentCount,
		Status:           model.EnrollmentStatusPendingPayment,
	}

	err := s.store.Transaction(ctx, func(tx CheckoutStore) error {
		if err := tx.CreateEnrollment(ctx, enrollment); err != nil {
			return fmt.Errorf("failed to create enrollment: %w", err)
		}

		schedule := CalculateInstallments(req.AgreedTotal, req.InstallmentCount, firstDue)
		invoices := BuildInvoices(enrollment.ID, schedule, req.InvoiceContext)
		if err := tx.CreateInvoices(ctx, invoices); err != nil {
			return fmt.Errorf("failed to create invoices: %w", err)
		}
		enrollment.Invoices = invoices

		if req.CouponID != nil {
			if err := redeemCoupon(ctx, tx, *req.CouponID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.log.Error("enrollment settlement rolled back",
			slog.Uint64("student_id", uint64(req.StudentID)),
			slog.Uint64("cohort_id", uint64(req.CohortID)),
			slog.Any("error", err),
		)
		return nil, err
	}

	metrics.EnrollmentsCreated.Inc()
	s.log.Info("enrollment created",
		slog.Uint64("enrollment_id", uint64(enrollment.ID)),
		slog.Int64("agreed_total", enrollment.AgreedTotal),
		slog.Int("invoices", len(enrollment.Invoices)),
	)

	s.publish(ctx, events.Event{
		Type:         events.EnrollmentCreated,
		EnrollmentID: enrollment.ID,
		StudentID:    enrollment.StudentID,
		Amount:       enrollment.AgreedTotal,
		Data: map[string]any{
			"cohort_id":         enrollment.CohortID,
			"installment_count": enrollment.InstallmentCount,
			"invoice_ids":       lo.Map(enrollment.Invoices, func(inv model.Invoice, _ int) uint { return inv.ID }),
		},
	})

	return enrollment, nil
}

// FindEnrollmentsWithoutInvoices lists pending enrollments older than olderThan that
// have no invoices at all.
func (s *SettlementService) FindEnrollmentsWithoutInvoices(ctx context.Context, olderThan time.Duration) ([]model.Enrollment, error) {
	return s.store.FindEnrollmentsWithoutInvoices(ctx, s.now().Add(-olderThan))
}

// SweepOrphanedEnrollments cancels enrollments left without invoices and alerts finance.
// It returns the enrollments that were cancelled.
func (s *SettlementService) SweepOrphanedEnrollments(ctx context.Context, olderThan time.Duration) ([]model.Enrollment, error) {
	orphans, err := s.FindEnrollmentsWithoutInvoices(ctx, olderThan)
	if err != nil {
		return nil, fmt.Errorf("failed to find orphaned enrollments: %w", err)
	}

	now := s.now()
	var cancelled []model.Enrollment
	for _, e := range orphans {
		ok, err := s.store.UpdateEnrollmentStatus(ctx, e.ID, model.EnrollmentStatusPendingPayment, model.EnrollmentStatusCancelled, now)
		if err != nil {
			s.log.Error("failed to cancel orphaned enrollment", slog.Uint64("enrollment_id", uint64(e.ID)), slog.Any("error", err))
			continue
		}
		if ok {
			e.Status = model.EnrollmentStatusCancelled
			e.CancelledAt = &now
			cancelled = append(cancelled, e)
		}
	}

	if len(cancelled) > 0 && s.notifier != nil {
		if err := s.notifier.NotifyOrphanedEnrollments(ctx, cancelled); err != nil {
			s.log.Warn("finance alert not delivered", slog.Any("error", err))
		}
	}
	return cancelled, nil
}

// CancelEnrollment cancels a pending or active enrollment. Cancelling twice is a no-op.
func (s *SettlementService) CancelEnrollment(ctx context.Context, enrollmentID uint) (*model.Enrollment, error) {
	enrollment, err := s.store.GetEnrollment(ctx, enrollmentID)
	if err != nil {
		if isNotFound(err) {
			return nil, newCheckoutError(ErrNotFound, "Enrollment not found")
		}
		return nil, fmt.Errorf("failed to load enrollment: %w", err)
	}
	if enrollment.Status == model.EnrollmentStatusCancelled {
		return enrollment, nil
	}

	now := s.now()
	ok, err := s.store.UpdateEnrollmentStatus(ctx, enrollment.ID, enrollment.Status, model.EnrollmentStatusCancelled, now)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel enrollment: %w", err)
	}
	if !ok {
		return nil, newCheckoutError(ErrInvalidInput, "Enrollment changed while cancelling, please retry")
	}

	enrollment.Status = model.EnrollmentStatusCancelled
	enrollment.CancelledAt = &now
	s.publish(ctx, events.Event{
		Type:         events.EnrollmentCancelled,
		EnrollmentID: enrollment.ID,
		StudentID:    enrollment.StudentID,
	})
	return enrollment, nil
}

// ListInvoices returns the invoices of an enrollment owned by studentID
func (s *SettlementService) ListInvoices(ctx context.Context, enrollmentID, studentID uint) ([]model.Invoice, error) {
	if _, err := s.ownedEnrollment(ctx, enrollmentID, studentID); err != nil {
		return nil, err
	}
	return s.store.ListInvoicesByEnrollment(ctx, enrollmentID)
}

// GetInvoice loads an invoice with its enrollment, checking that studentID owns it
func (s *SettlementService) GetInvoice(ctx context.Context, invoiceID, studentID uint) (*model.Invoice, *model.Enrollment, error) {
	invoice, err := s.loadInvoice(ctx, invoiceID)
	if err != nil {
		return nil, nil, err
	}
	enrollment, err := s.ownedEnrollment(ctx, invoice.EnrollmentID, studentID)
	if err != nil {
		return nil, nil, err
	}
	return invoice, enrollment, nil
}

// RequestPaymentLinkForInvoice issues a provider payment link for one invoice.
// The amount always comes from storage, never from the caller.
func (s *SettlementService) RequestPaymentLinkForInvoice(ctx context.Context, invoiceID, callerStudentID uint) (*PaymentLinkResult, error) {
	invoice, err := s.loadInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.IsPaid() {
		return nil, newCheckoutError(ErrAlreadyPaid, "This invoice has already been paid")
	}

	enrollment, err := s.ownedEnrollment(ctx, invoice.EnrollmentID, callerStudentID)
	if err != nil {
		return nil, err
	}
	if enrollment.Status == model.EnrollmentStatusCancelled {
		return nil, newCheckoutError(ErrInvalidInput, "This enrollment has been cancelled")
	}

	if invoice.Amount < s.cfg.PaymentLinkMinAmount {
		return nil, newCheckoutError(ErrBelowMinimum,
			fmt.Sprintf("Online payments require at least %s", FormatAmount(s.cfg.PaymentLinkMinAmount)))
	}

	link, err := s.provider.CreatePaymentLink(ctx, payments.PaymentLinkRequest{
		Amount:      invoice.Amount,
		Name:        invoice.Label,
		Description: fmt.Sprintf("Invoice %d for enrollment %d", invoice.ID, enrollment.ID),
		RedirectURL: s.redirectURL(invoice.ID),
		Reference:   invoiceReference(invoice.ID),
		Metadata: map[string]string{
			"invoice_id":    strconv.FormatUint(uint64(invoice.ID), 10),
			"enrollment_id": strconv.FormatUint(uint64(enrollment.ID), 10),
			"student_id":    strconv.FormatUint(uint64(enrollment.StudentID), 10),
		},
	})
	if err != nil {
		s.log.Error("payment link creation failed",
			slog.Uint64("invoice_id", uint64(invoice.ID)),
			slog.String("provider", s.provider.Name()),
			slog.Any("error", err),
		)
		return nil, wrapCheckoutError(ErrProvider, "The payment provider is unavailable, please try again", err)
	}

	metrics.PaymentLinksCreated.WithLabelValues(s.provider.Name()).Inc()
	s.recordPaymentLink(ctx, invoice, link)

	s.publish(ctx, events.Event{
		Type:         events.PaymentLinkCreated,
		EnrollmentID: enrollment.ID,
		InvoiceID:    invoice.ID,
		StudentID:    enrollment.StudentID,
		Amount:       invoice.Amount,
		Data:         map[string]any{"provider": s.provider.Name(), "link_id": link.ID},
	})

	return &PaymentLinkResult{
		InvoiceID: invoice.ID,
		Amount:    invoice.Amount,
		Provider:  s.provider.Name(),
		Link:      *link,
	}, nil
}

// recordPaymentLink merges the link into the invoice meta. Failures are logged only;
// the caller already holds a usable link.
func (s *SettlementService) recordPaymentLink(ctx context.Context, invoice *model.Invoice, link *payments.PaymentLink) {
	meta := MergeInvoiceMeta(invoice.Meta, map[string]any{
		MetaPaymentLinkID:          link.ID,
		MetaPaymentLinkURL:         link.URL,
		MetaPaymentProvider:        s.provider.Name(),
		MetaPaymentLinkRequestedAt: s.now().UTC().Format(time.RFC3339),
	})

	if err := s.store.SaveInvoicePaymentLink(ctx, invoice.ID, link.ID, meta); err != nil {
		s.log.Error("failed to record payment link on invoice",
			slog.Uint64("invoice_id", uint64(invoice.ID)),
			slog.String("payment_link_id", link.ID),
			slog.Any("error", err),
		)
		return
	}

	invoice.Meta = meta
	invoice.ProviderReference = &link.ID
}

// MergeInvoiceMeta returns a copy of existing with updates applied on top
func MergeInvoiceMeta(existing datatypes.JSONMap, updates map[string]any) datatypes.JSONMap {
	merged := make(datatypes.JSONMap, len(existing)+len(updates))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range updates {
		merged[k] = v
	}
	return merged
}

// MarkInvoicePaid settles an invoice. The first paid invoice activates its enrollment.
func (s *SettlementService) MarkInvoicePaid(ctx context.Context, invoiceID uint) (*model.Invoice, error) {
	var (
		invoice   *model.Invoice
		activated bool
		studentID uint
	)
	now := s.now()

	err := s.store.Transaction(ctx, func(tx CheckoutStore) error {
		var err error
		invoice, err = tx.GetInvoice(ctx, invoiceID)
		if err != nil {
			if isNotFound(err) {
				return newCheckoutError(ErrNotFound, "Invoice not found")
			}
			return fmt.Errorf("failed to load invoice: %w", err)
		}
		if invoice.IsPaid() {
			return newCheckoutError(ErrAlreadyPaid, "This invoice has already been paid")
		}

		changed, err := tx.MarkInvoicePaid(ctx, invoice.ID, now)
		if err != nil {
			return fmt.Errorf("failed to mark invoice paid: %w", err)
		}
		if !changed {
			return newCheckoutError(ErrAlreadyPaid, "This invoice has already been paid")
		}
		invoice.Status = model.InvoiceStatusPaid
		invoice.PaidAt = &now

		enrollment, err := tx.GetEnrollment(ctx, invoice.EnrollmentID)
		if err != nil {
			return fmt.Errorf("failed to load enrollment: %w", err)
		}
		studentID = enrollment.StudentID

		activated, err = tx.UpdateEnrollmentStatus(ctx, enrollment.ID,
			model.EnrollmentStatusPendingPayment, model.EnrollmentStatusActive, now)
		if err != nil {
			return fmt.Errorf("failed to activate enrollment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("invoice paid",
		slog.Uint64("invoice_id", uint64(invoice.ID)),
		slog.Uint64("enrollment_id", uint64(invoice.EnrollmentID)),
		slog.Bool("enrollment_activated", activated),
	)

	s.publish(ctx, events.Event{
		Type:         events.InvoicePaid,
		EnrollmentID: invoice.EnrollmentID,
		InvoiceID:    invoice.ID,
		StudentID:    studentID,
		Amount:       invoice.Amount,
	})
	if activated {
		s.publish(ctx, events.Event{
			Type:         events.EnrollmentActivated,
			EnrollmentID: invoice.EnrollmentID,
			StudentID:    studentID,
		})
	}

	return invoice, nil
}

// ReconcileInvoice asks the provider about transactionID and settles the invoice
// when the transaction is approved for exactly the invoice amount.
func (s *SettlementService) ReconcileInvoice(ctx context.Context, invoiceID uint, transactionID string) (*ReconcileResult, error) {
	invoice, err := s.loadInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.IsPaid() {
		return nil, newCheckoutError(ErrAlreadyPaid, "This invoice has already been paid")
	}

	tx, err := s.GetTransactionStatus(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	result := &ReconcileResult{Invoice: invoice, Transaction: tx}
	if tx.Status != payments.StatusApproved {
		return result, nil
	}
	if tx.Amount != invoice.Amount {
		s.log.Warn("approved transaction amount does not match invoice",
			slog.Uint64("invoice_id", uint64(invoice.ID)),
			slog.String("transaction_id", tx.ID),
			slog.Int64("invoice_amount", invoice.Amount),
			slog.Int64("transaction_amount", tx.Amount),
		)
		return nil, newCheckoutError(ErrInvalidInput, "Transaction amount does not match the invoice")
	}

	paid, err := s.MarkInvoicePaid(ctx, invoice.ID)
	if err != nil {
		return nil, err
	}

	meta := MergeInvoiceMeta(paid.Meta, map[string]any{MetaTransactionID: tx.ID})
	reference := tx.ID
	if paid.ProviderReference != nil {
		reference = *paid.ProviderReference
	}
	if err := s.store.SaveInvoicePaymentLink(ctx, paid.ID, reference, meta); err != nil {
		s.log.Error("failed to record transaction on invoice",
			slog.Uint64("invoice_id", uint64(paid.ID)),
			slog.String("transaction_id", tx.ID),
			slog.Any("error", err),
		)
	} else {
		paid.Meta = meta
	}

	result.Invoice = paid
	result.Settled = true
	return result, nil
}

// GetTransactionStatus proxies the provider lookup, hiding provider error details
func (s *SettlementService) GetTransactionStatus(ctx context.Context, transactionID string) (*payments.Transaction, error) {
	if strings.TrimSpace(transactionID) == "" {
		return nil, newCheckoutError(ErrInvalidInput, "Transaction id is required")
	}

	tx, err := s.provider.GetTransactionStatus(ctx, transactionID)
	if err != nil {
		s.log.Error("transaction lookup failed",
			slog.String("transaction_id", transactionID),
			slog.String("provider", s.provider.Name()),
			slog.Any("error", err),
		)
		var pe *payments.ProviderError
		if errors.As(err, &pe) && pe.StatusCode == 404 {
			return nil, wrapCheckoutError(ErrNotFound, "Transaction not found", err)
		}
		return nil, wrapCheckoutError(ErrProvider, "The payment provider is unavailable, please try again", err)
	}
	return tx, nil
}

// GetTransactionStatusForStudent is GetTransactionStatus restricted to transactions
// paying one of studentID's invoices
func (s *SettlementService) GetTransactionStatusForStudent(ctx context.Context, transactionID string, studentID uint) (*payments.Transaction, error) {
	tx, err := s.GetTransactionStatus(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	owner, ok := s.transactionOwner(ctx, tx)
	if !ok || owner != studentID {
		s.log.Warn("transaction access denied",
			slog.String("transaction_id", transactionID),
			slog.Uint64("student_id", uint64(studentID)),
		)
		return nil, newCheckoutError(ErrForbidden, "You do not have access to this transaction")
	}
	return tx, nil
}

// transactionOwner resolves the paying student from the link metadata, falling back to
// the invoice named by invoice_id or by an order_id built from invoiceReference
func (s *SettlementService) transactionOwner(ctx context.Context, tx *payments.Transaction) (uint, bool) {
	if id, ok := parseMetadataID(tx.Metadata["student_id"]); ok {
		return id, true
	}

	invoiceID, ok := parseMetadataID(tx.Metadata["invoice_id"])
	if !ok {
		ref, _ := tx.Metadata["order_id"].(string)
		rest, found := strings.CutPrefix(ref, invoiceReferencePrefix)
		if !found {
			return 0, false
		}
		idPart, _, _ := strings.Cut(rest, "-")
		if invoiceID, ok = parseMetadataID(idPart); !ok {
			return 0, false
		}
	}

	invoice, err := s.store.GetInvoice(ctx, invoiceID)
	if err != nil {
		return 0, false
	}
	enrollment, err := s.store.GetEnrollment(ctx, invoice.EnrollmentID)
	if err != nil {
		return 0, false
	}
	return enrollment.StudentID, true
}

const invoiceReferencePrefix = "INV-"

func invoiceReference(invoiceID uint) string {
	return invoiceReferencePrefix + strconv.FormatUint(uint64(invoiceID), 10)
}

func parseMetadataID(v any) (uint, bool) {
	switch id := v.(type) {
	case string:
		n, err := strconv.ParseUint(strings.TrimSpace(id), 10, 64)
		return uint(n), err == nil && n > 0
	case float64:
		return uint(id), id >= 1
	}
	return 0, false
}

func (s *SettlementService) loadInvoice(ctx context.Context, invoiceID uint) (*model.Invoice, error) {
	invoice, err := s.store.GetInvoice(ctx, invoiceID)
	if err != nil {
		if isNotFound(err) {
			return nil, newCheckoutError(ErrNotFound, "Invoice not found")
		}
		return nil, fmt.Errorf("failed to load invoice: %w", err)
	}
	return invoice, nil
}

func (s *SettlementService) ownedEnrollment(ctx context.Context, enrollmentID, studentID uint) (*model.Enrollment, error) {
	enrollment, err := s.store.GetEnrollment(ctx, enrollmentID)
	if err != nil {
		if isNotFound(err) {
			return nil, newCheckoutError(ErrNotFound, "Enrollment not found")
		}
		return nil, fmt.Errorf("failed to load enrollment: %w", err)
	}
	if enrollment.StudentID != studentID {
		return nil, newCheckoutError(ErrForbidden, "You do not have access to this enrollment")
	}
	return enrollment, nil
}

func (s *SettlementService) redirectURL(invoiceID uint) string {
	return fmt.Sprintf("%s/checkout/invoices/%d/result", strings.TrimRight(s.cfg.CheckoutPublicURL, "/"), invoiceID)
}

func (s *SettlementService) publish(ctx context.Context, event events.Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now().UTC()
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.Warn("failed to publish settlement event",
			slog.String("type", event.Type),
			slog.Uint64("enrollment_id", uint64(event.EnrollmentID)),
			slog.Any("error", err),
		)
	}
}
