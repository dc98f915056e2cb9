// Package servicestest provides in-memory collaborators for tests of code built
// on the checkout services.
package servicestest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/code-centre/tech-centre-api/model"
	"github.com/code-centre/tech-centre-api/services"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MemoryStore is a services.CheckoutStore kept in maps.
// Transaction restores the previous state when fn fails.
type MemoryStore struct {
	// FailCreateInvoices and FailSavePaymentLink, when set, are returned by those writes
	FailCreateInvoices  error
	FailSavePaymentLink error

	mu sync.Mutex

	nextID      uint
	cohorts     map[uint]model.Cohort
	coupons     map[uint]model.DiscountCoupon
	enrollments map[uint]model.Enrollment
	invoices    map[uint]model.Invoice

	savePaymentLinkCalls int
}

var _ services.CheckoutStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID:      1000,
		cohorts:     map[uint]model.Cohort{},
		coupons:     map[uint]model.DiscountCoupon{},
		enrollments: map[uint]model.Enrollment{},
		invoices:    map[uint]model.Invoice{},
	}
}

func (m *MemoryStore) id() uint {
	m.nextID++
	return m.nextID
}

// AddCohort stores offering (assigning an id if needed) and one cohort of it
func (m *MemoryStore) AddCohort(offering model.Offering) model.Cohort {
	m.mu.Lock()
	defer m.mu.Unlock()
	if offering.ID == 0 {
		offering.ID = m.id()
	}
	c := model.Cohort{ID: m.id(), OfferingID: offering.ID, Name: offering.Name + " cohort", Offering: offering}
	m.cohorts[c.ID] = c
	return c
}

// AddCoupon stores a coupon as given
func (m *MemoryStore) AddCoupon(c model.DiscountCoupon) model.DiscountCoupon {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.id()
	m.coupons[c.ID] = c
	return c
}

// AddEnrollment stores an enrollment with the given creation time
func (m *MemoryStore) AddEnrollment(e model.Enrollment) model.Enrollment {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = m.id()
	if e.Status == "" {
		e.Status = model.EnrollmentStatusPendingPayment
	}
	m.enrollments[e.ID] = e
	return e
}

// AddInvoice stores an invoice, pending unless a status is given
func (m *MemoryStore) AddInvoice(inv model.Invoice) model.Invoice {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv.ID = m.id()
	if inv.Status == "" {
		inv.Status = model.InvoiceStatusPending
	}
	m.invoices[inv.ID] = inv
	return inv
}

// Coupon returns the stored copy of a coupon
func (m *MemoryStore) Coupon(id uint) model.DiscountCoupon {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.coupons[id]
}

// Invoice returns the stored copy of an invoice
func (m *MemoryStore) Invoice(id uint) (model.Invoice, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	return inv, ok
}

// EnrollmentCount is the number of stored enrollments
func (m *MemoryStore) EnrollmentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.enrollments)
}

func (m *MemoryStore) InvoiceCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.invoices)
}

// SavePaymentLinkCalls counts SaveInvoicePaymentLink calls, failed ones included
func (m *MemoryStore) SavePaymentLinkCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.savePaymentLinkCalls
}

func (m *MemoryStore) GetCohort(_ context.Context, id uint) (*model.Cohort, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cohorts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}

func (m *MemoryStore) FindActiveCoupon(_ context.Context, code string, offeringID uint) (*model.DiscountCoupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.coupons {
		if c.Code == code && c.OfferingID == offeringID && c.IsActive {
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MemoryStore) CreateCoupon(_ context.Context, coupon *model.DiscountCoupon) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.coupons {
		if c.Code == coupon.Code && c.OfferingID == coupon.OfferingID {
			return gorm.ErrDuplicatedKey
		}
	}
	coupon.ID = m.id()
	m.coupons[coupon.ID] = *coupon
	return nil
}

func (m *MemoryStore) IncrementCouponUses(_ context.Context, couponID uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.coupons[couponID]
	if !ok || !c.IsActive || (c.MaxUses != nil && c.CurrentUses >= *c.MaxUses) {
		return false, nil
	}
	c.CurrentUses++
	m.coupons[couponID] = c
	return true, nil
}

func (m *MemoryStore) DeactivateExpiredCoupons(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, c := range m.coupons {
		if c.IsActive && c.ValidUntil != nil && c.ValidUntil.Before(now) {
			c.IsActive = false
			m.coupons[id] = c
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) CreateEnrollment(_ context.Context, enrollment *model.Enrollment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	enrollment.ID = m.id()
	enrollment.CreatedAt = time.Now()
	m.enrollments[enrollment.ID] = *enrollment
	return nil
}

func (m *MemoryStore) GetEnrollment(_ context.Context, id uint) (*model.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.enrollments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &e, nil
}

func (m *MemoryStore) UpdateEnrollmentStatus(_ context.Context, id uint, from, to model.EnrollmentStatus, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.enrollments[id]
	if !ok || e.Status != from {
		return false, nil
	}
	e.Status = to
	switch to {
	case model.EnrollmentStatusActive:
		e.ActivatedAt = &at
	case model.EnrollmentStatusCancelled:
		e.CancelledAt = &at
	}
	m.enrollments[id] = e
	return true, nil
}

func (m *MemoryStore) FindEnrollmentsWithoutInvoices(_ context.Context, createdBefore time.Time) ([]model.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	invoiced := map[uint]bool{}
	for _, inv := range m.invoices {
		invoiced[inv.EnrollmentID] = true
	}
	var out []model.Enrollment
	for _, e := range m.enrollments {
		if e.Status == model.EnrollmentStatusPendingPayment && !invoiced[e.ID] && e.CreatedAt.Before(createdBefore) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MemoryStore) CreateInvoices(_ context.Context, invoices []model.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailCreateInvoices != nil {
		return m.FailCreateInvoices
	}
	for i := range invoices {
		invoices[i].ID = m.id()
		m.invoices[invoices[i].ID] = invoices[i]
	}
	return nil
}

func (m *MemoryStore) GetInvoice(_ context.Context, id uint) (*model.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &inv, nil
}

func (m *MemoryStore) ListInvoicesByEnrollment(_ context.Context, enrollmentID uint) ([]model.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Invoice
	for _, inv := range m.invoices {
		if inv.EnrollmentID == enrollmentID {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) SaveInvoicePaymentLink(_ context.Context, invoiceID uint, reference string, meta datatypes.JSONMap) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.savePaymentLinkCalls++
	if m.FailSavePaymentLink != nil {
		return m.FailSavePaymentLink
	}
	inv, ok := m.invoices[invoiceID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	inv.ProviderReference = &reference
	inv.Meta = meta
	m.invoices[invoiceID] = inv
	return nil
}

func (m *MemoryStore) MarkInvoicePaid(_ context.Context, invoiceID uint, paidAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[invoiceID]
	if !ok || inv.Status != model.InvoiceStatusPending {
		return false, nil
	}
	inv.Status = model.InvoiceStatusPaid
	inv.PaidAt = &paidAt
	m.invoices[invoiceID] = inv
	return true, nil
}

func (m *MemoryStore) Transaction(_ context.Context, fn func(tx services.CheckoutStore) error) error {
	m.mu.Lock()
	coupons, enrollments, invoices := clone(m.coupons), clone(m.enrollments), clone(m.invoices)
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.coupons, m.enrollments, m.invoices = coupons, enrollments, invoices
		m.mu.Unlock()
		return err
	}
	return nil
}

func clone[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
