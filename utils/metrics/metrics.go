package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	QuotesCalculated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "checkout_quotes_total",
			Help: "Number of checkout price quotes calculated",
		},
	)

	CouponValidations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_coupon_validations_total",
			Help: "Coupon validations by result code",
		},
		[]string{"result"},
	)

	EnrollmentsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "checkout_enrollments_created_total",
			Help: "Enrollments created together with their invoice schedule",
		},
	)

	PaymentLinksCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_payment_links_total",
			Help: "Payment links created per provider",
		},
		[]string{"provider"},
	)

	ProviderErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_provider_errors_total",
			Help: "Failed payment provider calls",
		},
		[]string{"provider", "operation"},
	)

	ProviderRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "checkout_provider_request_seconds",
			Help:    "Time taken by payment provider calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "operation"},
	)
)

var registerOnce sync.Once

// Register adds the checkout collectors to the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			QuotesCalculated,
			CouponValidations,
			EnrollmentsCreated,
			PaymentLinksCreated,
			ProviderErrors,
			ProviderRequestDuration,
		)
	})
}
