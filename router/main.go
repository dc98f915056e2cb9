package router

import (
	"time"

	"github.com/code-centre/tech-centre-api/database"
	"github.com/code-centre/tech-centre-api/handlers"
	auth_handlers "github.com/code-centre/tech-centre-api/handlers/auth"
	checkout_handlers "github.com/code-centre/tech-centre-api/handlers/checkout"
	coupon_handlers "github.com/code-centre/tech-centre-api/handlers/coupon"
	enrollment_handlers "github.com/code-centre/tech-centre-api/handlers/enrollment"
	invoice_handlers "github.com/code-centre/tech-centre-api/handlers/invoice"
	payment_handlers "github.com/code-centre/tech-centre-api/handlers/payment"
	"github.com/code-centre/tech-centre-api/services"
	"github.com/code-centre/tech-centre-api/utils/auth"
	"github.com/code-centre/tech-centre-api/utils/cache"
	"github.com/code-centre/tech-centre-api/utils/idempotency"
	"github.com/code-centre/tech-centre-api/utils/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies are the services the routes are wired to.
// Cache and Revocations are nil when Redis is unavailable.
type Dependencies struct {
	Store          *database.GORMStore
	Repository     *database.CheckoutRepository
	Checkout       *services.CheckoutService
	Coupons        *services.CouponService
	Settlement     *services.SettlementService
	JWT            *auth.JWTManager
	Cache          *cache.RedisCache
	Revocations    *auth.RevocationList
	Idempotency    idempotency.Store
	InvoiceIssuer  string
	AllowedOrigins string
}

func SetupRoutes(app *fiber.App, deps Dependencies) {
	var revocations middleware.TokenRevocations
	var revoker auth_handlers.TokenRevoker
	if deps.Revocations != nil {
		revocations = deps.Revocations
		revoker = deps.Revocations
	}
	var pinger handlers.Pinger
	if deps.Cache != nil {
		pinger = deps.Cache
	}

	authMiddleware := middleware.NewAuthMiddleware(deps.JWT, revocations)

	healthHandler := handlers.NewHealthHandler(deps.Store, deps.Repository, pinger)
	authHandler := auth_handlers.NewAuthHandler(revoker)
	checkoutHandler := checkout_handlers.NewCheckoutHandler(deps.Checkout)
	couponHandler := coupon_handlers.NewCouponHandler(deps.Coupons)
	enrollmentHandler := enrollment_handlers.NewEnrollmentHandler(deps.Settlement)
	invoiceHandler := invoice_handlers.NewInvoiceHandler(deps.Settlement, deps.InvoiceIssuer)
	paymentHandler := payment_handlers.NewPaymentHandler(deps.Settlement)

	middleware.SetupSecurity(app, middleware.SecurityConfig{
		AllowedOrigins:    deps.AllowedOrigins,
		RateLimitRequests: 100,             // 100 requests
		RateLimitWindow:   1 * time.Minute, // per minute
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// API v1 group
	api := app.Group("/api/v1")
	api.Get("/ping", healthHandler.Ping)

	api.Post("/auth/logout", authMiddleware.Required(), authHandler.Logout)

	// Checkout routes
	checkout := api.Group("/checkout")
	checkout.Post("/quote", checkoutHandler.Quote)                     // Public: price a cohort
	checkout.Post("/installments", checkoutHandler.PreviewInstallments) // Public: preview a schedule
	checkout.Post("/enrollments",
		authMiddleware.Required(),
		middleware.Idempotency(middleware.IdempotencyConfig{Store: deps.Idempotency}),
		checkoutHandler.CreateEnrollment,
	)

	api.Post("/coupons/validate", couponHandler.ValidateCoupon)

	// Student routes
	api.Get("/enrollments/:id/invoices", authMiddleware.Required(), enrollmentHandler.ListInvoices)
	invoices := api.Group("/invoices", authMiddleware.Required())
	invoices.Post("/:id/payment-link", invoiceHandler.RequestPaymentLink)
	invoices.Get("/:id/pdf", invoiceHandler.DownloadPDF)
	api.Get("/payments/transactions/:id", authMiddleware.Required(), paymentHandler.GetTransactionStatus)

	// Back office routes
	admin := api.Group("/admin", authMiddleware.RequireAdmin())
	admin.Post("/enrollments", enrollmentHandler.CreateEnrollment)
	admin.Get("/enrollments/orphaned", enrollmentHandler.ListOrphaned)
	admin.Post("/enrollments/:id/cancel", enrollmentHandler.CancelEnrollment)
	admin.Post("/invoices/:id/mark-paid", invoiceHandler.MarkPaid)
	admin.Post("/invoices/:id/reconcile", invoiceHandler.Reconcile)
	admin.Post("/coupons", couponHandler.CreateCoupon)
}
