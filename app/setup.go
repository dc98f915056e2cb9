package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/code-centre/tech-centre-api/api"
	"github.com/code-centre/tech-centre-api/config"
	"github.com/code-centre/tech-centre-api/database"
	"github.com/code-centre/tech-centre-api/router"
	"github.com/code-centre/tech-centre-api/services"
	"github.com/code-centre/tech-centre-api/services/cron"
	"github.com/code-centre/tech-centre-api/services/events"
	"github.com/code-centre/tech-centre-api/services/payments"
	"github.com/code-centre/tech-centre-api/utils/auth"
	"github.com/code-centre/tech-centre-api/utils/cache"
	"github.com/code-centre/tech-centre-api/utils/idempotency"
	"github.com/code-centre/tech-centre-api/utils/metrics"
)

func SetupAndRunServer() error {

	// Load ENV
	if err := config.LoadENV(); err != nil {
		log.Printf("Warning: .env not loaded: %v", err)
	}

	getEnv, err := config.Get()
	if err != nil {
		return err
	}
	if getEnv.JWT_SECRET == "" {
		return fmt.Errorf("JWT_SECRET environment variable is not set")
	}

	logger := newLogger(getEnv)
	slog.SetDefault(logger)

	// Initialize GORM database connection
	store, err := database.StartGORM(getEnv)
	if err != nil {
		return err
	}

	if err := store.Init(); err != nil {
		return err
	}
	defer store.Close()

	repository := database.NewCheckoutRepository(store.GetDB())

	// Redis backs token revocation and idempotency; Bolt takes over idempotency without it
	redisCache, err := cache.NewRedisCache(getEnv.REDIS_URL)
	var (
		idempotencyStore idempotency.Store
		revocations      *auth.RevocationList
	)
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v. Using Bolt idempotency store at %s", err, getEnv.IDEMPOTENCY_BOLT_PATH)
		redisCache = nil
		boltStore, err := idempotency.NewBoltStore(getEnv.IDEMPOTENCY_BOLT_PATH)
		if err != nil {
			return fmt.Errorf("failed to open idempotency store: %w", err)
		}
		defer boltStore.Close()
		idempotencyStore = boltStore
	} else {
		defer redisCache.Close()
		idempotencyStore = idempotency.NewRedisStore(redisCache)
		revocations = auth.NewRevocationList(redisCache)
	}

	provider, err := payments.GetProvider(payments.Config{
		Provider: getEnv.PAYMENT_PROVIDER,
		Currency: getEnv.PAYMENT_CURRENCY,
		Wompi: payments.WompiConfig{
			BaseURL:     getEnv.WOMPI_BASE_URL,
			CheckoutURL: getEnv.WOMPI_CHECKOUT_URL,
			PrivateKey:  getEnv.WOMPI_PRIVATE_KEY,
		},
		Midtrans: payments.MidtransConfig{
			ServerKey:  getEnv.MIDTRANS_SERVER_KEY,
			Production: getEnv.MIDTRANS_PRODUCTION,
		},
		Stripe: payments.StripeConfig{
			APIKey: getEnv.STRIPE_API_KEY,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to configure payment provider: %w", err)
	}

	publisher := newPublisher(getEnv, logger)
	defer publisher.Close()

	metrics.Register()

	calculator := services.NewPriceCalculator(getEnv.FULL_PAYMENT_DISCOUNT_PERCENT)
	couponService := services.NewCouponService(repository, logger.With("component", "coupons"))
	settlementService := services.NewSettlementService(
		repository,
		provider,
		publisher,
		services.NewSlackNotifier(getEnv.SLACK_WEBHOOK_URL, logger.With("component", "alerts")),
		services.SettlementConfig{
			PaymentLinkMinAmount: getEnv.PAYMENT_LINK_MIN_AMOUNT,
			CheckoutPublicURL:    getEnv.CHECKOUT_PUBLIC_URL,
			Currency:             getEnv.PAYMENT_CURRENCY,
		},
		logger.With("component", "settlement"),
	)
	checkoutService := services.NewCheckoutService(repository, calculator, couponService, settlementService, logger.With("component", "checkout"))

	// Initialize Cron Manager (only if enabled via environment variable)
	if getEnv.CRON_ENABLED {
		cronManager := cron.NewCronManager(store.GetDB(), settlementService, couponService)
		if err := cronManager.Start(); err != nil {
			log.Printf("Warning: Failed to start cron jobs: %v", err)
		} else {
			defer cronManager.Stop()
		}
	}

	// Init API
	server := api.NewAPIServer(fmt.Sprintf(":%d", getEnv.PORT))

	router.SetupRoutes(server.GetEngine(), router.Dependencies{
		Store:      store,
		Repository: repository,
		Checkout:   checkoutService,
		Coupons:    couponService,
		Settlement: settlementService,
		JWT: auth.NewJWTManager(auth.JWTConfig{
			Secret: getEnv.JWT_SECRET,
			Issuer: getEnv.JWT_ISSUER,
			Expiry: 24 * time.Hour,
		}),
		Cache:          redisCache,
		Revocations:    revocations,
		Idempotency:    idempotencyStore,
		InvoiceIssuer:  getEnv.INVOICE_ISSUER,
		AllowedOrigins: getEnv.ALLOWED_ORIGINS,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.Run(ctx)
}

func newLogger(env *config.EnvironmentVariable) *slog.Logger {
	if env.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// newPublisher connects to Kafka when brokers are configured, otherwise events are dropped
func newPublisher(env *config.EnvironmentVariable, logger *slog.Logger) events.Publisher {
	brokers := env.KafkaBrokers()
	if len(brokers) == 0 {
		log.Println("KAFKA_BROKERS not set, settlement events will not be published")
		return events.NoopPublisher{}
	}

	publisher, err := events.NewKafkaPublisher(events.KafkaConfig{
		Brokers: brokers,
		Topic:   env.KAFKA_TOPIC,
		Version: env.KAFKA_VERSION,
	}, logger.With("component", "events"))
	if err != nil {
		log.Printf("Warning: Kafka publisher unavailable: %v", err)
		return events.NoopPublisher{}
	}
	return publisher
}
