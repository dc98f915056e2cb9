package database

import (
	"fmt"
	"log"
	"time"

	"github.com/code-centre/tech-centre-api/config"
	"github.com/code-centre/tech-centre-api/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ledgerModels are migrated in dependency order: catalog, then settlement, then audit
var ledgerModels = []any{
	&model.Offering{},
	&model.Cohort{},
	&model.DiscountCoupon{},
	&model.Enrollment{},
	&model.Invoice{},
	&model.CronJobLog{},
}

// GORMStore owns the Postgres connection of the checkout ledger
type GORMStore struct {
	db *gorm.DB
}

// DSN builds the Postgres connection string from the environment
func DSN(env *config.EnvironmentVariable) string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		env.DB_HOST, env.DB_USER_NAME, env.DB_PASSWORD, env.DB_NAME, env.DB_PORT, env.DB_SSL_MODE,
	)
}

// StartGORM opens the ledger database. TranslateError is on so unique violations
// surface as gorm.ErrDuplicatedKey.
func StartGORM(env *config.EnvironmentVariable) (*GORMStore, error) {
	level := logger.Warn
	if env.IsProduction() {
		level = logger.Error
	}

	db, err := gorm.Open(postgres.Open(DSN(env)), &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		PrepareStmt:    true,
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres at %s:%s: %w", env.DB_HOST, env.DB_PORT, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	log.Printf("[DB] connected to %s/%s", env.DB_HOST, env.DB_NAME)
	return &GORMStore{db: db}, nil
}

// NewGORMStore wraps an already opened connection
func NewGORMStore(db *gorm.DB) *GORMStore {
	return &GORMStore{db: db}
}

// Init migrates the ledger tables
func (s *GORMStore) Init() error {
	if err := s.db.AutoMigrate(ledgerModels...); err != nil {
		return fmt.Errorf("migrate ledger tables: %w", err)
	}
	log.Printf("[DB] migrated %d tables", len(ledgerModels))
	return nil
}

func (s *GORMStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetDB exposes the connection to the repository and the cron manager
func (s *GORMStore) GetDB() *gorm.DB {
	return s.db
}

// HealthCheck pings the database for /ping
func (s *GORMStore) HealthCheck() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
