package database

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/code-centre/tech-centre-api/model"
	"github.com/code-centre/tech-centre-api/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// openTestDB connects to the Postgres instance described by the DB_* variables.
// Every test runs inside a schema that is dropped afterwards.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	if os.Getenv("RUN_INTEGRATION_TESTS") != "true" {
		t.Skip("Skipping integration test. Set RUN_INTEGRATION_TESTS=true to run")
	}

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		getEnvOrDefault("DB_HOST", "localhost"),
		getEnvOrDefault("DB_USER_NAME", "postgres"),
		getEnvOrDefault("DB_PASSWORD", "postgres"),
		getEnvOrDefault("DB_NAME", "tech_centre_test"),
		getEnvOrDefault("DB_PORT", "5432"),
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent), TranslateError: true})
	require.NoError(t, err)

	schema := fmt.Sprintf("test_%d", time.Now().UnixNano())
	require.NoError(t, db.Exec("CREATE SCHEMA "+schema).Error)
	require.NoError(t, db.Exec("SET search_path TO "+schema).Error)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		db.Exec("DROP SCHEMA " + schema + " CASCADE")
		sqlDB.Close()
	})

	require.NoError(t, NewGORMStore(db).Init())
	return db
}

func seedCatalog(t *testing.T, db *gorm.DB) model.Cohort {
	t.Helper()
	offering := model.Offering{Name: "Backend Bootcamp", Slug: "backend", BasePrice: 1000000, MaxInstallments: 6, IsActive: true}
	require.NoError(t, db.Create(&offering).Error)
	cohort := model.Cohort{OfferingID: offering.ID, Name: "Backend 2025-1", StartDate: time.Now()}
	require.NoError(t, db.Create(&cohort).Error)
	return cohort
}

func TestCheckoutRepositorySettlementRollsBack(t *testing.T) {
	db := openTestDB(t)
	cohort := seedCatalog(t, db)
	repo := NewCheckoutRepository(db)
	ctx := context.Background()

	err := repo.Transaction(ctx, func(tx services.CheckoutStore) error {
		e := &model.Enrollment{StudentID: 1, CohortID: cohort.ID, AgreedTotal: 900000, InstallmentCount: 1, Status: model.EnrollmentStatusPendingPayment}
		if err := tx.CreateEnrollment(ctx, e); err != nil {
			return err
		}
		// negative amounts violate the check constraint
		return tx.CreateInvoices(ctx, []model.Invoice{{EnrollmentID: e.ID, Label: "bad", Amount: -1, DueDate: time.Now(), Status: model.InvoiceStatusPending}})
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&model.Enrollment{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCheckoutRepositoryCouponCapUnderConcurrency(t *testing.T) {
	db := openTestDB(t)
	cohort := seedCatalog(t, db)
	repo := NewCheckoutRepository(db)
	ctx := context.Background()

	maxUses := 3
	coupon := &model.DiscountCoupon{Code: "RACE", OfferingID: cohort.OfferingID, MaxUses: &maxUses, IsActive: true}
	require.NoError(t, repo.CreateCoupon(ctx, coupon))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.IncrementCouponUses(ctx, coupon.ID)
			if err == nil && ok {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, maxUses, successes)
	var stored model.DiscountCoupon
	require.NoError(t, db.First(&stored, coupon.ID).Error)
	assert.Equal(t, maxUses, stored.CurrentUses)
}

func TestCheckoutRepositoryInvoiceLifecycle(t *testing.T) {
	db := openTestDB(t)
	cohort := seedCatalog(t, db)
	repo := NewCheckoutRepository(db)
	ctx := context.Background()

	e := &model.Enrollment{StudentID: 1, CohortID: cohort.ID, AgreedTotal: 600000, InstallmentCount: 2, Status: model.EnrollmentStatusPendingPayment}
	require.NoError(t, repo.CreateEnrollment(ctx, e))

	orphans, err := repo.FindEnrollmentsWithoutInvoices(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, orphans, 1)

	schedule := services.CalculateInstallments(600000, 2, time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC))
	invoices := services.BuildInvoices(e.ID, schedule, services.InvoiceContext{Description: "Backend"})
	require.NoError(t, repo.CreateInvoices(ctx, invoices))

	count, err := repo.CountEnrollmentsWithoutInvoices(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Zero(t, count)

	listed, err := repo.ListInvoicesByEnrollment(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, listed, 2)

	meta := services.MergeInvoiceMeta(listed[0].Meta, map[string]any{"payment_link_id": "lnk_1"})
	require.NoError(t, repo.SaveInvoicePaymentLink(ctx, listed[0].ID, "lnk_1", meta))

	stored, err := repo.GetInvoice(ctx, listed[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "lnk_1", stored.Meta["payment_link_id"])
	assert.EqualValues(t, 2, stored.Meta["total_payments"])

	changed, err := repo.MarkInvoicePaid(ctx, stored.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = repo.MarkInvoicePaid(ctx, stored.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, changed)

	moved, err := repo.UpdateEnrollmentStatus(ctx, e.ID, model.EnrollmentStatusPendingPayment, model.EnrollmentStatusActive, time.Now())
	require.NoError(t, err)
	assert.True(t, moved)

	assert.ErrorIs(t, repo.SaveInvoicePaymentLink(ctx, 999999, "x", datatypes.JSONMap{}), gorm.ErrRecordNotFound)
}
