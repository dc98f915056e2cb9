package cron

import (
	"context"
	"log"
	"time"

	"github.com/code-centre/tech-centre-api/model"
	"github.com/code-centre/tech-centre-api/services"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// OrphanSweeper cancels enrollments that never received their invoices
type OrphanSweeper interface {
	SweepOrphanedEnrollments(ctx context.Context, olderThan time.Duration) ([]model.Enrollment, error)
}

// CouponExpirer deactivates coupons past their validity window
type CouponExpirer interface {
	DeactivateExpiredCoupons(ctx context.Context) (int64, error)
}

// Job schedules (seconds precision)
const (
	SweepOrphanedEnrollmentsSchedule = "0 */15 * * * *"
	DeactivateExpiredCouponsSchedule = "0 0 1 * * *"

	// OrphanGracePeriod is how long a pending enrollment may exist without invoices
	OrphanGracePeriod = 10 * time.Minute
	jobTimeout        = 2 * time.Minute
)

// CronManager manages all scheduled cron jobs
type CronManager struct {
	cron       *cron.Cron
	db         *gorm.DB
	settlement OrphanSweeper
	coupons    CouponExpirer
}

var (
	_ OrphanSweeper = (*services.SettlementService)(nil)
	_ CouponExpirer = (*services.CouponService)(nil)
)

// NewCronManager creates a new cron manager. db is used for job logs and may be nil.
func NewCronManager(db *gorm.DB, settlement OrphanSweeper, coupons CouponExpirer) *CronManager {
	// Create cron with seconds precision
	c := cron.New(cron.WithSeconds())

	return &CronManager{
		cron:       c,
		db:         db,
		settlement: settlement,
		coupons:    coupons,
	}
}

// Start starts all cron jobs
func (m *CronManager) Start() error {
	log.Println("Starting cron jobs...")

	if err := m.registerJobs(); err != nil {
		return err
	}

	m.cron.Start()

	log.Println("Cron jobs started successfully")
	return nil
}

// Stop stops all cron jobs and waits for running ones to finish
func (m *CronManager) Stop() {
	log.Println("Stopping cron jobs...")
	ctx := m.cron.Stop()
	<-ctx.Done()
	log.Println("Cron jobs stopped")
}

// registerJobs registers all cron jobs with their schedules
func (m *CronManager) registerJobs() error {
	// Every 15 minutes: cancel enrollments left without invoices
	_, err := m.cron.AddFunc(SweepOrphanedEnrollmentsSchedule, func() {
		m.runJob("sweep_orphaned_enrollments", m.SweepOrphanedEnrollments)
	})
	if err != nil {
		return err
	}

	// Daily at 1 AM: switch off expired coupons
	_, err = m.cron.AddFunc(DeactivateExpiredCouponsSchedule, func() {
		m.runJob("deactivate_expired_coupons", m.DeactivateExpiredCoupons)
	})
	if err != nil {
		return err
	}

	log.Println("All cron jobs registered successfully")
	return nil
}

// jobFunc returns how many rows it touched and a short summary
type jobFunc func(ctx context.Context) (int, string, error)

func (m *CronManager) runJob(jobName string, fn jobFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	entry := m.logJobStart(jobName)
	affected, message, err := fn(ctx)
	if err != nil {
		m.logJobError(entry, err)
		return
	}
	m.logJobComplete(entry, affected, message)
}

// logJobStart logs the start of a cron job
func (m *CronManager) logJobStart(jobName string) *model.CronJobLog {
	log.Printf("[CRON] Starting job: %s at %s", jobName, time.Now().Format(time.RFC3339))

	entry := &model.CronJobLog{
		JobName:   jobName,
		Status:    model.CronJobRunning,
		StartedAt: time.Now(),
	}
	if m.db != nil {
		if err := m.db.Create(entry).Error; err != nil {
			log.Printf("[CRON] Failed to record job start for %s: %v", jobName, err)
		}
	}
	return entry
}

// logJobComplete logs successful completion of a cron job
func (m *CronManager) logJobComplete(entry *model.CronJobLog, affected int, message string) {
	log.Printf("[CRON] Completed job: %s - %s", entry.JobName, message)

	now := time.Now()
	m.finishEntry(entry, map[string]interface{}{
		"status":         model.CronJobCompleted,
		"completed_at":   now,
		"duration_ms":    now.Sub(entry.StartedAt).Milliseconds(),
		"affected_count": affected,
		"message":        message,
	})
}

// logJobError logs a cron job error
func (m *CronManager) logJobError(entry *model.CronJobLog, err error) {
	log.Printf("[CRON] Error in job: %s - %v", entry.JobName, err)

	now := time.Now()
	m.finishEntry(entry, map[string]interface{}{
		"status":       model.CronJobFailed,
		"completed_at": now,
		"duration_ms":  now.Sub(entry.StartedAt).Milliseconds(),
		"error_msg":    err.Error(),
	})
}

func (m *CronManager) finishEntry(entry *model.CronJobLog, updates map[string]interface{}) {
	if m.db == nil || entry.ID == 0 {
		return
	}
	if err := m.db.Model(&model.CronJobLog{}).Where("id = ?", entry.ID).Updates(updates).Error; err != nil {
		log.Printf("[CRON] Failed to record job result for %s: %v", entry.JobName, err)
	}
}
