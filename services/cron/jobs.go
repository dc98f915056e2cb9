package cron

import (
	"context"
	"fmt"
	"log"
)

// SweepOrphanedEnrollments cancels pending enrollments that have had no invoices
// for longer than OrphanGracePeriod. Finance is alerted by the settlement service.
func (m *CronManager) SweepOrphanedEnrollments(ctx context.Context) (int, string, error) {
	if m.settlement == nil {
		return 0, "settlement service not configured", nil
	}

	cancelled, err := m.settlement.SweepOrphanedEnrollments(ctx, OrphanGracePeriod)
	if err != nil {
		return 0, "", err
	}

	for _, e := range cancelled {
		log.Printf("[CRON] Cancelled orphaned enrollment %d (student %d)", e.ID, e.StudentID)
	}
	return len(cancelled), fmt.Sprintf("cancelled %d orphaned enrollment(s)", len(cancelled)), nil
}

// DeactivateExpiredCoupons switches off coupons whose valid_until has passed
func (m *CronManager) DeactivateExpiredCoupons(ctx context.Context) (int, string, error) {
	if m.coupons == nil {
		return 0, "coupon service not configured", nil
	}

	n, err := m.coupons.DeactivateExpiredCoupons(ctx)
	if err != nil {
		return 0, "", err
	}
	return int(n), fmt.Sprintf("deactivated %d expired coupon(s)", n), nil
}
