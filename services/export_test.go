package services

import "time"

// SetClock pins the time seen by the service
func (s *CouponService) SetClock(now func() time.Time) { s.now = now }

// SetClock pins the time seen by the service
func (s *SettlementService) SetClock(now func() time.Time) { s.now = now }
