package database

import (
	"fmt"
	"log"
	"time"

	"github.com/code-centre/tech-centre-api/model"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Seeder handles database seeding operations
type Seeder struct {
	db  *gorm.DB
	now func() time.Time
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db, now: time.Now}
}

// SeedAll runs all seed functions
func (s *Seeder) SeedAll() error {
	log.Println("🌱 Starting database seeding...")

	// Run seeds in order (respecting foreign key constraints)
	if err := s.SeedOfferings(); err != nil {
		return fmt.Errorf("failed to seed offerings: %w", err)
	}

	if err := s.SeedCohorts(); err != nil {
		return fmt.Errorf("failed to seed cohorts: %w", err)
	}

	if err := s.SeedCoupons(); err != nil {
		return fmt.Errorf("failed to seed coupons: %w", err)
	}

	log.Println("✅ Database seeding completed successfully!")
	return nil
}

// SeedOfferings creates the catalog of programs and courses
func (s *Seeder) SeedOfferings() error {
	var count int64
	if err := s.db.Model(&model.Offering{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		log.Println("⏭️  Offerings already exist, skipping...")
		return nil
	}

	offerings := []model.Offering{
		{
			Name:            "Full Stack Web Development Bootcamp",
			Slug:            "full-stack-bootcamp",
			ProductType:     "program",
			BasePrice:       4800000,
			MaxInstallments: 6,
			PaymentMethods:  pq.StringArray{model.PaymentMethodFull, model.PaymentMethodInstallments},
			IsActive:        true,
		},
		{
			Name:            "Data Analysis with Python",
			Slug:            "data-analysis-python",
			ProductType:     "course",
			BasePrice:       1200000,
			MaxInstallments: 4,
			PaymentMethods:  pq.StringArray{model.PaymentMethodFull, model.PaymentMethodInstallments},
			IsActive:        true,
		},
		{
			Name:            "Git & GitHub Workshop",
			Slug:            "git-workshop",
			ProductType:     "workshop",
			BasePrice:       180000,
			MaxInstallments: 1,
			PaymentMethods:  pq.StringArray{model.PaymentMethodFull},
			IsActive:        true,
		},
	}

	if err := s.db.Create(&offerings).Error; err != nil {
		return err
	}

	log.Printf("✅ Created %d offerings\n", len(offerings))
	return nil
}

// SeedCohorts schedules two upcoming cohorts per offering
func (s *Seeder) SeedCohorts() error {
	var count int64
	if err := s.db.Model(&model.Cohort{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		log.Println("⏭️  Cohorts already exist, skipping...")
		return nil
	}

	var offerings []model.Offering
	if err := s.db.Find(&offerings).Error; err != nil {
		return err
	}

	if len(offerings) == 0 {
		return fmt.Errorf("no offerings found, seed offerings first")
	}

	now := s.now()
	firstOfNextMonth := time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, time.UTC)

	var cohorts []model.Cohort
	for _, o := range offerings {
		for i := 0; i < 2; i++ {
			start := firstOfNextMonth.AddDate(0, 3*i, 0)
			cohorts = append(cohorts, model.Cohort{
				OfferingID: o.ID,
				Name:       fmt.Sprintf("%s - %s", o.Name, start.Format("Jan 2006")),
				StartDate:  start,
			})
		}
	}

	if err := s.db.Create(&cohorts).Error; err != nil {
		return err
	}

	log.Printf("✅ Created %d cohorts\n", len(cohorts))
	return nil
}

// SeedCoupons creates launch promotions for the first offering
func (s *Seeder) SeedCoupons() error {
	var count int64
	if err := s.db.Model(&model.DiscountCoupon{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		log.Println("⏭️  Coupons already exist, skipping...")
		return nil
	}

	var offerings []model.Offering
	if err := s.db.Order("id ASC").Find(&offerings).Error; err != nil {
		return err
	}

	if len(offerings) == 0 {
		return fmt.Errorf("no offerings found, seed offerings first")
	}

	percent := 20.0
	amount := int64(200000)
	maxUses := 50
	until := s.now().AddDate(0, 2, 0)

	coupons := []model.DiscountCoupon{
		{
			Code:            "LAUNCH20",
			OfferingID:      offerings[0].ID,
			Description:     "20% off the launch cohort",
			DiscountPercent: &percent,
			ValidUntil:      &until,
			MaxUses:         &maxUses,
			IsActive:        true,
		},
		{
			Code:           "REFERRAL200K",
			OfferingID:     offerings[0].ID,
			Description:    "Referral discount",
			DiscountAmount: &amount,
			IsActive:       true,
		},
	}

	if err := s.db.Create(&coupons).Error; err != nil {
		return err
	}

	log.Printf("✅ Created %d coupons\n", len(coupons))
	return nil
}
