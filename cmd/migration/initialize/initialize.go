package initialize

import (
	"spruce/config"
	"spruce/internal/logger"
	. "spruce/internal/models"

	"gorm.io/gorm"
)

func InitializeTables(db *gorm.DB, config config.Config, log logger.Logger) error {
	log = log.Function("InitializeTables")
	log.Info("Initializing essential production data")

	if err := initializeIncentiveConfig(db, log); err != nil {
		return log.Err("failed to initialize incentive config", err)
	}

	log.Info("Table initialization complete")
	return nil
}

// initializeIncentiveConfig seeds the first incentive version if none exists.
// Later versions are appended through admin tooling; rows are never edited in
// place.
func initializeIncentiveConfig(db *gorm.DB, log logger.Logger) error {
	var count int64
	if err := db.Model(&IncentiveConfig{}).Count(&count).Error; err != nil {
		return log.Err("failed to count incentive configs", err)
	}
	if count > 0 {
		log.Debug("Incentive config already present", "count", count)
		return nil
	}

	initial := IncentiveConfig{
		Version:               1,
		IsActive:              true,
		CleanerEnabled:        true,
		CleanerEligibleDays:   90,
		CleanerMaxJobs:        10,
		CleanerFeeReduction:   0.33,
		HomeownerEnabled:      true,
		HomeownerMaxCleanings: 3,
		HomeownerDiscount:     0.25,
	}

	if err := db.Create(&initial).Error; err != nil {
		return log.Err("failed to create initial incentive config", err)
	}

	log.Info("Seeded initial incentive config", "version", initial.Version)
	return nil
}
