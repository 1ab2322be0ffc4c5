package database

import (
	"spruce/internal/logger"
)

// CreateIndexes creates additional indexes that GORM doesn't create automatically
func (db *DB) CreateIndexes() error {
	log := logger.New("database").Function("CreateIndexes")
	log.Info("Creating additional database indexes")

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_appointments_schedule_unpaid ON appointments(recurring_schedule_id, paid, was_cancelled)",
		"CREATE INDEX IF NOT EXISTS idx_appointments_completion_submitted ON appointments(completion_status, completion_submitted_at)",
		"CREATE INDEX IF NOT EXISTS idx_payouts_cleaner_status ON payouts(cleaner_id, status)",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_incentive_configs_single_active ON incentive_configs(is_active) WHERE is_active = true AND deleted_at IS NULL",
	}

	for _, index := range indexes {
		if err := db.SQL.Exec(index).Error; err != nil {
			log.Error("Failed to create index", "index", index, "error", err)
			return err
		}
	}

	log.Info("Additional database indexes created successfully")
	return nil
}
