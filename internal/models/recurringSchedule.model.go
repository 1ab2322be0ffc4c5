package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Frequency string

const (
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
	FrequencyMonthly  Frequency = "monthly"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly:
		return true
	}
	return false
}

// RecurringSchedule is a cleaner-owned recurrence rule for a client's home.
// LastGeneratedDate is the generation cursor: it only moves forward, and
// generation never materializes an appointment on or before it.
type RecurringSchedule struct {
	BaseUUIDModel
	CleanerID         uuid.UUID       `gorm:"type:uuid;not null;index"    json:"cleanerId"`
	Cleaner           User            `gorm:"foreignKey:CleanerID"        json:"cleaner"`
	ClientID          uuid.UUID       `gorm:"type:uuid;not null;index"    json:"clientId"`
	Client            User            `gorm:"foreignKey:ClientID"         json:"client"`
	HomeID            uuid.UUID       `gorm:"type:uuid;not null;index"    json:"homeId"`
	Home              Home            `gorm:"foreignKey:HomeID"           json:"home"`
	Frequency         Frequency       `gorm:"not null"                    json:"frequency"`
	DayOfWeek         int             `gorm:"not null"                    json:"dayOfWeek"`
	TimeWindow        string          `                                   json:"timeWindow"`
	Price             decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	StartDate         time.Time       `gorm:"not null"                    json:"startDate"`
	EndDate           *time.Time      `                                   json:"endDate"`
	IsActive          bool            `gorm:"not null;default:true;index" json:"isActive"`
	IsPaused          bool            `gorm:"not null;default:false"      json:"isPaused"`
	PausedUntil       *time.Time      `                                   json:"pausedUntil"`
	PauseReason       string          `                                   json:"pauseReason"`
	PauseMeta         datatypes.JSON  `gorm:"type:jsonb"                  json:"pauseMeta,omitempty"`
	LastGeneratedDate *time.Time      `                                   json:"lastGeneratedDate"`
	NextScheduledDate *time.Time      `                                   json:"nextScheduledDate"`
}

// PausedOn reports whether the pause window covers the given date.
func (s *RecurringSchedule) PausedOn(date time.Time) bool {
	if !s.IsPaused {
		return false
	}
	if s.PausedUntil == nil {
		return true
	}
	return !date.After(*s.PausedUntil)
}
