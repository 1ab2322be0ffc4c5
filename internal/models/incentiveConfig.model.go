package models

// IncentiveConfig rows are versioned and append-only; exactly one row is
// active at a time. Percent fields are fractions in [0,1] where 1.0 means a
// fully waived platform fee or a free cleaning.
type IncentiveConfig struct {
	BaseUUIDModel
	Version               int     `gorm:"not null"               json:"version"`
	IsActive              bool    `gorm:"not null;default:false;index" json:"isActive"`
	CleanerEnabled        bool    `gorm:"not null;default:false" json:"cleanerEnabled"`
	CleanerEligibleDays   int     `gorm:"not null;default:0"     json:"cleanerEligibleDays"`
	CleanerMaxJobs        int     `gorm:"not null;default:0"     json:"cleanerMaxJobs"`
	CleanerFeeReduction   float64 `gorm:"not null;default:0"     json:"cleanerFeeReduction"`
	HomeownerEnabled      bool    `gorm:"not null;default:false" json:"homeownerEnabled"`
	HomeownerMaxCleanings int     `gorm:"not null;default:0"     json:"homeownerMaxCleanings"`
	HomeownerDiscount     float64 `gorm:"not null;default:0"     json:"homeownerDiscount"`
}
