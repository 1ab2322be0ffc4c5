package models

import (
	"github.com/google/uuid"
)

type PayoutStatus string

const (
	PayoutPending   PayoutStatus = "pending"
	PayoutHeld      PayoutStatus = "held"
	PayoutCompleted PayoutStatus = "completed"
)

// Payout is a cleaner's earning record for one appointment, net of platform
// fee. StandardFeeCents keeps the pre-incentive fee for audit. A payout for a
// never-captured appointment is deleted outright on cancellation.
type Payout struct {
	BaseUUIDModel
	AppointmentID    uuid.UUID    `gorm:"type:uuid;not null;index" json:"appointmentId"`
	Appointment      Appointment  `gorm:"foreignKey:AppointmentID" json:"appointment"`
	CleanerID        uuid.UUID    `gorm:"type:uuid;not null;index" json:"cleanerId"`
	Cleaner          User         `gorm:"foreignKey:CleanerID"     json:"cleaner"`
	AmountCents      int64        `gorm:"not null"                 json:"amountCents"`
	PlatformFeeCents int64        `gorm:"not null"                 json:"platformFeeCents"`
	StandardFeeCents int64        `gorm:"not null"                 json:"standardFeeCents"`
	IncentiveApplied bool         `gorm:"not null;default:false"   json:"incentiveApplied"`
	Status           PayoutStatus `gorm:"not null;default:'pending';index" json:"status"`
}
