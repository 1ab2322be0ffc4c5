package models

import (
	"github.com/google/uuid"
)

// EmployeeAssignment links a cleaner to an appointment. Assignment order
// (CreatedAt) is the tie-break order for payout remainder cents.
type EmployeeAssignment struct {
	BaseUUIDModel
	AppointmentID uuid.UUID `gorm:"type:uuid;not null;index" json:"appointmentId"`
	CleanerID     uuid.UUID `gorm:"type:uuid;not null;index" json:"cleanerId"`
	Cleaner       User      `gorm:"foreignKey:CleanerID"     json:"cleaner"`
}
