package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UserBill is the per-user running balance. AppointmentDue must equal the sum
// of prices of the user's unpaid, non-cancelled appointments; TotalDue is
// always AppointmentDue + CancellationFee, kept in the same update.
type UserBill struct {
	BaseUUIDModel
	UserID          uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"userId"`
	User            User            `gorm:"foreignKey:UserID"              json:"user"`
	AppointmentDue  decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"appointmentDue"`
	CancellationFee decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"cancellationFee"`
	TotalDue        decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"totalDue"`
}
