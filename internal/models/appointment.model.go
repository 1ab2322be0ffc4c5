package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type CompletionStatus string

const (
	CompletionInProgress   CompletionStatus = "in_progress"
	CompletionSubmitted    CompletionStatus = "submitted"
	CompletionApproved     CompletionStatus = "approved"
	CompletionAutoApproved CompletionStatus = "auto_approved"
	CompletionCompleted    CompletionStatus = "completed"
	CompletionDeclined     CompletionStatus = "declined"
)

type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentAuthorized PaymentStatus = "authorized"
	PaymentCaptured   PaymentStatus = "captured"
	PaymentFailed     PaymentStatus = "failed"
	PaymentRefunded   PaymentStatus = "refunded"
	PaymentCanceled   PaymentStatus = "canceled"
)

// Appointment is a materialized cleaning visit. Appointments created by a
// recurring schedule carry the back-reference; ad hoc bookings leave it nil.
// A paid appointment is never hard-deleted, only refunded or marked cancelled.
type Appointment struct {
	BaseUUIDModel
	HomeID                uuid.UUID            `gorm:"type:uuid;not null;index:idx_appointments_home_date" json:"homeId"`
	Home                  Home                 `gorm:"foreignKey:HomeID"           json:"home"`
	ClientID              uuid.UUID            `gorm:"type:uuid;not null;index"    json:"clientId"`
	Client                User                 `gorm:"foreignKey:ClientID"         json:"client"`
	Date                  time.Time            `gorm:"not null;index:idx_appointments_home_date" json:"date"`
	TimeWindow            string               `                                   json:"timeWindow"`
	Price                 decimal.Decimal      `gorm:"type:numeric(10,2);not null" json:"price"`
	Completed             bool                 `gorm:"not null;default:false"      json:"completed"`
	Paid                  bool                 `gorm:"not null;default:false"      json:"paid"`
	ManuallyPaid          bool                 `gorm:"not null;default:false"      json:"manuallyPaid"`
	WasCancelled          bool                 `gorm:"not null;default:false"      json:"wasCancelled"`
	CancelledAt           *time.Time           `                                   json:"cancelledAt"`
	CompletionStatus      CompletionStatus     `gorm:"not null;default:'in_progress'" json:"completionStatus"`
	CompletionSubmittedAt *time.Time           `                                   json:"completionSubmittedAt"`
	PaymentStatus         PaymentStatus        `gorm:"not null;default:'pending';index" json:"paymentStatus"`
	PaymentHoldID         string               `                                   json:"paymentHoldId"`
	GatewayPayload        datatypes.JSON       `gorm:"type:jsonb"                  json:"gatewayPayload,omitempty"`
	RecurringScheduleID   *uuid.UUID           `gorm:"type:uuid;index"             json:"recurringScheduleId"`
	Assignments           []EmployeeAssignment `gorm:"foreignKey:AppointmentID"    json:"assignments,omitempty"`
	Photos                []AppointmentPhoto   `gorm:"foreignKey:AppointmentID"    json:"photos,omitempty"`
}

// Deletable reports whether reconciliation may remove this appointment.
// Paid or already-cancelled appointments are kept.
func (a *Appointment) Deletable() bool {
	return !a.Paid && !a.Completed && !a.WasCancelled
}

func (a *Appointment) PriceCents() int64 {
	return a.Price.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
