package models

import (
	"github.com/google/uuid"
)

type PhotoKind string

const (
	PhotoBefore PhotoKind = "before"
	PhotoAfter  PhotoKind = "after"
)

type AppointmentPhoto struct {
	BaseUUIDModel
	AppointmentID uuid.UUID `gorm:"type:uuid;not null;index" json:"appointmentId"`
	CleanerID     uuid.UUID `gorm:"type:uuid;not null"       json:"cleanerId"`
	Kind          PhotoKind `gorm:"not null"                 json:"kind"`
	URL           string    `gorm:"not null"                 json:"url"`
}
