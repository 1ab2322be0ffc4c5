package models

import (
	"github.com/google/uuid"
)

type Home struct {
	BaseUUIDModel
	OwnerID            uuid.UUID  `gorm:"type:uuid;not null;index" json:"ownerId"`
	Owner              User       `gorm:"foreignKey:OwnerID"       json:"owner"`
	AddressLine        string     `gorm:"not null"                 json:"addressLine"`
	City               string     `gorm:"not null"                 json:"city"`
	State              string     `                                json:"state"`
	PostalCode         string     `                                json:"postalCode"`
	Bedrooms           int        `                                json:"bedrooms"`
	Bathrooms          int        `                                json:"bathrooms"`
	PreferredCleanerID *uuid.UUID `gorm:"type:uuid"                json:"preferredCleanerId"`
	PreferredCleaner   *User      `gorm:"foreignKey:PreferredCleanerID" json:"preferredCleaner,omitempty"`
}

// IsPreferredCleaner reports whether the given cleaner is this home's
// designated preferred cleaner.
func (h *Home) IsPreferredCleaner(cleanerID uuid.UUID) bool {
	return h.PreferredCleanerID != nil && *h.PreferredCleanerID == cleanerID
}
