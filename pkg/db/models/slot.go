package models

import (
	"time"

	"github.com/google/uuid"
)

// Slot is a bookable time window with a fixed seat capacity.
type Slot struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EstablishmentID uuid.UUID `gorm:"column:establishment_id;type:uuid;not null"`
	StartsAt        time.Time `gorm:"column:starts_at;not null"`
	Capacity        int       `gorm:"column:capacity;not null;default:0"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
