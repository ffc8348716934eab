package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/planera-app/planera-backend/pkg/enums"
)

// WaitlistEntry queues a user for capacity on a slot. When an offer is
// accepted, ReservationID links the entry to the reservation it produced.
type WaitlistEntry struct {
	ID            uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SlotID        uuid.UUID            `gorm:"column:slot_id;type:uuid;not null"`
	UserID        uuid.UUID            `gorm:"column:user_id;type:uuid;not null"`
	Status        enums.WaitlistStatus `gorm:"column:status;type:waitlist_status;not null;default:'active'"`
	ReservationID *uuid.UUID           `gorm:"column:reservation_id;type:uuid"`
	CreatedAt     time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
