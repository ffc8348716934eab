package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/planera-app/planera-backend/pkg/enums"
)

// Notification stores in-app notification payloads. EstablishmentID is nil
// for admin-audience rows.
type Notification struct {
	ID              uuid.UUID                  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EstablishmentID *uuid.UUID                 `gorm:"column:establishment_id;type:uuid"`
	Audience        enums.NotificationAudience `gorm:"column:audience;type:notification_audience;not null"`
	Type            enums.NotificationType     `gorm:"column:type;type:notification_type;not null"`
	Title           string                     `gorm:"column:title;type:text;not null"`
	Message         string                     `gorm:"column:message;type:text;not null"`
	Link            *string                    `gorm:"column:link;type:text"`
	ReadAt          *time.Time                 `gorm:"column:read_at;type:timestamptz"`
	CreatedAt       time.Time                  `gorm:"column:created_at;type:timestamptz;default:now()"`
}
