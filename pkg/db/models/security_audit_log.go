package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/planera-app/planera-backend/pkg/enums"
)

// SecurityAuditLog is the durable record of rejected webhook deliveries:
// signature failures and amount mismatches. It is distinct from application
// logs so retention and access can be managed separately.
type SecurityAuditLog struct {
	ID            uuid.UUID                   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Category      enums.SecurityAuditCategory `gorm:"column:category;type:security_audit_category;not null"`
	RemoteAddr    string                      `gorm:"column:remote_addr;not null;default:''"`
	EntityKind    *enums.EntityKind           `gorm:"column:entity_kind;type:entity_kind"`
	EntityRef     *string                     `gorm:"column:entity_ref"`
	ExpectedCents *int64                      `gorm:"column:expected_cents"`
	ReceivedCents *int64                      `gorm:"column:received_cents"`
	Detail        *string                     `gorm:"column:detail"`
	CreatedAt     time.Time                   `gorm:"column:created_at;autoCreateTime"`
}
