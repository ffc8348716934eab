package models

// All lists every persisted model. The SQLite dev mode feeds this to
// gorm's AutoMigrate; Postgres schemas come from goose migrations.
func All() []any {
	return []any{
		&Establishment{},
		&Slot{},
		&Reservation{},
		&WaitlistEntry{},
		&PackPurchase{},
		&VisibilityOrder{},
		&Invoice{},
		&LedgerEvent{},
		&Notification{},
		&SecurityAuditLog{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
