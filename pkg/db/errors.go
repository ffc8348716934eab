package db

import (
	"strings"

	pkgerrors "github.com/planera-app/planera-backend/pkg/errors"
)

// SQLSTATE class 23 integrity violations we care about.
const uniqueViolationSQLState = "23505"

// IsUniqueViolation reports whether the provided error is a unique
// constraint violation. When constraintName is non-empty, the violation
// must also reference that constraint (or column) by name. Detection
// prefers the driver SQLSTATE and falls back to message matching so the
// sqlite test driver is covered too.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" && !strings.Contains(msg, constraintName) {
		return false
	}
	if pkgerrors.SQLState(err) == uniqueViolationSQLState {
		return true
	}
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
