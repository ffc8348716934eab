package enums

import "fmt"

// SecurityAuditCategory classifies rows in the security audit log.
type SecurityAuditCategory string

const (
	SecurityAuditSignatureRejected SecurityAuditCategory = "signature_rejected"
	SecurityAuditAmountMismatch    SecurityAuditCategory = "amount_mismatch"
)

// String implements fmt.Stringer.
func (c SecurityAuditCategory) String() string {
	return string(c)
}

// IsValid reports whether the category matches the canonical enum.
func (c SecurityAuditCategory) IsValid() bool {
	switch c {
	case SecurityAuditSignatureRejected, SecurityAuditAmountMismatch:
		return true
	}
	return false
}

// ParseSecurityAuditCategory converts raw input into a SecurityAuditCategory.
func ParseSecurityAuditCategory(value string) (SecurityAuditCategory, error) {
	category := SecurityAuditCategory(value)
	if !category.IsValid() {
		return "", fmt.Errorf("invalid security audit category %q", value)
	}
	return category, nil
}
