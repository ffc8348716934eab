package env

import (
	"os"
	"strings"
)

// Get reads key from the process environment, returning fallback when the
// variable is unset or blank.
func Get(key, fallback string) string {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
