// Package repository provides data access layer implementations for the application.
package repository

// Pagination defaults shared by list queries.
const (
	DefaultListLimit = 50
	MaxListLimit     = 100
)

// ClampLimit normalizes a requested page size into the allowed range.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
