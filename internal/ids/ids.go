// Package ids allocates the human-readable record identifiers used across
// the API (CO-2025-0001, WO-2025-0003, SUP-002, ...).
package ids

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Next returns the next year-scoped identifier for table:
// PREFIX-YYYY-NNNN, zero-padded to digits, starting at 1 for each year.
// A stored id whose trailing segment is not numeric is skipped rather than
// aborting the allocation.
//
// Next alone is not atomic: two concurrent callers can read the same maximum.
// Callers that persist the id must rely on the PRIMARY KEY constraint and
// re-allocate on a uniqueness conflict (see sales.CreateCustomerOrder).
func Next(db *sql.DB, prefix, table string, digits int) string {
	year := time.Now().Format("2006")
	pattern := prefix + "-" + year + "-%"
	var maxID sql.NullString
	db.QueryRow("SELECT id FROM "+table+" WHERE id LIKE ? ORDER BY id DESC LIMIT 1", pattern).Scan(&maxID)

	next := 1
	if maxID.Valid {
		parts := strings.Split(maxID.String, "-")
		if len(parts) >= 3 {
			if n, err := strconv.Atoi(parts[len(parts)-1]); err == nil {
				next = n + 1
			}
		}
	}
	return fmt.Sprintf("%s-%s-%0*d", prefix, year, digits, next)
}

// NextSimple returns the next non-year-scoped identifier: PREFIX-NNN.
// Used for directory-style records (suppliers, customers, work centers)
// whose numbering does not reset annually.
func NextSimple(db *sql.DB, prefix, table string, digits int) string {
	pattern := prefix + "-%"
	var maxID sql.NullString
	db.QueryRow("SELECT id FROM "+table+" WHERE id LIKE ? ORDER BY id DESC LIMIT 1", pattern).Scan(&maxID)

	next := 1
	if maxID.Valid {
		parts := strings.Split(maxID.String, "-")
		if n, err := strconv.Atoi(parts[len(parts)-1]); err == nil {
			next = n + 1
		}
	}
	return fmt.Sprintf("%s-%0*d", prefix, digits, next)
}

// IsUniqueViolation reports whether err is a SQLite uniqueness failure,
// the signal to re-allocate an id and retry the insert.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed: UNIQUE")
}
