package db

import (
	"database/sql"
	"errors"
	"strings"
)

// Storage-level outcomes of the atomic operations. The arena layer maps
// these onto its caller-facing taxonomy.
var (
	// ErrNotFound means a referenced row does not exist.
	ErrNotFound = errors.New("db: not found")

	// ErrClaimLost means a guarded claim insert affected no rows: either a
	// concurrent request took the last in-flight slot or this rater already
	// holds the task.
	ErrClaimLost = errors.New("db: claim lost")

	// ErrCompleted means the assignment was already completed.
	ErrCompleted = errors.New("db: assignment already completed")

	// ErrTaskFull means the conditional counter increment found the task at
	// target already.
	ErrTaskFull = errors.New("db: task already at target")

	// ErrDuplicate means an insert hit a uniqueness constraint.
	ErrDuplicate = errors.New("db: duplicate")
)

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint
// failure. The modernc driver exposes no typed error for this.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func mapNoRows(err error) error {
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	return err
}
