package ledger

import "errors"

var (
	// ErrNotFound indicates the requested entry doesn't exist.
	ErrNotFound = errors.New("ledger entry not found")

	// ErrDuplicate indicates the external id is already recorded.
	// Callers treat it as a benign skip.
	ErrDuplicate = errors.New("duplicate ledger entry")

	// ErrConstraint indicates a check constraint violation (e.g. unknown media kind).
	ErrConstraint = errors.New("constraint violation")

	// ErrCorrupt indicates the ledger file is unreadable or not a ledger.
	ErrCorrupt = errors.New("ledger store corrupt")
)
