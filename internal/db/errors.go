package db

import "errors"

// Sentinel errors for backend operations.
var (
	ErrKeyNotFound        = errors.New("db: key not found")
	ErrCollectionNotFound = errors.New("db: collection not found")
	ErrCollectionExists   = errors.New("db: collection already exists")
)

// Op constants name backend operations for error context.
const (
	OpPing       = "ping"
	OpCreate     = "create"
	OpDrop       = "drop"
	OpExists     = "exists"
	OpCount      = "count"
	OpIndex      = "index"
	OpGet        = "get"
	OpMerge      = "merge"
	OpDelete     = "delete"
	OpBulk       = "bulk"
	OpSearch     = "search"
	OpGetMapping = "get_mapping"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
