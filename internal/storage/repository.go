package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a keyed record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when the commit precondition fails: the unit is missing
	// or lost, or an overlapping active reservation already exists.
	ErrConflict = errors.New("reservation conflicts with existing allocation")

	// ErrClosed is returned by a store after Close.
	ErrClosed = errors.New("store closed")
)

// Queryable represents a database connection that can execute queries.
// Both *sql.DB and *sql.Tx implement this interface.
type Queryable interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// BaseRepository provides common functionality for all repositories.
type BaseRepository struct {
	q Queryable
}

// NewBaseRepository creates a base repository over q.
func NewBaseRepository(q Queryable) BaseRepository {
	return BaseRepository{q: q}
}

// Now returns the current time in UTC for database timestamps.
func (r *BaseRepository) Now() time.Time {
	return now()
}

func now() time.Time {
	return time.Now().UTC()
}

// GenerateID creates a new random identifier for use as a primary key.
func GenerateID() string {
	return uuid.NewString()
}
