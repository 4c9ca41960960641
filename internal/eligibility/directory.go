// Package eligibility decides whether a requester may use a fulfillment mode.
package eligibility

import (
	"context"
	"errors"

	"github.com/console-zone/rental/internal/storage"
	"github.com/console-zone/rental/internal/storage/models"
)

// ErrUnknownRequester is returned by a Directory that has no record for the user.
var ErrUnknownRequester = errors.New("unknown requester")

// Directory looks up the trust state of registered users.
type Directory interface {
	Lookup(ctx context.Context, userID string) (*models.Requester, error)
}

// StoreDirectory reads requester records kept in the rental store.
type StoreDirectory struct {
	store storage.Store
}

// NewStoreDirectory creates a directory over store.
func NewStoreDirectory(store storage.Store) *StoreDirectory {
	return &StoreDirectory{store: store}
}

func (d *StoreDirectory) Lookup(ctx context.Context, userID string) (*models.Requester, error) {
	r, err := d.store.GetRequester(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrUnknownRequester
	}
	return r, err
}
