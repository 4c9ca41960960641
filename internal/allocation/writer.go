package allocation

import (
	"context"
	"errors"

	"github.com/console-zone/rental/internal/apperror"
	"github.com/console-zone/rental/internal/storage"
	"github.com/console-zone/rental/internal/storage/models"
)

// Writer commits reservations through the store's guarded transaction.
type Writer struct {
	store storage.Store
}

// NewWriter creates a writer over store.
func NewWriter(store storage.Store) *Writer {
	return &Writer{store: store}
}

// Commit inserts res and holds its unit. A failed precondition is reported as
// KindAllocationConflict so the caller can retry with another unit.
func (w *Writer) Commit(ctx context.Context, res *models.Reservation) (*models.Reservation, error) {
	err := w.store.CommitReservation(ctx, res)
	switch {
	case err == nil:
		return res, nil
	case errors.Is(err, storage.ErrConflict):
		return nil, apperror.Wrap(apperror.KindAllocationConflict, err, "unit "+res.UnitID+" was taken")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return nil, apperror.Wrap(apperror.KindTimeout, err, "commit aborted")
	default:
		return nil, apperror.Wrap(apperror.KindPersistence, err, "committing reservation")
	}
}
