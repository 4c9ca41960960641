// Package allocation picks a free unit for a window and commits reservations against it.
package allocation

import (
	"context"
	"fmt"
	"time"

	"github.com/console-zone/rental/internal/apperror"
	"github.com/console-zone/rental/internal/storage"
	"github.com/console-zone/rental/internal/storage/models"
)

// Resolver finds a unit with no overlapping active reservation. It never writes.
type Resolver struct {
	store storage.Store
}

// NewResolver creates a resolver reading from store.
func NewResolver(store storage.Store) *Resolver {
	return &Resolver{store: store}
}

// FindUnit returns the lowest-id unit of category that is not lost, is not in
// exclude, and has no active reservation intersecting [start, end).
func (r *Resolver) FindUnit(ctx context.Context, category string, start, end time.Time, exclude map[string]bool) (string, error) {
	units, err := r.store.ListUnits(ctx, category)
	if err != nil {
		return "", apperror.Wrap(apperror.KindPersistence, err, "listing units")
	}

	for _, unit := range units {
		if exclude[unit.ID] || !unit.Status.Allocatable() {
			continue
		}

		free, err := r.isFree(ctx, unit.ID, start, end)
		if err != nil {
			return "", err
		}
		if free {
			return unit.ID, nil
		}
	}

	return "", apperror.New(apperror.KindNotAvailable, "no %s unit free between %s and %s",
		category, start.Format(time.DateOnly), end.Format(time.DateOnly))
}

func (r *Resolver) isFree(ctx context.Context, unitID string, start, end time.Time) (bool, error) {
	reservations, err := r.store.ListActiveReservations(ctx, unitID)
	if err != nil {
		return false, apperror.Wrap(apperror.KindPersistence, err, fmt.Sprintf("listing reservations for %s", unitID))
	}
	for i := range reservations {
		if reservations[i].Overlaps(start, end) {
			return false, nil
		}
	}
	return true, nil
}

// Availability is the per-unit view returned by Describe.
type Availability struct {
	UnitID string            `json:"unit_id"`
	Status models.UnitStatus `json:"status"`
	Free   bool              `json:"free"`
}

// Describe reports, for each unit of category, whether it could take [start, end).
func (r *Resolver) Describe(ctx context.Context, category string, start, end time.Time) ([]Availability, error) {
	units, err := r.store.ListUnits(ctx, category)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindPersistence, err, "listing units")
	}

	out := make([]Availability, 0, len(units))
	for _, unit := range units {
		a := Availability{UnitID: unit.ID, Status: unit.Status}
		if unit.Status.Allocatable() {
			if a.Free, err = r.isFree(ctx, unit.ID, start, end); err != nil {
				return nil, err
			}
		}
		out = append(out, a)
	}
	return out, nil
}
