// Package reconcile recomputes prices of reservations left pending by a failed confirmation.
package reconcile

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/console-zone/rental/internal/events"
	"github.com/console-zone/rental/internal/pricing"
	"github.com/console-zone/rental/internal/storage"
	"github.com/console-zone/rental/internal/storage/models"
)

// DefaultBatchSize is how many pending reservations one run handles.
const DefaultBatchSize = 100

// Report summarizes one reconciliation pass.
type Report struct {
	Scanned  int      `json:"scanned"`
	Repriced int      `json:"repriced"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}

// Reconciler writes authoritative prices for reservations still marked pending.
// Held units are never released here.
type Reconciler struct {
	store     storage.Store
	notifier  events.Notifier
	batchSize int
	log       *zap.Logger
}

// NewReconciler creates a reconciler over store.
func NewReconciler(store storage.Store, notifier events.Notifier, log *zap.Logger) *Reconciler {
	if notifier == nil {
		notifier = events.Nop{}
	}
	return &Reconciler{store: store, notifier: notifier, batchSize: DefaultBatchSize, log: log}
}

// RunOnce reprices one batch. Per-reservation failures are counted and left for
// the next run; only a failure to list the batch is returned.
func (r *Reconciler) RunOnce(ctx context.Context) (*Report, error) {
	pending, err := r.store.ListRepricePending(ctx, r.batchSize)
	if err != nil {
		return nil, fmt.Errorf("listing pending reservations: %w", err)
	}

	report := &Report{Scanned: len(pending)}
	plans := make(map[string]*models.PlanTier)

	for i := range pending {
		res := &pending[i]
		if err := r.reprice(ctx, res, plans); err != nil {
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", res.ID, err))
			r.log.Warn("repricing failed", zap.String("reservation_id", res.ID), zap.Error(err))
			continue
		}
		report.Repriced++
	}

	if report.Scanned > 0 {
		r.log.Info("reconciliation pass finished",
			zap.Int("scanned", report.Scanned),
			zap.Int("repriced", report.Repriced),
			zap.Int("failed", report.Failed),
		)
	}
	return report, nil
}

func (r *Reconciler) reprice(ctx context.Context, res *models.Reservation, plans map[string]*models.PlanTier) error {
	plan, ok := plans[res.Category]
	if !ok {
		p, err := r.store.GetPlan(ctx, res.Category)
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("no plan for category %s", res.Category)
		}
		if err != nil {
			return fmt.Errorf("loading plan: %w", err)
		}
		plans[res.Category] = p
		plan = p
	}

	days := int(res.EndAt.Sub(res.StartAt).Hours() / 24)
	price, err := pricing.Price(*plan, days, res.ControllerCount)
	if err != nil {
		return err
	}

	if err := r.store.ConfirmPrice(ctx, res.ID, storage.PriceUpdate{
		Tier:            price.Tier,
		BasePrice:       price.BasePrice,
		ControllerPrice: price.ControllerPrice,
		TotalPrice:      price.Total,
	}); err != nil {
		return fmt.Errorf("confirming price: %w", err)
	}

	if err := r.notifier.Repriced(ctx, events.Repriced{
		ReservationID: res.ID,
		Category:      res.Category,
		TotalPrice:    price.Total,
	}); err != nil {
		r.log.Warn("notification failed", zap.String("event", "repriced"), zap.Error(err))
	}
	return nil
}
