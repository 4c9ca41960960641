// Package booking composes eligibility, allocation and pricing into the booking operation.
package booking

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/console-zone/rental/internal/apperror"
	"github.com/console-zone/rental/internal/eligibility"
	"github.com/console-zone/rental/internal/events"
	"github.com/console-zone/rental/internal/pricing"
	"github.com/console-zone/rental/internal/storage"
	"github.com/console-zone/rental/internal/storage/models"
)

// Validator decides whether the requester may use the fulfillment mode.
type Validator interface {
	Validate(ctx context.Context, ref models.RequesterRef, mode models.FulfillmentMode) (eligibility.Eligibility, error)
}

// Resolver picks a free unit for a window.
type Resolver interface {
	FindUnit(ctx context.Context, category string, start, end time.Time, exclude map[string]bool) (string, error)
}

// Committer atomically stores a reservation and holds its unit.
type Committer interface {
	Commit(ctx context.Context, res *models.Reservation) (*models.Reservation, error)
}

// Config bounds a single booking.
type Config struct {
	// MaxAttempts is how many units are tried before reporting NotAvailable.
	MaxAttempts int
	// Timeout is the wall-clock budget of one booking.
	Timeout time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{MaxAttempts: 3, Timeout: 10 * time.Second}
}

// Result describes how a booking ended. It is returned for failures too.
type Result struct {
	State          State                   `json:"state"`
	Trail          []State                 `json:"trail"`
	Reservation    *models.Reservation     `json:"reservation,omitempty"`
	Price          *pricing.Breakdown      `json:"price,omitempty"`
	Eligibility    eligibility.Eligibility `json:"eligibility"`
	Attempts       int                     `json:"attempts"`
	RepricePending bool                    `json:"reprice_pending"`
}

func (r *Result) advance(s State) {
	r.State = s
	r.Trail = append(r.Trail, s)
}

// Orchestrator runs the booking state machine. It holds no per-booking state
// and is safe for concurrent use.
type Orchestrator struct {
	store     storage.Store
	validator Validator
	resolver  Resolver
	committer Committer
	notifier  events.Notifier
	cfg       Config
	log       *zap.Logger
}

// NewOrchestrator wires the booking steps together.
func NewOrchestrator(
	store storage.Store,
	validator Validator,
	resolver Resolver,
	committer Committer,
	notifier events.Notifier,
	cfg Config,
	log *zap.Logger,
) *Orchestrator {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if notifier == nil {
		notifier = events.Nop{}
	}
	return &Orchestrator{
		store:     store,
		validator: validator,
		resolver:  resolver,
		committer: committer,
		notifier:  notifier,
		cfg:       cfg,
		log:       log,
	}
}

// Book runs one booking to a terminal state. The returned error is nil only
// when the result is StateConfirmed.
func (o *Orchestrator) Book(ctx context.Context, req Request) (*Result, error) {
	if o.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
	}

	result := &Result{}
	result.advance(StateReceived)

	log := o.log.With(
		zap.String("category", req.Category),
		zap.Time("start", req.StartDate),
		zap.Time("end", req.EndDate),
	)

	if err := req.Validate(); err != nil {
		return o.fail(ctx, log, result, req, err)
	}

	elig, err := o.validator.Validate(ctx, req.Requester, req.FulfillmentMode)
	if err != nil {
		return o.fail(ctx, log, result, req, err)
	}
	result.Eligibility = elig
	result.advance(StateValidated)

	plan, err := o.store.GetPlan(ctx, req.Category)
	if errors.Is(err, storage.ErrNotFound) {
		return o.fail(ctx, log, result, req, apperror.New(apperror.KindValidation, "unknown category %q", req.Category))
	}
	if err != nil {
		return o.fail(ctx, log, result, req, apperror.Wrap(apperror.KindPersistence, err, "loading plan"))
	}

	// Provisional price; also rejects controller counts over the plan limit
	// before anything is written.
	quote, err := pricing.Price(*plan, req.Days(), req.ControllerCount)
	if err != nil {
		return o.fail(ctx, log, result, req, err)
	}

	res, err := o.allocate(ctx, log, result, req, quote)
	if err != nil {
		return o.fail(ctx, log, result, req, err)
	}
	result.Reservation = res
	result.advance(StateCommitted)

	o.confirm(ctx, log, result, *plan, req)
	result.advance(StateConfirmed)

	log.Info("booking confirmed",
		zap.String("reservation_id", res.ID),
		zap.String("unit_id", res.UnitID),
		zap.Int64("total_price", res.TotalPrice),
		zap.Int("attempts", result.Attempts),
		zap.Bool("reprice_pending", result.RepricePending),
	)
	o.notify(log, "booking confirmed", o.notifier.BookingConfirmed(context.WithoutCancel(ctx), events.BookingConfirmed{
		ReservationID:  res.ID,
		UnitID:         res.UnitID,
		Category:       res.Category,
		StartDate:      res.StartAt,
		EndDate:        res.EndAt,
		TotalPrice:     res.TotalPrice,
		RepricePending: result.RepricePending,
		Attempts:       result.Attempts,
	}))

	return result, nil
}

// allocate resolves and commits, excluding units lost to concurrent bookings,
// until a commit succeeds or attempts run out. No lock is held between attempts.
func (o *Orchestrator) allocate(ctx context.Context, log *zap.Logger, result *Result, req Request, quote pricing.Breakdown) (*models.Reservation, error) {
	exclude := make(map[string]bool)

	for attempt := 1; attempt <= o.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result.Attempts = attempt

		unitID, err := o.resolver.FindUnit(ctx, req.Category, req.StartDate, req.EndDate, exclude)
		if err != nil {
			return nil, err
		}
		result.advance(StateAllocated)

		res, err := o.committer.Commit(ctx, newReservation(req, unitID, quote))
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, apperror.AllocationConflict) {
			return nil, err
		}

		log.Debug("allocation conflict, retrying", zap.String("unit_id", unitID), zap.Int("attempt", attempt))
		exclude[unitID] = true
	}

	return nil, apperror.New(apperror.KindNotAvailable, "no %s unit could be held after %d attempts",
		req.Category, o.cfg.MaxAttempts)
}

// confirm writes the authoritative price. A failure leaves the unit held and
// the reservation flagged for the reconciler.
func (o *Orchestrator) confirm(ctx context.Context, log *zap.Logger, result *Result, plan models.PlanTier, req Request) {
	res := result.Reservation

	price, err := pricing.Price(plan, req.Days(), req.ControllerCount)
	if err == nil {
		result.Price = &price
		err = o.store.ConfirmPrice(ctx, res.ID, storage.PriceUpdate{
			Tier:            price.Tier,
			BasePrice:       price.BasePrice,
			ControllerPrice: price.ControllerPrice,
			TotalPrice:      price.Total,
		})
	}
	if err != nil {
		result.RepricePending = true
		log.Warn("price confirmation failed, reservation flagged for repricing",
			zap.String("reservation_id", res.ID),
			zap.String("unit_id", res.UnitID),
			zap.Error(err),
		)
		o.notify(log, "reprice flagged", o.notifier.RepriceFlagged(context.WithoutCancel(ctx), events.RepriceFlagged{
			ReservationID: res.ID,
			UnitID:        res.UnitID,
			Category:      res.Category,
			Reason:        err.Error(),
		}))
		return
	}

	res.PlanTier = price.Tier
	res.BasePrice = price.BasePrice
	res.ControllerPrice = price.ControllerPrice
	res.TotalPrice = price.Total
	res.PriceStatus = models.PriceConfirmed
}

// fail moves the result to Rejected or Errored according to err's kind.
func (o *Orchestrator) fail(ctx context.Context, log *zap.Logger, result *Result, req Request, err error) (*Result, error) {
	if ctx.Err() != nil && !errors.Is(err, apperror.Timeout) {
		err = apperror.Wrap(apperror.KindTimeout, err, "booking exceeded its time budget")
	}
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		err = apperror.Wrap(apperror.KindPersistence, err, "booking failed")
	}

	kind := apperror.KindOf(err)
	switch kind {
	case apperror.KindPersistence, apperror.KindTimeout:
		result.advance(StateErrored)
		log.Error("booking errored", zap.String("reason", kind.Code()), zap.Error(err))
	default:
		result.advance(StateRejected)
		log.Info("booking rejected", zap.String("reason", kind.Code()), zap.Error(err))
	}

	o.notify(log, "booking rejected", o.notifier.BookingRejected(context.WithoutCancel(ctx), events.BookingRejected{
		Category: req.Category,
		Code:     kind.Code(),
		Message:  err.Error(),
	}))
	return result, err
}

func (o *Orchestrator) notify(log *zap.Logger, what string, err error) {
	if err != nil {
		log.Warn("notification failed", zap.String("event", what), zap.Error(err))
	}
}

func newReservation(req Request, unitID string, quote pricing.Breakdown) *models.Reservation {
	res := &models.Reservation{
		UnitID:          unitID,
		Category:        req.Category,
		PlanTier:        quote.Tier,
		StartAt:         req.StartDate.UTC(),
		EndAt:           req.EndDate.UTC(),
		ControllerCount: req.ControllerCount,
		FulfillmentMode: req.FulfillmentMode,
		Address:         req.Address,
		Status:          models.ReservationActive,
		BasePrice:       quote.BasePrice,
		ControllerPrice: quote.ControllerPrice,
		TotalPrice:      quote.Total,
		PriceStatus:     models.PricePending,
		Addons:          req.Addons,
	}
	if req.Requester.IsGuest() {
		res.Notes = guestNotes(req.Requester.Guest)
	} else {
		userID := req.Requester.UserID
		res.UserID = &userID
	}
	return res
}
