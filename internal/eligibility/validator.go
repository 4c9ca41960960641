package eligibility

import (
	"context"
	"errors"

	"github.com/console-zone/rental/internal/apperror"
	"github.com/console-zone/rental/internal/storage/models"
)

// Eligibility is the outcome of a successful validation.
type Eligibility struct {
	CanPickup bool `json:"can_pickup"`
}

// Validator checks a requester against a fulfillment mode.
type Validator struct {
	dir Directory
}

// NewValidator creates a validator using dir for registered users.
func NewValidator(dir Directory) *Validator {
	return &Validator{dir: dir}
}

// Validate returns the requester's eligibility, or a ConstraintViolation when the
// requested mode is not permitted. Guests skip the directory and may only take delivery.
func (v *Validator) Validate(ctx context.Context, ref models.RequesterRef, mode models.FulfillmentMode) (Eligibility, error) {
	if ref.IsGuest() {
		if mode == models.FulfillmentPickup {
			return Eligibility{}, apperror.New(apperror.KindConstraintViolation, "guests may only book delivery")
		}
		return Eligibility{CanPickup: false}, nil
	}

	r, err := v.dir.Lookup(ctx, ref.UserID)
	switch {
	case errors.Is(err, ErrUnknownRequester):
		return Eligibility{}, apperror.New(apperror.KindConstraintViolation, "requester %s is not known", ref.UserID)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return Eligibility{}, apperror.Wrap(apperror.KindTimeout, err, "identity lookup aborted")
	case err != nil:
		return Eligibility{}, apperror.Wrap(apperror.KindPersistence, err, "identity lookup failed")
	}

	e := Eligibility{CanPickup: r.CanPickup()}
	if mode == models.FulfillmentPickup && !e.CanPickup {
		return e, apperror.New(apperror.KindConstraintViolation, "requester %s is not cleared for pickup (%s)",
			ref.UserID, describe(r))
	}
	return e, nil
}

func describe(r *models.Requester) string {
	if r.Blocked {
		return "blocked"
	}
	return "kyc " + string(r.KYCStatus)
}
