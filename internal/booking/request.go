package booking

import (
	"fmt"
	"strings"
	"time"

	"github.com/console-zone/rental/internal/apperror"
	"github.com/console-zone/rental/internal/storage/models"
)

// Request is a booking as received at the boundary. Dates are UTC midnights and
// the rental window is [StartDate, EndDate).
type Request struct {
	Category        string
	PlanTier        models.Tier
	StartDate       time.Time
	EndDate         time.Time
	FulfillmentMode models.FulfillmentMode
	Address         string
	Requester       models.RequesterRef
	ControllerCount int
	Addons          []string
}

const day = 24 * time.Hour

// Days is the number of days in the rental window, counting a started day as a full one.
func (r Request) Days() int {
	d := r.EndDate.Sub(r.StartDate)
	if d <= 0 {
		return 0
	}
	return int((d + day - 1) / day)
}

// isUTCMidnight reports whether t is the start of a calendar day in UTC,
// whatever location it is expressed in.
func isUTCMidnight(t time.Time) bool {
	return t.UTC().Truncate(day).Equal(t)
}

// Validate checks the request shape. It does no I/O.
func (r Request) Validate() error {
	var problems []string

	if strings.TrimSpace(r.Category) == "" {
		problems = append(problems, "category is required")
	}
	if r.StartDate.IsZero() || r.EndDate.IsZero() {
		problems = append(problems, "start_date and end_date are required")
	} else if !isUTCMidnight(r.StartDate) || !isUTCMidnight(r.EndDate) {
		problems = append(problems, "start_date and end_date must be calendar dates at UTC midnight")
	} else if r.Days() < 1 {
		problems = append(problems, "end_date must be at least one day after start_date")
	}
	if !r.FulfillmentMode.Valid() {
		problems = append(problems, fmt.Sprintf("fulfillment_mode %q is not delivery or pickup", r.FulfillmentMode))
	}
	if r.FulfillmentMode == models.FulfillmentDelivery && strings.TrimSpace(r.Address) == "" {
		problems = append(problems, "address is required for delivery")
	}
	if r.ControllerCount < 0 {
		problems = append(problems, "controller_count must not be negative")
	}
	switch r.PlanTier {
	case "", models.TierDaily, models.TierWeekly, models.TierMonthly:
	default:
		problems = append(problems, fmt.Sprintf("plan_tier %q is unknown", r.PlanTier))
	}
	if r.Requester.IsGuest() {
		g := r.Requester.Guest
		if g == nil || strings.TrimSpace(g.Name) == "" || strings.TrimSpace(g.Phone) == "" {
			problems = append(problems, "guest bookings need a contact name and phone")
		}
	}

	if len(problems) > 0 {
		return apperror.New(apperror.KindValidation, "%s", strings.Join(problems, "; "))
	}
	return nil
}

// guestNotes renders guest contact details for the reservation notes field.
func guestNotes(g *models.GuestInfo) string {
	if g == nil {
		return ""
	}
	notes := fmt.Sprintf("guest: name=%s; phone=%s", g.Name, g.Phone)
	if g.Email != "" {
		notes += "; email=" + g.Email
	}
	return notes
}
