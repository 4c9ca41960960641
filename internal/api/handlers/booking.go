package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/console-zone/rental/internal/api/middleware"
	"github.com/console-zone/rental/internal/apperror"
	"github.com/console-zone/rental/internal/booking"
	"github.com/console-zone/rental/internal/storage"
	"github.com/console-zone/rental/internal/storage/models"
)

// BookRequest represents the request body for creating a booking.
type BookRequest struct {
	Category        string            `json:"category"`
	PlanTier        string            `json:"plan_tier,omitempty"`
	StartDate       string            `json:"start_date"`
	EndDate         string            `json:"end_date"`
	FulfillmentMode string            `json:"fulfillment_mode"`
	Address         string            `json:"address,omitempty"`
	UserID          string            `json:"user_id,omitempty"`
	Guest           *models.GuestInfo `json:"guest,omitempty"`
	ControllerCount int               `json:"controller_count"`
	Addons          []string          `json:"addons,omitempty"`
}

// BookResponse is returned for a confirmed booking.
type BookResponse struct {
	ReservationID  string        `json:"reservation_id"`
	UnitID         string        `json:"unit_id"`
	TotalPrice     int64         `json:"total_price"`
	PlanTier       models.Tier   `json:"plan_tier"`
	StartDate      string        `json:"start_date"`
	EndDate        string        `json:"end_date"`
	State          booking.State `json:"state"`
	RepricePending bool          `json:"reprice_pending"`
}

// bookingFailure is attached as details to booking error responses.
type bookingFailure struct {
	State booking.State   `json:"state"`
	Trail []booking.State `json:"trail"`
}

// Booker runs a booking.
type Booker interface {
	Book(ctx context.Context, req booking.Request) (*booking.Result, error)
}

// Book handles the booking boundary operation.
func Book(orch Booker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body BookRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, apperror.KindValidation.Code(), "Invalid request body")
			return
		}

		req, err := body.toRequest()
		if err != nil {
			middleware.WriteAppError(w, err)
			return
		}

		result, err := orch.Book(r.Context(), req)
		if err != nil {
			var details any
			if result != nil {
				details = bookingFailure{State: result.State, Trail: result.Trail}
			}
			middleware.WriteAppErrorWithDetails(w, err, details)
			return
		}

		res := result.Reservation
		middleware.WriteJSON(w, http.StatusCreated, BookResponse{
			ReservationID:  res.ID,
			UnitID:         res.UnitID,
			TotalPrice:     res.TotalPrice,
			PlanTier:       res.PlanTier,
			StartDate:      res.StartAt.Format(time.DateOnly),
			EndDate:        res.EndAt.Format(time.DateOnly),
			State:          result.State,
			RepricePending: result.RepricePending,
		})
	}
}

func (b BookRequest) toRequest() (booking.Request, error) {
	start, err := parseDate("start_date", b.StartDate)
	if err != nil {
		return booking.Request{}, err
	}
	end, err := parseDate("end_date", b.EndDate)
	if err != nil {
		return booking.Request{}, err
	}

	return booking.Request{
		Category:        b.Category,
		PlanTier:        models.Tier(b.PlanTier),
		StartDate:       start,
		EndDate:         end,
		FulfillmentMode: models.FulfillmentMode(b.FulfillmentMode),
		Address:         b.Address,
		Requester:       models.RequesterRef{UserID: b.UserID, Guest: b.Guest},
		ControllerCount: b.ControllerCount,
		Addons:          b.Addons,
	}, nil
}

// GetReservation returns a single reservation.
func GetReservation(store storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		res, err := store.GetReservation(r.Context(), id)
		if err != nil {
			middleware.WriteAppError(w, storeError(err, "reservation"))
			return
		}

		middleware.WriteJSON(w, http.StatusOK, res)
	}
}
