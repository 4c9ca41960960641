package handlers

import (
	"net/http"
	"time"

	"github.com/console-zone/rental/internal/allocation"
	"github.com/console-zone/rental/internal/api/middleware"
	"github.com/console-zone/rental/internal/apperror"
	"github.com/console-zone/rental/internal/pricing"
	"github.com/console-zone/rental/internal/storage"
)

// Quote prices a rental without reserving anything.
func Quote(store storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		category := r.URL.Query().Get("category")
		if category == "" {
			middleware.WriteAppError(w, apperror.New(apperror.KindValidation, "category is required"))
			return
		}

		start, end, err := dateRange(r)
		if err != nil {
			middleware.WriteAppError(w, err)
			return
		}

		controllers, err := queryInt(r, "controllers", 0)
		if err != nil {
			middleware.WriteAppError(w, err)
			return
		}
		if controllers < 0 {
			middleware.WriteAppError(w, apperror.New(apperror.KindValidation, "controllers must not be negative"))
			return
		}

		plan, err := store.GetPlan(r.Context(), category)
		if err != nil {
			middleware.WriteAppError(w, storeError(err, "plan "+category))
			return
		}

		days := int(end.Sub(start).Hours() / 24)
		price, err := pricing.Price(*plan, days, controllers)
		if err != nil {
			middleware.WriteAppError(w, err)
			return
		}

		middleware.WriteJSON(w, http.StatusOK, price)
	}
}

// AvailabilityResponse reports the unit a booking would currently get.
type AvailabilityResponse struct {
	Category  string                    `json:"category"`
	StartDate string                    `json:"start_date"`
	EndDate   string                    `json:"end_date"`
	UnitID    string                    `json:"unit_id,omitempty"`
	Units     []allocation.Availability `json:"units"`
}

// Availability answers which unit is free for a window. It reserves nothing.
func Availability(resolver *allocation.Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		category := r.URL.Query().Get("category")
		if category == "" {
			middleware.WriteAppError(w, apperror.New(apperror.KindValidation, "category is required"))
			return
		}

		start, end, err := dateRange(r)
		if err != nil {
			middleware.WriteAppError(w, err)
			return
		}

		units, err := resolver.Describe(ctx, category, start, end)
		if err != nil {
			middleware.WriteAppError(w, err)
			return
		}

		resp := AvailabilityResponse{
			Category:  category,
			StartDate: start.Format(time.DateOnly),
			EndDate:   end.Format(time.DateOnly),
			Units:     units,
		}

		unitID, err := resolver.FindUnit(ctx, category, start, end, nil)
		if err != nil {
			middleware.WriteAppErrorWithDetails(w, err, resp)
			return
		}
		resp.UnitID = unitID

		middleware.WriteJSON(w, http.StatusOK, resp)
	}
}
