package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/console-zone/rental/internal/api/middleware"
	"github.com/console-zone/rental/internal/apperror"
	"github.com/console-zone/rental/internal/storage"
	"github.com/console-zone/rental/internal/storage/models"
)

// ListPlans returns every category plan.
func ListPlans(store storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		plans, err := store.ListPlans(r.Context())
		if err != nil {
			middleware.WriteAppError(w, storeError(err, "plans"))
			return
		}

		if plans == nil {
			plans = []models.PlanTier{}
		}
		middleware.WriteJSON(w, http.StatusOK, plans)
	}
}

// GetPlan returns the plan of one category.
func GetPlan(store storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		category := mux.Vars(r)["category"]

		plan, err := store.GetPlan(r.Context(), category)
		if err != nil {
			middleware.WriteAppError(w, storeError(err, "plan "+category))
			return
		}

		middleware.WriteJSON(w, http.StatusOK, plan)
	}
}

// ListUnits returns units, optionally filtered by ?category=.
func ListUnits(store storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		units, err := store.ListUnits(r.Context(), r.URL.Query().Get("category"))
		if err != nil {
			middleware.WriteAppError(w, storeError(err, "units"))
			return
		}

		if units == nil {
			units = []models.InventoryUnit{}
		}
		middleware.WriteJSON(w, http.StatusOK, units)
	}
}

// GetUnit returns a unit with its active reservations.
func GetUnit(store storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := mux.Vars(r)["id"]

		unit, err := store.GetUnit(ctx, id)
		if err != nil {
			middleware.WriteAppError(w, storeError(err, "unit "+id))
			return
		}

		reservations, err := store.ListActiveReservations(ctx, id)
		if err != nil {
			middleware.WriteAppError(w, storeError(err, "reservations"))
			return
		}
		if reservations == nil {
			reservations = []models.Reservation{}
		}

		middleware.WriteJSON(w, http.StatusOK, struct {
			*models.InventoryUnit
			Reservations []models.Reservation `json:"reservations"`
		}{unit, reservations})
	}
}

// CreateUnitRequest represents the request body for adding a unit to inventory.
type CreateUnitRequest struct {
	ID               string `json:"id,omitempty"`
	Category         string `json:"category"`
	SerialNumber     string `json:"serial_number"`
	HealthScore      *int   `json:"health_score,omitempty"`
	MaintenanceState string `json:"maintenance_state,omitempty"`
}

// CreateUnit adds a unit in the ready status.
func CreateUnit(store storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var body CreateUnitRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, apperror.KindValidation.Code(), "Invalid request body")
			return
		}

		if strings.TrimSpace(body.Category) == "" {
			middleware.WriteAppError(w, apperror.New(apperror.KindValidation, "category is required"))
			return
		}
		if _, err := store.GetPlan(ctx, body.Category); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				middleware.WriteAppError(w, apperror.New(apperror.KindValidation, "category %s has no plan", body.Category))
				return
			}
			middleware.WriteAppError(w, storeError(err, "plan"))
			return
		}

		health := 100
		if body.HealthScore != nil {
			health = *body.HealthScore
		}
		if health < 0 || health > 100 {
			middleware.WriteAppError(w, apperror.New(apperror.KindValidation, "health_score must be between 0 and 100"))
			return
		}

		unit := &models.InventoryUnit{
			ID:               body.ID,
			Category:         body.Category,
			Status:           models.UnitReady,
			SerialNumber:     body.SerialNumber,
			HealthScore:      health,
			MaintenanceState: body.MaintenanceState,
		}
		if err := store.CreateUnit(ctx, unit); err != nil {
			middleware.WriteAppError(w, apperror.Wrap(apperror.KindPersistence, err, "creating unit"))
			return
		}

		middleware.WriteJSON(w, http.StatusCreated, unit)
	}
}

// UnitEvents is notified of unit status changes.
type UnitEvents interface {
	UnitStatusChanged(unit models.InventoryUnit) error
}

// UpdateUnitStatusRequest represents the request body for a maintenance status change.
type UpdateUnitStatusRequest struct {
	Status string `json:"status"`
}

// UpdateUnitStatus is the entry point of the external maintenance workflow.
func UpdateUnitStatus(store storage.Store, unitEvents UnitEvents, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := mux.Vars(r)["id"]

		var body UpdateUnitStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, apperror.KindValidation.Code(), "Invalid request body")
			return
		}

		status, err := models.ParseUnitStatus(body.Status)
		if err != nil {
			middleware.WriteAppError(w, apperror.Wrap(apperror.KindValidation, err, "invalid status"))
			return
		}

		if err := store.SetUnitStatus(ctx, id, status); err != nil {
			middleware.WriteAppError(w, storeError(err, "unit "+id))
			return
		}

		unit, err := store.GetUnit(ctx, id)
		if err != nil {
			middleware.WriteAppError(w, storeError(err, "unit "+id))
			return
		}

		if unitEvents != nil {
			if err := unitEvents.UnitStatusChanged(*unit); err != nil {
				log.Warn("unit status broadcast failed", zap.String("unit_id", id), zap.Error(err))
			}
		}

		middleware.WriteJSON(w, http.StatusOK, unit)
	}
}
