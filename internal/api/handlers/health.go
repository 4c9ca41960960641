// Package handlers provides HTTP request handlers for the API endpoints.
package handlers

import (
	"net/http"

	"github.com/console-zone/rental/internal/api/middleware"
	"github.com/console-zone/rental/internal/reconcile"
	"github.com/console-zone/rental/internal/storage"
	"github.com/console-zone/rental/internal/websocket"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status         string `json:"status"`
	StoreConnected bool   `json:"store_connected"`
	Version        string `json:"version,omitempty"`
}

// HealthCheck returns a handler that performs a health check.
func HealthCheck(store storage.Store, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connected := store.Ping(r.Context()) == nil

		status := "healthy"
		code := http.StatusOK
		if !connected {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		middleware.WriteJSON(w, code, HealthResponse{
			Status:         status,
			StoreConnected: connected,
			Version:        version,
		})
	}
}

// StatusResponse represents the system status response.
type StatusResponse struct {
	Categories       int               `json:"categories"`
	Units            int               `json:"units"`
	UnitsByStatus    map[string]int    `json:"units_by_status"`
	RepricePending   int               `json:"reprice_pending"`
	WebSocketClients int               `json:"websocket_clients"`
	Reconcile        *reconcile.Status `json:"reconcile,omitempty"`
}

// Status returns a handler that provides system status information.
func Status(store storage.Store, hub *websocket.Hub, sched *reconcile.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		plans, err := store.ListPlans(ctx)
		if err != nil {
			middleware.WriteAppError(w, storeError(err, "plans"))
			return
		}
		units, err := store.ListUnits(ctx, "")
		if err != nil {
			middleware.WriteAppError(w, storeError(err, "units"))
			return
		}
		pending, err := store.ListRepricePending(ctx, 0)
		if err != nil {
			middleware.WriteAppError(w, storeError(err, "reservations"))
			return
		}

		resp := StatusResponse{
			Categories:     len(plans),
			Units:          len(units),
			UnitsByStatus:  make(map[string]int),
			RepricePending: len(pending),
		}
		for _, u := range units {
			resp.UnitsByStatus[string(u.Status)]++
		}
		if hub != nil {
			resp.WebSocketClients = hub.ClientCount()
		}
		if sched != nil {
			st := sched.Status()
			resp.Reconcile = &st
		}

		middleware.WriteJSON(w, http.StatusOK, resp)
	}
}

// TriggerReconcile runs one repricing pass immediately.
func TriggerReconcile(sched *reconcile.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := sched.Trigger(r.Context())
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Reconciliation failed")
			return
		}

		middleware.WriteJSON(w, http.StatusOK, report)
	}
}
