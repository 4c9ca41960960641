// Package api provides HTTP routing and handlers for the REST API.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/console-zone/rental/internal/allocation"
	"github.com/console-zone/rental/internal/api/handlers"
	"github.com/console-zone/rental/internal/api/middleware"
	"github.com/console-zone/rental/internal/reconcile"
	"github.com/console-zone/rental/internal/storage"
	"github.com/console-zone/rental/internal/websocket"
)

// Services are the components the router exposes.
type Services struct {
	Store       storage.Store
	Booker      handlers.Booker
	Resolver    *allocation.Resolver
	Hub         *websocket.Hub
	Broadcaster *websocket.EventBroadcaster
	Reconcile   *reconcile.Scheduler
	Version     string
	Log         *zap.Logger
}

// NewRouter creates and configures the HTTP router with all API routes.
func NewRouter(s Services) *mux.Router {
	r := mux.NewRouter()

	// Apply global middleware
	r.Use(middleware.Logging(s.Log))
	r.Use(middleware.ErrorRecovery(s.Log))

	api := r.PathPrefix("/api").Subrouter()

	// Health and status endpoints
	api.HandleFunc("/health", handlers.HealthCheck(s.Store, s.Version)).Methods(http.MethodGet)
	api.HandleFunc("/status", handlers.Status(s.Store, s.Hub, s.Reconcile)).Methods(http.MethodGet)

	if s.Hub != nil {
		api.HandleFunc("/ws", handlers.WebSocketUpgrade(s.Hub, s.Log)).Methods(http.MethodGet)
	}

	// Booking
	api.HandleFunc("/book", handlers.Book(s.Booker)).Methods(http.MethodPost)
	api.HandleFunc("/quote", handlers.Quote(s.Store)).Methods(http.MethodGet)
	api.HandleFunc("/availability", handlers.Availability(s.Resolver)).Methods(http.MethodGet)
	api.HandleFunc("/reservations/{id}", handlers.GetReservation(s.Store)).Methods(http.MethodGet)

	// Catalog and inventory
	api.HandleFunc("/plans", handlers.ListPlans(s.Store)).Methods(http.MethodGet)
	api.HandleFunc("/plans/{category}", handlers.GetPlan(s.Store)).Methods(http.MethodGet)
	api.HandleFunc("/units", handlers.ListUnits(s.Store)).Methods(http.MethodGet)
	api.HandleFunc("/units", handlers.CreateUnit(s.Store)).Methods(http.MethodPost)
	api.HandleFunc("/units/{id}", handlers.GetUnit(s.Store)).Methods(http.MethodGet)

	var unitEvents handlers.UnitEvents
	if s.Broadcaster != nil {
		unitEvents = s.Broadcaster
	}
	api.HandleFunc("/units/{id}/status", handlers.UpdateUnitStatus(s.Store, unitEvents, s.Log)).Methods(http.MethodPut)

	if s.Reconcile != nil {
		api.HandleFunc("/reconcile", handlers.TriggerReconcile(s.Reconcile)).Methods(http.MethodPost)
	}

	api.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusNotFound, "not_found", "No such endpoint")
	})

	return r
}
