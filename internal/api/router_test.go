package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/console-zone/rental/internal/allocation"
	"github.com/console-zone/rental/internal/api"
	"github.com/console-zone/rental/internal/api/handlers"
	"github.com/console-zone/rental/internal/api/middleware"
	"github.com/console-zone/rental/internal/booking"
	"github.com/console-zone/rental/internal/eligibility"
	"github.com/console-zone/rental/internal/events"
	"github.com/console-zone/rental/internal/pricing"
	"github.com/console-zone/rental/internal/reconcile"
	"github.com/console-zone/rental/internal/storage"
	"github.com/console-zone/rental/internal/storage/models"
	"github.com/console-zone/rental/internal/websocket"
)

type testServer struct {
	store  *storage.InMemoryFallbackStore
	server *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := zap.NewNop()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	store := storage.NewInMemoryFallbackStore()
	require.NoError(t, storage.Seed(ctx, store))

	hub := websocket.NewHub(log)
	go hub.Run(ctx)
	broadcaster := websocket.NewEventBroadcaster(hub)

	resolver := allocation.NewResolver(store)
	orch := booking.NewOrchestrator(
		store,
		eligibility.NewValidator(eligibility.NewStoreDirectory(store)),
		resolver,
		allocation.NewWriter(store),
		events.Multi{broadcaster},
		booking.DefaultConfig(),
		log,
	)
	sched := reconcile.NewScheduler(reconcile.NewReconciler(store, broadcaster, log), "@every 1h", log)

	router := api.NewRouter(api.Services{
		Store:       store,
		Booker:      orch,
		Resolver:    resolver,
		Hub:         hub,
		Broadcaster: broadcaster,
		Reconcile:   sched,
		Version:     "test",
		Log:         log,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testServer{store: store, server: srv}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func bookBody() handlers.BookRequest {
	return handlers.BookRequest{
		Category:        "PS5",
		StartDate:       "2025-09-01",
		EndDate:         "2025-09-04",
		FulfillmentMode: "delivery",
		Address:         "7 Harbour Rd",
		UserID:          "demo-verified",
		ControllerCount: 2,
		Addons:          []string{"fifa"},
	}
}

func TestBook_Created(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/api/book", bookBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(middleware.RequestIDHeader))

	got := decode[handlers.BookResponse](t, resp)
	assert.NotEmpty(t, got.ReservationID)
	assert.Equal(t, "PS5-001", got.UnitID)
	// 3 days at 100 plus 2 controllers at 50 per day
	assert.Equal(t, int64(600), got.TotalPrice)
	assert.Equal(t, booking.StateConfirmed, got.State)
	assert.Equal(t, "2025-09-01", got.StartDate)
	assert.False(t, got.RepricePending)

	res := ts.do(t, http.MethodGet, "/api/reservations/"+got.ReservationID, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	stored := decode[models.Reservation](t, res)
	assert.Equal(t, models.PriceConfirmed, stored.PriceStatus)
	assert.Equal(t, []string{"fifa"}, stored.Addons)
}

func TestBook_ErrorMapping(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		mutate func(b *handlers.BookRequest)
		status int
		code   string
	}{
		{"bad date", func(b *handlers.BookRequest) { b.StartDate = "01/09/2025" }, http.StatusBadRequest, "validation_error"},
		{"missing address", func(b *handlers.BookRequest) { b.Address = "" }, http.StatusBadRequest, "validation_error"},
		{"too many controllers", func(b *handlers.BookRequest) { b.ControllerCount = 4 }, http.StatusBadRequest, "invalid_controller_count"},
		{"pickup not cleared", func(b *handlers.BookRequest) {
			b.FulfillmentMode = "pickup"
			b.UserID = "demo-pending"
		}, http.StatusForbidden, "constraint_violation"},
		{"blocked pickup", func(b *handlers.BookRequest) {
			b.FulfillmentMode = "pickup"
			b.UserID = "demo-blocked"
		}, http.StatusForbidden, "constraint_violation"},
		{"unknown category", func(b *handlers.BookRequest) { b.Category = "N64" }, http.StatusBadRequest, "validation_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := bookBody()
			tt.mutate(&body)

			resp := ts.do(t, http.MethodPost, "/api/book", body)
			assert.Equal(t, tt.status, resp.StatusCode)
			got := decode[middleware.ErrorResponse](t, resp)
			assert.Equal(t, tt.code, got.Error)
			assert.NotEmpty(t, got.Message)
		})
	}
}

func TestBook_SoldOut(t *testing.T) {
	ts := newTestServer(t)

	for i := 0; i < 3; i++ {
		resp := ts.do(t, http.MethodPost, "/api/book", bookBody())
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp := ts.do(t, http.MethodPost, "/api/book", bookBody())
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	got := decode[struct {
		Error   string `json:"error"`
		Details struct {
			State string   `json:"state"`
			Trail []string `json:"trail"`
		} `json:"details"`
	}](t, resp)
	assert.Equal(t, "not_available", got.Error)
	assert.Equal(t, "rejected", got.Details.State)
	assert.Contains(t, got.Details.Trail, "validated")
}

func TestBook_InvalidJSON(t *testing.T) {
	ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodPost, ts.server.URL+"/api/book", bytes.NewBufferString("{"))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestQuote(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		query string
		total int64
		tier  models.Tier
	}{
		{"category=PS5&start_date=2025-01-01&end_date=2025-01-04", 300, models.TierDaily},
		{"category=PS5&start_date=2025-01-01&end_date=2025-01-08", 500, models.TierWeekly},
		{"category=PS5&start_date=2025-01-01&end_date=2025-01-11", 1000, models.TierWeekly},
		{"category=PS5&start_date=2025-01-01&end_date=2025-01-31", 1500, models.TierMonthly},
		{"category=PS5&start_date=2025-01-01&end_date=2025-01-02&controllers=2", 200, models.TierDaily},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			resp := ts.do(t, http.MethodGet, "/api/quote?"+tt.query, nil)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			got := decode[pricing.Breakdown](t, resp)
			assert.Equal(t, tt.total, got.Total)
			assert.Equal(t, tt.tier, got.Tier)
		})
	}

	resp := ts.do(t, http.MethodGet, "/api/quote?category=GAMECUBE&start_date=2025-01-01&end_date=2025-01-02", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/api/quote?category=PS5&start_date=2025-01-02&end_date=2025-01-02", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/api/quote?category=PS5&start_date=2025-01-01&end_date=2025-01-02&controllers=-1", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAvailability(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	require.NoError(t, ts.store.SetUnitStatus(ctx, "SWITCH-001", models.UnitLost))

	resp := ts.do(t, http.MethodGet, "/api/availability?category=SWITCH&start_date=2025-02-01&end_date=2025-02-03", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[handlers.AvailabilityResponse](t, resp)
	assert.Equal(t, "SWITCH-002", got.UnitID)
	require.Len(t, got.Units, 3)
	assert.False(t, got.Units[0].Free)

	require.NoError(t, ts.store.SetUnitStatus(ctx, "SWITCH-002", models.UnitLost))
	require.NoError(t, ts.store.SetUnitStatus(ctx, "SWITCH-003", models.UnitLost))
	resp = ts.do(t, http.MethodGet, "/api/availability?category=SWITCH&start_date=2025-02-01&end_date=2025-02-03", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestPlansAndUnits(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodGet, "/api/plans", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	plans := decode[[]models.PlanTier](t, resp)
	assert.Len(t, plans, len(storage.DemoPlans))

	resp = ts.do(t, http.MethodGet, "/api/plans/XBOX", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(90), decode[models.PlanTier](t, resp).DailyRate)

	resp = ts.do(t, http.MethodGet, "/api/plans/NOPE", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/api/units?category=PS5", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]models.InventoryUnit](t, resp), 3)

	resp = ts.do(t, http.MethodPost, "/api/units", handlers.CreateUnitRequest{ID: "PS5-004", Category: "PS5", SerialNumber: "SN-X"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, models.UnitReady, decode[models.InventoryUnit](t, resp).Status)

	resp = ts.do(t, http.MethodPost, "/api/units", handlers.CreateUnitRequest{Category: "N64"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/api/units/PS5-004", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUpdateUnitStatus(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPut, "/api/units/PS5-001/status", handlers.UpdateUnitStatusRequest{Status: "under_repair"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, models.UnitUnderRepair, decode[models.InventoryUnit](t, resp).Status)

	resp = ts.do(t, http.MethodPut, "/api/units/PS5-001/status", handlers.UpdateUnitStatusRequest{Status: "borrowed"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.do(t, http.MethodPut, "/api/units/PS5-999/status", handlers.UpdateUnitStatusRequest{Status: "ready"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthStatusAndReconcile(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	health := decode[handlers.HealthResponse](t, resp)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "test", health.Version)

	resp = ts.do(t, http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	status := decode[handlers.StatusResponse](t, resp)
	assert.Equal(t, 3, status.Categories)
	assert.Equal(t, 9, status.Units)
	assert.Equal(t, 9, status.UnitsByStatus["ready"])

	resp = ts.do(t, http.MethodPost, "/api/reconcile", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	report := decode[reconcile.Report](t, resp)
	assert.Zero(t, report.Scanned)

	require.NoError(t, ts.store.Close())
	resp = ts.do(t, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.do(t, http.MethodGet, "/api/nothing-here", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
