package booking_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/console-zone/rental/internal/allocation"
	"github.com/console-zone/rental/internal/apperror"
	"github.com/console-zone/rental/internal/booking"
	"github.com/console-zone/rental/internal/eligibility"
	"github.com/console-zone/rental/internal/events"
	"github.com/console-zone/rental/internal/storage"
	"github.com/console-zone/rental/internal/storage/models"
)

// faultyStore wraps a Store to count reads and inject failures.
type faultyStore struct {
	storage.Store

	listUnits    atomic.Int32
	commits      atomic.Int32
	confirmErr   error
	conflictOnce map[string]bool
	blockCommit  bool
	mu           sync.Mutex
}

func (s *faultyStore) ListUnits(ctx context.Context, category string) ([]models.InventoryUnit, error) {
	s.listUnits.Add(1)
	return s.Store.ListUnits(ctx, category)
}

func (s *faultyStore) CommitReservation(ctx context.Context, res *models.Reservation) error {
	s.commits.Add(1)
	if s.blockCommit {
		<-ctx.Done()
		return ctx.Err()
	}
	s.mu.Lock()
	if s.conflictOnce[res.UnitID] {
		delete(s.conflictOnce, res.UnitID)
		s.mu.Unlock()
		return storage.ErrConflict
	}
	s.mu.Unlock()
	return s.Store.CommitReservation(ctx, res)
}

func (s *faultyStore) ConfirmPrice(ctx context.Context, id string, p storage.PriceUpdate) error {
	if s.confirmErr != nil {
		return s.confirmErr
	}
	return s.Store.ConfirmPrice(ctx, id, p)
}

// recordingNotifier counts events by type.
type recordingNotifier struct {
	mu        sync.Mutex
	confirmed []events.BookingConfirmed
	rejected  []events.BookingRejected
	flagged   []events.RepriceFlagged
}

func (n *recordingNotifier) BookingConfirmed(ctx context.Context, e events.BookingConfirmed) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirmed = append(n.confirmed, e)
	return nil
}

func (n *recordingNotifier) BookingRejected(ctx context.Context, e events.BookingRejected) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rejected = append(n.rejected, e)
	return nil
}

func (n *recordingNotifier) RepriceFlagged(ctx context.Context, e events.RepriceFlagged) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.flagged = append(n.flagged, e)
	return nil
}

func (n *recordingNotifier) Repriced(ctx context.Context, e events.Repriced) error { return nil }

type fixture struct {
	store    *faultyStore
	notifier *recordingNotifier
	orch     *booking.Orchestrator
}

func newFixture(t *testing.T, units []string, cfg booking.Config) *fixture {
	t.Helper()
	return newFixtureOn(t, storage.NewInMemoryFallbackStore(), units, cfg)
}

func newSQLiteFixture(t *testing.T, units []string, cfg booking.Config) *fixture {
	t.Helper()
	base, err := storage.OpenRemoteStore(filepath.Join(t.TempDir(), "rental.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { base.Close() })
	return newFixtureOn(t, base, units, cfg)
}

func newFixtureOn(t *testing.T, base storage.Store, units []string, cfg booking.Config) *fixture {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, base.UpsertPlan(ctx, &models.PlanTier{
		Category:            "PS5",
		DailyRate:           100,
		WeeklyRate:          500,
		MonthlyRate:         1500,
		ControllerDailyRate: 50,
		MaxControllers:      2,
	}))
	for _, id := range units {
		require.NoError(t, base.CreateUnit(ctx, &models.InventoryUnit{ID: id, Category: "PS5"}))
	}
	require.NoError(t, base.UpsertRequester(ctx, &models.Requester{ID: "verified", KYCStatus: models.KYCVerified}))
	require.NoError(t, base.UpsertRequester(ctx, &models.Requester{ID: "pending", KYCStatus: models.KYCPending}))

	fs := &faultyStore{Store: base, conflictOnce: map[string]bool{}}
	n := &recordingNotifier{}
	orch := booking.NewOrchestrator(
		fs,
		eligibility.NewValidator(eligibility.NewStoreDirectory(fs)),
		allocation.NewResolver(fs),
		allocation.NewWriter(fs),
		n,
		cfg,
		zap.NewNop(),
	)
	return &fixture{store: fs, notifier: n, orch: orch}
}

func day(d int) time.Time {
	return time.Date(2025, time.July, d, 0, 0, 0, 0, time.UTC)
}

func deliveryRequest(start, end time.Time) booking.Request {
	return booking.Request{
		Category:        "PS5",
		StartDate:       start,
		EndDate:         end,
		FulfillmentMode: models.FulfillmentDelivery,
		Address:         "12 Elm St",
		Requester:       models.RequesterRef{UserID: "verified"},
	}
}

func TestBook_Confirmed(t *testing.T) {
	f := newFixture(t, []string{"ps5-1", "ps5-2"}, booking.DefaultConfig())

	req := deliveryRequest(day(1), day(4))
	req.ControllerCount = 1
	req.Addons = []string{"headset"}

	result, err := f.orch.Book(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, booking.StateConfirmed, result.State)
	assert.Equal(t, []booking.State{
		booking.StateReceived, booking.StateValidated, booking.StateAllocated,
		booking.StateCommitted, booking.StateConfirmed,
	}, result.Trail)
	assert.Equal(t, "ps5-1", result.Reservation.UnitID)
	assert.Equal(t, int64(450), result.Reservation.TotalPrice)
	assert.False(t, result.RepricePending)
	assert.True(t, result.Eligibility.CanPickup)

	stored, err := f.store.GetReservation(context.Background(), result.Reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PriceConfirmed, stored.PriceStatus)
	assert.Equal(t, int64(300), stored.BasePrice)
	assert.Equal(t, int64(150), stored.ControllerPrice)
	require.NotNil(t, stored.UserID)
	assert.Equal(t, "verified", *stored.UserID)

	unit, err := f.store.GetUnit(context.Background(), "ps5-1")
	require.NoError(t, err)
	assert.Equal(t, models.UnitRented, unit.Status)

	require.Len(t, f.notifier.confirmed, 1)
	assert.Equal(t, result.Reservation.ID, f.notifier.confirmed[0].ReservationID)
}

func TestBook_ConcurrentRaceForLastUnit(t *testing.T) {
	f := newFixture(t, []string{"ps5-1"}, booking.DefaultConfig())

	var (
		results [2]*booking.Result
		errs    [2]error
		g       errgroup.Group
		start   = make(chan struct{})
	)
	for i := 0; i < 2; i++ {
		i := i
		g.Go(func() error {
			<-start
			results[i], errs[i] = f.orch.Book(context.Background(), deliveryRequest(day(10), day(13+i)))
			return nil
		})
	}
	close(start)
	require.NoError(t, g.Wait())

	var confirmed, rejected int
	for i := range results {
		switch results[i].State {
		case booking.StateConfirmed:
			confirmed++
			assert.NoError(t, errs[i])
		case booking.StateRejected:
			rejected++
			assert.ErrorIs(t, errs[i], apperror.NotAvailable)
		default:
			t.Fatalf("unexpected state %s: %v", results[i].State, errs[i])
		}
	}
	assert.Equal(t, 1, confirmed)
	assert.Equal(t, 1, rejected)

	active, err := f.store.ListActiveReservations(context.Background(), "ps5-1")
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestBook_SQLiteRaceForLastUnit(t *testing.T) {
	f := newSQLiteFixture(t, []string{"ps5-1"}, booking.DefaultConfig())

	const attempts = 16
	var (
		g         errgroup.Group
		confirmed atomic.Int32
		rejected  atomic.Int32
		start     = make(chan struct{})
	)
	for i := 0; i < attempts; i++ {
		i := i
		g.Go(func() error {
			<-start
			res, err := f.orch.Book(context.Background(), deliveryRequest(day(10), day(12+i%3)))
			switch {
			case err == nil:
				confirmed.Add(1)
			case res.State == booking.StateRejected && errors.Is(err, apperror.NotAvailable):
				rejected.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	close(start)
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), confirmed.Load())
	assert.Equal(t, int32(attempts-1), rejected.Load())

	active, err := f.store.ListActiveReservations(context.Background(), "ps5-1")
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestBook_ManyConcurrentBookingsNeverOverlap(t *testing.T) {
	f := newFixture(t, []string{"ps5-1", "ps5-2", "ps5-3"}, booking.Config{MaxAttempts: 5, Timeout: 5 * time.Second})

	var g errgroup.Group
	var confirmed atomic.Int32
	for i := 0; i < 12; i++ {
		i := i
		g.Go(func() error {
			res, err := f.orch.Book(context.Background(), deliveryRequest(day(1+i%3), day(5+i%4)))
			if err == nil {
				confirmed.Add(1)
				return nil
			}
			if res.State != booking.StateRejected {
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	// every window contains day 4, so at most one booking per unit
	assert.Equal(t, int32(3), confirmed.Load())

	for _, id := range []string{"ps5-1", "ps5-2", "ps5-3"} {
		active, err := f.store.ListActiveReservations(context.Background(), id)
		require.NoError(t, err)
		for a := 0; a < len(active); a++ {
			for b := a + 1; b < len(active); b++ {
				assert.False(t, active[a].Overlaps(active[b].StartAt, active[b].EndAt), "unit %s double booked", id)
			}
		}
	}
}

func TestBook_PickupIneligibleNeverReachesResolver(t *testing.T) {
	f := newFixture(t, []string{"ps5-1"}, booking.DefaultConfig())

	for _, ref := range []models.RequesterRef{
		{UserID: "pending"},
		{UserID: "nobody"},
		{Guest: &models.GuestInfo{Name: "Kim", Phone: "555-0101"}},
	} {
		req := deliveryRequest(day(1), day(2))
		req.FulfillmentMode = models.FulfillmentPickup
		req.Address = ""
		req.Requester = ref

		result, err := f.orch.Book(context.Background(), req)
		assert.ErrorIs(t, err, apperror.ConstraintViolation)
		assert.Equal(t, booking.StateRejected, result.State)
		assert.NotContains(t, result.Trail, booking.StateValidated)
	}

	assert.Zero(t, f.store.listUnits.Load())
	assert.Zero(t, f.store.commits.Load())
	assert.Len(t, f.notifier.rejected, 3)
	assert.Equal(t, "constraint_violation", f.notifier.rejected[0].Code)
}

func TestBook_ControllerLimitBeforeMutation(t *testing.T) {
	f := newFixture(t, []string{"ps5-1"}, booking.DefaultConfig())

	req := deliveryRequest(day(1), day(3))
	req.ControllerCount = 3

	result, err := f.orch.Book(context.Background(), req)
	assert.ErrorIs(t, err, apperror.InvalidControllerCount)
	assert.Equal(t, booking.StateRejected, result.State)
	assert.Zero(t, f.store.commits.Load())

	unit, err := f.store.GetUnit(context.Background(), "ps5-1")
	require.NoError(t, err)
	assert.Equal(t, models.UnitReady, unit.Status)
}

func TestBook_GuestDeliveryRecordsContact(t *testing.T) {
	f := newFixture(t, []string{"ps5-1"}, booking.DefaultConfig())

	req := deliveryRequest(day(1), day(11))
	req.Requester = models.RequesterRef{Guest: &models.GuestInfo{Name: "Kim", Phone: "555-0101", Email: "kim@example.com"}}

	result, err := f.orch.Book(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, result.Eligibility.CanPickup)
	assert.Nil(t, result.Reservation.UserID)
	assert.Contains(t, result.Reservation.Notes, "name=Kim")
	assert.Contains(t, result.Reservation.Notes, "phone=555-0101")
	assert.Contains(t, result.Reservation.Notes, "email=kim@example.com")
	assert.Equal(t, models.TierWeekly, result.Reservation.PlanTier)
	assert.Equal(t, int64(1000), result.Reservation.TotalPrice)
}

func TestBook_ValidationErrors(t *testing.T) {
	f := newFixture(t, []string{"ps5-1"}, booking.DefaultConfig())

	tests := []struct {
		name   string
		mutate func(r *booking.Request)
		kind   apperror.Kind
	}{
		{"missing category", func(r *booking.Request) { r.Category = "" }, apperror.KindValidation},
		{"empty window", func(r *booking.Request) { r.EndDate = r.StartDate }, apperror.KindValidation},
		{"reversed window", func(r *booking.Request) { r.StartDate, r.EndDate = r.EndDate, r.StartDate }, apperror.KindValidation},
		{"delivery without address", func(r *booking.Request) { r.Address = " " }, apperror.KindValidation},
		{"unknown mode", func(r *booking.Request) { r.FulfillmentMode = "drone" }, apperror.KindValidation},
		{"negative controllers", func(r *booking.Request) { r.ControllerCount = -1 }, apperror.KindValidation},
		{"guest without phone", func(r *booking.Request) {
			r.Requester = models.RequesterRef{Guest: &models.GuestInfo{Name: "Kim"}}
		}, apperror.KindValidation},
		{"unknown category", func(r *booking.Request) { r.Category = "N64" }, apperror.KindValidation},
		{"partial day", func(r *booking.Request) { r.EndDate = day(2).Add(12 * time.Hour) }, apperror.KindValidation},
		{"local midnight", func(r *booking.Request) {
			r.StartDate = time.Date(2025, time.July, 1, 0, 0, 0, 0, time.FixedZone("EST", -5*3600))
		}, apperror.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := deliveryRequest(day(1), day(3))
			tt.mutate(&req)

			result, err := f.orch.Book(context.Background(), req)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperror.KindOf(err))
			assert.Equal(t, booking.StateRejected, result.State)
		})
	}
	assert.Zero(t, f.store.commits.Load())
}

func TestBook_RetriesAfterConflict(t *testing.T) {
	f := newFixture(t, []string{"ps5-1", "ps5-2"}, booking.DefaultConfig())
	f.store.conflictOnce["ps5-1"] = true

	result, err := f.orch.Book(context.Background(), deliveryRequest(day(1), day(2)))
	require.NoError(t, err)
	assert.Equal(t, "ps5-2", result.Reservation.UnitID)
	assert.Equal(t, 2, result.Attempts)
	assert.Equal(t, int32(2), f.store.commits.Load())
}

func TestBook_ConflictsExhaustAttempts(t *testing.T) {
	f := newFixture(t, []string{"ps5-1", "ps5-2", "ps5-3"}, booking.Config{MaxAttempts: 2, Timeout: time.Second})
	f.store.conflictOnce["ps5-1"] = true
	f.store.conflictOnce["ps5-2"] = true

	result, err := f.orch.Book(context.Background(), deliveryRequest(day(1), day(2)))
	assert.ErrorIs(t, err, apperror.NotAvailable)
	assert.Equal(t, booking.StateRejected, result.State)
	assert.Equal(t, 2, result.Attempts)
}

func TestBook_PartialFailureKeepsUnitHeld(t *testing.T) {
	f := newFixture(t, []string{"ps5-1"}, booking.DefaultConfig())
	f.store.confirmErr = errors.New("disk I/O error")

	result, err := f.orch.Book(context.Background(), deliveryRequest(day(1), day(3)))
	require.NoError(t, err)
	assert.Equal(t, booking.StateConfirmed, result.State)
	assert.True(t, result.RepricePending)

	pending, err := f.store.ListRepricePending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, result.Reservation.ID, pending[0].ID)

	unit, err := f.store.GetUnit(context.Background(), "ps5-1")
	require.NoError(t, err)
	assert.Equal(t, models.UnitRented, unit.Status)

	require.Len(t, f.notifier.flagged, 1)
	assert.Equal(t, result.Reservation.ID, f.notifier.flagged[0].ReservationID)
	require.Len(t, f.notifier.confirmed, 1)
	assert.True(t, f.notifier.confirmed[0].RepricePending)
}

func TestBook_TimeoutAbortsCleanly(t *testing.T) {
	f := newFixture(t, []string{"ps5-1"}, booking.Config{MaxAttempts: 3, Timeout: 50 * time.Millisecond})
	f.store.blockCommit = true

	result, err := f.orch.Book(context.Background(), deliveryRequest(day(1), day(3)))
	assert.ErrorIs(t, err, apperror.Timeout)
	assert.Equal(t, booking.StateErrored, result.State)

	active, err := f.store.ListActiveReservations(context.Background(), "ps5-1")
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestRequest_DatesInAnyLocation(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)

	req := deliveryRequest(day(1).In(est), day(3).In(est))
	require.NoError(t, req.Validate())
	assert.Equal(t, 2, req.Days())

	f := newSQLiteFixture(t, []string{"ps5-1"}, booking.DefaultConfig())
	result, err := f.orch.Book(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int64(200), result.Reservation.TotalPrice)

	stored, err := f.store.GetReservation(context.Background(), result.Reservation.ID)
	require.NoError(t, err)
	assert.True(t, stored.StartAt.Equal(day(1)))
	assert.True(t, stored.EndAt.Equal(day(3)))

	req.EndDate = day(2).Add(12 * time.Hour)
	assert.Equal(t, 2, req.Days())
	assert.ErrorIs(t, req.Validate(), apperror.Validation)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "confirmed", booking.StateConfirmed.String())
	assert.True(t, booking.StateErrored.Terminal())
	assert.False(t, booking.StateAllocated.Terminal())

	b, err := booking.StateRejected.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "rejected", string(b))
}
