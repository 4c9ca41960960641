package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/console-zone/rental/internal/storage/models"
)

// InMemoryFallbackStore is a process-local Store used for demos and local runs.
// A single mutex serializes commits, which gives the same guarantee as the
// guarded transaction of RemoteStore within one process.
type InMemoryFallbackStore struct {
	mu           sync.RWMutex
	plans        map[string]models.PlanTier
	units        map[string]models.InventoryUnit
	reservations map[string]models.Reservation
	requesters   map[string]models.Requester
	closed       bool
}

// NewInMemoryFallbackStore returns an empty in-memory store.
func NewInMemoryFallbackStore() *InMemoryFallbackStore {
	return &InMemoryFallbackStore{
		plans:        make(map[string]models.PlanTier),
		units:        make(map[string]models.InventoryUnit),
		reservations: make(map[string]models.Reservation),
		requesters:   make(map[string]models.Requester),
	}
}

func (s *InMemoryFallbackStore) GetPlan(ctx context.Context, category string) (*models.PlanTier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.plans[category]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *InMemoryFallbackStore) ListPlans(ctx context.Context) ([]models.PlanTier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]models.PlanTier, 0, len(s.plans))
	for _, p := range s.plans {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Category < list[j].Category })
	return list, nil
}

func (s *InMemoryFallbackStore) UpsertPlan(ctx context.Context, plan *models.PlanTier) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	plan.UpdatedAt = now()
	s.plans[plan.Category] = *plan
	return nil
}

func (s *InMemoryFallbackStore) ListUnits(ctx context.Context, category string) ([]models.InventoryUnit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var list []models.InventoryUnit
	for _, u := range s.units {
		if category == "" || u.Category == category {
			list = append(list, u)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (s *InMemoryFallbackStore) GetUnit(ctx context.Context, id string) (*models.InventoryUnit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.units[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *InMemoryFallbackStore) CreateUnit(ctx context.Context, unit *models.InventoryUnit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if unit.ID == "" {
		unit.ID = GenerateID()
	}
	if unit.Status == "" {
		unit.Status = models.UnitReady
	}
	unit.CreatedAt = now()
	unit.UpdatedAt = unit.CreatedAt
	s.units[unit.ID] = *unit
	return nil
}

func (s *InMemoryFallbackStore) SetUnitStatus(ctx context.Context, id string, status models.UnitStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.units[id]
	if !ok {
		return ErrNotFound
	}
	u.Status = status
	u.UpdatedAt = now()
	s.units[id] = u
	return nil
}

func (s *InMemoryFallbackStore) ListActiveReservations(ctx context.Context, unitID string) ([]models.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.activeFor(unitID), nil
}

// activeFor must be called with mu held.
func (s *InMemoryFallbackStore) activeFor(unitID string) []models.Reservation {
	var list []models.Reservation
	for _, r := range s.reservations {
		if r.UnitID == unitID && r.Status == models.ReservationActive {
			list = append(list, copyReservation(r))
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].StartAt.Before(list[j].StartAt) })
	return list
}

func (s *InMemoryFallbackStore) GetReservation(ctx context.Context, id string) (*models.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reservations[id]
	if !ok {
		return nil, ErrNotFound
	}
	r = copyReservation(r)
	return &r, nil
}

func (s *InMemoryFallbackStore) CommitReservation(ctx context.Context, res *models.Reservation) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res.StartAt = res.StartAt.UTC()
	res.EndAt = res.EndAt.UTC()

	unit, ok := s.units[res.UnitID]
	if !ok || !unit.Status.Allocatable() {
		return ErrConflict
	}
	for _, existing := range s.activeFor(res.UnitID) {
		if existing.Overlaps(res.StartAt, res.EndAt) {
			return ErrConflict
		}
	}

	if res.ID == "" {
		res.ID = GenerateID()
	}
	res.CreatedAt = now()
	res.UpdatedAt = res.CreatedAt
	res.Addons = nonNilAddons(res.Addons)
	s.reservations[res.ID] = copyReservation(*res)

	if unit.Status == models.UnitReady {
		unit.Status = models.UnitRented
		unit.UpdatedAt = res.CreatedAt
		s.units[unit.ID] = unit
	}
	return nil
}

func (s *InMemoryFallbackStore) ConfirmPrice(ctx context.Context, reservationID string, price PriceUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reservations[reservationID]
	if !ok {
		return ErrNotFound
	}
	r.PlanTier = price.Tier
	r.BasePrice = price.BasePrice
	r.ControllerPrice = price.ControllerPrice
	r.TotalPrice = price.TotalPrice
	r.PriceStatus = models.PriceConfirmed
	r.UpdatedAt = now()
	s.reservations[reservationID] = r
	return nil
}

func (s *InMemoryFallbackStore) ListRepricePending(ctx context.Context, limit int) ([]models.Reservation, error) {
	if limit <= 0 {
		limit = 100
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var list []models.Reservation
	for _, r := range s.reservations {
		if r.Status == models.ReservationActive && r.PriceStatus == models.PricePending {
			list = append(list, copyReservation(r))
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	if len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (s *InMemoryFallbackStore) GetRequester(ctx context.Context, id string) (*models.Requester, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.requesters[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (s *InMemoryFallbackStore) UpsertRequester(ctx context.Context, r *models.Requester) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requesters[r.ID] = *r
	return nil
}

func (s *InMemoryFallbackStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrClosed
	}
	return nil
}

func (s *InMemoryFallbackStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

func copyReservation(r models.Reservation) models.Reservation {
	if r.Addons != nil {
		r.Addons = append([]string(nil), r.Addons...)
	}
	if r.UserID != nil {
		id := *r.UserID
		r.UserID = &id
	}
	return r
}

var _ Store = (*InMemoryFallbackStore)(nil)
