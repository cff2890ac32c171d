// Package memory provides an in-process InventoryStore backed by maps
// and a single mutex. It is the reference implementation of the store
// contract: unit tests run against it, and a single-terminal deployment
// can use it directly instead of MySQL. All state-machine legality rules
// live here exactly as the MySQL implementation enforces them with
// conditional UPDATEs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/pos-stock-reservation/internal/model"
	"github.com/iliyamo/pos-stock-reservation/internal/store"
)

// Store is a map-backed InventoryStore.  The zero value is not usable;
// call New.
type Store struct {
	mu         sync.Mutex
	units      map[string]*model.Unit
	pairs      map[string]*model.Pair
	heartbeats map[string]*model.Reservation
	movements  []*model.StockMovement
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		units:      make(map[string]*model.Unit),
		pairs:      make(map[string]*model.Pair),
		heartbeats: make(map[string]*model.Reservation),
	}
}

// Seed inserts units without code-uniqueness checks.  Test helper.
func (s *Store) Seed(units ...*model.Unit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range units {
		cp := *u
		if cp.Status == "" {
			cp.Status = model.UnitAvailable
		}
		s.units[cp.ID] = &cp
	}
}

func (s *Store) TryClaim(ctx context.Context, unitID, reservationID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.units[unitID]
	if !ok {
		return false, store.ErrNotFound
	}
	if u.Status != model.UnitAvailable {
		return false, nil
	}
	u.Status = model.UnitReserved
	u.ReservationID = reservationID
	u.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (s *Store) Release(ctx context.Context, unitID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.units[unitID]
	if !ok {
		return false, store.ErrNotFound
	}
	if u.Status != model.UnitReserved {
		// Already available, sold or damaged: double release is a no-op.
		return false, nil
	}
	u.Status = model.UnitAvailable
	u.ReservationID = ""
	u.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (s *Store) Sell(ctx context.Context, unitID, orderID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.units[unitID]
	if !ok {
		return false, store.ErrNotFound
	}
	if u.Status != model.UnitReserved {
		return false, store.ErrNotReserved
	}
	u.Status = model.UnitSold
	u.OrderID = orderID
	u.ReservationID = ""
	u.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (s *Store) MarkDamaged(ctx context.Context, unitID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.units[unitID]
	if !ok {
		return store.ErrNotFound
	}
	if u.Status == model.UnitSold || u.Status == model.UnitDamaged {
		return store.ErrConflict
	}
	u.Status = model.UnitDamaged
	u.ReservationID = ""
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) GetUnit(ctx context.Context, unitID string) (*model.Unit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.units[unitID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Store) LookupUnitByCode(ctx context.Context, code string) (*model.Unit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.units {
		if u.UnitCode == code {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) CodeInUse(ctx context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.units {
		if u.UnitCode == code {
			return true, nil
		}
	}
	for _, p := range s.pairs {
		if p.CombinedCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) ListAvailable(ctx context.Context, variantID, warehouseID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for _, u := range s.units {
		if u.VariantID == variantID && u.WarehouseID == warehouseID &&
			u.Status == model.UnitAvailable && u.PairID == "" {
			ids = append(ids, u.ID)
		}
	}
	// Deterministic order keeps selection behavior predictable in tests.
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) InsertUnit(ctx context.Context, u *model.Unit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.units[u.ID]; ok {
		return store.ErrConflict
	}
	for _, existing := range s.units {
		if existing.UnitCode == u.UnitCode {
			return store.ErrConflict
		}
	}
	cp := *u
	if cp.Status == "" {
		cp.Status = model.UnitAvailable
	}
	now := time.Now().UTC()
	cp.CreatedAt = now
	cp.UpdatedAt = now
	s.units[cp.ID] = &cp
	return nil
}

func (s *Store) CreatePairRecord(ctx context.Context, p *model.Pair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.PrimaryUnitID == p.SecondaryUnitID {
		return store.ErrInvalidPair
	}
	a, okA := s.units[p.PrimaryUnitID]
	b, okB := s.units[p.SecondaryUnitID]
	if !okA || !okB {
		return store.ErrNotFound
	}
	if a.Status != model.UnitAvailable || b.Status != model.UnitAvailable ||
		a.PairID != "" || b.PairID != "" {
		return store.ErrInvalidPair
	}
	cp := *p
	cp.Status = model.PairAvailable
	now := time.Now().UTC()
	cp.CreatedAt = now
	cp.UpdatedAt = now
	s.pairs[cp.ID] = &cp
	// Pairing only creates the association; both units stay AVAILABLE
	// until the pair itself is reserved.
	a.PairID = cp.ID
	b.PairID = cp.ID
	return nil
}

func (s *Store) DismantlePairRecord(ctx context.Context, pairID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pairs[pairID]
	if !ok {
		return store.ErrNotFound
	}
	if p.Status != model.PairAvailable {
		return store.ErrInvalidPair
	}
	if a, ok := s.units[p.PrimaryUnitID]; ok {
		a.PairID = ""
	}
	if b, ok := s.units[p.SecondaryUnitID]; ok {
		b.PairID = ""
	}
	delete(s.pairs, pairID)
	return nil
}

func (s *Store) GetPair(ctx context.Context, pairID string) (*model.Pair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pairs[pairID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Store) LookupPairByCode(ctx context.Context, code string) (*model.Pair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.pairs {
		if p.CombinedCode == code {
			cp := *p
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) SetPairStatus(ctx context.Context, pairID, from, to, reservationID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pairs[pairID]
	if !ok {
		return false, store.ErrNotFound
	}
	if p.Status != from {
		return false, nil
	}
	p.Status = to
	p.ReservationID = reservationID
	p.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (s *Store) UpsertHeartbeat(ctx context.Context, reservationID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.heartbeats[reservationID]; ok {
		r.LastHeartbeatAt = at
		return nil
	}
	s.heartbeats[reservationID] = &model.Reservation{
		ID:              reservationID,
		CreatedAt:       at,
		LastHeartbeatAt: at,
	}
	return nil
}

func (s *Store) ListExpiredReservations(ctx context.Context, threshold time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, r := range s.heartbeats {
		if r.Abandoned(threshold) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) UnitsByReservation(ctx context.Context, reservationID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for _, u := range s.units {
		if u.Status == model.UnitReserved && u.ReservationID == reservationID {
			ids = append(ids, u.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) PairsByReservation(ctx context.Context, reservationID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for _, p := range s.pairs {
		if p.Status == model.PairReserved && p.ReservationID == reservationID {
			ids = append(ids, p.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) DeleteReservation(ctx context.Context, reservationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.heartbeats, reservationID)
	return nil
}

func (s *Store) InsertMovement(ctx context.Context, m *model.StockMovement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	s.movements = append(s.movements, &cp)
	return nil
}

// Movements returns a copy of all recorded stock movements.  Test helper.
func (s *Store) Movements() []*model.StockMovement {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.StockMovement, len(s.movements))
	copy(out, s.movements)
	return out
}
