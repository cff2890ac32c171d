package reservation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/pos-stock-reservation/internal/model"
	"github.com/iliyamo/pos-stock-reservation/internal/store"
	"github.com/iliyamo/pos-stock-reservation/internal/store/memory"
)

func seeded(ids ...string) *memory.Store {
	s := memory.New()
	for _, id := range ids {
		s.Seed(&model.Unit{
			ID:          id,
			VariantID:   "v1",
			WarehouseID: "w1",
			UnitCode:    "C" + id,
			Status:      model.UnitAvailable,
		})
	}
	return s
}

func TestReserveUnitsPartial(t *testing.T) {
	ctx := context.Background()
	s := seeded("A", "B", "C")
	m := NewManager(s)

	res, err := m.ReserveUnits(ctx, ReserveInput{
		VariantID: "v1", WarehouseID: "w1", Quantity: 5, ReservationID: "R1",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.ReservedCount, "a short pool is partial success, not an error")
	assert.Len(t, res.Units, 3)
	for _, u := range res.Units {
		assert.Equal(t, model.UnitReserved, u.Status)
		assert.Equal(t, "R1", u.ReservationID)
	}
}

func TestReserveReleaseReserveCycle(t *testing.T) {
	ctx := context.Background()
	s := seeded("A", "B", "C")
	m := NewManager(s)

	res, err := m.ReserveUnits(ctx, ReserveInput{
		VariantID: "v1", WarehouseID: "w1", Quantity: 3, ReservationID: "R1",
	})
	require.NoError(t, err)
	require.Equal(t, 3, res.ReservedCount)

	var ids []string
	for _, u := range res.Units {
		ids = append(ids, u.ID)
	}
	released, err := m.ReleaseUnits(ctx, ids)
	require.NoError(t, err)
	assert.Equal(t, 3, released)

	res, err = m.ReserveUnits(ctx, ReserveInput{
		VariantID: "v1", WarehouseID: "w1", Quantity: 3, ReservationID: "R2",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.ReservedCount, "released units must be claimable again")
}

func TestReserveSpecificUnit(t *testing.T) {
	ctx := context.Background()
	s := seeded("A", "B")
	m := NewManager(s)

	t.Run("claims exactly the named unit", func(t *testing.T) {
		res, err := m.ReserveUnits(ctx, ReserveInput{UnitID: "B", ReservationID: "R1"})
		require.NoError(t, err)
		require.Equal(t, 1, res.ReservedCount)
		assert.Equal(t, "B", res.Units[0].ID)
	})

	t.Run("already claimed yields zero", func(t *testing.T) {
		res, err := m.ReserveUnits(ctx, ReserveInput{UnitID: "B", ReservationID: "R2"})
		require.NoError(t, err)
		assert.Equal(t, 0, res.ReservedCount)
	})

	t.Run("unknown unit", func(t *testing.T) {
		_, err := m.ReserveUnits(ctx, ReserveInput{UnitID: "nope", ReservationID: "R1"})
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("paired unit is rejected", func(t *testing.T) {
		s2 := seeded("P1", "P2")
		m2 := NewManager(s2)
		_, err := m2.CreatePair(ctx, "P1", "P2", "combo-1", "")
		require.NoError(t, err)
		_, err = m2.ReserveUnits(ctx, ReserveInput{UnitID: "P1", ReservationID: "R1"})
		assert.ErrorIs(t, err, store.ErrConflict)
	})
}

func TestReserveUnitsInvalidInput(t *testing.T) {
	ctx := context.Background()
	m := NewManager(memory.New())

	for name, in := range map[string]ReserveInput{
		"missing reservation": {VariantID: "v1", WarehouseID: "w1", Quantity: 1},
		"zero quantity":       {VariantID: "v1", WarehouseID: "w1", ReservationID: "R1"},
		"missing variant":     {WarehouseID: "w1", Quantity: 1, ReservationID: "R1"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := m.ReserveUnits(ctx, in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestReleaseUnitsBestEffort(t *testing.T) {
	ctx := context.Background()
	s := seeded("A", "B")
	m := NewManager(s)

	_, err := m.ReserveUnits(ctx, ReserveInput{UnitID: "A", ReservationID: "R1"})
	require.NoError(t, err)

	// One reserved, one never reserved, one missing: only the first
	// releases, none of them abort the batch.
	released, err := m.ReleaseUnits(ctx, []string{"A", "B", "ghost"})
	require.NoError(t, err)
	assert.Equal(t, 1, released)
}

func TestSetLineQuantity(t *testing.T) {
	ctx := context.Background()

	t.Run("grow", func(t *testing.T) {
		s := seeded("A", "B", "C", "D")
		m := NewManager(s)
		res, err := m.ReserveUnits(ctx, ReserveInput{
			VariantID: "v1", WarehouseID: "w1", Quantity: 2, ReservationID: "R1",
		})
		require.NoError(t, err)
		var ids []string
		for _, u := range res.Units {
			ids = append(ids, u.ID)
		}

		out, err := m.SetLineQuantity(ctx, SetQuantityInput{
			VariantID: "v1", WarehouseID: "w1", ReservationID: "R1",
			UnitIDs: ids, Quantity: 4,
		})
		require.NoError(t, err)
		assert.Equal(t, 2, out.ReservedCount)
		assert.Len(t, out.Units, 4)
	})

	t.Run("shrink releases newest first", func(t *testing.T) {
		s := seeded("A", "B", "C")
		m := NewManager(s)
		res, err := m.ReserveUnits(ctx, ReserveInput{
			VariantID: "v1", WarehouseID: "w1", Quantity: 3, ReservationID: "R1",
		})
		require.NoError(t, err)
		var ids []string
		for _, u := range res.Units {
			ids = append(ids, u.ID)
		}

		out, err := m.SetLineQuantity(ctx, SetQuantityInput{
			ReservationID: "R1", UnitIDs: ids, Quantity: 1,
		})
		require.NoError(t, err)
		assert.Equal(t, 2, out.ReleasedCount)
		assert.Equal(t, ids[:1], out.Units, "earliest claim survives the shrink")

		kept, err := s.GetUnit(ctx, ids[0])
		require.NoError(t, err)
		assert.Equal(t, model.UnitReserved, kept.Status)
		dropped, err := s.GetUnit(ctx, ids[2])
		require.NoError(t, err)
		assert.Equal(t, model.UnitAvailable, dropped.Status)
	})

	t.Run("same quantity is a no-op", func(t *testing.T) {
		m := NewManager(seeded("A"))
		out, err := m.SetLineQuantity(ctx, SetQuantityInput{
			ReservationID: "R1", UnitIDs: []string{"A"}, Quantity: 1,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"A"}, out.Units)
		assert.Zero(t, out.ReservedCount)
		assert.Zero(t, out.ReleasedCount)
	})
}

func TestReservePairAllOrNothing(t *testing.T) {
	ctx := context.Background()

	t.Run("both members claimed", func(t *testing.T) {
		s := seeded("A", "B")
		m := NewManager(s)
		p, err := m.CreatePair(ctx, "A", "B", "combo-1", "")
		require.NoError(t, err)

		require.NoError(t, m.ReservePair(ctx, p.ID, "R1"))
		for _, id := range []string{"A", "B"} {
			u, err := s.GetUnit(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, model.UnitReserved, u.Status)
			assert.Equal(t, "R1", u.ReservationID)
		}
	})

	t.Run("secondary unavailable rolls back primary", func(t *testing.T) {
		s := seeded("A", "B")
		m := NewManager(s)
		p, err := m.CreatePair(ctx, "A", "B", "combo-1", "")
		require.NoError(t, err)

		require.NoError(t, s.MarkDamaged(ctx, "B"))

		err = m.ReservePair(ctx, p.ID, "R1")
		assert.ErrorIs(t, err, store.ErrConflict)

		// Never exactly one member reserved.
		a, err := s.GetUnit(ctx, "A")
		require.NoError(t, err)
		assert.Equal(t, model.UnitAvailable, a.Status)
		got, err := s.GetPair(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, model.PairAvailable, got.Status)
	})

	t.Run("reserved pair rejects a second reservation", func(t *testing.T) {
		s := seeded("A", "B")
		m := NewManager(s)
		p, err := m.CreatePair(ctx, "A", "B", "combo-1", "")
		require.NoError(t, err)
		require.NoError(t, m.ReservePair(ctx, p.ID, "R1"))

		assert.ErrorIs(t, m.ReservePair(ctx, p.ID, "R2"), store.ErrConflict)
	})
}

func TestDismantleReservedPairFails(t *testing.T) {
	ctx := context.Background()
	s := seeded("A", "B")
	m := NewManager(s)
	p, err := m.CreatePair(ctx, "A", "B", "combo-1", "")
	require.NoError(t, err)
	require.NoError(t, m.ReservePair(ctx, p.ID, "R1"))

	assert.ErrorIs(t, m.DismantlePair(ctx, p.ID), store.ErrInvalidPair)

	require.NoError(t, m.ReleasePair(ctx, p.ID))
	require.NoError(t, m.DismantlePair(ctx, p.ID))

	a, err := s.GetUnit(ctx, "A")
	require.NoError(t, err)
	assert.Empty(t, a.PairID)
	assert.Equal(t, model.UnitAvailable, a.Status)
}

func TestReleasePairIdempotent(t *testing.T) {
	ctx := context.Background()
	s := seeded("A", "B")
	m := NewManager(s)
	p, err := m.CreatePair(ctx, "A", "B", "combo-1", "")
	require.NoError(t, err)
	require.NoError(t, m.ReservePair(ctx, p.ID, "R1"))

	require.NoError(t, m.ReleasePair(ctx, p.ID))
	require.NoError(t, m.ReleasePair(ctx, p.ID), "second release is a no-op")
}

func TestReleaseReservation(t *testing.T) {
	ctx := context.Background()
	s := seeded("A", "B", "C", "D")
	m := NewManager(s)

	rid, err := m.StartSession(ctx)
	require.NoError(t, err)

	p, err := m.CreatePair(ctx, "C", "D", "combo-1", "")
	require.NoError(t, err)
	require.NoError(t, m.ReservePair(ctx, p.ID, rid))
	res, err := m.ReserveUnits(ctx, ReserveInput{
		VariantID: "v1", WarehouseID: "w1", Quantity: 2, ReservationID: rid,
	})
	require.NoError(t, err)
	require.Equal(t, 2, res.ReservedCount)

	released, err := m.ReleaseReservation(ctx, rid)
	require.NoError(t, err)
	assert.Equal(t, 3, released, "one pair plus two units")

	for _, id := range []string{"A", "B", "C", "D"} {
		u, err := s.GetUnit(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.UnitAvailable, u.Status, id)
	}
	expired, err := s.ListExpiredReservations(ctx, nowUTC().Add(time.Second))
	require.NoError(t, err)
	assert.NotContains(t, expired, rid, "reservation row is gone")
}
