package reclaim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/pos-stock-reservation/internal/model"
	"github.com/iliyamo/pos-stock-reservation/internal/reservation"
	"github.com/iliyamo/pos-stock-reservation/internal/store/memory"
)

func TestSweepOnceReleasesStaleReservations(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	s.Seed(
		&model.Unit{ID: "A", VariantID: "v1", WarehouseID: "w1", UnitCode: "CA"},
		&model.Unit{ID: "B", VariantID: "v1", WarehouseID: "w1", UnitCode: "CB"},
	)
	m := reservation.NewManager(s)
	r := New(s, m, 5*time.Minute, time.Minute)

	// A terminal crashed six minutes ago with two units claimed.
	now := time.Now().UTC()
	require.NoError(t, s.UpsertHeartbeat(ctx, "stale", now.Add(-6*time.Minute)))
	ok, err := s.TryClaim(ctx, "A", "stale")
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = s.TryClaim(ctx, "B", "stale")
	require.NoError(t, err)
	require.True(t, ok)

	released, err := r.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, released)

	for _, id := range []string{"A", "B"} {
		u, err := s.GetUnit(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.UnitAvailable, u.Status, id)
		assert.Empty(t, u.ReservationID)
	}
}

func TestSweepOnceSparesHeartbeatingSessions(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	s.Seed(&model.Unit{ID: "A", VariantID: "v1", WarehouseID: "w1", UnitCode: "CA"})
	m := reservation.NewManager(s)
	r := New(s, m, 5*time.Minute, time.Minute)

	now := time.Now().UTC()
	require.NoError(t, s.UpsertHeartbeat(ctx, "alive", now.Add(-4*time.Minute)))
	ok, err := s.TryClaim(ctx, "A", "alive")
	require.NoError(t, err)
	require.True(t, ok)

	released, err := r.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, released)

	u, err := s.GetUnit(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, model.UnitReserved, u.Status)

	// One fresh heartbeat resets the clock past the threshold.
	require.NoError(t, m.Heartbeat(ctx, "alive"))
	released, err = r.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, released)
}

func TestSweepOnceReleasesPairs(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	s.Seed(
		&model.Unit{ID: "A", VariantID: "v1", WarehouseID: "w1", UnitCode: "CA"},
		&model.Unit{ID: "B", VariantID: "v1", WarehouseID: "w1", UnitCode: "CB"},
	)
	m := reservation.NewManager(s)
	r := New(s, m, 5*time.Minute, time.Minute)

	p, err := m.CreatePair(ctx, "A", "B", "combo-1", "")
	require.NoError(t, err)
	require.NoError(t, s.UpsertHeartbeat(ctx, "stale", time.Now().UTC().Add(-10*time.Minute)))
	require.NoError(t, m.ReservePair(ctx, p.ID, "stale"))

	released, err := r.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, released, "the pair counts as one released claim")

	got, err := s.GetPair(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PairAvailable, got.Status)
	for _, id := range []string{"A", "B"} {
		u, err := s.GetUnit(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.UnitAvailable, u.Status, id)
	}
}

func TestConcurrentSweepsDoNotDoubleRelease(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	s.Seed(&model.Unit{ID: "A", VariantID: "v1", WarehouseID: "w1", UnitCode: "CA"})
	m := reservation.NewManager(s)
	r := New(s, m, 5*time.Minute, time.Minute)

	require.NoError(t, s.UpsertHeartbeat(ctx, "stale", time.Now().UTC().Add(-10*time.Minute)))
	ok, err := s.TryClaim(ctx, "A", "stale")
	require.NoError(t, err)
	require.True(t, ok)

	first, err := r.SweepOnce(ctx)
	require.NoError(t, err)
	second, err := r.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, first)
	assert.Zero(t, second, "a sibling sweep finds nothing left")
}

func TestNewAppliesDefaults(t *testing.T) {
	s := memory.New()
	r := New(s, reservation.NewManager(s), 0, 0)
	assert.Equal(t, DefaultExpiry, r.expiry)
	assert.Equal(t, DefaultInterval, r.interval)
}
