package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/pos-stock-reservation/internal/model"
	"github.com/iliyamo/pos-stock-reservation/internal/store"
)

func unit(id, variant, warehouse string) *model.Unit {
	return &model.Unit{
		ID:          id,
		VariantID:   variant,
		WarehouseID: warehouse,
		UnitCode:    "C" + id,
		Status:      model.UnitAvailable,
	}
}

func TestTryClaimFirstClaimerWins(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.Seed(unit("u1", "v1", "w1"))

	ok, err := s.TryClaim(ctx, "u1", "R1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.TryClaim(ctx, "u1", "R2")
	require.NoError(t, err)
	assert.False(t, ok, "second claim must lose")

	u, err := s.GetUnit(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, model.UnitReserved, u.Status)
	assert.Equal(t, "R1", u.ReservationID)
}

func TestTryClaimConcurrent(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.Seed(unit("u1", "v1", "w1"))

	const attempts = 32
	wins := make(chan struct{}, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ok, err := s.TryClaim(ctx, "u1", "R")
			if err == nil && ok {
				wins <- struct{}{}
			}
		}(i)
	}
	wg.Wait()
	close(wins)
	count := 0
	for range wins {
		count++
	}
	assert.Equal(t, 1, count, "exactly one concurrent claim may win")
}

func TestReleaseIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.Seed(unit("u1", "v1", "w1"))

	_, err := s.TryClaim(ctx, "u1", "R1")
	require.NoError(t, err)

	ok, err := s.Release(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)

	// Double release is a no-op, never an error.
	ok, err = s.Release(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	u, err := s.GetUnit(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, model.UnitAvailable, u.Status)
	assert.Empty(t, u.ReservationID)
}

func TestReleaseSoldUnitIsNoOp(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.Seed(unit("u1", "v1", "w1"))

	_, err := s.TryClaim(ctx, "u1", "R1")
	require.NoError(t, err)
	ok, err := s.Sell(ctx, "u1", "O1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.Release(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	u, err := s.GetUnit(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, model.UnitSold, u.Status)
	assert.Equal(t, "O1", u.OrderID)
}

func TestSellRequiresReservation(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.Seed(unit("u1", "v1", "w1"))

	ok, err := s.Sell(ctx, "u1", "O1")
	assert.ErrorIs(t, err, store.ErrNotReserved)
	assert.False(t, ok)

	u, err := s.GetUnit(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, model.UnitAvailable, u.Status)
}

func TestStatusInvariants(t *testing.T) {
	// status == RESERVED implies reservation id set; status == SOLD
	// implies order id set, after every transition.
	ctx := context.Background()
	s := New()
	s.Seed(unit("u1", "v1", "w1"))

	check := func() {
		u, err := s.GetUnit(ctx, "u1")
		require.NoError(t, err)
		if u.Status == model.UnitReserved {
			assert.NotEmpty(t, u.ReservationID)
		}
		if u.Status == model.UnitSold {
			assert.NotEmpty(t, u.OrderID)
		}
		if u.Status == model.UnitAvailable {
			assert.Empty(t, u.ReservationID)
		}
	}

	check()
	_, _ = s.TryClaim(ctx, "u1", "R1")
	check()
	_, _ = s.Release(ctx, "u1")
	check()
	_, _ = s.TryClaim(ctx, "u1", "R2")
	check()
	_, _ = s.Sell(ctx, "u1", "O1")
	check()
	_, _ = s.Release(ctx, "u1")
	check()
}

func TestListAvailableExcludesPairedUnits(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.Seed(unit("u1", "v1", "w1"), unit("u2", "v1", "w1"), unit("u3", "v1", "w1"))

	require.NoError(t, s.CreatePairRecord(ctx, &model.Pair{
		ID: "p1", PrimaryUnitID: "u1", SecondaryUnitID: "u2", CombinedCode: "PC1",
	}))

	ids, err := s.ListAvailable(ctx, "v1", "w1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u3"}, ids)
}

func TestCreatePairValidation(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.Seed(unit("u1", "v1", "w1"), unit("u2", "v1", "w1"), unit("u3", "v1", "w1"))

	t.Run("self pair", func(t *testing.T) {
		err := s.CreatePairRecord(ctx, &model.Pair{ID: "p", PrimaryUnitID: "u1", SecondaryUnitID: "u1", CombinedCode: "X"})
		assert.ErrorIs(t, err, store.ErrInvalidPair)
	})

	t.Run("reserved member", func(t *testing.T) {
		_, err := s.TryClaim(ctx, "u3", "R1")
		require.NoError(t, err)
		err = s.CreatePairRecord(ctx, &model.Pair{ID: "p", PrimaryUnitID: "u1", SecondaryUnitID: "u3", CombinedCode: "X"})
		assert.ErrorIs(t, err, store.ErrInvalidPair)
	})

	t.Run("already paired member", func(t *testing.T) {
		require.NoError(t, s.CreatePairRecord(ctx, &model.Pair{ID: "p1", PrimaryUnitID: "u1", SecondaryUnitID: "u2", CombinedCode: "PC1"}))
		err := s.CreatePairRecord(ctx, &model.Pair{ID: "p2", PrimaryUnitID: "u1", SecondaryUnitID: "u2", CombinedCode: "PC2"})
		assert.ErrorIs(t, err, store.ErrInvalidPair)
	})
}

func TestDismantleOnlyWhileAvailable(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.Seed(unit("u1", "v1", "w1"), unit("u2", "v1", "w1"))
	require.NoError(t, s.CreatePairRecord(ctx, &model.Pair{
		ID: "p1", PrimaryUnitID: "u1", SecondaryUnitID: "u2", CombinedCode: "PC1",
	}))

	ok, err := s.SetPairStatus(ctx, "p1", model.PairAvailable, model.PairReserved, "R1")
	require.NoError(t, err)
	require.True(t, ok)

	assert.ErrorIs(t, s.DismantlePairRecord(ctx, "p1"), store.ErrInvalidPair)

	ok, err = s.SetPairStatus(ctx, "p1", model.PairReserved, model.PairAvailable, "")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, s.DismantlePairRecord(ctx, "p1"))
	u, err := s.GetUnit(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, u.PairID)
}

func TestInsertUnitCodeConflict(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.InsertUnit(ctx, &model.Unit{ID: "u1", VariantID: "v1", WarehouseID: "w1", UnitCode: "AC1"}))
	err := s.InsertUnit(ctx, &model.Unit{ID: "u2", VariantID: "v1", WarehouseID: "w1", UnitCode: "AC1"})
	assert.ErrorIs(t, err, store.ErrConflict)
}
