// Package reclaim guarantees that reservations whose owning session has
// disappeared eventually return their claims to the pool.  Sessions
// cooperate by heartbeating and by releasing on their way out, but the
// authoritative backstop is the periodic sweep here: it asks the store
// for reservations silent past the expiry threshold and releases every
// claim under each.  Release is idempotent, so any number of instances
// can sweep concurrently without coordination.
package reclaim

import (
	"context"
	"log"
	"time"

	"github.com/iliyamo/pos-stock-reservation/internal/reservation"
	"github.com/iliyamo/pos-stock-reservation/internal/store"
)

// DefaultExpiry and DefaultInterval implement the threshold policy: the
// session heartbeat interval (30s on the client) must stay well below
// the expiry threshold so transient disconnects do not cost an active
// cart its claims.
const (
	DefaultExpiry   = 5 * time.Minute
	DefaultInterval = time.Minute
)

// Reclaimer sweeps abandoned reservations on a fixed interval.
type Reclaimer struct {
	store    store.InventoryStore
	manager  *reservation.Manager
	expiry   time.Duration
	interval time.Duration
}

// New returns a Reclaimer.  Non-positive expiry or interval fall back to
// the defaults.
func New(st store.InventoryStore, mgr *reservation.Manager, expiry, interval time.Duration) *Reclaimer {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Reclaimer{store: st, manager: mgr, expiry: expiry, interval: interval}
}

// Run sweeps until the context is cancelled.  Sweep errors are logged
// and retried on the next tick; a failed sweep never stops the loop.
func (r *Reclaimer) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if released, err := r.SweepOnce(ctx); err != nil {
				log.Printf("reclaimer: sweep failed: %v", err)
			} else if released > 0 {
				log.Printf("reclaimer: released %d claims from abandoned reservations", released)
			}
		}
	}
}

// SweepOnce finds every reservation whose last heartbeat is older than
// the expiry threshold and releases all of its claims.  It returns the
// number of claims released.  Safe to call from multiple processes at
// once: a reservation already cleaned by a sibling sweep simply releases
// nothing.
func (r *Reclaimer) SweepOnce(ctx context.Context) (int, error) {
	threshold := time.Now().UTC().Add(-r.expiry)
	ids, err := r.store.ListExpiredReservations(ctx, threshold)
	if err != nil {
		return 0, err
	}
	released := 0
	var lastErr error
	for _, id := range ids {
		n, err := r.manager.ReleaseReservation(ctx, id)
		released += n
		if err != nil {
			// Keep going; the next sweep retries whatever is left.
			lastErr = err
		}
	}
	return released, lastErr
}
