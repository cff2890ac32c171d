package sku

import (
	"strings"
	"sync"
	"time"
)

// Candidates returns the ordered list of lookup candidates for a scanned
// or typed code: the raw input trimmed, the normalized form, and the
// normalized form with leading zeros stripped.  Callers try each against
// the store in order and stop at the first hit.  Empty candidates and
// duplicates are dropped, so the matching policy stays declarative and
// each generator testable on its own.
func Candidates(raw string) []string {
	gens := []func(string) string{
		strings.TrimSpace,
		Normalize,
		func(s string) string { return strings.TrimLeft(Normalize(s), "0") },
	}
	seen := make(map[string]struct{}, len(gens))
	out := make([]string, 0, len(gens))
	for _, gen := range gens {
		c := gen(raw)
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// Debouncer rejects repeated scans of the same code inside a short
// window.  Barcode scanners tend to fire several reads per trigger pull;
// the state machine is just {lastCode, lastTimestamp} and is safe for
// concurrent use.
type Debouncer struct {
	mu     sync.Mutex
	window time.Duration
	last   string
	lastAt time.Time
}

// NewDebouncer returns a Debouncer with the given rejection window.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{window: window}
}

// Accept reports whether a scan of code at the given instant should be
// processed.  A repeat of the last code within the window is rejected;
// anything else is accepted and becomes the new last scan.
func (d *Debouncer) Accept(code string, at time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if code == d.last && at.Sub(d.lastAt) < d.window {
		return false
	}
	d.last = code
	d.lastAt = at
	return true
}
