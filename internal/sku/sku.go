// Package sku canonicalizes unit codes and generates new ones.  The same
// normalization is used for generating codes at intake and for matching
// scanned or typed input, so a code always compares equal to itself no
// matter which path produced it.
package sku

import (
	"context"
	"fmt"
	"strings"
)

// Normalize strips every character that is not a letter or digit and
// upper-cases the remainder.  It is pure, total and idempotent:
// Normalize(Normalize(x)) == Normalize(x).
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - ('a' - 'A'))
		case (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Lookup is the slice of the inventory store that code generation needs.
type Lookup interface {
	CodeInUse(ctx context.Context, code string) (bool, error)
}

// Generator resolves code collisions deterministically: when the desired
// base code is already present, it appends a zero-padded numeric suffix
// and increments until a free code is found.  The probe runs against the
// current store state, but the store's uniqueness constraint remains the
// final backstop: callers must treat an insert conflict as "ask for the
// next suffix", not as a fatal error.
type Generator struct {
	lookup Lookup
}

// NewGenerator returns a Generator probing the given lookup.
func NewGenerator(l Lookup) *Generator {
	return &Generator{lookup: l}
}

// maxSuffix bounds the collision probe so a pathological store cannot
// spin the generator forever.
const maxSuffix = 9999

// Next returns the first free code for the normalized base, starting
// with the base itself and then base01, base02, ...  The skip parameter
// tells Next how many suffixes to pass over; callers bump it after an
// insert conflict so concurrent generations walk past each other.
func (g *Generator) Next(ctx context.Context, base string, skip int) (string, error) {
	code := Normalize(base)
	if code == "" {
		return "", fmt.Errorf("empty code after normalization: %q", base)
	}
	n := 0
	for suffix := 0; suffix <= maxSuffix; suffix++ {
		candidate := code
		if suffix > 0 {
			candidate = fmt.Sprintf("%s%02d", code, suffix)
		}
		used, err := g.lookup.CodeInUse(ctx, candidate)
		if err != nil {
			return "", err
		}
		if used {
			continue
		}
		if n < skip {
			n++
			continue
		}
		return candidate, nil
	}
	return "", fmt.Errorf("no free code for base %q", code)
}
