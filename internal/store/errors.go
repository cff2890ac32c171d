// Package store defines the inventory store contract the reservation
// engine is written against, together with the sentinel errors shared by
// every implementation. Higher layers such as handlers use these
// sentinels to distinguish failure scenarios: a Conflict is recoverable
// by retrying or by treating the outcome as "no stock", while NotFound
// and InvalidPair indicate caller mistakes that must not be retried.
package store

import "errors"

// ErrConflict is returned when a unit or pair is no longer in the state
// an operation expects, e.g. claiming a unit that another session
// reserved first. Callers should treat it as "someone else got there"
// rather than as a failure.
var ErrConflict = errors.New("conflict")

// ErrNotReserved is returned when sell is attempted on a unit that is
// not currently reserved.
var ErrNotReserved = errors.New("not reserved")

// ErrNotFound is returned when the referenced unit, pair or reservation
// does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidPair is returned when a pair operation is illegal: binding a
// unit to itself, binding units that are unavailable or already paired,
// or dismantling a pair that is not AVAILABLE.
var ErrInvalidPair = errors.New("invalid pair")

// ErrStoreUnavailable is returned when the backing store cannot be
// reached. It is the only store error that should surface to users as a
// hard failure ("try again").
var ErrStoreUnavailable = errors.New("store unavailable")
