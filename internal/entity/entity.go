// Package entity defines the contract persisted record types implement and
// the typed outcomes callers receive from writes.
package entity

import "time"

// Entity is implemented by persisted record types. Values and Pointers must
// cover the mapped columns of the type's descriptor, in declared column
// order; the engine handles system columns itself through the embedded
// Versioned record.
type Entity interface {
	// SchemaName returns the registry key of the type's descriptor.
	SchemaName() string
	// Values returns the mapped column values in declared column order.
	Values() []any
	// Pointers returns scan destinations in the same order as Values.
	Pointers() []any
	// Record exposes the embedded version state.
	Record() *Versioned
}

// Versioned carries the engine-owned row state. Entity types embed it; the
// descriptor decides which physical columns back it.
type Versioned struct {
	Version   int64
	LastWrite time.Time
	// ExpiresAt backs the AbsoluteExpiration column of expiry-capable
	// types; nil means the row never expires.
	ExpiresAt *time.Time
}

// Record returns the version state; embedding Versioned satisfies the
// Entity method of the same name.
func (v *Versioned) Record() *Versioned { return v }

// Key is a primary-key value tuple in declared key-column order.
type Key []any
