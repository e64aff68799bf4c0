// Package policy defines the contract between a table and its eviction
// (replacement) strategy. Strategies live in subpackages: none, wraparound,
// nru and plru.
package policy

// Hooks expose the table state an Evictor needs when choosing a victim.
// Implementations are provided by the table.
//
// Concurrency: all hook calls happen under the table's exclusive lock.
type Hooks interface {
	// Capacity returns the fixed number of slots in the table.
	Capacity() int
	// Frozen reports whether a write transaction is outstanding for index.
	// Evictors must never suggest a frozen slot.
	Frozen(index int) bool
}

// Evictor is a table-local replacement strategy bound to table hooks.
// All methods are invoked under the table's exclusive lock.
//
// Semantics:
//   - OnAccess is called for every search hit.
//   - OnWrite is called after an entry has been committed to index.
//   - SuggestNext returns the slot the next write should reuse, or false
//     when no slot may be handed out (table full, or every slot frozen).
//   - Reset drops all recency state; it is called on a global clear.
type Evictor interface {
	OnAccess(index int)
	OnWrite(index int)
	SuggestNext() (index int, ok bool)
	Reset()
}

// Exhaustible is implemented by evictors that never reuse a slot.
// Once Full reports true the table refuses further writes until Reset.
type Exhaustible interface {
	Full() bool
}

// Policy is a factory that creates an Evictor bound to a table's hooks.
type Policy interface {
	New(Hooks) Evictor
	// Name is a stable identifier used in logs and configuration.
	Name() string
}
