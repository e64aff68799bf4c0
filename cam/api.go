package cam

import "context"

// AutoIndex as Write.Index asks the table to pick the slot recommended by
// its eviction policy, atomically with the write.
const AutoIndex = -1

// SearchResult is the outcome of one query.
type SearchResult struct {
	Found bool
	// Index is the winning slot; meaningful only when Found.
	Index    int
	Metadata uint64
	// Ambiguous is set together with an *IntegrityError when several entries
	// tie; Index then names the lowest of them.
	Ambiguous bool
}

// Write is a proposed entry.
type Write struct {
	// Index is the target slot, or AutoIndex.
	Index int
	Key   uint64
	// PrefixLen is required (1..KeyWidth) under MaxLenPrefix. Elsewhere it
	// must be 0 or KeyWidth.
	PrefixLen int
	Metadata  uint64
}

// WriteResult reports what ProposeWrite did.
type WriteResult struct {
	Committed bool
	// Index is the slot written, or the existing slot of a rejected duplicate.
	Index int
	// RejectedDuplicate is set when the Confirm policy found the key already
	// stored at RejectedDuplicateOf; nothing was changed.
	RejectedDuplicate   bool
	RejectedDuplicateOf int
}

// ScanResult describes the key range a slot currently matches:
// every key k with k&Mask == BaseKey.
type ScanResult struct {
	BaseKey uint64
	Mask    uint64
	Found   bool
}

// Stats is a snapshot of the table's counters.
type Stats struct {
	Hits       uint64
	Misses     uint64
	Commits    uint64
	Duplicates uint64
	Integrity  uint64
	Valid      int
}

// Table is a fixed-capacity associative lookup table (CAM / LPM TCAM).
// All methods are safe for concurrent use; every call is serialized
// against writes, Scan runs under a shared lock.
type Table interface {
	// Search resolves key to a slot. Hits are reported to the eviction policy.
	// Duplicate matches return Ambiguous and an *IntegrityError.
	Search(key uint64) (SearchResult, error)

	// ProposeWrite runs the admission controller for w. Confirm-mode
	// duplicates are not errors: they return RejectedDuplicate.
	ProposeWrite(w Write) (WriteResult, error)

	// SuggestNext returns the slot the eviction policy would overwrite next.
	// The answer is advisory; use Reserve to hold it across calls.
	SuggestNext() (int, error)

	// Reserve returns SuggestNext's slot and freezes it, so no other caller
	// is handed the same slot, until a ProposeWrite to it finishes or
	// Release is called.
	//
	// Reservations carry no owner. Any ProposeWrite naming a reserved slot
	// ends the reservation, so only the reserving caller may write to it;
	// a write from anyone else lets the slot be handed out again while the
	// reserver still holds it.
	Reserve() (int, error)

	// Release aborts a reservation.
	Release(index int)

	// Scan reconstructs the key range that matches slot index by probing the
	// match engine. It never mutates the table.
	Scan(ctx context.Context, index int) (ScanResult, error)

	// Entry reads slot index directly.
	Entry(index int) (Entry, error)

	// Range calls fn for each valid entry in slot order until fn returns false.
	// fn runs under the table's shared lock and must not call the table.
	Range(fn func(index int, e Entry) bool)

	// Clear invalidates every slot, resets the eviction policy and drops
	// reservations.
	Clear()

	State() State
	Len() int
	Capacity() int
	Stats() Stats
}
