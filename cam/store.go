package cam

import "github.com/RoaringBitmap/roaring/v2"

// store is the fixed-capacity slot array. It owns key, prefix and metadata
// storage plus two slot sets: valid (holds a live entry) and frozen
// (reserved by an outstanding write). It has no policy logic.
//
// All methods require the table lock.
type store struct {
	entries []Entry
	valid   *roaring.Bitmap
	frozen  *roaring.Bitmap
}

func newStore(capacity int) *store {
	return &store{
		entries: make([]Entry, capacity),
		valid:   roaring.New(),
		frozen:  roaring.New(),
	}
}

// get returns the slot content; Valid reflects the valid set, so a cleared
// slot reads back invalid even though its old key is still in memory.
func (s *store) get(i int) Entry {
	e := s.entries[i]
	e.Valid = s.valid.Contains(uint32(i))
	return e
}

func (s *store) set(i int, e Entry) {
	e.Valid = true
	s.entries[i] = e
	s.valid.Add(uint32(i))
}

// clearAll invalidates every slot without sweeping the array and drops all
// reservations.
func (s *store) clearAll() {
	s.valid.Clear()
	s.frozen.Clear()
}

func (s *store) len() int { return int(s.valid.GetCardinality()) }

func (s *store) capacity() int { return len(s.entries) }

func (s *store) freeze(i int)        { s.frozen.Add(uint32(i)) }
func (s *store) unfreeze(i int)      { s.frozen.Remove(uint32(i)) }
func (s *store) isFrozen(i int) bool { return s.frozen.Contains(uint32(i)) }
func (s *store) reservations() int   { return int(s.frozen.GetCardinality()) }

// each calls fn for every valid slot in ascending order until fn returns false.
func (s *store) each(fn func(i int, e Entry) bool) {
	it := s.valid.Iterator()
	for it.HasNext() {
		i := int(it.Next())
		if !fn(i, s.get(i)) {
			return
		}
	}
}
