package cam

import (
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
)

// matcher indexes valid entries by prefix length: levels[p] maps the
// p-bit masked key to the slots storing it, in ascending slot order.
// Exact tables only populate levels[width]. Longest-prefix lookups probe
// levels from width down to 1 and stop at the first populated bucket.
//
// All methods require the table lock.
type matcher struct {
	width  int
	levels []map[uint64][]int
}

func newMatcher(width int) *matcher {
	return &matcher{width: width, levels: make([]map[uint64][]int, width+1)}
}

func (m *matcher) bucketKey(key uint64, plen int) uint64 {
	return key & prefixMask(plen, m.width)
}

func (m *matcher) insert(i int, e Entry) {
	lvl := m.levels[e.PrefixLen]
	if lvl == nil {
		lvl = make(map[uint64][]int)
		m.levels[e.PrefixLen] = lvl
	}
	k := m.bucketKey(e.Key, e.PrefixLen)
	b := lvl[k]
	pos, found := slices.BinarySearch(b, i)
	if !found {
		lvl[k] = slices.Insert(b, pos, i)
	}
}

func (m *matcher) remove(i int, e Entry) {
	lvl := m.levels[e.PrefixLen]
	k := m.bucketKey(e.Key, e.PrefixLen)
	b := lvl[k]
	pos, found := slices.BinarySearch(b, i)
	if !found {
		return
	}
	b = slices.Delete(b, pos, pos+1)
	if len(b) == 0 {
		delete(lvl, k)
		return
	}
	lvl[k] = b
}

func (m *matcher) reset() { clear(m.levels) }

// bucket returns the slots storing exactly (key & mask(plen), plen).
func (m *matcher) bucket(key uint64, plen int) []int {
	lvl := m.levels[plen]
	if len(lvl) == 0 {
		return nil
	}
	return lvl[m.bucketKey(key, plen)]
}

// exact returns every slot whose key equals key bit for bit.
func (m *matcher) exact(key uint64) []int { return m.bucket(key, m.width) }

// longest returns the slots holding the longest prefix that covers key,
// and that prefix length. More than one slot means a tie.
func (m *matcher) longest(key uint64) (int, []int) {
	for p := m.width; p >= 1; p-- {
		if b := m.bucket(key, p); len(b) > 0 {
			return p, b
		}
	}
	return 0, nil
}

// matchLines returns the raw match vector for key: every slot whose stored
// prefix covers it, before any priority resolution.
func (m *matcher) matchLines(key uint64) *roaring.Bitmap {
	bm := roaring.New()
	for p := m.width; p >= 1; p-- {
		for _, i := range m.bucket(key, p) {
			bm.Add(uint32(i))
		}
	}
	return bm
}
