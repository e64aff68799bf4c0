// Package none implements the no-eviction policy: slots are handed out in
// ascending order and never reused until the table is cleared.
package none

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/IvanBrykalov/camtable/policy"
)

type none struct {
	h       policy.Hooks
	written *roaring.Bitmap // slots written since the last reset
	low     int             // lowest slot not in written
}

type nonePolicy struct{}

// New returns a Policy factory for the no-eviction strategy.
func New() policy.Policy { return nonePolicy{} }

func (nonePolicy) New(h policy.Hooks) policy.Evictor {
	return &none{h: h, written: roaring.New()}
}

func (nonePolicy) Name() string { return "none" }

// OnAccess is a no-op: usage never influences the fill order.
func (p *none) OnAccess(int) {}

// OnWrite marks index as used. Rewrites of filled slots change nothing.
func (p *none) OnWrite(index int) {
	p.written.Add(uint32(index))
	for p.low < p.h.Capacity() && p.written.Contains(uint32(p.low)) {
		p.low++
	}
}

// SuggestNext returns the lowest slot that is neither written nor frozen.
// A reservation that is released without a write is handed out again.
func (p *none) SuggestNext() (int, bool) {
	for i := p.low; i < p.h.Capacity(); i++ {
		if !p.written.Contains(uint32(i)) && !p.h.Frozen(i) {
			return i, true
		}
	}
	return 0, false
}

// Full reports whether every slot has been written.
func (p *none) Full() bool { return p.low >= p.h.Capacity() }

func (p *none) Reset() {
	p.written.Clear()
	p.low = 0
}

var _ policy.Exhaustible = (*none)(nil)
