// Package wraparound implements FIFO replacement: a write counter that wraps
// modulo the table capacity, so the oldest written slot is reused first.
package wraparound

import "github.com/IvanBrykalov/camtable/policy"

type wraparound struct {
	h    policy.Hooks
	next int
}

type wrapPolicy struct{}

// New returns a Policy factory for round-robin replacement.
func New() policy.Policy { return wrapPolicy{} }

func (wrapPolicy) New(h policy.Hooks) policy.Evictor { return &wraparound{h: h} }
func (wrapPolicy) Name() string                      { return "wraparound" }

func (p *wraparound) OnAccess(int) {}

// OnWrite moves the counter past index when index is the slot the counter
// resolves to, i.e. the counter position or the first slot after a run of
// frozen slots starting there. Writes elsewhere are caller-placed rewrites
// and leave the counter alone, so never-written slots keep their turn.
func (p *wraparound) OnWrite(index int) {
	n := p.h.Capacity()
	for k := 0; k < n; k++ {
		i := (p.next + k) % n
		if i == index {
			p.next = (index + 1) % n
			return
		}
		if !p.h.Frozen(i) {
			return
		}
	}
}

// SuggestNext returns the counter position, stepping over frozen slots.
func (p *wraparound) SuggestNext() (int, bool) {
	n := p.h.Capacity()
	for k := 0; k < n; k++ {
		i := (p.next + k) % n
		if !p.h.Frozen(i) {
			return i, true
		}
	}
	return 0, false
}

func (p *wraparound) Reset() { p.next = 0 }
