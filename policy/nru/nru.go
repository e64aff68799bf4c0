// Package nru implements a 2-bit not-recently-used replacement policy.
//
// Every slot carries a saturating age in [0, MaxAge]. A hit or a write
// resets the slot's age to 0. The victim is the unfrozen slot with the
// highest age, lowest index first. When no candidate has reached MaxAge
// all ages are bumped by the same amount until one does, so the relative
// order of slots is preserved.
package nru

import "github.com/IvanBrykalov/camtable/policy"

// MaxAge is the saturation value of the per-slot counter (2 bits).
const MaxAge uint8 = 3

type nru struct {
	h   policy.Hooks
	age []uint8
}

type nruPolicy struct{}

// New returns a Policy factory for NRU2 replacement.
func New() policy.Policy { return nruPolicy{} }

func (nruPolicy) New(h policy.Hooks) policy.Evictor {
	p := &nru{h: h, age: make([]uint8, h.Capacity())}
	p.Reset()
	return p
}

func (nruPolicy) Name() string { return "nru2" }

func (p *nru) OnAccess(index int) { p.age[index] = 0 }
func (p *nru) OnWrite(index int)  { p.age[index] = 0 }

// SuggestNext ages the table lazily: it only mutates counters when no
// unfrozen slot is already at MaxAge.
func (p *nru) SuggestNext() (int, bool) {
	best := -1
	for i, a := range p.age {
		if p.h.Frozen(i) {
			continue
		}
		if best < 0 || a > p.age[best] {
			best = i
			if a == MaxAge {
				break
			}
		}
	}
	if best < 0 {
		return 0, false
	}
	if d := MaxAge - p.age[best]; d > 0 {
		for i, a := range p.age {
			p.age[i] = min(a+d, MaxAge)
		}
	}
	return best, true
}

// Reset marks every slot as not recently used.
func (p *nru) Reset() {
	for i := range p.age {
		p.age[i] = MaxAge
	}
}
