// Package policytest provides test doubles for policy implementations.
package policytest

// Hooks is a fake policy.Hooks with a settable frozen set.
type Hooks struct {
	Cap    int
	frozen map[int]bool
}

// NewHooks returns fake hooks for a table of the given capacity.
func NewHooks(capacity int) *Hooks {
	return &Hooks{Cap: capacity, frozen: make(map[int]bool)}
}

func (h *Hooks) Capacity() int         { return h.Cap }
func (h *Hooks) Frozen(index int) bool { return h.frozen[index] }
func (h *Hooks) Freeze(index int)      { h.frozen[index] = true }
func (h *Hooks) Unfreeze(index int)    { delete(h.frozen, index) }
