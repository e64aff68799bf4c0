// Package plru implements tree-based pseudo-LRU replacement.
//
// The table's slots are the leaves of a complete binary tree with
// NextPow2(capacity) leaves. Each inner node stores one direction bit that
// points toward the subtree holding the pseudo-least-recently-used leaf.
// Touching a leaf flips every bit on its root path to point away from it;
// the victim is found by following the bits from the root.
package plru

import (
	"github.com/IvanBrykalov/camtable/internal/util"
	"github.com/IvanBrykalov/camtable/policy"
)

type plru struct {
	h      policy.Hooks
	leaves int
	// right[n] is the direction bit of inner node n (heap order, root = 1):
	// false => victim is in the left subtree, true => in the right subtree.
	right []bool
	// padded is true when the tree has leaves that are not table slots.
	padded bool
}

type plruPolicy struct{}

// New returns a Policy factory for tree pseudo-LRU replacement.
func New() policy.Policy { return plruPolicy{} }

func (plruPolicy) New(h policy.Hooks) policy.Evictor {
	n := int(util.NextPow2(uint64(h.Capacity())))
	return &plru{
		h:      h,
		leaves: n,
		right:  make([]bool, n),
		padded: !util.IsPowerOfTwo(uint64(h.Capacity())),
	}
}

func (plruPolicy) Name() string { return "plru" }

func (p *plru) OnAccess(index int) { p.touch(index) }
func (p *plru) OnWrite(index int)  { p.touch(index) }

// touch points every bit on the leaf's root path away from it.
func (p *plru) touch(index int) {
	for n := index + p.leaves; n > 1; n >>= 1 {
		p.right[n>>1] = n&1 == 0
	}
}

// SuggestNext follows the direction bits. A subtree without an eligible
// leaf (padding only, or all slots frozen) is never entered.
func (p *plru) SuggestNext() (int, bool) {
	if !p.eligible(1) {
		return 0, false
	}
	n := 1
	for n < p.leaves {
		l, r := n<<1, n<<1|1
		next, other := l, r
		if p.right[n] {
			next, other = r, l
		}
		if !p.eligible(next) {
			next = other
		}
		n = next
	}
	return n - p.leaves, true
}

// eligible reports whether the subtree rooted at node n contains a leaf that
// is a real, unfrozen slot.
func (p *plru) eligible(n int) bool {
	depth := util.Log2(uint64(p.leaves)) - util.Log2(uint64(n))
	lo := n<<depth - p.leaves
	hi := lo + 1<<depth
	if !p.padded && hi-lo == 1 {
		return !p.h.Frozen(lo)
	}
	for i := lo; i < hi && i < p.h.Capacity(); i++ {
		if !p.h.Frozen(i) {
			return true
		}
	}
	return false
}

func (p *plru) Reset() { clear(p.right) }
