package cam

import (
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/IvanBrykalov/camtable/internal/util"
	"github.com/IvanBrykalov/camtable/policy"
	"github.com/IvanBrykalov/camtable/policy/none"
)

// table is the single owner of the entry store, match engine and eviction
// state. mu serializes writes, searches (they update recency state) and
// policy queries; Scan and read-only accessors take it shared.
type table struct {
	// ---- guarded by mu ----
	mu    sync.RWMutex
	store *store
	match *matcher
	ev    policy.Evictor
	state State

	keyMask  uint64
	metaMask uint64
	opt      Options
	log      *zap.Logger

	// ---- counters (updated under mu, read lock-free by Stats) ----
	_          util.CacheLinePad
	hits       util.PaddedAtomicUint64
	misses     util.PaddedAtomicUint64
	commits    util.PaddedAtomicUint64
	duplicates util.PaddedAtomicUint64
	integrity  util.PaddedAtomicUint64
}

// New constructs a table with the provided Options.
// Defaults are documented on Options.
func New(opt Options) (Table, error) {
	opt.setDefaults()
	if err := opt.validate(); err != nil {
		return nil, err
	}
	if opt.Policy == nil {
		opt.Policy = none.New()
	}

	t := &table{
		store:    newStore(opt.Capacity),
		match:    newMatcher(opt.KeyWidth),
		keyMask:  widthMask(opt.KeyWidth),
		metaMask: widthMask(opt.MetaWidth),
		opt:      opt,
		log: opt.Logger.With(
			zap.Int("capacity", opt.Capacity),
			zap.Stringer("write_policy", opt.WritePolicy),
			zap.String("eviction", opt.Policy.Name()),
		),
	}
	t.ev = opt.Policy.New(tableHooks{t: t})
	t.init()
	return t, nil
}

// MustNew is like New but panics on invalid options.
func MustNew(opt Options) Table {
	t, err := New(opt)
	if err != nil {
		panic(err)
	}
	return t
}

// Search resolves key and reports a hit to the eviction policy.
func (t *table) Search(key uint64) (SearchResult, error) {
	if key&^t.keyMask != 0 {
		return SearchResult{}, fmt.Errorf("%w: key %#x wider than %d bits", ErrInvalidArgument, key, t.opt.KeyWidth)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	res, err := t.lookup(key)
	switch {
	case err != nil:
		t.reportIntegrity(err)
	case res.Found:
		t.ev.OnAccess(res.Index)
		t.hits.Add(1)
		t.opt.Metrics.Hit()
	default:
		t.misses.Add(1)
		t.opt.Metrics.Miss()
	}
	return res, err
}

// SuggestNext asks the eviction policy for the next victim.
func (t *table) SuggestNext() (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.suggestLocked()
}

// Reserve hands out the next victim and freezes it.
func (t *table) Reserve() (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	i, err := t.suggestLocked()
	if err != nil {
		return 0, err
	}
	t.store.freeze(i)
	t.log.Debug("slot reserved", zap.Int("index", i))
	return i, nil
}

// Release unfreezes index. Releasing an unreserved slot is a no-op.
func (t *table) Release(index int) {
	if index < 0 || index >= t.opt.Capacity {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.store.unfreeze(index)
}

// Entry returns the content of slot index.
func (t *table) Entry(index int) (Entry, error) {
	if err := t.checkIndex(index); err != nil {
		return Entry{}, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.store.get(index), nil
}

func (t *table) Range(fn func(index int, e Entry) bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	t.store.each(fn)
}

// Clear drops every entry and restarts the controller from Init.
func (t *table) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	dropped := t.store.len()
	t.init()
	t.log.Info("table cleared", zap.Int("dropped", dropped))
}

func (t *table) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

func (t *table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.store.len()
}

func (t *table) Capacity() int { return t.opt.Capacity }

func (t *table) Stats() Stats {
	return Stats{
		Hits:       t.hits.Load(),
		Misses:     t.misses.Load(),
		Commits:    t.commits.Load(),
		Duplicates: t.duplicates.Load(),
		Integrity:  t.integrity.Load(),
		Valid:      t.Len(),
	}
}

// -------------------- internals (mu held) --------------------

// lookup runs the match engine without side effects.
func (t *table) lookup(key uint64) (SearchResult, error) {
	var (
		idx  []int
		plen = t.opt.KeyWidth
	)
	if t.opt.WritePolicy == MaxLenPrefix {
		plen, idx = t.match.longest(key)
	} else {
		idx = t.match.exact(key)
	}
	if len(idx) == 0 {
		return SearchResult{}, nil
	}

	res := SearchResult{
		Found:    true,
		Index:    idx[0],
		Metadata: t.store.get(idx[0]).Metadata,
	}
	if len(idx) > 1 {
		res.Ambiguous = true
		return res, &IntegrityError{Key: key, PrefixLen: plen, Indices: slices.Clone(idx)}
	}
	return res, nil
}

func (t *table) suggestLocked() (int, error) {
	if t.state == StateFull {
		return 0, fmt.Errorf("%w: %d slots written", ErrCapacity, t.opt.Capacity)
	}
	i, ok := t.ev.SuggestNext()
	if !ok {
		return 0, fmt.Errorf("%w: no slot available (%d reserved)", ErrCapacity, t.store.reservations())
	}
	return i, nil
}

func (t *table) checkIndex(index int) error {
	if index < 0 || index >= t.opt.Capacity {
		return fmt.Errorf("%w: index %d outside [0, %d)", ErrInvalidArgument, index, t.opt.Capacity)
	}
	return nil
}

func (t *table) reportIntegrity(err error) {
	t.integrity.Add(1)
	t.opt.Metrics.Integrity()
	t.log.Warn("integrity violation, table should be cleared", zap.Error(err))
}

// -------------------- policy hooks --------------------

// tableHooks adapts the table to policy.Hooks. Evictors call it under mu.
type tableHooks struct{ t *table }

func (h tableHooks) Capacity() int         { return h.t.opt.Capacity }
func (h tableHooks) Frozen(index int) bool { return h.t.store.isFrozen(index) }
