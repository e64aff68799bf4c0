package cam

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/IvanBrykalov/camtable/policy"
)

// State is the admission controller state.
//
//	Init -> Idle <-> Checking <-> Writing -> Full
//
// Checking and Writing only exist inside a ProposeWrite call; callers
// observe Idle or Full.
type State int

const (
	StateInit State = iota
	StateIdle
	StateChecking
	StateWriting
	// StateFull refuses writes until Clear; reachable under the none policy only.
	StateFull
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateIdle:
		return "idle"
	case StateChecking:
		return "checking"
	case StateWriting:
		return "writing"
	case StateFull:
		return "full"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ProposeWrite validates w, runs the write policy and commits.
// The whole check-then-commit sequence runs under the exclusive lock.
func (t *table) ProposeWrite(w Write) (WriteResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	res, err := t.admit(w)
	switch {
	case res.Committed:
		t.commits.Add(1)
		t.opt.Metrics.Write(WriteCommitted)
	case res.RejectedDuplicate:
		t.duplicates.Add(1)
		t.opt.Metrics.Write(WriteDuplicate)
	default:
		t.opt.Metrics.Write(WriteFailed)
	}
	if errors.Is(err, ErrIntegrity) {
		t.reportIntegrity(err)
	}
	t.opt.Metrics.Size(t.store.len())
	return res, err
}

func (t *table) admit(w Write) (WriteResult, error) {
	e, err := t.normalize(w)
	if err != nil {
		return WriteResult{}, err
	}
	if t.state == StateFull {
		return WriteResult{}, fmt.Errorf("%w: %d slots written", ErrCapacity, t.opt.Capacity)
	}

	if t.opt.WritePolicy == Confirm {
		// Duplicates are reported before a slot is chosen.
		t.transition(StateChecking)
		dup := t.match.exact(e.Key)
		if len(dup) > 0 {
			t.transition(StateIdle)
			if w.Index != AutoIndex {
				t.store.unfreeze(w.Index)
			}
			if len(dup) > 1 {
				return WriteResult{}, &IntegrityError{Key: e.Key, PrefixLen: e.PrefixLen, Indices: append([]int(nil), dup...)}
			}
			return WriteResult{
				Index:               dup[0],
				RejectedDuplicate:   true,
				RejectedDuplicateOf: dup[0],
			}, nil
		}
	}

	index := w.Index
	if index == AutoIndex {
		if index, err = t.suggestLocked(); err != nil {
			t.transition(StateIdle)
			return WriteResult{}, err
		}
	}
	// The slot is settled by this call whatever the outcome.
	defer t.store.unfreeze(index)

	t.transition(StateWriting)
	t.commit(index, e)
	res := WriteResult{Committed: true, Index: index}

	if ex, ok := t.ev.(policy.Exhaustible); ok && ex.Full() {
		t.transition(StateFull)
	} else {
		t.transition(StateIdle)
	}

	if t.opt.WritePolicy == MaxLenPrefix {
		// The caller keeps (prefix, length) pairs unique; a tie after commit
		// is reported, not undone.
		if tied := t.match.bucket(e.Key, e.PrefixLen); len(tied) > 1 {
			return res, &IntegrityError{Key: e.Key & e.Mask(t.opt.KeyWidth), PrefixLen: e.PrefixLen, Indices: append([]int(nil), tied...)}
		}
	}
	return res, nil
}

// normalize checks w against the table geometry and write policy.
func (t *table) normalize(w Write) (Entry, error) {
	if w.Index != AutoIndex {
		if err := t.checkIndex(w.Index); err != nil {
			return Entry{}, err
		}
	}
	if w.Key&^t.keyMask != 0 {
		return Entry{}, fmt.Errorf("%w: key %#x wider than %d bits", ErrInvalidArgument, w.Key, t.opt.KeyWidth)
	}
	if w.Metadata&^t.metaMask != 0 {
		return Entry{}, fmt.Errorf("%w: metadata %#x wider than %d bits", ErrInvalidArgument, w.Metadata, t.opt.MetaWidth)
	}

	plen := w.PrefixLen
	if t.opt.WritePolicy == MaxLenPrefix {
		if plen < 1 || plen > t.opt.KeyWidth {
			return Entry{}, fmt.Errorf("%w: prefix length %d outside [1, %d]", ErrInvalidArgument, plen, t.opt.KeyWidth)
		}
	} else {
		if plen != 0 && plen != t.opt.KeyWidth {
			return Entry{}, fmt.Errorf("%w: prefix length %d under %s policy", ErrInvalidArgument, plen, t.opt.WritePolicy)
		}
		plen = t.opt.KeyWidth
	}
	return Entry{Key: w.Key, PrefixLen: plen, Metadata: w.Metadata, Valid: true}, nil
}

// commit replaces slot index with e and notifies the eviction policy.
func (t *table) commit(index int, e Entry) {
	if old := t.store.get(index); old.Valid {
		t.match.remove(index, old)
		t.log.Debug("entry replaced",
			zap.Int("index", index),
			zap.Uint64("old_key", old.Key),
			zap.Uint64("key", e.Key))
	}
	t.store.set(index, e)
	t.match.insert(index, e)
	t.ev.OnWrite(index)
}

// init resets storage and policy state and moves the controller to Idle.
func (t *table) init() {
	t.transition(StateInit)
	t.store.clearAll()
	t.match.reset()
	t.ev.Reset()
	t.opt.Metrics.Size(0)
	t.transition(StateIdle)
}

func (t *table) transition(s State) {
	if t.state == s {
		return
	}
	if ce := t.log.Check(zap.DebugLevel, "state transition"); ce != nil {
		ce.Write(zap.Stringer("from", t.state), zap.Stringer("to", s))
	}
	t.state = s
}
