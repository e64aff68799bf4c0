package cam

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/IvanBrykalov/camtable/policy"
	"github.com/IvanBrykalov/camtable/policy/none"
	"github.com/IvanBrykalov/camtable/policy/nru"
	"github.com/IvanBrykalov/camtable/policy/plru"
	"github.com/IvanBrykalov/camtable/policy/wraparound"
)

func newTable(t *testing.T, opt Options) Table {
	t.Helper()
	tb, err := New(opt)
	require.NoError(t, err)
	return tb
}

// Confirm policy: a second write of the same key is discarded and reports
// the slot that already holds it.
func TestTable_ConfirmRejectsDuplicate(t *testing.T) {
	t.Parallel()

	tb := newTable(t, Options{Capacity: 4, KeyWidth: 8, WritePolicy: Confirm})

	res, err := tb.ProposeWrite(Write{Index: AutoIndex, Key: 0xAA, Metadata: 1})
	require.NoError(t, err)
	require.Equal(t, WriteResult{Committed: true, Index: 0}, res)

	res, err = tb.ProposeWrite(Write{Index: AutoIndex, Key: 0xAA, Metadata: 2})
	require.NoError(t, err)
	require.Equal(t, WriteResult{Index: 0, RejectedDuplicate: true, RejectedDuplicateOf: 0}, res)

	hit, err := tb.Search(0xAA)
	require.NoError(t, err)
	require.Equal(t, SearchResult{Found: true, Index: 0, Metadata: 1}, hit)

	st := tb.Stats()
	require.Equal(t, uint64(1), st.Commits)
	require.Equal(t, uint64(1), st.Duplicates)
	require.Equal(t, uint64(1), st.Hits)
	require.Equal(t, 1, st.Valid)
}

// MaxLenPrefix: the longest covering prefix wins.
func TestTable_LongestPrefixWins(t *testing.T) {
	t.Parallel()

	tb := newTable(t, Options{Capacity: 4, KeyWidth: 8, WritePolicy: MaxLenPrefix})

	_, err := tb.ProposeWrite(Write{Index: 0, Key: 0b1000_0000, PrefixLen: 1, Metadata: 10})
	require.NoError(t, err)
	_, err = tb.ProposeWrite(Write{Index: 1, Key: 0b1010_0000, PrefixLen: 3, Metadata: 11})
	require.NoError(t, err)

	res, err := tb.Search(0b1011_1111)
	require.NoError(t, err)
	require.Equal(t, SearchResult{Found: true, Index: 1, Metadata: 11}, res)

	res, err = tb.Search(0b1100_0000)
	require.NoError(t, err)
	require.Equal(t, 0, res.Index)

	res, err = tb.Search(0b0111_1111)
	require.NoError(t, err)
	require.False(t, res.Found)
}

// A prefix tie is flagged on commit and on every later search it affects.
func TestTable_PrefixTieIsIntegrityError(t *testing.T) {
	t.Parallel()

	tb := newTable(t, Options{Capacity: 4, KeyWidth: 8, WritePolicy: MaxLenPrefix})

	_, err := tb.ProposeWrite(Write{Index: 0, Key: 0b1010_0000, PrefixLen: 3})
	require.NoError(t, err)
	res, err := tb.ProposeWrite(Write{Index: 2, Key: 0b1011_0000, PrefixLen: 3})
	require.ErrorIs(t, err, ErrIntegrity)
	require.True(t, res.Committed)

	var ie *IntegrityError
	require.True(t, errors.As(err, &ie))
	require.Equal(t, []int{0, 2}, ie.Indices)
	require.Equal(t, uint64(0b1010_0000), ie.Key)

	hit, err := tb.Search(0b1010_0101)
	require.ErrorIs(t, err, ErrIntegrity)
	require.True(t, hit.Ambiguous)
	require.Equal(t, 0, hit.Index)

	tb.Clear()
	hit, err = tb.Search(0b1010_0101)
	require.NoError(t, err)
	require.False(t, hit.Found)
	require.Equal(t, uint64(2), tb.Stats().Integrity)
}

// Simple policy trusts the caller; duplicate keys surface on search.
func TestTable_SimpleDuplicateSurfacesOnSearch(t *testing.T) {
	t.Parallel()

	tb := newTable(t, Options{Capacity: 4, KeyWidth: 16, WritePolicy: Simple, Policy: wraparound.New()})

	_, err := tb.ProposeWrite(Write{Index: 3, Key: 0x1234, Metadata: 1})
	require.NoError(t, err)
	_, err = tb.ProposeWrite(Write{Index: 1, Key: 0x1234, Metadata: 2})
	require.NoError(t, err)

	res, err := tb.Search(0x1234)
	var ie *IntegrityError
	require.ErrorAs(t, err, &ie)
	require.Equal(t, []int{1, 3}, ie.Indices)
	require.Equal(t, SearchResult{Found: true, Index: 1, Metadata: 2, Ambiguous: true}, res)

	// Overwriting one copy restores uniqueness.
	_, err = tb.ProposeWrite(Write{Index: 1, Key: 0x5678})
	require.NoError(t, err)
	res, err = tb.Search(0x1234)
	require.NoError(t, err)
	require.Equal(t, 3, res.Index)
}

// Round trip: a committed write is found at its slot with its metadata.
func TestTable_RoundTripAllPolicies(t *testing.T) {
	t.Parallel()

	policies := []policy.Policy{none.New(), wraparound.New(), nru.New(), plru.New()}
	for _, wp := range []WritePolicy{Simple, Confirm} {
		for _, p := range policies {
			t.Run(wp.String()+"/"+p.Name(), func(t *testing.T) {
				tb := newTable(t, Options{Capacity: 8, KeyWidth: 48, MetaWidth: 12, WritePolicy: wp, Policy: p})
				for k := uint64(1); k <= 8; k++ {
					w, err := tb.ProposeWrite(Write{Index: AutoIndex, Key: k << 20, Metadata: k})
					require.NoError(t, err)
					require.True(t, w.Committed)

					res, err := tb.Search(k << 20)
					require.NoError(t, err)
					require.Equal(t, SearchResult{Found: true, Index: w.Index, Metadata: k}, res)
				}
				require.Equal(t, 8, tb.Len())
			})
		}
	}
}

// None policy: the write after capacity writes fails with ErrCapacity until Clear.
func TestTable_NoneCapacityBoundary(t *testing.T) {
	t.Parallel()

	tb := newTable(t, Options{Capacity: 3, KeyWidth: 8, WritePolicy: Confirm})
	for k := uint64(0); k < 3; k++ {
		res, err := tb.ProposeWrite(Write{Index: AutoIndex, Key: k})
		require.NoError(t, err)
		require.Equal(t, int(k), res.Index)
	}
	require.Equal(t, StateFull, tb.State())

	_, err := tb.ProposeWrite(Write{Index: AutoIndex, Key: 9})
	require.ErrorIs(t, err, ErrCapacity)
	_, err = tb.ProposeWrite(Write{Index: 0, Key: 9})
	require.ErrorIs(t, err, ErrCapacity)
	_, err = tb.SuggestNext()
	require.ErrorIs(t, err, ErrCapacity)

	tb.Clear()
	require.Equal(t, StateIdle, tb.State())
	require.Equal(t, 0, tb.Len())
	i, err := tb.SuggestNext()
	require.NoError(t, err)
	require.Equal(t, 0, i)
}

// Wraparound: suggestions are strict round robin whatever the searches do.
func TestTable_WraparoundEvictsOldest(t *testing.T) {
	t.Parallel()

	tb := newTable(t, Options{Capacity: 4, KeyWidth: 8, WritePolicy: Confirm, Policy: wraparound.New()})
	var got []int
	for k := uint64(0); k < 6; k++ {
		res, err := tb.ProposeWrite(Write{Index: AutoIndex, Key: k})
		require.NoError(t, err)
		got = append(got, res.Index)
		_, _ = tb.Search(0)
	}
	require.Equal(t, []int{0, 1, 2, 3, 0, 1}, got)

	// Keys 0 and 1 were evicted by 4 and 5.
	res, err := tb.Search(1)
	require.NoError(t, err)
	require.False(t, res.Found)
	require.Equal(t, StateIdle, tb.State())
}

// NRU2 and PLRU: after hitting every slot but one, that slot is the victim.
func TestTable_RecencyPoliciesPickUntouchedSlot(t *testing.T) {
	t.Parallel()

	for _, p := range []policy.Policy{nru.New(), plru.New()} {
		t.Run(p.Name(), func(t *testing.T) {
			tb := newTable(t, Options{Capacity: 4, KeyWidth: 8, WritePolicy: Confirm, Policy: p})
			for k := uint64(0); k < 4; k++ {
				_, err := tb.ProposeWrite(Write{Index: int(k), Key: k})
				require.NoError(t, err)
			}
			// Writes count as use; let NRU age the burst before the hits.
			_, err := tb.SuggestNext()
			require.NoError(t, err)

			// Slot 2 is skipped; its sibling first, then the far half.
			for _, k := range []uint64{3, 0, 1} {
				res, err := tb.Search(k)
				require.NoError(t, err)
				require.True(t, res.Found)
			}
			next, err := tb.SuggestNext()
			require.NoError(t, err)
			require.Equal(t, 2, next)
		})
	}
}

// A reserved slot is never suggested twice; a write to it releases it.
func TestTable_ReserveFreezesSlot(t *testing.T) {
	t.Parallel()

	tb := newTable(t, Options{Capacity: 2, KeyWidth: 8, Policy: wraparound.New()})

	a, err := tb.Reserve()
	require.NoError(t, err)
	b, err := tb.Reserve()
	require.NoError(t, err)
	require.NotEqual(t, a, b)

	_, err = tb.Reserve()
	require.ErrorIs(t, err, ErrCapacity)
	_, err = tb.ProposeWrite(Write{Index: AutoIndex, Key: 7})
	require.ErrorIs(t, err, ErrCapacity)

	_, err = tb.ProposeWrite(Write{Index: a, Key: 1})
	require.NoError(t, err)
	tb.Release(b)

	_, err = tb.Reserve()
	require.NoError(t, err)
}

func TestTable_InvalidArguments(t *testing.T) {
	t.Parallel()

	exact := newTable(t, Options{Capacity: 2, KeyWidth: 8, MetaWidth: 4})
	lpm := newTable(t, Options{Capacity: 2, KeyWidth: 8, WritePolicy: MaxLenPrefix})

	cases := []struct {
		name string
		tb   Table
		w    Write
	}{
		{"key too wide", exact, Write{Index: 0, Key: 0x100}},
		{"metadata too wide", exact, Write{Index: 0, Key: 1, Metadata: 0x10}},
		{"prefix under exact policy", exact, Write{Index: 0, Key: 1, PrefixLen: 4}},
		{"index out of range", exact, Write{Index: 2, Key: 1}},
		{"negative index", exact, Write{Index: -2, Key: 1}},
		{"zero prefix", lpm, Write{Index: 0, Key: 1}},
		{"prefix too long", lpm, Write{Index: 0, Key: 1, PrefixLen: 9}},
	}
	for _, tc := range cases {
		_, err := tc.tb.ProposeWrite(tc.w)
		require.ErrorIs(t, err, ErrInvalidArgument, tc.name)
	}
	require.Equal(t, 0, exact.Len())
	require.Equal(t, 0, lpm.Len())

	// Full-width prefix is accepted under exact policies.
	_, err := exact.ProposeWrite(Write{Index: 0, Key: 1, PrefixLen: 8})
	require.NoError(t, err)

	_, err = exact.Search(0x1FF)
	require.ErrorIs(t, err, ErrInvalidArgument)
	_, err = exact.Entry(5)
	require.ErrorIs(t, err, ErrInvalidArgument)

	for _, opt := range []Options{
		{},
		{Capacity: 1, KeyWidth: 65},
		{Capacity: 1, MetaWidth: -1},
		{Capacity: 1, WritePolicy: WritePolicy(7)},
	} {
		_, err := New(opt)
		require.ErrorIs(t, err, ErrInvalidArgument)
	}
	require.Panics(t, func() { MustNew(Options{}) })
}

func TestTable_EntryAndRange(t *testing.T) {
	t.Parallel()

	tb := newTable(t, Options{Capacity: 4, KeyWidth: 32, WritePolicy: MaxLenPrefix, Policy: plru.New()})
	_, err := tb.ProposeWrite(Write{Index: 2, Key: 0x0a000000, PrefixLen: 8, Metadata: 5})
	require.NoError(t, err)
	_, err = tb.ProposeWrite(Write{Index: 0, Key: 0xc0a80000, PrefixLen: 16, Metadata: 6})
	require.NoError(t, err)

	e, err := tb.Entry(2)
	require.NoError(t, err)
	require.Equal(t, Entry{Key: 0x0a000000, PrefixLen: 8, Metadata: 5, Valid: true}, e)
	require.Equal(t, uint64(0xff000000), e.Mask(32))

	got := map[int]Entry{}
	tb.Range(func(i int, e Entry) bool {
		got[i] = e
		return true
	})
	want := map[int]Entry{
		0: {Key: 0xc0a80000, PrefixLen: 16, Metadata: 6, Valid: true},
		2: {Key: 0x0a000000, PrefixLen: 8, Metadata: 5, Valid: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Range mismatch (-want +got):\n%s", diff)
	}

	tb.Clear()
	e, err = tb.Entry(2)
	require.NoError(t, err)
	require.False(t, e.Valid)
}

// Uniqueness: random Confirm writes never leave two valid slots with the same key.
func TestTable_ConfirmKeepsKeysUnique(t *testing.T) {
	t.Parallel()

	tb := newTable(t, Options{Capacity: 16, KeyWidth: 6, WritePolicy: Confirm, Policy: nru.New()})
	for i := 0; i < 500; i++ {
		key := uint64(i*37) % 64
		_, err := tb.ProposeWrite(Write{Index: AutoIndex, Key: key})
		require.NoError(t, err)
		if i%3 == 0 {
			_, err = tb.Search(key)
			require.NoError(t, err)
		}
	}

	seen := map[uint64]int{}
	tb.Range(func(i int, e Entry) bool {
		prev, dup := seen[e.Key]
		require.False(t, dup, "key %#x in slots %d and %d", e.Key, prev, i)
		seen[e.Key] = i
		return true
	})
	require.Equal(t, uint64(0), tb.Stats().Integrity)
}

// Wraparound with a reservation outstanding: AutoIndex writes skip the
// reserved slot and keep filling fresh slots instead of the one just written.
func TestTable_WraparoundReserveThenAutoWrites(t *testing.T) {
	t.Parallel()

	tb := newTable(t, Options{Capacity: 4, KeyWidth: 8, Policy: wraparound.New()})

	reserved, err := tb.Reserve()
	require.NoError(t, err)
	require.Equal(t, 0, reserved)

	var got []int
	for k := uint64(1); k <= 3; k++ {
		res, err := tb.ProposeWrite(Write{Index: AutoIndex, Key: k})
		require.NoError(t, err)
		got = append(got, res.Index)
	}
	require.Equal(t, []int{1, 2, 3}, got)

	for k := uint64(1); k <= 3; k++ {
		res, err := tb.Search(k)
		require.NoError(t, err)
		require.True(t, res.Found, "key %d", k)
	}

	_, err = tb.ProposeWrite(Write{Index: reserved, Key: 9})
	require.NoError(t, err)
	require.Equal(t, 4, tb.Len())

	// Slot 1 holds the oldest AutoIndex write.
	next, err := tb.SuggestNext()
	require.NoError(t, err)
	require.Equal(t, 1, next)
}

// None policy: a released reservation is handed out again, and the table
// fills only after capacity successful writes.
func TestTable_NoneReleasedReservationIsReused(t *testing.T) {
	t.Parallel()

	tb := newTable(t, Options{Capacity: 3, KeyWidth: 8})

	reserved, err := tb.Reserve()
	require.NoError(t, err)
	require.Equal(t, 0, reserved)

	res, err := tb.ProposeWrite(Write{Index: AutoIndex, Key: 1})
	require.NoError(t, err)
	require.Equal(t, 1, res.Index)

	tb.Release(reserved)

	res, err = tb.ProposeWrite(Write{Index: AutoIndex, Key: 2})
	require.NoError(t, err)
	require.Equal(t, 0, res.Index)
	require.Equal(t, StateIdle, tb.State())

	res, err = tb.ProposeWrite(Write{Index: AutoIndex, Key: 3})
	require.NoError(t, err)
	require.Equal(t, 2, res.Index)
	require.Equal(t, 3, tb.Len())
	require.Equal(t, StateFull, tb.State())

	_, err = tb.ProposeWrite(Write{Index: AutoIndex, Key: 4})
	require.ErrorIs(t, err, ErrCapacity)
}

// Confirm reports a stored key even when every slot is reserved.
func TestTable_ConfirmDuplicateWhileAllReserved(t *testing.T) {
	t.Parallel()

	tb := newTable(t, Options{Capacity: 2, KeyWidth: 8, WritePolicy: Confirm, Policy: wraparound.New()})

	first, err := tb.ProposeWrite(Write{Index: AutoIndex, Key: 7})
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err := tb.Reserve()
		require.NoError(t, err)
	}

	res, err := tb.ProposeWrite(Write{Index: AutoIndex, Key: 7})
	require.NoError(t, err)
	require.Equal(t, WriteResult{Index: first.Index, RejectedDuplicate: true, RejectedDuplicateOf: first.Index}, res)
	require.Equal(t, StateIdle, tb.State())

	// A new key still needs a slot.
	_, err = tb.ProposeWrite(Write{Index: AutoIndex, Key: 8})
	require.ErrorIs(t, err, ErrCapacity)
}

// Reservations carry no owner: a write to a reserved slot ends the
// reservation whoever makes it.
func TestTable_WriteToReservedSlotEndsReservation(t *testing.T) {
	t.Parallel()

	tb := newTable(t, Options{Capacity: 2, KeyWidth: 8, Policy: wraparound.New()})

	a, err := tb.Reserve()
	require.NoError(t, err)
	b, err := tb.Reserve()
	require.NoError(t, err)

	_, err = tb.ProposeWrite(Write{Index: b, Key: 1})
	require.NoError(t, err)

	next, err := tb.Reserve()
	require.NoError(t, err)
	require.Equal(t, b, next)
	require.NotEqual(t, a, next)
}
