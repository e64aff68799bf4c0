package cam

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/IvanBrykalov/camtable/policy"
)

// WritePolicy selects how the admission controller treats proposed writes.
type WritePolicy int

const (
	// Simple commits every write to the requested slot without checks.
	// The caller keeps keys unique.
	Simple WritePolicy = iota
	// Confirm searches for the key first and rejects the write if the key
	// is already stored, reporting the existing slot instead.
	Confirm
	// MaxLenPrefix stores CIDR-style entries (key + prefix length); searches
	// return the matching entry with the longest prefix.
	MaxLenPrefix
)

func (p WritePolicy) String() string {
	switch p {
	case Simple:
		return "simple"
	case Confirm:
		return "confirm"
	case MaxLenPrefix:
		return "maxlenprefix"
	default:
		return fmt.Sprintf("WritePolicy(%d)", int(p))
	}
}

// ParseWritePolicy maps a case-insensitive policy name to a WritePolicy.
func ParseWritePolicy(s string) (WritePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "simple":
		return Simple, nil
	case "confirm":
		return Confirm, nil
	case "maxlenprefix", "prefix", "lpm":
		return MaxLenPrefix, nil
	}
	return 0, fmt.Errorf("%w: unknown write policy %q", ErrInvalidArgument, s)
}

// WriteOutcome classifies a finished ProposeWrite call for metrics.
type WriteOutcome int

const (
	// WriteCommitted means the entry was stored.
	WriteCommitted WriteOutcome = iota
	// WriteDuplicate means Confirm policy found the key and discarded the write.
	WriteDuplicate
	// WriteFailed means the write was refused (capacity, argument or integrity error).
	WriteFailed
)

// Metrics exposes table-level observability hooks.
// A NoopMetrics implementation is provided and used by default.
type Metrics interface {
	Hit()
	Miss()
	Write(o WriteOutcome)
	Integrity()
	Size(valid int)
}

// Options configures a table. Zero values are safe; defaults are applied
// in New():
//   - KeyWidth == 0   => 64
//   - MetaWidth == 0  => 64
//   - nil Policy      => none (fill once, no eviction)
//   - nil Logger      => zap.NewNop()
//   - nil Metrics     => NoopMetrics
type Options struct {
	// Capacity is the fixed number of slots. Required.
	Capacity int

	// KeyWidth is the key width W in bits, 1..64.
	KeyWidth int
	// MetaWidth is the metadata width M in bits, 1..64.
	MetaWidth int

	WritePolicy WritePolicy
	// Policy is the eviction strategy (none/wraparound/nru/plru).
	Policy policy.Policy

	Logger  *zap.Logger
	Metrics Metrics
}

func (o *Options) setDefaults() {
	if o.KeyWidth == 0 {
		o.KeyWidth = 64
	}
	if o.MetaWidth == 0 {
		o.MetaWidth = 64
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Metrics == nil {
		o.Metrics = NoopMetrics{}
	}
}

func (o *Options) validate() error {
	if o.Capacity <= 0 || uint64(o.Capacity) > maxCapacity {
		return fmt.Errorf("%w: capacity %d", ErrInvalidArgument, o.Capacity)
	}
	if o.KeyWidth < 1 || o.KeyWidth > 64 {
		return fmt.Errorf("%w: key width %d outside [1, 64]", ErrInvalidArgument, o.KeyWidth)
	}
	if o.MetaWidth < 1 || o.MetaWidth > 64 {
		return fmt.Errorf("%w: metadata width %d outside [1, 64]", ErrInvalidArgument, o.MetaWidth)
	}
	switch o.WritePolicy {
	case Simple, Confirm, MaxLenPrefix:
	default:
		return fmt.Errorf("%w: %s", ErrInvalidArgument, o.WritePolicy)
	}
	return nil
}

// maxCapacity keeps slot indices addressable by the 32-bit bitmaps.
const maxCapacity = 1 << 32
