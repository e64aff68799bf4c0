package cam

import (
	"errors"
	"fmt"
)

var (
	// ErrIntegrity is matched (errors.Is) by every *IntegrityError.
	// The table content can no longer be trusted; callers are expected to Clear.
	ErrIntegrity = errors.New("cam: integrity violation")
	// ErrCapacity is returned when no slot may be handed out: the table is
	// full under the none policy, or every slot is reserved.
	ErrCapacity = errors.New("cam: table full")
	// ErrInvalidArgument is returned for out-of-range keys, metadata,
	// prefix lengths, indices and options. The call has no effect.
	ErrInvalidArgument = errors.New("cam: invalid argument")
)

// IntegrityError reports that more than one valid entry answered a single
// query: duplicate keys in exact mode, or a prefix-length tie in
// MaxLenPrefix mode.
type IntegrityError struct {
	Key       uint64
	PrefixLen int
	// Indices lists the tied slots in ascending order.
	Indices []int
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("cam: %d entries match key %#x/%d at slots %v",
		len(e.Indices), e.Key, e.PrefixLen, e.Indices)
}

func (e *IntegrityError) Is(target error) bool { return target == ErrIntegrity }
