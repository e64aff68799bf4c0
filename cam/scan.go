package cam

import (
	"context"

	"go.uber.org/zap"
)

// Scan reads back the key range slot index answers to. Starting from the
// stored key it flips one bit at a time, least significant first, and asks
// the match engine whether the slot's match line still fires. Bits that can
// be flipped are wildcards; the first bit that cannot ends the run, since
// masks are contiguous prefixes. At most KeyWidth probes are issued.
//
// The probing runs under the shared lock, so concurrent writes wait for it
// and the result is a consistent snapshot. ctx is checked between probes.
func (t *table) Scan(ctx context.Context, index int) (ScanResult, error) {
	if err := t.checkIndex(index); err != nil {
		return ScanResult{}, err
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	e := t.store.get(index)
	if !e.Valid {
		return ScanResult{}, nil
	}

	slot := uint32(index)
	base := e.Key
	var wildcard uint64
	probes := 0
	for bit := 0; bit < t.opt.KeyWidth; bit++ {
		if err := ctx.Err(); err != nil {
			return ScanResult{}, err
		}
		probes++
		flip := uint64(1) << bit
		if !t.match.matchLines(base ^ flip).Contains(slot) {
			break
		}
		wildcard |= flip
	}

	mask := t.keyMask &^ wildcard
	t.log.Debug("slot scanned", zap.Int("index", index), zap.Int("probes", probes))
	return ScanResult{BaseKey: base & mask, Mask: mask, Found: true}, nil
}
