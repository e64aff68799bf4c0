package cam

// Entry is one table slot.
type Entry struct {
	Key uint64
	// PrefixLen is the number of leading key bits that take part in matching.
	// It equals the key width outside MaxLenPrefix tables.
	PrefixLen int
	// Metadata is returned verbatim with search hits; it never takes part in matching.
	Metadata uint64
	Valid    bool
}

// Mask returns the match mask of e for a table with the given key width.
func (e Entry) Mask(width int) uint64 { return prefixMask(e.PrefixLen, width) }

// widthMask has the low w bits set.
func widthMask(w int) uint64 {
	if w >= 64 {
		return ^uint64(0)
	}
	return 1<<w - 1
}

// prefixMask has the top plen bits of a width-bit field set.
func prefixMask(plen, width int) uint64 {
	return widthMask(width) &^ widthMask(width-plen)
}
