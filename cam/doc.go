// Package cam provides a fixed-capacity associative lookup table: a software
// content-addressable memory that resolves a fixed-width key (MAC address,
// IPv4 address, any token up to 64 bits) to a small slot index plus opaque
// metadata.
//
// # Design
//
//   - Storage: a slot array with roaring bitmaps tracking valid and reserved
//     slots. Clear is logical: it empties the valid set, no sweep.
//
//   - Matching: entries are indexed by prefix length in a map per length.
//     Exact tables (Simple, Confirm) use only the full-width level; MaxLenPrefix
//     tables probe from the longest length down and the first populated bucket
//     wins. Two entries answering the same query is an *IntegrityError.
//
//   - Eviction: pluggable via the policy package (none, wraparound, nru,
//     plru). The policy sees every hit and every committed write, and
//     recommends the next slot to overwrite.
//
//   - Admission: Simple commits blindly, Confirm rejects keys already present
//     (reporting the existing slot), MaxLenPrefix stores CIDR-style prefixes.
//
//   - Readback: Scan rebuilds a slot's base key and mask by probing the match
//     engine bit by bit, without touching table state.
//
// # Basic usage
//
//	t := cam.MustNew(cam.Options{
//	    Capacity:    1024,
//	    KeyWidth:    48,
//	    MetaWidth:   16,
//	    WritePolicy: cam.Confirm,
//	    Policy:      plru.New(),
//	})
//	res, err := t.ProposeWrite(cam.Write{Index: cam.AutoIndex, Key: mac, Metadata: port})
//	if err == nil && res.RejectedDuplicate {
//	    // already learned at res.RejectedDuplicateOf
//	}
//	hit, err := t.Search(mac)
//
// # Longest-prefix match
//
//	t := cam.MustNew(cam.Options{Capacity: 256, KeyWidth: 32, WritePolicy: cam.MaxLenPrefix})
//	t.ProposeWrite(cam.Write{Index: 0, Key: 0x0a000000, PrefixLen: 8, Metadata: 1})
//	t.ProposeWrite(cam.Write{Index: 1, Key: 0x0a010000, PrefixLen: 16, Metadata: 2})
//	res, _ := t.Search(0x0a010203) // res.Index == 1
//
// # Thread-safety
//
// A table is a single shared resource. Writes, searches and policy queries
// take an exclusive lock (searches update recency state); Scan, Entry, Range
// and Len take it shared. Reserve/Release let a caller hold a suggested slot
// while it prepares the entry outside the lock.
package cam
