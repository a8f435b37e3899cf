// ════════════════════════════════════════════════════════════════════════════════════════════════
// ⚡ SYSCALL FREQUENCY INDEX
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: Unified Kernel Core
// Component: Fixed-Capacity Robin Hood Counter Table
//
// Description:
//   Zero-allocation hash table counting per-CPU syscall frequencies using
//   Robin Hood hashing. Parallel key/count arrays keep lookups cache-tight;
//   displacement keeps worst-case probe distances deterministic. Feeds the
//   adaptive fast-path promotion pass.
//
// Design Principles:
//   - Fixed capacity with power-of-2 sizing for mask-based probing
//   - Keys stored as syscall+1 so 0 stays the empty sentinel (syscall 0 is
//     a legal number)
//   - Insertion stops at 3/4 load; established counters keep counting
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package dispatch

// freqIdx is a fixed-capacity Robin Hood counter map: syscall number → hit
// count. Single-owner (one per CPU, under that CPU's cache lock).
type freqIdx struct {
	keys []uint32 // syscall+1 (0 = empty sentinel)
	cnts []uint32 // hit counters, parallel to keys
	mask uint32   // size-1 for mask-based probing
	used uint32   // occupied slots
	lim  uint32   // insertion ceiling (3/4 of table size)
}

// nextPow2 rounds n up to the nearest power of two.
//
//go:nosplit
//go:inline
func nextPow2(n int) uint32 {
	s := uint32(1)
	for s < uint32(n) {
		s <<= 1
	}
	return s
}

// newFreqIdx sizes the table at twice the expected population so probing
// stays short even near the insertion ceiling.
func newFreqIdx(capacity int) freqIdx {
	sz := nextPow2(capacity * 2)
	return freqIdx{
		keys: make([]uint32, sz),
		cnts: make([]uint32, sz),
		mask: sz - 1,
		lim:  sz * 3 / 4,
	}
}

// Inc bumps num's counter, inserting it on first sight. Robin Hood
// displacement: an occupant closer to its home slot than our probe
// distance is displaced and re-homed further down the chain, keeping its
// accumulated count. Returns the new count, or 0 when the table refused a
// fresh key at the insertion ceiling.
//
//go:nosplit
func (f *freqIdx) Inc(num uint32) uint32 {
	key := num + 1
	carry := uint32(1) // count traveling with the key being placed
	ret := uint32(1)
	placed := false // set once our key landed; loop then re-homes evictees
	i := key & f.mask
	dist := uint32(0)

	for {
		k := f.keys[i]

		if k == 0 {
			if !placed && f.used >= f.lim {
				return 0 // saturated: refuse new keys, old ones keep counting
			}
			f.keys[i], f.cnts[i] = key, carry
			f.used++
			return ret
		}

		if !placed && k == key {
			f.cnts[i]++
			return f.cnts[i]
		}

		// Robin Hood: evict an occupant closer to home than we are.
		kDist := (i + f.mask + 1 - (k & f.mask)) & f.mask
		if kDist < dist {
			if !placed && f.used >= f.lim {
				return 0
			}
			key, f.keys[i] = f.keys[i], key
			carry, f.cnts[i] = f.cnts[i], carry
			placed = true
			dist = kDist
		}

		i = (i + 1) & f.mask
		dist++
	}
}

// Count returns num's current hit count (0 when never seen), using Robin
// Hood early termination.
//
//go:nosplit
func (f *freqIdx) Count(num uint32) uint32 {
	key := num + 1
	i := key & f.mask
	dist := uint32(0)

	for {
		k := f.keys[i]
		if k == 0 {
			return 0
		}
		if k == key {
			return f.cnts[i]
		}
		kDist := (i + f.mask + 1 - (k & f.mask)) & f.mask
		if kDist < dist {
			return 0 // Robin Hood invariant: the key cannot be further on
		}
		i = (i + 1) & f.mask
		dist++
	}
}

// Top writes the up-to-len(out) most frequent syscall numbers strictly
// below `limit` into out, descending by count, returning how many it
// found. A linear slot scan with a tiny insertion sort — the table is
// small and this runs once per promotion interval, not per dispatch.
func (f *freqIdx) Top(out []uint32, limit uint32) int {
	n := len(out)
	if n == 0 {
		return 0
	}
	cnts := make([]uint32, n)
	found := 0

	for i, k := range f.keys {
		if k == 0 {
			continue
		}
		num := k - 1
		if num >= limit {
			continue
		}
		c := f.cnts[i]

		if found == n && c <= cnts[n-1] {
			continue
		}
		j := found
		if j == n {
			j = n - 1 // displace the current worst
		} else {
			found++
		}
		for j > 0 && cnts[j-1] < c {
			out[j], cnts[j] = out[j-1], cnts[j-1]
			j--
		}
		out[j], cnts[j] = num, c
	}
	return found
}
