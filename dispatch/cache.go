// ════════════════════════════════════════════════════════════════════════════════════════════════
// Unified Syscall Dispatcher - Per-CPU Cache
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: Unified Kernel Core
// Component: Recent-Syscall Ring & Frequency Tracking
//
// Description:
//   Each CPU owns one cache: a bounded drop-oldest ring of recently
//   dispatched syscall numbers, a Robin Hood frequency index, and fast/slow
//   hit counters. The cache decides which syscalls deserve promotion into
//   the fast-path jump table.
//
// Locking:
//   - One mutex per CPU, taken only by that CPU's own dispatch calls —
//     contention-free in the steady state. The promotion pass reads the
//     frequency index under the same lock, once per update interval.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package dispatch

import (
	"sync"

	"main/constants"
)

// PerCpuCache tracks one CPU's recent dispatch history.
//
//go:align 64
type PerCpuCache struct {
	_  [64]byte   // isolate neighbors: caches live in one slice
	mu sync.Mutex // owner-CPU lock; remote CPUs never touch this cache

	recent [constants.CacheRingSize]uint32 // drop-oldest history ring
	pos    uint32                          // next ring write index
	seen   uint32                          // lifetime ring writes (for short histories)

	freq freqIdx // syscall → dispatch count

	fastHits uint64 // dispatches served by the jump table
	slowHits uint64 // dispatches that fell through to the handler map
}

func newPerCpuCache() *PerCpuCache {
	return &PerCpuCache{freq: newFreqIdx(constants.FreqIdxCapacity)}
}

// record notes one dispatch of num on this CPU. fast marks whether the
// jump table served it.
func (c *PerCpuCache) record(num uint32, fast bool) {
	c.mu.Lock()
	c.recent[c.pos&(constants.CacheRingSize-1)] = num
	c.pos++
	c.seen++
	c.freq.Inc(num)
	if fast {
		c.fastHits++
	} else {
		c.slowHits++
	}
	c.mu.Unlock()
}

// topFrequent copies the CPU's busiest promotable syscall numbers (strictly
// below limit) into out, descending by frequency.
func (c *PerCpuCache) topFrequent(out []uint32, limit uint32) int {
	c.mu.Lock()
	n := c.freq.Top(out, limit)
	c.mu.Unlock()
	return n
}

// counters snapshots the hit counters.
func (c *PerCpuCache) counters() (fast, slow uint64) {
	c.mu.Lock()
	fast, slow = c.fastHits, c.slowHits
	c.mu.Unlock()
	return
}

// History copies the most recent dispatches, newest first, into out and
// returns the count written. Diagnostics only.
func (c *PerCpuCache) History(out []uint32) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	avail := c.seen
	if avail > constants.CacheRingSize {
		avail = constants.CacheRingSize
	}
	n := uint32(len(out))
	if n > avail {
		n = avail
	}
	for i := uint32(0); i < n; i++ {
		out[i] = c.recent[(c.pos-1-i)&(constants.CacheRingSize-1)]
	}
	return int(n)
}
