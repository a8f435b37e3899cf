// ============================================================================
// FREQUENCY INDEX & PER-CPU CACHE VALIDATION SUITE
// ============================================================================
//
// Unit testing for the Robin Hood counter table and the per-CPU dispatch
// cache feeding adaptive fast-path promotion.
//
// Test categories:
//   - Counting: insert-on-first-sight, increments, unknown keys
//   - Saturation: insertion ceiling refuses fresh keys, old keys count on
//   - Top-N: descending selection with the promotion limit applied
//   - Cache ring: drop-oldest history, newest-first reads, hit counters

package dispatch

import (
	"testing"

	"main/constants"
)

// ============================================================================
// FREQUENCY INDEX
// ============================================================================

func TestFreqIncAndCount(t *testing.T) {
	f := newFreqIdx(64)

	if got := f.Count(5); got != 0 {
		t.Fatalf("count of unseen key = %d", got)
	}
	for want := uint32(1); want <= 4; want++ {
		if got := f.Inc(5); got != want {
			t.Fatalf("Inc #%d = %d, want %d", want, got, want)
		}
	}
	if got := f.Count(5); got != 4 {
		t.Fatalf("count = %d, want 4", got)
	}

	// Syscall 0 is a legal number and must count like any other.
	if got := f.Inc(0); got != 1 {
		t.Fatalf("Inc(0) = %d, want 1", got)
	}
	if got := f.Count(0); got != 1 {
		t.Fatalf("Count(0) = %d, want 1", got)
	}
}

func TestFreqManyKeys(t *testing.T) {
	f := newFreqIdx(256)
	for num := uint32(0); num < 200; num++ {
		for i := uint32(0); i <= num%7; i++ {
			f.Inc(num)
		}
	}
	for num := uint32(0); num < 200; num++ {
		if got, want := f.Count(num), num%7+1; got != want {
			t.Fatalf("Count(%d) = %d, want %d", num, got, want)
		}
	}
}

func TestFreqSaturationRefusesFreshKeys(t *testing.T) {
	f := newFreqIdx(2) // table size 4, ceiling 3

	f.Inc(1)
	f.Inc(2)
	f.Inc(3)
	if got := f.Inc(4); got != 0 {
		t.Fatalf("saturated insert = %d, want 0", got)
	}
	// Established keys keep counting past the ceiling.
	if got := f.Inc(1); got != 2 {
		t.Fatalf("established key after saturation = %d, want 2", got)
	}
	if got := f.Count(4); got != 0 {
		t.Fatalf("refused key visible: count = %d", got)
	}
}

func TestFreqTopOrdering(t *testing.T) {
	f := newFreqIdx(64)
	counts := map[uint32]int{3: 9, 7: 1, 11: 5, 42: 12, 250: 7}
	for num, c := range counts {
		for i := 0; i < c; i++ {
			f.Inc(num)
		}
	}

	var out [3]uint32
	n := f.Top(out[:], 256)
	if n != 3 {
		t.Fatalf("Top returned %d, want 3", n)
	}
	want := []uint32{42, 3, 250}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("top[%d] = %d, want %d (full: %v)", i, out[i], want[i], out)
		}
	}
}

func TestFreqTopRespectsLimit(t *testing.T) {
	f := newFreqIdx(64)
	for i := 0; i < 10; i++ {
		f.Inc(0x2345) // above the promotion limit
	}
	f.Inc(5)

	var out [4]uint32
	n := f.Top(out[:], constants.MaxFastPathSyscalls)
	if n != 1 || out[0] != 5 {
		t.Fatalf("Top = %v (n=%d), want only syscall 5", out[:n], n)
	}
}

func TestFreqTopFewerThanRequested(t *testing.T) {
	f := newFreqIdx(64)
	f.Inc(1)
	var out [8]uint32
	if n := f.Top(out[:], 256); n != 1 {
		t.Fatalf("Top = %d, want 1", n)
	}
	if n := f.Top(out[:0], 256); n != 0 {
		t.Fatalf("Top into empty slice = %d, want 0", n)
	}
}

// ============================================================================
// PER-CPU CACHE
// ============================================================================

func TestCacheCounters(t *testing.T) {
	c := newPerCpuCache()
	c.record(1, true)
	c.record(2, false)
	c.record(1, true)

	fast, slow := c.counters()
	if fast != 2 || slow != 1 {
		t.Fatalf("counters = (%d, %d), want (2, 1)", fast, slow)
	}
}

func TestCacheHistoryNewestFirst(t *testing.T) {
	c := newPerCpuCache()
	for num := uint32(1); num <= 5; num++ {
		c.record(num, false)
	}

	var out [3]uint32
	n := c.History(out[:])
	if n != 3 {
		t.Fatalf("History = %d entries, want 3", n)
	}
	want := []uint32{5, 4, 3}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("history[%d] = %d, want %d", i, out[i], want[i])
		}
	}
}

func TestCacheHistoryShorterThanRing(t *testing.T) {
	c := newPerCpuCache()
	c.record(7, false)

	var out [8]uint32
	if n := c.History(out[:]); n != 1 || out[0] != 7 {
		t.Fatalf("History = %v (n=%d), want [7]", out[:n], n)
	}
}

func TestCacheRingDropsOldest(t *testing.T) {
	c := newPerCpuCache()
	total := constants.CacheRingSize + 10
	for i := 0; i < total; i++ {
		c.record(uint32(i), false)
	}

	out := make([]uint32, constants.CacheRingSize)
	n := c.History(out)
	if n != constants.CacheRingSize {
		t.Fatalf("History = %d, want full ring %d", n, constants.CacheRingSize)
	}
	// Newest first: the oldest 10 records must have been overwritten.
	if out[0] != uint32(total-1) {
		t.Fatalf("newest = %d, want %d", out[0], total-1)
	}
	if out[n-1] != uint32(total-constants.CacheRingSize) {
		t.Fatalf("oldest retained = %d, want %d", out[n-1], total-constants.CacheRingSize)
	}
}

func TestCacheTopFrequent(t *testing.T) {
	c := newPerCpuCache()
	for i := 0; i < 9; i++ {
		c.record(4, true)
	}
	for i := 0; i < 3; i++ {
		c.record(8, false)
	}

	var out [2]uint32
	n := c.topFrequent(out[:], 256)
	if n != 2 || out[0] != 4 || out[1] != 8 {
		t.Fatalf("topFrequent = %v (n=%d), want [4 8]", out[:n], n)
	}
}
