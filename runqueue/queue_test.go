// ============================================================================
// PRIORITY RUN QUEUE CORRECTNESS VALIDATION SUITE
// ============================================================================
//
// Unit testing for the per-CPU priority run queue with emphasis on the
// ordering contract and cache-degradation behavior.
//
// Test categories:
//   - Basic operations: Enqueue/Dequeue/Peek semantics
//   - Ordering contract: priority precedence and FIFO within a level
//   - Removal: head, middle, tail and missing entries
//   - Hint maintenance: stale-hint recovery after bucket drains
//   - Arena management: growth beyond the initial capacity
//   - Stress: randomized operation mix against a reference model

package runqueue

import (
	"testing"

	"golang.org/x/crypto/sha3"
)

// ============================================================================
// TEST UTILITIES AND HELPERS
// ============================================================================

// drainAll dequeues every entry, returning tids in dequeue order.
func drainAll(q *Queue) []Tid {
	out := make([]Tid, 0, q.Len())
	for {
		tid, ok := q.Dequeue()
		if !ok {
			return out
		}
		out = append(out, tid)
	}
}

// refModel is the trivially-correct reference: one FIFO slice per level.
type refModel struct {
	levels [256][]Tid
	count  int
}

func (m *refModel) enqueue(tid Tid, prio uint8) {
	m.levels[prio] = append(m.levels[prio], tid)
	m.count++
}

func (m *refModel) dequeue() (Tid, bool) {
	for p := 0; p < 256; p++ {
		if len(m.levels[p]) > 0 {
			tid := m.levels[p][0]
			m.levels[p] = m.levels[p][1:]
			m.count--
			return tid, true
		}
	}
	return 0, false
}

func (m *refModel) remove(tid Tid) bool {
	for p := 0; p < 256; p++ {
		for i, got := range m.levels[p] {
			if got == tid {
				m.levels[p] = append(m.levels[p][:i], m.levels[p][i+1:]...)
				m.count--
				return true
			}
		}
	}
	return false
}

// ============================================================================
// BASIC OPERATIONS
// ============================================================================

func TestEnqueueDequeueSingle(t *testing.T) {
	q := New()

	if !q.Empty() || q.Len() != 0 {
		t.Fatalf("new queue not empty: len=%d", q.Len())
	}
	if _, ok := q.Dequeue(); ok {
		t.Fatal("dequeue on empty queue succeeded")
	}

	q.Enqueue(42, 7)
	if q.Empty() || q.Len() != 1 {
		t.Fatalf("after enqueue: empty=%v len=%d", q.Empty(), q.Len())
	}

	tid, ok := q.Dequeue()
	if !ok || tid != 42 {
		t.Fatalf("dequeue = (%d, %v), want (42, true)", tid, ok)
	}
	if !q.Empty() {
		t.Fatal("queue not empty after draining")
	}
}

func TestPriorityOrdering(t *testing.T) {
	q := New()
	q.Enqueue(1, 10)
	q.Enqueue(2, 20)
	q.Enqueue(3, 15)

	want := []Tid{1, 3, 2} // lower value dequeues first
	got := drainAll(q)
	if len(got) != len(want) {
		t.Fatalf("drained %d entries, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("dequeue[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestFifoWithinPriority(t *testing.T) {
	q := New()
	for tid := Tid(1); tid <= 5; tid++ {
		q.Enqueue(tid, 50)
	}

	for want := Tid(1); want <= 5; want++ {
		tid, ok := q.Dequeue()
		if !ok || tid != want {
			t.Fatalf("dequeue = (%d, %v), want (%d, true)", tid, ok, want)
		}
	}
}

func TestPeekNonDestructive(t *testing.T) {
	q := New()
	q.Enqueue(9, 3)
	q.Enqueue(8, 1)

	for i := 0; i < 3; i++ {
		tid, ok := q.Peek()
		if !ok || tid != 8 {
			t.Fatalf("peek #%d = (%d, %v), want (8, true)", i, tid, ok)
		}
	}
	if q.Len() != 2 {
		t.Fatalf("peek mutated length: %d", q.Len())
	}

	if tid, _ := q.Dequeue(); tid != 8 {
		t.Fatalf("dequeue after peek = %d, want 8", tid)
	}
}

func TestPriorityBoundaries(t *testing.T) {
	q := New()
	q.Enqueue(100, 255)
	q.Enqueue(200, 0)

	if tid, _ := q.Dequeue(); tid != 200 {
		t.Fatalf("priority 0 did not outrank 255: got %d", tid)
	}
	if tid, _ := q.Dequeue(); tid != 100 {
		t.Fatalf("priority 255 entry lost: got %d", tid)
	}
}

// ============================================================================
// REMOVAL
// ============================================================================

func TestRemovePositions(t *testing.T) {
	build := func() *Queue {
		q := New()
		q.Enqueue(1, 5)
		q.Enqueue(2, 5)
		q.Enqueue(3, 5)
		return q
	}

	cases := []struct {
		name   string
		victim Tid
		want   []Tid
	}{
		{"head", 1, []Tid{2, 3}},
		{"middle", 2, []Tid{1, 3}},
		{"tail", 3, []Tid{1, 2}},
	}

	for _, tc := range cases {
		q := build()
		if !q.Remove(tc.victim) {
			t.Fatalf("%s: remove(%d) = false", tc.name, tc.victim)
		}
		got := drainAll(q)
		if len(got) != len(tc.want) {
			t.Fatalf("%s: drained %v, want %v", tc.name, got, tc.want)
		}
		for i := range tc.want {
			if got[i] != tc.want[i] {
				t.Fatalf("%s: drained %v, want %v", tc.name, got, tc.want)
			}
		}
	}
}

func TestRemoveMissing(t *testing.T) {
	q := New()
	q.Enqueue(1, 5)

	if q.Remove(99) {
		t.Fatal("remove of unknown tid reported success")
	}
	if q.Len() != 1 {
		t.Fatalf("remove of unknown tid mutated length: %d", q.Len())
	}
}

func TestRemoveAfterHintMoves(t *testing.T) {
	q := New()
	q.Enqueue(1, 100)
	q.Enqueue(2, 10) // hint now 10

	// Force the hint above bucket 10 by draining it.
	if tid, _ := q.Dequeue(); tid != 2 {
		t.Fatal("setup dequeue mismatch")
	}
	q.Enqueue(3, 5)
	if tid, _ := q.Dequeue(); tid != 3 {
		t.Fatal("setup dequeue mismatch")
	}

	if !q.Remove(1) {
		t.Fatal("remove missed entry after the hint relocated")
	}
	if !q.Empty() {
		t.Fatalf("len=%d after removing last entry", q.Len())
	}
}

// ============================================================================
// HINT & BITMAP MAINTENANCE
// ============================================================================

func TestHintRefreshAfterDrain(t *testing.T) {
	q := New()
	q.Enqueue(1, 0)
	q.Enqueue(2, 128)

	if tid, _ := q.Dequeue(); tid != 1 {
		t.Fatalf("first dequeue = %d, want 1", tid)
	}
	// Bucket 0 drained; the hint must recover to bucket 128.
	tid, ok := q.Dequeue()
	if !ok || tid != 2 {
		t.Fatalf("dequeue after drain = (%d, %v), want (2, true)", tid, ok)
	}
}

func TestInterleavedLevels(t *testing.T) {
	q := New()
	// Alternate inserts across levels while draining between them.
	q.Enqueue(1, 30)
	q.Enqueue(2, 20)
	if tid, _ := q.Dequeue(); tid != 2 {
		t.Fatal("ordering violated")
	}
	q.Enqueue(3, 10)
	q.Enqueue(4, 40)
	if tid, _ := q.Dequeue(); tid != 3 {
		t.Fatal("hint did not lower on enqueue")
	}
	if tid, _ := q.Dequeue(); tid != 1 {
		t.Fatal("ordering violated after mixed ops")
	}
	if tid, _ := q.Dequeue(); tid != 4 {
		t.Fatal("ordering violated after mixed ops")
	}
}

// ============================================================================
// ARENA MANAGEMENT
// ============================================================================

func TestArenaGrowth(t *testing.T) {
	q := New()
	const n = 5000 // well past the initial arena capacity

	for i := 0; i < n; i++ {
		q.Enqueue(Tid(i+1), uint8(i&0xFF))
	}
	if q.Len() != n {
		t.Fatalf("len = %d, want %d", q.Len(), n)
	}

	prev := -1
	seen := 0
	for {
		tid, ok := q.Dequeue()
		if !ok {
			break
		}
		prio := int((tid - 1) & 0xFF)
		if prio < prev {
			t.Fatalf("priority went backwards: %d after %d", prio, prev)
		}
		prev = prio
		seen++
	}
	if seen != n {
		t.Fatalf("drained %d entries, want %d", seen, n)
	}
}

// ============================================================================
// RANDOMIZED STRESS VALIDATION
// ============================================================================

// TestStressAgainstReference runs a deterministic random operation mix and
// checks every result against the reference model.
func TestStressAgainstReference(t *testing.T) {
	q := New()
	ref := &refModel{}

	seed := sha3.Sum256([]byte("runqueue-stress"))
	rnd := seed[:]
	next := func() byte {
		b := rnd[0]
		h := sha3.Sum256(rnd)
		rnd = h[:]
		return b
	}

	nextTid := Tid(1)
	live := make([]Tid, 0, 1024)

	for op := 0; op < 20000; op++ {
		switch next() % 4 {
		case 0, 1: // enqueue
			prio := next()
			q.Enqueue(nextTid, prio)
			ref.enqueue(nextTid, prio)
			live = append(live, nextTid)
			nextTid++
		case 2: // dequeue
			got, gok := q.Dequeue()
			want, wok := ref.dequeue()
			if gok != wok || got != want {
				t.Fatalf("op %d: dequeue = (%d, %v), want (%d, %v)", op, got, gok, want, wok)
			}
			if gok {
				for i, tid := range live {
					if tid == got {
						live = append(live[:i], live[i+1:]...)
						break
					}
				}
			}
		case 3: // remove a live entry (or a bogus one)
			var victim Tid = 0xFFFFFF
			if len(live) > 0 && next()%8 != 0 {
				victim = live[int(next())%len(live)]
			}
			got := q.Remove(victim)
			want := ref.remove(victim)
			if got != want {
				t.Fatalf("op %d: remove(%d) = %v, want %v", op, victim, got, want)
			}
			if got {
				for i, tid := range live {
					if tid == victim {
						live = append(live[:i], live[i+1:]...)
						break
					}
				}
			}
		}

		if q.Len() != ref.count {
			t.Fatalf("op %d: len = %d, reference %d", op, q.Len(), ref.count)
		}
	}

	// Drain and compare the remainder.
	for {
		got, gok := q.Dequeue()
		want, wok := ref.dequeue()
		if gok != wok || got != want {
			t.Fatalf("drain: dequeue = (%d, %v), want (%d, %v)", got, gok, want, wok)
		}
		if !gok {
			break
		}
	}
}

// ============================================================================
// BENCHMARKS
// ============================================================================

func BenchmarkEnqueueDequeue(b *testing.B) {
	q := New()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		q.Enqueue(Tid(i+1), uint8(i&0xFF))
		q.Dequeue()
	}
}

func BenchmarkDequeueHintHit(b *testing.B) {
	q := New()
	for i := 0; i < 1024; i++ {
		q.Enqueue(Tid(i+1), 8)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tid, ok := q.Dequeue()
		if !ok {
			b.Fatal("drained")
		}
		q.Enqueue(tid, 8)
	}
}
