// ============================================================================
// RUNQUEUE: PER-CPU PRIORITY RUN QUEUE
// ============================================================================
//
// Package runqueue implements the single-CPU ordered container mapping a
// priority level to a FIFO list of runnable thread IDs. 256 priority
// buckets are backed by one growable node arena, an occupancy bitmap for
// fast minimum finding, and a cached minimum-priority hint for the O(1)
// common-case dequeue.
//
// Architecture overview:
//   - buckets[prio] holds head/tail of a doubly-linked FIFO chain
//   - 4-word occupancy bitmap summarizes non-empty buckets
//   - Cached hint short-circuits the bitmap walk on the hot path
//   - Arena freelist recycles nodes; the arena doubles on exhaustion so
//     Enqueue is a total operation and never fails
//
// Ordering contract:
//   - Lower numeric priority dequeues first (RT convention: 1 outranks 99)
//   - Equal priorities dequeue in strict enqueue (FIFO) order, carried by
//     the chain itself and stamped with a per-queue sequence for audit
//
// Safety model:
//   - NOT thread-safe. One queue belongs to one CPU; the owning
//     PerCpuScheduler serializes access (local ops and remote steals alike).
//   - A stale or inconsistent hint degrades to a full bucket scan — the
//     slow path returns correct results instead of panicking.

package runqueue

import (
	"math/bits"
	"sync/atomic"

	"main/constants"
)

// Tid is an opaque thread identifier. Values at or above
// constants.IdleTidBase are reserved for per-CPU idle threads.
type Tid uint32

const (
	numBuckets = constants.NumPriorities
	numWords   = numBuckets / 64

	nilIdx = ^uint32(0)
	noHint = int32(-1)
)

// ============================================================================
// CORE DATA STRUCTURES
// ============================================================================

// node is one queued entry. Nodes live in the arena and are addressed by
// index, never by pointer, so arena growth cannot invalidate links.
type node struct {
	tid  Tid    // 4B - thread this entry schedules
	prio uint16 // 2B - bucket the entry lives in (for O(1) unlink)
	_    uint16 // 2B - alignment
	seq  uint64 // 8B - per-queue enqueue sequence (FIFO audit stamp)
	prev uint32 // 4B - previous node in bucket chain
	next uint32 // 4B - next node in bucket chain or freelist link
}

// bucket anchors one priority level's FIFO chain.
type bucket struct {
	head uint32
	tail uint32
}

// Queue is a single CPU's priority run queue.
type Queue struct {
	arena    []node             // node pool, grows by doubling
	freeHead uint32             // freelist head (nilIdx = exhausted)
	buckets  [numBuckets]bucket // per-priority FIFO chains
	occupied [numWords]uint64   // non-empty bucket bitmap
	hint     int32              // cached minimum priority, noHint if invalid
	length   atomic.Int32       // entry count, readable without the owner lock
	seq      atomic.Uint64      // monotonic enqueue sequence source
}

// ============================================================================
// CONSTRUCTOR
// ============================================================================

// New returns an empty run queue with the initial arena capacity.
func New() *Queue {
	q := &Queue{hint: noHint}
	q.arena = make([]node, constants.RunqArenaInit)
	for i := range q.arena {
		q.arena[i].next = uint32(i + 1)
	}
	q.arena[len(q.arena)-1].next = nilIdx
	q.freeHead = 0
	for i := range q.buckets {
		q.buckets[i] = bucket{head: nilIdx, tail: nilIdx}
	}
	return q
}

// ============================================================================
// ARENA MANAGEMENT
// ============================================================================

// alloc takes a node off the freelist, growing the arena when drained.
// Growth is the only allocating path and only ever runs on enqueue bursts
// beyond the current capacity.
func (q *Queue) alloc() uint32 {
	if q.freeHead == nilIdx {
		old := len(q.arena)
		q.arena = append(q.arena, make([]node, old)...)
		for i := old; i < len(q.arena); i++ {
			q.arena[i].next = uint32(i + 1)
		}
		q.arena[len(q.arena)-1].next = nilIdx
		q.freeHead = uint32(old)
	}
	h := q.freeHead
	q.freeHead = q.arena[h].next
	return h
}

// free pushes a node back on the freelist.
//
//go:nosplit
//go:inline
func (q *Queue) free(h uint32) {
	n := &q.arena[h]
	n.tid, n.prev = 0, nilIdx
	n.next = q.freeHead
	q.freeHead = h
}

// ============================================================================
// BITMAP & HINT MAINTENANCE
// ============================================================================

//go:nosplit
//go:inline
func (q *Queue) setOccupied(b int) {
	q.occupied[b>>6] |= 1 << (b & 63)
}

//go:nosplit
//go:inline
func (q *Queue) clearOccupied(b int) {
	q.occupied[b>>6] &^= 1 << (b & 63)
}

// lowestOccupied scans the occupancy bitmap for the first non-empty bucket
// at or above `from`, returning -1 when every bucket is empty.
//
//go:nosplit
func (q *Queue) lowestOccupied(from int) int {
	w := from >> 6
	if w >= numWords {
		return -1
	}
	// Partial first word: mask off priorities below `from`.
	if m := q.occupied[w] &^ ((1 << (from & 63)) - 1); m != 0 {
		return w<<6 + bits.TrailingZeros64(m)
	}
	for w++; w < numWords; w++ {
		if m := q.occupied[w]; m != 0 {
			return w<<6 + bits.TrailingZeros64(m)
		}
	}
	return -1
}

// refreshHint recomputes the cached minimum starting at `from`.
//
//go:nosplit
//go:inline
func (q *Queue) refreshHint(from int) {
	q.hint = int32(q.lowestOccupied(from))
}

// ============================================================================
// PUBLIC API OPERATIONS
// ============================================================================

// Enqueue appends tid to the FIFO chain of its priority bucket and updates
// the cached minimum. Never fails; the arena grows on demand.
func (q *Queue) Enqueue(tid Tid, prio uint8) {
	h := q.alloc()
	b := &q.buckets[prio]

	n := &q.arena[h]
	n.tid = tid
	n.prio = uint16(prio)
	n.seq = q.seq.Add(1)
	n.next = nilIdx
	n.prev = b.tail

	if b.tail != nilIdx {
		q.arena[b.tail].next = h
	} else {
		b.head = h
		q.setOccupied(int(prio))
	}
	b.tail = h

	if q.hint == noHint || int32(prio) < q.hint {
		q.hint = int32(prio)
	}
	q.length.Add(1)
}

// Dequeue removes and returns the highest-precedence (numerically lowest
// priority, FIFO within the level) thread ID. Returns false when empty.
//
// The cached hint carries the common case; a stale hint triggers a bitmap
// rescan, and an inconsistent bitmap degrades further to a full linear
// bucket walk. Correctness never depends on the caches being right.
func (q *Queue) Dequeue() (Tid, bool) {
	if q.length.Load() == 0 {
		return 0, false
	}

	// Fast path: cached hint points at a populated bucket.
	if q.hint != noHint {
		b := int(q.hint)
		if q.buckets[b].head != nilIdx {
			return q.popHead(b), true
		}
		// Stale hint: the bucket drained without a refresh. Rescan.
		q.clearOccupied(b)
		q.refreshHint(b)
		if q.hint != noHint && q.buckets[q.hint].head != nilIdx {
			return q.popHead(int(q.hint)), true
		}
	}

	// Slow path: full linear scan, trusting only the chains themselves.
	for b := 0; b < numBuckets; b++ {
		if q.buckets[b].head != nilIdx {
			q.hint = int32(b)
			q.setOccupied(b)
			return q.popHead(b), true
		}
	}
	return 0, false
}

// Peek returns the thread Dequeue would select without removing it.
func (q *Queue) Peek() (Tid, bool) {
	if q.length.Load() == 0 {
		return 0, false
	}
	if q.hint != noHint && q.buckets[q.hint].head != nilIdx {
		return q.arena[q.buckets[q.hint].head].tid, true
	}
	for b := 0; b < numBuckets; b++ {
		if q.buckets[b].head != nilIdx {
			return q.arena[q.buckets[b].head].tid, true
		}
	}
	return 0, false
}

// Remove deletes the first queued entry for tid, scanning buckets in
// priority order. Returns whether anything was removed. O(total entries)
// worst case; used when a thread blocks, dies, or changes priority.
func (q *Queue) Remove(tid Tid) bool {
	start := 0
	if q.hint != noHint {
		start = int(q.hint)
	}
	if q.removeScan(start, tid) {
		return true
	}
	// Hint may sit above the entry's bucket (e.g. after a priority change
	// elsewhere); cover the skipped prefix.
	if start > 0 && q.removeScan(0, tid) {
		return true
	}
	return false
}

// removeScan walks chains from bucket `from` upward looking for tid.
func (q *Queue) removeScan(from int, tid Tid) bool {
	for b := q.lowestOccupied(from); b >= 0; b = q.lowestOccupied(b + 1) {
		for h := q.buckets[b].head; h != nilIdx; h = q.arena[h].next {
			if q.arena[h].tid == tid {
				q.unlink(b, h)
				return true
			}
		}
	}
	return false
}

// Len returns the entry count via the atomic counter.
//
//go:nosplit
//go:inline
func (q *Queue) Len() int {
	return int(q.length.Load())
}

// Empty reports whether the queue holds no entries.
//
//go:nosplit
//go:inline
func (q *Queue) Empty() bool {
	return q.length.Load() == 0
}

// ============================================================================
// INTERNAL OPERATIONS
// ============================================================================

// popHead removes the FIFO head of bucket b. Caller guarantees non-empty.
//
//go:nosplit
func (q *Queue) popHead(b int) Tid {
	bk := &q.buckets[b]
	h := bk.head
	n := &q.arena[h]
	tid := n.tid

	bk.head = n.next
	if bk.head != nilIdx {
		q.arena[bk.head].prev = nilIdx
	} else {
		bk.tail = nilIdx
		q.clearOccupied(b)
		q.refreshHint(b)
	}

	q.free(h)
	q.length.Add(-1)
	return tid
}

// unlink removes an arbitrary node h from bucket b's chain.
func (q *Queue) unlink(b int, h uint32) {
	bk := &q.buckets[b]
	n := &q.arena[h]

	if n.prev != nilIdx {
		q.arena[n.prev].next = n.next
	} else {
		bk.head = n.next
	}
	if n.next != nilIdx {
		q.arena[n.next].prev = n.prev
	} else {
		bk.tail = n.prev
	}

	if bk.head == nilIdx {
		q.clearOccupied(b)
		if q.hint == int32(b) {
			q.refreshHint(b)
		}
	}

	q.free(h)
	q.length.Add(-1)
}
