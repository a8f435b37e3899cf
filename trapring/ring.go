// ════════════════════════════════════════════════════════════════════════════════════════════════
// Trap Event Ring - Lock-Free SPSC Transport
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: Unified Kernel Core
// Component: Trap Entry to Dispatch Core Handoff
//
// Description:
//   Single-producer/single-consumer ring buffer carrying raw trap events
//   from the trap entry path to a dispatch core. Fixed 56-byte payload plus
//   an 8-byte sequence stamp fills exactly one cache line per slot.
//
// Architecture:
//   - Separated head/tail cursors on isolated cache lines
//   - Sequence-based slot availability signaling, no atomic RMW on the path
//   - Power-of-2 sizing with bit masking
//   - Zero allocation in steady state
//
// Safety model:
//   - SPSC discipline required: one producer, one consumer, no validation
//   - Push returns false when full; overflow policy is the caller's
//   - Pop results are valid until the next ring operation
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package trapring

import (
	"sync/atomic"
)

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// CORE DATA STRUCTURES
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// TrapEvent is one raw trap as captured at the entry path: the syscall
// number, the issuing thread, and up to six register-passed arguments.
// Layout is exactly 56 bytes so a stamped slot fills one cache line.
type TrapEvent struct {
	Num  uint32    // Syscall number
	Tid  uint32    // Issuing thread
	Args [6]uint64 // Register-passed arguments, unused ones zero
}

// slot carries one event plus its sequence stamp.
//
// Sequence semantics:
//   - Producer: sets seq = position + 1 when data is ready
//   - Consumer: expects seq = position + 1 for available data
//   - Reset: consumer sets seq = position + ring_size for reuse
//
//go:notinheap
//go:align 64
type slot struct {
	ev  TrapEvent // 56 bytes of payload
	seq uint64    // Sequence stamp (completes the 64-byte line)
}

// Ring is a cache-isolated SPSC ring of trap events.
//
// Memory layout (256 bytes total):
//   - Cache line 1: head cursor (consumer side)
//   - Cache line 2: tail cursor (producer side)
//   - Cache line 4: mask, step, buffer pointer
//
//go:notinheap
//go:align 64
type Ring struct {
	_    [64]byte // Cache line isolation for head cursor
	head uint64   // Consumer read position

	_    [56]byte // Cache line isolation for tail cursor
	tail uint64   // Producer write position

	_ [56]byte // Reserved

	mask uint64 // Size - 1 for modulo via bit masking
	step uint64 // Ring size for sequence reset
	buf  []slot // Backing buffer

	_ [3]uint64 // Tail padding to complete 256 bytes
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// CONSTRUCTOR
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// New creates a trap ring with the given capacity.
// Capacity must be a positive power of two.
//
//go:norace
//go:nocheckptr
//go:nosplit
//go:inline
//go:registerparams
func New(size int) *Ring {
	if size <= 0 || size&(size-1) != 0 {
		panic("trapring: size must be >0 and power of two")
	}

	r := &Ring{
		mask: uint64(size - 1),
		step: uint64(size),
		buf:  make([]slot, size),
	}

	// Stamp every slot writable for its first lap.
	for i := range r.buf {
		r.buf[i].seq = uint64(i)
	}

	return r
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// PRODUCER OPERATIONS
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Push enqueues one trap event. Returns false when the ring is full;
// the caller decides whether to drop or retry.
//
// ⚠️  Single producer only. The event is copied, not referenced.
//
//go:norace
//go:nocheckptr
//go:nosplit
//go:inline
//go:registerparams
func (r *Ring) Push(ev *TrapEvent) bool {
	t := r.tail
	s := &r.buf[t&r.mask]

	// Slot must have completed its previous lap.
	if atomic.LoadUint64(&s.seq) != t {
		return false
	}

	s.ev = *ev

	// Publish to the consumer.
	atomic.StoreUint64(&s.seq, t+1)

	r.tail = t + 1
	return true
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// CONSUMER OPERATIONS
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Pop dequeues the next trap event, or nil when the ring is empty.
// The returned pointer is valid only until the next ring operation.
//
// ⚠️  Single consumer only.
//
//go:norace
//go:nocheckptr
//go:nosplit
//go:inline
//go:registerparams
func (r *Ring) Pop() *TrapEvent {
	h := r.head
	s := &r.buf[h&r.mask]

	if atomic.LoadUint64(&s.seq) != h+1 {
		return nil
	}

	ev := &s.ev

	// Mark the slot writable for the producer's next lap.
	atomic.StoreUint64(&s.seq, h+r.step)

	r.head = h + 1
	return ev
}

// PopWait spins until an event is available. For dedicated consumer
// threads only; there is no sleep path.
//
//go:norace
//go:nocheckptr
//go:nosplit
//go:inline
//go:registerparams
func (r *Ring) PopWait() *TrapEvent {
	for {
		if p := r.Pop(); p != nil {
			return p
		}
		cpuRelax()
	}
}
