// ════════════════════════════════════════════════════════════════════════════════════════════════
// Unified Thread Scheduler - Per-CPU Scheduler
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: Unified Kernel Core
// Component: Single-CPU Run Queue Wrapper & Context-Switch Accounting
//
// Description:
//   One PerCpuScheduler exists per logical CPU. It owns that CPU's priority
//   run queue behind a mutex whose contention is strictly local: the only
//   other parties ever taking it are remote CPUs attempting a steal, and
//   then only for the duration of a single dequeue.
//
// Locking scope:
//   - queueMu guards exactly one enqueue, dequeue or removal at a time
//   - current/switch counters are atomics, readable with no lock at all
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package sched

import (
	"sync"
	"sync/atomic"
	"time"

	"main/runqueue"
)

// PerCpuScheduler wraps one CPU's run queue plus its currently-running
// thread and context-switch counters.
//
//go:align 64
type PerCpuScheduler struct {
	_       [64]byte   // isolate the lock word from neighboring schedulers
	queueMu sync.Mutex // guards queue; scope = one queue operation
	queue   *runqueue.Queue

	current    atomic.Uint32 // Tid currently dispatched on this CPU
	switches   atomic.Uint64 // context-switch count (current changed)
	lastSwitch atomic.Int64  // diagnostics only: nanosecond switch stamp
	_          [32]byte      // pad hot counters away from the next CPU
}

func newPerCpuScheduler() *PerCpuScheduler {
	return &PerCpuScheduler{queue: runqueue.New()}
}

// enqueue adds tid at prio under the queue lock.
func (p *PerCpuScheduler) enqueue(tid Tid, prio uint8) {
	p.queueMu.Lock()
	p.queue.Enqueue(tid, prio)
	p.queueMu.Unlock()
}

// dequeue pops the highest-precedence thread under the queue lock.
func (p *PerCpuScheduler) dequeue() (Tid, bool) {
	p.queueMu.Lock()
	tid, ok := p.queue.Dequeue()
	p.queueMu.Unlock()
	return tid, ok
}

// remove scrubs tid from the queue under the lock; no-op when absent.
func (p *PerCpuScheduler) remove(tid Tid) bool {
	p.queueMu.Lock()
	ok := p.queue.Remove(tid)
	p.queueMu.Unlock()
	return ok
}

// queueLen reads the queue's atomic length without taking the lock —
// stealing candidates are sized up opportunistically.
//
//go:nosplit
//go:inline
func (p *PerCpuScheduler) queueLen() int {
	return p.queue.Len()
}

// setCurrent installs tid as this CPU's running thread, bumping the
// context-switch counter exactly once per actual change and stamping the
// switch time for diagnostics. Returns the previous occupant.
func (p *PerCpuScheduler) setCurrent(tid Tid) Tid {
	prev := Tid(p.current.Swap(uint32(tid)))
	if prev != tid {
		p.switches.Add(1)
		p.lastSwitch.Store(time.Now().UnixNano())
	}
	return prev
}

// currentTid returns the thread last dispatched on this CPU.
//
//go:nosplit
//go:inline
func (p *PerCpuScheduler) currentTid() Tid {
	return Tid(p.current.Load())
}
