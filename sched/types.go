// ════════════════════════════════════════════════════════════════════════════════════════════════
// Unified Thread Scheduler - Thread Metadata & Policy Types
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: Unified Kernel Core
// Component: Thread State Machine & Scheduling Policies
//
// Description:
//   Metadata carried for every registered thread: identity, priority, policy,
//   CPU affinity, lifecycle state and round-robin accounting. Hot fields are
//   atomics so the schedule() path can read them under the table's shared
//   lock without promoting to exclusive.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package sched

import (
	"errors"
	"sync/atomic"
	"time"

	"main/constants"
	"main/runqueue"
)

// Tid aliases the run queue's thread identifier: opaque, unique while the
// thread exists, with values >= constants.IdleTidBase reserved for per-CPU
// idle threads.
type Tid = runqueue.Tid

// ErrThreadNotFound is returned by every metadata-mutating call handed an
// unknown Tid. It is the scheduler's only failure mode.
var ErrThreadNotFound = errors.New("sched: thread not found")

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// SCHEDULING POLICY
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Policy selects the default time-slice behavior of a thread.
type Policy uint8

const (
	PolicyFifo       Policy = iota // run to completion or voluntary yield
	PolicyRoundRobin               // fixed quantum, re-enqueued on expiry
	PolicyNormal                   // default interactive policy
	PolicyBatch                    // long quantum, throughput-oriented
	PolicyIdle                     // runs only when nothing else can
)

// TimeSlice returns the default quantum for the policy. Fifo's zero value
// means "unbounded" — the tick handler never expires it.
func (p Policy) TimeSlice() time.Duration {
	switch p {
	case PolicyFifo:
		return constants.SliceFifo
	case PolicyRoundRobin:
		return constants.SliceRoundRobin
	case PolicyBatch:
		return constants.SliceBatch
	case PolicyIdle:
		return constants.SliceIdle
	default:
		return constants.SliceNormal
	}
}

// String names the policy for diagnostics.
func (p Policy) String() string {
	switch p {
	case PolicyFifo:
		return "fifo"
	case PolicyRoundRobin:
		return "rr"
	case PolicyNormal:
		return "normal"
	case PolicyBatch:
		return "batch"
	case PolicyIdle:
		return "idle"
	}
	return "unknown"
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// THREAD LIFECYCLE STATE
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// State drives run-queue membership: a Runnable thread sits on the ready
// queue of every CPU its affinity permits; every other state keeps it off
// all queues.
type State uint8

const (
	StateRunnable State = iota // eligible; queued on affine CPUs
	StateRunning               // claimed by a CPU, off all queues
	StateBlocked               // waiting; off all queues
	StateZombie                // dead, metadata pending reap
)

// String names the state for diagnostics.
func (s State) String() string {
	switch s {
	case StateRunnable:
		return "runnable"
	case StateRunning:
		return "running"
	case StateBlocked:
		return "blocked"
	case StateZombie:
		return "zombie"
	}
	return "unknown"
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// THREAD METADATA
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// threadMeta is the scheduler-private record for one registered thread.
// Mutable hot fields (priority, state, claim) are atomics: schedule() and
// the stealing path touch them holding only the table's read lock.
//
//go:align 64
type threadMeta struct {
	tid Tid    // 4B - thread identifier
	pid uint32 // 4B - owning process

	priority atomic.Uint32 // 4B - 0 (highest) .. MaxPriority (lowest)
	state    atomic.Uint32 // 4B - State, transitioned by SetThreadState

	// claimed closes the multi-queue dequeue race: a thread made runnable
	// becomes visible on several CPUs' queues at once, and the first CPU to
	// CAS this flag 0→1 wins the dispatch. Losers drop their stale entry
	// and move to the next candidate.
	claimed atomic.Uint32 // 4B
	lastCPU atomic.Int32  // 4B - CPU that last dispatched the thread

	affinity  uint64        // 8B - eligible-CPU bitmask, 0 = any CPU
	policy    Policy        // 1B - time-slice policy, fixed at registration
	_         [7]byte       // 7B - alignment
	timeSlice atomic.Int64  // 8B - remaining quantum, nanoseconds
	_         [16]byte      // 16B - pad to cache-line boundary
}

// ThreadInfo is the read-only snapshot handed to observability callers.
type ThreadInfo struct {
	Tid       Tid
	Pid       uint32
	Priority  uint8
	Policy    Policy
	State     State
	Affinity  uint64
	TimeSlice time.Duration
	LastCPU   int
}

// snapshot copies the live metadata into an exported view.
func (m *threadMeta) snapshot() ThreadInfo {
	return ThreadInfo{
		Tid:       m.tid,
		Pid:       m.pid,
		Priority:  uint8(m.priority.Load()),
		Policy:    m.policy,
		State:     State(m.state.Load()),
		Affinity:  m.affinity,
		TimeSlice: time.Duration(m.timeSlice.Load()),
		LastCPU:   int(m.lastCPU.Load()),
	}
}
