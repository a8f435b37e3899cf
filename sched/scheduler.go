// ════════════════════════════════════════════════════════════════════════════════════════════════
// Unified Thread Scheduler - Multi-CPU Core
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: Unified Kernel Core
// Component: Thread Registration, Dispatch Selection & Statistics
//
// Description:
//   UnifiedScheduler owns one PerCpuScheduler per logical CPU plus the
//   global thread-metadata table. A thread becoming runnable is enqueued on
//   every CPU its affinity permits — the steal-based design makes it a
//   system-wide candidate, and whichever CPU dequeues it first wins the
//   atomic claim. schedule() runs synchronously on the calling CPU: local
//   dequeue first, work stealing second, per-CPU idle thread last.
//
// Locking model:
//   - tableMu (RWMutex) guards the Tid→metadata map; schedule() takes only
//     the shared side for the claim lookup
//   - each per-CPU queue has its own mutex, held for one operation
//   - priority/state/claim are atomics inside the metadata record
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package sched

import (
	"sync"
	"sync/atomic"

	"main/constants"
)

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// CORE DATA STRUCTURES
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// UnifiedScheduler is the process-wide thread scheduler.
type UnifiedScheduler struct {
	cpus []*PerCpuScheduler

	tableMu sync.RWMutex
	threads map[Tid]*threadMeta

	steals        atomic.Uint64 // successful remote dequeues
	stealAttempts atomic.Uint64 // stealing passes entered
}

// Stats aggregates scheduler counters for telemetry collaborators.
type Stats struct {
	ContextSwitches uint64 // sum of per-CPU switch counters
	RunnableThreads int    // registered threads currently Runnable
	TotalQueueLen   int    // entries across all CPU queues
	MaxQueueLen     int    // longest single CPU queue
	Steals          uint64 // successful work steals
	StealAttempts   uint64 // stealing passes entered
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// CONSTRUCTION
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// NewUnifiedScheduler builds per-CPU schedulers for numCPUs logical CPUs
// (clamped to [1, MaxCpus]) and registers one idle thread per CPU. Idle
// threads never sit on a run queue; they are the fallback schedule()
// returns when both the local queue and every steal candidate come up dry.
func NewUnifiedScheduler(numCPUs int) *UnifiedScheduler {
	if numCPUs < 1 {
		numCPUs = 1
	}
	if numCPUs > constants.MaxCpus {
		numCPUs = constants.MaxCpus
	}

	s := &UnifiedScheduler{
		cpus:    make([]*PerCpuScheduler, numCPUs),
		threads: make(map[Tid]*threadMeta, 256),
	}
	for i := range s.cpus {
		s.cpus[i] = newPerCpuScheduler()

		idle := &threadMeta{
			tid:      idleTid(i),
			pid:      0,
			affinity: 1 << uint(i),
			policy:   PolicyIdle,
		}
		idle.priority.Store(constants.MaxPriority)
		idle.state.Store(uint32(StateRunnable))
		idle.timeSlice.Store(int64(PolicyIdle.TimeSlice()))
		idle.lastCPU.Store(int32(i))
		s.threads[idle.tid] = idle

		s.cpus[i].setCurrent(idle.tid)
	}
	return s
}

// idleTid maps a CPU index to its reserved idle thread ID.
//
//go:nosplit
//go:inline
func idleTid(cpu int) Tid {
	return Tid(constants.IdleTidBase + cpu)
}

// NumCPUs returns the CPU count the scheduler was built for.
func (s *UnifiedScheduler) NumCPUs() int {
	return len(s.cpus)
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// THREAD REGISTRATION
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// RegisterThread creates metadata for tid (priority clamped to
// [0, MaxPriority], time slice defaulted by policy) and enqueues it on
// every CPU its affinity mask permits — all CPUs when the mask is 0.
// Re-registering an existing tid replaces it after a full scrub.
func (s *UnifiedScheduler) RegisterThread(tid Tid, pid uint32, priority int, policy Policy, affinity uint64) {
	if priority < 0 {
		priority = 0
	}
	if priority > constants.MaxPriority {
		priority = constants.MaxPriority
	}

	m := &threadMeta{
		tid:      tid,
		pid:      pid,
		affinity: affinity,
		policy:   policy,
	}
	m.priority.Store(uint32(priority))
	m.state.Store(uint32(StateRunnable))
	m.timeSlice.Store(int64(policy.TimeSlice()))
	m.lastCPU.Store(-1)

	s.tableMu.Lock()
	_, existed := s.threads[tid]
	s.threads[tid] = m
	s.tableMu.Unlock()

	if existed {
		s.removeFromAllQueues(tid)
	}
	s.enqueueEligible(tid, uint8(priority), affinity)
}

// UnregisterThread drops tid's metadata and scrubs it from every CPU's
// queue. Unregistering an unknown tid is a no-op, not an error.
func (s *UnifiedScheduler) UnregisterThread(tid Tid) {
	s.tableMu.Lock()
	delete(s.threads, tid)
	s.tableMu.Unlock()

	s.removeFromAllQueues(tid)
}

// enqueueEligible pushes tid on every CPU selected by the affinity mask.
func (s *UnifiedScheduler) enqueueEligible(tid Tid, prio uint8, affinity uint64) {
	for i, p := range s.cpus {
		if affinity == 0 || affinity&(1<<uint(i)) != 0 {
			p.enqueue(tid, prio)
		}
	}
}

// removeFromAllQueues scrubs tid unconditionally; absence is not an error.
func (s *UnifiedScheduler) removeFromAllQueues(tid Tid) {
	for _, p := range s.cpus {
		p.remove(tid)
	}
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// DISPATCH SELECTION
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Schedule picks the next thread to run on cpu. Local dequeue is the fast
// path; an empty local queue falls back to work stealing; a failed steal
// pass yields the CPU's idle thread. Schedule never returns "nothing" once
// the scheduler is initialized.
func (s *UnifiedScheduler) Schedule(cpu int) Tid {
	p := s.cpus[cpu]

	// Fast path: local dequeue, retrying past entries whose thread was
	// already claimed by another CPU or unregistered under us.
	for {
		tid, ok := p.dequeue()
		if !ok {
			break
		}
		if s.claim(tid, cpu) {
			return s.commit(p, tid)
		}
	}

	// Local queue empty: try to steal from a loaded sibling.
	if tid, ok := s.steal(cpu); ok {
		return s.commit(p, tid)
	}

	// Nothing anywhere — run this CPU's idle thread.
	return s.commit(p, idleTid(cpu))
}

// claim wins or loses the dispatch race for tid. The CAS on the claim flag
// is the single point deciding which CPU runs a thread that was visible on
// several queues at once. A tid with no metadata (unregistered while
// queued) never claims.
func (s *UnifiedScheduler) claim(tid Tid, cpu int) bool {
	s.tableMu.RLock()
	m := s.threads[tid]
	s.tableMu.RUnlock()
	if m == nil {
		return false
	}
	if !m.claimed.CompareAndSwap(0, 1) {
		return false
	}
	m.state.Store(uint32(StateRunning))
	m.lastCPU.Store(int32(cpu))
	return true
}

// releaseClaim returns a thread's claim flag to 0, if it exists.
func (s *UnifiedScheduler) releaseClaim(tid Tid) {
	s.tableMu.RLock()
	m := s.threads[tid]
	s.tableMu.RUnlock()
	if m != nil {
		m.claimed.Store(0)
	}
}

// commit installs tid as the CPU's current thread and releases the claim
// of the thread it displaced. Idle threads are per-CPU and uncontended, so
// they carry no claim.
func (s *UnifiedScheduler) commit(p *PerCpuScheduler, tid Tid) Tid {
	prev := p.setCurrent(tid)
	if prev != tid && prev != 0 && !isIdleTid(prev) {
		s.releaseClaim(prev)
	}
	return tid
}

//go:nosplit
//go:inline
func isIdleTid(tid Tid) bool {
	return tid >= constants.IdleTidBase
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// STATE & PRIORITY MUTATION
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// SetThreadState transitions tid's lifecycle state. Entering Runnable
// clears the claim and re-enqueues on eligible CPUs; leaving Runnable
// scrubs the thread from every queue. Unknown tids fail with
// ErrThreadNotFound.
func (s *UnifiedScheduler) SetThreadState(tid Tid, st State) error {
	s.tableMu.RLock()
	m := s.threads[tid]
	s.tableMu.RUnlock()
	if m == nil {
		return ErrThreadNotFound
	}

	m.state.Store(uint32(st))
	if st == StateRunnable {
		m.claimed.Store(0)
		s.enqueueEligible(tid, uint8(m.priority.Load()), m.affinity)
	} else {
		s.removeFromAllQueues(tid)
	}
	return nil
}

// SetPriority updates tid's priority (clamped). A Runnable thread is
// pulled from every queue before re-insertion, so no CPU ever observes it
// under two different priorities — at the cost of a brief window where it
// is absent from all queues and simply not a candidate.
func (s *UnifiedScheduler) SetPriority(tid Tid, priority int) error {
	if priority < 0 {
		priority = 0
	}
	if priority > constants.MaxPriority {
		priority = constants.MaxPriority
	}

	s.tableMu.RLock()
	m := s.threads[tid]
	s.tableMu.RUnlock()
	if m == nil {
		return ErrThreadNotFound
	}

	m.priority.Store(uint32(priority))
	if State(m.state.Load()) == StateRunnable {
		s.removeFromAllQueues(tid)
		s.enqueueEligible(tid, uint8(priority), m.affinity)
	}
	return nil
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// OBSERVABILITY
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// GetCurrentThread returns the thread last dispatched on cpu.
func (s *UnifiedScheduler) GetCurrentThread(cpu int) Tid {
	return s.cpus[cpu].currentTid()
}

// GetQueueLen returns the ready-queue depth of cpu.
func (s *UnifiedScheduler) GetQueueLen(cpu int) int {
	return s.cpus[cpu].queueLen()
}

// GetThreadInfo snapshots tid's metadata for observability callers.
func (s *UnifiedScheduler) GetThreadInfo(tid Tid) (ThreadInfo, error) {
	s.tableMu.RLock()
	m := s.threads[tid]
	s.tableMu.RUnlock()
	if m == nil {
		return ThreadInfo{}, ErrThreadNotFound
	}
	return m.snapshot(), nil
}

// GetStats aggregates context switches, runnable population and queue
// depths across every CPU.
func (s *UnifiedScheduler) GetStats() Stats {
	st := Stats{
		Steals:        s.steals.Load(),
		StealAttempts: s.stealAttempts.Load(),
	}
	for _, p := range s.cpus {
		st.ContextSwitches += p.switches.Load()
		l := p.queueLen()
		st.TotalQueueLen += l
		if l > st.MaxQueueLen {
			st.MaxQueueLen = l
		}
	}

	s.tableMu.RLock()
	for _, m := range s.threads {
		if State(m.state.Load()) == StateRunnable && !isIdleTid(m.tid) {
			st.RunnableThreads++
		}
	}
	s.tableMu.RUnlock()
	return st
}
