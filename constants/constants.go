// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: constants.go — Global Scheduler & Dispatcher Tunables
//
// Purpose:
//   - Defines system-wide constants for run-queue sizing, work-stealing
//     heuristics, fast-path dispatch and per-CPU cache capacities.
//
// Notes:
//   - Sized for cache efficiency with power-of-2 alignment where it matters
//   - Steal probabilities and thresholds mirror the load-balancer contract
//
// ⚠️ No runtime logic here — all values must be compile-time resolvable
// ─────────────────────────────────────────────────────────────────────────────

package constants

import "time"

// ───────────────────────────── Scheduling ──────────────────────────────

const (
	// MaxCpus bounds the number of per-CPU schedulers. Affinity masks are a
	// single 64-bit word, so CPUs beyond 64 cannot be addressed by a mask.
	MaxCpus = 64

	// MaxPriority is the numerically largest (= least urgent) priority level.
	// Priority 0 outranks everything, matching the real-time convention where
	// RT priority 1 outranks RT priority 99.
	MaxPriority = 255

	// NumPriorities is the bucket count of every per-CPU run queue.
	NumPriorities = MaxPriority + 1

	// IdleTidBase is the first thread ID reserved for per-CPU idle threads.
	// Idle thread for CPU n is IdleTidBase + n; user tids must stay below.
	IdleTidBase = 1000

	// RunqArenaInit is the initial node-arena capacity of one run queue.
	// The arena doubles on exhaustion, so this only tunes the cold start.
	RunqArenaInit = 1 << 10
)

// Default time slices per scheduling policy. Fifo runs until it yields.
const (
	SliceFifo       = time.Duration(0)      // unbounded
	SliceRoundRobin = 10 * time.Millisecond // classic RR quantum
	SliceNormal     = 10 * time.Millisecond
	SliceBatch      = 50 * time.Millisecond // throughput over latency
	SliceIdle       = 100 * time.Millisecond
)

// ─────────────────────────── Work Stealing ─────────────────────────────

const (
	// StealLoadCutoff disables stealing entirely when the local queue already
	// holds more than this many threads — a guard against steal-thrashing
	// when several CPUs race to drain the same remote queue.
	StealLoadCutoff = 2

	// Early-exit steal probabilities (percent) indexed by local load.
	// An idle CPU steals aggressively; a mildly loaded one backs off.
	StealProbEmpty  = 80 // local queue empty
	StealProbLoad1  = 60 // exactly one local thread
	StealProbLoaded = 30 // two or more local threads

	// StealRerollAfter is the attempt count after which the early-exit
	// probability is re-rolled for each further candidate.
	StealRerollAfter = 2
)

// ─────────────────────────── Syscall Dispatch ──────────────────────────

const (
	// MaxFastPathSyscalls bounds the direct-call jump table. Syscall numbers
	// at or above this value always go through the handler map. The table
	// covers the architectural range plus the vendor block at 0x1000.
	MaxFastPathSyscalls = 0x2000

	// FastPathUpdateInterval is the default number of dispatches between
	// adaptive fast-path re-evaluation passes.
	FastPathUpdateInterval = 1000

	// FastPathPromoteCount is how many of the busiest syscalls a single
	// re-evaluation pass promotes into free fast-path slots.
	FastPathPromoteCount = 8
)

// ───────────────────────── Per-CPU Dispatch Cache ───────────────────────

const (
	// CacheRingBits sizes the per-CPU recent-syscall ring: 2^8 = 256 slots.
	// One cache line holds 16 entries, so the whole ring is 16 lines — small
	// enough to stay L1-resident on every core.
	CacheRingBits = 8
	CacheRingSize = 1 << CacheRingBits

	// FreqIdxCapacity is the expected distinct-syscall population of one
	// CPU's frequency index. The Robin Hood table doubles this internally
	// for load-factor headroom.
	FreqIdxCapacity = 512
)

// ───────────────────────── Memory Guardrails ─────────────────────────────

const (
	// HeapSoftLimit triggers a manual GC cycle during production mode when
	// exceeded. Sized so steady-state operation never reaches it.
	HeapSoftLimit = 128 << 20 // 128 MiB

	// HeapHardLimit aborts the process — a leak in a GC-disabled loop.
	HeapHardLimit = 512 << 20 // 512 MiB
)

// ───────────────────────────── Trap Ingress ──────────────────────────────

const (
	// TrapRingSize is the capacity of each per-CPU trap-event ring.
	// Power of two for mask-based indexing.
	TrapRingSize = 1 << 12

	// TelemetryFlushInterval is how often production mode persists a
	// statistics sample.
	TelemetryFlushInterval = 5 * time.Second
)
