// ════════════════════════════════════════════════════════════════════════════════════════════════
// Unified Syscall Dispatcher - Core
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: Unified Kernel Core
// Component: Fast-Path Dispatch, Handler Registry & Adaptive Optimization
//
// Description:
//   Composes the RCU fast-path jump table, the RCU handler table, per-CPU
//   caches and dispatch statistics. The dispatch hot path takes no lock:
//   both tables are immutable snapshots behind atomic pointers, and the
//   only mutex on the path is the calling CPU's own cache lock.
//
// Registration model:
//   - register calls serialize on one write mutex and publish by pointer
//     swap; concurrent dispatches keep reading the old snapshot until the
//     swap lands, then the new one — never a torn mix
//   - old snapshots are reclaimed by the garbage collector once the last
//     in-flight reader drops its pointer (the grace period, for free)
//
// Adaptive optimization:
//   - every FastPathUpdateInterval dispatches, the calling CPU's most
//     frequent handler-backed syscalls are promoted into free fast-path
//     slots, so the hot syscall mix converges onto the direct-call path
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package dispatch

import (
	"sync"
	"sync/atomic"

	"main/constants"
	"main/utils"
)

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Config selects dispatcher features at construction time.
type Config struct {
	EnableFastPath             bool   // direct-call jump table
	EnablePerCpuCache          bool   // recent-ring + frequency tracking
	EnableMonitoring           bool   // cycle-counter timing of dispatches
	EnableAdaptiveOptimization bool   // periodic fast-path promotion
	FastPathUpdateInterval     uint32 // dispatches between promotion passes
}

// DefaultConfig enables everything with the standard update interval.
func DefaultConfig() Config {
	return Config{
		EnableFastPath:             true,
		EnablePerCpuCache:          true,
		EnableMonitoring:           true,
		EnableAdaptiveOptimization: true,
		FastPathUpdateInterval:     constants.FastPathUpdateInterval,
	}
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// CORE DATA STRUCTURES
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// UnifiedSyscallDispatcher routes syscall numbers to handlers.
type UnifiedSyscallDispatcher struct {
	cfg Config

	fast     atomic.Pointer[fastTable]    // live jump-table snapshot
	handlers atomic.Pointer[handlerTable] // live handler-table snapshot
	writeMu  sync.Mutex                   // serializes register_* and promotion

	caches []*PerCpuCache

	// Dispatch statistics. Plain atomic counters; the hot path pays one
	// uncontended Add per counter it touches.
	total       atomic.Uint64 // every dispatch attempt
	fastHits    atomic.Uint64 // served by the jump table
	regular     atomic.Uint64 // served by the handler map
	failures    atomic.Uint64 // InvalidSyscall or handler error
	cycles      atomic.Uint64 // summed elapsed ticks (monitoring only)
	promotions  atomic.Uint64 // fast-path slots filled adaptively
	sinceUpdate atomic.Uint32 // dispatches since the last promotion pass
}

// DispatcherStats is the exported statistics snapshot.
type DispatcherStats struct {
	TotalDispatches   uint64
	FastPathHits      uint64
	RegularDispatches uint64
	Failures          uint64
	ElapsedCycles     uint64
	Promotions        uint64
	CacheFastHits     uint64 // summed over per-CPU caches
	CacheSlowHits     uint64
	RegisteredCount   int // handler-table population
}

// SyscallRequest is one entry of a batch dispatch.
type SyscallRequest struct {
	Num  uint32
	Args []uint64
}

// DispatchResult is one batch entry's outcome.
type DispatchResult struct {
	Value uint64
	Err   error
}

// BatchResult aggregates a batch's outcomes. Batching amortizes call
// overhead only; it is not a transaction — a failed call never rolls back
// or skips its successors.
type BatchResult struct {
	Results       []DispatchResult
	Failures      int
	ElapsedCycles uint64
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// CONSTRUCTION
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// NewUnifiedSyscallDispatcher builds a dispatcher for numCPUs logical CPUs.
// A zero FastPathUpdateInterval falls back to the default.
func NewUnifiedSyscallDispatcher(numCPUs int, cfg Config) *UnifiedSyscallDispatcher {
	if numCPUs < 1 {
		numCPUs = 1
	}
	if cfg.FastPathUpdateInterval == 0 {
		cfg.FastPathUpdateInterval = constants.FastPathUpdateInterval
	}

	d := &UnifiedSyscallDispatcher{cfg: cfg}
	d.fast.Store(&fastTable{})
	d.handlers.Store(&handlerTable{})
	d.caches = make([]*PerCpuCache, numCPUs)
	for i := range d.caches {
		d.caches[i] = newPerCpuCache()
	}
	return d
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// DISPATCH (HOT PATH)
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Dispatch routes syscall num with args on behalf of cpu. Fast path first
// (one atomic load, one slot check, one call), handler map second, and
// InvalidSyscallError when neither knows the number. Handler errors pass
// through untouched.
func (d *UnifiedSyscallDispatcher) Dispatch(cpu int, num uint32, args []uint64) (uint64, error) {
	var start uint64
	if d.cfg.EnableMonitoring {
		start = utils.Cputicks()
	}
	d.total.Add(1)

	// Step 1: fast path — lock-free snapshot, direct call.
	if d.cfg.EnableFastPath && num < constants.MaxFastPathSyscalls {
		if fn := d.fast.Load().slots[num]; fn != nil {
			d.recordCache(cpu, num, true)
			v, err := fn(args)
			d.finish(start, err)
			d.fastHits.Add(1)
			d.maybeOptimize(cpu)
			return v, err
		}
	}

	// Step 2: handler map — lock-free snapshot, binary search.
	d.recordCache(cpu, num, false)
	h := d.handlers.Load().lookup(num)
	if h == nil {
		d.failures.Add(1)
		d.finish(start, nil)
		d.maybeOptimize(cpu)
		return 0, InvalidSyscallError(num)
	}

	v, err := h.Handle(args)
	d.finish(start, err)
	d.regular.Add(1)
	d.maybeOptimize(cpu)
	return v, err
}

// BatchDispatch pushes each call through the exact Dispatch path,
// collecting per-call results and the total elapsed ticks.
func (d *UnifiedSyscallDispatcher) BatchDispatch(cpu int, calls []SyscallRequest) BatchResult {
	br := BatchResult{Results: make([]DispatchResult, len(calls))}
	start := utils.Cputicks()

	for i := range calls {
		v, err := d.Dispatch(cpu, calls[i].Num, calls[i].Args)
		br.Results[i] = DispatchResult{Value: v, Err: err}
		if err != nil {
			br.Failures++
		}
	}

	br.ElapsedCycles = utils.Cputicks() - start
	return br
}

// recordCache feeds the calling CPU's cache when caching is enabled.
//
//go:nosplit
//go:inline
func (d *UnifiedSyscallDispatcher) recordCache(cpu int, num uint32, fast bool) {
	if !d.cfg.EnablePerCpuCache || cpu < 0 || cpu >= len(d.caches) {
		return
	}
	d.caches[cpu].record(num, fast)
}

// finish books elapsed time and failure accounting for one dispatch.
//
//go:nosplit
//go:inline
func (d *UnifiedSyscallDispatcher) finish(start uint64, err error) {
	if d.cfg.EnableMonitoring {
		d.cycles.Add(utils.Cputicks() - start)
	}
	if err != nil {
		d.failures.Add(1)
	}
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// REGISTRATION (RCU WRITE SIDE)
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// RegisterHandler installs h for num in the handler table. Registrations
// serialize on the write lock; in-flight dispatches keep reading the
// previous snapshot and are never blocked.
func (d *UnifiedSyscallDispatcher) RegisterHandler(num uint32, h Handler) {
	d.writeMu.Lock()
	d.handlers.Store(d.handlers.Load().insert(num, h))
	d.writeMu.Unlock()
}

// RegisterFastPath installs a direct-call handler in jump-table slot num.
// Numbers outside the table fail with ErrInvalidArguments.
func (d *UnifiedSyscallDispatcher) RegisterFastPath(num uint32, name string, fn FastFn) error {
	if num >= constants.MaxFastPathSyscalls {
		return ErrInvalidArguments
	}
	d.writeMu.Lock()
	d.fast.Store(d.fast.Load().withSlot(num, name, fn))
	d.writeMu.Unlock()
	return nil
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// ADAPTIVE FAST-PATH PROMOTION
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// maybeOptimize counts dispatches and, once per configured interval, runs
// a promotion pass driven by the calling CPU's frequency cache.
//
//go:nosplit
//go:inline
func (d *UnifiedSyscallDispatcher) maybeOptimize(cpu int) {
	if !d.cfg.EnableAdaptiveOptimization || !d.cfg.EnableFastPath || !d.cfg.EnablePerCpuCache {
		return
	}
	if d.sinceUpdate.Add(1)%d.cfg.FastPathUpdateInterval != 0 {
		return
	}
	d.promote(cpu)
}

// promote copies the calling CPU's busiest handler-backed syscalls into
// free fast-path slots. A promoted handler's Handle method becomes the
// slot's direct-call function; the handler object itself stays shared with
// the table, so replacement semantics are unchanged.
func (d *UnifiedSyscallDispatcher) promote(cpu int) {
	if cpu < 0 || cpu >= len(d.caches) {
		return
	}
	var top [constants.FastPathPromoteCount]uint32
	n := d.caches[cpu].topFrequent(top[:], constants.MaxFastPathSyscalls)
	if n == 0 {
		return
	}

	d.writeMu.Lock()
	ft := d.fast.Load()
	ht := d.handlers.Load()
	var nt *fastTable
	for _, num := range top[:n] {
		if ft.slots[num] != nil {
			continue // explicit registrations and prior promotions stand
		}
		h := ht.lookup(num)
		if h == nil {
			continue
		}
		if nt == nil {
			nt = ft.clone()
		}
		nt.slots[num] = h.Handle
		nt.names[num] = h.Name()
		d.promotions.Add(1)
	}
	if nt != nil {
		d.fast.Store(nt)
	}
	d.writeMu.Unlock()
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// READ-ONLY QUERIES
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// IsSupported reports whether num has a fast-path slot or a registered
// handler. Lock-free snapshot reads.
func (d *UnifiedSyscallDispatcher) IsSupported(num uint32) bool {
	if num < constants.MaxFastPathSyscalls && d.fast.Load().slots[num] != nil {
		return true
	}
	return d.handlers.Load().lookup(num) != nil
}

// GetName returns num's registered name — the fast-path name when a slot
// exists, the handler's otherwise, empty when unknown.
func (d *UnifiedSyscallDispatcher) GetName(num uint32) string {
	if num < constants.MaxFastPathSyscalls {
		if ft := d.fast.Load(); ft.slots[num] != nil {
			return ft.names[num]
		}
	}
	if h := d.handlers.Load().lookup(num); h != nil {
		return h.Name()
	}
	return ""
}

// GetStats snapshots the dispatch counters plus per-CPU cache aggregates.
func (d *UnifiedSyscallDispatcher) GetStats() DispatcherStats {
	st := DispatcherStats{
		TotalDispatches:   d.total.Load(),
		FastPathHits:      d.fastHits.Load(),
		RegularDispatches: d.regular.Load(),
		Failures:          d.failures.Load(),
		ElapsedCycles:     d.cycles.Load(),
		Promotions:        d.promotions.Load(),
		RegisteredCount:   d.handlers.Load().size(),
	}
	for _, c := range d.caches {
		f, s := c.counters()
		st.CacheFastHits += f
		st.CacheSlowHits += s
	}
	return st
}
