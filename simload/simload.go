// ════════════════════════════════════════════════════════════════════════════════════════════════
// Synthetic Load Generator
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: Unified Kernel Core
// Component: Warm-Up & Soak Traffic Synthesis
//
// Description:
//   Generates a realistic workload against the scheduler and dispatcher:
//   thread arrivals follow a Poisson process and syscall numbers follow a
//   Zipf distribution, so a small set of hot syscalls dominates the mix the
//   way real trap traffic does. Used to pre-train the adaptive fast path
//   during warm-up and to drive soak runs.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package simload

import (
	"math/rand"

	"gonum.org/v1/gonum/stat/distuv"

	"main/constants"
	"main/sched"
	"main/trapring"
)

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// CORE DATA STRUCTURES
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Generator produces synthetic thread arrivals and trap events.
// Not safe for concurrent use; run one generator per producing goroutine.
type Generator struct {
	arrivals distuv.Poisson // threads arriving per tick
	zipf     *rand.Zipf     // skewed syscall number mix
	rng      *rand.Rand
	nextTid  uint32
}

// New builds a generator with a fixed seed for reproducible runs.
// lambda is the mean thread arrival rate per tick; maxSyscall bounds the
// generated syscall numbers (exclusive).
func New(seed int64, lambda float64, maxSyscall uint32) *Generator {
	if maxSyscall < 2 {
		maxSyscall = 2
	}
	rng := rand.New(rand.NewSource(seed))
	return &Generator{
		arrivals: distuv.Poisson{Lambda: lambda},
		zipf:     rand.NewZipf(rng, 1.2, 1.0, uint64(maxSyscall-1)),
		rng:      rng,
		nextTid:  1,
	}
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// TRAFFIC SYNTHESIS
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// NextArrivals draws the number of threads arriving this tick.
func (g *Generator) NextArrivals() int {
	return int(g.arrivals.Rand())
}

// SpawnThread registers one synthetic thread with s and returns its tid.
// Priorities, policies and affinity masks are drawn to cover the full
// range: most threads are unrestricted, a minority pin to one CPU.
func (g *Generator) SpawnThread(s *sched.UnifiedScheduler) sched.Tid {
	tid := sched.Tid(g.nextTid)
	g.nextTid++
	if g.nextTid >= constants.IdleTidBase {
		g.nextTid = 1 // never collide with the idle tid range
	}

	prio := g.rng.Intn(constants.NumPriorities)
	policy := sched.Policy(g.rng.Intn(5))

	var affinity uint64
	if g.rng.Intn(4) == 0 {
		affinity = 1 << uint(g.rng.Intn(s.NumCPUs()))
	}

	s.RegisterThread(tid, uint32(tid), prio, policy, affinity)
	return tid
}

// NextTrap draws one trap event for tid with a Zipf-distributed syscall
// number and small random arguments.
func (g *Generator) NextTrap(tid sched.Tid) trapring.TrapEvent {
	ev := trapring.TrapEvent{
		Num: uint32(g.zipf.Uint64()),
		Tid: uint32(tid),
	}
	nargs := g.rng.Intn(len(ev.Args) + 1)
	for i := 0; i < nargs; i++ {
		ev.Args[i] = uint64(g.rng.Intn(1 << 16))
	}
	return ev
}
