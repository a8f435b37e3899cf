// ════════════════════════════════════════════════════════════════════════════════════════════════
// Unified Thread Scheduler - Work-Stealing Load Balancer
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: Unified Kernel Core
// Component: Cross-CPU Run Queue Balancing
//
// Description:
//   A single global queue would serialize every scheduling decision across
//   all CPUs; fully independent queues would let one CPU idle against
//   another's backlog. Stealing is the middle ground: free in the common
//   case, corrective when load skews.
//
// Heuristics (invoked only when the local queue is empty):
//   - No stealing at all past StealLoadCutoff local threads
//   - Randomized victim start index — repeated passes don't gang up on CPU 0
//   - Early-exit probability 80/60/30 by local load, re-rolled per candidate
//     after the first StealRerollAfter attempts, so stealing backs off under
//     contention instead of hammering every remote queue each idle tick
//   - Victim must hold strictly more than local_load + attempts_so_far
//     entries: later attempts get pickier, draining only clear overloads
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package sched

import (
	"main/constants"
	"main/utils"
)

// gamma is the Weyl-sequence increment that derives successive pseudo-random
// rolls from one timestamp seed (golden-ratio constant).
const gamma = 0x9e3779b97f4a7c15

// stealProb maps local load to the early-exit probability (percent).
//
//go:nosplit
//go:inline
func stealProb(localLoad int) uint64 {
	switch localLoad {
	case 0:
		return constants.StealProbEmpty
	case 1:
		return constants.StealProbLoad1
	default:
		return constants.StealProbLoaded
	}
}

// steal scans sibling CPUs in randomized order for a queue worth draining.
// On success the stolen thread is claimed, stamped with its new CPU, and
// returned for commit. Called with the local queue already empty, but the
// threshold logic stays explicit: it also gates re-entry from callers with
// residual load.
func (s *UnifiedScheduler) steal(cpu int) (Tid, bool) {
	n := len(s.cpus)
	if n < 2 {
		return 0, false
	}

	localLoad := s.cpus[cpu].queueLen()
	if localLoad > constants.StealLoadCutoff {
		return 0, false // steal-thrash guard
	}
	s.stealAttempts.Add(1)

	// Low-quality, fast randomness: avalanche-mixed timestamp/CPU hash.
	// Distribution across candidates is all that matters here.
	rng := utils.Mix64(utils.Cputicks() ^ uint64(cpu)<<32)
	start := int(rng % uint64(n))
	prob := stealProb(localLoad)

	attempts := 0
	for i := 0; i < n && attempts < n-1; i++ {
		victim := (start + i) % n
		if victim == cpu {
			continue
		}
		attempts++

		// Re-roll the early-exit check on later attempts; back off rather
		// than scan every sibling when the dice say stop.
		if attempts > constants.StealRerollAfter {
			rng = utils.Mix64(rng + gamma)
			if rng%100 >= prob {
				return 0, false
			}
		}

		// Increasing threshold: leave mildly-loaded CPUs alone.
		if s.cpus[victim].queueLen() <= localLoad+attempts {
			continue
		}

		tid, ok := s.cpus[victim].dequeue()
		if !ok {
			continue // raced with the victim draining itself
		}
		if !s.claim(tid, cpu) {
			continue // another CPU already won this thread
		}
		s.steals.Add(1)
		return tid, true
	}
	return 0, false
}
