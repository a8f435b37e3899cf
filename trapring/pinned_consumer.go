// ════════════════════════════════════════════════════════════════════════════════════════════════
// ⚡ CORE-PINNED DISPATCH CONSUMER
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: Unified Kernel Core
// Component: Dedicated Core Trap Processing
//
// Description:
//   CPU core-bound consumer for trap event rings. Drains one ring on one
//   dedicated core with adaptive polling: continuous spinning while traps
//   are flowing, graduated CPU relaxation once the producer goes quiet.
//
// Adaptive Behavior:
//   - Hot mode: continuous polling during active trap flow
//   - Cool mode: CPU relaxation after the idle threshold
//   - Core 0 variant additionally drives the global cooldown poll
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package trapring

import (
	"runtime"
	"time"

	"main/control"
)

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// CONFIGURATION CONSTANTS
// ═══════════════════════════════════════════════════════════════════════════════════════════════

const (
	// hotWindow keeps aggressive polling alive after the last trap landed.
	hotWindow = 5 * time.Second

	// spinBudget is the failed-poll count before CPU relaxation.
	spinBudget = 224
)

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// STANDARD PINNED CONSUMER
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// PinnedConsumer launches a goroutine bound to one CPU core that drains
// ring, invoking handler for every event. The goroutine locks to an OS
// thread and sets kernel CPU affinity for cache locality.
//
//   - core: target CPU core index (0-based)
//   - stop: shutdown flag, non-zero terminates the loop
//   - hot: producer activity flag, 1 forces continuous polling
//   - done: closed when the consumer terminates
//
//go:norace
//go:nocheckptr
//go:nosplit
//go:inline
//go:registerparams
func PinnedConsumer(
	core int,
	ring *Ring,
	stop *uint32,
	hot *uint32,
	handler func(*TrapEvent),
	done chan<- struct{},
) {
	go func() {
		runtime.LockOSThread()
		setAffinity(core)

		defer func() {
			runtime.UnlockOSThread()
			close(done)
		}()

		var miss int
		lastHit := time.Now()

		for {
			if *stop != 0 {
				return
			}

			if p := ring.Pop(); p != nil {
				handler(p)
				miss = 0
				lastHit = time.Now()
				continue
			}

			// Stay hot while the producer is active or traps landed recently.
			if *hot == 1 || time.Since(lastHit) <= hotWindow {
				continue
			}

			if miss++; miss >= spinBudget {
				miss = 0
				cpuRelax()
			}
		}
	}()
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// CORE 0 CONSUMER WITH COOLDOWN
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// PinnedConsumerWithCooldown is the core 0 variant. Besides draining its
// ring it polls the global cooldown state, so exactly one core owns the
// system-wide hot/cold transition.
//
//go:norace
//go:nocheckptr
//go:nosplit
//go:inline
//go:registerparams
func PinnedConsumerWithCooldown(
	core int,
	ring *Ring,
	stop *uint32,
	hot *uint32,
	handler func(*TrapEvent),
	done chan<- struct{},
) {
	go func() {
		runtime.LockOSThread()
		setAffinity(core)

		defer func() {
			runtime.UnlockOSThread()
			close(done)
		}()

		var miss int
		lastHit := time.Now()

		for {
			if *stop != 0 {
				return
			}

			if p := ring.Pop(); p != nil {
				handler(p)
				miss = 0
				lastHit = time.Now()
				continue
			}

			// Exactly one consumer drives the global cooldown.
			control.PollCooldown()

			if *hot == 1 || time.Since(lastHit) <= hotWindow {
				continue
			}

			if miss++; miss >= spinBudget {
				miss = 0
				cpuRelax()
			}
		}
	}()
}
