// control.go — Global control flags and activity management for pinned consumers
// ============================================================================
// SYSTEM CONTROL ORCHESTRATION
// ============================================================================
//
// Control package provides lightweight global signaling infrastructure for
// coordinating activity states and graceful shutdown across the per-CPU
// trap consumers with nanosecond-precision timing and zero-allocation
// operations.
//
// Threading model:
//   • Trap producers signal activity via SignalActivity()
//   • Pinned consumers poll flags via Flags() for spin-mode selection
//   • Automatic cooldown prevents unnecessary hot spinning when idle
//   • Shutdown() broadcasts termination; ShutdownWG gates process exit
//
// Safety guarantees:
//   • Race-free flag access with atomic loads/stores
//   • Bounded cooldown periods prevent infinite hot spinning
//   • Deterministic shutdown behavior across all cores

package control

import (
	"sync"
	"sync/atomic"
	"time"
)

// ============================================================================
// GLOBAL STATE MANAGEMENT
// ============================================================================

var (
	// Global coordination flags - polled by every pinned consumer.
	hot  uint32 // Activity indicator: 1 = trap traffic flowing, 0 = idle
	stop uint32 // Shutdown signal: 1 = initiate graceful shutdown, 0 = running

	// Activity timing for automatic cooldown management.
	lastHot    int64                    // Nanosecond timestamp of last trap activity
	cooldownNs = int64(1 * time.Second) // Idle period before the hot flag clears

	// ShutdownWG counts live pinned consumers; Wait() returns once every
	// core has drained its ring and exited its loop.
	ShutdownWG sync.WaitGroup
)

// ============================================================================
// ACTIVITY SIGNALING (TRAP INGRESS INTEGRATION)
// ============================================================================

// SignalActivity marks the system as active and records precise timing for
// automatic cooldown management. Called from the trap ingress layer when a
// syscall event is enqueued.
//
//go:nosplit
//go:inline
//go:registerparams
func SignalActivity() {
	atomic.StoreUint32(&hot, 1)
	atomic.StoreInt64(&lastHot, time.Now().UnixNano())
}

// ForceHot pins the hot flag high without stamping activity time, so the
// next PollCooldown cannot immediately clear it. Used once when entering
// production mode.
//
//go:nosplit
//go:inline
//go:registerparams
func ForceHot() {
	atomic.StoreInt64(&lastHot, time.Now().UnixNano())
	atomic.StoreUint32(&hot, 1)
}

// ============================================================================
// COOLDOWN MANAGEMENT (AUTOMATIC EFFICIENCY)
// ============================================================================

// PollCooldown clears the hot flag once the configured idle period has
// elapsed since the last activity. Integrates into consumer spin loops to
// stop burning cycles during quiet periods.
//
//go:nosplit
//go:inline
//go:registerparams
func PollCooldown() {
	if atomic.LoadUint32(&hot) == 1 &&
		time.Now().UnixNano()-atomic.LoadInt64(&lastHot) > cooldownNs {
		atomic.StoreUint32(&hot, 0)
	}
}

// ============================================================================
// SYSTEM SHUTDOWN (GRACEFUL TERMINATION)
// ============================================================================

// Shutdown initiates graceful termination by setting the global stop flag.
// Every pinned consumer monitors the flag and exits its loop cleanly.
//
//go:nosplit
//go:inline
//go:registerparams
func Shutdown() {
	atomic.StoreUint32(&stop, 1)
}

// Stopping reports whether shutdown has been requested. Producer loops use
// it to stop generating trap events.
//
//go:nosplit
//go:inline
//go:registerparams
func Stopping() bool {
	return atomic.LoadUint32(&stop) != 0
}

// ============================================================================
// FLAG ACCESS (CONSUMER INTEGRATION)
// ============================================================================

// Flags returns direct pointers to the global coordination flags for
// zero-overhead polling by pinned consumer threads.
//
// Return values: (*stop_flag, *hot_flag). The pointers remain valid for the
// application lifetime.
//
//go:nosplit
//go:inline
//go:registerparams
func Flags() (*uint32, *uint32) {
	return &stop, &hot
}
