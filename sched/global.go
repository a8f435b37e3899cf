// global.go — process-wide scheduler singleton with init-once lifecycle.
//
// The scheduler is constructed exactly once at process start behind an
// initialization guard and handed out as shared read access thereafter.
// It is never reconstructed during normal operation.

package sched

import "sync"

var (
	globalOnce sync.Once
	global     *UnifiedScheduler
)

// Init constructs the process-wide scheduler on first call; later calls
// are no-ops returning the existing instance.
func Init(numCPUs int) *UnifiedScheduler {
	globalOnce.Do(func() {
		global = NewUnifiedScheduler(numCPUs)
	})
	return global
}

// Global returns the process-wide scheduler, or nil before Init.
//
//go:nosplit
//go:inline
func Global() *UnifiedScheduler {
	return global
}
