// global.go — process-wide dispatcher singleton with init-once lifecycle.
//
// The dispatcher is constructed exactly once at process start behind an
// initialization guard and handed out as shared read access thereafter.

package dispatch

import "sync"

var (
	globalOnce sync.Once
	global     *UnifiedSyscallDispatcher
)

// Init constructs the process-wide dispatcher on first call; later calls
// are no-ops returning the existing instance.
func Init(numCPUs int, cfg Config) *UnifiedSyscallDispatcher {
	globalOnce.Do(func() {
		global = NewUnifiedSyscallDispatcher(numCPUs, cfg)
	})
	return global
}

// Global returns the process-wide dispatcher, or nil before Init.
//
//go:nosplit
//go:inline
func Global() *UnifiedSyscallDispatcher {
	return global
}
