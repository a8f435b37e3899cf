// setaffinity_stub.go - CPU affinity no-op for platforms without
// sched_setaffinity(2). Keeps the API identical so callers need no
// conditional compilation; the empty body inlines to nothing.

//go:build !linux || tinygo

package trapring

// setAffinity is a no-op on platforms without thread affinity control.
//
//go:nosplit
//go:inline
func setAffinity(cpu int) {
}
