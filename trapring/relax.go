// relax.go - spin-wait hint fallback.
//
// Architectures with a dedicated pause/yield instruction could supply an
// assembly variant behind build tags; the portable no-op keeps the API
// uniform and compiles to nothing when inlined.

package trapring

// cpuRelax hints the CPU that the caller is in a spin-wait loop.
//
//go:norace
//go:nocheckptr
//go:nosplit
//go:inline
//go:registerparams
func cpuRelax() {
}
