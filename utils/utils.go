// utils.go — low-level helpers shared by the scheduler, dispatcher & telemetry.
package utils

import (
	"syscall"
	"time"
	"unsafe"
)

///////////////////////////////////////////////////////////////////////////////
// Conversion Utilities — Zero-Alloc Casts
///////////////////////////////////////////////////////////////////////////////

// B2s converts a []byte to a string **without** allocation.
// ⚠️ Caller must ensure the input slice remains valid and unchanged.
// Used for human-readable print paths.
//
//go:nosplit
//go:inline
func B2s(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(&b[0], len(b))
}

///////////////////////////////////////////////////////////////////////////////
// Diagnostic Output — fd 2 Writer, No fmt, No Allocation Beyond the Message
///////////////////////////////////////////////////////////////////////////////

// PrintWarning writes a preassembled message directly to stderr (fd 2),
// bypassing the log package and its locking/formatting machinery. Cold
// paths only.
//
//go:nosplit
//go:inline
func PrintWarning(msg string) {
	b := unsafe.Slice(unsafe.StringData(msg), len(msg))
	_, _ = syscall.Write(2, b)
}

// Itoa formats a signed integer into a fresh string without fmt. Handles
// the full int range including the minimum value.
//
//go:inline
func Itoa(v int) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	u := uint64(v)
	neg := v < 0
	if neg {
		u = uint64(-v)
	}
	for u > 0 {
		i--
		buf[i] = byte('0' + u%10)
		u /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Utox formats an unsigned integer as lowercase hex with a 0x prefix.
// Used for syscall numbers in diagnostics and error text.
//
//go:inline
func Utox(v uint64) string {
	const digits = "0123456789abcdef"
	if v == 0 {
		return "0x0"
	}
	var buf [18]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = digits[v&0xf]
		v >>= 4
	}
	i -= 2
	buf[i], buf[i+1] = '0', 'x'
	return string(buf[i:])
}

///////////////////////////////////////////////////////////////////////////////
// Hash & Mixers — Steal Randomization & Cache Indexing
///////////////////////////////////////////////////////////////////////////////

// Mix64 applies a Murmur3-style avalanche to a 64-bit value.
// Used to spread timestamp/CPU-id seeds across steal-victim orderings and
// to randomize cache ring indexing.
//
//go:nosplit
//go:inline
func Mix64(x uint64) uint64 {
	x ^= x >> 33
	x *= 0xff51afd7ed558ccd
	x ^= x >> 33
	x *= 0xc4ceb9fe1a85ec53
	x ^= x >> 33
	return x
}

///////////////////////////////////////////////////////////////////////////////
// Time Source — Cycle-Counter Stand-In
///////////////////////////////////////////////////////////////////////////////

// Cputicks returns a monotonic nanosecond timestamp. It stands in for a
// hardware cycle counter on platforms where RDTSC is unavailable from
// portable code; callers only ever consume deltas.
//
//go:nosplit
//go:inline
func Cputicks() uint64 {
	return uint64(time.Now().UnixNano())
}
