// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: debug.go — cold-path diagnostic logging helper (zero-alloc)
//
// Purpose:
//   - Logs infrequent events without introducing heap pressure.
//   - Used only in cold paths: bring-up phases, registration, shutdown,
//     telemetry flush failures.
//
// Notes:
//   - Avoids fmt.Sprintf to minimize footprint and latency.
//   - Writes straight to stderr through utils.PrintWarning.
//
// ⚠️ Never invoke in schedule() or dispatch() hot loops — failure
//    diagnostics and lifecycle traces only.
// ─────────────────────────────────────────────────────────────────────────────

package debug

import "main/utils"

// DropError logs an error with a custom alloc-free print strategy.
// A nil error prints just the prefix, usable as a cheap lifecycle tag.
//
//go:nosplit
//go:inline
//go:registerparams
func DropError(prefix string, err error) {
	if err != nil {
		msg := prefix + ": " + err.Error() + "\n"
		utils.PrintWarning(msg)
	} else {
		msg := prefix + "\n"
		utils.PrintWarning(msg)
	}
}

// DropMessage logs a tagged debug message with zero-allocation printing.
// Used for bring-up traces, registration events and shutdown coordination.
//
//go:nosplit
//go:inline
//go:registerparams
func DropMessage(prefix, message string) {
	msg := prefix + ": " + message + "\n"
	utils.PrintWarning(msg)
}
