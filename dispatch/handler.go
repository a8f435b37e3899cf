// handler.go — syscall handler contracts shared by the fast path and the
// handler table.

package dispatch

import (
	"errors"

	"main/utils"
)

// FastFn is a direct-call syscall handler: one function-pointer load, one
// call, no further indirection. Fast-path slots and Handler.Handle share
// this signature so a regular handler can be promoted verbatim.
type FastFn func(args []uint64) (uint64, error)

// Handler is the contract for syscalls outside the fast-path set. Handler
// values are shared: a dispatch call may keep invoking a handler after it
// has been replaced in the live table, so implementations must be safe for
// concurrent use.
type Handler interface {
	// Handle executes the syscall. Returned errors are opaque to the
	// dispatcher — propagated, never inspected or remapped.
	Handle(args []uint64) (uint64, error)

	// Name identifies the syscall for diagnostics and GetName queries.
	Name() string
}

// InvalidSyscallError reports a dispatch for a number with neither a
// fast-path slot nor a registered handler. The value is the offending
// syscall number.
type InvalidSyscallError uint32

func (e InvalidSyscallError) Error() string {
	return "dispatch: invalid syscall " + utils.Utox(uint64(e))
}

// ErrInvalidArguments rejects a fast-path registration whose syscall
// number lies outside the jump table.
var ErrInvalidArguments = errors.New("dispatch: fast-path syscall number out of range")

// FuncHandler adapts a plain function into a named Handler.
type FuncHandler struct {
	name string
	fn   FastFn
}

// NewFuncHandler wraps fn as a Handler named name.
func NewFuncHandler(name string, fn FastFn) *FuncHandler {
	return &FuncHandler{name: name, fn: fn}
}

func (h *FuncHandler) Handle(args []uint64) (uint64, error) { return h.fn(args) }
func (h *FuncHandler) Name() string                         { return h.name }
