// ============================================================================
// RCU HANDLER TABLE
// ============================================================================
//
// Ordered map from syscall number to a shared handler object for syscalls
// outside the fast-path set. Same copy-on-write discipline as the jump
// table: parallel sorted slices, cloned and re-published atomically on
// every registration, binary-searched lock-free on every dispatch.

package dispatch

import "sort"

// handlerTable is one immutable registration snapshot: nums ascending,
// handlers parallel.
type handlerTable struct {
	nums     []uint32
	handlers []Handler
}

// lookup binary-searches the snapshot. Nil when num is unregistered.
//
//go:nosplit
func (t *handlerTable) lookup(num uint32) Handler {
	i := sort.Search(len(t.nums), func(i int) bool { return t.nums[i] >= num })
	if i < len(t.nums) && t.nums[i] == num {
		return t.handlers[i]
	}
	return nil
}

// insert returns a new snapshot with h registered for num, replacing any
// previous handler for the same number. The receiver is never mutated.
func (t *handlerTable) insert(num uint32, h Handler) *handlerTable {
	i := sort.Search(len(t.nums), func(i int) bool { return t.nums[i] >= num })

	if i < len(t.nums) && t.nums[i] == num {
		// In-place replacement still clones: readers may hold the old copy.
		nt := &handlerTable{
			nums:     append([]uint32(nil), t.nums...),
			handlers: append([]Handler(nil), t.handlers...),
		}
		nt.handlers[i] = h
		return nt
	}

	nt := &handlerTable{
		nums:     make([]uint32, 0, len(t.nums)+1),
		handlers: make([]Handler, 0, len(t.handlers)+1),
	}
	nt.nums = append(nt.nums, t.nums[:i]...)
	nt.nums = append(nt.nums, num)
	nt.nums = append(nt.nums, t.nums[i:]...)
	nt.handlers = append(nt.handlers, t.handlers[:i]...)
	nt.handlers = append(nt.handlers, h)
	nt.handlers = append(nt.handlers, t.handlers[i:]...)
	return nt
}

// size reports the registered-handler count.
func (t *handlerTable) size() int {
	return len(t.nums)
}
