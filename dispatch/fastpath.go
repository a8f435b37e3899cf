// ============================================================================
// RCU FAST-PATH JUMP TABLE
// ============================================================================
//
// Fixed-size array of direct-call handlers indexed by syscall number,
// published copy-on-write: writers build a complete new table under the
// dispatcher's registration lock and swap one atomic pointer; readers load
// the snapshot with no lock and can never observe a torn mix of versions.
// The garbage collector provides the grace period — an old table stays
// alive exactly as long as some reader still holds its pointer.

package dispatch

import "main/constants"

// fastTable is one immutable fast-path snapshot. Never mutated after
// publication; updates clone the whole value.
type fastTable struct {
	slots [constants.MaxFastPathSyscalls]FastFn
	names [constants.MaxFastPathSyscalls]string
}

// clone copies the snapshot for a copy-on-write update. Array fields copy
// by value.
func (t *fastTable) clone() *fastTable {
	c := *t
	return &c
}

// withSlot returns a new snapshot with slot num set. Caller has already
// bounds-checked num.
func (t *fastTable) withSlot(num uint32, name string, fn FastFn) *fastTable {
	c := t.clone()
	c.slots[num] = fn
	c.names[num] = name
	return c
}
