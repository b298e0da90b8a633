package cuepoint

import "go.uber.org/atomic"

// Table holds the current Set and swaps it as a whole.
// Concurrent readers observe either the previous or the new set, never a mix.
type Table struct {
	current *atomic.Pointer[Set]
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{current: atomic.NewPointer(&Set{})}
}

// Load returns the current set.
func (t *Table) Load() Set {
	return *t.current.Load()
}

// Replace installs s and returns the set it replaced.
func (t *Table) Replace(s Set) Set {
	return *t.current.Swap(&s)
}

// Clear drops all cue points.
func (t *Table) Clear() {
	t.current.Store(&Set{})
}
