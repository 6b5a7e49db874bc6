package currency

import "sync/atomic"

// Source hands out the current rate snapshot. Readers take a snapshot
// once per computation with Current; the refresher publishes new tables
// with Store. A published table is never modified.
type Source struct {
	current atomic.Pointer[Table]
}

// NewSource returns a Source that starts out serving initial.
func NewSource(initial *Table) *Source {
	s := &Source{}
	s.current.Store(initial)
	return s
}

// Current returns the latest snapshot.
func (s *Source) Current() *Table {
	return s.current.Load()
}

// Store publishes a new snapshot.
func (s *Source) Store(t *Table) {
	s.current.Store(t)
}
