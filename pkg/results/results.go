// Package results holds the ever-growing ordered record set accumulated
// across listing runs on one connection.
package results

import (
	"sync"

	"github.com/bucketdiver/bucketdiver/pkg/dto"
)

// Accumulator is the ordered collection of all object records seen so far.
// Insertion order is page-arrival order, then intra-page order. Appends come
// from the goroutine that owns the active listing session; a superseding
// "load more" run replaces the contents wholesale. No deduplication happens
// here.
type Accumulator struct {
	mu      sync.RWMutex
	records []dto.ObjectRecord
}

// New returns an empty accumulator.
func New() *Accumulator {
	return &Accumulator{}
}

// Append adds one page of records in arrival order.
func (a *Accumulator) Append(records []dto.ObjectRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, records...)
}

// ReplaceAll swaps the contents for a superseding run's complete set.
func (a *Accumulator) ReplaceAll(records []dto.ObjectRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append([]dto.ObjectRecord(nil), records...)
}

// All returns a snapshot copy of the current contents. The copy stays valid
// while the accumulator keeps growing; a reader that wants the latest state
// recomputes on the next page-ready event.
func (a *Accumulator) All() []dto.ObjectRecord {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]dto.ObjectRecord(nil), a.records...)
}

// Count returns the number of accumulated records.
func (a *Accumulator) Count() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.records)
}
