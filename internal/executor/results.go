package executor

import (
	"sync"

	"github.com/grussorusso/faasrunner/internal/record"
)

// ResultSet collects the records of one experiment. Workers append to it
// concurrently; appended records are never modified again.
type ResultSet struct {
	mu      sync.Mutex
	records []*record.Record
}

func NewResultSet() *ResultSet {
	return &ResultSet{records: make([]*record.Record, 0)}
}

func (rs *ResultSet) Append(r *record.Record) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.records = append(rs.records, r)
}

func (rs *ResultSet) Len() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return len(rs.records)
}

// Records returns a snapshot of the collected records, in append order.
func (rs *ResultSet) Records() []*record.Record {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	out := make([]*record.Record, len(rs.records))
	copy(out, rs.records)
	return out
}
