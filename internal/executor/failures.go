package executor

import (
	"sort"

	"github.com/cornelk/hashmap"
)

// Failures records why runs were dropped, keyed by function and run id.
type Failures struct {
	reasons *hashmap.Map[string, string]
}

func NewFailures() *Failures {
	return &Failures{reasons: hashmap.New[string, string]()}
}

func (f *Failures) Add(id string, reason error) {
	f.reasons.Set(id, reason.Error())
}

func (f *Failures) Len() int {
	return f.reasons.Len()
}

// Ids returns the ids of the failed runs, sorted.
func (f *Failures) Ids() []string {
	ids := make([]string, 0, f.reasons.Len())
	f.reasons.Range(func(id string, _ string) bool {
		ids = append(ids, id)
		return true
	})
	sort.Strings(ids)
	return ids
}

func (f *Failures) Reason(id string) (string, bool) {
	return f.reasons.Get(id)
}
