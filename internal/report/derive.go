package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/grussorusso/faasrunner/internal/record"
	"github.com/shopspring/decimal"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// normalize gives every run every attribute seen in any run. Attributes a run
// lacks are Missing, which aggregate as MissingSentinel.
func normalize(runs []*record.Record) {
	keys := make(map[string]struct{})
	union := make([]string, 0)
	for _, r := range runs {
		for _, k := range r.Keys() {
			if _, ok := keys[k]; !ok {
				keys[k] = struct{}{}
				union = append(union, k)
			}
		}
	}
	for _, r := range runs {
		for _, k := range union {
			if _, ok := r.Get(k); !ok {
				r.Set(k, record.MissingValue())
			}
		}
	}
}

func number(r *record.Record, key string) (decimal.Decimal, bool) {
	v, ok := r.Get(key)
	if !ok || v.IsMissing() {
		return decimal.Zero, false
	}
	return v.Decimal()
}

// addOverlap sets runtimeOverlap, the sum over all other runs of the share
// of the run's execution window they overlap with. With a filter, only runs
// with the same value of the filter attribute are considered.
func addOverlap(runs []*record.Record, filter string) {
	if len(runs) == 0 {
		return
	}
	starts := make([]decimal.Decimal, len(runs))
	ends := make([]decimal.Decimal, len(runs))
	for i, r := range runs {
		s, ok1 := number(r, record.StartTime)
		e, ok2 := number(r, record.EndTime)
		if !ok1 || !ok2 {
			return
		}
		starts[i], ends[i] = s.Truncate(0), e.Truncate(0)
	}

	for i, r1 := range runs {
		length := ends[i].Sub(starts[i])
		total := decimal.Zero
		for j, r2 := range runs {
			if i == j || length.IsZero() {
				continue
			}
			if filter != "" && !sameValue(r1, r2, filter) {
				continue
			}
			s := decimal.Max(decimal.Min(starts[j], ends[i]), starts[i])
			e := decimal.Max(decimal.Min(ends[j], ends[i]), starts[i])
			total = total.Add(e.Sub(s).Div(length))
		}
		overlap, _ := total.Round(2).Float64()
		r1.Set(record.RuntimeOverlap, record.FloatValue(overlap))
	}
}

func sameValue(r1, r2 *record.Record, key string) bool {
	if !r1.Has(key) || !r2.Has(key) {
		return false
	}
	v1, _ := r1.Get(key)
	v2, _ := r2.Get(key)
	return v1.Equal(v2)
}

// PipelineSuffix is appended to an attribute to hold its running sum over
// the stages of a pipeline pass.
const PipelineSuffix = "Pipeline"

// addPipelineSums sets, on every pipeline stage, the sum of each numeric
// attribute over the stages run so far in the same pass.
func addPipelineSums(runs []*record.Record) {
	passes := make(map[string][]*record.Record)
	order := make([]string, 0)
	for _, r := range runs {
		if !r.Has(record.PipelineStage) {
			continue
		}
		key := r.Text(record.RunId) + "." + r.Text(record.ThreadId)
		if _, ok := passes[key]; !ok {
			order = append(order, key)
		}
		passes[key] = append(passes[key], r)
	}

	for _, key := range order {
		stages := passes[key]
		sort.SliceStable(stages, func(a, b int) bool {
			sa, _ := number(stages[a], record.PipelineStage)
			sb, _ := number(stages[b], record.PipelineStage)
			return sa.LessThan(sb)
		})
		running := make(map[string]decimal.Decimal)
		for _, r := range stages {
			for _, k := range r.SortedKeys() {
				if skipPipelineSum(k) {
					continue
				}
				if d, ok := number(r, k); ok {
					running[k] = running[k].Add(d)
				}
			}
			for _, k := range sortedKeys(running) {
				r.Set(k+PipelineSuffix, record.DecimalValue(running[k]))
			}
		}
	}
}

func skipPipelineSum(key string) bool {
	switch key {
	case record.RunId, record.ThreadId, record.PipelineStage:
		return true
	}
	return strings.HasSuffix(key, PipelineSuffix)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := maps.Keys(m)
	slices.Sort(keys)
	return keys
}

func tenancyCategory(attr string) string {
	return fmt.Sprintf("zTenancy[%s]", attr)
}

func tenantsAttribute(attr string) string {
	return fmt.Sprintf("tenants[%s]", attr)
}

// addTenancy counts, for every VM identity, the runs it served. The count is
// scoped to the whole experiment for vmID and to one iteration for
// vmID[iteration]; when both are available the former is not reported.
func (rl *rules) addTenancy(runs []*record.Record) {
	if !rl.hasCategory(tenancyCategory(record.VmId)) && !rl.hasCategory(tenancyCategory(record.VmIdIteration)) {
		return
	}
	if len(runs) == 0 {
		return
	}
	type vm struct {
		uses    int
		cpuType string
	}
	for _, attr := range []string{record.VmId, record.VmIdIteration} {
		complete := true
		for _, r := range runs {
			if !r.Has(attr) {
				complete = false
				break
			}
		}
		if !complete {
			continue
		}

		vms := make(map[string]*vm)
		for _, r := range runs {
			id := r.Text(attr)
			if v, ok := vms[id]; ok {
				v.uses++
			} else {
				vms[id] = &vm{uses: 1, cpuType: r.Text(record.CpuType)}
			}
		}
		for _, r := range runs {
			v := vms[r.Text(attr)]
			r.Set(tenancyCategory(attr), record.StringValue(fmt.Sprintf("%s - %d", v.cpuType, v.uses)))
			r.Set(tenantsAttribute(attr), record.IntValue(v.uses))
		}
		if attr == record.VmIdIteration {
			rl.removeCategory(tenancyCategory(record.VmId))
		}
	}
}
