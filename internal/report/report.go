package report

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/grussorusso/faasrunner/internal/experiment"
	"github.com/grussorusso/faasrunner/internal/record"
)

const Version = "0.5"

// Table is a block of comma separated rows. Cells are already escaped.
type Table struct {
	Header []string
	Rows   [][]string
}

// Group lists the runs of one value of a category.
type Group struct {
	Value string
	Table Table
}

// Category is the breakdown of the runs by the values of one attribute.
type Category struct {
	Name   string
	Header []string
	Rows   [][]string
	// Groups is only filled for categories whose runs are dumped as well.
	Groups []Group
}

// Report is the outcome of an experiment run, ready to be printed.
type Report struct {
	Runs          int
	Threads       int
	RunsPerThread int
	Payloads      string
	Raw           Table
	Removed       int
	Categories    []Category
}

// Generate builds the report of records. Generate works on copies: neither
// the records nor the experiment are modified, and the same input always
// produces the same report.
func Generate(records []*record.Record, exp *experiment.Experiment) *Report {
	runs := make([]*record.Record, len(records))
	for i, r := range records {
		runs[i] = r.Clone()
	}
	rules := newRules(exp)
	rules.dropRedundantCategories(runs)

	normalize(runs)
	addOverlap(runs, exp.OverlapFilter)
	addPipelineSums(runs)
	normalize(runs)

	rep := &Report{
		Runs:          exp.Runs,
		Threads:       exp.Threads,
		RunsPerThread: exp.RunsPerThread(),
		Payloads:      payloadsText(exp.Payloads),
	}
	rep.Raw = rules.rawTable(runs)

	valid, removed := rules.invalidate(runs)
	rep.Removed = removed

	rules.addTenancy(valid)
	rep.Categories = rules.aggregate(valid)
	return rep
}

func payloadsText(payloads []experiment.Payload) string {
	data, err := json.Marshal(payloads)
	if err != nil {
		return fmt.Sprintf("%v", payloads)
	}
	return strings.ReplaceAll(string(data), ",", " ")
}

// Successful is the number of runs in the raw table.
func (r *Report) Successful() int {
	return len(r.Raw.Rows)
}

func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Setting up test: runsperthread=%d threads=%d totalruns=%d payload=%s\n",
		r.RunsPerThread, r.Threads, r.Runs, r.Payloads)
	b.WriteString("\nRaw results of each run:\n")
	writeTable(&b, r.Raw.Header, r.Raw.Rows)
	fmt.Fprintf(&b, "Successful Runs: %d\n", r.Successful())

	if r.Removed > 0 {
		fmt.Fprintf(&b, "\n%d runs removed from categories....\n", r.Removed)
	}

	for _, c := range r.Categories {
		fmt.Fprintf(&b, "\nCategory %s:\n", c.Name)
		writeTable(&b, c.Header, c.Rows)
		fmt.Fprintf(&b, "Total number of unique %ss: %d\n", c.Name, len(c.Rows))
		if c.Groups == nil {
			continue
		}
		fmt.Fprintf(&b, "\n--- Runs of Group %s ---\n", c.Name)
		for _, g := range c.Groups {
			fmt.Fprintf(&b, "\nCategory %s with %s:\n", c.Name, g.Value)
			writeTable(&b, g.Table.Header, g.Table.Rows)
		}
	}
	return b.String()
}

func writeTable(b *strings.Builder, header []string, rows [][]string) {
	b.WriteString(strings.Join(header, ","))
	b.WriteString("\n")
	for _, row := range rows {
		b.WriteString(strings.Join(row, ","))
		b.WriteString("\n")
	}
}

// rules are the reporting settings of an experiment.
type rules struct {
	categories   []string
	rawOf        []string
	lists        []string
	sums         []string
	ignoreAll    []string
	ignoreGroups []string
	ignoreBy     map[string][]string
	invalidators map[string]record.Value
	dedup        bool
}

func newRules(exp *experiment.Experiment) *rules {
	rl := &rules{
		categories:   append([]string(nil), exp.OutputGroups...),
		rawOf:        exp.OutputRawOfGroup,
		lists:        append([]string(nil), exp.ShowAsList...),
		sums:         exp.ShowAsSum,
		ignoreAll:    exp.IgnoreFromAll,
		ignoreGroups: exp.IgnoreFromGroups,
		ignoreBy:     exp.IgnoreByGroup,
		invalidators: make(map[string]record.Value, len(exp.Invalidators)),
		dedup:        exp.RemoveDuplicateContainers,
	}
	for k, v := range exp.Invalidators {
		rl.invalidators[k] = record.FromInterface(v)
	}
	return rl
}

func (rl *rules) hasCategory(name string) bool {
	return experiment.Contains(rl.categories, name)
}

func (rl *rules) removeCategory(name string) {
	rl.categories = without(rl.categories, name)
	rl.lists = without(rl.lists, name)
}

func without(list []string, name string) []string {
	out := list[:0:0]
	for _, s := range list {
		if s != name {
			out = append(out, s)
		}
	}
	return out
}

// dropRedundantCategories removes the categories superseded by a better
// identity: vmuptime by vmID, uuid by containerID.
func (rl *rules) dropRedundantCategories(runs []*record.Record) {
	for _, r := range runs {
		if r.Has(record.VmId) && rl.hasCategory(record.VmUptime) {
			rl.removeCategory(record.VmUptime)
		}
		if r.Has(record.ContainerId) && rl.hasCategory(record.Uuid) {
			rl.removeCategory(record.Uuid)
		}
	}
}

// hidden reports whether attr is left out of the breakdown of category.
func (rl *rules) hidden(category, attr string) bool {
	if experiment.Contains(rl.ignoreAll, attr) || experiment.Contains(rl.ignoreGroups, attr) {
		return true
	}
	return experiment.Contains(rl.ignoreBy[category], attr)
}

func (rl *rules) rawTable(runs []*record.Record) Table {
	t := Table{Header: []string{}, Rows: make([][]string, 0, len(runs))}
	if len(runs) == 0 {
		return t
	}
	for _, k := range runs[0].SortedKeys() {
		if !experiment.Contains(rl.ignoreAll, k) {
			t.Header = append(t.Header, k)
		}
	}
	for _, r := range runs {
		t.Rows = append(t.Rows, cells(r, t.Header))
	}
	return t
}

func cells(r *record.Record, keys []string) []string {
	row := make([]string, len(keys))
	for i, k := range keys {
		v, ok := r.Get(k)
		if !ok {
			v = record.MissingValue()
		}
		row[i] = record.Escape(v.String())
	}
	return row
}

// invalidate returns the runs eligible for the categories, and how many
// were removed.
func (rl *rules) invalidate(runs []*record.Record) ([]*record.Record, int) {
	keys := make([]string, 0, len(rl.invalidators))
	for k := range rl.invalidators {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	containers := make(map[string]bool)
	valid := make([]*record.Record, 0, len(runs))
	for _, r := range runs {
		drop := false
		if rl.dedup {
			if id, ok := containerIdentity(r); ok {
				if containers[id] {
					drop = true
				}
				containers[id] = true
			}
		}
		for _, k := range keys {
			if v, ok := r.Get(k); ok && !v.IsMissing() && v.Equal(rl.invalidators[k]) {
				drop = true
			}
		}
		if !drop {
			valid = append(valid, r)
		}
	}
	return valid, len(runs) - len(valid)
}

func containerIdentity(r *record.Record) (string, bool) {
	for _, k := range []string{record.Uuid, record.ContainerId} {
		if r.Has(k) {
			return r.Text(k), true
		}
	}
	return "", false
}
