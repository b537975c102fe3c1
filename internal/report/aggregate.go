package report

import (
	"sort"
	"strconv"

	"github.com/grussorusso/faasrunner/internal/experiment"
	"github.com/grussorusso/faasrunner/internal/record"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Mode is how an attribute is summarized in a category.
type Mode int

const (
	Average Mode = iota
	Sum
	List
)

// Stat is the summary of one attribute over the runs of a category value.
type Stat struct {
	Mode  Mode
	Value decimal.Decimal // unset for lists
	Text  string
}

// TryAggregate summarizes attr over runs. It fails when a sum or an average
// meets a value that is not a number.
func TryAggregate(runs []*record.Record, attr string, mode Mode) (Stat, bool) {
	if len(runs) == 0 {
		return Stat{}, false
	}
	if mode == List {
		seen := make(map[string]bool)
		items := make([]string, 0)
		for _, r := range runs {
			s := valueOf(r, attr).String()
			if !seen[s] {
				seen[s] = true
				items = append(items, s)
			}
		}
		sort.Strings(items)
		return Stat{Mode: List, Text: record.ListValue(items).String()}, true
	}

	total := decimal.Zero
	places := int32(0)
	for _, r := range runs {
		d, ok := valueOf(r, attr).Decimal()
		if !ok {
			return Stat{}, false
		}
		if exp := d.Exponent(); -exp > places {
			places = -exp
		}
		total = total.Add(d)
	}
	if mode == Sum {
		return Stat{Mode: Sum, Value: total, Text: total.StringFixed(places)}, true
	}
	avg := total.Div(decimal.NewFromInt(int64(len(runs)))).Round(2)
	f, _ := avg.Float64()
	return Stat{Mode: Average, Value: avg, Text: record.FormatFloat(f)}, true
}

func valueOf(r *record.Record, attr string) record.Value {
	v, ok := r.Get(attr)
	if !ok {
		return record.MissingValue()
	}
	return v
}

type column struct {
	attr string
	mode Mode
}

func (c column) header() string {
	switch c.mode {
	case List:
		return c.attr + "_list"
	case Sum:
		return "sum_" + c.attr
	default:
		return "avg_" + c.attr
	}
}

// columns picks the attributes summarized in a category. Sums and averages
// are only computed for attributes holding a number in at least one run.
func (rl *rules) columns(category string, runs []*record.Record) []column {
	cols := make([]column, 0)
	for _, attr := range runs[0].SortedKeys() {
		if rl.hidden(category, attr) {
			continue
		}
		switch {
		case experiment.Contains(rl.lists, attr):
			cols = append(cols, column{attr, List})
		case !anyNumber(runs, attr):
			// text only
		case experiment.Contains(rl.sums, attr):
			cols = append(cols, column{attr, Sum})
		default:
			cols = append(cols, column{attr, Average})
		}
	}
	return cols
}

func anyNumber(runs []*record.Record, attr string) bool {
	for _, r := range runs {
		if _, ok := number(r, attr); ok {
			return true
		}
	}
	return false
}

type bucket struct {
	value record.Value
	runs  []*record.Record
}

// aggregate builds the breakdown of every category, in name order.
func (rl *rules) aggregate(runs []*record.Record) []Category {
	names := append([]string(nil), rl.categories...)
	sort.Strings(names)

	out := make([]Category, 0, len(names))
	for i, name := range names {
		if i > 0 && names[i-1] == name {
			continue
		}
		buckets := make(map[string]*bucket)
		all := make([]*record.Record, 0)
		for _, r := range runs {
			v, ok := r.Get(name)
			if !ok || v.IsMissing() {
				continue
			}
			key := v.String()
			if b, ok := buckets[key]; ok {
				b.runs = append(b.runs, r)
			} else {
				buckets[key] = &bucket{value: v, runs: []*record.Record{r}}
			}
			all = append(all, r)
		}
		if len(buckets) == 0 {
			continue
		}
		keys := sortBuckets(buckets)
		cols := rl.columns(name, all)

		c := Category{Name: name, Header: []string{name, "uses"}}
		for _, col := range cols {
			c.Header = append(c.Header, col.header())
		}
		for _, key := range keys {
			b := buckets[key]
			row := []string{record.Escape(key), strconv.Itoa(len(b.runs))}
			for _, col := range cols {
				stat, ok := TryAggregate(b.runs, col.attr, col.mode)
				if !ok {
					logrus.Debugf("Cannot aggregate %s of %s %s", col.attr, name, key)
					row = append(row, "")
					continue
				}
				row = append(row, record.Escape(stat.Text))
			}
			c.Rows = append(c.Rows, row)
		}

		if experiment.Contains(rl.rawOf, name) {
			c.Groups = make([]Group, 0, len(keys))
			for _, key := range keys {
				c.Groups = append(c.Groups, Group{Value: record.Escape(key), Table: rl.groupTable(name, buckets[key].runs)})
			}
		}
		out = append(out, c)
	}
	return out
}

func (rl *rules) groupTable(category string, runs []*record.Record) Table {
	t := Table{Header: []string{}}
	for _, k := range runs[0].SortedKeys() {
		if !rl.hidden(category, k) {
			t.Header = append(t.Header, k)
		}
	}
	for _, r := range runs {
		t.Rows = append(t.Rows, cells(r, t.Header))
	}
	return t
}

// sortBuckets orders category values numerically when they all are numbers,
// as text otherwise.
func sortBuckets(buckets map[string]*bucket) []string {
	keys := sortedKeys(buckets)
	numeric := true
	for _, k := range keys {
		if _, ok := buckets[k].value.Decimal(); !ok {
			numeric = false
			break
		}
	}
	if numeric {
		sort.SliceStable(keys, func(i, j int) bool {
			a, _ := buckets[keys[i]].value.Decimal()
			b, _ := buckets[keys[j]].value.Decimal()
			return a.LessThan(b)
		})
	}
	return keys
}
