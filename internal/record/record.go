package record

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"

	"github.com/buger/jsonparser"
	"github.com/pkg/errors"
)

// Well-known attributes of a response record.
const (
	RunId          = "1_run_id"
	ThreadId       = "2_thread_id"
	PipelineStage  = "3_pipeline_stage"
	All            = "zAll"
	RoundTripTime  = "roundTripTime"
	Payload        = "payload"
	Latency        = "latency"
	Runtime        = "runtime"
	CpuType        = "cpuType"
	CpuModel       = "cpuModel"
	Version        = "version"
	Endpoint       = "endpoint"
	Platform       = "platform"
	StartTime      = "startTime"
	EndTime        = "endTime"
	Uuid           = "uuid"
	ContainerId    = "containerID"
	VmId           = "vmID"
	VmUptime       = "vmuptime"
	Iteration      = "iteration"
	VmIdIteration  = "vmID[iteration]"
	RuntimeOverlap = "runtimeOverlap"
)

// Record is one function response, annotated by the runner. Attribute order
// is the order of insertion.
type Record struct {
	keys   []string
	values map[string]Value
}

func New() *Record {
	return &Record{values: make(map[string]Value)}
}

// Parse reads a JSON object, preserving the order of its attributes. Nested
// objects are kept as their JSON text, arrays become lists.
func Parse(raw string) (*Record, error) {
	data := bytes.TrimSpace([]byte(raw))
	if len(data) == 0 || data[0] != '{' {
		return nil, errors.Errorf("response is not a JSON object: %q", abbreviate(raw))
	}
	r := New()
	err := jsonparser.ObjectEach(data, func(key []byte, value []byte, dataType jsonparser.ValueType, offset int) error {
		k, err := jsonparser.ParseString(key)
		if err != nil {
			return err
		}
		v, err := parseValue(value, dataType)
		if err != nil {
			return err
		}
		r.Set(k, v)
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "malformed response %q", abbreviate(raw))
	}
	return r, nil
}

func parseValue(value []byte, dataType jsonparser.ValueType) (Value, error) {
	switch dataType {
	case jsonparser.Number:
		return NumberValue(string(value)), nil
	case jsonparser.String:
		s, err := jsonparser.ParseString(value)
		if err != nil {
			return Value{}, err
		}
		return StringValue(s), nil
	case jsonparser.Boolean:
		return StringValue(string(value)), nil
	case jsonparser.Null:
		return StringValue("null"), nil
	case jsonparser.Array:
		items := make([]string, 0)
		var inner error
		_, err := jsonparser.ArrayEach(value, func(v []byte, dt jsonparser.ValueType, offset int, err error) {
			if err != nil {
				inner = err
				return
			}
			if dt == jsonparser.String {
				s, perr := jsonparser.ParseString(v)
				if perr != nil {
					inner = perr
					return
				}
				items = append(items, s)
			} else {
				items = append(items, string(v))
			}
		})
		if err != nil {
			return Value{}, err
		}
		if inner != nil {
			return Value{}, inner
		}
		return ListValue(items), nil
	default:
		return StringValue(string(value)), nil
	}
}

// FromMap builds a record from a decoded JSON object, with keys sorted.
func FromMap(m map[string]interface{}) *Record {
	r := New()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		r.Set(k, FromInterface(m[k]))
	}
	return r
}

func (r *Record) Set(key string, v Value) {
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = v
}

func (r *Record) Get(key string) (Value, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Has reports whether the attribute is present with a real (non Missing) value.
func (r *Record) Has(key string) bool {
	v, ok := r.values[key]
	return ok && !v.IsMissing()
}

// Text returns the rendered attribute, or "" when absent.
func (r *Record) Text(key string) string {
	v, ok := r.values[key]
	if !ok {
		return ""
	}
	return v.String()
}

func (r *Record) Len() int {
	return len(r.keys)
}

func (r *Record) Keys() []string {
	keys := make([]string, len(r.keys))
	copy(keys, r.keys)
	return keys
}

func (r *Record) SortedKeys() []string {
	keys := r.Keys()
	sort.Strings(keys)
	return keys
}

func (r *Record) Clone() *Record {
	c := &Record{keys: r.Keys(), values: make(map[string]Value, len(r.values))}
	for k, v := range r.values {
		c.values[k] = v
	}
	return c
}

// ToMap converts the record back to a payload-friendly map.
func (r *Record) ToMap() map[string]interface{} {
	m := make(map[string]interface{}, len(r.keys))
	for _, k := range r.keys {
		m[k] = r.values[k].Interface()
	}
	return m
}

func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r *Record) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*r = *parsed
	return nil
}

// Id identifies a record inside one experiment: run.thread[.stage]
func (r *Record) Id() string {
	id := r.Text(RunId) + "." + r.Text(ThreadId)
	if r.Has(PipelineStage) {
		id += "." + r.Text(PipelineStage)
	}
	return id
}

func abbreviate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
