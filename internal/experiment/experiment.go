package experiment

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var ErrInvalidExperiment = errors.New("invalid experiment")
var ErrEmptyPayloads = errors.New("experiment has no payloads")

// Payload is the JSON body sent to a function.
type Payload = map[string]interface{}

// GroupIgnores maps a category to the attributes hidden from its breakdown.
type GroupIgnores map[string][]string

// UnmarshalJSON also accepts an empty list, the historical default.
func (g *GroupIgnores) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) || (len(trimmed) > 0 && trimmed[0] == '[') {
		var list []interface{}
		if err := json.Unmarshal(trimmed, &list); err != nil && !bytes.Equal(trimmed, []byte("null")) {
			return err
		}
		if len(list) != 0 {
			return errors.New("ignoreByGroup must be an object")
		}
		*g = GroupIgnores{}
		return nil
	}
	m := map[string][]string{}
	if err := json.Unmarshal(trimmed, &m); err != nil {
		return err
	}
	*g = m
	return nil
}

// Experiment describes how a function is loaded and how results are reported.
// It is read-only once an experiment starts.
type Experiment struct {
	Name            string    `json:"experimentName"`
	CallWithCLI     bool      `json:"callWithCLI"`
	CallAsync       bool      `json:"callAsync"`
	MemorySettings  []int     `json:"memorySettings"`
	ParentPayload   Payload   `json:"parentPayload"`
	Payloads        []Payload `json:"payloads"`
	PayloadFolder   string    `json:"payloadFolder"`
	ShufflePayloads bool      `json:"shufflePayloads"`
	Runs            int       `json:"runs"`
	Threads         int       `json:"threads"`
	Iterations      int       `json:"iterations"`
	SleepTime       float64   `json:"sleepTime"` // seconds
	RandomSeed      int64     `json:"randomSeed"`

	// Reporting
	OutputGroups              []string               `json:"outputGroups"`
	OutputRawOfGroup          []string               `json:"outputRawOfGroup"`
	ShowAsList                []string               `json:"showAsList"`
	ShowAsSum                 []string               `json:"showAsSum"`
	IgnoreFromAll             []string               `json:"ignoreFromAll"`
	IgnoreFromGroups          []string               `json:"ignoreFromGroups"`
	IgnoreByGroup             GroupIgnores           `json:"ignoreByGroup"`
	Invalidators              map[string]interface{} `json:"invalidators"`
	RemoveDuplicateContainers bool                   `json:"removeDuplicateContainers"`
	OverlapFilter             string                 `json:"overlapFilter"`
	CombineSheets             bool                   `json:"combineSheets"`
	WarmupBuffer              int                    `json:"warmupBuffer"`

	// Pipelines
	PassPayloads bool              `json:"passPayloads"`
	Transitions  map[string]string `json:"transitions"`

	SourceFile string `json:"sourceFile,omitempty"`
}

// defaults lists, in file order, the value used for every missing attribute.
var defaults = []struct {
	key   string
	value string
}{
	{"callWithCLI", `true`},
	{"callAsync", `false`},
	{"memorySettings", `[]`},
	{"parentPayload", `{}`},
	{"payloads", `[{}]`},
	{"payloadFolder", `""`},
	{"shufflePayloads", `false`},
	{"runs", `10`},
	{"threads", `10`},
	{"iterations", `1`},
	{"sleepTime", `0`},
	{"randomSeed", `42`},
	{"outputGroups", `[]`},
	{"outputRawOfGroup", `[]`},
	{"showAsList", `[]`},
	{"showAsSum", `[]`},
	{"ignoreFromAll", `[]`},
	{"ignoreFromGroups", `[]`},
	{"ignoreByGroup", `{}`},
	{"invalidators", `{}`},
	{"removeDuplicateContainers", `false`},
	{"overlapFilter", `""`},
	{"combineSheets", `false`},
	{"warmupBuffer", `0`},
	{"experimentName", `"DEFAULT-EXP"`},
	{"passPayloads", `false`},
	{"transitions", `{}`},
}

// Default returns an experiment made only of default values.
func Default() *Experiment {
	e, err := FromAttributes(map[string]json.RawMessage{}, false)
	if err != nil {
		panic(err)
	}
	return e
}

// Load reads an experiment file; the experiment is named after the file.
func Load(path string) (*Experiment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read experiment file %s", path)
	}
	var attrs map[string]json.RawMessage
	if err := json.Unmarshal(data, &attrs); err != nil {
		return nil, errors.Wrapf(err, "invalid experiment file %s", path)
	}
	name, _ := json.Marshal(strings.TrimSuffix(filepath.Base(path), ".json"))
	attrs["experimentName"] = name
	source, _ := json.Marshal(path)
	attrs["sourceFile"] = source

	e, err := FromAttributes(attrs, true)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid experiment file %s", path)
	}
	return e, nil
}

// Decode parses an experiment from JSON, filling in defaults silently.
func Decode(data []byte) (*Experiment, error) {
	var attrs map[string]json.RawMessage
	if err := json.Unmarshal(data, &attrs); err != nil {
		return nil, err
	}
	return FromAttributes(attrs, false)
}

// FromAttributes builds an experiment from raw attributes. Missing ones take
// their default value, with a warning when warn is set.
func FromAttributes(attrs map[string]json.RawMessage, warn bool) (*Experiment, error) {
	merged := make(map[string]json.RawMessage, len(attrs)+len(defaults))
	for k, v := range attrs {
		merged[k] = v
	}
	for _, d := range defaults {
		if _, ok := merged[d.key]; !ok {
			if warn {
				logrus.Warnf("%s missing in experiment file! Using default option of %s", d.key, d.value)
			}
			merged[d.key] = json.RawMessage(d.value)
		}
	}
	encoded, err := json.Marshal(merged)
	if err != nil {
		return nil, err
	}
	return decodeStrict(encoded)
}

func decodeStrict(data []byte) (*Experiment, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	e := &Experiment{}
	if err := dec.Decode(e); err != nil {
		return nil, err
	}
	if e.IgnoreByGroup == nil {
		e.IgnoreByGroup = GroupIgnores{}
	}
	if e.Invalidators == nil {
		e.Invalidators = map[string]interface{}{}
	}
	if e.Transitions == nil {
		e.Transitions = map[string]string{}
	}
	if e.ParentPayload == nil {
		e.ParentPayload = Payload{}
	}
	return e, nil
}

// Attributes is the raw form of the experiment, used to apply overrides.
func (e *Experiment) Attributes() (map[string]json.RawMessage, error) {
	encoded, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	var attrs map[string]json.RawMessage
	err = json.Unmarshal(encoded, &attrs)
	return attrs, err
}

// ApplyOverrides patches the experiment with command line overrides. A value
// is used as JSON when it parses as such, as a plain string otherwise.
func (e *Experiment) ApplyOverrides(overrides map[string]string) error {
	if len(overrides) == 0 {
		return nil
	}
	attrs, err := e.Attributes()
	if err != nil {
		return err
	}
	for k, v := range overrides {
		if json.Valid([]byte(v)) {
			attrs[k] = json.RawMessage(v)
		} else {
			encoded, _ := json.Marshal(v)
			attrs[k] = encoded
		}
	}
	patched, err := FromAttributes(attrs, false)
	if err != nil {
		return errors.Wrap(err, "invalid experiment override")
	}
	*e = *patched
	return nil
}

// Clone returns a deep copy.
func (e *Experiment) Clone() *Experiment {
	encoded, err := json.Marshal(e)
	if err != nil {
		panic(err)
	}
	c, err := decodeStrict(encoded)
	if err != nil {
		panic(err)
	}
	return c
}

// Validate checks the preconditions of an experiment run.
func (e *Experiment) Validate() error {
	if e.Threads < 1 {
		return errors.Wrap(ErrInvalidExperiment, "threads must be >= 1")
	}
	if e.Threads > e.Runs {
		return errors.Wrap(ErrInvalidExperiment, "threads > runs")
	}
	if e.Iterations <= 0 {
		return errors.Wrap(ErrInvalidExperiment, "iterations must be >= 1")
	}
	if len(e.Payloads) == 0 {
		return ErrEmptyPayloads
	}
	return nil
}

// RunsPerThread is the number of calls each thread performs.
func (e *Experiment) RunsPerThread() int {
	if e.Threads <= 0 {
		return 0
	}
	return e.Runs / e.Threads
}

// Memory returns the memory settings to iterate over; 0 means "leave as is".
func (e *Experiment) Memory() []int {
	if len(e.MemorySettings) == 0 {
		return []int{0}
	}
	return e.MemorySettings
}
