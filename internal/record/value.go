package record

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	Missing Kind = iota
	Number
	String
	List
)

// MissingSentinel is the number a Missing value takes in arithmetic.
const MissingSentinel = "-99999"

var missingDecimal = decimal.RequireFromString(MissingSentinel)

// Value is a single attribute of a response record.
type Value struct {
	kind Kind
	text string
	list []string
}

// NumberValue keeps the textual form of a JSON number.
func NumberValue(text string) Value {
	return Value{kind: Number, text: text}
}

func IntValue(i int) Value {
	return Value{kind: Number, text: strconv.Itoa(i)}
}

func FloatValue(f float64) Value {
	return Value{kind: Number, text: FormatFloat(f)}
}

func DecimalValue(d decimal.Decimal) Value {
	return Value{kind: Number, text: d.String()}
}

func StringValue(s string) Value {
	return Value{kind: String, text: s}
}

func ListValue(items []string) Value {
	cp := make([]string, len(items))
	copy(cp, items)
	return Value{kind: List, list: cp}
}

func MissingValue() Value {
	return Value{kind: Missing}
}

// FromInterface converts a decoded JSON value (encoding/json types) into a Value.
func FromInterface(v interface{}) Value {
	switch x := v.(type) {
	case nil:
		return StringValue("null")
	case string:
		return StringValue(x)
	case json.Number:
		return NumberValue(x.String())
	case float64:
		return NumberValue(strconv.FormatFloat(x, 'f', -1, 64))
	case int:
		return IntValue(x)
	case int64:
		return NumberValue(strconv.FormatInt(x, 10))
	case bool:
		return StringValue(strconv.FormatBool(x))
	case []string:
		return ListValue(x)
	case Value:
		return x
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return StringValue("")
		}
		return StringValue(string(b))
	}
}

func (v Value) Kind() Kind {
	return v.kind
}

func (v Value) IsMissing() bool {
	return v.kind == Missing
}

func (v Value) Items() []string {
	return v.list
}

// String renders the value the way it appears in a report cell, before CSV escaping.
func (v Value) String() string {
	switch v.kind {
	case Missing:
		return MissingSentinel
	case List:
		quoted := make([]string, len(v.list))
		for i, item := range v.list {
			quoted[i] = "'" + item + "'"
		}
		return "[" + strings.Join(quoted, ", ") + "]"
	default:
		return v.text
	}
}

// Decimal parses the value as a number. Strings holding numbers parse too;
// Missing values parse as MissingSentinel.
func (v Value) Decimal() (decimal.Decimal, bool) {
	switch v.kind {
	case Missing:
		return missingDecimal, true
	case List:
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(strings.TrimSpace(v.text))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// Equal compares two values numerically when both are numbers, textually otherwise.
func (v Value) Equal(other Value) bool {
	if v.kind == Missing || other.kind == Missing {
		return v.kind == other.kind
	}
	d1, ok1 := v.Decimal()
	d2, ok2 := other.Decimal()
	if ok1 && ok2 {
		return d1.Equal(d2)
	}
	return v.String() == other.String()
}

// Interface converts back to encoding/json friendly types.
func (v Value) Interface() interface{} {
	switch v.kind {
	case Missing:
		return nil
	case Number:
		return json.Number(v.text)
	case List:
		return v.list
	default:
		return v.text
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// FormatFloat prints f the way the reports always printed floats: shortest
// representation, with a trailing ".0" for integral values.
func FormatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEIN") {
		s += ".0"
	}
	return s
}

// Escape makes a cell safe for the comma separated reports.
func Escape(s string) string {
	s = strings.ReplaceAll(s, ",", ";")
	s = strings.ReplaceAll(s, "\t", "\\t")
	return strings.ReplaceAll(s, "\n", "\\n")
}
