package model

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Skip is the oracle sentinel meaning "leave this field alone".
const Skip = "SKIP"

// Value is a resolved fill value: a single string or a list of strings.
type Value struct {
	Items []string
	List  bool
}

// Text builds a single-string value.
func Text(s string) Value {
	return Value{Items: []string{s}}
}

// List builds a sequence value.
func List(items ...string) Value {
	return Value{Items: items, List: true}
}

// SkipValue is the explicit skip sentinel as a Value.
func SkipValue() Value {
	return Text(Skip)
}

// IsSkip reports whether v is the explicit skip sentinel.
func (v Value) IsSkip() bool {
	return !v.List && len(v.Items) == 1 && v.Items[0] == Skip
}

// IsEmpty reports whether v carries no usable text.
func (v Value) IsEmpty() bool {
	for _, it := range v.Items {
		if strings.TrimSpace(it) != "" {
			return false
		}
	}
	return true
}

// String renders v as text, joining sequences with ", ".
func (v Value) String() string {
	return strings.Join(v.Items, ", ")
}

// First returns the first item, or "" for an empty value.
func (v Value) First() string {
	if len(v.Items) == 0 {
		return ""
	}
	return v.Items[0]
}

// truthy holds the affirmative spellings accepted for checkboxes and radios.
var truthy = map[string]bool{
	"true": true,
	"yes":  true,
	"Yes":  true,
	"1":    true,
}

// Truthy reports whether v is one of the affirmative values.
func (v Value) Truthy() bool {
	if v.List || len(v.Items) != 1 {
		return false
	}
	return truthy[strings.TrimSpace(v.Items[0])]
}

// MarshalJSON writes a string for single values and an array for lists.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.List {
		items := v.Items
		if items == nil {
			items = []string{}
		}
		return json.Marshal(items)
	}
	return json.Marshal(v.First())
}

// UnmarshalJSON accepts strings, arrays, booleans and numbers.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return eris.Wrap(err, "value: decode")
	}
	parsed, err := ValueOf(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ValueOf converts a decoded JSON value into a Value.
func ValueOf(raw any) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Value{}, nil
	case string:
		return Text(t), nil
	case bool:
		return Text(strconv.FormatBool(t)), nil
	case float64:
		return Text(strconv.FormatFloat(t, 'f', -1, 64)), nil
	case json.Number:
		return Text(t.String()), nil
	case []any:
		items := make([]string, 0, len(t))
		for _, it := range t {
			sub, err := ValueOf(it)
			if err != nil {
				return Value{}, err
			}
			items = append(items, sub.Items...)
		}
		return List(items...), nil
	default:
		return Value{}, eris.Errorf("value: unsupported type %T", raw)
	}
}
