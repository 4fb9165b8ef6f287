// Package vertical implements the business-line extension engine: vertical
// definitions with required modules, versioned property schemas, and the
// property bag validation that vertical entities must pass.
package vertical

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/varejo/backend/internal/domain/shared"
)

// Kind enumerates the closed value union allowed in property bags
type Kind int

const (
	KindBool Kind = iota
	KindNumber
	KindString
	KindMap
)

// String returns the schema-facing name of the kind
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// Value is one element of a property bag: a bool, a number, a string or a
// nested map. Open-ended dynamic payloads (arrays, null) are rejected at
// parse time.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	m    map[string]Value
}

// Bool creates a boolean value
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// Number creates a numeric value
func Number(v float64) Value { return Value{kind: KindNumber, n: v} }

// String creates a string value
func String(v string) Value { return Value{kind: KindString, s: v} }

// Map creates a nested map value
func Map(v map[string]Value) Value { return Value{kind: KindMap, m: v} }

// Kind returns the kind of the value
func (v Value) Kind() Kind { return v.kind }

// BoolVal returns the boolean payload; false if the kind differs
func (v Value) BoolVal() bool { return v.b }

// NumberVal returns the numeric payload; 0 if the kind differs
func (v Value) NumberVal() float64 { return v.n }

// StringVal returns the string payload; "" if the kind differs
func (v Value) StringVal() string { return v.s }

// MapVal returns the nested map payload; nil if the kind differs
func (v Value) MapVal() map[string]Value { return v.m }

// MarshalJSON implements json.Marshaler
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindBool:
		return json.Marshal(v.b)
	case KindNumber:
		return json.Marshal(v.n)
	case KindString:
		return json.Marshal(v.s)
	case KindMap:
		// deterministic key order comes from encoding/json map handling
		return json.Marshal(v.m)
	default:
		return nil, fmt.Errorf("cannot marshal value of unknown kind %d", v.kind)
	}
}

// UnmarshalJSON implements json.Unmarshaler, enforcing the closed union.
// JSON null is rejected explicitly: unmarshaling null into any Go type is a
// silent no-op, which would let it masquerade as a zero value.
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		return fmt.Errorf("%w: property values must not be null", shared.ErrSchemaMalformed)
	}

	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*v = Bool(b)
		return nil
	}

	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*v = Number(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = String(s)
		return nil
	}

	var m map[string]Value
	if err := json.Unmarshal(data, &m); err == nil {
		*v = Map(m)
		return nil
	}

	return fmt.Errorf("%w: property values must be bool, number, string or map", shared.ErrSchemaMalformed)
}

// PropertyBag is the generic key to value map carried by vertical entities
type PropertyBag map[string]Value

// ParseBag decodes a JSON object into a property bag. Malformed or
// non-object payloads fail with shared.ErrSchemaMalformed.
func ParseBag(data []byte) (PropertyBag, error) {
	if len(data) == 0 {
		return PropertyBag{}, nil
	}

	var bag PropertyBag
	if err := json.Unmarshal(data, &bag); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrSchemaMalformed, err)
	}
	if bag == nil {
		bag = PropertyBag{}
	}
	return bag, nil
}

// Encode serializes the bag to JSON
func (b PropertyBag) Encode() ([]byte, error) {
	if b == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(b)
}

// Keys returns the bag's keys in sorted order
func (b PropertyBag) Keys() []string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy of the bag
func (b PropertyBag) Clone() PropertyBag {
	if b == nil {
		return nil
	}
	out := make(PropertyBag, len(b))
	for k, v := range b {
		out[k] = v.clone()
	}
	return out
}

func (v Value) clone() Value {
	if v.kind != KindMap || v.m == nil {
		return v
	}
	m := make(map[string]Value, len(v.m))
	for k, nested := range v.m {
		m[k] = nested.clone()
	}
	return Map(m)
}
