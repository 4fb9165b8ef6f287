package vertical

import (
	"fmt"
	"regexp"
	"sort"
	"sync"
)

// FieldType names the expected kind of a schema field
type FieldType string

const (
	FieldBool   FieldType = "bool"
	FieldNumber FieldType = "number"
	FieldString FieldType = "string"
	FieldMap    FieldType = "map"
)

// FieldSpec describes one field of a vertical property schema
type FieldSpec struct {
	Type     FieldType
	Required bool
	// Pattern is an optional regular expression for string fields
	Pattern string
	// Enum restricts string fields to a fixed set of values
	Enum []string
	// Min and Max bound number fields when set
	Min *float64
	Max *float64
}

// Schema is the versioned property schema registered for a vertical.
// Validation is a pure function of (schema, bag).
type Schema struct {
	Version string
	Fields  map[string]FieldSpec
	// AllowUnknown permits keys not declared in Fields; off by default so
	// typos surface as violations
	AllowUnknown bool
}

// Result is the outcome of validating a property bag. Ordinary validation
// failures are reported here, never as errors.
type Result struct {
	Valid      bool     `json:"valid"`
	Violations []string `json:"violations,omitempty"`
}

// patternCache avoids recompiling field regexps on every validation
var patternCache sync.Map // map[string]*regexp.Regexp

func compiledPattern(pattern string) (*regexp.Regexp, error) {
	if cached, ok := patternCache.Load(pattern); ok {
		return cached.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	patternCache.Store(pattern, re)
	return re, nil
}

// Validate checks the bag against the schema and returns a structured result
func (s *Schema) Validate(bag PropertyBag) Result {
	var violations []string

	for _, name := range sortedFieldNames(s.Fields) {
		spec := s.Fields[name]
		value, present := bag[name]
		if !present {
			if spec.Required {
				violations = append(violations, fmt.Sprintf("field %q is required", name))
			}
			continue
		}
		violations = append(violations, spec.check(name, value)...)
	}

	if !s.AllowUnknown {
		for _, key := range bag.Keys() {
			if _, declared := s.Fields[key]; !declared {
				violations = append(violations, fmt.Sprintf("field %q is not declared in schema version %s", key, s.Version))
			}
		}
	}

	return Result{Valid: len(violations) == 0, Violations: violations}
}

// check validates a single present value against its spec
func (spec FieldSpec) check(name string, value Value) []string {
	var violations []string

	expected := Kind(-1)
	switch spec.Type {
	case FieldBool:
		expected = KindBool
	case FieldNumber:
		expected = KindNumber
	case FieldString:
		expected = KindString
	case FieldMap:
		expected = KindMap
	}

	if value.Kind() != expected {
		return []string{fmt.Sprintf("field %q must be %s, got %s", name, spec.Type, value.Kind())}
	}

	switch spec.Type {
	case FieldString:
		if spec.Pattern != "" {
			re, err := compiledPattern(spec.Pattern)
			if err != nil {
				violations = append(violations, fmt.Sprintf("field %q has an invalid pattern in schema: %v", name, err))
			} else if !re.MatchString(value.StringVal()) {
				violations = append(violations, fmt.Sprintf("field %q does not match pattern %s", name, spec.Pattern))
			}
		}
		if len(spec.Enum) > 0 {
			found := false
			for _, allowed := range spec.Enum {
				if value.StringVal() == allowed {
					found = true
					break
				}
			}
			if !found {
				violations = append(violations, fmt.Sprintf("field %q must be one of %v", name, spec.Enum))
			}
		}
	case FieldNumber:
		n := value.NumberVal()
		if spec.Min != nil && n < *spec.Min {
			violations = append(violations, fmt.Sprintf("field %q must be >= %v", name, *spec.Min))
		}
		if spec.Max != nil && n > *spec.Max {
			violations = append(violations, fmt.Sprintf("field %q must be <= %v", name, *spec.Max))
		}
	}

	return violations
}

func sortedFieldNames(fields map[string]FieldSpec) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	// stable violation ordering keeps results deterministic
	sort.Strings(names)
	return names
}
