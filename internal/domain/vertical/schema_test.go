package vertical

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema() *Schema {
	min := 0.0
	max := 720.0
	return &Schema{
		Version: "1.0",
		Fields: map[string]FieldSpec{
			"registration_code":     {Type: FieldString, Required: true, Pattern: `^[0-9]\.[0-9]{4}\.[0-9]{4}\.[0-9]{3}-[0-9]$`},
			"controlled_substance":  {Type: FieldBool, Required: true},
			"prescription_category": {Type: FieldString, Enum: []string{"OTC", "WHITE", "RED", "BLACK"}},
			"shelf_life_hours":      {Type: FieldNumber, Min: &min, Max: &max},
			"nutrition":             {Type: FieldMap},
		},
	}
}

func TestSchemaValidateOK(t *testing.T) {
	result := testSchema().Validate(PropertyBag{
		"registration_code":     String("1.0068.1102.001-5"),
		"controlled_substance":  Bool(true),
		"prescription_category": String("RED"),
		"shelf_life_hours":      Number(48),
		"nutrition":             Map(map[string]Value{"kcal": Number(12)}),
	})

	assert.True(t, result.Valid)
	assert.Empty(t, result.Violations)
}

func TestSchemaValidateViolations(t *testing.T) {
	tests := []struct {
		name     string
		bag      PropertyBag
		expected string
	}{
		{
			name: "missing required field",
			bag: PropertyBag{
				"registration_code": String("1.0068.1102.001-5"),
			},
			expected: `field "controlled_substance" is required`,
		},
		{
			name: "wrong type",
			bag: PropertyBag{
				"registration_code":    String("1.0068.1102.001-5"),
				"controlled_substance": String("yes"),
			},
			expected: `field "controlled_substance" must be bool, got string`,
		},
		{
			name: "pattern mismatch",
			bag: PropertyBag{
				"registration_code":    String("not-a-code"),
				"controlled_substance": Bool(false),
			},
			expected: `field "registration_code" does not match pattern`,
		},
		{
			name: "enum violation",
			bag: PropertyBag{
				"registration_code":     String("1.0068.1102.001-5"),
				"controlled_substance":  Bool(false),
				"prescription_category": String("GREEN"),
			},
			expected: `field "prescription_category" must be one of`,
		},
		{
			name: "below minimum",
			bag: PropertyBag{
				"registration_code":    String("1.0068.1102.001-5"),
				"controlled_substance": Bool(false),
				"shelf_life_hours":     Number(-1),
			},
			expected: `field "shelf_life_hours" must be >= 0`,
		},
		{
			name: "above maximum",
			bag: PropertyBag{
				"registration_code":    String("1.0068.1102.001-5"),
				"controlled_substance": Bool(false),
				"shelf_life_hours":     Number(1000),
			},
			expected: `field "shelf_life_hours" must be <= 720`,
		},
		{
			name: "undeclared key",
			bag: PropertyBag{
				"registration_code":    String("1.0068.1102.001-5"),
				"controlled_substance": Bool(false),
				"typo_field":           Bool(true),
			},
			expected: `field "typo_field" is not declared in schema version 1.0`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := testSchema().Validate(tt.bag)
			require.False(t, result.Valid)
			found := false
			for _, v := range result.Violations {
				if len(v) >= len(tt.expected) && v[:len(tt.expected)] == tt.expected {
					found = true
					break
				}
			}
			assert.True(t, found, "expected violation %q in %v", tt.expected, result.Violations)
		})
	}
}

func TestSchemaValidateCollectsAllViolations(t *testing.T) {
	// an empty bag violates both required fields; neither aborts the other
	result := testSchema().Validate(PropertyBag{})
	require.False(t, result.Valid)
	assert.Len(t, result.Violations, 2)
}

func TestSchemaValidateDeterministicOrder(t *testing.T) {
	bag := PropertyBag{"zzz": Bool(true), "aaa": Bool(true)}
	schema := &Schema{Version: "1.0", Fields: map[string]FieldSpec{}}

	first := schema.Validate(bag)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first.Violations, schema.Validate(bag).Violations)
	}
}

func TestSchemaAllowUnknown(t *testing.T) {
	schema := &Schema{
		Version:      "1.0",
		Fields:       map[string]FieldSpec{"section": {Type: FieldString}},
		AllowUnknown: true,
	}

	result := schema.Validate(PropertyBag{
		"section":      String("hortifruti"),
		"custom_field": Number(1),
	})
	assert.True(t, result.Valid)
}
