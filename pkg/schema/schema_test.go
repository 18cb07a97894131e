package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func convertSchema() Schema {
	return New(
		Field{Name: "sourceTimezone", Type: TypeString, Required: true},
		Field{Name: "targetTimezone", Type: TypeString, Required: true},
		Field{Name: "time", Type: TypeString, Required: true},
	)
}

func TestValidateMissingRequired(t *testing.T) {
	_, err := convertSchema().Validate(map[string]interface{}{
		"sourceTimezone": "Asia/Shanghai",
	})
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"targetTimezone", "time"}, verr.FieldNames())
	assert.Contains(t, err.Error(), `field "targetTimezone" is required`)
	assert.Contains(t, err.Error(), `field "time" is required`)
}

func TestValidateDefaultsAndUnknownKeys(t *testing.T) {
	s := New(
		Field{Name: "format", Type: TypeString, Default: "YYYY-MM-DD HH:mm:ss"},
		Field{Name: "timezone", Type: TypeString},
	)

	args, err := s.Validate(map[string]interface{}{"extra": 1.0})
	require.NoError(t, err)

	assert.Equal(t, "YYYY-MM-DD HH:mm:ss", args["format"])
	_, hasTZ := args["timezone"]
	assert.False(t, hasTZ)
	_, hasExtra := args["extra"]
	assert.False(t, hasExtra, "undeclared keys are ignored")
}

func TestValidateNullCountsAsAbsent(t *testing.T) {
	s := New(Field{Name: "format", Type: TypeString, Default: "X"})
	args, err := s.Validate(map[string]interface{}{"format": nil})
	require.NoError(t, err)
	assert.Equal(t, "X", args["format"])

	_, err = New(Field{Name: "time", Type: TypeString, Required: true}).
		Validate(map[string]interface{}{"time": nil})
	require.Error(t, err)
}

func TestValidateTypes(t *testing.T) {
	s := New(
		Field{Name: "s", Type: TypeString},
		Field{Name: "n", Type: TypeNumber},
		Field{Name: "i", Type: TypeInteger},
		Field{Name: "b", Type: TypeBoolean},
		Field{Name: "o", Type: TypeObject},
		Field{Name: "a", Type: TypeArray},
	)

	args, err := s.Validate(map[string]interface{}{
		"s": "x",
		"n": 1.5,
		"i": 3.0,
		"b": true,
		"o": map[string]interface{}{"k": "v"},
		"a": []interface{}{1.0},
	})
	require.NoError(t, err)
	assert.Equal(t, "x", args["s"])
	assert.Equal(t, 1.5, args["n"])
	assert.Equal(t, int64(3), args["i"])
	assert.Equal(t, true, args["b"])

	tests := []struct {
		name  string
		field string
		value interface{}
	}{
		{"number for string", "s", 1.0},
		{"string for number", "n", "1"},
		{"fraction for integer", "i", 1.5},
		{"string for boolean", "b", "true"},
		{"array for object", "o", []interface{}{}},
		{"object for array", "a", map[string]interface{}{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Validate(map[string]interface{}{tt.field: tt.value})
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, []string{tt.field}, verr.FieldNames())
		})
	}
}

func TestValidateDefaultIsCopied(t *testing.T) {
	s := New(Field{Name: "o", Type: TypeObject, Default: map[string]interface{}{"k": "v"}})

	first, err := s.Validate(nil)
	require.NoError(t, err)
	first["o"].(map[string]interface{})["k"] = "changed"

	second, err := s.Validate(nil)
	require.NoError(t, err)
	assert.Equal(t, "v", second["o"].(map[string]interface{})["k"])
}

func TestCheck(t *testing.T) {
	assert.NoError(t, convertSchema().Check())
	assert.NoError(t, New(Field{Name: "n", Type: TypeInteger, Default: 3}).Check())

	assert.Error(t, New(Field{Name: "", Type: TypeString}).Check())
	assert.Error(t, New(Field{Name: "a", Type: "date"}).Check())
	assert.Error(t, New(Field{Name: "a", Type: TypeString}, Field{Name: "a", Type: TypeString}).Check())
	assert.Error(t, New(Field{Name: "a", Type: TypeString, Default: 1}).Check())
}

func TestJSONSchema(t *testing.T) {
	js := New(
		Field{Name: "time", Type: TypeString, Required: true, Description: "The time"},
		Field{Name: "format", Type: TypeString, Default: "YYYY"},
	).JSONSchema()

	assert.Equal(t, "object", js["type"])
	assert.Equal(t, []string{"time"}, js["required"])

	props := js["properties"].(map[string]interface{})
	assert.Equal(t, map[string]interface{}{"type": "string", "description": "The time"}, props["time"])
	assert.Equal(t, "YYYY", props["format"].(map[string]interface{})["default"])

	_, hasRequired := New(Field{Name: "a", Type: TypeString}).JSONSchema()["required"]
	assert.False(t, hasRequired)
}

func TestArgsAccessors(t *testing.T) {
	a := Args{"s": "x", "empty": "", "n": 2.5, "i": int64(4), "b": true}

	s, ok := a.String("s")
	assert.True(t, ok)
	assert.Equal(t, "x", s)
	assert.Equal(t, "def", a.StringOr("empty", "def"))
	assert.Equal(t, "def", a.StringOr("missing", "def"))

	n, _ := a.Number("n")
	assert.Equal(t, 2.5, n)
	i, _ := a.Int("i")
	assert.Equal(t, int64(4), i)
	b, _ := a.Bool("b")
	assert.True(t, b)

	_, ok = a.Int("s")
	assert.False(t, ok)
}
