package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `{
  "type": "object",
  "required": ["name", "count"],
  "properties": {
    "name":  {"type": "string", "enum": ["a", "b"]},
    "count": {"type": ["integer", "null"]}
  }
}`

func TestSchema_ValidateJSON(t *testing.T) {
	s := MustCompile(testSchema)

	tests := []struct {
		name      string
		doc       string
		wantValid bool
		wantField string
	}{
		{"valid", `{"name":"a","count":2}`, true, ""},
		{"null allowed", `{"name":"b","count":null}`, true, ""},
		{"missing required", `{"name":"a"}`, false, "(root)"},
		{"enum violation", `{"name":"c","count":1}`, false, "name"},
		{"type violation", `{"name":"a","count":"two"}`, false, "count"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := s.ValidateJSON([]byte(tt.doc))
			require.NoError(t, err)
			assert.Equal(t, tt.wantValid, result.Valid)
			if !tt.wantValid {
				require.NotEmpty(t, result.Errors)
				assert.Equal(t, tt.wantField, result.Errors[0].Field)
				assert.NotEmpty(t, result.Summary())
			}
		})
	}
}

func TestSchema_ValidateJSON_MalformedDocument(t *testing.T) {
	s := MustCompile(testSchema)
	_, err := s.ValidateJSON([]byte(`{"name":`))
	assert.Error(t, err)
}

func TestSchema_ValidateValue(t *testing.T) {
	s := MustCompile(testSchema)
	result, err := s.ValidateValue(map[string]interface{}{"name": "a", "count": 1})
	require.NoError(t, err)
	assert.True(t, result.Valid)
}

func TestCompile_InvalidSchema(t *testing.T) {
	_, err := Compile(`{"type": 12}`)
	assert.Error(t, err)
}
