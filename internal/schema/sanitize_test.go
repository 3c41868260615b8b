package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want interface{}
	}{
		{
			name: "undefined property removed",
			in:   map[string]interface{}{"a": 1, "b": Undefined},
			want: map[string]interface{}{"a": 1},
		},
		{
			name: "explicit null preserved",
			in:   map[string]interface{}{"resolution": nil},
			want: map[string]interface{}{"resolution": nil},
		},
		{
			name: "nested arrays and objects",
			in: map[string]interface{}{
				"phases": []interface{}{
					map[string]interface{}{"id": 1, "name": Undefined},
					Undefined,
				},
			},
			want: map[string]interface{}{
				"phases": []interface{}{map[string]interface{}{"id": 1}},
			},
		},
		{
			name: "typed object slice becomes generic",
			in:   []map[string]interface{}{{"x": Undefined, "y": "z"}},
			want: []interface{}{map[string]interface{}{"y": "z"}},
		},
		{
			name: "scalar untouched",
			in:   "text",
			want: "text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}

func TestSanitize_DoesNotMutateInput(t *testing.T) {
	in := map[string]interface{}{"a": Undefined}
	_ = SanitizeDocument(in)
	assert.Contains(t, in, "a")
}

func TestSanitizeDocument_Nil(t *testing.T) {
	assert.Nil(t, SanitizeDocument(nil))
}

func TestCheck_UndefinedValueReported(t *testing.T) {
	errs := Check(map[string]interface{}{"task": Undefined}, ExecutionSchema())
	var found bool
	for _, e := range errs {
		if e.Path == "task" && e.Message == "value is undefined" {
			found = true
		}
	}
	assert.True(t, found)
}
