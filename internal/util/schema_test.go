package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sampleSchema struct {
	A string `json:"a" description:"Field A"`
	B *int   `json:"b" description:"Optional pointer field"`
	C int    `json:"c,omitempty" description:"Omit empty field"`
}

func TestCreateSchema(t *testing.T) {
	schema := CreateSchema(sampleSchema{})
	assert.Equal(t, "object", schema["type"])

	props, ok := schema["properties"].(map[string]any)
	assert.True(t, ok)
	assert.Contains(t, props, "a")
	assert.Contains(t, props, "b")
	assert.Contains(t, props, "c")

	a, _ := props["a"].(map[string]any)
	assert.Equal(t, "string", a["type"])
	assert.Equal(t, "Field A", a["description"])

	// Required only includes non-pointer, non-omitempty exported fields.
	req, _ := schema["required"].([]string)
	assert.ElementsMatch(t, []string{"a"}, req)
}

func TestCreateSchema_SkipsUnexportedAndIgnored(t *testing.T) {
	type hidden struct {
		Visible string `json:"visible"`
		Ignored string `json:"-"`
		private string
	}
	_ = hidden{private: ""}

	schema := CreateSchema(hidden{})
	props, _ := schema["properties"].(map[string]any)
	assert.Contains(t, props, "visible")
	assert.NotContains(t, props, "-")
	assert.NotContains(t, props, "private")
}
