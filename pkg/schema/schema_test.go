package schema_test

import (
	"reflect"
	"testing"

	"github.com/effective-security/toolagent/pkg/llmutils"
	"github.com/effective-security/toolagent/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Units string

// Lookup is a weather lookup request.
type Lookup struct {
	City  string   `json:"city" jsonschema:"title=City,description=Name of the city,example=Delhi"`
	Units Units    `json:"units,omitempty" jsonschema:"title=Units,default=metric,enum=metric,enum=imperial"`
	Near  *Point   `json:"near,omitempty" jsonschema:"title=Near"`
	Stops []*Point `json:"stops,omitempty"`
}

// Point is a coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func TestSchema(t *testing.T) {
	t.Parallel()

	s, err := schema.New(reflect.TypeOf(Lookup{}))
	require.NoError(t, err)
	require.NotNil(t, s.Parameters)
	assert.Equal(t, "object", s.Parameters.Type)
	assert.Equal(t, []string{"city"}, s.Parameters.Required)

	city, ok := s.Parameters.Properties.Get("city")
	require.True(t, ok)
	assert.Equal(t, "string", city.Type)
	assert.Equal(t, "Name of the city", city.Description)

	units, ok := s.Parameters.Properties.Get("units")
	require.True(t, ok)
	assert.Equal(t, []any{"metric", "imperial"}, units.Enum)

	near, ok := s.Parameters.Properties.Get("near")
	require.True(t, ok)
	assert.Empty(t, near.Ref)
	assert.Equal(t, 2, near.Properties.Len())

	stops, ok := s.Parameters.Properties.Get("stops")
	require.True(t, ok)
	require.NotNil(t, stops.Items)
	assert.Empty(t, stops.Items.Ref)

	// cached
	s2, err := schema.For[Lookup]()
	require.NoError(t, err)
	assert.Same(t, s, s2)

	assert.Contains(t, s.Compact(), `"city":{"type":"string"`)
	assert.Contains(t, s.String(), "\n\t\"properties\"")
}

func TestSchemaFromAny(t *testing.T) {
	t.Parallel()

	sc, err := schema.FromAny(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"city": map[string]any{
				"type": "string",
			},
		},
		"required": []string{"city"},
	})
	require.NoError(t, err)

	exp := `{
	"properties": {
		"city": {
			"type": "string"
		}
	},
	"type": "object",
	"required": [
		"city"
	]
}`
	assert.Equal(t, exp, llmutils.ToJSONIndent(sc))

	assert.Panics(t, func() {
		schema.MustFromAny(func() {})
	})
}
