package typesys

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tberndt/weft/internal/ir"
)

func TestSchemaStructural(t *testing.T) {
	s := testSystem()
	schema, err := s.Schema("Person")
	require.NoError(t, err)

	assert.True(t, ir.Equal(schema["type"], ir.String("object")))
	assert.True(t, ir.Equal(schema["additionalProperties"], ir.Bool(false)))
	assert.True(t, ir.Equal(schema["title"], ir.String("Person")))

	props, ok := ir.AsObject(schema["properties"])
	require.True(t, ok)
	assert.Len(t, props, 5)

	// Required lists non-optional fields in declaration order.
	required, ok := ir.AsList(schema["required"])
	require.True(t, ok)
	assert.True(t, ir.Equal(required, ir.List{
		ir.String("name"), ir.String("age"), ir.String("tags"), ir.String("mood"),
	}))

	tags, ok := ir.AsObject(props["tags"])
	require.True(t, ok)
	assert.True(t, ir.Equal(tags["type"], ir.String("array")))
	items, ok := ir.AsObject(tags["items"])
	require.True(t, ok)
	assert.True(t, ir.Equal(items["type"], ir.String("string")))

	mood, ok := ir.AsObject(props["mood"])
	require.True(t, ok)
	assert.True(t, ir.Equal(mood["enum"], ir.List{ir.String("happy"), ir.String("sad")}))
}

func TestSchemaEnum(t *testing.T) {
	s := testSystem()
	schema, err := s.Schema("Status")
	require.NoError(t, err)
	assert.True(t, ir.Equal(schema["enum"], ir.List{ir.String("pending"), ir.String("done")}))
}

func TestSchemaLiteral(t *testing.T) {
	s := testSystem()
	schema, err := s.Schema("Pending")
	require.NoError(t, err)
	assert.True(t, ir.Equal(schema["const"], ir.String("pending")))
}

func TestSchemaUnion(t *testing.T) {
	s := testSystem()
	schema, err := s.Schema("IDish")
	require.NoError(t, err)
	anyOf, ok := ir.AsList(schema["anyOf"])
	require.True(t, ok)
	assert.Len(t, anyOf, 2)
}

func TestSchemaConstrained(t *testing.T) {
	s := testSystem()
	schema, err := s.Schema("ShortName")
	require.NoError(t, err)
	assert.True(t, ir.Equal(schema["type"], ir.String("string")))
	assert.True(t, ir.Equal(schema["minLength"], ir.Number(2)))
	assert.True(t, ir.Equal(schema["maxLength"], ir.Number(5)))
}

func TestSchemaUnknownType(t *testing.T) {
	s := testSystem()
	_, err := s.Schema("Nope")
	require.Error(t, err)
}
