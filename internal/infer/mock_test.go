package infer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tberndt/weft/internal/ir"
)

func TestSynthesizeShapes(t *testing.T) {
	tests := []struct {
		name   string
		schema ir.Object
		want   ir.Value
	}{
		{"string", ir.Object{"type": ir.String("string")}, ir.String("")},
		{"string with minLength", ir.Object{"type": ir.String("string"), "minLength": ir.Number(3)}, ir.String("xxx")},
		{"number", ir.Object{"type": ir.String("number")}, ir.Number(0)},
		{"number with minimum", ir.Object{"type": ir.String("number"), "minimum": ir.Number(5)}, ir.Number(5)},
		{"boolean", ir.Object{"type": ir.String("boolean")}, ir.Bool(false)},
		{"array", ir.Object{"type": ir.String("array")}, ir.List{}},
		{"const wins", ir.Object{"const": ir.String("fixed"), "type": ir.String("string")}, ir.String("fixed")},
		{"enum first member", ir.Object{"enum": ir.List{ir.String("a"), ir.String("b")}}, ir.String("a")},
		{"nil schema", nil, ir.Null{}},
		{
			"object recurses",
			ir.Object{
				"type": ir.String("object"),
				"properties": ir.Object{
					"name": ir.Object{"type": ir.String("string")},
					"n":    ir.Object{"type": ir.String("number")},
				},
			},
			ir.Object{"name": ir.String(""), "n": ir.Number(0)},
		},
		{
			"anyOf first branch",
			ir.Object{"anyOf": ir.List{
				ir.Object{"type": ir.String("number")},
				ir.Object{"type": ir.String("string")},
			}},
			ir.Number(0),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, ir.Equal(synthesize(tt.schema), tt.want))
		})
	}
}
