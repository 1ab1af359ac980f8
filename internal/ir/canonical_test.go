package ir

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalSortsKeys(t *testing.T) {
	v := Object{"zebra": Number(1), "apple": Number(2), "mango": Number(3)}
	got := string(MarshalCanonical(v))
	assert.Equal(t, `{"apple":2,"mango":3,"zebra":1}`, got)
}

func TestCanonicalIntegralNumbers(t *testing.T) {
	got := string(MarshalCanonical(Object{"n": Number(8.0), "f": Number(0.5)}))
	assert.Equal(t, `{"f":0.5,"n":8}`, got)
}

func TestCanonicalNoHTMLEscaping(t *testing.T) {
	got := string(MarshalCanonical(String("a < b & c > d")))
	assert.Equal(t, `"a < b & c > d"`, got)
	assert.False(t, strings.Contains(got, "\\u003c"))
}

func TestCanonicalNFCNormalization(t *testing.T) {
	// Composed vs decomposed accents must serialize identically.
	composed := String("caf\u00e9")
	decomposed := String("cafe\u0301")
	assert.Equal(t, MarshalCanonical(composed), MarshalCanonical(decomposed))
}

func TestCanonicalDeterministic(t *testing.T) {
	v := Object{
		"b": List{Number(1), Object{"y": Null{}, "x": Bool(true)}},
		"a": String("s"),
	}
	first := MarshalCanonical(v)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, MarshalCanonical(v))
	}
}

func TestHashFormat(t *testing.T) {
	h := Hash(Object{"value": Number(8)})
	require.Len(t, h, 10)
	assert.True(t, strings.HasPrefix(h, "h:"))
}

func TestHashDistinguishesValues(t *testing.T) {
	a := Hash(Object{"value": Number(8)})
	b := Hash(Object{"value": Number(9)})
	assert.NotEqual(t, a, b)

	// Equal values hash equal regardless of construction order.
	c := Hash(Object{"x": Number(1), "y": Number(2)})
	d := Hash(Object{"y": Number(2), "x": Number(1)})
	assert.Equal(t, c, d)
}
