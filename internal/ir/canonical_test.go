package ir

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", "hello", `"hello"`},
		{"empty string", "", `""`},
		{"int", 42, "42"},
		{"negative int64", int64(-100), "-100"},
		{"max int64", int64(9223372036854775807), "9223372036854775807"},
		{"bool true", true, "true"},
		{"bool false", false, "false"},
		{"empty array", []any{}, "[]"},
		{"empty string slice", []string{}, "[]"},
		{"empty object", map[string]any{}, "{}"},
		{"string slice", []string{"P1", "P1.1"}, `["P1","P1.1"]`},
		{"mixed array", []any{1, "a", true}, `[1,"a",true]`},
		{"simple object", map[string]any{"a": 1}, `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalSortedKeys(t *testing.T) {
	obj := map[string]any{
		"zebra": 1,
		"alpha": 2,
		"beta":  map[string]any{"y": 1, "x": 2},
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"beta":{"x":2,"y":1},"zebra":1}`, string(result))
}

func TestMarshalCanonicalUTF16KeyOrder(t *testing.T) {
	// U+1F600 encodes as surrogates 0xD83D 0xDE00 and sorts before U+FB01
	// in UTF-16 order, the opposite of UTF-8 byte order.
	obj := map[string]any{
		"\ufb01":     1,
		"\U0001F600": 2,
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":2,\"\ufb01\":1}", string(result))
}

func TestMarshalCanonicalNoHTMLEscape(t *testing.T) {
	result, err := MarshalCanonical("<a & b>")
	require.NoError(t, err)
	assert.Equal(t, `"<a & b>"`, string(result))
}

func TestMarshalCanonicalEscapes(t *testing.T) {
	result, err := MarshalCanonical("q\"b\\n\n\x01 ")
	require.NoError(t, err)
	assert.Equal(t, "\"q\\\"b\\\\n\\n\\u0001 \"", string(result))
}

func TestMarshalCanonicalInvalidUTF8(t *testing.T) {
	result, err := MarshalCanonical("a\xffb\xc3")
	require.NoError(t, err)
	assert.True(t, utf8.Valid(result))
	assert.Equal(t, "\"a\uFFFDb\uFFFD\"", string(result))

	replaced, err := MarshalCanonical("a\uFFFDb\uFFFD")
	require.NoError(t, err)
	assert.Equal(t, string(replaced), string(result))

	obj, err := MarshalCanonical(map[string]any{"k\x80": []string{"\xfe"}})
	require.NoError(t, err)
	assert.True(t, utf8.Valid(obj))
	assert.Equal(t, "{\"k\uFFFD\":[\"\uFFFD\"]}", string(obj))
}

func TestMarshalCanonicalNFC(t *testing.T) {
	decomposed := "e\u0301"
	composed := "\u00e9"

	a, err := MarshalCanonical(decomposed)
	require.NoError(t, err)
	b, err := MarshalCanonical(composed)
	require.NoError(t, err)
	assert.Equal(t, string(b), string(a))
}

func TestMarshalCanonicalRejects(t *testing.T) {
	_, err := MarshalCanonical(nil)
	assert.ErrorContains(t, err, "null is forbidden")

	_, err = MarshalCanonical(1.5)
	assert.ErrorContains(t, err, "floats are forbidden")

	_, err = MarshalCanonical(map[string]any{"k": []any{struct{}{}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `value for key "k"`)
	assert.Contains(t, err.Error(), "array[0]")
}
