package canonical

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", "hello", `"hello"`},
		{"empty string", "", `""`},
		{"int", 42, "42"},
		{"int64", int64(-100), "-100"},
		{"max int64", int64(math.MaxInt64), "9223372036854775807"},
		{"min int64", int64(math.MinInt64), "-9223372036854775808"},
		{"bool true", true, "true"},
		{"bool false", false, "false"},
		{"null", nil, "null"},
		{"float", 1.5, "1.5"},
		{"integral float", 23.0, "23"},
		{"large float", 1e21, "1e+21"},
		{"small float", 1e-7, "1e-7"},
		{"negative zero", math.Copysign(0, -1), "0"},
		{"blob", []byte{0xde, 0xad}, `"x'dead'"`},
		{"empty array", []any{}, "[]"},
		{"empty object", map[string]any{}, "{}"},
		{"mixed array", []any{int64(1), "a", nil, 2.5}, `[1,"a",null,2.5]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Marshal(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalSortedKeys(t *testing.T) {
	obj := map[string]any{
		"zebra": 1,
		"alpha": 2,
		"beta":  map[string]any{"y": 1, "x": 2},
	}

	result, err := Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"beta":{"x":2,"y":1},"zebra":1}`, string(result))
}

func TestMarshalUTF16Ordering(t *testing.T) {
	// U+10000 is a surrogate pair (0xD800 0xDC00) and sorts before U+E000 in
	// UTF-16, although its UTF-8 encoding sorts after.
	obj := map[string]any{
		"\uE000":     1,
		"\U00010000": 2,
	}

	result, err := Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, "{\"\U00010000\":2,\"\uE000\":1}", string(result))
}

func TestMarshalNoHTMLEscape(t *testing.T) {
	result, err := Marshal("a<b && c>d")
	require.NoError(t, err)
	assert.Equal(t, `"a<b && c>d"`, string(result))
}

func TestMarshalStringEscaping(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"quote", `say "hi"`, `"say \"hi\""`},
		{"backslash", `a\b`, `"a\\b"`},
		{"newline", "a\nb", `"a\nb"`},
		{"tab", "a\tb", `"a\tb"`},
		{"control", "a\x01b", `"a\u0001b"`},
		{"line separator", "a\u2028b", "\"a\u2028b\""},
		{"paragraph separator", "a\u2029b", "\"a\u2029b\""},
		{"literal backslash u2028", `a\u2028b`, `"a\\u2028b"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Marshal(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalNFCNormalization(t *testing.T) {
	decomposed := "e\u0301" // e + combining acute
	composed := "\u00e9"

	a, err := Marshal(decomposed)
	require.NoError(t, err)
	b, err := Marshal(composed)
	require.NoError(t, err)
	assert.Equal(t, string(b), string(a))

	k, err := Marshal(map[string]any{decomposed: 1})
	require.NoError(t, err)
	assert.Equal(t, `{"`+composed+`":1}`, string(k))
}

func TestMarshalRejectsNonFinite(t *testing.T) {
	_, err := Marshal(math.NaN())
	assert.Error(t, err)

	_, err = Marshal([]any{math.Inf(1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "array[0]")
}

func TestMarshalStructsUseJSONTags(t *testing.T) {
	type frame struct {
		Begin int64 `json:"begin"`
		End   int64 `json:"end"`
	}
	type event struct {
		Seq    int64   `json:"seq"`
		Kind   string  `json:"kind"`
		Frames []frame `json:"frames"`
		Error  string  `json:"error,omitempty"`
	}

	result, err := Marshal(event{Seq: 1, Kind: "undo", Frames: []frame{{1, 1}}})
	require.NoError(t, err)
	assert.Equal(t, `{"frames":[{"begin":1,"end":1}],"kind":"undo","seq":1}`, string(result))
}

func TestMarshalUnsupported(t *testing.T) {
	_, err := Marshal(make(chan int))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported type")
}

func TestMarshalIdempotent(t *testing.T) {
	obj := map[string]any{"b": []any{1, "x"}, "a": map[string]any{"d": nil, "c": true}}

	first, err := Marshal(obj)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Marshal(obj)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestSortedKeys(t *testing.T) {
	keys := SortedKeys(map[string]int{"b": 1, "a": 2, "B": 3})
	assert.Equal(t, []string{"B", "a", "b"}, keys)
}
