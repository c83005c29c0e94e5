package ir

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIRValueSealed(t *testing.T) {
	values := []IRValue{
		IRNull{}, IRString(""), IRInt(0), IRFloat(0), IRBool(false), IRArray{}, IRObject{},
	}
	assert.Len(t, values, 7)
}

func TestCompareKeysRFC8785(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"a", "b", -1},
		{"b", "a", 1},
		{"a", "a", 0},
		{"a", "ab", -1},
		{"", "a", -1},
		// U+10000 encodes as a surrogate pair 0xD800 0xDC00, which sorts
		// before U+E000 in UTF-16 even though UTF-8 orders it after.
		{"\U00010000", "\uE000", -1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CompareKeys(tt.a, tt.b), "%q vs %q", tt.a, tt.b)
	}
}

func TestSortedKeys(t *testing.T) {
	obj := IRObject{"slice": IRNull{}, "col": IRString("x"), "kind": IRString("mean")}
	assert.Equal(t, []string{"col", "kind", "slice"}, obj.SortedKeys())
	assert.Empty(t, IRObject{}.SortedKeys())
}

func TestStringsHelper(t *testing.T) {
	assert.Equal(t, IRNull{}, Strings(nil))
	assert.Equal(t, IRArray{}, Strings([]string{}))
	assert.Equal(t, IRArray{IRString("a"), IRString("b")}, Strings([]string{"a", "b"}))
}

func TestUnmarshalNumbers(t *testing.T) {
	tests := []struct {
		input string
		want  IRValue
	}{
		{"42", IRInt(42)},
		{"-7", IRInt(-7)},
		{"2.0", IRFloat(2)},
		{"19.3", IRFloat(19.3)},
		{"1e-7", IRFloat(1e-7)},
		{"null", IRNull{}},
		{"99999999999999999999", IRFloat(99999999999999999999)},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Unmarshal([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUnmarshalObject(t *testing.T) {
	obj, err := UnmarshalObject([]byte(`{"kind":"cmp","op":"in","col":"cond","value":["A","B"],"x":null}`))
	require.NoError(t, err)

	assert.Equal(t, IRString("cmp"), obj["kind"])
	assert.Equal(t, IRArray{IRString("A"), IRString("B")}, obj["value"])
	assert.Equal(t, IRNull{}, obj["x"])

	_, err = UnmarshalObject([]byte(`[1,2]`))
	require.Error(t, err)

	_, err = UnmarshalObject([]byte(`{`))
	require.Error(t, err)
}

func TestIRObjectJSONRoundTrip(t *testing.T) {
	obj := IRObject{"b": IRFloat(0.5), "a": IRArray{IRInt(1), IRNull{}}}

	data, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"a":[1,null],"b":0.5}`, string(data))

	var back IRObject
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, obj, back)
}

func TestFromGo(t *testing.T) {
	got, err := FromGo(map[string]any{
		"n":    3,
		"f":    float32(0.5),
		"list": []any{"x", true, nil},
		"ids":  []string{"p1"},
		"num":  json.Number("12"),
	})
	require.NoError(t, err)

	assert.Equal(t, IRObject{
		"n":    IRInt(3),
		"f":    IRFloat(0.5),
		"list": IRArray{IRString("x"), IRBool(true), IRNull{}},
		"ids":  IRArray{IRString("p1")},
		"num":  IRInt(12),
	}, got)

	_, err = FromGo(struct{}{})
	require.Error(t, err)

	_, err = FromGo([]any{nan()})
	require.Error(t, err)
}

func TestToGo(t *testing.T) {
	v := IRObject{
		"a": IRArray{IRInt(1), IRFloat(1.5), IRBool(true), IRNull{}},
		"b": IRString("s"),
	}
	assert.Equal(t, map[string]any{
		"a": []any{int64(1), 1.5, true, nil},
		"b": "s",
	}, ToGo(v))
}

func TestAccessors(t *testing.T) {
	obj := IRObject{
		"kind":     IRString("const"),
		"by":       IRString("subject"),
		"cols":     IRArray{IRString("age"), IRString("sex")},
		"atol":     IRInt(1),
		"nested":   IRObject{"kind": IRString("eq")},
		"items":    IRArray{IRObject{"kind": IRString("eq")}},
		"nothing":  IRNull{},
		"wrongnum": IRString("x"),
	}

	kind, err := obj.Kind()
	require.NoError(t, err)
	assert.Equal(t, "const", kind)

	by, err := obj.StringList("by")
	require.NoError(t, err)
	assert.Equal(t, []string{"subject"}, by)

	cols, err := obj.StringList("cols")
	require.NoError(t, err)
	assert.Equal(t, []string{"age", "sex"}, cols)

	absent, err := obj.StringList("nothing")
	require.NoError(t, err)
	assert.Nil(t, absent)

	atol, err := obj.Float("atol", 0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, atol)

	rtol, err := obj.Float("rtol", 0.25)
	require.NoError(t, err)
	assert.Equal(t, 0.25, rtol)

	_, err = obj.Float("wrongnum", 0)
	var decErr *DecodeError
	require.True(t, errors.As(err, &decErr))
	assert.Equal(t, "wrongnum", decErr.Field)

	nested, ok, err := obj.Object("nested")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, IRString("eq"), nested["kind"])

	_, ok, err = obj.Object("nothing")
	require.NoError(t, err)
	assert.False(t, ok)

	items, err := obj.Objects("items")
	require.NoError(t, err)
	assert.Len(t, items, 1)

	_, err = obj.String("missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing: required")

	s, err := obj.OptString("missing")
	require.NoError(t, err)
	assert.Empty(t, s)

	_, err = IRObject{}.Kind()
	require.Error(t, err)
}
