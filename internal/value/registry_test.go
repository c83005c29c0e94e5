package value

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/claimspec/internal/ir"
)

func TestStandardIsFrozen(t *testing.T) {
	r := Standard()
	assert.True(t, r.Frozen())
	assert.Same(t, r, Standard())

	err := r.Register("custom", func(ir.IRObject) (Value, error) { return nil, nil })
	assert.True(t, errors.Is(err, ErrFrozen))

	err = r.RegisterCompare("number", "custom", "number", compareNumberNumber)
	assert.True(t, errors.Is(err, ErrFrozen))
}

func TestRegisterErrors(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, RegisterBuiltins(r))

	err := r.Register(KindNumber, decodeNumber)
	assert.True(t, errors.Is(err, ErrDuplicateKind))

	err = r.Register(KindGrouped, decodeNumber)
	assert.True(t, errors.Is(err, ErrReservedKind))

	err = r.RegisterCompare(FamilyNumber, KindNumber, KindNumber, compareNumberNumber)
	assert.True(t, errors.Is(err, ErrDuplicateComparator))

	assert.Error(t, r.Register("", decodeNumber))
	assert.Error(t, r.Register("x", nil))
	assert.Error(t, r.RegisterCompare("f", "a", "b", nil))

	assert.True(t, r.Has(KindInvalid))
	assert.False(t, r.Has("custom"))
}

func TestExtendedRegistry(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, RegisterBuiltins(r))
	require.NoError(t, r.Register("label", func(obj ir.IRObject) (Value, error) {
		s, err := obj.String("data")
		if err != nil {
			return nil, err
		}
		return testValue{kind: "label", family: "text", data: s}, nil
	}))
	r.Freeze()

	v, err := r.Decode(ir.Object(ir.O("kind", ir.IRString("label")), ir.O("data", ir.IRString("hi"))))
	require.NoError(t, err)
	assert.Equal(t, testValue{kind: "label", family: "text", data: "hi"}, v)

	_, err = r.Decode(ir.Object(ir.O("kind", ir.IRString("label"))))
	var de *ir.DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "label", de.Kind)
	assert.Equal(t, "data", de.Field)
}

func TestEncodeDecodeValues(t *testing.T) {
	r := Standard()
	tests := []struct {
		name    string
		v       Value
		encoded string
	}{
		{"number", Number(96), `{"data":96,"kind":"number"}`},
		{"fraction", Number(19.3), `{"data":19.3,"kind":"number"}`},
		{"approx", ApproxNumber{Center: 200, ATol: 10}, `{"atol":10,"data":200,"kind":"approx_number","rtol":0}`},
		{"interval", Interval(210, 190), `{"data":{"hi":210,"lo":190},"kind":"interval_number"}`},
		{"invalid", NewInvalid("no_data", map[string]any{"col": "rt", "n_rows": 0}),
			`{"data":null,"detail":{"col":"rt","n_rows":0},"kind":"invalid","reason":"no_data"}`},
		{"invalid without detail", NewInvalid("oops", nil), `{"data":null,"detail":null,"kind":"invalid","reason":"oops"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := ir.MarshalCanonical(tt.v.Encode())
			require.NoError(t, err)
			assert.Equal(t, tt.encoded, string(data))

			obj, err := ir.UnmarshalObject(data)
			require.NoError(t, err)
			back, err := r.Decode(obj)
			require.NoError(t, err)

			again, err := ir.MarshalCanonical(back.Encode())
			require.NoError(t, err)
			assert.Equal(t, tt.encoded, string(again))
		})
	}
}

func TestDecodeDefaults(t *testing.T) {
	r := Standard()

	v, err := r.Decode(ir.Object(ir.O("kind", ir.IRString(KindApproxNumber)), ir.O("data", ir.IRInt(5))))
	require.NoError(t, err)
	assert.Equal(t, ApproxNumber{Center: 5}, v)

	v, err = r.Decode(ir.Object(
		ir.O("kind", ir.IRString(KindIntervalNumber)),
		ir.O("data", ir.Object(ir.O("lo", ir.IRInt(3)), ir.O("hi", ir.IRInt(1)))),
	))
	require.NoError(t, err)
	assert.Equal(t, Interval(1, 3), v)
}

func TestDecodeUnknownKind(t *testing.T) {
	_, err := Standard().Decode(ir.Object(ir.O("kind", ir.IRString("mystery"))))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ir.ErrUnknownKind))
	assert.Contains(t, err.Error(), "mystery")

	_, err = Standard().Decode(ir.IRObject{})
	require.Error(t, err)

	_, err = Standard().Decode(ir.Object(ir.O("kind", ir.IRString(KindNumber)), ir.O("data", ir.IRString("x"))))
	require.Error(t, err)
}

func TestGroupedEncodeDecode(t *testing.T) {
	r := Standard()
	g := Grouped{"p1": Number(1), "p2": Number(2), "p3": ApproxNumber{Center: 1, ATol: 0.5}}

	data, err := ir.MarshalCanonical(g.Encode())
	require.NoError(t, err)
	assert.Equal(t,
		`{"groups":{"p1":{"data":1,"kind":"number"},"p2":{"data":2,"kind":"number"},"p3":{"atol":0.5,"data":1,"kind":"approx_number","rtol":0}},"kind":"grouped"}`,
		string(data))

	obj, err := ir.UnmarshalObject(data)
	require.NoError(t, err)
	back, err := r.DecodeResult(obj)
	require.NoError(t, err)
	assert.Equal(t, g, back)

	scalar, err := r.DecodeResult(Number(3).Encode())
	require.NoError(t, err)
	assert.Equal(t, Number(3), scalar)

	_, err = r.DecodeResult(ir.Object(ir.O("kind", ir.IRString(KindGrouped))))
	require.Error(t, err)

	_, err = r.DecodeResult(ir.Object(
		ir.O("kind", ir.IRString(KindGrouped)),
		ir.O("groups", ir.Object(ir.O("a", ir.IRInt(1)))),
	))
	require.Error(t, err)

	_, err = r.DecodeResult(ir.Object(
		ir.O("kind", ir.IRString(KindGrouped)),
		ir.O("groups", ir.Object(ir.O("a", ir.Object(ir.O("kind", ir.IRString("mystery")))))),
	))
	assert.True(t, errors.Is(err, ir.ErrUnknownKind))
}

func TestIsInvalidAndEncodeResult(t *testing.T) {
	assert.True(t, IsInvalid(NewInvalid("x", nil)))
	assert.True(t, IsInvalid(Grouped{"a": NewInvalid("x", nil)}))
	assert.False(t, IsInvalid(Grouped{"a": Number(1)}))
	assert.False(t, IsInvalid(Number(1)))

	assert.Equal(t, ir.IRNull{}, EncodeResult(nil))
	assert.Equal(t, Number(2).Encode(), EncodeResult(Number(2)))
}

func TestInvalidDetailWithUnencodableEntry(t *testing.T) {
	inv := NewInvalid("odd", map[string]any{"ch": make(chan int)})
	_, err := ir.MarshalCanonical(inv.Encode())
	require.NoError(t, err)
}
