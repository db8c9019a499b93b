package promotion

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orizon-lang/lattice/internal/errors"
)

func TestOperatorsApply(t *testing.T) {
	f := newFixture(t)
	ops := DefaultOperators(f.u, f.p)

	tests := []struct {
		name     string
		op       string
		x, y     Value
		wantType string
		want     interface{}
	}{
		{"same type", "+", f.val("Int64", int64(2)), f.val("Int64", int64(3)), "Int64", int64(5)},
		{"promoted to float", "+", f.val("Int64", int64(2)), f.val("Float64", 0.5), "Float64", 2.5},
		{"promoted to wider int", "-", f.val("Int32", int32(1)), f.val("Int64", int64(3)), "Int64", int64(-2)},
		{"float32 product", "*", f.val("Float32", float32(1.5)), f.val("Float32", float32(2)), "Float32", float32(3)},
		{"bool promoted", "*", f.val("Bool", true), f.val("Float64", 4.0), "Float64", 4.0},
		{"wraps on overflow", "+", f.val("Int32", int32(math.MaxInt32)), f.val("Int32", int32(1)), "Int32", int32(math.MinInt32)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ops.Apply(tt.op, tt.x, tt.y)
			require.NoError(t, err)
			assertType(t, f.typ(tt.wantType), got.Type)
			assert.Equal(t, tt.want, got.Data)
		})
	}
}

func TestOperatorsNotDefined(t *testing.T) {
	f := newFixture(t)
	ops := DefaultOperators(f.u, f.p)

	t.Run("unknown operator", func(t *testing.T) {
		_, err := ops.Apply("/", f.val("Int64", int64(1)), f.val("Int64", int64(2)))
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrOperatorNotDefined)
		assert.Contains(t, err.Error(), "/ not defined for Int64")
	})

	t.Run("no implementation for type", func(t *testing.T) {
		_, err := ops.Apply("+", f.val("Int8", int8(1)), f.val("Int8", int8(2)))
		assert.ErrorIs(t, err, errors.ErrOperatorNotDefined)
	})

	t.Run("promoted type has no implementation", func(t *testing.T) {
		_, err := ops.Apply("+", f.val("Int8", int8(1)), f.val("Int16", int16(2)))
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrOperatorNotDefined)
		assert.Contains(t, err.Error(), "Int16")
	})

	t.Run("promotion fails", func(t *testing.T) {
		_, err := ops.Apply("+", f.val("Int64", int64(1)), f.val("String", "one"))
		assert.ErrorIs(t, err, errors.ErrPromotionFailed)
	})
}

func TestOperatorsRegister(t *testing.T) {
	f := newFixture(t)
	ops := NewOperators(f.p)
	str := f.typ("String")
	ops.Register("*", str, func(x, y interface{}) (interface{}, error) {
		return x.(string) + y.(string), nil
	})

	got, err := ops.Apply("*", Value{Type: str, Data: "ab"}, Value{Type: str, Data: "cd"})
	require.NoError(t, err)
	assert.Equal(t, "abcd", got.Data)

	_, err = ops.Apply("+", Value{Type: str, Data: "ab"}, Value{Type: str, Data: "cd"})
	assert.ErrorIs(t, err, errors.ErrOperatorNotDefined)
}

func TestArithRejectsForeignPayload(t *testing.T) {
	_, err := arith[int64]("+")(int32(1), int64(2))
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)
	_, err = arith[int64]("%")(int64(1), int64(2))
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)
}
