package promotion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orizon-lang/lattice/internal/errors"
	"github.com/orizon-lang/lattice/internal/types"
)

func TestParseValue(t *testing.T) {
	u := types.NewUniverse()

	tests := []struct {
		in       string
		wantType string
		want     interface{}
	}{
		{"true::Bool", "Bool", true},
		{"-8::Int8", "Int8", int8(-8)},
		{"300::Int16", "Int16", int16(300)},
		{"7::Int", "Int64", int64(7)},
		{"255::UInt8", "UInt8", uint8(255)},
		{"4000000000::UInt32", "UInt32", uint32(4000000000)},
		{"1.5::Float32", "Float32", float32(1.5)},
		{"2.5::Float64", "Float64", 2.5},
		{"a::b::String", "String", "a::b"},
		{"::Missing", "Missing", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v, err := ParseValue(u, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, v.Type.String())
			assert.Equal(t, tt.want, v.Data)
		})
	}
}

func TestParseValueErrors(t *testing.T) {
	u := types.NewUniverse()
	for _, in := range []string{"12", "256::UInt8", "x::Int64", "1::Real", "1::Nope", "yes::Bool"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseValue(u, in)
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrInvalidArgument)
		})
	}
}
