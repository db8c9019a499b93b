package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orizon-lang/lattice/internal/errors"
)

func TestParseRoundTrip(t *testing.T) {
	u := NewUniverse()
	for _, src := range []string{
		"Any",
		"Union{}",
		"Int64",
		"Tuple{}",
		"Rational{Int64}",
		"Array{Float64, 2}",
		"Tuple{Int64, Vararg{Int64}}",
		"Tuple{Vararg{Real}}",
		"Union{Int64, Nothing}",
		"Array{T, 1} where T",
		"Vector{T} where T<:Real",
		"Pair{A, B} where {A, B<:Real}",
		"Ref{T} where T>:Int64",
		"Pair{Array{T, 1} where T, Int64}",
	} {
		t.Run(src, func(t *testing.T) {
			typ, err := Parse(u, src)
			require.NoError(t, err)
			again, err := Parse(u, typ.String())
			require.NoError(t, err)
			assert.True(t, Equal(typ, again), "%s reparsed as %s", typ, again)
		})
	}
}

func TestParseCanonicalForms(t *testing.T) {
	u := NewUniverse()
	tests := []struct {
		src, want string
	}{
		{"Int", "Int64"},
		{"Bottom", "Union{}"},
		{"Vector{Int64}", "Array{Int64, 1}"},
		{"Matrix{Bool}", "Array{Bool, 2}"},
		{"Array{Int64}", "Array{Int64, N} where N"},
		{"Tuple{Int64, Vararg{Int64, 2}}", "Tuple{Int64, Int64, Int64}"},
		{"Union{Nothing, Int64, Nothing}", "Union{Int64, Nothing}"},
		{"Union{Int64}", "Int64"},
		{"Vector{T} where T<:Real", "Array{T, 1} where T<:Real"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			assert.Equal(t, tt.want, MustParse(u, tt.src).String())
		})
	}
}

func TestParseScoping(t *testing.T) {
	u := NewUniverse()

	typ := MustParse(u, "Pair{A, B} where A where B")
	outer, ok := typ.(*UnionAll)
	require.True(t, ok)
	assert.Equal(t, "B", outer.Var.Name)
	inner, ok := outer.Body.(*UnionAll)
	require.True(t, ok)
	assert.Equal(t, "A", inner.Var.Name)

	bounded := MustParse(u, "Ref{T} where T>:Int64<:Real").(*UnionAll)
	assert.Equal(t, u.MustLookup("Int64"), bounded.Var.Lower)
	assert.Equal(t, u.MustLookup("Real"), bounded.Var.Upper)
}

func TestParseErrors(t *testing.T) {
	u := NewUniverse()
	for _, src := range []string{
		"",
		"Foo",
		"Int64{1}",
		"Pair{Int64, Int64, Int64}",
		"Array{",
		"Tuple{Vararg{Int64}, Int64}",
		"Vararg{Int64}",
		"Tuple{Vararg{Int64, Int64}}",
		"Tuple{Vararg{}}",
		"Ref{T{Int64}} where T",
		"Int64 Float64",
		"Ref{T} where",
	} {
		t.Run(src, func(t *testing.T) {
			_, err := Parse(u, src)
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrInvalidArgument)
		})
	}
	assert.Panics(t, func() { MustParse(u, "Foo") })
}
