package types

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// sample covers every descriptor shape the join handles.
var sample = []string{
	"Union{}",
	"Any",
	"Int64",
	"Int32",
	"Float64",
	"Bool",
	"String",
	"Nothing",
	"Union{Int64, Nothing}",
	"Rational{Int64}",
	"Complex{Float64}",
	"Tuple{}",
	"Tuple{Int64}",
	"Tuple{Int64, Float64}",
	"Tuple{Vararg{Int64}}",
	"Array{Int64, 1}",
	"Array{Float64, 2}",
	"Vector",
	"BitVector",
}

func newTestLattice(t *testing.T, opts ...Option) (*Lattice, func(string) Type) {
	t.Helper()
	u := NewUniverse()
	l := NewLattice(u, opts...)
	t.Cleanup(l.Close)
	return l, func(src string) Type {
		typ, err := Parse(u, src)
		require.NoError(t, err, src)
		return typ
	}
}

func assertEqualType(t *testing.T, want, got Type) {
	t.Helper()
	assert.Truef(t, Equal(want, got), "want %s, got %s", want, got)
}

func TestJoin(t *testing.T) {
	l, parse := newTestLattice(t)

	tests := []struct {
		name, a, b, want string
	}{
		{"siblings", "Int64", "Int32", "Signed"},
		{"cousins", "Int64", "Float64", "Real"},
		{"unrelated", "String", "Int64", "Any"},
		{"subtype", "Int64", "Real", "Real"},
		{"bottom", "Union{}", "Float64", "Float64"},
		{"any", "Any", "Tuple{}", "Any"},
		{"union members", "Union{Int32, Int64}", "Float64", "Real"},
		{"union absorbs member", "Union{Int64, Nothing}", "Nothing", "Union{Int64, Nothing}"},
		{"parametric into atomic chain", "Rational{Int64}", "Int64", "Real"},
		{"parametric chains meet", "Rational{Int64}", "Complex{Float64}", "Number"},

		{"tuple tail absorbs", "Tuple{Int64, Int64}", "Tuple{Int64, Vararg{Int64}}", "Tuple{Int64, Vararg{Int64}}"},
		{"empty tuple", "Tuple{}", "Tuple{Vararg{Int64}}", "Tuple{Vararg{Int64}}"},
		{"empty and fixed", "Tuple{}", "Tuple{Int64, Float64}", "Tuple{Vararg{Real}}"},
		{"shorter gains tail", "Tuple{Int64}", "Tuple{Float64, Float64}", "Tuple{Real, Vararg{Float64}}"},
		{"variadic against fixed", "Tuple{Int64, Vararg{Int64}}", "Tuple{Float64}", "Tuple{Real, Vararg{Int64}}"},
		{"unbounded tail folds", "Tuple{Int64, Float64}", "Tuple{Vararg{Int64}}", "Tuple{Vararg{Real}}"},
		{"same length", "Tuple{Int64, String}", "Tuple{Float64, String}", "Tuple{Real, String}"},
		{"tuple and nominal", "Tuple{Int64}", "Int64", "Any"},

		{"divergent element type", "Array{Int64, 1}", "Array{Float64, 1}", "Array{T, 1} where T"},
		{"divergent dimension", "Array{Int64, 1}", "Array{Int64, 2}", "Array{Int64, N} where N"},
		{"all divergent", "Array{Int64, 1}", "Array{Float64, 2}", "Array"},
		{"common abstract ancestor", "Vector{Int64}", "BitVector", "AbstractArray{T, 1} where T"},
		{"dense and bit arrays", "Array{Float64, 2}", "BitArray{2}", "AbstractArray{T, 2} where T"},
		{"pair", "Pair{Int64, String}", "Pair{Float64, String}", "Pair{A, String} where A"},
		{"type of types", "Type{Int64}", "Type{Float64}", "Type"},

		{"unused variable dropped", "Pair{Int64, T} where T", "Pair{Float64, Int64}", "Pair"},
		{"bounded variable widened", "Tuple{T} where T<:Real", "Tuple{Int64, Int64}", "Tuple{Real, Vararg{Int64}}"},
		{"existential absorbs", "Tuple{Float64, Int64}", "Tuple{T, Int64} where T<:Real", "Tuple{T, Int64} where T<:Real"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b, want := parse(tt.a), parse(tt.b), parse(tt.want)
			assertEqualType(t, want, l.Join(a, b))
			assertEqualType(t, want, l.Join(b, a))
		})
	}
}

func TestJoinReflexive(t *testing.T) {
	l, parse := newTestLattice(t)
	for _, src := range sample {
		t.Run(src, func(t *testing.T) {
			typ := parse(src)
			assertEqualType(t, typ, l.Join(typ, typ))
		})
	}
}

func TestJoinCommutativeUpperBound(t *testing.T) {
	l, parse := newTestLattice(t)
	for i, x := range sample {
		for _, y := range sample[i:] {
			t.Run("join("+x+", "+y+")", func(t *testing.T) {
				a, b := parse(x), parse(y)
				ab, ba := l.Join(a, b), l.Join(b, a)
				assertEqualType(t, ab, ba)
				assert.Truef(t, l.IsSubtype(a, ab), "%s is not below %s", a, ab)
				assert.Truef(t, l.IsSubtype(b, ab), "%s is not below %s", b, ab)
			})
		}
	}
}

func TestJoinAllOrderIndependent(t *testing.T) {
	l, parse := newTestLattice(t)

	tests := []struct {
		types []string
		want  string
	}{
		{[]string{"Int64", "Float64", "Int32"}, "Real"},
		{[]string{"Int8", "UInt8", "Bool"}, "Integer"},
		{[]string{"Tuple{Int64}", "Tuple{Float64}", "Tuple{Int64, Int64}"}, "Tuple{Real, Vararg{Int64}}"},
		{[]string{"Array{Int64, 1}", "Array{Float64, 1}", "BitVector"}, "AbstractArray{T, 1} where T"},
	}
	for _, tt := range tests {
		for _, perm := range permutations(tt.types) {
			t.Run(fmt.Sprint(perm), func(t *testing.T) {
				ts := make([]Type, len(perm))
				for i, src := range perm {
					ts[i] = parse(src)
				}
				assertEqualType(t, parse(tt.want), l.JoinAll(ts...))
			})
		}
	}
}

func TestJoinAllEmpty(t *testing.T) {
	l, parse := newTestLattice(t)
	assert.Equal(t, Bottom, l.JoinAll())
	assertEqualType(t, parse("Int64"), l.JoinAll(parse("Int64")))
}

func TestJoinTypeOfTypeWithFreeVariable(t *testing.T) {
	u := NewUniverse()
	l := NewLattice(u)
	typeT := u.TypeOfType()

	free := NewTypeVar("T", nil, nil)
	a := MustParametric(typeT, free)
	b := MustParametric(typeT, u.MustLookup("Int64"))

	assert.Same(t, typeT.Wrapper(), l.Join(a, b))
	assert.Same(t, typeT.Wrapper(), l.Join(b, a))

	// A bounded variable is not the special case.
	bounded := MustParametric(typeT, NewTypeVar("T", nil, u.MustLookup("Real")))
	assertEqualType(t, typeT.Wrapper(), l.Join(bounded, b))
}

func TestJoinTypeVariable(t *testing.T) {
	l, parse := newTestLattice(t)
	v := NewTypeVar("T", nil, parse("Real"))
	assertEqualType(t, parse("Real"), l.Join(v, parse("Int64")))
	assertEqualType(t, parse("Number"), l.Join(parse("Complex{Float64}"), v))
}

func TestJoinValues(t *testing.T) {
	l, parse := newTestLattice(t)
	one := &Value{V: int64(1)}
	assert.Same(t, one, l.Join(one, &Value{V: int64(1)}))
	assert.Equal(t, Any, l.Join(one, &Value{V: int64(2)}))
	assert.Equal(t, Any, l.Join(one, parse("Int64")))
}

func TestJoinCacheTransparent(t *testing.T) {
	u := NewUniverse()
	plain := NewLattice(u)
	cached := NewLattice(u, WithJoinCache(1024))
	defer cached.Close()
	require.NotNil(t, cached.cache)

	for pass := 0; pass < 2; pass++ {
		for i, x := range sample {
			for _, y := range sample[i:] {
				a, b := MustParse(u, x), MustParse(u, y)
				assertEqualType(t, plain.Join(a, b), cached.Join(a, b))
			}
		}
		cached.cache.c.Wait()
	}
}

func TestJoinCacheOptions(t *testing.T) {
	u := NewUniverse()

	t.Run("disabled by default", func(t *testing.T) {
		l := NewLattice(u)
		assert.Nil(t, l.cache)
		l.Close()
	})

	t.Run("non-positive size", func(t *testing.T) {
		l := NewLattice(u, WithJoinCache(0))
		assert.Nil(t, l.cache)
	})

	t.Run("close is idempotent", func(t *testing.T) {
		l := NewLattice(u, WithJoinCache(16))
		l.Close()
		l.Close()
		assert.Nil(t, l.cache)
		assert.Equal(t, u.MustLookup("Real"), l.Join(u.MustLookup("Int64"), u.MustLookup("Float64")))
	})

	t.Run("logger precedes cache", func(t *testing.T) {
		core, logs := observer.New(zap.DebugLevel)
		l := NewLattice(u, WithLogger(zap.New(core)), WithJoinCache(8))
		defer l.Close()
		assert.NotNil(t, l.cache)
		assert.Zero(t, logs.Len())
	})
}

func TestJoinKeyDistinguishesOrder(t *testing.T) {
	u := NewUniverse()
	a, b := u.MustLookup("Int64"), u.MustLookup("Float64")
	assert.NotEqual(t, joinKey(a, b), joinKey(b, a))
	assert.Equal(t, joinKey(a, b), joinKey(a, b))
}

func permutations(xs []string) [][]string {
	if len(xs) <= 1 {
		return [][]string{append([]string(nil), xs...)}
	}
	var out [][]string
	for i := range xs {
		rest := make([]string, 0, len(xs)-1)
		rest = append(rest, xs[:i]...)
		rest = append(rest, xs[i+1:]...)
		for _, p := range permutations(rest) {
			out = append(out, append([]string{xs[i]}, p...))
		}
	}
	return out
}
