package promotion

import (
	"github.com/orizon-lang/lattice/internal/errors"
	"github.com/orizon-lang/lattice/internal/types"
)

// promotable lists the numeric types covered by the default rules, in the
// order used to decide which operand of a pair wins.
var promotable = []numeric{
	{name: "Bool", bits: 1, boolean: true},
	{name: "Int8", bits: 8, signed: true},
	{name: "UInt8", bits: 8, unsigned: true},
	{name: "Int16", bits: 16, signed: true},
	{name: "UInt16", bits: 16, unsigned: true},
	{name: "Int32", bits: 32, signed: true},
	{name: "UInt32", bits: 32, unsigned: true},
	{name: "Int64", bits: 64, signed: true},
	{name: "UInt64", bits: 64, unsigned: true},
	{name: "Float16", bits: 16, float: true},
	{name: "Float32", bits: 32, float: true},
	{name: "Float64", bits: 64, float: true},
}

// numericWinner picks the promotion target of two distinct numeric types:
// any number beats Bool, floats beat integers, wider beats narrower, and
// at equal width unsigned beats signed.
func numericWinner(a, b numeric) numeric {
	switch {
	case a.boolean:
		return b
	case b.boolean:
		return a
	case a.float != b.float:
		if a.float {
			return a
		}
		return b
	case a.bits != b.bits:
		if a.bits > b.bits {
			return a
		}
		return b
	case a.unsigned:
		return a
	}
	return b
}

// DefaultRegistry returns a registry holding the numeric promotion rules
// and the absent-value rules for Nothing and Missing. It is not sealed.
func DefaultRegistry(u *types.Universe) *Registry {
	r := NewRegistry()
	for i, a := range promotable {
		for _, b := range promotable[i+1:] {
			w := numericWinner(a, b)
			// Fresh registry, no conflicts possible.
			_ = r.Register(u.MustLookup(a.name), u.MustLookup(b.name), u.MustLookup(w.name))
		}
	}
	for _, marker := range u.Nullish() {
		_ = r.RegisterFunc(NullishRule(marker))
	}
	return r
}

// NullishRule promotes a type that admits marker (Missing, say) with any
// other type to the marker joined with the promotion of the rest, so
// Missing with Int64 gives Union{Int64, Missing}.
func NullishRule(marker types.Type) RuleFunc {
	return func(ctx RuleContext, a, b types.Type) types.Type {
		l := ctx.Lattice()
		if a == types.Any || !l.IsSubtype(marker, a) {
			return types.Bottom
		}
		rest := l.Split(a, marker)
		return l.Union(marker, ctx.PromoteType(rest, b))
	}
}

// DefaultOperators returns + - and * on Int32, Int64, Float32 and Float64.
// Integer arithmetic wraps on overflow.
func DefaultOperators(u *types.Universe, p *Promoter) *Operators {
	o := NewOperators(p)
	for _, op := range []string{"+", "-", "*"} {
		o.Register(op, u.MustLookup("Int32"), arith[int32](op))
		o.Register(op, u.MustLookup("Int64"), arith[int64](op))
		o.Register(op, u.MustLookup("Float32"), arith[float32](op))
		o.Register(op, u.MustLookup("Float64"), arith[float64](op))
	}
	return o
}

func arith[T int32 | int64 | float32 | float64](op string) OpFunc {
	return func(x, y interface{}) (interface{}, error) {
		a, ok := x.(T)
		if !ok {
			return nil, errors.InvalidArgument("operand %v has Go type %T", x, x)
		}
		b, ok := y.(T)
		if !ok {
			return nil, errors.InvalidArgument("operand %v has Go type %T", y, y)
		}
		switch op {
		case "+":
			return a + b, nil
		case "-":
			return a - b, nil
		case "*":
			return a * b, nil
		}
		return nil, errors.InvalidArgument("unknown arithmetic operator %s", op)
	}
}
