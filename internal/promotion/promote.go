package promotion

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/orizon-lang/lattice/internal/errors"
	"github.com/orizon-lang/lattice/internal/types"
)

// maxPromoteDepth bounds mutual recursion between rules that point at each
// other. Past it the lattice join decides.
const maxPromoteDepth = 8

// Value is a runtime value tagged with its type.
type Value struct {
	Type types.Type
	Data interface{}
}

func (v Value) String() string {
	return fmt.Sprintf("%v::%s", v.Data, v.Type)
}

// Promoter computes promotion targets and converts values to them.
type Promoter struct {
	lattice *types.Lattice
	rules   *Registry
	conv    Converter
	nullish []types.Type
	logger  *zap.Logger
}

// Option configures a Promoter.
type Option func(*Promoter)

// WithConverter sets the conversion used by Promote. The default only
// accepts values already of the target type or a subtype of it.
func WithConverter(c Converter) Option {
	return func(p *Promoter) { p.conv = c }
}

// WithNullish sets the absent-value marker types stripped by
// PromoteTypeJoin.
func WithNullish(ts ...types.Type) Option {
	return func(p *Promoter) { p.nullish = append([]types.Type(nil), ts...) }
}

// WithLogger sets the logger for fallback and recursion diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Promoter) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPromoter creates a promoter over lattice l and rules.
func NewPromoter(l *types.Lattice, rules *Registry, opts ...Option) *Promoter {
	p := &Promoter{
		lattice: l,
		rules:   rules,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.rules == nil {
		p.rules = NewRegistry()
	}
	if p.conv == nil {
		p.conv = NewConversionTable(l)
	}
	return p
}

// Lattice returns the lattice used for join fallback.
func (p *Promoter) Lattice() *types.Lattice { return p.lattice }

// Registry returns the rule registry.
func (p *Promoter) Registry() *Registry { return p.rules }

// ====== Type Promotion ======

// PromoteType returns the type values of types a and b are converted to
// before a mixed operation.
func (p *Promoter) PromoteType(a, b types.Type) types.Type {
	return p.promoteType(a, b, 0)
}

// Rule returns the rule for the ordered pair (a, b): an exact rule if one
// is registered, otherwise the first generic rule that applies, otherwise
// types.Bottom.
func (p *Promoter) Rule(a, b types.Type) types.Type {
	return p.rule(a, b, 0)
}

func (p *Promoter) rule(a, b types.Type, depth int) types.Type {
	if r := p.rules.Lookup(a, b); r != types.Bottom {
		return r
	}
	ctx := depthContext{p: p, depth: depth + 1}
	for _, fn := range p.rules.generic() {
		if r := fn(ctx, a, b); r != nil && r != types.Bottom {
			return r
		}
	}
	return types.Bottom
}

func (p *Promoter) promoteType(a, b types.Type, depth int) types.Type {
	if a == b || types.Equal(a, b) {
		return a
	}
	if a == types.Bottom {
		return b
	}
	if b == types.Bottom {
		return a
	}
	if depth > maxPromoteDepth {
		p.logger.Warn("promotion rules recurse too deeply; using join",
			zap.Stringer("a", a), zap.Stringer("b", b), zap.Int("depth", depth))
		return p.lattice.Join(a, b)
	}

	ab := p.rule(a, b, depth)
	ba := p.rule(b, a, depth)
	switch {
	case ab == types.Bottom && ba == types.Bottom:
		j := p.lattice.Join(a, b)
		p.logger.Debug("no promotion rule; using join",
			zap.Stringer("a", a), zap.Stringer("b", b), zap.Stringer("join", j))
		return j
	case ba == types.Bottom:
		return ab
	case ab == types.Bottom:
		return ba
	}
	return p.promoteType(ab, ba, depth+1)
}

// PromoteTypes folds PromoteType over ts. The promotion of nothing is
// types.Bottom.
func (p *Promoter) PromoteTypes(ts ...types.Type) types.Type {
	result := types.Bottom
	for _, t := range ts {
		result = p.PromoteType(result, t)
	}
	return result
}

// PromoteTypeJoin widens instead of converting: the union of a, b and the
// join of their non-absent parts. Used to infer an element type that keeps
// absent markers such as Nothing.
func (p *Promoter) PromoteTypeJoin(a, b types.Type) types.Type {
	c := p.lattice.Join(p.stripNullish(a), p.stripNullish(b))
	return p.lattice.Union(a, b, c)
}

func (p *Promoter) stripNullish(t types.Type) types.Type {
	if t == types.Any {
		return t
	}
	for _, marker := range p.nullish {
		if p.lattice.IsSubtype(marker, t) {
			t = p.lattice.Split(t, marker)
		}
	}
	return t
}

// PromoteTypeOf is PromoteTypes over the runtime types of values.
func (p *Promoter) PromoteTypeOf(values ...Value) types.Type {
	result := types.Bottom
	for _, v := range values {
		result = p.PromoteType(result, v.Type)
	}
	return result
}

// ====== Value Promotion ======

// Promote converts values to their common promotion type. It fails when
// no value changes type, since retrying the operation would not progress.
func (p *Promoter) Promote(values ...Value) ([]Value, error) {
	out := append([]Value(nil), values...)
	if len(values) <= 1 || sameTypes(values) {
		return out, nil
	}

	target := p.PromoteTypeOf(values...)
	changed := false
	for i, v := range values {
		cv, err := p.conv.Convert(target, v)
		if err != nil {
			return nil, err
		}
		out[i] = cv
		if !types.Equal(cv.Type, v.Type) {
			changed = true
		}
	}
	if !changed {
		names := make([]string, len(values))
		for i, v := range values {
			names[i] = v.Type.String()
		}
		return nil, errors.PromotionFailed(names)
	}
	return out, nil
}

func sameTypes(values []Value) bool {
	for _, v := range values[1:] {
		if !types.Equal(v.Type, values[0].Type) {
			return false
		}
	}
	return true
}

// depthContext carries the recursion depth through generic rules.
type depthContext struct {
	p     *Promoter
	depth int
}

func (c depthContext) Lattice() *types.Lattice { return c.p.lattice }

func (c depthContext) PromoteType(a, b types.Type) types.Type {
	return c.p.promoteType(a, b, c.depth)
}
