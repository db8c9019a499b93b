package types

import (
	"go.uber.org/zap"
)

// ====== Type Join ======

// Lattice computes joins and splits over descriptors using a subtype
// oracle. Join and Split are total and pure: they never fail, never panic
// on well-formed descriptors and touch no shared state other than the
// optional memo cache, whose presence does not change results.
//
// Join returns a common supertype that is minimal for the cases the
// algorithm handles; it is not a least upper bound for every input.
type Lattice struct {
	oracle     Oracle
	typeOfType *Template
	cache      *joinCache
	logger     *zap.Logger
}

// Option configures a Lattice.
type Option func(*Lattice)

// WithOracle replaces the subtype oracle.
func WithOracle(o Oracle) Option {
	return func(l *Lattice) { l.oracle = o }
}

// WithJoinCache memoizes pairwise joins in a cache holding up to size entries.
func WithJoinCache(size int64) Option {
	return func(l *Lattice) {
		if size <= 0 {
			return
		}
		c, err := newJoinCache(size)
		if err != nil {
			l.logger.Warn("join cache disabled", zap.Int64("size", size), zap.Error(err))
			return
		}
		l.cache = c
	}
}

// WithLogger sets the logger used for configuration diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Lattice) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLattice creates a lattice over u's built-in types. Options apply in
// order, so WithLogger should precede WithJoinCache.
func NewLattice(u *Universe, opts ...Option) *Lattice {
	l := &Lattice{
		oracle: StructuralOracle{},
		logger: zap.NewNop(),
	}
	if u != nil {
		l.typeOfType = u.TypeOfType()
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Close releases the memo cache, if any.
func (l *Lattice) Close() {
	if l.cache != nil {
		l.cache.close()
		l.cache = nil
	}
}

// IsSubtype reports a <: b according to the lattice's oracle.
func (l *Lattice) IsSubtype(a, b Type) bool {
	return l.oracle.IsSubtype(a, b)
}

// JoinAll folds Join left to right. The join of nothing is Bottom.
func (l *Lattice) JoinAll(ts ...Type) Type {
	if len(ts) == 0 {
		return Bottom
	}
	result := ts[0]
	for _, t := range ts[1:] {
		result = l.Join(result, t)
	}
	return result
}

// Join returns the closest common ancestor of a and b.
func (l *Lattice) Join(a, b Type) Type {
	if l.cache == nil {
		return l.join(a, b)
	}
	if r, ok := l.cache.get(a, b); ok {
		return r
	}
	r := l.join(a, b)
	l.cache.put(a, b, r)
	return r
}

func (l *Lattice) join(a, b Type) Type {
	if v, ok := a.(*TypeVar); ok {
		return l.Join(v.Upper, b)
	}
	if v, ok := b.(*TypeVar); ok {
		return l.Join(a, v.Upper)
	}
	if a == b || Equal(a, b) {
		return a
	}
	if !IsType(a) || !IsType(b) {
		return Any
	}
	if l.oracle.IsSubtype(a, b) {
		return b
	}
	if l.oracle.IsSubtype(b, a) {
		return a
	}

	if u, ok := a.(*UnionAll); ok {
		return NewUnionAll(u.Var, l.Join(u.Body, b))
	}
	if u, ok := b.(*UnionAll); ok {
		return NewUnionAll(u.Var, l.Join(a, u.Body))
	}
	if u, ok := a.(*Union); ok {
		return l.Join(l.Join(u.A, u.B), b)
	}
	if u, ok := b.(*Union); ok {
		return l.Join(a, l.Join(u.A, u.B))
	}

	at, aIsTuple := a.(*Tuple)
	bt, bIsTuple := b.(*Tuple)
	if aIsTuple || bIsTuple {
		if !aIsTuple || !bIsTuple {
			return Any
		}
		return l.joinTuples(at, bt)
	}
	return l.joinNominal(a, b)
}

// ====== Tuple Join ======

// tupleParam is one position of a tuple's parameter list; the last may be
// variadic.
type tupleParam struct {
	elem  Type
	va    bool
	count int
}

func tupleParams(t *Tuple) []tupleParam {
	ps := make([]tupleParam, 0, len(t.Elements)+1)
	for _, e := range t.Elements {
		ps = append(ps, tupleParam{elem: e})
	}
	if t.Tail != nil {
		ps = append(ps, tupleParam{elem: t.Tail.Elem, va: true, count: t.Tail.Count})
	}
	return ps
}

// fullVarargLen returns the number of slots a parameter list contributes
// and whether that number is fixed. An unresolved variadic tail counts as
// one slot.
func fullVarargLen(ps []tupleParam) (int, bool) {
	n := len(ps)
	if n == 0 {
		return 0, true
	}
	last := ps[n-1]
	if last.va {
		if last.count != Unbounded {
			return n - 1 + last.count, true
		}
		return n, false
	}
	return n, true
}

// tailJoin summarizes positions i.. of ps as a single type.
func (l *Lattice) tailJoin(ps []tupleParam, i int) Type {
	if i >= len(ps) {
		return ps[len(ps)-1].elem
	}
	t := Bottom
	for j := i; j < len(ps); j++ {
		t = l.Join(t, ps[j].elem)
	}
	return t
}

func (l *Lattice) joinTuples(a, b *Tuple) Type {
	ap, bp := tupleParams(a), tupleParams(b)
	lar, lbr := len(ap), len(bp)
	if lar == 0 {
		return NewTuple(nil, &Vararg{Elem: l.tailJoin(bp, 0), Count: Unbounded})
	}
	if lbr == 0 {
		return NewTuple(nil, &Vararg{Elem: l.tailJoin(ap, 0), Count: Unbounded})
	}

	laf, aFixed := fullVarargLen(ap)
	lbf, bFixed := fullVarargLen(bp)

	var c []tupleParam
	var n int
	switch {
	case laf < lbf:
		if ap[lar-1].va && !aFixed {
			c = make([]tupleParam, laf)
			c[laf-1] = tupleParam{elem: l.Join(ap[lar-1].elem, l.tailJoin(bp, laf-1)), va: true}
			n = laf - 1
		} else {
			c = make([]tupleParam, laf+1)
			c[laf] = tupleParam{elem: l.tailJoin(bp, laf), va: true}
			n = laf
		}
	case lbf < laf:
		if bp[lbr-1].va && !bFixed {
			c = make([]tupleParam, lbf)
			c[lbf-1] = tupleParam{elem: l.Join(bp[lbr-1].elem, l.tailJoin(ap, lbf-1)), va: true}
			n = lbf - 1
		} else {
			c = make([]tupleParam, lbf+1)
			c[lbf] = tupleParam{elem: l.tailJoin(ap, lbf), va: true}
			n = lbf
		}
	default:
		c = make([]tupleParam, laf)
		n = laf
	}

	for i := 0; i < n; i++ {
		ai, bi := ap[min(i, lar-1)], bp[min(i, lbr-1)]
		ci := l.Join(ai.elem, bi.elem)
		c[i] = tupleParam{elem: ci, va: i == len(c)-1 && (ai.va || bi.va)}
	}

	elems := make([]Type, 0, len(c))
	var tail *Vararg
	for i, p := range c {
		if p.va && i == len(c)-1 {
			tail = &Vararg{Elem: p.elem, Count: Unbounded}
			break
		}
		elems = append(elems, p.elem)
	}
	return NewTuple(elems, tail)
}

// ====== Nominal Join ======

// nominalName identifies the nominal family of an Atomic or Parametric.
func nominalName(t Type) interface{} {
	switch t := t.(type) {
	case *Atomic:
		return t
	case *Parametric:
		return t.Template
	}
	return nil
}

// ancestorNamed walks t's supertype chain to the member of family name.
func ancestorNamed(t Type, name interface{}) Type {
	for cur := t; cur != Any; cur = Supertype(cur) {
		n := nominalName(cur)
		if n == nil {
			return nil
		}
		if n == name {
			return cur
		}
	}
	return nil
}

func (l *Lattice) joinNominal(a, b Type) Type {
	for b != Any {
		name := nominalName(b)
		if name == nil {
			return Any
		}
		if anc := ancestorNamed(a, name); anc != nil {
			return l.joinSameName(anc, b)
		}
		b = Supertype(b)
	}
	return Any
}

// joinSameName joins two members of one nominal family.
func (l *Lattice) joinSameName(a, b Type) Type {
	pa, ok := a.(*Parametric)
	if !ok {
		return a
	}
	pb := b.(*Parametric)
	tmpl := pa.Template

	if tmpl == l.typeOfType && len(pa.Params) == 1 {
		if isUnconstrainedVar(pa.Params[0]) || isUnconstrainedVar(pb.Params[0]) {
			return tmpl.Wrapper()
		}
	}

	n := len(tmpl.Vars)
	if n == 0 {
		return pa
	}
	params := make([]Type, n)
	var vars []*TypeVar
	for i := 0; i < n; i++ {
		ai, bi := pa.Params[i], pb.Params[i]
		if ai == bi || l.sameParam(ai, bi) {
			params[i] = ai
			continue
		}
		params[i] = tmpl.Vars[i]
		vars = append(vars, tmpl.Vars[i])
	}
	var result Type = &Parametric{Template: tmpl, Params: params}
	for i := len(vars) - 1; i >= 0; i-- {
		result = &UnionAll{Var: vars[i], Body: result}
	}
	return result
}

// sameParam reports whether two parameters are interchangeable: equal, or
// proper types that are subtypes of each other.
func (l *Lattice) sameParam(a, b Type) bool {
	if Equal(a, b) {
		return true
	}
	if !isProperParam(a) || !isProperParam(b) {
		return false
	}
	return l.oracle.IsSubtype(a, b) && l.oracle.IsSubtype(b, a)
}

func isProperParam(t Type) bool {
	switch t.(type) {
	case *Value, *TypeVar:
		return false
	}
	return true
}

func isUnconstrainedVar(t Type) bool {
	v, ok := t.(*TypeVar)
	return ok && v.Unconstrained()
}
