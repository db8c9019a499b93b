package types

// ====== Subtyping Relations ======

// Oracle answers subtype queries. Implementations must be total and
// reflexive, and agree with nominal supertype chains.
type Oracle interface {
	IsSubtype(a, b Type) bool
}

// OracleFunc adapts a function to the Oracle interface.
type OracleFunc func(a, b Type) bool

// IsSubtype calls f(a, b).
func (f OracleFunc) IsSubtype(a, b Type) bool { return f(a, b) }

// StructuralOracle is a reference subtype relation over descriptors:
// nominal chains with invariant parameters, covariant tuples with variadic
// tails, unions, bounded variables and existential UnionAll on the right.
// It does not solve constraints between several occurrences of a variable
// beyond requiring invariant occurrences to agree.
type StructuralOracle struct{}

// IsSubtype reports whether a <: b.
func (StructuralOracle) IsSubtype(a, b Type) bool {
	e := &subEnv{vars: make(map[*TypeVar]*varState)}
	return e.sub(a, b)
}

// varState tracks an existential variable while its UnionAll is open.
type varState struct {
	lowers []Type // covariant occurrences seen so far
	exact  Type   // set by an invariant occurrence
}

type subEnv struct {
	vars map[*TypeVar]*varState
}

func (e *subEnv) snapshot() map[*TypeVar]varState {
	s := make(map[*TypeVar]varState, len(e.vars))
	for v, st := range e.vars {
		s[v] = varState{lowers: append([]Type(nil), st.lowers...), exact: st.exact}
	}
	return s
}

func (e *subEnv) restore(s map[*TypeVar]varState) {
	for v := range e.vars {
		if st, ok := s[v]; ok {
			*e.vars[v] = varState{lowers: st.lowers, exact: st.exact}
		}
	}
}

// try runs f and rolls back any existential bindings it made on failure.
func (e *subEnv) try(f func() bool) bool {
	s := e.snapshot()
	if f() {
		return true
	}
	e.restore(s)
	return false
}

func (e *subEnv) sub(a, b Type) bool {
	if a == b {
		return true
	}
	if a == Bottom || b == Any {
		return true
	}

	// Left union: every alternative must fit.
	if u, ok := a.(*Union); ok {
		return e.sub(u.A, b) && e.sub(u.B, b)
	}

	// Left UnionAll: the variable is rigid. Rename it so it cannot collide
	// with an existential of the same identity on the right.
	if u, ok := a.(*UnionAll); ok {
		fresh := &TypeVar{Name: u.Var.Name, Lower: u.Var.Lower, Upper: u.Var.Upper}
		return e.sub(Substitute(u.Body, map[*TypeVar]Type{u.Var: fresh}), b)
	}

	// Right UnionAll: the variable is existential for the duration.
	if u, ok := b.(*UnionAll); ok {
		prev, had := e.vars[u.Var]
		st := &varState{}
		e.vars[u.Var] = st
		ok := e.sub(a, u.Body) && e.closeVar(u.Var, st)
		if had {
			e.vars[u.Var] = prev
		} else {
			delete(e.vars, u.Var)
		}
		return ok
	}

	if v, ok := a.(*TypeVar); ok {
		if st, ok := e.vars[v]; ok {
			if st.exact != nil {
				return e.sub(st.exact, b)
			}
			return e.sub(v.Lower, b)
		}
		if bu, ok := b.(*Union); ok {
			for _, m := range UnionMembers(bu) {
				if m == v {
					return true
				}
			}
		}
		if bv, ok := b.(*TypeVar); ok && bv == v {
			return true
		}
		return e.sub(v.Upper, b)
	}

	// Right union: some alternative must fit.
	if u, ok := b.(*Union); ok {
		for _, m := range UnionMembers(u) {
			m := m
			if e.try(func() bool { return e.sub(a, m) }) {
				return true
			}
		}
		return false
	}

	if v, ok := b.(*TypeVar); ok {
		if st, ok := e.vars[v]; ok {
			if st.exact != nil {
				return e.sub(a, st.exact)
			}
			if !e.sub(a, v.Upper) {
				return false
			}
			st.lowers = append(st.lowers, a)
			return true
		}
		return e.sub(a, v.Lower)
	}

	switch a := a.(type) {
	case *Value:
		bv, ok := b.(*Value)
		return ok && a.V == bv.V

	case *Tuple:
		bt, ok := b.(*Tuple)
		return ok && e.subTuple(a, bt)

	case *Atomic, *Parametric:
		return e.subNominal(a, b)
	}
	return false
}

// closeVar checks the collected occurrences of an existential variable
// against each other and against its bounds.
func (e *subEnv) closeVar(v *TypeVar, st *varState) bool {
	if st.exact == nil {
		return true
	}
	for _, lo := range st.lowers {
		if !e.sub(lo, st.exact) {
			return false
		}
	}
	return true
}

func (e *subEnv) subNominal(a, b Type) bool {
	var want interface{}
	switch b := b.(type) {
	case *Atomic:
		want = b
	case *Parametric:
		want = b.Template
	default:
		return false
	}

	for cur := a; cur != Any; cur = Supertype(cur) {
		switch c := cur.(type) {
		case *Atomic:
			if want == c {
				return true
			}
		case *Parametric:
			if want == c.Template {
				bp := b.(*Parametric)
				for i := range c.Params {
					if !e.sameParam(c.Params[i], bp.Params[i]) {
						return false
					}
				}
				return true
			}
		default:
			return false
		}
	}
	return false
}

// sameParam checks an invariant parameter position.
func (e *subEnv) sameParam(x, y Type) bool {
	if x == y {
		return true
	}
	if v, ok := y.(*TypeVar); ok {
		if st, ok := e.vars[v]; ok {
			return e.bindExact(v, st, x)
		}
	}
	if v, ok := x.(*TypeVar); ok {
		if st, ok := e.vars[v]; ok {
			return e.bindExact(v, st, y)
		}
	}
	xv, xIsValue := x.(*Value)
	yv, yIsValue := y.(*Value)
	if xIsValue || yIsValue {
		return xIsValue && yIsValue && xv.V == yv.V
	}
	return e.sub(x, y) && e.sub(y, x)
}

func (e *subEnv) bindExact(v *TypeVar, st *varState, t Type) bool {
	if st.exact != nil {
		return e.sameParam(st.exact, t)
	}
	if IsType(t) && (!e.sub(v.Lower, t) || !e.sub(t, v.Upper)) {
		return false
	}
	st.exact = t
	return true
}

func (e *subEnv) subTuple(a, b *Tuple) bool {
	a, b = expandTail(a), expandTail(b)
	an, bn := len(a.Elements), len(b.Elements)

	slot := func(i int) Type {
		if i < bn {
			return b.Elements[i]
		}
		return b.Tail.Elem
	}

	if a.Tail == nil {
		if b.Tail == nil && an != bn {
			return false
		}
		if an < bn {
			return false
		}
		for i, ai := range a.Elements {
			if !e.sub(ai, slot(i)) {
				return false
			}
		}
		return true
	}

	if b.Tail == nil || an < bn {
		return false
	}
	for i, ai := range a.Elements {
		if !e.sub(ai, slot(i)) {
			return false
		}
	}
	return e.sub(a.Tail.Elem, b.Tail.Elem)
}

// expandTail rewrites a counted tail into fixed elements.
func expandTail(t *Tuple) *Tuple {
	if t.Tail == nil || t.Tail.Count == Unbounded {
		return t
	}
	return NewTuple(t.Elements, t.Tail)
}
