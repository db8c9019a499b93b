package types

import "sort"

// ====== Type Equivalence ======

// Equal reports structural equality. Nominal types compare by identity,
// unions as member sets, UnionAll up to renaming of the bound variable and
// free type variables by identity.
func Equal(a, b Type) bool {
	return equal(a, b, nil)
}

// varPair binds a variable of the left operand to one of the right while
// comparing under matching quantifiers.
type varPair struct {
	left, right *TypeVar
	next        *varPair
}

func (p *varPair) lookup(left, right *TypeVar) (matched, bound bool) {
	for ; p != nil; p = p.next {
		if p.left == left || p.right == right {
			return p.left == left && p.right == right, true
		}
	}
	return false, false
}

func equal(a, b Type, env *varPair) bool {
	if a == b {
		if v, ok := a.(*TypeVar); ok {
			matched, bound := env.lookup(v, v)
			return matched || !bound
		}
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.Kind() != b.Kind() {
		return false
	}

	switch a := a.(type) {
	case *Atomic:
		return false // identity checked above

	case *Parametric:
		bp := b.(*Parametric)
		if a.Template != bp.Template || len(a.Params) != len(bp.Params) {
			return false
		}
		for i := range a.Params {
			if !equal(a.Params[i], bp.Params[i], env) {
				return false
			}
		}
		return true

	case *Tuple:
		bt := b.(*Tuple)
		if len(a.Elements) != len(bt.Elements) || (a.Tail == nil) != (bt.Tail == nil) {
			return false
		}
		for i := range a.Elements {
			if !equal(a.Elements[i], bt.Elements[i], env) {
				return false
			}
		}
		if a.Tail != nil {
			return a.Tail.Count == bt.Tail.Count && equal(a.Tail.Elem, bt.Tail.Elem, env)
		}
		return true

	case *Union:
		am, bm := UnionMembers(a), UnionMembers(b)
		return coversAll(am, bm, env) && coversAll(bm, am, env)

	case *UnionAll:
		bu := b.(*UnionAll)
		if !equal(a.Var.Lower, bu.Var.Lower, env) || !equal(a.Var.Upper, bu.Var.Upper, env) {
			return false
		}
		return equal(a.Body, bu.Body, &varPair{left: a.Var, right: bu.Var, next: env})

	case *TypeVar:
		matched, _ := env.lookup(a, b.(*TypeVar))
		return matched

	case *Value:
		return a.V == b.(*Value).V
	}
	return false
}

func coversAll(xs, ys []Type, env *varPair) bool {
	for _, x := range xs {
		found := false
		for _, y := range ys {
			if equal(x, y, env) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func containsEqual(ts []Type, t Type) bool {
	for _, x := range ts {
		if Equal(x, t) {
			return true
		}
	}
	return false
}

// sortTypes orders union members so that equal unions print identically.
func sortTypes(ts []Type) {
	sort.SliceStable(ts, func(i, j int) bool {
		return ts[i].String() < ts[j].String()
	})
}
