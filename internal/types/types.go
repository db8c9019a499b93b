// Type descriptor model for the lattice engine.
// Descriptors are immutable once built and are compared structurally.

package types

import (
	"fmt"
	"strings"

	"github.com/orizon-lang/lattice/internal/errors"
)

// ====== Core Type System ======

// Kind identifies the variant of a Type.
type Kind int

const (
	KindBottom Kind = iota
	KindAny
	KindAtomic
	KindParametric
	KindTuple
	KindUnion
	KindUnionAll
	KindTypeVar
	KindValue
)

// String returns the string representation of a Kind
func (k Kind) String() string {
	switch k {
	case KindBottom:
		return "bottom"
	case KindAny:
		return "any"
	case KindAtomic:
		return "atomic"
	case KindParametric:
		return "parametric"
	case KindTuple:
		return "tuple"
	case KindUnion:
		return "union"
	case KindUnionAll:
		return "unionall"
	case KindTypeVar:
		return "typevar"
	case KindValue:
		return "value"
	default:
		return "invalid"
	}
}

// Type is a type descriptor. The set of implementations is closed.
type Type interface {
	Kind() Kind
	String() string
	sealed()
}

// Unbounded marks a Vararg whose repeat count is not fixed.
const Unbounded = -1

type bottomType struct{}
type anyType struct{}

var (
	// Bottom is the empty type, a subtype of every type.
	Bottom Type = &bottomType{}
	// Any is the top of the lattice.
	Any Type = &anyType{}
)

func (*bottomType) Kind() Kind     { return KindBottom }
func (*bottomType) String() string { return "Union{}" }
func (*bottomType) sealed()        {}

func (*anyType) Kind() Kind     { return KindAny }
func (*anyType) String() string { return "Any" }
func (*anyType) sealed()        {}

// ====== Nominal Types ======

// Atomic is a nominal type without parameters.
type Atomic struct {
	Name     string
	Super    Type // nil means Any
	Size     int  // byte size of a fixed-layout value, 0 when not fixed
	Abstract bool
}

func (*Atomic) Kind() Kind       { return KindAtomic }
func (a *Atomic) String() string { return a.Name }
func (*Atomic) sealed()          {}

// Template is a generic type name: its declared variables and a supertype
// written in terms of those variables.
type Template struct {
	Name     string
	Vars     []*TypeVar
	Super    Type // nil means Any
	Abstract bool

	wrapper Type
}

// Parametric is a Template instantiated with concrete parameters.
type Parametric struct {
	Template *Template
	Params   []Type
}

func (*Parametric) Kind() Kind { return KindParametric }
func (*Parametric) sealed()    {}

func (p *Parametric) String() string {
	if len(p.Params) == 0 {
		return p.Template.Name
	}
	parts := make([]string, len(p.Params))
	for i, param := range p.Params {
		parts[i] = param.String()
	}
	return fmt.Sprintf("%s{%s}", p.Template.Name, strings.Join(parts, ", "))
}

// ====== Structural Types ======

// Vararg is a tuple tail of Count repetitions of Elem, or any number when
// Count is Unbounded.
type Vararg struct {
	Elem  Type
	Count int
}

func (v *Vararg) String() string {
	if v.Count == Unbounded {
		return fmt.Sprintf("Vararg{%s}", v.Elem)
	}
	return fmt.Sprintf("Vararg{%s, %d}", v.Elem, v.Count)
}

// Tuple is a fixed-size tuple, optionally followed by a variadic tail.
type Tuple struct {
	Elements []Type
	Tail     *Vararg
}

func (*Tuple) Kind() Kind { return KindTuple }
func (*Tuple) sealed()    {}

func (t *Tuple) String() string {
	parts := make([]string, 0, len(t.Elements)+1)
	for _, e := range t.Elements {
		parts = append(parts, e.String())
	}
	if t.Tail != nil {
		parts = append(parts, t.Tail.String())
	}
	return fmt.Sprintf("Tuple{%s}", strings.Join(parts, ", "))
}

// Union has exactly two alternatives; wider unions nest.
type Union struct {
	A, B Type
}

func (*Union) Kind() Kind { return KindUnion }
func (*Union) sealed()    {}

func (u *Union) String() string {
	members := UnionMembers(u)
	parts := make([]string, len(members))
	for i, m := range members {
		parts[i] = m.String()
	}
	return fmt.Sprintf("Union{%s}", strings.Join(parts, ", "))
}

// ====== Quantified Types ======

// TypeVar is a bounded placeholder; Lower <: T <: Upper.
type TypeVar struct {
	Name  string
	Lower Type
	Upper Type
}

func (*TypeVar) Kind() Kind       { return KindTypeVar }
func (v *TypeVar) String() string { return v.Name }
func (*TypeVar) sealed()          {}

// declString renders the variable with its bounds, as written after "where".
func (v *TypeVar) declString() string {
	s := v.Name
	if v.Lower != Bottom {
		s += ">:" + v.Lower.String()
	}
	if v.Upper != Any {
		s += "<:" + v.Upper.String()
	}
	return s
}

// Unconstrained reports whether v has the default bounds.
func (v *TypeVar) Unconstrained() bool {
	return v.Lower == Bottom && v.Upper == Any
}

// UnionAll quantifies Body over Var.
type UnionAll struct {
	Var  *TypeVar
	Body Type
}

func (*UnionAll) Kind() Kind { return KindUnionAll }
func (*UnionAll) sealed()    {}

func (u *UnionAll) String() string {
	var vars []string
	var body Type = u
	for {
		ua, ok := body.(*UnionAll)
		if !ok {
			break
		}
		vars = append(vars, ua.Var.declString())
		body = ua.Body
	}
	if len(vars) == 1 {
		return fmt.Sprintf("%s where %s", body, vars[0])
	}
	return fmt.Sprintf("%s where {%s}", body, strings.Join(vars, ", "))
}

// Value is a constant appearing as a type parameter, such as the N of Array{T, N}.
type Value struct {
	V interface{}
}

func (*Value) Kind() Kind       { return KindValue }
func (v *Value) String() string { return fmt.Sprintf("%v", v.V) }
func (*Value) sealed()          {}

// ====== Type Construction Functions ======

// NewTypeVar creates a type variable. Nil bounds default to Bottom and Any.
func NewTypeVar(name string, lower, upper Type) *TypeVar {
	if lower == nil {
		lower = Bottom
	}
	if upper == nil {
		upper = Any
	}
	return &TypeVar{Name: name, Lower: lower, Upper: upper}
}

// NewTemplate creates a generic type name over vars.
func NewTemplate(name string, vars []*TypeVar, super Type, abstract bool) *Template {
	t := &Template{Name: name, Vars: vars, Super: super, Abstract: abstract}
	params := make([]Type, len(vars))
	for i, v := range vars {
		params[i] = v
	}
	var body Type = &Parametric{Template: t, Params: params}
	for i := len(vars) - 1; i >= 0; i-- {
		body = &UnionAll{Var: vars[i], Body: body}
	}
	t.wrapper = body
	return t
}

// Wrapper returns the template quantified over all its variables.
func (t *Template) Wrapper() Type { return t.wrapper }

// NewParametric instantiates tmpl. The parameter count must match the arity.
func NewParametric(tmpl *Template, params ...Type) (*Parametric, error) {
	if len(params) != len(tmpl.Vars) {
		return nil, errors.InvalidArgument("%s expects %d parameters, got %d", tmpl.Name, len(tmpl.Vars), len(params))
	}
	return &Parametric{Template: tmpl, Params: append([]Type(nil), params...)}, nil
}

// MustParametric is NewParametric for statically known arities.
func MustParametric(tmpl *Template, params ...Type) *Parametric {
	p, err := NewParametric(tmpl, params...)
	if err != nil {
		panic(err)
	}
	return p
}

// NewTuple builds a tuple. A tail with a known count is expanded into
// fixed elements.
func NewTuple(elems []Type, tail *Vararg) *Tuple {
	out := append([]Type(nil), elems...)
	if tail != nil && tail.Count != Unbounded {
		for i := 0; i < tail.Count; i++ {
			out = append(out, tail.Elem)
		}
		tail = nil
	}
	return &Tuple{Elements: out, Tail: tail}
}

// NewUnion builds the union of ts: members are flattened, Bottom is dropped,
// duplicates are removed and the rest ordered canonically.
func NewUnion(ts ...Type) Type {
	var members []Type
	for _, t := range ts {
		for _, m := range UnionMembers(t) {
			if m == Bottom || containsEqual(members, m) {
				continue
			}
			members = append(members, m)
		}
	}
	if len(members) == 0 {
		return Bottom
	}
	sortTypes(members)
	result := members[len(members)-1]
	for i := len(members) - 2; i >= 0; i-- {
		result = &Union{A: members[i], B: result}
	}
	return result
}

// NewUnionAll quantifies body over v; when v does not occur in body the
// body is returned unchanged.
func NewUnionAll(v *TypeVar, body Type) Type {
	if !Occurs(v, body) {
		return body
	}
	return &UnionAll{Var: v, Body: body}
}

// ====== Type Properties ======

// UnionMembers flattens nested unions into their alternatives.
func UnionMembers(t Type) []Type {
	u, ok := t.(*Union)
	if !ok {
		return []Type{t}
	}
	return append(UnionMembers(u.A), UnionMembers(u.B)...)
}

// IsType reports whether t is a proper type rather than a constant.
func IsType(t Type) bool {
	_, isValue := t.(*Value)
	return !isValue
}

// IsBits reports whether t has a fixed in-memory layout.
func IsBits(t Type) bool {
	a, ok := t.(*Atomic)
	return ok && !a.Abstract && a.Size > 0
}

// SizeOf returns the byte size of a fixed-layout type, or 0.
func SizeOf(t Type) int {
	if !IsBits(t) {
		return 0
	}
	return t.(*Atomic).Size
}

// Supertype returns the declared parent of a nominal type. Parametric
// supertypes have the template variables substituted.
func Supertype(t Type) Type {
	switch t := t.(type) {
	case *Atomic:
		if t.Super == nil {
			return Any
		}
		return t.Super
	case *Parametric:
		if t.Template.Super == nil {
			return Any
		}
		subs := make(map[*TypeVar]Type, len(t.Params))
		for i, v := range t.Template.Vars {
			subs[v] = t.Params[i]
		}
		return Substitute(t.Template.Super, subs)
	case *bottomType:
		return Bottom
	default:
		return Any
	}
}

// Occurs reports whether v appears free in t.
func Occurs(v *TypeVar, t Type) bool {
	switch t := t.(type) {
	case *TypeVar:
		return t == v || Occurs(v, t.Lower) || Occurs(v, t.Upper)
	case *Parametric:
		for _, p := range t.Params {
			if Occurs(v, p) {
				return true
			}
		}
	case *Tuple:
		for _, e := range t.Elements {
			if Occurs(v, e) {
				return true
			}
		}
		return t.Tail != nil && Occurs(v, t.Tail.Elem)
	case *Union:
		return Occurs(v, t.A) || Occurs(v, t.B)
	case *UnionAll:
		if t.Var == v {
			return false
		}
		return Occurs(v, t.Var.Lower) || Occurs(v, t.Var.Upper) || Occurs(v, t.Body)
	}
	return false
}

// ====== Type Substitution ======

// Substitute replaces free type variables in t.
func Substitute(t Type, substitutions map[*TypeVar]Type) Type {
	if t == nil || len(substitutions) == 0 {
		return t
	}

	switch t := t.(type) {
	case *TypeVar:
		if replacement, exists := substitutions[t]; exists {
			return replacement
		}
		return t

	case *Parametric:
		var newParams []Type
		changed := false
		for _, param := range t.Params {
			newParam := Substitute(param, substitutions)
			newParams = append(newParams, newParam)
			if newParam != param {
				changed = true
			}
		}
		if changed {
			return &Parametric{Template: t.Template, Params: newParams}
		}
		return t

	case *Tuple:
		var newElems []Type
		changed := false
		for _, e := range t.Elements {
			ne := Substitute(e, substitutions)
			newElems = append(newElems, ne)
			if ne != e {
				changed = true
			}
		}
		tail := t.Tail
		if tail != nil {
			if ne := Substitute(tail.Elem, substitutions); ne != tail.Elem {
				tail = &Vararg{Elem: ne, Count: tail.Count}
				changed = true
			}
		}
		if changed {
			return &Tuple{Elements: newElems, Tail: tail}
		}
		return t

	case *Union:
		a, b := Substitute(t.A, substitutions), Substitute(t.B, substitutions)
		if a != t.A || b != t.B {
			return NewUnion(a, b)
		}
		return t

	case *UnionAll:
		inner := substitutions
		if _, shadowed := substitutions[t.Var]; shadowed {
			inner = make(map[*TypeVar]Type, len(substitutions))
			for k, v := range substitutions {
				if k != t.Var {
					inner[k] = v
				}
			}
		}
		body := Substitute(t.Body, inner)
		if body != t.Body {
			return &UnionAll{Var: t.Var, Body: body}
		}
		return t

	default:
		return t
	}
}
