package types

import (
	"sort"

	"github.com/orizon-lang/lattice/internal/errors"
)

// ====== Type Registry ======

// Universe maintains the named types known to a lattice: atomic types,
// templates and aliases. It is not synchronized; finish defining types
// before sharing it between goroutines.
type Universe struct {
	types      map[string]Type
	templates  map[string]*Template
	aliases    map[string]string
	typeOfType *Template
	nullish    []Type
}

// NewUniverse creates a universe populated with the built-in lattice.
func NewUniverse() *Universe {
	u := &Universe{
		types:     make(map[string]Type),
		templates: make(map[string]*Template),
		aliases:   make(map[string]string),
	}
	u.defineBuiltins()
	return u
}

func (u *Universe) defineBuiltins() {
	abstract := func(name string, super Type) *Atomic {
		a := &Atomic{Name: name, Super: super, Abstract: true}
		u.Define(a)
		return a
	}
	concrete := func(name string, super Type, size int) *Atomic {
		a := &Atomic{Name: name, Super: super, Size: size}
		u.Define(a)
		return a
	}

	number := abstract("Number", Any)
	realT := abstract("Real", number)
	integer := abstract("Integer", realT)
	signed := abstract("Signed", integer)
	unsigned := abstract("Unsigned", integer)
	float := abstract("AbstractFloat", realT)

	concrete("Bool", integer, 1)
	concrete("Int8", signed, 1)
	concrete("Int16", signed, 2)
	concrete("Int32", signed, 4)
	concrete("Int64", signed, 8)
	concrete("UInt8", unsigned, 1)
	concrete("UInt16", unsigned, 2)
	concrete("UInt32", unsigned, 4)
	concrete("UInt64", unsigned, 8)
	concrete("Float16", float, 2)
	concrete("Float32", float, 4)
	concrete("Float64", float, 8)

	concrete("String", abstract("AbstractString", Any), 0)
	concrete("Char", abstract("AbstractChar", Any), 4)
	nothing := concrete("Nothing", Any, 0)
	missing := concrete("Missing", Any, 0)
	u.nullish = []Type{nothing, missing}

	u.aliases["Int"] = "Int64"
	u.aliases["UInt"] = "UInt64"
	u.aliases["Float"] = "Float64"
	u.aliases["Byte"] = "UInt8"

	tv := func(name string) *TypeVar { return NewTypeVar(name, nil, nil) }

	u.typeOfType = u.DefineTemplate(NewTemplate("Type", []*TypeVar{tv("T")}, Any, true))
	u.DefineTemplate(NewTemplate("Ref", []*TypeVar{tv("T")}, Any, false))
	u.DefineTemplate(NewTemplate("Pair", []*TypeVar{tv("A"), tv("B")}, Any, false))

	ri := NewTypeVar("T", nil, integer)
	u.DefineTemplate(NewTemplate("Rational", []*TypeVar{ri}, realT, false))
	ci := NewTypeVar("T", nil, realT)
	u.DefineTemplate(NewTemplate("Complex", []*TypeVar{ci}, number, false))

	at, an := tv("T"), tv("N")
	abstractArray := u.DefineTemplate(NewTemplate("AbstractArray", []*TypeVar{at, an}, Any, true))
	dt, dn := tv("T"), tv("N")
	denseArray := u.DefineTemplate(NewTemplate("DenseArray", []*TypeVar{dt, dn},
		MustParametric(abstractArray, dt, dn), true))
	rt, rn := tv("T"), tv("N")
	array := u.DefineTemplate(NewTemplate("Array", []*TypeVar{rt, rn},
		MustParametric(denseArray, rt, rn), false))
	bn := tv("N")
	bitArray := u.DefineTemplate(NewTemplate("BitArray", []*TypeVar{bn},
		MustParametric(abstractArray, u.types["Bool"], bn), false))

	one, two := &Value{V: int64(1)}, &Value{V: int64(2)}
	vt, mt := tv("T"), tv("T")
	u.DefineType("Vector", &UnionAll{Var: vt, Body: MustParametric(array, vt, one)})
	u.DefineType("Matrix", &UnionAll{Var: mt, Body: MustParametric(array, mt, two)})
	u.DefineType("BitVector", MustParametric(bitArray, one))
}

// Define registers an atomic type under its name.
func (u *Universe) Define(a *Atomic) {
	u.types[a.Name] = a
}

// DefineTemplate registers a generic type name and returns it.
func (u *Universe) DefineTemplate(t *Template) *Template {
	u.templates[t.Name] = t
	u.types[t.Name] = t.Wrapper()
	return t
}

// DefineType registers an arbitrary type under name, typically a partial
// application such as Vector = Array{T, 1} where T.
func (u *Universe) DefineType(name string, t Type) {
	u.types[name] = t
}

// Alias makes name resolve to the type registered as target.
func (u *Universe) Alias(name, target string) error {
	if _, ok := u.types[target]; !ok {
		return errors.InvalidArgument("alias %s: unknown type %s", name, target)
	}
	u.aliases[name] = target
	return nil
}

// Lookup looks up a type by name, following aliases. Templates resolve to
// their wrapper.
func (u *Universe) Lookup(name string) (Type, bool) {
	if target, ok := u.aliases[name]; ok {
		name = target
	}
	if name == "Any" {
		return Any, true
	}
	t, ok := u.types[name]
	return t, ok
}

// MustLookup is Lookup for names known to exist.
func (u *Universe) MustLookup(name string) Type {
	t, ok := u.Lookup(name)
	if !ok {
		panic("types: unknown type " + name)
	}
	return t
}

// LookupTemplate returns the generic type name registered as name.
func (u *Universe) LookupTemplate(name string) (*Template, bool) {
	if target, ok := u.aliases[name]; ok {
		name = target
	}
	t, ok := u.templates[name]
	return t, ok
}

// TypeOfType returns the reflective Type{T} template.
func (u *Universe) TypeOfType() *Template { return u.typeOfType }

// Nullish returns the absent-value marker types (Nothing and Missing).
func (u *Universe) Nullish() []Type { return append([]Type(nil), u.nullish...) }

// Names returns all registered type names in sorted order.
func (u *Universe) Names() []string {
	names := make([]string, 0, len(u.types))
	for name := range u.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
