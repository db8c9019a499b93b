package types

import (
	"strconv"
	"strings"
	"text/scanner"

	"github.com/orizon-lang/lattice/internal/errors"
)

// ====== Type Expressions ======
//
// Parse reads the notation produced by Type.String:
//
//	Int64
//	Array{Float64, 2}
//	Tuple{Int64, Vararg{Int64}}
//	Union{Int64, Nothing}
//	Vector{T} where T<:Real
//	Pair{A, B} where {A, B>:Int64}
//
// Names given fewer parameters than they declare keep the remaining
// variables quantified, so Array{Int64} means Array{Int64, N} where N.

type exprNode struct {
	pos     scanner.Position
	name    string
	value   *int64
	braces  bool
	args    []*exprNode
	clauses [][]*varDecl
}

type varDecl struct {
	name   string
	bounds []bound
}

type bound struct {
	upper bool
	expr  *exprNode
}

type parser struct {
	src string
	s   scanner.Scanner
	tok rune
	err error
}

// Parse parses a type expression against the names known to u.
func Parse(u *Universe, src string) (Type, error) {
	p := &parser{src: src}
	p.s.Init(strings.NewReader(src))
	p.s.Mode = scanner.ScanIdents | scanner.ScanInts
	p.s.Error = func(s *scanner.Scanner, msg string) {
		if p.err == nil {
			p.err = errors.InvalidArgument("parse %q at %s: %s", src, s.Pos(), msg)
		}
	}
	p.next()

	n := p.parseExpr()
	if p.err == nil && p.tok != scanner.EOF {
		p.fail("unexpected %s", scanner.TokenString(p.tok))
	}
	if p.err != nil {
		return nil, p.err
	}

	r := &resolver{u: u, src: src}
	t := r.resolve(n, nil)
	if r.err != nil {
		return nil, r.err
	}
	return t, nil
}

// MustParse is Parse for expressions known to be valid.
func MustParse(u *Universe, src string) Type {
	t, err := Parse(u, src)
	if err != nil {
		panic(err)
	}
	return t
}

func (p *parser) next() { p.tok = p.s.Scan() }

func (p *parser) fail(format string, args ...interface{}) {
	if p.err == nil {
		args = append([]interface{}{p.src, p.s.Position}, args...)
		p.err = errors.InvalidArgument("parse %q at %s: "+format, args...)
	}
}

func (p *parser) expect(tok rune) {
	if p.tok != tok {
		p.fail("expected %s, found %s", scanner.TokenString(tok), scanner.TokenString(p.tok))
		return
	}
	p.next()
}

func (p *parser) parseExpr() *exprNode {
	n := p.parsePrimary()
	for p.err == nil && p.tok == scanner.Ident && p.s.TokenText() == "where" {
		p.next()
		var clause []*varDecl
		if p.tok == '{' {
			p.next()
			for p.err == nil {
				clause = append(clause, p.parseVarDecl())
				if p.tok != ',' {
					break
				}
				p.next()
			}
			p.expect('}')
		} else {
			clause = append(clause, p.parseVarDecl())
		}
		n.clauses = append(n.clauses, clause)
	}
	return n
}

func (p *parser) parsePrimary() *exprNode {
	n := &exprNode{pos: p.s.Position}
	switch p.tok {
	case scanner.Int:
		v, err := strconv.ParseInt(p.s.TokenText(), 10, 64)
		if err != nil {
			p.fail("bad integer %s", p.s.TokenText())
			return n
		}
		n.value = &v
		p.next()
		return n
	case scanner.Ident:
		n.name = p.s.TokenText()
		p.next()
	default:
		p.fail("expected type, found %s", scanner.TokenString(p.tok))
		return n
	}

	if p.tok == '{' {
		n.braces = true
		p.next()
		for p.err == nil && p.tok != '}' {
			n.args = append(n.args, p.parseExpr())
			if p.tok != ',' {
				break
			}
			p.next()
		}
		p.expect('}')
	}
	return n
}

func (p *parser) parseVarDecl() *varDecl {
	d := &varDecl{}
	if p.tok != scanner.Ident {
		p.fail("expected type variable, found %s", scanner.TokenString(p.tok))
		return d
	}
	d.name = p.s.TokenText()
	p.next()
	for p.err == nil && (p.tok == '<' || p.tok == '>') {
		upper := p.tok == '<'
		p.next()
		p.expect(':')
		d.bounds = append(d.bounds, bound{upper: upper, expr: p.parsePrimary()})
	}
	return d
}

// ====== Resolution ======

type scope struct {
	name   string
	v      *TypeVar
	parent *scope
}

func (s *scope) lookup(name string) *TypeVar {
	for ; s != nil; s = s.parent {
		if s.name == name {
			return s.v
		}
	}
	return nil
}

type resolver struct {
	u   *Universe
	src string
	err error
}

func (r *resolver) fail(n *exprNode, format string, args ...interface{}) Type {
	if r.err == nil {
		args = append([]interface{}{r.src, n.pos}, args...)
		r.err = errors.InvalidArgument("type %q at %s: "+format, args...)
	}
	return Any
}

func (r *resolver) resolve(n *exprNode, sc *scope) Type {
	if len(n.clauses) == 0 {
		return r.resolvePrimary(n, sc)
	}

	// Later clauses bind outside earlier ones; within braces the first
	// variable is outermost.
	var quantified [][]*TypeVar
	for i := len(n.clauses) - 1; i >= 0; i-- {
		vars := make([]*TypeVar, len(n.clauses[i]))
		for j, d := range n.clauses[i] {
			v := NewTypeVar(d.name, nil, nil)
			for _, b := range d.bounds {
				bt := r.resolvePrimary(b.expr, sc)
				if b.upper {
					v.Upper = bt
				} else {
					v.Lower = bt
				}
			}
			vars[j] = v
			sc = &scope{name: d.name, v: v, parent: sc}
		}
		quantified = append([][]*TypeVar{vars}, quantified...)
	}

	body := r.resolvePrimary(n, sc)
	for _, vars := range quantified {
		for j := len(vars) - 1; j >= 0; j-- {
			body = &UnionAll{Var: vars[j], Body: body}
		}
	}
	return body
}

func (r *resolver) resolveArgs(n *exprNode, sc *scope) []Type {
	args := make([]Type, len(n.args))
	for i, a := range n.args {
		args[i] = r.resolve(a, sc)
	}
	return args
}

func (r *resolver) resolvePrimary(n *exprNode, sc *scope) Type {
	if n.value != nil {
		return &Value{V: *n.value}
	}

	if v := sc.lookup(n.name); v != nil {
		if n.braces {
			return r.fail(n, "type variable %s cannot take parameters", n.name)
		}
		return v
	}

	switch n.name {
	case "Bottom":
		return Bottom
	case "Union":
		return NewUnion(r.resolveArgs(n, sc)...)
	case "Tuple":
		return r.resolveTuple(n, sc)
	case "Vararg":
		return r.fail(n, "Vararg is only allowed as the last element of a Tuple")
	}

	t, ok := r.u.Lookup(n.name)
	if !ok {
		return r.fail(n, "unknown type %s", n.name)
	}
	if !n.braces {
		return t
	}
	return r.apply(n, t, r.resolveArgs(n, sc))
}

// apply instantiates the outermost variables of a quantified type with
// params. Variables left over stay quantified, so Array{Int64} is
// Array{Int64, N} where N.
func (r *resolver) apply(n *exprNode, t Type, params []Type) Type {
	subs := make(map[*TypeVar]Type, len(params))
	body := t
	for i := 0; i < len(params); i++ {
		ua, ok := body.(*UnionAll)
		if !ok {
			return r.fail(n, "%s expects %d parameters, got %d", n.name, i, len(params))
		}
		subs[ua.Var] = params[i]
		body = ua.Body
	}
	return Substitute(body, subs)
}

func (r *resolver) resolveTuple(n *exprNode, sc *scope) Type {
	var elems []Type
	var tail *Vararg
	for i, a := range n.args {
		if a.name == "Vararg" && len(a.clauses) == 0 && sc.lookup("Vararg") == nil {
			if i != len(n.args)-1 {
				return r.fail(a, "Vararg must be the last element of a Tuple")
			}
			if len(a.args) < 1 || len(a.args) > 2 {
				return r.fail(a, "Vararg expects an element type and an optional count")
			}
			tail = &Vararg{Elem: r.resolve(a.args[0], sc), Count: Unbounded}
			if len(a.args) == 2 {
				c := a.args[1]
				if c.value == nil || *c.value < 0 {
					return r.fail(c, "Vararg count must be a non-negative integer")
				}
				tail.Count = int(*c.value)
			}
			continue
		}
		elems = append(elems, r.resolve(a, sc))
	}
	return NewTuple(elems, tail)
}
