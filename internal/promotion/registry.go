// Package promotion decides the common type that mixed-type arguments are
// converted to before an operator runs, and performs that conversion.
//
// Rules are registered at startup into a Registry and are read without
// locking afterwards. A Promoter combines the registry with a type lattice:
// pairs without a rule fall back to the lattice join.
package promotion

import (
	"sync"
	"sync/atomic"

	"github.com/orizon-lang/lattice/internal/errors"
	"github.com/orizon-lang/lattice/internal/types"
)

// Rule is an explicit promotion rule for an ordered pair of types.
type Rule struct {
	A, B   types.Type
	Result types.Type
}

// RuleFunc is a generic rule consulted when no exact rule matches. It
// returns types.Bottom when it does not apply to (a, b).
type RuleFunc func(ctx RuleContext, a, b types.Type) types.Type

// RuleContext gives generic rules access to the lattice and to recursive
// promotion.
type RuleContext interface {
	Lattice() *types.Lattice
	PromoteType(a, b types.Type) types.Type
}

// ruleSet is an immutable snapshot of the registry.
type ruleSet struct {
	exact   map[string][]Rule
	generic []RuleFunc
	count   int
}

// Registry holds promotion rules. Registration is serialized; lookups read
// an immutable snapshot and never block.
type Registry struct {
	mu      sync.Mutex
	sealed  atomic.Bool
	current atomic.Pointer[ruleSet]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	r := &Registry{}
	r.current.Store(&ruleSet{exact: make(map[string][]Rule)})
	return r
}

func pairKey(a, b types.Type) string {
	return a.String() + "\x00" + b.String()
}

// Register adds the rule (a, b) -> result. Registering the same rule twice
// is a no-op; registering a different result for an existing pair fails.
func (r *Registry) Register(a, b, result types.Type) error {
	if a == nil || b == nil || result == nil {
		return errors.InvalidArgument("promotion rule with nil type")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed.Load() {
		return errors.InvalidArgument("promotion registry is sealed; cannot register %s, %s", a, b)
	}

	cur := r.current.Load()
	key := pairKey(a, b)
	for _, existing := range cur.exact[key] {
		if !types.Equal(existing.A, a) || !types.Equal(existing.B, b) {
			continue
		}
		if types.Equal(existing.Result, result) {
			return nil
		}
		return errors.InvalidArgument("conflicting promotion rule for %s, %s: %s already registered, got %s",
			a, b, existing.Result, result)
	}

	next := cur.clone()
	next.exact[key] = append(append([]Rule(nil), cur.exact[key]...), Rule{A: a, B: b, Result: result})
	next.count++
	r.current.Store(next)
	return nil
}

// RegisterFunc adds a generic rule. Generic rules are consulted in
// registration order after exact rules.
func (r *Registry) RegisterFunc(fn RuleFunc) error {
	if fn == nil {
		return errors.InvalidArgument("nil promotion rule function")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed.Load() {
		return errors.InvalidArgument("promotion registry is sealed")
	}
	next := r.current.Load().clone()
	next.generic = append(next.generic, fn)
	r.current.Store(next)
	return nil
}

// Seal closes registration. Registrations in flight finish first; once Seal
// returns further Register calls fail.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed.Store(true)
}

// Sealed reports whether registration is closed.
func (r *Registry) Sealed() bool { return r.sealed.Load() }

// Lookup returns the exact rule registered for the ordered pair (a, b), or
// types.Bottom.
func (r *Registry) Lookup(a, b types.Type) types.Type {
	for _, rule := range r.current.Load().exact[pairKey(a, b)] {
		if types.Equal(rule.A, a) && types.Equal(rule.B, b) {
			return rule.Result
		}
	}
	return types.Bottom
}

// Len returns the number of exact rules.
func (r *Registry) Len() int { return r.current.Load().count }

// Rules returns a copy of the exact rules.
func (r *Registry) Rules() []Rule {
	cur := r.current.Load()
	out := make([]Rule, 0, cur.count)
	for _, rules := range cur.exact {
		out = append(out, rules...)
	}
	return out
}

func (r *Registry) generic() []RuleFunc { return r.current.Load().generic }

func (s *ruleSet) clone() *ruleSet {
	exact := make(map[string][]Rule, len(s.exact)+1)
	for k, v := range s.exact {
		exact[k] = v
	}
	return &ruleSet{
		exact:   exact,
		generic: append([]RuleFunc(nil), s.generic...),
		count:   s.count,
	}
}
