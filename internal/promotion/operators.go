package promotion

import (
	"sync"

	"github.com/orizon-lang/lattice/internal/errors"
	"github.com/orizon-lang/lattice/internal/types"
)

// OpFunc implements a binary operator on two payloads of the same type.
type OpFunc func(x, y interface{}) (interface{}, error)

type opImpl struct {
	typ types.Type
	fn  OpFunc
}

// Operators dispatches binary operators. Arguments of different types are
// promoted first; arguments of the same type must have an implementation.
type Operators struct {
	promoter *Promoter

	mu    sync.RWMutex
	impls map[string][]opImpl // by operator
}

// NewOperators creates an empty operator table that promotes through p.
func NewOperators(p *Promoter) *Operators {
	return &Operators{
		promoter: p,
		impls:    make(map[string][]opImpl),
	}
}

// Register installs fn as op on values of type t.
func (o *Operators) Register(op string, t types.Type, fn OpFunc) {
	o.mu.Lock()
	defer o.mu.Unlock()

	list := o.impls[op]
	for i := range list {
		if types.Equal(list[i].typ, t) {
			list[i].fn = fn
			return
		}
	}
	o.impls[op] = append(list, opImpl{typ: t, fn: fn})
}

func (o *Operators) lookup(op string, t types.Type) OpFunc {
	o.mu.RLock()
	defer o.mu.RUnlock()

	for _, impl := range o.impls[op] {
		if types.Equal(impl.typ, t) {
			return impl.fn
		}
	}
	return nil
}

// Apply evaluates x op y.
func (o *Operators) Apply(op string, x, y Value) (Value, error) {
	if !types.Equal(x.Type, y.Type) {
		promoted, err := o.promoter.Promote(x, y)
		if err != nil {
			return Value{}, err
		}
		x, y = promoted[0], promoted[1]
		if !types.Equal(x.Type, y.Type) {
			return Value{}, errors.OperatorNotDefined(op, x.Type.String()+" and "+y.Type.String())
		}
	}

	fn := o.lookup(op, x.Type)
	if fn == nil {
		return Value{}, errors.OperatorNotDefined(op, x.Type.String())
	}
	r, err := fn(x.Data, y.Data)
	if err != nil {
		return Value{}, err
	}
	return Value{Type: x.Type, Data: r}, nil
}
