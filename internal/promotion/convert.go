package promotion

import (
	"math"
	"sync"

	"github.com/orizon-lang/lattice/internal/errors"
	"github.com/orizon-lang/lattice/internal/types"
)

// Converter converts a value to a target type.
type Converter interface {
	Convert(to types.Type, v Value) (Value, error)
}

// ConvertFunc converts the payload of a value.
type ConvertFunc func(data interface{}) (interface{}, error)

type conversion struct {
	from, to types.Type
	fn       ConvertFunc
}

// ConversionTable converts through registered functions. A value whose
// type is already a subtype of the target is returned unchanged.
type ConversionTable struct {
	lattice *types.Lattice

	mu    sync.RWMutex
	funcs map[string][]conversion
}

// NewConversionTable creates an empty table.
func NewConversionTable(l *types.Lattice) *ConversionTable {
	return &ConversionTable{
		lattice: l,
		funcs:   make(map[string][]conversion),
	}
}

// Register installs fn for conversions from one type to another, replacing
// any previous function for the pair.
func (c *ConversionTable) Register(from, to types.Type, fn ConvertFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := pairKey(from, to)
	list := c.funcs[key]
	for i := range list {
		if types.Equal(list[i].from, from) && types.Equal(list[i].to, to) {
			list[i].fn = fn
			return
		}
	}
	c.funcs[key] = append(list, conversion{from: from, to: to, fn: fn})
}

func (c *ConversionTable) lookup(from, to types.Type) ConvertFunc {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, conv := range c.funcs[pairKey(from, to)] {
		if types.Equal(conv.from, from) && types.Equal(conv.to, to) {
			return conv.fn
		}
	}
	return nil
}

// Convert implements Converter.
func (c *ConversionTable) Convert(to types.Type, v Value) (Value, error) {
	if v.Type == nil || to == nil {
		return Value{}, errors.InvalidArgument("conversion with nil type")
	}
	if types.Equal(v.Type, to) {
		return v, nil
	}
	if fn := c.lookup(v.Type, to); fn != nil {
		data, err := fn(v.Data)
		if err != nil {
			return Value{}, err
		}
		return Value{Type: to, Data: data}, nil
	}
	if c.lattice != nil && c.lattice.IsSubtype(v.Type, to) {
		return v, nil
	}
	return Value{}, errors.ConversionFailed(v.Type.String(), to.String(), v.Data)
}

// ====== Numeric Conversions ======

// numeric describes how a numeric type is stored in Value.Data.
type numeric struct {
	name     string
	bits     int
	signed   bool
	unsigned bool
	float    bool
	boolean  bool
}

var numerics = []numeric{
	{name: "Bool", bits: 1, boolean: true},
	{name: "Int8", bits: 8, signed: true},
	{name: "Int16", bits: 16, signed: true},
	{name: "Int32", bits: 32, signed: true},
	{name: "Int64", bits: 64, signed: true},
	{name: "UInt8", bits: 8, unsigned: true},
	{name: "UInt16", bits: 16, unsigned: true},
	{name: "UInt32", bits: 32, unsigned: true},
	{name: "UInt64", bits: 64, unsigned: true},
	{name: "Float32", bits: 32, float: true},
	{name: "Float64", bits: 64, float: true},
}

// DefaultConversions returns a table with checked conversions between the
// built-in numeric types. Conversions that would lose information fail
// with a conversion error.
func DefaultConversions(u *types.Universe, l *types.Lattice) *ConversionTable {
	c := NewConversionTable(l)
	for _, from := range numerics {
		for _, to := range numerics {
			if from.name == to.name {
				continue
			}
			from, to := from, to
			c.Register(u.MustLookup(from.name), u.MustLookup(to.name), func(data interface{}) (interface{}, error) {
				return convertNumeric(from, to, data)
			})
		}
	}
	return c
}

// scalar is a numeric payload read into the widest representation of its
// category.
type scalar struct {
	i int64
	u uint64
	f float64
}

func readScalar(data interface{}) (scalar, bool) {
	var s scalar
	switch x := data.(type) {
	case bool:
		if x {
			s.u = 1
		}
	case int8:
		s.i = int64(x)
	case int16:
		s.i = int64(x)
	case int32:
		s.i = int64(x)
	case int64:
		s.i = x
	case uint8:
		s.u = uint64(x)
	case uint16:
		s.u = uint64(x)
	case uint32:
		s.u = uint64(x)
	case uint64:
		s.u = x
	case float32:
		s.f = float64(x)
	case float64:
		s.f = x
	default:
		return s, false
	}
	return s, true
}

// goKindMatches reports whether data is stored as the Go type for n.
func goKindMatches(n numeric, data interface{}) bool {
	switch data.(type) {
	case bool:
		return n.boolean
	case int8:
		return n.signed && n.bits == 8
	case int16:
		return n.signed && n.bits == 16
	case int32:
		return n.signed && n.bits == 32
	case int64:
		return n.signed && n.bits == 64
	case uint8:
		return n.unsigned && n.bits == 8
	case uint16:
		return n.unsigned && n.bits == 16
	case uint32:
		return n.unsigned && n.bits == 32
	case uint64:
		return n.unsigned && n.bits == 64
	case float32:
		return n.float && n.bits == 32
	case float64:
		return n.float && n.bits == 64
	}
	return false
}

func convertNumeric(from, to numeric, data interface{}) (interface{}, error) {
	fail := func() (interface{}, error) {
		return nil, errors.ConversionFailed(from.name, to.name, data)
	}
	if !goKindMatches(from, data) {
		return nil, errors.InvalidArgument("%s value stored as %T", from.name, data)
	}
	s, _ := readScalar(data)

	switch {
	case to.boolean:
		switch {
		case from.signed && (s.i == 0 || s.i == 1):
			return s.i == 1, nil
		case from.unsigned && s.u <= 1:
			return s.u == 1, nil
		case from.float && (s.f == 0 || s.f == 1):
			return s.f == 1, nil
		}
		return fail()

	case to.float:
		var f float64
		switch {
		case from.signed:
			f = float64(s.i)
		case from.unsigned, from.boolean:
			f = float64(s.u)
		default:
			f = s.f
		}
		if to.bits == 32 {
			if !math.IsInf(f, 0) && !math.IsNaN(f) && math.Abs(f) > math.MaxFloat32 {
				return fail()
			}
			return float32(f), nil
		}
		return f, nil

	case to.signed:
		lo, hi := int64(-1)<<(to.bits-1), int64(1)<<(to.bits-1)-1
		if to.bits == 64 {
			lo, hi = math.MinInt64, math.MaxInt64
		}
		var i int64
		switch {
		case from.signed:
			i = s.i
		case from.unsigned, from.boolean:
			if s.u > uint64(hi) {
				return fail()
			}
			i = int64(s.u)
		default:
			if s.f != math.Trunc(s.f) || s.f < float64(lo) || s.f >= -float64(lo) {
				return fail()
			}
			i = int64(s.f)
		}
		if i < lo || i > hi {
			return fail()
		}
		return makeSigned(to.bits, i), nil

	case to.unsigned:
		hi := uint64(1)<<to.bits - 1
		if to.bits == 64 {
			hi = math.MaxUint64
		}
		var u uint64
		switch {
		case from.signed:
			if s.i < 0 {
				return fail()
			}
			u = uint64(s.i)
		case from.unsigned, from.boolean:
			u = s.u
		default:
			if s.f != math.Trunc(s.f) || s.f < 0 || s.f >= math.Ldexp(1, to.bits) {
				return fail()
			}
			u = uint64(s.f)
		}
		if u > hi {
			return fail()
		}
		return makeUnsigned(to.bits, u), nil
	}
	return nil, errors.InvalidArgument("no numeric conversion to %s", to.name)
}

func makeSigned(bits int, i int64) interface{} {
	switch bits {
	case 8:
		return int8(i)
	case 16:
		return int16(i)
	case 32:
		return int32(i)
	}
	return i
}

func makeUnsigned(bits int, u uint64) interface{} {
	switch bits {
	case 8:
		return uint8(u)
	case 16:
		return uint16(u)
	case 32:
		return uint32(u)
	}
	return u
}
