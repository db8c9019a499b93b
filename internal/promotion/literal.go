package promotion

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/orizon-lang/lattice/internal/errors"
	"github.com/orizon-lang/lattice/internal/types"
)

// ParseValue reads a value written as "literal::Type", e.g. "2.5::Float64".
func ParseValue(u *types.Universe, s string) (Value, error) {
	i := strings.LastIndex(s, "::")
	if i < 0 {
		return Value{}, errors.InvalidArgument("value %q: want literal::Type", s)
	}
	t, err := types.Parse(u, s[i+2:])
	if err != nil {
		return Value{}, err
	}
	data, err := ParseLiteral(t, s[:i])
	if err != nil {
		return Value{}, errors.Wrap(errors.InvalidArgument("value %q: %v", s, err), err)
	}
	return Value{Type: t, Data: data}, nil
}

// ParseLiteral converts text to the Go payload used for values of t.
func ParseLiteral(t types.Type, lit string) (interface{}, error) {
	switch t.String() {
	case "Bool":
		return strconv.ParseBool(lit)
	case "Int8":
		v, err := strconv.ParseInt(lit, 10, 8)
		return int8(v), err
	case "Int16":
		v, err := strconv.ParseInt(lit, 10, 16)
		return int16(v), err
	case "Int32":
		v, err := strconv.ParseInt(lit, 10, 32)
		return int32(v), err
	case "Int64":
		return strconv.ParseInt(lit, 10, 64)
	case "UInt8":
		v, err := strconv.ParseUint(lit, 10, 8)
		return uint8(v), err
	case "UInt16":
		v, err := strconv.ParseUint(lit, 10, 16)
		return uint16(v), err
	case "UInt32":
		v, err := strconv.ParseUint(lit, 10, 32)
		return uint32(v), err
	case "UInt64":
		return strconv.ParseUint(lit, 10, 64)
	case "Float32":
		v, err := strconv.ParseFloat(lit, 32)
		return float32(v), err
	case "Float64":
		return strconv.ParseFloat(lit, 64)
	case "String":
		return lit, nil
	case "Missing", "Nothing":
		return nil, nil
	}
	return nil, fmt.Errorf("no literal syntax for %s", t)
}
