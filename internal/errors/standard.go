// Package errors provides standardized error messaging for the lattice runtime
package errors

import (
	"fmt"
	"runtime"
	"strings"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	CategoryMemory     ErrorCategory = "MEMORY"
	CategoryBounds     ErrorCategory = "BOUNDS"
	CategoryValidation ErrorCategory = "VALIDATION"
	CategoryResource   ErrorCategory = "RESOURCE"
	CategoryType       ErrorCategory = "TYPE"
	CategorySystem     ErrorCategory = "SYSTEM"
)

// Error codes. errors.Is matches a StandardError against a sentinel by code.
const (
	CodeInvalidArgument    = "INVALID_ARGUMENT"
	CodeClosedResource     = "CLOSED_RESOURCE"
	CodeReadOnlyViolation  = "READ_ONLY_VIOLATION"
	CodeIndexOutOfBounds   = "INDEX_OUT_OF_BOUNDS"
	CodePromotionFailed    = "PROMOTION_FAILED"
	CodeOperatorNotDefined = "OPERATOR_NOT_DEFINED"
	CodeConversionFailed   = "CONVERSION_FAILED"
	CodeRulesetInvalid     = "RULESET_INVALID"
	CodeUnsupported        = "UNSUPPORTED"
)

// Sentinels for errors.Is.
var (
	ErrInvalidArgument    = &StandardError{Category: CategoryValidation, Code: CodeInvalidArgument}
	ErrClosedResource     = &StandardError{Category: CategoryResource, Code: CodeClosedResource}
	ErrReadOnlyViolation  = &StandardError{Category: CategoryMemory, Code: CodeReadOnlyViolation}
	ErrIndexOutOfBounds   = &StandardError{Category: CategoryBounds, Code: CodeIndexOutOfBounds}
	ErrPromotionFailed    = &StandardError{Category: CategoryType, Code: CodePromotionFailed}
	ErrOperatorNotDefined = &StandardError{Category: CategoryType, Code: CodeOperatorNotDefined}
	ErrConversionFailed   = &StandardError{Category: CategoryType, Code: CodeConversionFailed}
	ErrRulesetInvalid     = &StandardError{Category: CategoryValidation, Code: CodeRulesetInvalid}
	ErrUnsupported        = &StandardError{Category: CategorySystem, Code: CodeUnsupported}
)

// StandardError provides a consistent error format
type StandardError struct {
	Category ErrorCategory
	Code     string
	Message  string
	Context  map[string]interface{}
	Caller   string
	Cause    error
}

// Error implements the error interface
func (e *StandardError) Error() string {
	msg := fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
	if e.Caller != "" {
		msg += fmt.Sprintf(" (caller: %s)", e.Caller)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Is reports whether target is a StandardError with the same code.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Unwrap returns the underlying cause, if any.
func (e *StandardError) Unwrap() error { return e.Cause }

// NewStandardError creates a new standardized error
func NewStandardError(category ErrorCategory, code, message string, context map[string]interface{}) *StandardError {
	return newError(2, category, code, message, context)
}

func newError(skip int, category ErrorCategory, code, message string, context map[string]interface{}) *StandardError {
	pc, _, _, ok := runtime.Caller(skip)
	caller := "unknown"
	if ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			caller = fn.Name()
		}
	}

	return &StandardError{
		Category: category,
		Code:     code,
		Message:  message,
		Context:  context,
		Caller:   caller,
	}
}

// Common error constructors

func InvalidArgument(format string, args ...interface{}) *StandardError {
	return newError(2, CategoryValidation, CodeInvalidArgument, fmt.Sprintf(format, args...), nil)
}

func ClosedResource(resource string) *StandardError {
	return newError(2, CategoryResource, CodeClosedResource,
		fmt.Sprintf("%s is closed", resource),
		map[string]interface{}{"resource": resource})
}

func ReadOnlyViolation(resource string, offset int64) *StandardError {
	return newError(2, CategoryMemory, CodeReadOnlyViolation,
		fmt.Sprintf("write to read-only %s at offset %d", resource, offset),
		map[string]interface{}{"resource": resource, "offset": offset})
}

func IndexOutOfBounds(index, length int) *StandardError {
	return newError(2, CategoryBounds, CodeIndexOutOfBounds,
		fmt.Sprintf("Index %d out of bounds for length %d", index, length),
		map[string]interface{}{"index": index, "length": length})
}

// PromotionFailed reports that promotion left every argument's type unchanged.
func PromotionFailed(typeNames []string) *StandardError {
	return newError(2, CategoryType, CodePromotionFailed,
		fmt.Sprintf("promotion of types %s failed to change any arguments", joinNames(typeNames)),
		map[string]interface{}{"types": typeNames})
}

func OperatorNotDefined(op, typeName string) *StandardError {
	return newError(2, CategoryType, CodeOperatorNotDefined,
		fmt.Sprintf("%s not defined for %s", op, typeName),
		map[string]interface{}{"operator": op, "type": typeName})
}

func ConversionFailed(from, to string, value interface{}) *StandardError {
	return newError(2, CategoryType, CodeConversionFailed,
		fmt.Sprintf("cannot convert %v of type %s to %s", value, from, to),
		map[string]interface{}{"from": from, "to": to, "value": value})
}

func RulesetInvalid(format string, args ...interface{}) *StandardError {
	return newError(2, CategoryValidation, CodeRulesetInvalid, fmt.Sprintf(format, args...), nil)
}

func Unsupported(feature string) *StandardError {
	return newError(2, CategorySystem, CodeUnsupported,
		fmt.Sprintf("%s is not supported on this platform", feature),
		map[string]interface{}{"feature": feature})
}

// Wrap attaches an underlying cause to err and returns it.
func Wrap(err *StandardError, cause error) *StandardError {
	err.Cause = cause
	return err
}

// joinNames renders "A, B and C".
func joinNames(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	}
	return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
}
