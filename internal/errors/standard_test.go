package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardErrorIsMatchesByCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"invalid argument", InvalidArgument("offset %d < 0", -1), ErrInvalidArgument},
		{"closed", ClosedResource("file"), ErrClosedResource},
		{"read only", ReadOnlyViolation("mapping", 3), ErrReadOnlyViolation},
		{"bounds", IndexOutOfBounds(10, 4), ErrIndexOutOfBounds},
		{"promotion", PromotionFailed([]string{"Int64", "String"}), ErrPromotionFailed},
		{"operator", OperatorNotDefined("+", "String"), ErrOperatorNotDefined},
		{"conversion", ConversionFailed("Float64", "Int64", 1.5), ErrConversionFailed},
		{"ruleset", RulesetInvalid("bad"), ErrRulesetInvalid},
		{"unsupported", Unsupported("mmap"), ErrUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.sentinel)
			wrapped := fmt.Errorf("outer: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.sentinel)
		})
	}

	assert.NotErrorIs(t, ClosedResource("file"), ErrInvalidArgument)
}

func TestPromotionFailedMessage(t *testing.T) {
	err := PromotionFailed([]string{"Int64", "String", "Char"})
	assert.Contains(t, err.Error(), "promotion of types Int64, String and Char failed to change any arguments")
	assert.Equal(t, []string{"Int64", "String", "Char"}, err.Context["types"])
}

func TestCallerIsRecorded(t *testing.T) {
	err := InvalidArgument("x")
	assert.Contains(t, err.Caller, "TestCallerIsRecorded")
}

func TestWrapKeepsCause(t *testing.T) {
	cause := stderrors.New("EINVAL")
	err := Wrap(Unsupported("madvise"), cause)
	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "EINVAL")
}
