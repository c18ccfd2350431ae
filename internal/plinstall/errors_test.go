package plinstall

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"foreign", errors.New("boom"), ExitUnknown},
		{"bad switch", newError(ErrBadSwitch, "x"), ExitBadSwitch},
		{"missing argument", newError(ErrMissingArgument, "x"), ExitMissingArgument},
		{"not found", newError(ErrNotFound, "x"), ExitNotFound},
		{"cancelled", newError(ErrCancelled, "x"), ExitCancelled},
		{"unwritable", newError(ErrUnwritable, "x"), ExitUnwritable},
		{"destination missing", newError(ErrDestMissing, "x"), ExitUnwritable},
		{"tempdir", newError(ErrTempDir, "x"), ExitTempDir},
		{"tool missing", newError(ErrToolMissing, "x"), ExitToolMissing},
		{"command", newError(ErrCommand, "x"), ExitCommand},
		{"internal", newError(ErrInternal, "x"), ExitInternal},
		{"config", newError(ErrConfig, "x"), ExitConfig},
		{"interrupted", newError(ErrInterrupted, "x"), ExitInterrupted},
		{"wrapped twice", fmt.Errorf("outer: %w", newError(ErrCancelled, "x")), ExitCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestErrorWrapping(t *testing.T) {
	base := errors.New("disk full")
	err := wrapErrorf(base, ErrCommand, "moving %s failed", "a")

	assert.Equal(t, "moving a failed: disk full", err.Error())
	assert.ErrorIs(t, err, base)
	assert.True(t, errors.Is(err, newError(ErrCommand, "other message")))
	assert.False(t, errors.Is(err, newError(ErrCancelled, "")))
	assert.True(t, IsErrorCode(err, ErrCommand))
	assert.Nil(t, wrapError(nil, ErrCommand, "unused"))
}

func TestErrorDetails(t *testing.T) {
	err := newError(ErrNotFound, "nothing").WithDetail("roots", []string{"/a"})
	assert.Equal(t, []string{"/a"}, err.Details["roots"])
	assert.Equal(t, ErrUnknown, GetErrorCode(errors.New("plain")))
}
