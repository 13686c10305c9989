package fs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResultCodeError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		code ResultCode
		want string
	}{
		{"invalid", ErrInvalid, "invalid argument"},
		{"access_denied", ErrAccessDenied, "access denied"},
		{"not_found", ErrNotFound, "not found"},
		{"in_use", ErrInUse, "in use"},
		{"file_not_empty", ErrFileNotEmpty, "file not empty"},
		{"short_read", ErrShortRead, "short read"},
		{"out_of_range", ResultCode(999), "unknown error"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.code.Error())
		})
	}
}

func TestCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want ResultCode
	}{
		{"nil", nil, Success},
		{"bare_code", ErrNotFound, ErrNotFound},
		{"wrapped_code", fmt.Errorf("open: %w", ErrAccessDenied), ErrAccessDenied},
		{"foreign_error", errors.New("disk on fire"), ErrUnknown},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Code(tt.err))
		})
	}
}

func TestCodesAreErrors(t *testing.T) {
	t.Parallel()

	// errors.Is must match codes through wrapping, so engine callers can
	// branch on the closed set.
	err := fmt.Errorf("rename: %w", ErrFileNotEmpty)
	assert.True(t, errors.Is(err, ErrFileNotEmpty))
	assert.False(t, errors.Is(err, ErrNotFound))
}
