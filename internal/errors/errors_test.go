package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type customError struct {
	Msg string
}

func (e customError) Error() string { return e.Msg }

func TestNew(t *testing.T) {
	err := New("test error")
	require.Error(t, err)
	assert.Equal(t, "test error", err.Error())
}

func TestWrap(t *testing.T) {
	baseErr := errors.New("base error")

	t.Run("wrap non-nil error", func(t *testing.T) {
		wrapped := Wrap(baseErr, "wrapped")
		require.Error(t, wrapped)
		assert.Equal(t, "wrapped: base error", wrapped.Error())
		assert.ErrorIs(t, wrapped, baseErr)
	})

	t.Run("wrap nil error", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, "wrapped"))
	})
}

func TestWrapf(t *testing.T) {
	baseErr := errors.New("base error")

	t.Run("wrapf non-nil error", func(t *testing.T) {
		wrapped := Wrapf(baseErr, "entry %d", 123)
		require.Error(t, wrapped)
		assert.Equal(t, "entry 123: base error", wrapped.Error())
		assert.ErrorIs(t, wrapped, baseErr)
	})

	t.Run("wrapf nil error", func(t *testing.T) {
		assert.NoError(t, Wrapf(nil, "entry %d", 1))
	})
}

func TestIs(t *testing.T) {
	wrapped := Wrap(ErrUnavailable, "queue saturated")
	assert.True(t, Is(wrapped, ErrUnavailable))
	assert.False(t, Is(wrapped, ErrNotFound))
}

func TestAs(t *testing.T) {
	err := Wrap(customError{Msg: "custom"}, "context")

	var target customError
	require.True(t, As(err, &target))
	assert.Equal(t, "custom", target.Msg)
}

func TestJoin(t *testing.T) {
	assert.NoError(t, Join(nil, nil))

	err := Join(ErrNotFound, nil, ErrConflict)
	require.Error(t, err)
	assert.True(t, Is(err, ErrNotFound))
	assert.True(t, Is(err, ErrConflict))
}

func TestStandardErrors(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrNotFound, "not found"},
		{ErrConflict, "conflict"},
		{ErrInvalidInput, "invalid input"},
		{ErrUnavailable, "unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}
