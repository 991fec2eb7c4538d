package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestError_UnwrapsToKind(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		kind error
		msg  string
	}{
		{Input("email"), ErrInvalidInput, "invalid input: email"},
		{Auth("refresh token not allowed"), ErrUnauthorized, "unauthorized: refresh token not allowed"},
		{Conflict("email already registered"), ErrAlreadyExists, "conflict: email already registered"},
		{NotFound("session not found"), ErrNotFound, "not found: session not found"},
		{Internal("invalid user ID for token generation"), ErrInternal, "internal server error: invalid user ID for token generation"},
	}
	for _, c := range cases {
		require.ErrorIs(t, c.err, c.kind)
		require.Equal(t, c.msg, c.err.Error())
		require.Equal(t, c.kind, Kind(c.err))
	}
}

func TestKind_WrappedAndUnknown(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("save user: %w", ErrVersionConflict)
	require.Equal(t, ErrVersionConflict, Kind(wrapped))
	require.Equal(t, ErrNotFound, Kind(fmt.Errorf("lookup: %w", ErrNotFound)))
	require.Equal(t, ErrInternal, Kind(errors.New("boom")))
}

func TestMessage_HidesInternals(t *testing.T) {
	t.Parallel()

	require.Equal(t, "unauthorized: session expired", Message(Auth("session expired")))
	require.Equal(t, "internal server error", Message(errors.New("dial tcp: connection refused")))
	require.Equal(t, "internal server error", Message(Internal("invalid email for token generation")))
	require.Equal(t, "not found", Message(fmt.Errorf("get: %w", ErrNotFound)))
}
