package errs

import "errors"

// Error is a typed failure carrying a kind sentinel and a user-visible message.
// errors.Is(err, ErrUnauthorized) and friends work through Unwrap.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Msg
}

func (e *Error) Unwrap() error { return e.Kind }

// Input returns an ErrInvalidInput failure.
func Input(msg string) error { return &Error{Kind: ErrInvalidInput, Msg: msg} }

// Auth returns an ErrUnauthorized failure.
func Auth(msg string) error { return &Error{Kind: ErrUnauthorized, Msg: msg} }

// Conflict returns an ErrAlreadyExists failure.
func Conflict(msg string) error { return &Error{Kind: ErrAlreadyExists, Msg: msg} }

// NotFound returns an ErrNotFound failure.
func NotFound(msg string) error { return &Error{Kind: ErrNotFound, Msg: msg} }

// Internal returns an ErrInternal failure.
func Internal(msg string) error { return &Error{Kind: ErrInternal, Msg: msg} }

// Kind reports the sentinel an error belongs to, or ErrInternal for anything unclassified.
func Kind(err error) error {
	for _, k := range []error{ErrInvalidInput, ErrUnauthorized, ErrAlreadyExists, ErrNotFound, ErrVersionConflict} {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrInternal
}

// Message returns the text safe to show to a client. Unclassified errors are hidden.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != ErrInternal {
		return e.Error()
	}
	if k := Kind(err); k != ErrInternal {
		return k.Error()
	}
	return ErrInternal.Error()
}
