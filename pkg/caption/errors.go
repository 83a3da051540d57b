package caption

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by *Error through errors.Is.
var (
	ErrNetwork           = errors.New("caption: network error")
	ErrMalformedResponse = errors.New("caption: malformed response")
)

// Kind classifies a caption failure.
type Kind int

const (
	// KindNetwork covers transport failures and non-2xx responses.
	KindNetwork Kind = iota
	// KindMalformedResponse means the body lacked a caption.
	KindMalformedResponse
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindMalformedResponse:
		return "malformed_response"
	default:
		return "unknown"
	}
}

// Error is returned by Client.Caption.
type Error struct {
	Kind Kind

	// StatusCode is set when the service answered.
	StatusCode int

	// Body is a prefix of a non-2xx response body.
	Body string

	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0 && e.Kind == KindNetwork:
		return fmt.Sprintf("caption: service returned %d: %s", e.StatusCode, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("caption: %s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("caption: %s", e.Kind)
	}
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for e.Kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return e.Kind == KindNetwork
	case ErrMalformedResponse:
		return e.Kind == KindMalformedResponse
	}
	return false
}
