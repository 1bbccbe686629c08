package endpoint

import (
	"errors"
	"fmt"
)

// Kind classifies endpoint setup failures.
type Kind int

const (
	KindGeneration Kind = iota + 1
	KindCertificateParse
	KindCertificateRegistration
	KindAddressResolution
	KindBind
)

func (k Kind) String() string {
	switch k {
	case KindGeneration:
		return "generation"
	case KindCertificateParse:
		return "certificate parse"
	case KindCertificateRegistration:
		return "certificate registration"
	case KindAddressResolution:
		return "address resolution"
	case KindBind:
		return "bind"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Sentinels for errors.Is; any *Error of the same Kind matches.
var (
	ErrGeneration              = &Error{Kind: KindGeneration, Index: -1}
	ErrCertificateParse        = &Error{Kind: KindCertificateParse, Index: -1}
	ErrCertificateRegistration = &Error{Kind: KindCertificateRegistration, Index: -1}
	ErrAddressResolution       = &Error{Kind: KindAddressResolution, Index: -1}
	ErrBind                    = &Error{Kind: KindBind, Index: -1}
)

var (
	// ErrEndpointClosed is returned by Incoming and Endpoint operations after
	// the endpoint was closed or its driver stopped.
	ErrEndpointClosed = errors.New("endpoint: closed")
	// ErrNoClientConfig is returned by Connect on a server-only endpoint.
	ErrNoClientConfig = errors.New("endpoint: no client configuration")
)

// Error is the single failure type returned by configuration building and
// endpoint binding.
type Error struct {
	Kind Kind
	// Index is the offending trust anchor for KindCertificateParse, -1 otherwise.
	Index int
	// Addr is the local address involved, if any.
	Addr string
	Err  error
}

func (e *Error) Error() string {
	msg := "endpoint: " + e.Kind.String()
	if e.Index >= 0 {
		msg += fmt.Sprintf(" (trust anchor %d)", e.Index)
	}
	if e.Addr != "" {
		msg += " " + e.Addr
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Index: -1, Err: err}
}
