package joke

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Kind classifies a failure of a tool invocation
type Kind int

const (
	// KindUnknown is reported for errors not produced by this package
	KindUnknown Kind = iota
	// KindValidation means a caller-supplied argument failed a local constraint
	KindValidation
	// KindUpstream means the service answered with a non-2xx status
	KindUpstream
	// KindTransport means the call never completed
	KindTransport
	// KindDecode means the body did not match the expected shape
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUpstream:
		return "upstream"
	case KindTransport:
		return "transport"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// Error is returned by every Client operation
type Error struct {
	Kind       Kind
	StatusCode int
	Err        error
}

var _ error = &Error{}

func (e *Error) Error() string {
	if e.Kind == KindUpstream {
		return fmt.Sprintf("API request failed with status %d", e.StatusCode)
	}
	if e.Err == nil {
		return e.Kind.String() + " error"
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewValidationError reports an argument that failed a local check
func NewValidationError(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Err: errors.Newf(format, args...)}
}

func upstreamError(status int) *Error {
	return &Error{Kind: KindUpstream, StatusCode: status}
}

func transportError(err error) *Error {
	return &Error{Kind: KindTransport, Err: errors.Wrap(err, "API request failed")}
}

func decodeError(err error) *Error {
	return &Error{Kind: KindDecode, Err: errors.Wrap(err, "invalid API response")}
}

// KindOf returns the Kind of err, or KindUnknown if err was not produced here
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// StatusCode returns the upstream status carried by err, or 0
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindUpstream {
		return e.StatusCode
	}
	return 0
}
