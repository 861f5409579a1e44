package carrier

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind classifies the outcome of a single Track call.
type Kind string

const (
	KindNone      Kind = "none"
	KindNoData    Kind = "no_data"
	KindTimeout   Kind = "timeout"
	KindTransport Kind = "transport"
	KindStatus    Kind = "status"
	KindDecode    Kind = "decode"
	KindCanceled  Kind = "canceled"
)

// StatusError is returned for a non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("carrier: unexpected status %d: %s", e.Code, e.Body)
}

// DecodeError is returned when a 2xx response body cannot be parsed.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Classify maps a Track error to its Kind. A nil error is KindNone.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}

	var se *StatusError
	if errors.As(err, &se) {
		return KindStatus
	}

	var de *DecodeError
	if errors.As(err, &de) {
		return KindDecode
	}

	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	return KindTransport
}

// Transient reports whether a failure would plausibly succeed on a later
// attempt: timeouts, transport errors, 408, 429 and 5xx responses.
func Transient(err error) bool {
	switch Classify(err) {
	case KindTimeout, KindTransport:
		return true
	case KindStatus:
		var se *StatusError
		errors.As(err, &se)
		switch se.Code {
		case 408, 429, 500, 502, 503, 504:
			return true
		}
	}
	return false
}
