package jwt

import (
	"errors"
	"fmt"
)

// ErrInvalidSession is returned (wrapped in a [*DecodeError]) for every token that
// cannot be accepted.
var ErrInvalidSession = errors.New("invalid session")

// Reason classifies why a token was rejected. Callers treat every reason as
// unauthenticated; the distinction exists for logging.
type Reason string

const (
	ReasonMalformed Reason = "malformed"
	ReasonSignature Reason = "signature"
	ReasonAlgorithm Reason = "algorithm"
	ReasonExpired   Reason = "expired"
	ReasonClaims    Reason = "claims"
)

// DecodeError is the tagged failure returned by [Manager.Decode] and [Manager.Refresh].
type DecodeError struct {
	Reason Reason
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", ErrInvalidSession, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %v", ErrInvalidSession, e.Reason, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return ErrInvalidSession
}

// ReasonOf extracts the rejection reason from err, or "" when err is not a decode failure.
func ReasonOf(err error) Reason {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Reason
	}
	return ""
}

func invalid(reason Reason, err error) error {
	return &DecodeError{Reason: reason, Err: err}
}
