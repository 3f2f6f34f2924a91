package farmAuth

import (
	"errors"
	"sort"
	"strings"

	"github.com/MrEthical07/farmAuth/jwt"
)

var (
	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrRateLimited is returned before the credential verifier is consulted.
	ErrRateLimited = errors.New("too many attempts")
	// ErrInvalidSession is returned for unparseable, forged or expired tokens.
	ErrInvalidSession = jwt.ErrInvalidSession
	// ErrNoSession means the request carried no session cookie.
	ErrNoSession = errors.New("no session")
	// ErrValidation is wrapped by every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrConflict is returned when registering an email that already has a record.
	ErrConflict = errors.New("account already exists")
	// ErrAuthUnavailable means the user-record lookup failed or the stored
	// credential cannot be checked.
	ErrAuthUnavailable = errors.New("authentication unavailable")
	// ErrPersistence means the user store could not create a record.
	ErrPersistence = errors.New("persistence error")
	// ErrUnauthorized and ErrForbidden are the access controller's terminal
	// decisions for API routes.
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	// ErrUserNotFound is returned by a UserStore when no record matches.
	ErrUserNotFound = errors.New("user not found")
	// ErrSigningSecretRequired is returned by Build in production without a secret.
	ErrSigningSecretRequired = errors.New("session signing secret required in production")
	// ErrEngineNotReady is returned by methods called on a nil or unbuilt Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// ValidationError carries one message per rejected field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(ErrValidation.Error())
	b.WriteString(": ")
	for i, k := range keys {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(e.Fields[k])
	}
	return b.String()
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = msg
	}
}

func (e *ValidationError) orNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}
