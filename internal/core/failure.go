package core

import (
	"errors"
	"fmt"
)

// Kind classifies a request failure independently of the numeric status an
// endpoint uses for it.
type Kind string

const (
	KindNeedsAuthentication Kind = "needs_authentication"
	KindRequestError        Kind = "request_error"
	KindInvalidCredentials  Kind = "invalid_credentials"
	KindUserAlreadyExists   Kind = "user_already_exists"
	KindCreationError       Kind = "creation_error"
)

var (
	ErrNeedsAuthentication = errors.New("needs authentication")
	ErrRequestError        = errors.New("request error")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrUserAlreadyExists   = errors.New("user already exists")
	ErrCreationError       = errors.New("creation error")
)

var kindErrors = map[Kind]error{
	KindNeedsAuthentication: ErrNeedsAuthentication,
	KindRequestError:        ErrRequestError,
	KindInvalidCredentials:  ErrInvalidCredentials,
	KindUserAlreadyExists:   ErrUserAlreadyExists,
	KindCreationError:       ErrCreationError,
}

// Failure is the failed branch of an API call. Status is the numeric code the
// endpoint family uses, Kind its meaning.
type Failure struct {
	Op      string
	Status  int
	Kind    Kind
	Message string
}

func (f *Failure) Error() string {
	if f.Message == "" {
		return fmt.Sprintf("%s: %s (status %d)", f.Op, f.Kind, f.Status)
	}
	return fmt.Sprintf("%s: %s (status %d): %s", f.Op, f.Kind, f.Status, f.Message)
}

// Is lets errors.Is match a Failure against the Err* sentinels.
func (f *Failure) Is(target error) bool {
	sentinel, ok := kindErrors[f.Kind]
	return ok && sentinel == target
}

// AsFailure extracts a *Failure from err.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
