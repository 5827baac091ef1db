package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a uniqueness conflict.
	ErrAlreadyExists = errors.New("already exists")
	// ErrAuthRequired is returned by authenticated operations when no
	// credential is held. Such operations never reach the server.
	ErrAuthRequired = errors.New("not authenticated")
)

// TransportError is a failure below the envelope: network errors, timeouts,
// an open circuit, or an HTTP status that is not 2xx.
type TransportError struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	switch {
	case e.Status != 0 && e.Message != "":
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.Message)
	case e.Status != 0:
		return fmt.Sprintf("%s: status %d", e.Op, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Op + ": transport failure"
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Unauthorized reports whether the server rejected the credential.
func (e *TransportError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized
}

// DomainError is a success:false envelope.
type DomainError struct {
	Status  int
	Message string
}

func (e *DomainError) Error() string {
	if e.Message == "" {
		return "request rejected"
	}
	return e.Message
}

// ValidationError is a local rejection made before any request is sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// AuthenticationError is returned when the server rejects a login.
type AuthenticationError struct {
	Message string
	Err     error
}

func (e *AuthenticationError) Error() string {
	if e.Message == "" {
		return "login failed"
	}
	return e.Message
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// RegistrationError is returned when the server rejects a registration.
type RegistrationError struct {
	Message string
	Err     error
}

func (e *RegistrationError) Error() string {
	if e.Message == "" {
		return "registration failed"
	}
	return e.Message
}

func (e *RegistrationError) Unwrap() error {
	return e.Err
}

// Message extracts the text to show a user for err: the server message for
// domain failures and rejected logins, the error text otherwise.
func Message(err error) string {
	var de *DomainError
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	var te *TransportError
	if errors.As(err, &te) && te.Message != "" {
		return te.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
