// Package source holds the error types shared by the mail and model
// adapters.
package source

import (
	"errors"
	"fmt"
)

// Kind identifies which external service an error came from.
type Kind string

const (
	KindIMAP Kind = "imap"
	KindSMTP Kind = "smtp"
	KindLLM  Kind = "llm"
)

// AuthError indicates that a service rejected the configured credentials.
type AuthError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%s): %s", e.Kind, e.Message)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// ConnectError indicates that a service could not be reached.
type ConnectError struct {
	Kind Kind
	Addr string
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connecting to %s %s: %v", e.Kind, e.Addr, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// ParseError indicates that a fetched message could not be decoded.
// Readers log and skip these rather than failing the fetch.
type ParseError struct {
	SeqNum uint32
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing message %d: %v", e.SeqNum, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// UpstreamError indicates that the language model service returned a
// failure response.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}
