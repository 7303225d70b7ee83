// Package errors defines typed errors with categories for user-friendly reporting.
// It provides a structured approach to error handling with machine-readable error kinds
// and human-friendly messages, so commands can tell a missing credential apart from a
// warehouse that refused the call.
//
// The package supports wrapping underlying errors while maintaining error kind information.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// ConfigInvalid indicates a missing or malformed configuration value.
	ConfigInvalid Kind = "config_invalid"
	// CredentialUnavailable indicates a token or private key could not be loaded.
	CredentialUnavailable Kind = "credential_unavailable"
	// SessionFailed indicates the warehouse session could not be opened.
	SessionFailed Kind = "session_failed"
	// RemoteCallFailed indicates the warehouse or model call itself failed.
	RemoteCallFailed Kind = "remote_call_failed"
	// DAGInvalid indicates a task graph that cannot be deployed.
	DAGInvalid Kind = "dag_invalid"
)

// E wraps an error with kind and human-friendly message.
type E struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *E) Unwrap() error { return e.Err }

func Wrap(kind Kind, msg string, err error) *E { return &E{Kind: kind, Message: msg, Err: err} }
func New(kind Kind, msg string) *E             { return &E{Kind: kind, Message: msg} }

// KindOf returns the kind of the first *E in err's chain, or "" when there is none.
func KindOf(err error) Kind {
	var e *E
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}
