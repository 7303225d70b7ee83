// Copyright (c) 2025 The snowdemo Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package connparams

import (
	"fmt"
)

// Source identifies which authentication branch produced a parameter set.
type Source string

const (
	// SourceOAuth means the container-provided session token was found.
	SourceOAuth Source = "oauth"
	// SourceKeyPair means a PEM private key was loaded from disk.
	SourceKeyPair Source = "keypair"
)

// AuthenticatorOAuth is the authenticator value of an OAuth parameter set.
const AuthenticatorOAuth = "oauth"

// Params is a resolved set of warehouse connection parameters.
type Params struct {
	Source Source

	Account   string
	Host      string
	User      string
	Role      string
	Database  string
	Schema    string
	Warehouse string

	// Authenticator is "oauth" for token sessions and empty for key-pair sessions.
	Authenticator string
	Token         string

	// PrivateKey holds the unencrypted key as DER-encoded PKCS#8.
	PrivateKey []byte
	// KeyPath is the file the private key was read from.
	KeyPath string
}

// Map returns the parameter set in the shape the warehouse session builder
// consumes. OAuth and key-pair sets carry different keys.
func (p *Params) Map() map[string]any {
	if p.Source == SourceOAuth {
		return map[string]any{
			"account":       p.Account,
			"host":          p.Host,
			"authenticator": p.Authenticator,
			"token":         p.Token,
			"warehouse":     p.Warehouse,
			"database":      p.Database,
			"schema":        p.Schema,
		}
	}
	return map[string]any{
		"account":     p.Account,
		"user":        p.User,
		"role":        p.Role,
		"database":    p.Database,
		"schema":      p.Schema,
		"warehouse":   p.Warehouse,
		"private_key": p.PrivateKey,
	}
}

// Masked returns a display-safe rendering of Map with secrets redacted.
func (p *Params) Masked() map[string]string {
	out := make(map[string]string, 8)
	for k, v := range p.Map() {
		switch k {
		case "token":
			out[k] = redact(len(p.Token))
		case "private_key":
			out[k] = fmt.Sprintf("<%d bytes PKCS#8 from %s>", len(p.PrivateKey), p.KeyPath)
		default:
			out[k] = fmt.Sprint(v)
		}
	}
	return out
}

func redact(n int) string {
	if n == 0 {
		return ""
	}
	return "***"
}

// KeyError represents a failure to read or decode a private key file.
type KeyError struct {
	Path   string
	Reason string
	Hint   string
	Err    error
}

func (e *KeyError) Error() string {
	msg := fmt.Sprintf("private key %q: %s", e.Path, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Hint != "" {
		msg += "\nHint: " + e.Hint
	}
	return msg
}

func (e *KeyError) Unwrap() error { return e.Err }

// NewKeyError creates a new KeyError.
func NewKeyError(path, reason, hint string, err error) *KeyError {
	return &KeyError{
		Path:   path,
		Reason: reason,
		Hint:   hint,
		Err:    err,
	}
}
