// Copyright (c) 2025 The snowdemo Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package connparams resolves warehouse connection parameters.
//
// Resolution order: when the container runtime has dropped a session token
// file, an OAuth parameter set is built from it; otherwise a PEM private key is
// loaded from SNOWFLAKE_PRIVATE_KEY_PATH, falling back to
// SNOWFLAKE_PRIVATE_KEY_PATH_2 when the primary cannot be read or parsed.
// Reusing an already-open session is decided one level up, in package warehouse.
package connparams

import (
	stderrors "errors"
	"log/slog"
	"os"
	"strings"

	"snowdemo/cli/internal/config"
	"snowdemo/cli/internal/errors"
	"snowdemo/cli/internal/logging"
)

// PassphraseFunc returns the private key passphrase. An empty string means the
// key is expected to be unencrypted.
type PassphraseFunc func() string

// Resolver builds connection parameters from warehouse settings and the filesystem.
type Resolver struct {
	Warehouse config.Warehouse
	// Passphrase supplies a stored passphrase. It is consulted only when
	// Warehouse.PrivateKeyPassphrase is empty and the key turns out to be
	// encrypted, so unencrypted keys keep working alongside a stored value.
	Passphrase PassphraseFunc
	Logger     *slog.Logger
}

// NewResolver creates a resolver for the given settings.
func NewResolver(w config.Warehouse) *Resolver {
	return &Resolver{Warehouse: w}
}

func (r *Resolver) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func (r *Resolver) tokenPath() string {
	if r.Warehouse.TokenPath != "" {
		return r.Warehouse.TokenPath
	}
	return config.DefaultTokenPath
}

// TokenPresent reports whether the OAuth token file exists.
func (r *Resolver) TokenPresent() bool {
	_, err := os.Stat(r.tokenPath())
	return err == nil
}

// Resolve returns OAuth parameters when the token file exists and key-pair
// parameters otherwise. Errors are returned as-is; there is no retry.
func (r *Resolver) Resolve() (*Params, error) {
	if r.TokenPresent() {
		return r.OAuth()
	}
	return r.KeyPair()
}

// LoginToken reads the short-lived token supplied by the container runtime.
// Tokens rotate, so callers read it right before opening each new connection.
func (r *Resolver) LoginToken() (string, error) {
	data, err := os.ReadFile(r.tokenPath())
	if err != nil {
		return "", errors.Wrap(errors.CredentialUnavailable, "read session token", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", errors.New(errors.CredentialUnavailable, "session token file is empty")
	}
	return token, nil
}

// OAuth builds the token-based parameter set.
func (r *Resolver) OAuth() (*Params, error) {
	token, err := r.LoginToken()
	if err != nil {
		return nil, err
	}
	w := r.Warehouse
	return &Params{
		Source:        SourceOAuth,
		Account:       w.Account,
		Host:          w.Host,
		Authenticator: AuthenticatorOAuth,
		Token:         token,
		Warehouse:     w.Warehouse,
		Database:      w.Database,
		Schema:        w.Schema,
	}, nil
}

// KeyPair builds the key-pair parameter set. The secondary key path is tried
// if and only if the primary one fails to read or parse, whatever the reason.
func (r *Resolver) KeyPair() (*Params, error) {
	w := r.Warehouse
	if w.Account == "" {
		return nil, errors.New(errors.ConfigInvalid, "SNOWFLAKE_ACCOUNT is not set")
	}

	var pass []byte
	if w.PrivateKeyPassphrase != "" {
		pass = []byte(w.PrivateKeyPassphrase)
	}

	der, used, err := r.loadKey(pass)
	if err != nil {
		return nil, errors.Wrap(errors.CredentialUnavailable, "load private key", err)
	}

	return &Params{
		Source:     SourceKeyPair,
		Account:    w.Account,
		User:       w.User,
		Role:       w.Role,
		Database:   w.Database,
		Schema:     w.Schema,
		Warehouse:  w.Warehouse,
		PrivateKey: der,
		KeyPath:    used,
	}, nil
}

func (r *Resolver) loadKey(pass []byte) ([]byte, string, error) {
	primary := r.Warehouse.PrivateKeyPath
	der, err := r.load(primary, pass)
	if err == nil {
		return der, primary, nil
	}

	secondary := r.Warehouse.PrivateKeyPath2
	r.logger().Debug("primary private key unusable, trying secondary",
		"primary", primary, "secondary", secondary, "error", logging.Mask(err.Error()))

	der, err2 := r.load(secondary, pass)
	if err2 != nil {
		return nil, "", stderrors.Join(err2, err)
	}
	return der, secondary, nil
}

// load reads one key file. Without an explicit passphrase the stored one is
// tried only after the key reports that it is encrypted.
func (r *Resolver) load(path string, pass []byte) ([]byte, error) {
	der, err := LoadPrivateKey(path, pass)
	if err == nil || pass != nil || r.Passphrase == nil {
		return der, err
	}
	var ke *KeyError
	if !stderrors.As(err, &ke) || ke.Reason != reasonNeedsPassphrase {
		return nil, err
	}
	stored := r.Passphrase()
	if stored == "" {
		return nil, err
	}
	return LoadPrivateKey(path, []byte(stored))
}
