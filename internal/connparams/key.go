// Copyright (c) 2025 The snowdemo Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package connparams

import (
	"crypto/rsa"
	"encoding/pem"
	"os"
	"strings"

	"github.com/youmark/pkcs8"
	"golang.org/x/crypto/ssh"
)

const reasonNeedsPassphrase = "key is encrypted but no passphrase was provided"

// LoadPrivateKey reads a PEM-encoded RSA private key and returns it as
// unencrypted DER/PKCS#8, the form key-pair authentication expects.
// An empty passphrase means the key must not be encrypted.
func LoadPrivateKey(path string, passphrase []byte) ([]byte, error) {
	if strings.TrimSpace(path) == "" {
		return nil, NewKeyError(path, "path is empty", "set SNOWFLAKE_PRIVATE_KEY_PATH (and optionally SNOWFLAKE_PRIVATE_KEY_PATH_2)", nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewKeyError(path, "cannot read file", "", err)
	}
	key, err := ParsePrivateKey(data, passphrase)
	if err != nil {
		if ke, ok := err.(*KeyError); ok {
			ke.Path = path
			return nil, ke
		}
		return nil, NewKeyError(path, "cannot parse key", "", err)
	}
	der, err := pkcs8.MarshalPrivateKey(key, nil, nil)
	if err != nil {
		return nil, NewKeyError(path, "cannot encode key as PKCS#8", "", err)
	}
	return der, nil
}

// ParsePrivateKey decodes PEM data holding an RSA key in PKCS#8 (plain or
// encrypted), PKCS#1 or OpenSSH form.
func ParsePrivateKey(data []byte, passphrase []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, NewKeyError("", "no PEM block found", "the file must start with -----BEGIN ... PRIVATE KEY-----", nil)
	}

	var (
		raw any
		err error
	)
	switch block.Type {
	case "ENCRYPTED PRIVATE KEY":
		if len(passphrase) == 0 {
			return nil, NewKeyError("", reasonNeedsPassphrase, "set SNOWFLAKE_PRIVATE_KEY_PASSPHRASE", nil)
		}
		raw, err = pkcs8.ParsePKCS8PrivateKey(block.Bytes, passphrase)
	case "PRIVATE KEY":
		if len(passphrase) != 0 {
			return nil, NewKeyError("", "passphrase given but key is not encrypted", "unset SNOWFLAKE_PRIVATE_KEY_PASSPHRASE", nil)
		}
		raw, err = pkcs8.ParsePKCS8PrivateKey(block.Bytes)
	case "RSA PRIVATE KEY", "OPENSSH PRIVATE KEY":
		if len(passphrase) != 0 {
			raw, err = ssh.ParseRawPrivateKeyWithPassphrase(data, passphrase)
		} else {
			raw, err = ssh.ParseRawPrivateKey(data)
		}
	default:
		return nil, NewKeyError("", "unsupported PEM block "+block.Type, "", nil)
	}
	if err != nil {
		return nil, NewKeyError("", "cannot decrypt or decode key", "", err)
	}

	switch k := raw.(type) {
	case *rsa.PrivateKey:
		return k, nil
	default:
		return nil, NewKeyError("", "key-pair authentication requires an RSA key", "generate one with: openssl genrsa 2048 | openssl pkcs8 -topk8 -v2 des3", nil)
	}
}
