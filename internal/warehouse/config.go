// Copyright (c) 2025 The snowdemo Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package warehouse

import (
	"crypto/rsa"
	"crypto/x509"
	"fmt"

	"snowdemo/cli/internal/connparams"
	"snowdemo/cli/internal/errors"

	sf "github.com/snowflakedb/gosnowflake"
)

// driverConfig maps resolved parameters onto the driver's configuration.
func driverConfig(p *connparams.Params) (*sf.Config, error) {
	if p == nil {
		return nil, errors.New(errors.ConfigInvalid, "no connection parameters")
	}
	if p.Account == "" && p.Host == "" {
		return nil, errors.New(errors.ConfigInvalid, "SNOWFLAKE_ACCOUNT or SNOWFLAKE_HOST must be set")
	}

	cfg := &sf.Config{
		Account:   p.Account,
		User:      p.User,
		Role:      p.Role,
		Database:  p.Database,
		Schema:    p.Schema,
		Warehouse: p.Warehouse,
		Host:      p.Host,
	}
	if p.Host != "" {
		cfg.Port = 443
		cfg.Protocol = "https"
	}

	switch p.Source {
	case connparams.SourceOAuth:
		cfg.Authenticator = sf.AuthTypeOAuth
		cfg.Token = p.Token
	case connparams.SourceKeyPair:
		key, err := rsaKey(p.PrivateKey)
		if err != nil {
			return nil, errors.Wrap(errors.CredentialUnavailable, "decode private key", err)
		}
		cfg.Authenticator = sf.AuthTypeJwt
		cfg.PrivateKey = key
	default:
		return nil, errors.New(errors.ConfigInvalid, fmt.Sprintf("unknown parameter source %q", p.Source))
	}
	return cfg, nil
}

func rsaKey(der []byte) (*rsa.PrivateKey, error) {
	if len(der) == 0 {
		return nil, fmt.Errorf("private key is empty")
	}
	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, err
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is %T, want RSA", parsed)
	}
	return key, nil
}
