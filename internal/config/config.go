// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridauth Contributors

// Package config resolves process-wide configuration once at startup.
// Precedence, lowest to highest: built-in defaults, yaml config file,
// command-line flags, environment variables for secrets.
package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/gridauth/gridauth/internal/auth"
)

// Config is the resolved process configuration. It is built once in
// the serve command and passed by reference into each component; no
// package-level singleton exists.
type Config struct {
	ListenAddr  string   `koanf:"listen_addr"`
	MetricsAddr string   `koanf:"metrics_addr"`
	PublicURL   string   `koanf:"public_url"`
	LogFormat   string   `koanf:"log_format"`
	CORSOrigins []string `koanf:"cors_origins"`

	Mongo  MongoConfig `koanf:"mongo"`
	Tokens TokenConfig `koanf:"tokens"`
	Mail   MailConfig  `koanf:"mail"`
}

// MongoConfig locates the credential store.
type MongoConfig struct {
	URL      string `koanf:"url"`
	Database string `koanf:"database"`
}

// TokenConfig holds the three signing keys. Each purpose has its own
// key; Keys() hands them to the token service, which rejects missing
// or reused keys.
type TokenConfig struct {
	SessionKey      string `koanf:"session_key"`
	ResetRequestKey string `koanf:"reset_request_key"`
	ResetConfirmKey string `koanf:"reset_confirm_key"`
}

// Keys converts the configured strings into auth.TokenKeys.
func (t TokenConfig) Keys() auth.TokenKeys {
	return auth.TokenKeys{
		Session:      []byte(t.SessionKey),
		ResetRequest: []byte(t.ResetRequestKey),
		ResetConfirm: []byte(t.ResetConfirmKey),
	}
}

// MailConfig configures reset-link delivery. Disabled short-circuits
// dispatch to a log-only sender for non-production environments.
type MailConfig struct {
	Sender   string `koanf:"sender"`
	SMTPAddr string `koanf:"smtp_addr"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	Disabled bool   `koanf:"disabled"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		ListenAddr:  ":8080",
		MetricsAddr: "127.0.0.1:9100",
		LogFormat:   "json",
		Mongo: MongoConfig{
			Database: "gridauth",
		},
		Mail: MailConfig{
			SMTPAddr: "localhost:25",
		},
	}
}

// envOverrides maps environment variables onto config keys. Secrets
// come from the environment so they never land in a config file.
var envOverrides = map[string]func(*Config, string){
	"GRIDAUTH_MONGO_URL":         func(c *Config, v string) { c.Mongo.URL = v },
	"GRIDAUTH_SESSION_KEY":       func(c *Config, v string) { c.Tokens.SessionKey = v },
	"GRIDAUTH_RESET_REQUEST_KEY": func(c *Config, v string) { c.Tokens.ResetRequestKey = v },
	"GRIDAUTH_RESET_CONFIRM_KEY": func(c *Config, v string) { c.Tokens.ResetConfirmKey = v },
	"GRIDAUTH_SMTP_PASSWORD":     func(c *Config, v string) { c.Mail.Password = v },
}

// Load resolves configuration from the optional yaml file at path, the
// given flag set, and the environment.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("path", path).
				Wrap(err)
		}
	}

	if flags != nil {
		// Flag names use dashes; config keys use underscores.
		provider := posflag.ProviderWithValue(flags, ".", k, func(key, value string) (string, any) {
			return strings.ReplaceAll(key, "-", "_"), value
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("source", "flags").
				Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}

	for name, apply := range envOverrides {
		if v := os.Getenv(name); v != "" {
			apply(cfg, v)
		}
	}

	return cfg, nil
}

// Validate checks the parts every deployment needs. Signing-key
// distinctness is enforced again by auth.TokenKeys.Validate at wiring.
func (c *Config) Validate() error {
	if c.Mongo.URL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("mongo.url is required (or set GRIDAUTH_MONGO_URL)")
	}
	if err := c.Tokens.Keys().Validate(); err != nil {
		return err
	}
	if !c.Mail.Disabled && c.Mail.Sender == "" {
		return oops.Code("CONFIG_INVALID").Errorf("mail.sender is required unless mail.disabled is set")
	}
	return nil
}
