// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package config resolves the auth0 client configuration once at startup.
//
// Every key is looked up in two tiers: first under handlers.<name>, the
// override for a single deployment unit, then at the top level, the
// application wide default. For example, with the handler "callback":
//
//	handlers.callback.auth0.domain
//	auth0.domain
//
// Environment variables with the AUTH0_CALLBACK prefix override the config
// file, with "." replaced by "_". For example:
// AUTH0_CALLBACK_HANDLERS_CALLBACK_AUTH0_DOMAIN or AUTH0_CALLBACK_AUTH0_DOMAIN.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/auth0callback/auth0"
	"github.com/hashicorp/auth0callback/internal/strutils"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/viper"
)

// ErrMissingKey is returned when a required key has no value in either tier.
var ErrMissingKey = errors.New("missing configuration key")

const (
	// EnvPrefix is the prefix of environment variable overrides.
	EnvPrefix = "AUTH0_CALLBACK"

	// HandlersKey is the root of the per handler overrides.
	HandlersKey = "handlers"
)

// Configuration keys.
const (
	KeyClientId          = "auth0.client_id"
	KeyClientSecret      = "auth0.client_secret"
	KeyDomain            = "auth0.domain"
	KeyRedirectOnSuccess = "auth0.redirect_on_success"
	KeyRedirectOnError   = "auth0.redirect_on_error"
	KeyTokenAttributeKey = "auth0.token_attribute_key"
	KeyUserAttributeKey  = "auth0.user_attribute_key"
	KeyProviderCA        = "auth0.provider_ca"
	KeyHttpTimeout       = "auth0.http_timeout"
)

// Load returns a viper instance reading the yaml config file at path, with
// environment overrides enabled. When path is empty, auth0-callback.yaml is
// searched for in the working directory and /etc/auth0-callback and it's not
// an error if none is found.
//
// Supported options:
//   - WithLogger
func Load(path string, opt ...auth0.Option) (*viper.Viper, error) {
	const op = "config.Load"
	opts := getOpts(opt...)
	logger := opts.withLogger.Named("config")

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetConfigType("yaml")
	switch path {
	case "":
		v.SetConfigName("auth0-callback")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/auth0-callback")
	default:
		v.SetConfigFile(path)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("%s: unable to read config: %w", op, err)
		}
		logger.Debug("no config file found, using the environment only")
		return v, nil
	}
	logger.Debug("config file loaded", "path", v.ConfigFileUsed())
	return v, nil
}

// Lookup returns the trimmed value of key for the handler, falling back to
// the top level key. The bool is false when neither tier has a value.
func Lookup(v *viper.Viper, handler, key string) (string, bool) {
	if v == nil {
		return "", false
	}
	if handler != "" {
		if s := v.GetString(HandlersKey + "." + handler + "." + key); strutils.HasValue(s) {
			return strings.TrimSpace(s), true
		}
	}
	if s := v.GetString(key); strutils.HasValue(s) {
		return strings.TrimSpace(s), true
	}
	return "", false
}

// Resolve builds the auth0.Config for the handler. Every missing required
// key is reported in the returned error, which matches ErrMissingKey.
//
// Supported options:
//   - WithLogger
func Resolve(v *viper.Viper, handler string, opt ...auth0.Option) (*auth0.Config, error) {
	const op = "config.Resolve"
	if v == nil {
		return nil, fmt.Errorf("%s: viper is nil: %w", op, auth0.ErrNilParameter)
	}
	opts := getOpts(opt...)
	logger := opts.withLogger.Named("config")

	var result *multierror.Error
	required := func(key string) string {
		s, ok := Lookup(v, handler, key)
		if !ok {
			result = multierror.Append(result, fmt.Errorf("%s: %w", key, ErrMissingKey))
		}
		return s
	}
	clientId := required(KeyClientId)
	clientSecret := required(KeyClientSecret)
	domain := required(KeyDomain)
	onSuccess := required(KeyRedirectOnSuccess)
	onError := required(KeyRedirectOnError)
	tokenKey := required(KeyTokenAttributeKey)
	userKey := required(KeyUserAttributeKey)

	var timeout time.Duration
	if s, ok := Lookup(v, handler, KeyHttpTimeout); ok {
		d, err := time.ParseDuration(s)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w: %w", KeyHttpTimeout, auth0.ErrInvalidParameter, err))
		}
		timeout = d
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, fmt.Errorf("%s: handler %q: %w", op, handler, err)
	}

	ca, _ := Lookup(v, handler, KeyProviderCA)
	c, err := auth0.NewConfig(domain, clientId, auth0.ClientSecret(clientSecret), onSuccess, onError,
		auth0.WithTokenAttributeKey(tokenKey),
		auth0.WithUserAttributeKey(userKey),
		auth0.WithProviderCA(ca),
		auth0.WithTimeout(timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: handler %q: %w", op, handler, err)
	}
	logger.Debug("resolved auth0 config",
		"handler", handler,
		"domain", c.Domain,
		"client_id", c.ClientId,
		"client_secret", c.ClientSecret.String(),
		"redirect_on_success", c.RedirectOnSuccess,
		"redirect_on_error", c.RedirectOnError,
		"token_attribute_key", c.TokenAttributeKey,
		"user_attribute_key", c.UserAttributeKey,
		"provider_ca", c.ProviderCA != "",
		"http_timeout", c.Timeout,
	)
	return c, nil
}

type options struct {
	withLogger hclog.Logger
}

func getOpts(opt ...auth0.Option) options {
	opts := options{withLogger: hclog.NewNullLogger()}
	auth0.ApplyOpts(&opts, opt...)
	return opts
}

// WithLogger provides an optional logger.
func WithLogger(l hclog.Logger) auth0.Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok && l != nil {
			o.withLogger = l
		}
	}
}
