// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package auth0

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/hashicorp/go-multierror"

	sdkHttp "github.com/hashicorp/auth0callback/sdk/http"
)

// ClientSecret is an oauth client secret.
type ClientSecret string

// RedactedClientSecret is the redacted string or json for an oauth client secret
const RedactedClientSecret = "[REDACTED: client secret]"

// String will redact the client secret
func (t ClientSecret) String() string {
	return RedactedClientSecret
}

// MarshalJSON will redact the client secret
func (t ClientSecret) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedClientSecret)
}

const (
	// DefaultTokenAttributeKey is the session attribute holding the TokenPair
	// when no key is configured.
	DefaultTokenAttributeKey = "auth0tokens"

	// DefaultUserAttributeKey is the session attribute holding the Profile
	// when no key is configured.
	DefaultUserAttributeKey = "user"
)

// Config represents the configuration for the server side leg of an auth0
// authorization code flow. A Config is read-only once it's been validated and
// can be shared by concurrent requests.
type Config struct {
	// ClientId is the relying party id
	ClientId string

	// ClientSecret is the relying party secret
	ClientSecret ClientSecret

	// Domain is the tenant's host (and optional port), without scheme or
	// path. For example: "your-tenant.eu.auth0.com"
	Domain string

	// RedirectOnSuccess is where the caller is sent once the tokens and
	// profile are stored in their session.
	RedirectOnSuccess string

	// RedirectOnError is where the caller is sent when the callback fails
	// for any reason.
	RedirectOnError string

	// TokenAttributeKey is the session attribute used to store the TokenPair.
	TokenAttributeKey string

	// UserAttributeKey is the session attribute used to store the Profile.
	UserAttributeKey string

	// ProviderCA is an optional CA cert to use when sending requests to the provider.
	ProviderCA string

	// Timeout is an optional bound on each request sent to the provider.
	// When zero, sdk/http.DefaultTimeout is used.
	Timeout time.Duration
}

// NewConfig composes a new config for a provider.
//
// Supported options:
//   - WithTokenAttributeKey
//   - WithUserAttributeKey
//   - WithProviderCA
//   - WithTimeout
func NewConfig(domain, clientId string, clientSecret ClientSecret, redirectOnSuccess, redirectOnError string, opt ...Option) (*Config, error) {
	const op = "NewConfig"
	opts := getConfigOpts(opt...)
	c := &Config{
		ClientId:          clientId,
		ClientSecret:      clientSecret,
		Domain:            domain,
		RedirectOnSuccess: redirectOnSuccess,
		RedirectOnError:   redirectOnError,
		TokenAttributeKey: opts.withTokenAttributeKey,
		UserAttributeKey:  opts.withUserAttributeKey,
		ProviderCA:        opts.withProviderCA,
		Timeout:           opts.withTimeout,
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: invalid provider config: %w", op, err)
	}
	return c, nil
}

// Validate the configuration. All problems found are returned together. It
// doesn't verify the Domain is reachable.
func (c *Config) Validate() error {
	const op = "Config.Validate"
	if c == nil {
		return fmt.Errorf("%s: provider config is nil: %w", op, ErrNilParameter)
	}
	var result *multierror.Error
	if c.ClientId == "" {
		result = multierror.Append(result, fmt.Errorf("%s: client id is empty: %w", op, ErrInvalidParameter))
	}
	if c.ClientSecret == "" {
		result = multierror.Append(result, fmt.Errorf("%s: client secret is empty: %w", op, ErrInvalidParameter))
	}
	switch {
	case c.Domain == "":
		result = multierror.Append(result, fmt.Errorf("%s: domain is empty: %w", op, ErrInvalidParameter))
	default:
		u, err := url.Parse("https://" + c.Domain)
		if err != nil || u.Host != c.Domain || u.User != nil {
			result = multierror.Append(result, fmt.Errorf("%s: domain %q must be a host without scheme or path: %w", op, c.Domain, ErrInvalidParameter))
		}
	}
	for name, v := range map[string]string{
		"redirect on success": c.RedirectOnSuccess,
		"redirect on error":   c.RedirectOnError,
	} {
		if v == "" {
			result = multierror.Append(result, fmt.Errorf("%s: %s is empty: %w", op, name, ErrInvalidParameter))
			continue
		}
		if _, err := url.Parse(v); err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %s %q is not a valid url: %w", op, name, v, ErrInvalidParameter))
		}
	}
	if c.TokenAttributeKey == "" {
		result = multierror.Append(result, fmt.Errorf("%s: token attribute key is empty: %w", op, ErrInvalidParameter))
	}
	if c.UserAttributeKey == "" {
		result = multierror.Append(result, fmt.Errorf("%s: user attribute key is empty: %w", op, ErrInvalidParameter))
	}
	if c.TokenAttributeKey != "" && c.TokenAttributeKey == c.UserAttributeKey {
		result = multierror.Append(result, fmt.Errorf("%s: token and user attribute keys must differ: %w", op, ErrInvalidParameter))
	}
	if c.Timeout < 0 {
		result = multierror.Append(result, fmt.Errorf("%s: timeout is negative: %w", op, ErrInvalidParameter))
	}
	return result.ErrorOrNil()
}

// HttpClient is a helper function that creates a new http client for the
// provider configured
func (c *Config) HttpClient() (*http.Client, error) {
	const op = "Config.HttpClient"
	client, err := sdkHttp.NewClient(c.ProviderCA, c.Timeout)
	if err != nil {
		if errors.Is(err, sdkHttp.ErrInvalidCertificatePem) {
			return nil, fmt.Errorf("%s: could not parse CA PEM value: %w", op, ErrInvalidCACert)
		}
		return nil, fmt.Errorf("%s: could not get an http client: %w", op, err)
	}
	return client, nil
}

// endpoint returns the https url for the path on the configured domain.
func (c *Config) endpoint(path string) string {
	return fmt.Sprintf("https://%s%s", c.Domain, path)
}

// HttpClientContext is a helper function that returns a new Context that
// carries the provided HTTP client. This method sets the same context key used
// by the github.com/coreos/go-oidc and golang.org/x/oauth2 packages. A
// Provider will use the context's client instead of its own.
func HttpClientContext(ctx context.Context, client *http.Client) context.Context {
	// simple to implement as a wrapper for the coreos package
	return oidc.ClientContext(ctx, client)
}

// configOptions is the set of available options for Config functions
type configOptions struct {
	withTokenAttributeKey string
	withUserAttributeKey  string
	withProviderCA        string
	withTimeout           time.Duration
}

// configDefaults is a handy way to get the defaults at runtime and during unit
// tests.
func configDefaults() configOptions {
	return configOptions{
		withTokenAttributeKey: DefaultTokenAttributeKey,
		withUserAttributeKey:  DefaultUserAttributeKey,
	}
}

// getConfigOpts gets the defaults and applies the opt overrides passed in.
func getConfigOpts(opt ...Option) configOptions {
	opts := configDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithTokenAttributeKey provides an optional session attribute key for the
// TokenPair.
func WithTokenAttributeKey(k string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withTokenAttributeKey = k
		}
	}
}

// WithUserAttributeKey provides an optional session attribute key for the
// Profile.
func WithUserAttributeKey(k string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withUserAttributeKey = k
		}
	}
}

// WithProviderCA provides an optional CA cert for the provider's config
func WithProviderCA(cert string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withProviderCA = cert
		}
	}
}

// WithTimeout provides an optional timeout for requests to the provider.
func WithTimeout(d time.Duration) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withTimeout = d
		}
	}
}
