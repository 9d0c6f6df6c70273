// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package auth0

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/hashicorp/go-hclog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"
)

const (
	authorizePath = "/authorize"
	tokenPath     = "/oauth/token"
	userInfoPath  = "/userinfo"

	jsonContentType = "application/json; charset=UTF-8"

	// tracerName identifies the spans created by a Provider.
	tracerName = "github.com/hashicorp/auth0callback/auth0"
)

// Provider provides integration with an auth0 tenant for the server side leg
// of the authorization code flow: building the authorize url, exchanging the
// code for tokens and fetching the user's profile.
//
// A Provider holds no per-request state and is safe for concurrent use.
type Provider struct {
	config *Config
	client *http.Client
	logger hclog.Logger
	tracer trace.Tracer
}

// NewProvider creates and initializes a Provider. Unlike oidc discovery, no
// request is sent to the provider.
//
// Supported options:
//   - WithLogger
//   - WithTracerProvider
func NewProvider(c *Config, opt ...Option) (*Provider, error) {
	const op = "NewProvider"
	if c == nil {
		return nil, fmt.Errorf("%s: provider config is nil: %w", op, ErrNilParameter)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: provider config is invalid: %w", op, err)
	}
	opts := getProviderOpts(opt...)

	client, err := c.HttpClient()
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create http client: %w", op, err)
	}
	cfg := *c
	return &Provider{
		config: &cfg,
		client: client,
		logger: opts.withLogger.Named("auth0"),
		tracer: opts.withTracerProvider.Tracer(tracerName),
	}, nil
}

// Config returns a copy of the provider's configuration.
func (p *Provider) Config() *Config {
	cfg := *p.config
	return &cfg
}

// Endpoint returns the tenant's oauth2 endpoints.
func (p *Provider) Endpoint() oauth2.Endpoint {
	return oauth2.Endpoint{
		AuthURL:   p.config.endpoint(authorizePath),
		TokenURL:  p.config.endpoint(tokenPath),
		AuthStyle: oauth2.AuthStyleInParams,
	}
}

// AuthURL will generate a URL the caller can use to kick off an
// authorization code flow with the tenant. The redirectURI is where the
// provider sends the user (with the code and state) once they've
// authenticated; it must be registered with the tenant.
//
// See NewState() to create the state.
func (p *Provider) AuthURL(ctx context.Context, state, redirectURI string) (string, error) {
	const op = "Provider.AuthURL"
	if state == "" {
		return "", fmt.Errorf("%s: state is empty: %w", op, ErrInvalidParameter)
	}
	if redirectURI == "" {
		return "", fmt.Errorf("%s: redirect uri is empty: %w", op, ErrInvalidParameter)
	}
	oauth2Config := oauth2.Config{
		ClientID:     p.config.ClientId,
		ClientSecret: string(p.config.ClientSecret),
		RedirectURL:  redirectURI,
		Endpoint:     p.Endpoint(),
		Scopes:       []string{oidc.ScopeOpenID},
	}
	return oauth2Config.AuthCodeURL(state), nil
}

// tokenRequest is the body sent to the token endpoint.
type tokenRequest struct {
	Code         string `json:"code"`
	ClientId     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	GrantType    string `json:"grant_type"`
	RedirectUri  string `json:"redirect_uri"`
}

// Exchange will request tokens from the tenant's token endpoint using the
// authorizationCode received by the callback. The redirectURI must be the
// exact url the provider redirected the user to, or the provider will reject
// the exchange.
//
// Every failure matches ErrTokenExchange. When the provider answered with a
// status other than 200, the error also unwraps to a *ProviderError.
func (p *Provider) Exchange(ctx context.Context, authorizationCode, redirectURI string) (*TokenPair, error) {
	const op = "Provider.Exchange"
	if authorizationCode == "" {
		return nil, fmt.Errorf("%s: authorization code is empty: %w", op, ErrInvalidParameter)
	}
	if redirectURI == "" {
		return nil, fmt.Errorf("%s: redirect uri is empty: %w", op, ErrInvalidParameter)
	}
	ctx, span := p.startSpan(ctx, op)
	defer span.End()

	p.logger.Debug("exchanging authorization code", "domain", p.config.Domain, "redirect_uri", redirectURI)
	reply, err := p.postJSON(ctx, p.config.endpoint(tokenPath), tokenRequest{
		Code:         authorizationCode,
		ClientId:     p.config.ClientId,
		ClientSecret: string(p.config.ClientSecret),
		GrantType:    "authorization_code",
		RedirectUri:  redirectURI,
	})
	if err != nil {
		err = fmt.Errorf("%s: %w: %w", op, ErrTokenExchange, err)
		recordError(span, err)
		return nil, err
	}

	idToken, _ := reply["id_token"].(string)
	accessToken, _ := reply["access_token"].(string)
	t, err := NewTokenPair(IdToken(idToken), AccessToken(accessToken))
	if err != nil {
		err = fmt.Errorf("%s: provider did not return both tokens: %w: %w", op, ErrTokenExchange, err)
		recordError(span, err)
		return nil, err
	}
	return t, nil
}

// UserInfo retrieves the user's profile from the tenant's userinfo endpoint.
// The access token is sent as a query parameter.
//
// Every failure matches ErrProfileFetch. When the provider answered with a
// status other than 200, the error also unwraps to a *ProviderError.
func (p *Provider) UserInfo(ctx context.Context, accessToken AccessToken) (*Profile, error) {
	const op = "Provider.UserInfo"
	if accessToken == "" {
		return nil, fmt.Errorf("%s: access token is empty: %w", op, ErrInvalidParameter)
	}
	ctx, span := p.startSpan(ctx, op)
	defer span.End()

	q := url.Values{}
	q.Set("access_token", string(accessToken))
	u := p.config.endpoint(userInfoPath) + "?" + q.Encode()

	p.logger.Debug("fetching user profile", "domain", p.config.Domain)
	raw, err := p.get(ctx, u)
	if err != nil {
		err = fmt.Errorf("%s: %w: %w", op, ErrProfileFetch, err)
		recordError(span, err)
		return nil, err
	}
	profile := NewProfile(raw)
	if _, err := profile.document(); err != nil {
		err = fmt.Errorf("%s: %w: %w", op, ErrProfileFetch, err)
		recordError(span, err)
		return nil, err
	}
	return profile, nil
}

// postJSON sends the body as json and decodes the 200 reply into a json
// object.
func (p *Provider) postJSON(ctx context.Context, endpoint string, body interface{}) (map[string]interface{}, error) {
	const op = "Provider.postJSON"
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to encode request: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create request: %w", op, err)
	}
	req.Header.Set("Content-Type", jsonContentType)
	req.Header.Set("Accept", "application/json")

	respBody, err := p.do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var reply map[string]interface{}
	if err := json.Unmarshal(respBody, &reply); err != nil {
		return nil, fmt.Errorf("%s: unable to decode response: %w", op, err)
	}
	if reply == nil {
		return nil, fmt.Errorf("%s: response is not a json object: %w", op, ErrInvalidParameter)
	}
	return reply, nil
}

// get returns the body of a 200 reply.
func (p *Provider) get(ctx context.Context, endpoint string) ([]byte, error) {
	const op = "Provider.get"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	b, err := p.do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return b, nil
}

// do sends the request and reads the whole response body. Any status other
// than 200 is returned as a *ProviderError.
func (p *Provider) do(ctx context.Context, req *http.Request) ([]byte, error) {
	const op = "Provider.do"
	resp, err := p.httpClient(ctx).Do(req)
	if err != nil {
		// the url may carry an access token
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			urlErr.URL = redactQuery(urlErr.URL)
		}
		return nil, fmt.Errorf("%s: request failed: %w", op, err)
	}
	defer resp.Body.Close()

	trace.SpanFromContext(ctx).SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to read response: %w", op, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: %w", op, newProviderError(resp, body))
	}
	return body, nil
}

// httpClient returns the client carried by the context (see
// HttpClientContext), or the provider's client.
func (p *Provider) httpClient(ctx context.Context) *http.Client {
	if c, ok := ctx.Value(oauth2.HTTPClient).(*http.Client); ok && c != nil {
		return c
	}
	return p.client
}

func (p *Provider) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("auth0.domain", p.config.Domain)),
	)
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// newProviderError builds a ProviderError from a non-200 response. The body is
// inspected for the oauth2 error fields, and for the "message" field auth0
// uses on some endpoints.
func newProviderError(resp *http.Response, body []byte) *ProviderError {
	pe := &ProviderError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
	}
	var reply struct {
		Error       string `json:"error"`
		Description string `json:"error_description"`
		Message     string `json:"message"`
	}
	if err := json.Unmarshal(body, &reply); err == nil {
		pe.ErrorCode = reply.Error
		pe.Description = reply.Description
		if pe.Description == "" {
			pe.Description = reply.Message
		}
	}
	return pe
}

// redactQuery removes the query from a url string.
func redactQuery(s string) string {
	u, err := url.Parse(s)
	if err != nil {
		return "[REDACTED: url]"
	}
	if u.RawQuery != "" {
		u.RawQuery = "redacted"
	}
	return u.String()
}

// providerOptions is the set of available options for Provider functions
type providerOptions struct {
	withLogger         hclog.Logger
	withTracerProvider trace.TracerProvider
}

// providerDefaults is a handy way to get the defaults at runtime and during
// unit tests.
func providerDefaults() providerOptions {
	return providerOptions{
		withLogger:         hclog.NewNullLogger(),
		withTracerProvider: otel.GetTracerProvider(),
	}
}

// getProviderOpts gets the defaults and applies the opt overrides passed in.
func getProviderOpts(opt ...Option) providerOptions {
	opts := providerDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithLogger provides an optional logger.
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*providerOptions); ok && l != nil {
			o.withLogger = l
		}
	}
}

// WithTracerProvider provides an optional OpenTelemetry tracer provider. The
// global provider is used by default.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o interface{}) {
		if o, ok := o.(*providerOptions); ok && tp != nil {
			o.withTracerProvider = tp
		}
	}
}
