// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package auth0

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

const testRedirectURI = "https://example.com/auth0-callback/"

func testNewProvider(t *testing.T, tp *TestProvider, opt ...Option) *Provider {
	t.Helper()
	p, err := NewProvider(tp.Config("/ok", "/failed"), opt...)
	require.NoError(t, err)
	return p
}

func TestNewProvider(t *testing.T) {
	t.Parallel()
	tp := StartTestProvider(t)

	t.Run("valid", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		c := tp.Config("/ok", "/failed")
		p, err := NewProvider(c, WithLogger(hclog.NewNullLogger()))
		require.NoError(err)
		assert.Equal(c, p.Config())
		assert.NotSame(c, p.Config())
		assert.Equal("https://"+tp.Domain()+"/authorize", p.Endpoint().AuthURL)
		assert.Equal("https://"+tp.Domain()+"/oauth/token", p.Endpoint().TokenURL)
	})
	t.Run("nil-config", func(t *testing.T) {
		assert := assert.New(t)
		p, err := NewProvider(nil)
		assert.ErrorIs(err, ErrNilParameter)
		assert.Nil(p)
	})
	t.Run("invalid-config", func(t *testing.T) {
		assert := assert.New(t)
		c := tp.Config("/ok", "/failed")
		c.ClientId = ""
		p, err := NewProvider(c)
		assert.ErrorIs(err, ErrInvalidParameter)
		assert.Nil(p)
	})
	t.Run("invalid-ca", func(t *testing.T) {
		assert := assert.New(t)
		c := tp.Config("/ok", "/failed")
		c.ProviderCA = "not a pem"
		p, err := NewProvider(c)
		assert.ErrorIs(err, ErrInvalidCACert)
		assert.Nil(p)
	})
}

func TestProvider_AuthURL(t *testing.T) {
	t.Parallel()
	tp := StartTestProvider(t)
	p := testNewProvider(t, tp)
	ctx := context.Background()

	t.Run("valid", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		got, err := p.AuthURL(ctx, "st_123", testRedirectURI)
		require.NoError(err)
		u, err := url.Parse(got)
		require.NoError(err)
		assert.Equal(tp.Domain(), u.Host)
		assert.Equal("/authorize", u.Path)
		clientID, _ := tp.ClientCreds()
		q := u.Query()
		assert.Equal(clientID, q.Get("client_id"))
		assert.Equal(testRedirectURI, q.Get("redirect_uri"))
		assert.Equal("code", q.Get("response_type"))
		assert.Equal("openid", q.Get("scope"))
		assert.Equal("st_123", q.Get("state"))
		assert.Empty(q.Get("client_secret"))

		// the test provider redirects back with the state and a code
		client := tp.HTTPClient()
		client.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
		resp, err := client.Get(got)
		require.NoError(err)
		defer resp.Body.Close()
		require.Equal(http.StatusFound, resp.StatusCode)
		loc, err := url.Parse(resp.Header.Get("Location"))
		require.NoError(err)
		assert.Equal("st_123", loc.Query().Get("state"))
		assert.Equal("test-code", loc.Query().Get("code"))
	})
	t.Run("missing-state", func(t *testing.T) {
		assert := assert.New(t)
		_, err := p.AuthURL(ctx, "", testRedirectURI)
		assert.ErrorIs(err, ErrInvalidParameter)
	})
	t.Run("missing-redirect", func(t *testing.T) {
		assert := assert.New(t)
		_, err := p.AuthURL(ctx, "st_123", "")
		assert.ErrorIs(err, ErrInvalidParameter)
	})
}

func TestProvider_Exchange(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name             string
		setup            func(tp *TestProvider)
		code             string
		redirectURI      string
		wantIdToken      IdToken
		wantAccessToken  AccessToken
		wantErr          bool
		wantIsErr        []error
		wantStatus       int
		wantErrorCode    string
		wantTokenRequest int
	}{
		{
			name:             "valid",
			code:             "test-code",
			redirectURI:      testRedirectURI,
			wantTokenRequest: 1,
		},
		{
			name: "fixed-reply",
			setup: func(tp *TestProvider) {
				tp.SetTokenReplyRaw(`{"access_token":"A","id_token":"B"}`)
			},
			code:             "test-code",
			redirectURI:      testRedirectURI,
			wantIdToken:      "B",
			wantAccessToken:  "A",
			wantTokenRequest: 1,
		},
		{
			name:             "empty-code",
			redirectURI:      testRedirectURI,
			wantErr:          true,
			wantIsErr:        []error{ErrInvalidParameter},
			wantTokenRequest: 0,
		},
		{
			name:             "empty-redirect",
			code:             "test-code",
			wantErr:          true,
			wantIsErr:        []error{ErrInvalidParameter},
			wantTokenRequest: 0,
		},
		{
			name:             "omit-id-token",
			setup:            func(tp *TestProvider) { tp.OmitIDToken() },
			code:             "test-code",
			redirectURI:      testRedirectURI,
			wantErr:          true,
			wantIsErr:        []error{ErrTokenExchange, ErrMissingIdToken},
			wantTokenRequest: 1,
		},
		{
			name:             "omit-access-token",
			setup:            func(tp *TestProvider) { tp.OmitAccessToken() },
			code:             "test-code",
			redirectURI:      testRedirectURI,
			wantErr:          true,
			wantIsErr:        []error{ErrTokenExchange, ErrMissingAccessToken},
			wantTokenRequest: 1,
		},
		{
			name: "error-shaped-success",
			setup: func(tp *TestProvider) {
				tp.SetTokenReplyRaw(`{"error":"server_error","error_description":"boom"}`)
			},
			code:             "test-code",
			redirectURI:      testRedirectURI,
			wantErr:          true,
			wantIsErr:        []error{ErrTokenExchange, ErrMissingIdToken},
			wantTokenRequest: 1,
		},
		{
			name:             "non-string-tokens",
			setup:            func(tp *TestProvider) { tp.SetTokenReplyRaw(`{"access_token":1,"id_token":true}`) },
			code:             "test-code",
			redirectURI:      testRedirectURI,
			wantErr:          true,
			wantIsErr:        []error{ErrTokenExchange},
			wantTokenRequest: 1,
		},
		{
			name:             "not-json",
			setup:            func(tp *TestProvider) { tp.SetTokenReplyRaw(`<html>oops</html>`) },
			code:             "test-code",
			redirectURI:      testRedirectURI,
			wantErr:          true,
			wantIsErr:        []error{ErrTokenExchange},
			wantTokenRequest: 1,
		},
		{
			name:             "json-null",
			setup:            func(tp *TestProvider) { tp.SetTokenReplyRaw(`null`) },
			code:             "test-code",
			redirectURI:      testRedirectURI,
			wantErr:          true,
			wantIsErr:        []error{ErrTokenExchange},
			wantTokenRequest: 1,
		},
		{
			name:             "wrong-code",
			code:             "bad-code",
			redirectURI:      testRedirectURI,
			wantErr:          true,
			wantIsErr:        []error{ErrTokenExchange},
			wantStatus:       http.StatusForbidden,
			wantErrorCode:    "invalid_grant",
			wantTokenRequest: 1,
		},
		{
			name:             "redirect-not-allowed",
			code:             "test-code",
			redirectURI:      "https://evil.example.com/callback",
			wantErr:          true,
			wantIsErr:        []error{ErrTokenExchange},
			wantStatus:       http.StatusForbidden,
			wantErrorCode:    "unauthorized_client",
			wantTokenRequest: 1,
		},
		{
			name:             "wrong-client-creds",
			setup:            func(tp *TestProvider) { tp.SetClientCreds("test-client-id", "rotated") },
			code:             "test-code",
			redirectURI:      testRedirectURI,
			wantErr:          true,
			wantIsErr:        []error{ErrTokenExchange},
			wantStatus:       http.StatusUnauthorized,
			wantErrorCode:    "access_denied",
			wantTokenRequest: 1,
		},
		{
			name:             "provider-down",
			setup:            func(tp *TestProvider) { tp.SetTokenStatus(http.StatusServiceUnavailable) },
			code:             "test-code",
			redirectURI:      testRedirectURI,
			wantErr:          true,
			wantIsErr:        []error{ErrTokenExchange},
			wantStatus:       http.StatusServiceUnavailable,
			wantErrorCode:    "server_error",
			wantTokenRequest: 1,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			tp := StartTestProvider(t)
			p := testNewProvider(t, tp)
			if tt.setup != nil {
				tt.setup(tp)
			}

			got, err := p.Exchange(context.Background(), tt.code, tt.redirectURI)
			assert.Equal(tt.wantTokenRequest, tp.TokenRequests())
			assert.Zero(tp.UserInfoRequests())
			if tt.wantErr {
				require.Error(err)
				assert.Nil(got)
				for _, want := range tt.wantIsErr {
					assert.ErrorIs(err, want)
				}
				var pe *ProviderError
				if tt.wantStatus != 0 {
					require.True(errors.As(err, &pe))
					assert.Equal(tt.wantStatus, pe.StatusCode)
					assert.Equal(tt.wantErrorCode, pe.ErrorCode)
				} else {
					assert.False(errors.As(err, &pe))
				}
				return
			}
			require.NoError(err)
			require.True(got.Valid())
			if tt.wantIdToken != "" {
				assert.Equal(tt.wantIdToken, got.IdToken())
				assert.Equal(tt.wantAccessToken, got.AccessToken())
				return
			}
			var claims map[string]interface{}
			require.NoError(got.IdTokenClaims(&claims))
			clientID, _ := tp.ClientCreds()
			assert.Equal(clientID, claims["aud"])
		})
	}
}

func TestProvider_Exchange_Transport(t *testing.T) {
	t.Parallel()
	t.Run("connection-refused", func(t *testing.T) {
		assert := assert.New(t)
		tp := StartTestProvider(t)
		p := testNewProvider(t, tp)
		tp.Stop()

		got, err := p.Exchange(context.Background(), "test-code", testRedirectURI)
		assert.ErrorIs(err, ErrTokenExchange)
		assert.Nil(got)
		var pe *ProviderError
		assert.False(errors.As(err, &pe))
	})
	t.Run("canceled", func(t *testing.T) {
		assert := assert.New(t)
		tp := StartTestProvider(t)
		p := testNewProvider(t, tp)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		got, err := p.Exchange(ctx, "test-code", testRedirectURI)
		assert.ErrorIs(err, ErrTokenExchange)
		assert.ErrorIs(err, context.Canceled)
		assert.Nil(got)
	})
	t.Run("context-client", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		tp := StartTestProvider(t)
		c := tp.Config("/ok", "/failed")
		c.ProviderCA = ""
		p, err := NewProvider(c)
		require.NoError(err)

		// the provider's own client doesn't trust the test provider's cert
		_, err = p.Exchange(context.Background(), "test-code", testRedirectURI)
		require.ErrorIs(err, ErrTokenExchange)

		ctx := HttpClientContext(context.Background(), tp.HTTPClient())
		got, err := p.Exchange(ctx, "test-code", testRedirectURI)
		require.NoError(err)
		assert.True(got.Valid())
	})
}

func TestProvider_UserInfo(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		setup      func(tp *TestProvider)
		badToken   bool
		wantName   string
		wantEmail  string
		wantErr    bool
		wantStatus int
	}{
		{
			name:      "default-profile",
			wantName:  "Ada Lovelace",
			wantEmail: "ada@example.com",
		},
		{
			name: "minimal-profile",
			setup: func(tp *TestProvider) {
				tp.SetUserInfoReply(map[string]interface{}{"name": "Ada", "email": "ada@example.com"})
			},
			wantName:  "Ada",
			wantEmail: "ada@example.com",
		},
		{
			name:       "unknown-access-token",
			badToken:   true,
			wantErr:    true,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "provider-error",
			setup:      func(tp *TestProvider) { tp.SetUserInfoStatus(http.StatusTooManyRequests) },
			wantErr:    true,
			wantStatus: http.StatusTooManyRequests,
		},
		{
			name:    "not-json",
			setup:   func(tp *TestProvider) { tp.SetUserInfoReplyRaw("Unauthorized") },
			wantErr: true,
		},
		{
			name:    "json-array",
			setup:   func(tp *TestProvider) { tp.SetUserInfoReplyRaw(`[{"name":"Ada"}]`) },
			wantErr: true,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			tp := StartTestProvider(t)
			p := testNewProvider(t, tp)
			ctx := context.Background()
			if tt.setup != nil {
				tt.setup(tp)
			}
			tokens, err := p.Exchange(ctx, "test-code", testRedirectURI)
			require.NoError(err)
			accessToken := tokens.AccessToken()
			if tt.badToken {
				accessToken = "not-issued"
			}

			got, err := p.UserInfo(ctx, accessToken)
			assert.Equal(1, tp.UserInfoRequests())
			if tt.wantErr {
				require.Error(err)
				assert.ErrorIs(err, ErrProfileFetch)
				assert.Nil(got)
				var pe *ProviderError
				if tt.wantStatus != 0 {
					require.True(errors.As(err, &pe))
					assert.Equal(tt.wantStatus, pe.StatusCode)
				}
				return
			}
			require.NoError(err)
			name, err := got.Name()
			require.NoError(err)
			assert.Equal(tt.wantName, name)
			email, err := got.Email()
			require.NoError(err)
			assert.Equal(tt.wantEmail, email)
		})
	}
	t.Run("empty-access-token", func(t *testing.T) {
		assert := assert.New(t)
		tp := StartTestProvider(t)
		p := testNewProvider(t, tp)
		_, err := p.UserInfo(context.Background(), "")
		assert.ErrorIs(err, ErrInvalidParameter)
		assert.Zero(tp.UserInfoRequests())
	})
	t.Run("transport-error-redacts-token", func(t *testing.T) {
		assert := assert.New(t)
		tp := StartTestProvider(t)
		p := testNewProvider(t, tp)
		tp.Stop()
		_, err := p.UserInfo(context.Background(), "secret-access-token")
		assert.ErrorIs(err, ErrProfileFetch)
		assert.NotContains(err.Error(), "secret-access-token")
	})
}

func TestProvider_Tracing(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	tp := StartTestProvider(t)
	sr := tracetest.NewSpanRecorder()
	p := testNewProvider(t, tp, WithTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))))
	ctx := context.Background()

	tokens, err := p.Exchange(ctx, "test-code", testRedirectURI)
	require.NoError(err)
	_, err = p.UserInfo(ctx, tokens.AccessToken())
	require.NoError(err)
	_, err = p.Exchange(ctx, "bad-code", testRedirectURI)
	require.Error(err)

	spans := sr.Ended()
	require.Len(spans, 3)
	assert.Equal("Provider.Exchange", spans[0].Name())
	assert.Equal("Provider.UserInfo", spans[1].Name())
	assert.Equal("Provider.Exchange", spans[2].Name())
	for _, s := range spans {
		assert.Equal(trace.SpanKindClient, s.SpanKind())
	}
	assert.NotEqual(codes.Error, spans[0].Status().Code)
	assert.Equal(codes.Error, spans[2].Status().Code)
}
