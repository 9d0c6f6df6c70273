// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package auth0

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestClientSecret_String(t *testing.T) {
	t.Parallel()
	t.Run("redacted", func(t *testing.T) {
		assert := assert.New(t)
		const want = RedactedClientSecret
		secret := ClientSecret("bob's phone number")
		assert.Equalf(want, secret.String(), "ClientSecret.String() = %v, want %v", secret.String(), want)
		assert.NotContains(fmt.Sprintf("%v %s", secret, secret), "bob")
	})
}

func TestClientSecret_MarshalJSON(t *testing.T) {
	t.Parallel()
	t.Run("redacted", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		want := fmt.Sprintf(`"%s"`, RedactedClientSecret)
		secret := ClientSecret("bob's phone number")
		got, err := secret.MarshalJSON()
		require.NoError(err)
		assert.Equalf([]byte(want), got, "ClientSecret.MarshalJSON() = %s, want %s", got, want)
	})
}

func TestNewConfig(t *testing.T) {
	t.Parallel()
	tp := StartTestProvider(t)

	type args struct {
		domain            string
		clientId          string
		clientSecret      ClientSecret
		redirectOnSuccess string
		redirectOnError   string
		opt               []Option
	}
	tests := []struct {
		name      string
		args      args
		want      *Config
		wantErr   bool
		wantIsErr error
	}{
		{
			name: "valid-with-all-valid-opts",
			args: args{
				domain:            "YOUR_TENANT.eu.auth0.com",
				clientId:          "YOUR_CLIENT_ID",
				clientSecret:      "YOUR_CLIENT_SECRET",
				redirectOnSuccess: "/auth0-success/",
				redirectOnError:   "https://example.com/login?error=1",
				opt: []Option{
					WithTokenAttributeKey("tokens"),
					WithUserAttributeKey("profile"),
					WithProviderCA(tp.CACert()),
					WithTimeout(5 * time.Second),
				},
			},
			want: &Config{
				ClientId:          "YOUR_CLIENT_ID",
				ClientSecret:      "YOUR_CLIENT_SECRET",
				Domain:            "YOUR_TENANT.eu.auth0.com",
				RedirectOnSuccess: "/auth0-success/",
				RedirectOnError:   "https://example.com/login?error=1",
				TokenAttributeKey: "tokens",
				UserAttributeKey:  "profile",
				ProviderCA:        tp.CACert(),
				Timeout:           5 * time.Second,
			},
		},
		{
			name: "valid-with-defaults",
			args: args{
				domain:            "localhost:8443",
				clientId:          "YOUR_CLIENT_ID",
				clientSecret:      "YOUR_CLIENT_SECRET",
				redirectOnSuccess: "/ok",
				redirectOnError:   "/failed",
			},
			want: &Config{
				ClientId:          "YOUR_CLIENT_ID",
				ClientSecret:      "YOUR_CLIENT_SECRET",
				Domain:            "localhost:8443",
				RedirectOnSuccess: "/ok",
				RedirectOnError:   "/failed",
				TokenAttributeKey: DefaultTokenAttributeKey,
				UserAttributeKey:  DefaultUserAttributeKey,
			},
		},
		{
			name: "empty-domain",
			args: args{
				clientId:          "YOUR_CLIENT_ID",
				clientSecret:      "YOUR_CLIENT_SECRET",
				redirectOnSuccess: "/ok",
				redirectOnError:   "/failed",
			},
			wantErr:   true,
			wantIsErr: ErrInvalidParameter,
		},
		{
			name: "domain-with-scheme",
			args: args{
				domain:            "https://YOUR_TENANT.auth0.com",
				clientId:          "YOUR_CLIENT_ID",
				clientSecret:      "YOUR_CLIENT_SECRET",
				redirectOnSuccess: "/ok",
				redirectOnError:   "/failed",
			},
			wantErr:   true,
			wantIsErr: ErrInvalidParameter,
		},
		{
			name: "domain-with-path",
			args: args{
				domain:            "YOUR_TENANT.auth0.com/oauth",
				clientId:          "YOUR_CLIENT_ID",
				clientSecret:      "YOUR_CLIENT_SECRET",
				redirectOnSuccess: "/ok",
				redirectOnError:   "/failed",
			},
			wantErr:   true,
			wantIsErr: ErrInvalidParameter,
		},
		{
			name: "empty-client-id",
			args: args{
				domain:            "YOUR_TENANT.auth0.com",
				clientSecret:      "YOUR_CLIENT_SECRET",
				redirectOnSuccess: "/ok",
				redirectOnError:   "/failed",
			},
			wantErr:   true,
			wantIsErr: ErrInvalidParameter,
		},
		{
			name: "empty-client-secret",
			args: args{
				domain:            "YOUR_TENANT.auth0.com",
				clientId:          "YOUR_CLIENT_ID",
				redirectOnSuccess: "/ok",
				redirectOnError:   "/failed",
			},
			wantErr:   true,
			wantIsErr: ErrInvalidParameter,
		},
		{
			name: "empty-redirects",
			args: args{
				domain:       "YOUR_TENANT.auth0.com",
				clientId:     "YOUR_CLIENT_ID",
				clientSecret: "YOUR_CLIENT_SECRET",
			},
			wantErr:   true,
			wantIsErr: ErrInvalidParameter,
		},
		{
			name: "same-attribute-keys",
			args: args{
				domain:            "YOUR_TENANT.auth0.com",
				clientId:          "YOUR_CLIENT_ID",
				clientSecret:      "YOUR_CLIENT_SECRET",
				redirectOnSuccess: "/ok",
				redirectOnError:   "/failed",
				opt:               []Option{WithTokenAttributeKey("user")},
			},
			wantErr:   true,
			wantIsErr: ErrInvalidParameter,
		},
		{
			name: "empty-attribute-key",
			args: args{
				domain:            "YOUR_TENANT.auth0.com",
				clientId:          "YOUR_CLIENT_ID",
				clientSecret:      "YOUR_CLIENT_SECRET",
				redirectOnSuccess: "/ok",
				redirectOnError:   "/failed",
				opt:               []Option{WithUserAttributeKey("")},
			},
			wantErr:   true,
			wantIsErr: ErrInvalidParameter,
		},
		{
			name: "negative-timeout",
			args: args{
				domain:            "YOUR_TENANT.auth0.com",
				clientId:          "YOUR_CLIENT_ID",
				clientSecret:      "YOUR_CLIENT_SECRET",
				redirectOnSuccess: "/ok",
				redirectOnError:   "/failed",
				opt:               []Option{WithTimeout(-1 * time.Second)},
			},
			wantErr:   true,
			wantIsErr: ErrInvalidParameter,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			got, err := NewConfig(tt.args.domain, tt.args.clientId, tt.args.clientSecret, tt.args.redirectOnSuccess, tt.args.redirectOnError, tt.args.opt...)
			if tt.wantErr {
				require.Error(err)
				assert.Nil(got)
				if tt.wantIsErr != nil {
					assert.ErrorIs(err, tt.wantIsErr)
				}
				return
			}
			require.NoError(err)
			assert.Equal(tt.want, got)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()
	t.Run("nil", func(t *testing.T) {
		assert := assert.New(t)
		var c *Config
		assert.ErrorIs(c.Validate(), ErrNilParameter)
	})
	t.Run("all-problems-reported", func(t *testing.T) {
		assert := assert.New(t)
		err := (&Config{}).Validate()
		assert.ErrorIs(err, ErrInvalidParameter)
		for _, want := range []string{"client id", "client secret", "domain", "redirect on success", "redirect on error", "token attribute key", "user attribute key"} {
			assert.Contains(err.Error(), want)
		}
	})
}

func TestConfig_HttpClient(t *testing.T) {
	t.Parallel()
	tp := StartTestProvider(t)

	t.Run("with-ca", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		c := tp.Config("/ok", "/failed")
		client, err := c.HttpClient()
		require.NoError(err)
		resp, err := client.Get(tp.Addr() + "/not-found")
		require.NoError(err)
		defer resp.Body.Close()
		assert.Equal(http.StatusNotFound, resp.StatusCode)
	})
	t.Run("default-timeout", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		c := tp.Config("/ok", "/failed")
		client, err := c.HttpClient()
		require.NoError(err)
		assert.Equal(10*time.Second, client.Timeout)
	})
	t.Run("bad-ca", func(t *testing.T) {
		assert := assert.New(t)
		c := tp.Config("/ok", "/failed")
		c.ProviderCA = "not a pem"
		client, err := c.HttpClient()
		assert.ErrorIs(err, ErrInvalidCACert)
		assert.Nil(client)
	})
}

func TestHttpClientContext(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	c := &http.Client{}
	ctx := HttpClientContext(context.Background(), c)
	got, ok := ctx.Value(oauth2.HTTPClient).(*http.Client)
	assert.True(ok)
	assert.Same(c, got)
}
