// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package auth0

import (
	"bytes"
	"encoding/json"
	"encoding/pem"
	"io"
	"log"
	"mime"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hashicorp/auth0callback/internal/strutils"
	"github.com/stretchr/testify/require"
	"gopkg.in/square/go-jose.v2/jwt"
)

// TestProvider is a local TLS server that mimics the auth0 endpoints used by
// the authorization code flow: /authorize, /oauth/token and /userinfo. Its
// replies can be tuned with the Set* and Omit* methods, and it counts the
// requests it receives so tests can assert no request was sent.
type TestProvider struct {
	httpServer *httptest.Server
	caCert     string

	ecdsaPublicKey  string
	ecdsaPrivateKey string

	mu                  sync.Mutex
	clientID            string
	clientSecret        string
	expectedAuthCode    string
	allowedRedirectURIs []string
	replySubject        string
	replyUserInfo       []byte
	customClaims        map[string]interface{}
	omitIDToken         bool
	omitAccessToken     bool
	rawTokenReply       []byte
	tokenStatus         int
	userInfoStatus      int
	issuedAccessTokens  map[string]struct{}
	tokenRequests       int
	userInfoRequests    int

	t *testing.T
}

// TestUserInfo is the profile returned by a TestProvider's /userinfo
// endpoint unless SetUserInfoReply is used.
var TestUserInfo = map[string]interface{}{
	"user_id":  "auth0|5f7c8ec7c33c6c004bbafe82",
	"name":     "Ada Lovelace",
	"nickname": "ada",
	"email":    "ada@example.com",
	"picture":  "https://example.com/ada.png",
	"identities": []interface{}{
		map[string]interface{}{
			"provider":   "auth0",
			"user_id":    "5f7c8ec7c33c6c004bbafe82",
			"connection": "Username-Password-Authentication",
			"isSocial":   false,
		},
	},
}

// StartTestProvider creates a disposable TestProvider which is stopped by
// the test's cleanup.
func StartTestProvider(t *testing.T) *TestProvider {
	t.Helper()
	require := require.New(t)

	userInfo, err := json.Marshal(TestUserInfo)
	require.NoError(err)

	p := &TestProvider{
		allowedRedirectURIs: []string{
			"https://example.com/auth0-callback/",
		},
		clientID:           "test-client-id",
		clientSecret:       "test-client-secret",
		expectedAuthCode:   "test-code",
		replySubject:       "auth0|5f7c8ec7c33c6c004bbafe82",
		replyUserInfo:      userInfo,
		issuedAccessTokens: map[string]struct{}{},
		t:                  t,
	}
	p.ecdsaPublicKey, p.ecdsaPrivateKey = TestGenerateKeys(t)

	p.httpServer = httptest.NewUnstartedServer(p)
	p.httpServer.Config.ErrorLog = log.New(io.Discard, "", 0)
	p.httpServer.StartTLS()
	t.Cleanup(p.httpServer.Close)

	var buf bytes.Buffer
	err = pem.Encode(&buf, &pem.Block{Type: "CERTIFICATE", Bytes: p.httpServer.Certificate().Raw})
	require.NoError(err)
	p.caCert = buf.String()

	return p
}

// Stop stops the running TestProvider.
func (p *TestProvider) Stop() {
	p.httpServer.Close()
}

// SetClientCreds configures the client credentials the token endpoint
// accepts.
func (p *TestProvider) SetClientCreds(clientID, clientSecret string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clientID = clientID
	p.clientSecret = clientSecret
}

// ClientCreds returns the client credentials the token endpoint accepts.
func (p *TestProvider) ClientCreds() (clientID, clientSecret string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clientID, p.clientSecret
}

// SetExpectedAuthCode configures the code returned by /authorize and the
// only code accepted by /oauth/token.
func (p *TestProvider) SetExpectedAuthCode(code string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expectedAuthCode = code
}

// SetAllowedRedirectURIs configures the redirect URIs the token endpoint
// accepts. If not configured "https://example.com/auth0-callback/" is used.
func (p *TestProvider) SetAllowedRedirectURIs(uris []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.allowedRedirectURIs = uris
}

// SetCustomClaims sets additional claims for the issued id_token.
func (p *TestProvider) SetCustomClaims(customClaims map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.customClaims = customClaims
}

// OmitIDToken forces an error state where /oauth/token does not return an
// id_token.
func (p *TestProvider) OmitIDToken() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.omitIDToken = true
}

// OmitAccessToken forces an error state where /oauth/token does not return
// an access_token.
func (p *TestProvider) OmitAccessToken() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.omitAccessToken = true
}

// SetTokenReplyRaw makes /oauth/token reply with the body verbatim once the
// request is accepted. An access_token found in the body is accepted by
// /userinfo.
func (p *TestProvider) SetTokenReplyRaw(body string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rawTokenReply = []byte(body)
	var reply struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(p.rawTokenReply, &reply); err == nil && reply.AccessToken != "" {
		p.issuedAccessTokens[reply.AccessToken] = struct{}{}
	}
}

// SetTokenStatus forces /oauth/token to reply with the status code and an
// oauth2 error body. Zero restores the normal behavior.
func (p *TestProvider) SetTokenStatus(code int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokenStatus = code
}

// SetUserInfoReply sets the profile returned by /userinfo.
func (p *TestProvider) SetUserInfoReply(reply map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, err := json.Marshal(reply)
	require.NoError(p.t, err)
	p.replyUserInfo = b
}

// SetUserInfoReplyRaw makes /userinfo reply with the body verbatim.
func (p *TestProvider) SetUserInfoReplyRaw(body string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replyUserInfo = []byte(body)
}

// SetUserInfoStatus forces /userinfo to reply with the status code. Zero
// restores the normal behavior.
func (p *TestProvider) SetUserInfoStatus(code int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.userInfoStatus = code
}

// TokenRequests returns the number of requests received by /oauth/token.
func (p *TestProvider) TokenRequests() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tokenRequests
}

// UserInfoRequests returns the number of requests received by /userinfo.
func (p *TestProvider) UserInfoRequests() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.userInfoRequests
}

// Addr returns the base URL for the test provider's running webserver.
func (p *TestProvider) Addr() string { return p.httpServer.URL }

// Domain returns the test provider's host and port, suitable for
// Config.Domain.
func (p *TestProvider) Domain() string {
	return strings.TrimPrefix(p.httpServer.URL, "https://")
}

// CACert returns the pem-encoded CA certificate used by the test provider's
// HTTPS server.
func (p *TestProvider) CACert() string { return p.caCert }

// HTTPClient returns an http client that trusts the test provider.
func (p *TestProvider) HTTPClient() *http.Client { return p.httpServer.Client() }

// SigningKeys returns the test provider's pem-encoded keys used to sign JWTs.
func (p *TestProvider) SigningKeys() (pub, priv string) {
	return p.ecdsaPublicKey, p.ecdsaPrivateKey
}

// Config returns a valid Config for the test provider, using its client
// credentials and CA.
func (p *TestProvider) Config(redirectOnSuccess, redirectOnError string, opt ...Option) *Config {
	p.t.Helper()
	clientID, clientSecret := p.ClientCreds()
	opt = append([]Option{WithProviderCA(p.caCert)}, opt...)
	c, err := NewConfig(p.Domain(), clientID, ClientSecret(clientSecret), redirectOnSuccess, redirectOnError, opt...)
	require.NoError(p.t, err)
	return c
}

func (p *TestProvider) writeJSON(w http.ResponseWriter, out interface{}) error {
	enc := json.NewEncoder(w)
	return enc.Encode(out)
}

func (p *TestProvider) writeAuthErrorResponse(w http.ResponseWriter, req *http.Request, errorCode, errorMessage string) {
	qv := req.URL.Query()
	redirectURI := qv.Get("redirect_uri") +
		"?state=" + url.QueryEscape(qv.Get("state")) +
		"&error=" + url.QueryEscape(errorCode)
	if errorMessage != "" {
		redirectURI += "&error_description=" + url.QueryEscape(errorMessage)
	}
	http.Redirect(w, req, redirectURI, http.StatusFound)
}

func (p *TestProvider) writeTokenErrorResponse(w http.ResponseWriter, statusCode int, errorCode, errorMessage string) error {
	body := struct {
		Code string `json:"error"`
		Desc string `json:"error_description,omitempty"`
	}{
		Code: errorCode,
		Desc: errorMessage,
	}
	w.WriteHeader(statusCode)
	return p.writeJSON(w, &body)
}

// ServeHTTP implements the test provider's http.Handler.
func (p *TestProvider) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	switch req.URL.Path {
	case authorizePath:
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		qv := req.URL.Query()
		switch {
		case qv.Get("response_type") != "code":
			p.writeAuthErrorResponse(w, req, "unsupported_response_type", "")
			return
		case !strutils.StrListContains(strings.Fields(qv.Get("scope")), "openid"):
			p.writeAuthErrorResponse(w, req, "invalid_scope", "")
			return
		case qv.Get("client_id") != p.clientID:
			p.writeAuthErrorResponse(w, req, "unauthorized_client", "")
			return
		case qv.Get("state") == "":
			p.writeAuthErrorResponse(w, req, "invalid_request", "missing state parameter")
			return
		case qv.Get("redirect_uri") == "":
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		redirectURI := qv.Get("redirect_uri") +
			"?state=" + url.QueryEscape(qv.Get("state")) +
			"&code=" + url.QueryEscape(p.expectedAuthCode)
		http.Redirect(w, req, redirectURI, http.StatusFound)

	case tokenPath:
		p.tokenRequests++
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if mt, _, err := mime.ParseMediaType(req.Header.Get("Content-Type")); err != nil || mt != "application/json" {
			_ = p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_request", "content type must be application/json")
			return
		}
		var body tokenRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			_ = p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_request", "malformed body")
			return
		}
		switch {
		case p.tokenStatus != 0 && p.tokenStatus != http.StatusOK:
			_ = p.writeTokenErrorResponse(w, p.tokenStatus, "server_error", "forced failure")
			return
		case body.ClientId != p.clientID || body.ClientSecret != p.clientSecret:
			_ = p.writeTokenErrorResponse(w, http.StatusUnauthorized, "access_denied", "Unauthorized")
			return
		case body.GrantType != "authorization_code":
			_ = p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_request", "bad grant_type")
			return
		case !strutils.StrListContains(p.allowedRedirectURIs, body.RedirectUri):
			_ = p.writeTokenErrorResponse(w, http.StatusForbidden, "unauthorized_client", "redirect_uri is not allowed")
			return
		case body.Code == "" || body.Code != p.expectedAuthCode:
			_ = p.writeTokenErrorResponse(w, http.StatusForbidden, "invalid_grant", "Invalid authorization code")
			return
		}
		if p.rawTokenReply != nil {
			_, _ = w.Write(p.rawTokenReply)
			return
		}

		now := time.Now()
		issuer := p.httpServer.URL + "/"
		idToken := TestSignJWT(p.t, p.ecdsaPrivateKey, jwt.Claims{
			Subject:   p.replySubject,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-5 * time.Second)),
			Expiry:    jwt.NewNumericDate(now.Add(time.Hour)),
			Audience:  jwt.Audience{p.clientID},
		}, p.customClaims)
		jti, err := NewId("at")
		require.NoError(p.t, err)
		accessToken := TestSignJWT(p.t, p.ecdsaPrivateKey, jwt.Claims{
			ID:       jti,
			Subject:  p.replySubject,
			Issuer:   issuer,
			IssuedAt: jwt.NewNumericDate(now),
			Expiry:   jwt.NewNumericDate(now.Add(time.Hour)),
			Audience: jwt.Audience{issuer + "userinfo"},
		}, nil)
		p.issuedAccessTokens[accessToken] = struct{}{}

		reply := struct {
			AccessToken string `json:"access_token,omitempty"`
			IDToken     string `json:"id_token,omitempty"`
			TokenType   string `json:"token_type"`
			ExpiresIn   int    `json:"expires_in"`
		}{
			AccessToken: accessToken,
			IDToken:     idToken,
			TokenType:   "Bearer",
			ExpiresIn:   3600,
		}
		if p.omitIDToken {
			reply.IDToken = ""
		}
		if p.omitAccessToken {
			reply.AccessToken = ""
		}
		_ = p.writeJSON(w, &reply)

	case userInfoPath:
		p.userInfoRequests++
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if p.userInfoStatus != 0 && p.userInfoStatus != http.StatusOK {
			_ = p.writeTokenErrorResponse(w, p.userInfoStatus, "server_error", "forced failure")
			return
		}
		if _, ok := p.issuedAccessTokens[req.URL.Query().Get("access_token")]; !ok {
			_ = p.writeTokenErrorResponse(w, http.StatusUnauthorized, "invalid_token", "Unauthorized")
			return
		}
		_, _ = w.Write(p.replyUserInfo)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}
