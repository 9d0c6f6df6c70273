// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package auth0

import (
	"encoding/json"
	"fmt"

	"golang.org/x/oauth2"
	"gopkg.in/square/go-jose.v2/jwt"
)

// IdToken is an oidc id_token
type IdToken string

// RedactedIdToken is the redacted string or json for an oidc id_token
const RedactedIdToken = "[REDACTED: id_token]"

// String will redact the token
func (t IdToken) String() string {
	return RedactedIdToken
}

// MarshalJSON will redact the token
func (t IdToken) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedIdToken)
}

// AccessToken is an oauth access_token
type AccessToken string

// RedactedAccessToken is the redacted string or json for an oauth access_token
const RedactedAccessToken = "[REDACTED: access_token]"

// String will redact the token
func (t AccessToken) String() string {
	return RedactedAccessToken
}

// MarshalJSON will redact the token
func (t AccessToken) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedAccessToken)
}

// TokenPair is the id_token and access_token returned by a successful
// authorization code exchange. It's immutable once created.
//
// Its String and MarshalJSON redact both tokens, while MarshalBinary keeps
// them so the pair can be stored in a session.
type TokenPair struct {
	idToken     IdToken
	accessToken AccessToken
}

// NewTokenPair creates a new TokenPair. Both tokens are required.
func NewTokenPair(idToken IdToken, accessToken AccessToken) (*TokenPair, error) {
	const op = "NewTokenPair"
	if idToken == "" {
		return nil, fmt.Errorf("%s: id_token is empty: %w", op, ErrMissingIdToken)
	}
	if accessToken == "" {
		return nil, fmt.Errorf("%s: access_token is empty: %w", op, ErrMissingAccessToken)
	}
	return &TokenPair{
		idToken:     idToken,
		accessToken: accessToken,
	}, nil
}

// IdToken returns the pair's id_token.
func (t *TokenPair) IdToken() IdToken { return t.idToken }

// AccessToken returns the pair's access_token.
func (t *TokenPair) AccessToken() AccessToken { return t.accessToken }

// Valid reports whether both tokens are present.
func (t *TokenPair) Valid() bool {
	if t == nil {
		return false
	}
	return t.idToken != "" && t.accessToken != ""
}

// OAuth2Token converts the pair to an *oauth2.Token with the id_token carried
// as an extra, which is the shape expected by golang.org/x/oauth2 and
// github.com/coreos/go-oidc consumers.
func (t *TokenPair) OAuth2Token() *oauth2.Token {
	tk := &oauth2.Token{
		AccessToken: string(t.accessToken),
		TokenType:   "Bearer",
	}
	return tk.WithExtra(map[string]interface{}{
		"id_token": string(t.idToken),
	})
}

// IdTokenClaims decodes the id_token's claims into the claims parameter.
//
// The token's signature is NOT verified, so the claims are only suitable for
// logging and display.
func (t *TokenPair) IdTokenClaims(claims interface{}) error {
	const op = "TokenPair.IdTokenClaims"
	if claims == nil {
		return fmt.Errorf("%s: claims interface is nil: %w", op, ErrNilParameter)
	}
	parsed, err := jwt.ParseSigned(string(t.idToken))
	if err != nil {
		return fmt.Errorf("%s: unable to parse id_token: %w", op, err)
	}
	if err := parsed.UnsafeClaimsWithoutVerification(claims); err != nil {
		return fmt.Errorf("%s: unable to decode id_token claims: %w", op, err)
	}
	return nil
}

// String will redact both tokens
func (t *TokenPair) String() string {
	return fmt.Sprintf("{id_token: %s, access_token: %s}", t.idToken, t.accessToken)
}

// MarshalJSON will redact both tokens
func (t *TokenPair) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		IdToken     IdToken     `json:"id_token"`
		AccessToken AccessToken `json:"access_token"`
	}{
		IdToken:     t.idToken,
		AccessToken: t.accessToken,
	})
}

// storedTokenPair is the unredacted form persisted by MarshalBinary.
type storedTokenPair struct {
	IdToken     string `json:"id_token"`
	AccessToken string `json:"access_token"`
}

// MarshalBinary encodes the pair, unredacted, for session storage. It
// satisfies encoding.BinaryMarshaler.
func (t *TokenPair) MarshalBinary() ([]byte, error) {
	return json.Marshal(storedTokenPair{
		IdToken:     string(t.idToken),
		AccessToken: string(t.accessToken),
	})
}

// UnmarshalBinary decodes a pair written by MarshalBinary. It satisfies
// encoding.BinaryUnmarshaler.
func (t *TokenPair) UnmarshalBinary(data []byte) error {
	const op = "TokenPair.UnmarshalBinary"
	var s storedTokenPair
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%s: unable to decode token pair: %w", op, err)
	}
	tp, err := NewTokenPair(IdToken(s.IdToken), AccessToken(s.AccessToken))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	*t = *tp
	return nil
}
