// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package auth0

import (
	"encoding/json"
	"fmt"
)

// Profile is the authenticated user's document as returned by the provider's
// userinfo endpoint. The document is kept verbatim and parsed on every
// access, so accessors fail with ErrPropertyAccess rather than returning
// empty values when the document is unusable.
type Profile struct {
	raw []byte
}

// NewProfile wraps the raw userinfo document. The document is copied.
func NewProfile(raw []byte) *Profile {
	return &Profile{raw: append([]byte(nil), raw...)}
}

// Identity is one identity provider linked to the user.
type Identity struct {
	Provider   string `json:"provider"`
	UserId     string `json:"user_id"`
	Connection string `json:"connection"`
	IsSocial   bool   `json:"isSocial"`
}

// UnmarshalJSON accepts a string or numeric user_id, since some identity
// providers report numeric ids.
func (i *Identity) UnmarshalJSON(b []byte) error {
	type alias Identity
	aux := struct {
		*alias
		UserId json.Number `json:"user_id"`
	}{alias: (*alias)(i)}
	if err := json.Unmarshal(b, &aux); err == nil {
		i.UserId = aux.UserId.String()
		return nil
	}
	var s struct {
		*alias
	}
	s.alias = (*alias)(i)
	return json.Unmarshal(b, &s)
}

// document parses the raw profile.
func (p *Profile) document() (map[string]json.RawMessage, error) {
	const op = "Profile.document"
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(p.raw, &doc); err != nil {
		return nil, fmt.Errorf("%s: unable to parse profile: %w: %w", op, ErrPropertyAccess, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%s: profile is not a json object: %w", op, ErrPropertyAccess)
	}
	return doc, nil
}

// lookup returns the raw value of a property which must be present and not
// null.
func (p *Profile) lookup(prop string) (json.RawMessage, error) {
	const op = "Profile.lookup"
	doc, err := p.document()
	if err != nil {
		return nil, err
	}
	v, ok := doc[prop]
	if !ok || string(v) == "null" {
		return nil, fmt.Errorf("%s: property %q not found: %w", op, prop, ErrPropertyAccess)
	}
	return v, nil
}

// Property returns the string property named prop.
func (p *Profile) Property(prop string) (string, error) {
	const op = "Profile.Property"
	v, err := p.lookup(prop)
	if err != nil {
		return "", err
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", fmt.Errorf("%s: property %q is not a string: %w", op, prop, ErrPropertyAccess)
	}
	return s, nil
}

func (p *Profile) Name() (string, error)     { return p.Property("name") }
func (p *Profile) Email() (string, error)    { return p.Property("email") }
func (p *Profile) UserId() (string, error)   { return p.Property("user_id") }
func (p *Profile) Nickname() (string, error) { return p.Property("nickname") }
func (p *Profile) Picture() (string, error)  { return p.Property("picture") }

// Identities returns the identity providers linked to the user, in the order
// the provider reported them.
func (p *Profile) Identities() ([]Identity, error) {
	const op = "Profile.Identities"
	v, err := p.lookup("identities")
	if err != nil {
		return nil, err
	}
	var ids []Identity
	if err := json.Unmarshal(v, &ids); err != nil {
		return nil, fmt.Errorf("%s: identities is not an array of identities: %w", op, ErrPropertyAccess)
	}
	return ids, nil
}

// Claims decodes the whole document into the claims parameter.
func (p *Profile) Claims(claims interface{}) error {
	const op = "Profile.Claims"
	if claims == nil {
		return fmt.Errorf("%s: claims interface is nil: %w", op, ErrNilParameter)
	}
	if _, err := p.document(); err != nil {
		return err
	}
	if err := json.Unmarshal(p.raw, claims); err != nil {
		return fmt.Errorf("%s: unable to decode claims: %w: %w", op, ErrPropertyAccess, err)
	}
	return nil
}

// String returns the raw document.
func (p *Profile) String() string {
	return string(p.raw)
}

// MarshalBinary returns the raw document. It satisfies
// encoding.BinaryMarshaler.
func (p *Profile) MarshalBinary() ([]byte, error) {
	return append([]byte(nil), p.raw...), nil
}

// UnmarshalBinary replaces the document. It satisfies
// encoding.BinaryUnmarshaler.
func (p *Profile) UnmarshalBinary(data []byte) error {
	p.raw = append([]byte(nil), data...)
	return nil
}
