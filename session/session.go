// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package session

import (
	"encoding"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/auth0callback/auth0"
	"github.com/hashicorp/auth0callback/sdk/id"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)

// idPrefix is prepended to every session id.
const idPrefix = "sess"

// Session is a caller's server side session. Values are stored in their
// binary form, so anything implementing encoding.BinaryMarshaler can be kept
// in a session. A Session is not concurrently safe; stores hand out copies.
type Session struct {
	ID        string            `json:"id"`
	Values    map[string][]byte `json:"values"`
	CreatedAt time.Time         `json:"created_at"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// New creates an empty session which expires after ttl.
func New(ttl time.Duration) (*Session, error) {
	const op = "session.New"
	if ttl <= 0 {
		return nil, fmt.Errorf("%s: ttl must be positive: %w", op, auth0.ErrInvalidParameter)
	}
	sid, err := id.New(idPrefix)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to generate session id: %w: %w", op, auth0.ErrIdGeneratorFailed, err)
	}
	now := time.Now()
	return &Session{
		ID:        sid,
		Values:    map[string][]byte{},
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

// Set stores the binary form of v under key.
func (s *Session) Set(key string, v encoding.BinaryMarshaler) error {
	const op = "Session.Set"
	if key == "" {
		return fmt.Errorf("%s: key is empty: %w", op, auth0.ErrInvalidParameter)
	}
	if v == nil {
		return fmt.Errorf("%s: value for %q is nil: %w", op, key, auth0.ErrNilParameter)
	}
	b, err := v.MarshalBinary()
	if err != nil {
		return fmt.Errorf("%s: unable to marshal %q: %w", op, key, err)
	}
	if s.Values == nil {
		s.Values = map[string][]byte{}
	}
	s.Values[key] = b
	return nil
}

// Get decodes the value stored under key into v. It returns auth0.ErrNotFound
// when nothing is stored under key.
func (s *Session) Get(key string, v encoding.BinaryUnmarshaler) error {
	const op = "Session.Get"
	if v == nil {
		return fmt.Errorf("%s: value is nil: %w", op, auth0.ErrNilParameter)
	}
	b, ok := s.Values[key]
	if !ok {
		return fmt.Errorf("%s: %q: %w", op, key, auth0.ErrNotFound)
	}
	if err := v.UnmarshalBinary(b); err != nil {
		return fmt.Errorf("%s: unable to unmarshal %q: %w", op, key, err)
	}
	return nil
}

// SetString stores a string under key.
func (s *Session) SetString(key, v string) {
	if s.Values == nil {
		s.Values = map[string][]byte{}
	}
	s.Values[key] = []byte(v)
}

// GetString returns the string stored under key, if any.
func (s *Session) GetString(key string) (string, bool) {
	b, ok := s.Values[key]
	return string(b), ok
}

// Delete removes key.
func (s *Session) Delete(key string) {
	delete(s.Values, key)
}

// Expired reports whether the session has expired at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	c := *s
	c.Values = make(map[string][]byte, len(s.Values))
	for k, v := range s.Values {
		c.Values[k] = append([]byte(nil), v...)
	}
	return &c
}
