// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"context"
	"encoding"
	"fmt"
	"net/http"
	"sync"

	"github.com/hashicorp/auth0callback/auth0"
)

// TestStore is an in-memory StateReader, StateWriter and Storer for a single
// caller. It is concurrently safe.
type TestStore struct {
	mu         sync.Mutex
	state      string
	readErr    error
	storeErr   error
	attributes map[string][]byte
	stateReads int
}

// NewTestStore creates a TestStore with the expected state. An empty state
// means no flow is in progress.
func NewTestStore(state string) *TestStore {
	return &TestStore{
		state:      state,
		attributes: map[string][]byte{},
	}
}

// SetReadError makes ExpectedState fail with err.
func (s *TestStore) SetReadError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readErr = err
}

// SetStoreError makes StoreAttributes fail with err.
func (s *TestStore) SetStoreError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.storeErr = err
}

// ExpectedState satisfies the StateReader interface.
func (s *TestStore) ExpectedState(_ context.Context, _ *http.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stateReads++
	if s.readErr != nil {
		return "", s.readErr
	}
	if s.state == "" {
		return "", auth0.ErrNotFound
	}
	return s.state, nil
}

// SetExpectedState satisfies the StateWriter interface.
func (s *TestStore) SetExpectedState(_ context.Context, _ http.ResponseWriter, _ *http.Request, state string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	return nil
}

// StoreAttributes satisfies the Storer interface. The expected state is
// cleared once the attributes are stored.
func (s *TestStore) StoreAttributes(_ context.Context, _ http.ResponseWriter, _ *http.Request, attributes map[string]encoding.BinaryMarshaler) error {
	const op = "TestStore.StoreAttributes"
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.storeErr != nil {
		return s.storeErr
	}
	for k, v := range attributes {
		b, err := v.MarshalBinary()
		if err != nil {
			return fmt.Errorf("%s: unable to marshal %q: %w", op, k, err)
		}
		s.attributes[k] = b
	}
	s.state = ""
	return nil
}

// State returns the expected state.
func (s *TestStore) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// StateReads returns the number of ExpectedState calls.
func (s *TestStore) StateReads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateReads
}

// Attribute decodes the stored attribute into v. It returns auth0.ErrNotFound
// when nothing is stored under key.
func (s *TestStore) Attribute(key string, v encoding.BinaryUnmarshaler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.attributes[key]
	if !ok {
		return auth0.ErrNotFound
	}
	return v.UnmarshalBinary(b)
}

// Len returns the number of stored attributes.
func (s *TestStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.attributes)
}
