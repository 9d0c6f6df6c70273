// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/auth0callback/auth0"
)

// Store persists sessions. Implementations must be concurrently safe and
// must never hand out a Session they keep a reference to.
type Store interface {
	// Load returns the session. It returns ErrSessionNotFound or
	// ErrSessionExpired when the session can't be used.
	Load(ctx context.Context, id string) (*Session, error)

	// Save creates or replaces the session until its ExpiresAt.
	Save(ctx context.Context, s *Session) error

	// Delete removes the session. Deleting an unknown session is not an
	// error.
	Delete(ctx context.Context, id string) error
}

// DefaultCleanupInterval is how often a MemoryStore removes expired
// sessions.
const DefaultCleanupInterval = 10 * time.Minute

// MemoryStore is an in-process Store. Expired sessions are removed by a
// background goroutine until Close is called.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	done     chan struct{}
	once     sync.Once
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a MemoryStore which removes expired sessions every
// cleanupInterval. Zero uses DefaultCleanupInterval.
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	if cleanupInterval <= 0 {
		cleanupInterval = DefaultCleanupInterval
	}
	s := &MemoryStore{
		sessions: make(map[string]*Session),
		done:     make(chan struct{}),
	}
	go s.cleanupRoutine(cleanupInterval)
	return s
}

// Load satisfies the Store interface.
func (s *MemoryStore) Load(_ context.Context, id string) (*Session, error) {
	const op = "MemoryStore.Load"
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	switch {
	case !ok:
		return nil, fmt.Errorf("%s: %w", op, ErrSessionNotFound)
	case sess.Expired(time.Now()):
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		return nil, fmt.Errorf("%s: %w", op, ErrSessionExpired)
	}
	return sess.Clone(), nil
}

// Save satisfies the Store interface.
func (s *MemoryStore) Save(_ context.Context, sess *Session) error {
	const op = "MemoryStore.Save"
	if sess == nil {
		return fmt.Errorf("%s: session is nil: %w", op, auth0.ErrNilParameter)
	}
	if sess.ID == "" {
		return fmt.Errorf("%s: session id is empty: %w", op, auth0.ErrInvalidParameter)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess.Clone()
	return nil
}

// Delete satisfies the Store interface.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// Len returns the number of sessions held, including expired sessions not
// yet removed.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Close stops the cleanup goroutine. It's safe to call more than once.
func (s *MemoryStore) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *MemoryStore) cleanupRoutine(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.removeExpired()
		case <-s.done:
			return
		}
	}
}

func (s *MemoryStore) removeExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, sess := range s.sessions {
		if sess.Expired(now) {
			delete(s.sessions, id)
		}
	}
}
