// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/auth0callback/auth0"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix is prepended to session ids to build redis keys.
const DefaultRedisPrefix = "auth0callback:session:"

// RedisStore is a Store backed by redis. Sessions are stored as json with a
// ttl matching their ExpiresAt, so redis removes them once expired.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a RedisStore. An empty prefix uses
// DefaultRedisPrefix.
func NewRedisStore(client redis.UniversalClient, prefix string) (*RedisStore, error) {
	const op = "session.NewRedisStore"
	if client == nil {
		return nil, fmt.Errorf("%s: redis client is nil: %w", op, auth0.ErrNilParameter)
	}
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}, nil
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

// Load satisfies the Store interface.
func (s *RedisStore) Load(ctx context.Context, id string) (*Session, error) {
	const op = "RedisStore.Load"
	b, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%s: %w", op, ErrSessionNotFound)
		}
		return nil, fmt.Errorf("%s: load session: %w", op, err)
	}
	var sess Session
	if err := json.Unmarshal(b, &sess); err != nil {
		return nil, fmt.Errorf("%s: decode session: %w", op, err)
	}
	if sess.Expired(time.Now()) {
		return nil, fmt.Errorf("%s: %w", op, ErrSessionExpired)
	}
	return &sess, nil
}

// Save satisfies the Store interface.
func (s *RedisStore) Save(ctx context.Context, sess *Session) error {
	const op = "RedisStore.Save"
	if sess == nil {
		return fmt.Errorf("%s: session is nil: %w", op, auth0.ErrNilParameter)
	}
	if sess.ID == "" {
		return fmt.Errorf("%s: session id is empty: %w", op, auth0.ErrInvalidParameter)
	}
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("%s: %w", op, ErrSessionExpired)
	}
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("%s: marshal session: %w", op, err)
	}
	if err := s.client.Set(ctx, s.key(sess.ID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("%s: persist session: %w", op, err)
	}
	return nil
}

// Delete satisfies the Store interface.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	const op = "RedisStore.Delete"
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%s: delete session: %w", op, err)
	}
	return nil
}
