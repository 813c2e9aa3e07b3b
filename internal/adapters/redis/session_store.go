// Package redis persists gateway sessions in Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	domainauth "github.com/target/punchlist-gateway/internal/domain/auth"
)

// ErrNotFound is returned when a session is absent or has expired.
var ErrNotFound = errors.New("session not found")

const (
	defaultKeyPrefix = "punchlist:session:"
	// fallbackTTL bounds sessions whose identity carried no expiry.
	fallbackTTL = 8 * time.Hour
)

// SessionStoreOptions configures a SessionStore.
type SessionStoreOptions struct {
	Prefix string
	// FallbackTTL applies to sessions with a zero ExpiresAt.
	FallbackTTL time.Duration
	Now         func() time.Time
}

// SessionStore keeps one JSON document per session, expiring with the session.
type SessionStore struct {
	client      redis.UniversalClient
	prefix      string
	fallbackTTL time.Duration
	now         func() time.Time
}

// NewSessionStore creates a Redis-backed session store.
func NewSessionStore(client redis.UniversalClient, opts SessionStoreOptions) *SessionStore {
	prefix := strings.TrimSpace(opts.Prefix)
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	ttl := opts.FallbackTTL
	if ttl <= 0 {
		ttl = fallbackTTL
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &SessionStore{client: client, prefix: prefix, fallbackTTL: ttl, now: now}
}

func (s *SessionStore) key(id string) string { return s.prefix + id }

// Save stores sess until its expiry.
func (s *SessionStore) Save(ctx context.Context, sess domainauth.Session) error {
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}

	ttl := s.fallbackTTL
	if !sess.ExpiresAt.IsZero() {
		ttl = sess.ExpiresAt.Sub(s.now())
	}
	if ttl <= 0 {
		return errors.New("session is expired")
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(sess.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Get loads a session. Missing and expired sessions return ErrNotFound.
func (s *SessionStore) Get(ctx context.Context, id string) (domainauth.Session, error) {
	if id == "" {
		return domainauth.Session{}, ErrNotFound
	}

	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domainauth.Session{}, ErrNotFound
	}
	if err != nil {
		return domainauth.Session{}, fmt.Errorf("redis get: %w", err)
	}

	var sess domainauth.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return domainauth.Session{}, fmt.Errorf("unmarshal session: %w", err)
	}

	// Key TTL and ExpiresAt can disagree after clock skew between hosts.
	if sess.Expired(s.now()) {
		if err := s.Delete(ctx, id); err != nil {
			return domainauth.Session{}, fmt.Errorf("cleanup expired session: %w", err)
		}
		return domainauth.Session{}, ErrNotFound
	}
	return sess, nil
}

// Delete removes a session. Deleting an unknown session is not an error.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
