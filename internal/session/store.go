package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound indicates the session does not exist or has expired.
var ErrNotFound = errors.New("session not found")

// ErrRedisUnavailable wraps infrastructure failures talking to Redis.
var ErrRedisUnavailable = errors.New("redis unavailable")

// Store is a Redis-backed session store. Each session lives under a single
// key with a TTL; saving an existing session renews the TTL.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewStore creates a session Store backed by the given Redis client.
func NewStore(client redis.UniversalClient, prefix string, ttl time.Duration) *Store {
	return &Store{redis: client, prefix: prefix, ttl: ttl}
}

func (s *Store) key(id string) string {
	return s.prefix + ":" + id
}

// New creates and persists a fresh anonymous session.
func (s *Store) New(ctx context.Context) (*Session, error) {
	sess := &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Save persists the session and renews its TTL.
func (s *Store) Save(ctx context.Context, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.redis.Set(ctx, s.key(sess.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Get retrieves a session by ID.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	data, err := s.redis.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	sess.ID = id
	return &sess, nil
}

// Delete removes a session. Deleting an absent session is a no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.redis.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Renew discards the session's identity-bearing record and re-issues it
// under a fresh ID, carrying over flashes and the return destination.
// Logging a user in always goes through Renew so that a pre-login session
// ID never becomes an authenticated one.
func (s *Store) Renew(ctx context.Context, sess *Session) (*Session, error) {
	if err := s.Delete(ctx, sess.ID); err != nil {
		return nil, err
	}
	renewed := &Session{
		ID:        uuid.NewString(),
		UserID:    sess.UserID,
		ReturnTo:  sess.ReturnTo,
		Flashes:   sess.Flashes,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Save(ctx, renewed); err != nil {
		return nil, err
	}
	return renewed, nil
}

// Ping reports Redis availability.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
