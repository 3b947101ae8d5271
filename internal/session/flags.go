// Package session stores short-lived per-user flags that the next dashboard read consumes.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Flag names a one-shot dashboard hint
type Flag string

const (
	// FlagSuppressAutoActivate skips auto-activation once, after a plan day import.
	FlagSuppressAutoActivate Flag = "suppress_auto_activate"
	// FlagShowMoodPrompt asks the user for their mood once, after a completion, deletion or snooze.
	FlagShowMoodPrompt Flag = "show_mood_prompt"
)

// DefaultTTL bounds how long an unread flag survives.
const DefaultTTL = time.Hour

// FlagStore sets and pops per-user flags.
type FlagStore interface {
	Set(ctx context.Context, userID uuid.UUID, flag Flag) error
	// Pop reports whether the flag was set and clears it.
	Pop(ctx context.Context, userID uuid.UUID, flag Flag) (bool, error)
}

func flagKey(userID uuid.UUID, flag Flag) string {
	return fmt.Sprintf("focusquest:flag:%s:%s", userID, flag)
}

// RedisFlagStore keeps flags in Redis with a TTL
type RedisFlagStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisFlagStore creates a flag store on client.
func NewRedisFlagStore(client *redis.Client, ttl time.Duration) *RedisFlagStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisFlagStore{client: client, ttl: ttl}
}

// Set stores the flag.
func (s *RedisFlagStore) Set(ctx context.Context, userID uuid.UUID, flag Flag) error {
	if err := s.client.Set(ctx, flagKey(userID, flag), "1", s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set flag %s: %w", flag, err)
	}
	return nil
}

// Pop reads and deletes the flag atomically.
func (s *RedisFlagStore) Pop(ctx context.Context, userID uuid.UUID, flag Flag) (bool, error) {
	_, err := s.client.GetDel(ctx, flagKey(userID, flag)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to pop flag %s: %w", flag, err)
	}
	return true, nil
}

// HealthCheck pings Redis.
func (s *RedisFlagStore) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// MemoryFlagStore keeps flags in process memory. Used when no Redis is configured.
type MemoryFlagStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	flags map[string]time.Time
}

// NewMemoryFlagStore creates an in-memory flag store.
func NewMemoryFlagStore(ttl time.Duration) *MemoryFlagStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryFlagStore{ttl: ttl, now: time.Now, flags: map[string]time.Time{}}
}

// Set stores the flag.
func (s *MemoryFlagStore) Set(_ context.Context, userID uuid.UUID, flag Flag) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags[flagKey(userID, flag)] = s.now().Add(s.ttl)
	return nil
}

// Pop reads and deletes the flag.
func (s *MemoryFlagStore) Pop(_ context.Context, userID uuid.UUID, flag Flag) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := flagKey(userID, flag)
	expires, ok := s.flags[key]
	if !ok {
		return false, nil
	}
	delete(s.flags, key)
	return s.now().Before(expires), nil
}

var (
	_ FlagStore = (*RedisFlagStore)(nil)
	_ FlagStore = (*MemoryFlagStore)(nil)
)
