package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"
)

// ErrMiss is returned when a key is absent or has expired.
var ErrMiss = errors.New("cache miss")

// Store is a minimal TTL key/value boundary used to memoize search results.
// Implementations are best-effort: the searcher treats every error as a miss.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close()
}

// Key builds a stable cache key from a namespace prefix and arguments.
func Key(prefix string, parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, ":")))
	return prefix + ":" + hex.EncodeToString(sum[:])
}

// Noop satisfies Store without backing storage. It serves the degraded mode
// when no cache backend is configured or reachable.
type Noop struct{}

var _ Store = Noop{}

func (Noop) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, ErrMiss
}

func (Noop) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return nil
}

func (Noop) Delete(ctx context.Context, key string) error {
	return nil
}

func (Noop) Close() {}
