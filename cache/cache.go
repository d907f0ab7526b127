// Package cache stores JSON encoded values with a time-to-live. Reports and
// link probe results are cached through it.
package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"strings"
)

// ErrClosed is returned by a cache after Close
var ErrClosed = errors.New("cache closed")

// Cache is a TTL key/value store. Values are JSON encoded so every
// implementation returns copies, never shared pointers.
type Cache interface {
	// Get decodes the value stored under key into dst. It reports false
	// when the key is missing or expired.
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Key hashes parts into a fixed length cache key
func Key(parts ...string) string {
	hash := md5.Sum([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(hash[:])
}
