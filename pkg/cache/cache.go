// Package cache stores fetched manifest feeds so repeated catalog loads do
// not hit the network.
//
// Three backends implement [Cache]:
//   - [FileCache]: JSON entries under a directory, for CLI use
//   - [RedisCache]: shared cache for hosts running several catalog instances
//   - [NullCache]: caching disabled
//
// Keys come from a [Keyer] so backends never see raw URLs.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry TTL.
type Cache interface {
	// Get returns the value and true on a hit. A miss is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of 0 means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Keyer derives cache keys.
type Keyer interface {
	// FeedKey is the key for a decoded manifest feed fetched from location.
	FeedKey(location string) string
}

// DefaultKeyer hashes feed locations under a "feed:" prefix.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard Keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// FeedKey implements Keyer.
func (DefaultKeyer) FeedKey(location string) string {
	return hashKey("feed", location)
}

// ScopedKeyer prefixes every key, letting several catalogs share one Redis
// without seeing each other's entries.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix. A nil inner keyer means
// DefaultKeyer.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// FeedKey implements Keyer.
func (k *ScopedKeyer) FeedKey(location string) string {
	return k.prefix + k.inner.FeedKey(location)
}
