// Package memstore implements storage.Store in process memory on top of
// patrickmn/go-cache. Contents last for the life of the process, which is
// the Go equivalent of a browser tab's session storage.
package memstore

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/phrazzld/scry-tutor/internal/storage"
)

// Options configures a Store.
type Options struct {
	// MaxBytes caps the summed length of keys and values. Zero means no cap.
	MaxBytes int

	// TTL expires entries after the given duration. Zero keeps them until
	// the store is closed.
	TTL time.Duration

	// CleanupInterval controls how often expired entries are purged.
	CleanupInterval time.Duration
}

// Store is an in-memory storage.Store.
type Store struct {
	c        *cache.Cache
	maxBytes int

	mu     sync.Mutex
	used   int
	sizes  map[string]int
	closed bool
}

// New creates an in-memory store.
func New(opts Options) *Store {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	cleanup := opts.CleanupInterval
	if cleanup <= 0 {
		cleanup = 10 * time.Minute
	}

	s := &Store{
		c:        cache.New(ttl, cleanup),
		maxBytes: opts.MaxBytes,
		sizes:    make(map[string]int),
	}
	s.c.OnEvicted(func(key string, _ interface{}) {
		s.mu.Lock()
		s.release(key)
		s.mu.Unlock()
	})
	return s
}

// release drops key from the byte accounting. The caller holds s.mu.
func (s *Store) release(key string) {
	s.used -= s.sizes[key]
	delete(s.sizes, key)
	if s.used < 0 {
		s.used = 0
	}
}

// Get implements storage.Store.
func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	if s.isClosed() {
		return "", false, storage.ErrClosed
	}
	v, ok := s.c.Get(key)
	if !ok {
		return "", false, nil
	}
	str, ok := v.(string)
	if !ok {
		return "", false, fmt.Errorf("memstore: unexpected value type %T for key %q", v, key)
	}
	return str, true, nil
}

// Set implements storage.Store. It returns storage.ErrQuotaExceeded when the
// write would take the store over MaxBytes.
func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrClosed
	}

	// sizes still holds entries that expired without being purged; go-cache
	// overwrites those without calling the eviction callback.
	size := len(key) + len(value)
	next := s.used - s.sizes[key] + size
	if s.maxBytes > 0 && next > s.maxBytes {
		return fmt.Errorf("%w: %d of %d bytes used, write needs %d",
			storage.ErrQuotaExceeded, s.used, s.maxBytes, size)
	}

	s.c.Set(key, value, cache.DefaultExpiration)
	s.sizes[key] = size
	s.used = next
	return nil
}

// Remove implements storage.Store.
func (s *Store) Remove(_ context.Context, key string) error {
	if s.isClosed() {
		return storage.ErrClosed
	}
	// Byte accounting happens in the eviction callback.
	s.c.Delete(key)
	return nil
}

// Clear removes every key with the given prefix.
func (s *Store) Clear(ctx context.Context, prefix string) (int, error) {
	if s.isClosed() {
		return 0, storage.ErrClosed
	}
	n := 0
	for key := range s.c.Items() {
		if strings.HasPrefix(key, prefix) {
			s.c.Delete(key)
			n++
		}
	}
	return n, nil
}

// Used returns the number of bytes currently accounted against MaxBytes.
func (s *Store) Used() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.used
}

// Len returns the number of live entries.
func (s *Store) Len() int {
	return s.c.ItemCount()
}

// Close drops all entries. Further calls fail with storage.ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.c.Flush()
	s.used = 0
	s.sizes = make(map[string]int)
	return nil
}

func (s *Store) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

var (
	_ storage.Store   = (*Store)(nil)
	_ storage.Clearer = (*Store)(nil)
)
