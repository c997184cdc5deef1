// Package respcache memoizes AI responses for the length of a session so
// that identical generation requests are not sent to the backend twice.
//
// Entries are written only after a request has fully succeeded and only when
// the response looks like real content. The cache is a pure optimization:
// storage failures are logged and treated as misses, never surfaced.
package respcache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-tutor/internal/redact"
	"github.com/phrazzld/scry-tutor/internal/storage"
)

// entry is the stored envelope.
type entry struct {
	Text     string    `json:"text"`
	StoredAt time.Time `json:"stored_at"`
}

// Stats are counters of cache activity since construction.
type Stats struct {
	Hits     int64
	Misses   int64
	Writes   int64
	Skipped  int64
	Failures int64
}

// Option configures a Cache.
type Option func(*Cache)

// WithNamespace sets the prefix applied to every stored key. The default is
// unique to the Cache instance, which scopes entries to one session even on
// a shared or durable store.
func WithNamespace(ns string) Option {
	return func(c *Cache) {
		c.namespace = ns
	}
}

// Cache is a session-scoped response cache over a storage.Store.
type Cache struct {
	store     storage.Store
	logger    *slog.Logger
	namespace string

	mu      sync.Mutex
	written map[string]struct{}

	hits, misses, writes, skipped, failures atomic.Int64
}

// New creates a Cache.
func New(store storage.Store, logger *slog.Logger, opts ...Option) *Cache {
	c := &Cache{
		store:     store,
		logger:    logger.With("component", "response_cache"),
		namespace: "scry:session:" + uuid.NewString() + ":",
		written:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Namespace returns the prefix applied to stored keys.
func (c *Cache) Namespace() string {
	return c.namespace
}

// Get returns the cached text for key. Store errors and unreadable entries
// are logged and reported as misses.
func (c *Cache) Get(ctx context.Context, key string) (string, bool) {
	if key == "" {
		return "", false
	}

	raw, ok, err := c.store.Get(ctx, c.namespace+key)
	if err != nil {
		c.misses.Add(1)
		c.logger.WarnContext(ctx, "cache read failed, treating as miss",
			"key", key,
			"error", redact.Error(err))
		return "", false
	}
	if !ok {
		c.misses.Add(1)
		return "", false
	}

	var e entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil || e.Text == "" {
		c.misses.Add(1)
		c.logger.WarnContext(ctx, "unreadable cache entry, treating as miss",
			"key", key,
			"error", err)
		return "", false
	}

	c.hits.Add(1)
	c.logger.DebugContext(ctx, "cache hit", "key", key, "length", len(e.Text))
	return e.Text, true
}

// Put stores text under key if it is Cacheable. It reports whether the entry
// was written; write failures are logged and swallowed.
func (c *Cache) Put(ctx context.Context, key, text string) bool {
	if key == "" {
		return false
	}
	if !Cacheable(text) {
		c.skipped.Add(1)
		c.logger.DebugContext(ctx, "response not cacheable, skipping write",
			"key", key,
			"length", len(text))
		return false
	}

	raw, err := json.Marshal(entry{Text: text, StoredAt: time.Now().UTC()})
	if err != nil {
		c.failures.Add(1)
		c.logger.WarnContext(ctx, "cache entry encode failed", "key", key, "error", err)
		return false
	}

	if err := c.store.Set(ctx, c.namespace+key, string(raw)); err != nil {
		c.failures.Add(1)
		c.logger.WarnContext(ctx, "cache write failed, continuing without cache",
			"key", key,
			"quota_exceeded", errors.Is(err, storage.ErrQuotaExceeded),
			"error", redact.Error(err))
		return false
	}

	c.mu.Lock()
	c.written[key] = struct{}{}
	c.mu.Unlock()

	c.writes.Add(1)
	return true
}

// Cacheable reports whether a response may be stored: it must be non-empty
// and must not mention "error" in any letter case. The second check also
// rejects legitimate content about errors (e.g. error analysis in a physics
// chapter); that imprecision is accepted.
func Cacheable(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	return !strings.Contains(strings.ToLower(text), "error")
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		Writes:   c.writes.Load(),
		Skipped:  c.skipped.Load(),
		Failures: c.failures.Load(),
	}
}

// Close ends the session: every entry written through this Cache is removed
// from the store. The store itself is left open.
func (c *Cache) Close(ctx context.Context) error {
	c.mu.Lock()
	keys := make([]string, 0, len(c.written))
	for k := range c.written {
		keys = append(keys, k)
	}
	c.written = make(map[string]struct{})
	c.mu.Unlock()

	var errs []error
	for _, k := range keys {
		if err := c.store.Remove(ctx, c.namespace+k); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		c.logger.WarnContext(ctx, "failed to remove some session cache entries",
			"failed", len(errs),
			"total", len(keys))
	}
	return errors.Join(errs...)
}
