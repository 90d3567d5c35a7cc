// Package credcache provides a secure in-memory cache for short-lived
// username/password pairs, keyed by an arbitrary string such as a secret
// name.
//
// Entries expire after a TTL and are removed by the next read that observes
// them expired or by a periodic background sweep. Passwords are held in byte
// buffers that are zeroed before eviction; with a garbage-collected runtime
// this is defense-in-depth, not a guarantee.
//
// There is no package-level instance. The application layer constructs one
// Cache, passes it to whatever needs it, and calls Shutdown on exit.
package credcache

import (
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultTTL applies to entries stored with Put.
	DefaultTTL = 30 * time.Minute

	// sweepInterval is how often the background sweeper removes expired
	// entries. Also the backoff between failed sweep attempts.
	sweepInterval = 5 * time.Minute

	// shutdownJoinTimeout bounds the wait for the sweeper on Shutdown.
	shutdownJoinTimeout = 5 * time.Second
)

// entry is one cached credential pair with its expiry metadata.
type entry struct {
	username    string
	password    []byte
	cachedAt    time.Time
	expiresAt   time.Time
	accessCount int
}

func (e *entry) expired(now time.Time) bool {
	return !now.Before(e.expiresAt)
}

// scrub zeroes the password buffer. Best effort: copies of the returned
// string are outside our control.
func (e *entry) scrub() {
	for i := range e.password {
		e.password[i] = 0
	}
}

// Cache is a mutex-guarded TTL credential cache with a background sweeper.
//
// The zero value is not useful; use New, and pair every New with a Shutdown.
type Cache struct {
	logger     *slog.Logger
	defaultTTL time.Duration

	mu      sync.Mutex
	entries map[string]*entry

	// accesses counts reads of all entries ever cached, including evicted
	// ones, for Stats.
	accesses int

	stopCh    chan struct{}
	doneCh    chan struct{}
	closeOnce sync.Once

	now func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the cache logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) { c.logger = logger }
}

// WithDefaultTTL overrides the TTL applied by Put.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.defaultTTL = ttl }
}

// New creates a credential cache and starts its background sweeper.
// Call Shutdown when done with it.
func New(opts ...Option) *Cache {
	c := &Cache{
		logger:     slog.Default(),
		defaultTTL: DefaultTTL,
		entries:    make(map[string]*entry),
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.sweeper(sweepInterval)
	return c
}

// Put caches a credential pair under key with the default TTL, overwriting
// and scrubbing any prior entry.
func (c *Cache) Put(key, username, password string) {
	c.PutTTL(key, username, password, c.defaultTTL)
}

// PutTTL caches a credential pair with an explicit TTL. A TTL of zero or
// less produces an entry that is already expired, which the next read
// evicts.
func (c *Cache) PutTTL(key, username, password string, ttl time.Duration) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if prior, ok := c.entries[key]; ok {
		prior.scrub()
	}
	c.entries[key] = &entry{
		username:  username,
		password:  []byte(password),
		cachedAt:  now,
		expiresAt: now.Add(ttl),
	}

	c.logger.Debug("cached credentials", "key", key, "expires_at", now.Add(ttl))
}

// Get returns the cached pair for key. An expired entry is scrubbed and
// evicted on the spot, and ok is false.
func (c *Cache) Get(key string) (username, password string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, found := c.entries[key]
	if !found {
		return "", "", false
	}
	if e.expired(c.now()) {
		c.logger.Debug("cached credentials expired", "key", key)
		c.evictLocked(key)
		return "", "", false
	}

	e.accessCount++
	c.accesses++
	return e.username, string(e.password), true
}

// IsCached reports whether a valid (unexpired) entry exists for key.
func (c *Cache) IsCached(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, found := c.entries[key]
	return found && !e.expired(c.now())
}

// Invalidate evicts the entry for key and reports whether one was present.
func (c *Cache) Invalidate(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, found := c.entries[key]; !found {
		return false
	}
	c.evictLocked(key)
	c.logger.Debug("invalidated cached credentials", "key", key)
	return true
}

// EntryInfo is cache metadata for one key, without the credential material.
type EntryInfo struct {
	Username     string
	CachedAt     time.Time
	ExpiresAt    time.Time
	Expired      bool
	TimeToExpiry time.Duration
	AccessCount  int
}

// Info returns metadata for key without touching the access counter, or nil
// when nothing is cached under it.
func (c *Cache) Info(key string) *EntryInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, found := c.entries[key]
	if !found {
		return nil
	}
	now := c.now()
	return &EntryInfo{
		Username:     e.username,
		CachedAt:     e.cachedAt,
		ExpiresAt:    e.expiresAt,
		Expired:      e.expired(now),
		TimeToExpiry: e.expiresAt.Sub(now),
		AccessCount:  e.accessCount,
	}
}

// CleanupExpired removes every expired entry and returns how many were
// evicted. The background sweeper calls this periodically; it is also safe
// to call directly.
func (c *Cache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var evicted int
	for key, e := range c.entries {
		if e.expired(now) {
			c.evictLocked(key)
			evicted++
		}
	}
	if evicted > 0 {
		c.logger.Debug("swept expired credentials", "count", evicted)
	}
	return evicted
}

// CleanupAll evicts everything. Used at shutdown.
func (c *Cache) CleanupAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.entries {
		c.evictLocked(key)
	}
}

// Stats summarizes cache contents for diagnostics.
type Stats struct {
	Total         int
	Active        int
	Expired       int
	TotalAccesses int
}

// GetStats returns counts of current and expired entries plus the cumulative
// access count.
func (c *Cache) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	s := Stats{Total: len(c.entries), TotalAccesses: c.accesses}
	for _, e := range c.entries {
		if e.expired(now) {
			s.Expired++
		} else {
			s.Active++
		}
	}
	return s
}

// Shutdown stops the sweeper (bounded wait) and evicts all entries.
// Idempotent.
func (c *Cache) Shutdown() {
	c.closeOnce.Do(func() {
		c.logger.Info("shutting down credential cache")
		close(c.stopCh)
		select {
		case <-c.doneCh:
		case <-time.After(shutdownJoinTimeout):
			c.logger.Warn("credential cache sweeper did not stop within timeout")
		}
		c.CleanupAll()
	})
}

// evictLocked scrubs and removes one entry. Caller must hold c.mu.
func (c *Cache) evictLocked(key string) {
	if e, ok := c.entries[key]; ok {
		e.scrub()
		delete(c.entries, key)
	}
}

// sweeper periodically evicts expired entries until Shutdown.
func (c *Cache) sweeper(interval time.Duration) {
	defer close(c.doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.CleanupExpired()
		}
	}
}
