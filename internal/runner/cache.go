package runner

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/timvw/pane-runner/internal/model"
)

// AnalysisCache caches parsed captures keyed by session, command and a hash
// of the captured text. Repeated capture_analyzed calls on an idle pane
// reuse the previous analysis instead of classifying and extracting again.
//
// Entries expire after the TTL even when the text is unchanged.
type AnalysisCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry // keyed by session + command
	ttl     time.Duration
	now     func() time.Time
}

type cacheEntry struct {
	contentHash string
	parsed      model.ParsedOutput
	cachedAt    time.Time
	hitCount    int
}

// NewAnalysisCache creates a cache with the given TTL.
// A TTL of 0 disables caching.
func NewAnalysisCache(ttl time.Duration) *AnalysisCache {
	return &AnalysisCache{
		entries: make(map[string]*cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Lookup returns the cached analysis when the text is unchanged and the
// entry has not expired.
func (c *AnalysisCache) Lookup(session, command, content string) (model.ParsedOutput, bool) {
	if c == nil || c.ttl <= 0 {
		return model.ParsedOutput{}, false
	}

	hash := hashContent(content)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[cacheKey(session, command)]
	if !ok || entry.contentHash != hash {
		return model.ParsedOutput{}, false
	}
	if c.now().Sub(entry.cachedAt) > c.ttl {
		return model.ParsedOutput{}, false
	}
	entry.hitCount++
	return entry.parsed, true
}

// Store saves an analysis for the given session, command and text.
func (c *AnalysisCache) Store(session, command, content string, parsed model.ParsedOutput) {
	if c == nil || c.ttl <= 0 {
		return
	}

	hash := hashContent(content)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[cacheKey(session, command)] = &cacheEntry{
		contentHash: hash,
		parsed:      parsed,
		cachedAt:    c.now(),
	}
}

// Invalidate drops every entry for a session. Called after a command is
// sent there.
func (c *AnalysisCache) Invalidate(session string) {
	if c == nil {
		return
	}
	prefix := session + "\x00"

	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(c.entries, k)
		}
	}
}

// Len returns the number of cached entries.
func (c *AnalysisCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func cacheKey(session, command string) string {
	return session + "\x00" + command
}

// hashContent returns a hex-encoded SHA256 hash of the content.
func hashContent(content string) string {
	h := sha256.Sum256([]byte(content))
	return fmt.Sprintf("%x", h)
}
