package cache

import (
	"strings"
	"time"

	"github.com/smallbiznis/healx/internal/clock"
)

const defaultSourceTTL = 30 * time.Minute

// SourceCache remembers committed source name to id mappings for the ingest hot path.
// Only ids whose rows are committed may be stored; sources are never deleted.
type SourceCache interface {
	GetSource(name string) (int64, bool)
	SetSource(name string, id int64)
}

type sourceCache struct {
	sources Cache[string, int64]
	ttl     time.Duration
}

// NewSourceCache returns an in-memory cache tuned for batch ingest.
func NewSourceCache(clk clock.Clock) SourceCache {
	return &sourceCache{
		sources: NewTTLCache[string, int64](clk),
		ttl:     defaultSourceTTL,
	}
}

func (c *sourceCache) GetSource(name string) (int64, bool) {
	key := cacheKey(name)
	if key == "" {
		return 0, false
	}
	return c.sources.Get(key)
}

func (c *sourceCache) SetSource(name string, id int64) {
	key := cacheKey(name)
	if key == "" || id == 0 {
		return
	}
	c.sources.Set(key, id, c.ttl)
}

// cacheKey keeps source names case-sensitive, matching the unique constraint.
func cacheKey(parts ...string) string {
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		values = append(values, trimmed)
	}
	return strings.Join(values, "|")
}
