package mirror

import (
	"os"
	"strconv"
	"sync"

	"github.com/david-andreasson/novareport/internal/api"
	"github.com/david-andreasson/novareport/pkg/summary"
)

// Entry is a mirrored report together with its parsed summary.
type Entry struct {
	Row      ReportRow
	Report   *api.DailyReport
	Document summary.Document
}

// ReportCache is a thread-safe LRU cache of parsed reports keyed by date.
type ReportCache struct {
	mu      sync.Mutex
	maxSize int
	entries map[string]*Entry
	order   []string // oldest first
}

// NewReportCache creates a cache with the given maximum number of entries.
// If maxSize <= 0, it defaults to 30.
func NewReportCache(maxSize int) *ReportCache {
	if maxSize <= 0 {
		maxSize = 30
	}
	return &ReportCache{
		maxSize: maxSize,
		entries: make(map[string]*Entry),
	}
}

// NewReportCacheFromEnv creates a cache sized by REPORT_CACHE_SIZE.
func NewReportCacheFromEnv() *ReportCache {
	size := 30
	if v := os.Getenv("REPORT_CACHE_SIZE"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			size = parsed
		}
	}
	return NewReportCache(size)
}

// Get retrieves an entry, or nil if not cached.
func (c *ReportCache) Get(date string) *Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[date]
	if !ok {
		return nil
	}
	c.moveToEnd(date)
	return e
}

// Put adds an entry, evicting the least recently used one if full.
func (c *ReportCache) Put(date string, e *Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[date]; ok {
		c.entries[date] = e
		c.moveToEnd(date)
		return
	}

	for len(c.entries) >= c.maxSize && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[date] = e
	c.order = append(c.order, date)
}

// Len returns the number of cached entries.
func (c *ReportCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *ReportCache) moveToEnd(date string) {
	for i, k := range c.order {
		if k == date {
			c.order = append(c.order[:i], c.order[i+1:]...)
			c.order = append(c.order, date)
			return
		}
	}
}
