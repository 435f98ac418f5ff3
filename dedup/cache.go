package dedup

import (
	"encoding/json"
	"strings"
	"sync"
	"time"
)

// cacheEntry 已完成请求的缓存条目
type cacheEntry struct {
	value     any
	priority  Priority
	expiresAt time.Time
	storedAt  time.Time
	approx    int // 估算字节数
}

// resultCache 响应缓存（内部使用）
// 读取时惰性淘汰过期条目；超过容量上限时做一次清扫，
// 先清过期条目，仍超限则按优先级从低到高、同级按写入时间从旧到新淘汰。
type resultCache struct {
	mu          sync.Mutex
	maxEntries  int
	entries     map[string]cacheEntry
	approxBytes int
}

func newResultCache(maxEntries int) *resultCache {
	return &resultCache{
		maxEntries: maxEntries,
		entries:    make(map[string]cacheEntry),
	}
}

func (c *resultCache) get(sig string, now time.Time) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[sig]
	if !ok {
		return nil, false
	}
	if !now.Before(entry.expiresAt) {
		c.removeLocked(sig, entry)
		return nil, false
	}
	return entry.value, true
}

func (c *resultCache) set(sig string, value any, priority Priority, ttl time.Duration, now time.Time) {
	approx := approxSize(sig, value)

	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries[sig]; ok {
		c.approxBytes -= old.approx
	}
	c.entries[sig] = cacheEntry{
		value:     value,
		priority:  priority,
		expiresAt: now.Add(ttl),
		storedAt:  now,
		approx:    approx,
	}
	c.approxBytes += approx

	if len(c.entries) > c.maxEntries {
		c.sweepLocked(now)
	}
}

func (c *resultCache) deleteMatching(substring string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var removed int
	for sig, entry := range c.entries {
		if strings.Contains(sig, substring) {
			c.removeLocked(sig, entry)
			removed++
		}
	}
	return removed
}

func (c *resultCache) clear() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.approxBytes = 0
	c.mu.Unlock()
}

func (c *resultCache) stats() (entries, bytes int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries), c.approxBytes
}

func (c *resultCache) removeLocked(sig string, entry cacheEntry) {
	delete(c.entries, sig)
	c.approxBytes -= entry.approx
}

// sweepLocked 容量清扫：先清过期，仍超限则按优先级/写入时间淘汰
func (c *resultCache) sweepLocked(now time.Time) {
	for sig, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			c.removeLocked(sig, entry)
		}
	}

	for len(c.entries) > c.maxEntries {
		victim := ""
		var victimEntry cacheEntry
		for sig, entry := range c.entries {
			if victim == "" || lessEvictable(entry, victimEntry) {
				victim = sig
				victimEntry = entry
			}
		}
		if victim == "" {
			return
		}
		c.removeLocked(victim, victimEntry)
	}
}

// lessEvictable a 是否比 b 更该被淘汰
func lessEvictable(a, b cacheEntry) bool {
	ra, rb := priorityRank(a.priority), priorityRank(b.priority)
	if ra != rb {
		return ra < rb
	}
	return a.storedAt.Before(b.storedAt)
}

func priorityRank(p Priority) int {
	switch p {
	case PriorityLow:
		return 0
	case PriorityHigh:
		return 2
	default:
		return 1
	}
}

// approxSize 估算条目占用的字节数，失败时取固定值
func approxSize(sig string, value any) int {
	size := len(sig)
	if raw, err := json.Marshal(value); err == nil {
		size += len(raw)
	} else {
		size += 64
	}
	return size
}
