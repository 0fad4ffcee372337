package memory

import (
	"context"
	"sync"
	"time"
)

// HintCache keeps generated hints in process memory.
type HintCache struct {
	clock func() time.Time

	mu    sync.RWMutex
	items map[string]cachedHint
}

type cachedHint struct {
	text      string
	expiresAt time.Time
}

func NewHintCache() *HintCache {
	return &HintCache{clock: time.Now, items: make(map[string]cachedHint)}
}

func (c *HintCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.items[key]
	if !ok || (!item.expiresAt.IsZero() && !item.expiresAt.After(c.clock())) {
		return "", false, nil
	}
	return item.text, true, nil
}

// Set stores text for key; a non-positive ttl keeps it until overwritten.
func (c *HintCache) Set(_ context.Context, key, text string, ttl time.Duration) error {
	item := cachedHint{text: text}
	if ttl > 0 {
		item.expiresAt = c.clock().Add(ttl)
	}
	c.mu.Lock()
	c.items[key] = item
	c.mu.Unlock()
	return nil
}
