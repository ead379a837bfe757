// Package lrucache provides an in-process userdb.Cache backed by a
// fixed-size LRU list.
//
//	c := lrucache.New(10000)
//	st := store.New(drv, store.WithCache(c))
package lrucache

import (
	"context"
	"sync"
	"time"

	"github.com/golang/groupcache/lru"

	"github.com/syssam/userdb"
)

type entry struct {
	value   []byte
	expires time.Time // zero means never
}

// Cache is a userdb.Cache holding at most a fixed number of entries.
// It is safe for concurrent use.
type Cache struct {
	mu  sync.Mutex
	lru *lru.Cache
	now func() time.Time
}

var _ userdb.Cache = (*Cache)(nil)

// New returns a cache holding up to maxEntries values. Zero means no limit.
func New(maxEntries int) *Cache {
	return &Cache{lru: lru.New(maxEntries), now: time.Now}
}

// Get returns the value stored under key, or nil when it is missing or
// expired.
func (c *Cache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.lru.Get(key)
	if !ok {
		return nil, nil
	}
	e := v.(entry)
	if !e.expires.IsZero() && !c.now().Before(e.expires) {
		c.lru.Remove(key)
		return nil, nil
	}
	return e.value, nil
}

// Set stores value under key. A zero ttl never expires.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := entry{value: value}
	if ttl > 0 {
		e.expires = c.now().Add(ttl)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(key, e)
	return nil
}

// Delete removes key.
func (c *Cache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Remove(key)
	return nil
}

// Clear removes every entry.
func (c *Cache) Clear(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Clear()
	return nil
}

// Len returns the number of entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
