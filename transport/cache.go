// Copyright 2021 The sessionx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"net/http"
	"sync"
	"time"

	"github.com/gogama/sessionx"
)

// A MemoryCache keeps cached responses in memory. Entries older than
// MaxAge are treated as absent; a zero MaxAge keeps entries forever.
//
// A MemoryCache is safe for concurrent use. The zero value is an empty
// cache.
type MemoryCache struct {
	MaxAge time.Duration

	mu      sync.Mutex
	entries map[string]*sessionx.CachedResponse
	now     func() time.Time
}

// CacheKey returns the key under which responses to req are cached.
func CacheKey(req *http.Request) string {
	return req.Method + " " + req.URL.String()
}

// Load returns the entry stored under key, if there is a fresh one.
func (c *MemoryCache) Load(key string) (*sessionx.CachedResponse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.MaxAge > 0 && c.clock().Sub(e.StoredAt) > c.MaxAge {
		delete(c.entries, key)
		return nil, false
	}
	return e, true
}

// Store adds e to the cache under e.Key, replacing any previous entry.
func (c *MemoryCache) Store(e *sessionx.CachedResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = make(map[string]*sessionx.CachedResponse)
	}
	c.entries[e.Key] = e
}

// Len returns the number of entries, fresh or not.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *MemoryCache) clock() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now()
}

// cacheable reports whether a response to req with the given status
// may be proposed for caching.
func cacheable(req *http.Request, status int) bool {
	return req.Method == http.MethodGet && status == http.StatusOK &&
		req.Header.Get("Range") == "" && req.Header.Get("Authorization") == ""
}
