// Package session holds the explicitly-owned current-user cache.
//
// The cache is injected into the bindings that need the caller identity (for
// comment authorship, audit attribution) rather than accessed as a process
// singleton, and it is invalidated on every authentication transition by the
// client facade.
package session

import (
	"context"
	"sync"

	"github.com/relaypoint/relaypoint.go/pkg/models"
)

// Cache memoizes the current-user lookup for one authenticated session.
type Cache struct {
	fetch func(ctx context.Context) (models.User, error)

	mu   sync.Mutex
	user *models.User
}

// NewCache wraps the remote current-user lookup.
func NewCache(fetch func(ctx context.Context) (models.User, error)) *Cache {
	return &Cache{fetch: fetch}
}

// Current returns the cached user, fetching it on first use after
// construction or invalidation.
func (c *Cache) Current(ctx context.Context) (models.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user != nil {
		return *c.user, nil
	}
	u, err := c.fetch(ctx)
	if err != nil {
		return models.User{}, err
	}
	c.user = &u
	return u, nil
}

// Invalidate drops the cached user. Called on every authentication
// transition: sign-in, sign-out, token refresh.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.user = nil
	c.mu.Unlock()
}
