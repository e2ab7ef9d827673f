package auth

import (
	"context"
	"sync"
	"time"
)

// TokenExpiryBuffer is how long before expiry a cached token is refreshed
const TokenExpiryBuffer = 60 * time.Second

// CachedToken is a bearer token with its expiry time
type CachedToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsValid checks the token is still usable at now, with the refresh buffer applied
func (tc *CachedToken) IsValid(now time.Time) bool {
	if tc == nil || tc.Token == "" {
		return false
	}
	return now.Add(TokenExpiryBuffer).Before(tc.ExpiresAt)
}

// TokenCache hands out a token and fetches a new one when the cached one is about to expire
type TokenCache struct {
	Fetch func(ctx context.Context) (*CachedToken, error)
	Now   func() time.Time

	mu     sync.Mutex
	cached *CachedToken
}

func NewTokenCache(fetch func(ctx context.Context) (*CachedToken, error)) *TokenCache {
	return &TokenCache{Fetch: fetch, Now: time.Now}
}

// Token returns the cached token or fetches a fresh one
func (c *TokenCache) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if c.Now != nil {
		now = c.Now()
	}
	if c.cached.IsValid(now) {
		return c.cached.Token, nil
	}

	token, err := c.Fetch(ctx)
	if err != nil {
		return "", err
	}
	c.cached = token
	return token.Token, nil
}

// Invalidate drops the cached token, e.g. after the API answered 401
func (c *TokenCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cached = nil
}
