// Package oracle implements the PriorityOracle external-collaborator
// contract: a blocking unary function from observation to a
// strategic priority, with a deterministic rule-based fallback the kernel
// substitutes on any error.
package oracle

import (
	"context"
	"errors"
	"sync"
	"time"

	"banksim/internal/bank"
)

// ErrUnavailable is returned by a backend when it cannot serve a decision;
// callers should fall back rather than retry indefinitely.
var ErrUnavailable = errors.New("oracle: backend unavailable")

// Oracle maps an observation to a strategic priority.
type Oracle interface {
	Priority(ctx context.Context, obs bank.Observation) (bank.Priority, error)
}

// Fallback is the rule-based decision table the kernel substitutes on any
// backend error: critical thresholds first, PROFIT otherwise.
func Fallback(obs bank.Observation) bank.Priority {
	switch {
	case obs.LiquidityRatio < 0.15 || obs.Borrowed > 0 && obs.LiquidityGap > 0.3:
		return bank.PriorityLiquidity
	case obs.LocalStress > 0.5 || obs.Leverage > obs.LeverageGap+6:
		return bank.PriorityStability
	default:
		return bank.PriorityProfit
	}
}

// bucket quantises an observation into coarse buckets so near-identical
// observations map to the same cache key within a short window.
type bucket struct {
	leverageBucket int
	liquidityBucket int
	stressBucket   int
}

func quantise(obs bank.Observation) bucket {
	return bucket{
		leverageBucket:  int(obs.Leverage * 4),
		liquidityBucket: int(obs.LiquidityRatio * 10),
		stressBucket:    int(obs.LocalStress * 10),
	}
}

type cacheEntry struct {
	priority bank.Priority
	expires  time.Time
}

// CachingOracle wraps a backend Oracle with a bucket-quantised, short-TTL
// cache, and falls back to the rule-based table on any backend error.
type CachingOracle struct {
	backend Oracle
	ttl     time.Duration

	mu    sync.Mutex
	cache map[bucket]cacheEntry
}

// NewCachingOracle wraps backend with a cache of the given TTL. A zero or
// negative TTL disables caching (every call reaches the backend).
func NewCachingOracle(backend Oracle, ttl time.Duration) *CachingOracle {
	return &CachingOracle{backend: backend, ttl: ttl, cache: make(map[bucket]cacheEntry)}
}

// Priority consults the cache, then the backend, falling back to the
// rule-based table on any error so the kernel never blocks on this
// collaborator.
func (c *CachingOracle) Priority(ctx context.Context, obs bank.Observation) bank.Priority {
	key := quantise(obs)

	if c.ttl > 0 {
		c.mu.Lock()
		if entry, ok := c.cache[key]; ok && time.Now().Before(entry.expires) {
			c.mu.Unlock()
			return entry.priority
		}
		c.mu.Unlock()
	}

	p, err := c.backend.Priority(ctx, obs)
	if err != nil {
		return Fallback(obs)
	}

	if c.ttl > 0 {
		c.mu.Lock()
		c.cache[key] = cacheEntry{priority: p, expires: time.Now().Add(c.ttl)}
		c.mu.Unlock()
	}
	return p
}

// RuleBasedOracle is a backend whose Priority is always the fallback table
// — useful as the default when no external oracle is configured.
type RuleBasedOracle struct{}

func (RuleBasedOracle) Priority(_ context.Context, obs bank.Observation) (bank.Priority, error) {
	return Fallback(obs), nil
}
