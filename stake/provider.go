// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package stake

import (
	"context"
	"fmt"

	"github.com/luxfi/cache/lru"
	"github.com/luxfi/ids"
	"github.com/luxfi/metric"
)

// Provider reports the committee membership at a height.
type Provider interface {
	GetMembers(ctx context.Context, height uint64) (map[ids.NodeID]*Member, error)
}

// GetTable fetches the members at [height] from [provider] and canonicalizes
// them into a table.
func GetTable(ctx context.Context, provider Provider, height uint64) (Table, error) {
	members, err := provider.GetMembers(ctx, height)
	if err != nil {
		return Table{}, fmt.Errorf("failed to get committee members: %w", err)
	}
	return NewTable(members)
}

// CachedProvider memoizes canonical tables by height.
type CachedProvider struct {
	provider Provider
	cache    *lru.Cache[uint64, Table]
	metrics  *cacheMetrics
}

type cacheMetrics struct {
	hits   metric.Counter
	misses metric.Counter
}

func NewCachedProvider(provider Provider, registerer metric.Registerer) (*CachedProvider, error) {
	metrics := &cacheMetrics{
		hits: metric.NewCounter(
			metric.CounterOpts{
				Name: "qc_stake_table_cache_hits",
				Help: "number of stake table cache hits",
			},
		),
		misses: metric.NewCounter(
			metric.CounterOpts{
				Name: "qc_stake_table_cache_misses",
				Help: "number of stake table cache misses",
			},
		),
	}

	if err := registerer.Register(metric.AsCollector(metrics.hits)); err != nil {
		return nil, fmt.Errorf("failed to register cache hits metric: %w", err)
	}
	if err := registerer.Register(metric.AsCollector(metrics.misses)); err != nil {
		return nil, fmt.Errorf("failed to register cache misses metric: %w", err)
	}

	return &CachedProvider{
		provider: provider,
		cache:    lru.NewCache[uint64, Table](8),
		metrics:  metrics,
	}, nil
}

// GetTable returns the canonical table at [height], consulting the cache
// first. Tables are immutable once built, so a cached table is shared across
// callers.
func (c *CachedProvider) GetTable(ctx context.Context, height uint64) (Table, error) {
	if table, ok := c.cache.Get(height); ok {
		c.metrics.hits.Inc()
		return table, nil
	}
	c.metrics.misses.Inc()

	table, err := GetTable(ctx, c.provider, height)
	if err != nil {
		return Table{}, err
	}

	c.cache.Put(height, table)
	return table, nil
}
