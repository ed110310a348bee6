package services

import (
	"context"
	"encoding/json"

	"github.com/portalxml/portal-api/internal/portal"
	"github.com/sirupsen/logrus"
)

const chaveConectados = "portal:clientes-conectados"

// Cache is the subset of CacheService the memoization needs
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error
}

// ConectadosFetcher fetches the connected-client set upstream
type ConectadosFetcher interface {
	ClientesConectados(ctx context.Context) (portal.ConnectedSet, error)
}

// ConectadosCache decorates the backend connected-set endpoint with a
// short-TTL cache. Every status poller in every session funnels through
// here, so one upstream call serves all of them within a TTL window.
type ConectadosCache struct {
	upstream ConectadosFetcher
	cache    Cache
	logger   *logrus.Logger
}

// NewConectadosCache creates the memoized connected-set fetcher
func NewConectadosCache(upstream ConectadosFetcher, cache Cache, logger *logrus.Logger) *ConectadosCache {
	return &ConectadosCache{upstream: upstream, cache: cache, logger: logger}
}

// ClientesConectados returns the cached set when fresh, otherwise
// fetches upstream and repopulates the cache.
func (c *ConectadosCache) ClientesConectados(ctx context.Context) (portal.ConnectedSet, error) {
	if raw, err := c.cache.Get(ctx, chaveConectados); err == nil {
		var ids []string
		if uerr := json.Unmarshal([]byte(raw), &ids); uerr == nil {
			set := make(portal.ConnectedSet, len(ids))
			for _, id := range ids {
				set[id] = struct{}{}
			}
			return set, nil
		} else {
			c.logger.WithError(uerr).Warn("Discarding corrupt connected-set cache entry")
		}
	}

	set, err := c.upstream.ClientesConectados(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	if raw, err := json.Marshal(ids); err == nil {
		if err := c.cache.Set(ctx, chaveConectados, string(raw)); err != nil {
			c.logger.WithError(err).Warn("Failed to cache connected set")
		}
	}
	return set, nil
}
