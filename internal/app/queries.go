package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"campground_ingest/internal/domain"
)

// QueryService serves campground reads through the cache. Stored rows are
// never overwritten by ingestion, so cached entries only expire by TTL.
type QueryService struct {
	store    domain.CampgroundStore
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(s domain.CampgroundStore, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{store: s, cache: c, cacheTTL: ttl}
}

func cacheKey(id string) string { return "campground:" + id }

func (s *QueryService) GetCampground(ctx context.Context, id string) (domain.Campground, error) {
	key := cacheKey(id)
	var c domain.Campground
	if s.cache != nil {
		ok, err := s.cache.Get(ctx, key, &c)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("cache get failed")
		} else if ok {
			return c, nil
		}
	}

	c, err := s.store.GetCampground(ctx, id)
	if err != nil {
		return domain.Campground{}, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, c, int(s.cacheTTL.Seconds())); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("cache set failed")
		}
	}
	return c, nil
}
