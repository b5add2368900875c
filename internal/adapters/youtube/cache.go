package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"tubelytics/internal/platform/logger"
	"tubelytics/internal/platform/metrics"
	"tubelytics/internal/services/tubelytics/domain"

	"github.com/redis/go-redis/v9"
)

// Cache TTLs. Searches are never cached; the poller wants fresh results
const (
	ChannelCacheTTL = 15 * time.Minute
	RecentCacheTTL  = 5 * time.Minute
	keyPrefix       = "tubelytics:"
)

// CachedProvider is a Redis cache-aside layer over channel and recent video
// lookups. A nil redis client turns it into a pass-through
type CachedProvider struct {
	next    domain.Provider
	rdb     redis.UniversalClient
	metrics *metrics.Metrics
	log     logger.Logger
	channel time.Duration
	recent  time.Duration
}

var _ domain.Provider = (*CachedProvider)(nil)

// NewCachedProvider wraps next. ttl overrides both TTLs when > 0
func NewCachedProvider(next domain.Provider, rdb redis.UniversalClient, m *metrics.Metrics, ttl time.Duration) *CachedProvider {
	c := &CachedProvider{
		next:    next,
		rdb:     rdb,
		metrics: m,
		log:     *logger.Named("youtube.cache"),
		channel: ChannelCacheTTL,
		recent:  RecentCacheTTL,
	}
	if ttl > 0 {
		c.channel, c.recent = ttl, ttl
	}
	return c
}

// SearchVideos is never cached
func (c *CachedProvider) SearchVideos(ctx context.Context, term string) ([]domain.VideoRecord, error) {
	return c.next.SearchVideos(ctx, term)
}

// FetchTags is never cached
func (c *CachedProvider) FetchTags(ctx context.Context, ids []string) (map[string][]string, error) {
	return c.next.FetchTags(ctx, ids)
}

// FetchChannel caches found channels only, so a new channel shows up without waiting
func (c *CachedProvider) FetchChannel(ctx context.Context, channelID string) (domain.ChannelProfile, bool, error) {
	key := channelKey(channelID)
	var p domain.ChannelProfile
	if c.load(ctx, key, &p) {
		return p, true, nil
	}
	p, ok, err := c.next.FetchChannel(ctx, channelID)
	if err != nil || !ok {
		return p, ok, err
	}
	c.store(ctx, key, p, c.channel)
	return p, true, nil
}

// FetchRecentVideosForChannel caches the listing per channel and limit
func (c *CachedProvider) FetchRecentVideosForChannel(ctx context.Context, channelID string, limit int) ([]domain.VideoRecord, error) {
	key := recentKey(channelID, limit)
	var list []domain.VideoRecord
	if c.load(ctx, key, &list) {
		return list, nil
	}
	list, err := c.next.FetchRecentVideosForChannel(ctx, channelID, limit)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, list, c.recent)
	return list, nil
}

// load reports a hit. Redis failures count as misses
func (c *CachedProvider) load(ctx context.Context, key string, out any) bool {
	if c.rdb == nil {
		return false
	}
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn().Err(err).Str("key", key).Msg("cache get failed")
		}
		c.metrics.CacheMiss()
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache entry undecodable; refetching")
		c.metrics.CacheMiss()
		return false
	}
	c.metrics.CacheHit()
	return true
}

func (c *CachedProvider) store(ctx context.Context, key string, v any, ttl time.Duration) {
	if c.rdb == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache encode failed")
		return
	}
	if err := c.rdb.Set(ctx, key, b, ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache set failed")
	}
}

func channelKey(id string) string { return keyPrefix + "channel:" + id }

func recentKey(id string, limit int) string {
	return keyPrefix + "recent:" + id + ":" + strconv.Itoa(limit)
}
