package server

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	Logger "github.com/papermux/papermux/utils/log"
)

const feedCacheKeyPrefix = "feed_xml:"

// FeedCache keeps rendered feed XML in redis for the public cache window.
// A nil client disables caching and every lookup misses; redis errors are
// logged and treated as misses so the feed still renders live.
type FeedCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewFeedCache(client *redis.Client, ttl time.Duration) *FeedCache {
	return &FeedCache{client: client, ttl: ttl}
}

func (f *FeedCache) Get(ctx context.Context, token string) ([]byte, bool) {
	if f == nil || f.client == nil {
		return nil, false
	}
	cached, err := f.client.Get(ctx, feedCacheKeyPrefix+token).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		Logger.Log.Warnf("feed cache get %s: %v", token, err)
		return nil, false
	}
	return cached, true
}

func (f *FeedCache) Set(ctx context.Context, token string, rendered []byte) {
	if f == nil || f.client == nil {
		return
	}
	if err := f.client.Set(ctx, feedCacheKeyPrefix+token, rendered, f.ttl).Err(); err != nil {
		Logger.Log.Warnf("feed cache set %s: %v", token, err)
	}
}

func (f *FeedCache) Invalidate(ctx context.Context, token string) {
	if f == nil || f.client == nil {
		return
	}
	if err := f.client.Del(ctx, feedCacheKeyPrefix+token).Err(); err != nil {
		Logger.Log.Warnf("feed cache invalidate %s: %v", token, err)
	}
}
