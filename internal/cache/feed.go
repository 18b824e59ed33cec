package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"github.com/oddslab/edgegate/internal/pipeline"
)

const feedKey = "edgegate:opportunities"

// Feed serves the candidate opportunity list. The list itself lives in
// <data>/opportunities.json; a Redis layer (optional) caches the parsed feed
// with a TTL so hot paths avoid re-reading the file. Signal scores are never
// cached — callers recompute them per request.
type Feed struct {
	path  string
	redis *redis.Client
	ttl   time.Duration
}

// NewFeed creates a feed reader. rdb may be nil to run without Redis.
func NewFeed(dataDir string, rdb *redis.Client, ttl time.Duration) *Feed {
	return &Feed{
		path:  filepath.Join(dataDir, "opportunities.json"),
		redis: rdb,
		ttl:   ttl,
	}
}

// Load returns the current opportunity list.
func (f *Feed) Load(ctx context.Context) ([]pipeline.Candidate, error) {
	if f.redis != nil {
		if cached, err := f.redis.Get(ctx, feedKey).Bytes(); err == nil {
			var out []pipeline.Candidate
			if err := json.Unmarshal(cached, &out); err == nil {
				return out, nil
			}
			// Corrupt cache entry falls through to the file.
			log.Warn().Msg("discarding undecodable opportunity feed cache entry")
		}
	}

	b, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return []pipeline.Candidate{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read opportunity feed: %w", err)
	}

	var out []pipeline.Candidate
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("failed to decode opportunity feed: %w", err)
	}

	if f.redis != nil {
		if err := f.redis.Set(ctx, feedKey, b, f.ttl).Err(); err != nil {
			log.Warn().Err(err).Msg("failed to cache opportunity feed")
		}
	}
	return out, nil
}

// Invalidate drops the cached feed so the next Load re-reads the file.
func (f *Feed) Invalidate(ctx context.Context) error {
	if f.redis == nil {
		return nil
	}
	return f.redis.Del(ctx, feedKey).Err()
}
