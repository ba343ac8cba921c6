package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	appErrors "github.com/noah-isme/caderneta-api/pkg/errors"
)

const reportKeyPrefix = "caderneta:report:"

// ReportCacheRepository keeps rendered workbooks in Redis. A nil client
// disables caching: reads miss and writes are dropped.
type ReportCacheRepository struct {
	client *redis.Client
}

// NewReportCacheRepository constructs a report cache repository.
func NewReportCacheRepository(client *redis.Client) *ReportCacheRepository {
	return &ReportCacheRepository{client: client}
}

// Key builds the cache key of one notebook rendered with one weight fingerprint.
func (r *ReportCacheRepository) Key(notebookID, fingerprint string) string {
	return fmt.Sprintf("%s%s:%s", reportKeyPrefix, notebookID, fingerprint)
}

// Get returns the cached workbook or appErrors.ErrCacheMiss.
func (r *ReportCacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	if r.client == nil {
		return nil, appErrors.ErrCacheMiss
	}

	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, appErrors.ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return raw, nil
}

// Set stores the workbook with the given TTL.
func (r *ReportCacheRepository) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Invalidate drops every cached rendering of a notebook.
func (r *ReportCacheRepository) Invalidate(ctx context.Context, notebookID string) error {
	if r.client == nil {
		return nil
	}

	pattern := reportKeyPrefix + notebookID + ":*"
	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if err := r.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("redis delete %s: %w", key, err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan pattern %s: %w", pattern, err)
	}
	return nil
}

// Close releases the underlying Redis connection if present.
func (r *ReportCacheRepository) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}
