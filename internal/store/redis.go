package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"renos/internal/constants"
	"renos/internal/logger"
	"renos/pkg/metrics"
)

// CachedQuotes fronts the quote lookup with Redis. The duplicate guard
// hits this on every inbound lead, and the same address often arrives
// several times in a burst when a customer shops portals.
type CachedQuotes struct {
	client *redis.Client
	store  *PostgresStore
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedQuotes(client *redis.Client, store *PostgresStore, ttl time.Duration, log logger.Logger) *CachedQuotes {
	return &CachedQuotes{client: client, store: store, ttl: ttl, logger: log}
}

func quoteKey(email string) string {
	return constants.CacheKeyPrefixQuote + email
}

func (c *CachedQuotes) LastQuote(ctx context.Context, email string) (*QuoteRecord, error) {
	key := quoteKey(email)

	data, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var rec QuoteRecord
		if jsonErr := json.Unmarshal(data, &rec); jsonErr == nil {
			metrics.IncDatabaseQuery(serviceName, "redis", "last_quote", "hit")
			return &rec, nil
		}
	} else if err != redis.Nil {
		// Cache trouble degrades to the database, never to a miss.
		c.logger.WarnwCtx(ctx, "Quote cache read failed", "error", err)
	}

	metrics.IncDatabaseQuery(serviceName, "redis", "last_quote", "miss")

	rec, err := c.store.LastQuote(ctx, email)
	if err != nil || rec == nil {
		return rec, err
	}

	c.cache(ctx, key, rec)
	return rec, nil
}

func (c *CachedQuotes) RecordQuoteSent(ctx context.Context, rec *QuoteRecord) error {
	if err := c.store.RecordQuoteSent(ctx, rec); err != nil {
		return err
	}
	c.cache(ctx, quoteKey(rec.Email), rec)
	return nil
}

func (c *CachedQuotes) cache(ctx context.Context, key string, rec *QuoteRecord) {
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.WarnwCtx(ctx, "Quote cache write failed", "error", err)
	}
}
