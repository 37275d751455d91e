// Package cache содержит read-through кэш каталога поверх Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/linemk/mc-store/internal/domain/models"
	"github.com/linemk/mc-store/internal/storage"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "mcstore:product:"

var _ storage.ProductStorage = (*CachedProducts)(nil)

// CachedProducts кэширует карточки товаров по ID. Списки каталога
// не кэшируются и всегда читаются из хранилища.
type CachedProducts struct {
	log    *slog.Logger
	next   storage.ProductStorage
	client *redis.Client
	ttl    time.Duration
}

func NewCachedProducts(log *slog.Logger, next storage.ProductStorage, client *redis.Client, ttl time.Duration) *CachedProducts {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedProducts{log: log, next: next, client: client, ttl: ttl}
}

func productKey(id int64) string {
	return fmt.Sprintf("%s%d", keyPrefix, id)
}

// GetProductByID читает товар из Redis, при промахе обращается к хранилищу.
// Ошибки Redis не прерывают запрос: чтение уходит в хранилище.
func (c *CachedProducts) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	const op = "cache.CachedProducts.GetProductByID"
	logger := c.log.With(slog.String("op", op), slog.Int64("product_id", id))

	data, err := c.client.Get(ctx, productKey(id)).Bytes()
	switch {
	case err == nil:
		var p models.Product
		decodeErr := json.Unmarshal(data, &p)
		if decodeErr == nil {
			return &p, nil
		}
		logger.Warn("corrupted cache entry", slog.Any("error", decodeErr))
	case !errors.Is(err, redis.Nil):
		logger.Warn("redis get failed", slog.Any("error", err))
	}

	p, err := c.next.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(p)
	if err != nil {
		return p, nil
	}
	if err := c.client.Set(ctx, productKey(id), payload, c.ttl).Err(); err != nil {
		logger.Warn("redis set failed", slog.Any("error", err))
	}
	return p, nil
}

func (c *CachedProducts) ListProducts(ctx context.Context, filter models.ProductFilter) ([]*models.Product, error) {
	return c.next.ListProducts(ctx, filter)
}

// Invalidate удаляет товар из кэша.
func (c *CachedProducts) Invalidate(ctx context.Context, id int64) error {
	if err := c.client.Del(ctx, productKey(id)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}
