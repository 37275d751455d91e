package cache

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/linemk/mc-store/internal/domain/models"
	"github.com/linemk/mc-store/internal/storage"
	"github.com/linemk/mc-store/internal/storage/memory"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingProducts считает обращения к хранилищу
type countingProducts struct {
	storage.ProductStorage
	calls int
}

func (c *countingProducts) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	c.calls++
	return c.ProductStorage.GetProductByID(ctx, id)
}

func setup(t *testing.T) (*CachedProducts, *countingProducts, *miniredis.Miniredis) {
	return setupWithLogger(t, slog.New(slog.NewTextHandler(os.Stdout, nil)))
}

func setupWithLogger(t *testing.T, log *slog.Logger) (*CachedProducts, *countingProducts, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	next := &countingProducts{ProductStorage: memory.NewProductRepository([]models.Product{
		{ID: 1, Name: "VIP", Price: decimal.RequireFromString("9.99"), Category: "ranks"},
	})}
	return NewCachedProducts(log, next, client, time.Minute), next, mr
}

func TestGetProductByID_ReadThrough(t *testing.T) {
	c, next, mr := setup(t)
	ctx := context.Background()

	p, err := c.GetProductByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "VIP", p.Name)
	assert.True(t, mr.Exists(productKey(1)))
	assert.Equal(t, time.Minute, mr.TTL(productKey(1)))

	p, err = c.GetProductByID(ctx, 1)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("9.99").Equal(p.Price))
	assert.Equal(t, 1, next.calls, "second read must be served from redis")
}

func TestGetProductByID_CorruptedEntry(t *testing.T) {
	var buf bytes.Buffer
	c, next, mr := setupWithLogger(t, slog.New(slog.NewJSONHandler(&buf, nil)))
	require.NoError(t, mr.Set(productKey(1), "{not json"))

	p, err := c.GetProductByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "VIP", p.Name)
	assert.Equal(t, 1, next.calls)
	assert.Contains(t, buf.String(), "corrupted cache entry")
	assert.Contains(t, buf.String(), "invalid character")

	// запись перезаписана корректным значением
	cached, err := mr.Get(productKey(1))
	require.NoError(t, err)
	assert.Contains(t, cached, `"VIP"`)
}

func TestGetProductByID_MissNotCached(t *testing.T) {
	c, _, mr := setup(t)

	_, err := c.GetProductByID(context.Background(), 404)
	assert.True(t, errors.Is(err, storage.ErrProductNotFound))
	assert.False(t, mr.Exists(productKey(404)))
}

func TestGetProductByID_RedisDown(t *testing.T) {
	c, next, mr := setup(t)
	mr.Close()

	p, err := c.GetProductByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "VIP", p.Name)
	assert.Equal(t, 1, next.calls)
}

func TestInvalidate(t *testing.T) {
	c, next, mr := setup(t)
	ctx := context.Background()

	_, err := c.GetProductByID(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, c.Invalidate(ctx, 1))
	assert.False(t, mr.Exists(productKey(1)))

	_, err = c.GetProductByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}
