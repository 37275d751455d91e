package memory_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/linemk/mc-store/internal/domain/models"
	"github.com/linemk/mc-store/internal/storage"
	"github.com/linemk/mc-store/internal/storage/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestProductRepository_SeedAndFilter(t *testing.T) {
	repo := memory.NewProductRepository([]models.Product{
		{Name: "VIP", Price: decimal.NewFromInt(10), Category: "ranks"},
		{Name: "MVP", Price: decimal.NewFromInt(20), Category: "ranks", Featured: true},
		{Name: "1000 coins", Price: decimal.NewFromInt(5), Category: "coins"},
	})
	ctx := context.Background()

	p, err := repo.GetProductByID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "MVP", p.Name)

	ranks, err := repo.ListProducts(ctx, models.ProductFilter{Category: "ranks"})
	require.NoError(t, err)
	require.Len(t, ranks, 2)
	assert.Equal(t, "MVP", ranks[0].Name, "featured products go first")

	_, err = repo.GetProductByID(ctx, 42)
	assert.True(t, errors.Is(err, storage.ErrProductNotFound))
}

func TestCartRepository_MergeAndOwnership(t *testing.T) {
	repo := memory.NewCartRepository()
	ctx := context.Background()

	first, err := repo.AddLine(ctx, "s1", 1, 2)
	require.NoError(t, err)
	merged, err := repo.AddLine(ctx, "s1", 1, 3)
	require.NoError(t, err)
	assert.Equal(t, first.ID, merged.ID)
	assert.Equal(t, 5, merged.Quantity)

	_, err = repo.SetQuantity(ctx, "s2", first.ID, 1)
	assert.True(t, errors.Is(err, storage.ErrCartLineNotFound))
	assert.True(t, errors.Is(repo.RemoveLine(ctx, "s2", first.ID), storage.ErrCartLineNotFound))

	assert.NoError(t, repo.Clear(ctx, "s1"))
	assert.NoError(t, repo.Clear(ctx, "s1"))
	lines, err := repo.GetLines(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestCartRepository_ConcurrentAdds(t *testing.T) {
	repo := memory.NewCartRepository()
	ctx := context.Background()

	var g errgroup.Group
	for i := 0; i < 50; i++ {
		g.Go(func() error {
			_, err := repo.AddLine(ctx, "s1", 7, 1)
			return err
		})
	}
	require.NoError(t, g.Wait())

	lines, err := repo.GetLines(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 50, lines[0].Quantity)
}

func TestCouponRepository_IncrementGuard(t *testing.T) {
	repo := memory.NewCouponRepository()
	ctx := context.Background()
	maxUsages := 1

	_, err := repo.Create(ctx, &models.Coupon{
		Code:          "ONCE",
		DiscountType:  models.DiscountFixed,
		DiscountValue: decimal.NewFromInt(5),
		MaxUsages:     &maxUsages,
		IsActive:      true,
	})
	require.NoError(t, err)

	var ok, exhausted atomic.Int32
	var g errgroup.Group
	for i := 0; i < 20; i++ {
		g.Go(func() error {
			_, err := repo.IncrementUsage(ctx, "ONCE")
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, storage.ErrCouponExhausted):
				exhausted.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(19), exhausted.Load())

	c, err := repo.GetByCode(ctx, "ONCE")
	require.NoError(t, err)
	assert.Equal(t, 1, c.CurrentUsages)

	_, err = repo.IncrementUsage(ctx, "NOPE")
	assert.True(t, errors.Is(err, storage.ErrCouponNotFound))
}

func TestCouponRepository_AdminOps(t *testing.T) {
	repo := memory.NewCouponRepository()
	ctx := context.Background()

	c, err := repo.Create(ctx, &models.Coupon{Code: "A", DiscountType: models.DiscountFixed, DiscountValue: decimal.NewFromInt(1)})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &models.Coupon{Code: "A", DiscountType: models.DiscountFixed, DiscountValue: decimal.NewFromInt(1)})
	assert.True(t, errors.Is(err, storage.ErrCouponCodeTaken))

	toggled, err := repo.SetActive(ctx, c.ID, true)
	require.NoError(t, err)
	assert.True(t, toggled.IsActive)

	require.NoError(t, repo.Delete(ctx, c.ID))
	assert.True(t, errors.Is(repo.Delete(ctx, c.ID), storage.ErrCouponNotFound))
}

func TestOrderRepository_IdempotencyAndStatus(t *testing.T) {
	repo := memory.NewOrderRepository()
	ctx := context.Background()
	key := "k1"
	session := "s1"

	created, err := repo.Create(ctx, &models.Order{SessionID: &session, Status: models.StatusPending, IdempotencyKey: &key})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	_, err = repo.Create(ctx, &models.Order{SessionID: &session, Status: models.StatusPending, IdempotencyKey: &key})
	assert.True(t, errors.Is(err, storage.ErrDuplicateOrder))

	byKey, err := repo.GetByIdempotencyKey(ctx, session, key)
	require.NoError(t, err)
	assert.Equal(t, created.ID, byKey.ID)

	// тот же ключ в другой сессии означает другой заказ
	_, err = repo.GetByIdempotencyKey(ctx, "s2", key)
	assert.True(t, errors.Is(err, storage.ErrOrderNotFound))
	other := "s2"
	_, err = repo.Create(ctx, &models.Order{SessionID: &other, Status: models.StatusPending, IdempotencyKey: &key})
	require.NoError(t, err)

	updated, err := repo.UpdateStatus(ctx, created.ID, models.StatusPending, models.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, updated.Status)

	_, err = repo.UpdateStatus(ctx, created.ID, models.StatusPending, models.StatusCompleted)
	assert.True(t, errors.Is(err, storage.ErrStatusConflict))

	mine, err := repo.ListForOwner(ctx, "s1", "")
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	cancelled := models.StatusCancelled
	all, err := repo.List(ctx, models.OrderFilter{Status: &cancelled})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = repo.UpdateStatus(ctx, "missing", models.StatusPending, models.StatusFailed)
	assert.True(t, errors.Is(err, storage.ErrOrderNotFound))
}
