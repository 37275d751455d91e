package service_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/linemk/mc-store/internal/domain/models"
	security "github.com/linemk/mc-store/internal/jwt-new"
	"github.com/linemk/mc-store/internal/service"
	"github.com/linemk/mc-store/internal/storage"
	"github.com/linemk/mc-store/internal/storage/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const adminEmail = "admin@example.com"

var fixedNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

// fakeNotifier запоминает отправленные события
type fakeNotifier struct {
	mu      sync.Mutex
	created []*models.Order
	changed []models.OrderStatus
}

var _ service.OrderNotifier = (*fakeNotifier)(nil)

func (f *fakeNotifier) OrderCreated(order *models.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, order)
}

func (f *fakeNotifier) StatusChanged(order *models.Order, previous models.OrderStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changed = append(f.changed, order.Status)
}

// failingProducts эмулирует недоступное хранилище каталога
type failingProducts struct{}

var _ storage.ProductStorage = failingProducts{}

func (failingProducts) GetProductByID(context.Context, int64) (*models.Product, error) {
	return nil, errors.New("connection refused")
}

func (failingProducts) ListProducts(context.Context, models.ProductFilter) ([]*models.Product, error) {
	return nil, errors.New("connection refused")
}

// shop собирает сервисы поверх хранилищ в памяти
type shop struct {
	products  *memory.ProductRepository
	carts     *memory.CartRepository
	coupons   *memory.CouponRepository
	orders    *memory.OrderRepository
	notifier  *fakeNotifier
	engine    *service.PricingEngine
	checkout  *service.CheckoutService
	lifecycle *service.OrderLifecycle
	cart      *service.CartService
	couponSvc *service.CouponService
}

func newShop(t *testing.T) *shop {
	t.Helper()
	log := newLogger()
	s := &shop{
		products: memory.NewProductRepository([]models.Product{
			{ID: 1, Name: "VIP", Price: decimal.RequireFromString("25.00"), Category: "ranks"},
			{ID: 2, Name: "1000 coins", Price: decimal.RequireFromString("5.00"), Category: "coins"},
			{ID: 3, Name: "Key", Price: decimal.RequireFromString("0.99"), Category: "keys"},
		}),
		carts:    memory.NewCartRepository(),
		coupons:  memory.NewCouponRepository(),
		orders:   memory.NewOrderRepository(),
		notifier: &fakeNotifier{},
	}
	access := security.NewAccessChecker([]string{adminEmail})
	s.engine = service.NewPricingEngine(log, s.products, s.coupons).WithClock(func() time.Time { return fixedNow })
	s.checkout = service.NewCheckoutService(log, s.carts, s.orders, s.engine, s.notifier)
	s.lifecycle = service.NewOrderLifecycle(log, s.orders, access, s.notifier)
	s.cart = service.NewCartService(log, s.carts, s.products)
	s.couponSvc = service.NewCouponService(log, s.coupons, s.engine, access)
	return s
}

type couponOpts struct {
	typ       models.DiscountType
	value     string
	minimum   string
	maxUsages int
	current   int
	inactive  bool
	from      time.Time
	until     time.Time
}

func (s *shop) addCoupon(t *testing.T, code string, o couponOpts) *models.Coupon {
	t.Helper()
	c := &models.Coupon{
		Code:          code,
		DiscountType:  o.typ,
		DiscountValue: decimal.RequireFromString(o.value),
		CurrentUsages: o.current,
		ValidFrom:     fixedNow.Add(-24 * time.Hour),
		ValidUntil:    fixedNow.Add(24 * time.Hour),
		IsActive:      !o.inactive,
	}
	if c.DiscountType == "" {
		c.DiscountType = models.DiscountPercentage
	}
	if o.minimum != "" {
		m := decimal.RequireFromString(o.minimum)
		c.MinimumOrderAmount = &m
	}
	if o.maxUsages > 0 {
		m := o.maxUsages
		c.MaxUsages = &m
	}
	if !o.from.IsZero() {
		c.ValidFrom = o.from
	}
	if !o.until.IsZero() {
		c.ValidUntil = o.until
	}
	created, err := s.coupons.Create(context.Background(), c)
	require.NoError(t, err)
	return created
}

func (s *shop) fillCart(t *testing.T, sessionID string, lines map[int64]int) {
	t.Helper()
	for productID, qty := range lines {
		_, err := s.carts.AddLine(context.Background(), sessionID, productID, qty)
		require.NoError(t, err)
	}
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func admin() service.Requester {
	return service.Requester{UserID: "99", AccountEmail: adminEmail}
}
