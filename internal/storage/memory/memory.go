// Package memory содержит хранилища в памяти процесса. Используются драйвером
// storage.driver=memory для локального запуска и в тестах сервисов.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/linemk/mc-store/internal/domain/models"
	"github.com/linemk/mc-store/internal/storage"
)

var (
	_ storage.ProductStorage = (*ProductRepository)(nil)
	_ storage.CartStorage    = (*CartRepository)(nil)
	_ storage.CouponStorage  = (*CouponRepository)(nil)
	_ storage.OrderStorage   = (*OrderRepository)(nil)
	_ storage.UserStorage    = (*UserRepository)(nil)
)

// ProductRepository: каталог в памяти, наполняется один раз при создании.
type ProductRepository struct {
	mu       sync.RWMutex
	products map[int64]models.Product
}

// NewProductRepository создаёт каталог из seed. Нулевые ID назначаются по порядку.
func NewProductRepository(seed []models.Product) *ProductRepository {
	r := &ProductRepository{products: make(map[int64]models.Product, len(seed))}
	var next int64
	for _, p := range seed {
		if p.ID > next {
			next = p.ID
		}
	}
	for _, p := range seed {
		if p.ID == 0 {
			next++
			p.ID = next
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = time.Now()
		}
		r.products[p.ID] = p
	}
	return r
}

// Put добавляет или заменяет товар.
func (r *ProductRepository) Put(p models.Product) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[p.ID] = p
}

// Remove удаляет товар из каталога. Строки корзин на него остаются.
func (r *ProductRepository) Remove(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.products, id)
}

func (r *ProductRepository) GetProductByID(_ context.Context, id int64) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.products[id]
	if !ok {
		return nil, storage.ErrProductNotFound
	}
	return &p, nil
}

func (r *ProductRepository) ListProducts(_ context.Context, filter models.ProductFilter) ([]*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*models.Product
	for _, p := range r.products {
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if filter.FeaturedOnly && !p.Featured {
			continue
		}
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Featured != out[j].Featured {
			return out[i].Featured
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// CartRepository: корзины сессий в памяти.
type CartRepository struct {
	mu     sync.Mutex
	nextID int64
	lines  map[int64]*models.CartLineItem
}

func NewCartRepository() *CartRepository {
	return &CartRepository{lines: make(map[int64]*models.CartLineItem)}
}

func (r *CartRepository) GetLines(_ context.Context, sessionID string) ([]*models.CartLineItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.CartLineItem
	for _, l := range r.lines {
		if l.SessionID == sessionID {
			line := *l
			out = append(out, &line)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// AddLine суммирует количество с существующей строкой той же пары (сессия, товар).
func (r *CartRepository) AddLine(_ context.Context, sessionID string, productID int64, quantity int) (*models.CartLineItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for _, l := range r.lines {
		if l.SessionID == sessionID && l.ProductID == productID {
			l.Quantity += quantity
			l.UpdatedAt = now
			line := *l
			return &line, nil
		}
	}
	r.nextID++
	l := &models.CartLineItem{
		ID:        r.nextID,
		SessionID: sessionID,
		ProductID: productID,
		Quantity:  quantity,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.lines[l.ID] = l
	line := *l
	return &line, nil
}

func (r *CartRepository) SetQuantity(_ context.Context, sessionID string, lineID int64, quantity int) (*models.CartLineItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.lines[lineID]
	if !ok || l.SessionID != sessionID {
		return nil, storage.ErrCartLineNotFound
	}
	l.Quantity = quantity
	l.UpdatedAt = time.Now()
	line := *l
	return &line, nil
}

func (r *CartRepository) RemoveLine(_ context.Context, sessionID string, lineID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.lines[lineID]
	if !ok || l.SessionID != sessionID {
		return storage.ErrCartLineNotFound
	}
	delete(r.lines, lineID)
	return nil
}

func (r *CartRepository) Clear(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, l := range r.lines {
		if l.SessionID == sessionID {
			delete(r.lines, id)
		}
	}
	return nil
}

// CouponRepository: купоны в памяти, по нормализованному коду.
type CouponRepository struct {
	mu      sync.Mutex
	nextID  int64
	coupons map[string]*models.Coupon
}

func NewCouponRepository() *CouponRepository {
	return &CouponRepository{coupons: make(map[string]*models.Coupon)}
}

func cloneCoupon(c *models.Coupon) *models.Coupon {
	out := *c
	if c.MinimumOrderAmount != nil {
		v := *c.MinimumOrderAmount
		out.MinimumOrderAmount = &v
	}
	if c.MaxUsages != nil {
		v := *c.MaxUsages
		out.MaxUsages = &v
	}
	if c.Description != nil {
		v := *c.Description
		out.Description = &v
	}
	return &out
}

func (r *CouponRepository) GetByCode(_ context.Context, code string) (*models.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.coupons[code]
	if !ok {
		return nil, storage.ErrCouponNotFound
	}
	return cloneCoupon(c), nil
}

// IncrementUsage проверяет лимит и увеличивает счётчик под одной блокировкой.
func (r *CouponRepository) IncrementUsage(_ context.Context, code string) (*models.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.coupons[code]
	if !ok {
		return nil, storage.ErrCouponNotFound
	}
	if c.Exhausted() {
		return nil, storage.ErrCouponExhausted
	}
	c.CurrentUsages++
	c.UpdatedAt = time.Now()
	return cloneCoupon(c), nil
}

func (r *CouponRepository) Create(_ context.Context, coupon *models.Coupon) (*models.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.coupons[coupon.Code]; ok {
		return nil, storage.ErrCouponCodeTaken
	}
	r.nextID++
	c := cloneCoupon(coupon)
	c.ID = r.nextID
	now := time.Now()
	c.CreatedAt, c.UpdatedAt = now, now
	r.coupons[c.Code] = c
	return cloneCoupon(c), nil
}

func (r *CouponRepository) List(_ context.Context) ([]*models.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Coupon, 0, len(r.coupons))
	for _, c := range r.coupons {
		out = append(out, cloneCoupon(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *CouponRepository) byID(id int64) *models.Coupon {
	for _, c := range r.coupons {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (r *CouponRepository) SetActive(_ context.Context, id int64, active bool) (*models.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.byID(id)
	if c == nil {
		return nil, storage.ErrCouponNotFound
	}
	c.IsActive = active
	c.UpdatedAt = time.Now()
	return cloneCoupon(c), nil
}

func (r *CouponRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.byID(id)
	if c == nil {
		return storage.ErrCouponNotFound
	}
	delete(r.coupons, c.Code)
	return nil
}

// OrderRepository: заказы в памяти, ключ идемпотентности уникален в пределах сессии.
type OrderRepository struct {
	mu     sync.RWMutex
	orders map[string]*models.Order
	byKey  map[string]string
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		orders: make(map[string]*models.Order),
		byKey:  make(map[string]string),
	}
}

func cloneOrder(o *models.Order) *models.Order {
	out := *o
	out.Items = append([]models.OrderLineItem{}, o.Items...)
	return &out
}

func (r *OrderRepository) Create(_ context.Context, order *models.Order) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var key string
	if order.IdempotencyKey != nil {
		key = idempotencyIndex(order.SessionID, *order.IdempotencyKey)
		if _, ok := r.byKey[key]; ok {
			return nil, storage.ErrDuplicateOrder
		}
	}
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	now := time.Now()
	order.CreatedAt, order.UpdatedAt = now, now
	r.orders[order.ID] = cloneOrder(order)
	if order.IdempotencyKey != nil {
		r.byKey[key] = order.ID
	}
	return order, nil
}

func (r *OrderRepository) GetByID(_ context.Context, id string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, storage.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func idempotencyIndex(sessionID *string, key string) string {
	var session string
	if sessionID != nil {
		session = *sessionID
	}
	return session + "\x00" + key
}

func (r *OrderRepository) GetByIdempotencyKey(ctx context.Context, sessionID, key string) (*models.Order, error) {
	r.mu.RLock()
	id, ok := r.byKey[idempotencyIndex(&sessionID, key)]
	r.mu.RUnlock()
	if !ok {
		return nil, storage.ErrOrderNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *OrderRepository) UpdateStatus(_ context.Context, id string, from, to models.OrderStatus) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, storage.ErrOrderNotFound
	}
	if o.Status != from {
		return nil, storage.ErrStatusConflict
	}
	o.Status = to
	o.UpdatedAt = time.Now()
	return cloneOrder(o), nil
}

func (r *OrderRepository) ListForOwner(_ context.Context, sessionID, userID string) ([]*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*models.Order
	for _, o := range r.orders {
		if (o.SessionID != nil && *o.SessionID == sessionID) ||
			(userID != "" && o.UserID != nil && *o.UserID == userID) {
			out = append(out, cloneOrder(o))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (r *OrderRepository) List(_ context.Context, filter models.OrderFilter) ([]*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*models.Order
	for _, o := range r.orders {
		if filter.Status != nil && o.Status != *filter.Status {
			continue
		}
		out = append(out, cloneOrder(o))
	}
	sortNewestFirst(out)

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if filter.Offset >= len(out) {
		return nil, nil
	}
	out = out[filter.Offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func sortNewestFirst(orders []*models.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID > orders[j].ID
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}

// UserRepository: учётные записи в памяти. Email сравнивается без учёта регистра.
type UserRepository struct {
	mu     sync.Mutex
	nextID int64
	users  map[string]*models.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]*models.User)}
}

func (r *UserRepository) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[strings.ToLower(email)]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	out := *u
	return &out, nil
}

func (r *UserRepository) CreateUser(_ context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	user.ID = r.nextID
	user.CreatedAt = time.Now()
	stored := *user
	r.users[strings.ToLower(user.Email)] = &stored
	return user, nil
}
