package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/linemk/mc-store/internal/domain/models"
)

// OrderStorage описывает методы для работы с заказами.
type OrderStorage interface {
	// Create сохраняет заказ вместе со снимком строк в одной транзакции.
	// При повторе ключа идемпотентности возвращает ErrDuplicateOrder.
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	GetByID(ctx context.Context, id string) (*models.Order, error)
	// GetByIdempotencyKey ищет заказ по ключу в пределах одной сессии.
	GetByIdempotencyKey(ctx context.Context, sessionID, key string) (*models.Order, error)
	// UpdateStatus меняет статус и updated_at, только если текущий статус равен from.
	// Если статус успели изменить, возвращает ErrStatusConflict.
	UpdateStatus(ctx context.Context, id string, from, to models.OrderStatus) (*models.Order, error)
	// ListForOwner возвращает заказы сессии или пользователя, новые первыми.
	ListForOwner(ctx context.Context, sessionID, userID string) ([]*models.Order, error)
	List(ctx context.Context, filter models.OrderFilter) ([]*models.Order, error)
}

// orderRepository: конкретная реализация OrderStorage.
type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт новый репозиторий заказов.
func NewOrderRepository(db *sql.DB) OrderStorage {
	return &orderRepository{db: db}
}

const orderColumns = "id, session_id, user_id, original_amount, discount_amount, total_amount, coupon_code, status, player_name, email, payment_method, idempotency_key, created_at, updated_at"

func scanOrder(row rowScanner) (*models.Order, error) {
	o := &models.Order{}
	var sessionID, userID, couponCode, playerName, idemKey sql.NullString
	err := row.Scan(&o.ID, &sessionID, &userID, &o.OriginalAmount, &o.DiscountAmount, &o.TotalAmount,
		&couponCode, &o.Status, &playerName, &o.Email, &o.PaymentMethod, &idemKey, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.SessionID = nullableString(sessionID)
	o.UserID = nullableString(userID)
	o.CouponCode = nullableString(couponCode)
	o.PlayerName = nullableString(playerName)
	o.IdempotencyKey = nullableString(idemKey)
	return o, nil
}

func nullableString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func stringOrNil(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// Create вставляет заказ и его строки. Если что-то идет не так, транзакция откатывается.
func (r *orderRepository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	query := `INSERT INTO orders (id, session_id, user_id, original_amount, discount_amount, total_amount,
	                              coupon_code, status, player_name, email, payment_method, idempotency_key,
	                              created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
	          RETURNING created_at, updated_at`
	err = tx.QueryRowContext(ctx, query,
		order.ID,
		stringOrNil(order.SessionID),
		stringOrNil(order.UserID),
		order.OriginalAmount.String(),
		order.DiscountAmount.String(),
		order.TotalAmount.String(),
		stringOrNil(order.CouponCode),
		string(order.Status),
		stringOrNil(order.PlayerName),
		order.Email,
		order.PaymentMethod,
		stringOrNil(order.IdempotencyKey),
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		_ = tx.Rollback()
		if isUniqueViolation(err) {
			return nil, ErrDuplicateOrder
		}
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	itemQuery := `INSERT INTO order_items (order_id, product_id, product_name, quantity, unit_price, total_price)
	              VALUES ($1, $2, $3, $4, $5, $6)`
	for _, item := range order.Items {
		if _, err := tx.ExecContext(ctx, itemQuery,
			order.ID, item.ProductID, item.ProductName, item.Quantity,
			item.UnitPrice.String(), item.TotalPrice.String(),
		); err != nil {
			_ = tx.Rollback()
			return nil, fmt.Errorf("failed to create order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit order: %w", err)
	}
	return order, nil
}

func (r *orderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	return r.getOne(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1", id)
}

func (r *orderRepository) GetByIdempotencyKey(ctx context.Context, sessionID, key string) (*models.Order, error) {
	return r.getOne(ctx, "SELECT "+orderColumns+" FROM orders WHERE session_id = $1 AND idempotency_key = $2", sessionID, key)
}

func (r *orderRepository) getOne(ctx context.Context, query string, args ...any) (*models.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if err := r.attachItems(ctx, []*models.Order{order}); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id string, from, to models.OrderStatus) (*models.Order, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3",
		string(to), id, string(from))
	if err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		var exists bool
		if err := r.db.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)", id).Scan(&exists); err != nil {
			return nil, fmt.Errorf("failed to check order: %w", err)
		}
		if !exists {
			return nil, ErrOrderNotFound
		}
		return nil, ErrStatusConflict
	}
	return r.GetByID(ctx, id)
}

func (r *orderRepository) ListForOwner(ctx context.Context, sessionID, userID string) ([]*models.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE session_id = $1 OR ($2 <> '' AND user_id = $2)
		ORDER BY created_at DESC`
	return r.list(ctx, query, sessionID, userID)
}

func (r *orderRepository) List(ctx context.Context, filter models.OrderFilter) ([]*models.Order, error) {
	var status any
	if filter.Status != nil {
		status = string(*filter.Status)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`
	return r.list(ctx, query, status, limit, filter.Offset)
}

func (r *orderRepository) list(ctx context.Context, query string, args ...any) ([]*models.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// attachItems подгружает строки для пачки заказов одним запросом.
func (r *orderRepository) attachItems(ctx context.Context, orders []*models.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, 0, len(orders))
	byID := make(map[string]*models.Order, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
		byID[o.ID] = o
		o.Items = []models.OrderLineItem{}
	}

	query := `
		SELECT order_id, product_id, product_name, quantity, unit_price, total_price
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var orderID string
		var item models.OrderLineItem
		if err := rows.Scan(&orderID, &item.ProductID, &item.ProductName, &item.Quantity, &item.UnitPrice, &item.TotalPrice); err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		if o, ok := byID[orderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	return rows.Err()
}
