package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/linemk/mc-store/internal/domain/models"
	"github.com/shopspring/decimal"
)

// CouponStorage описывает методы для работы с промокодами.
type CouponStorage interface {
	// GetByCode ищет купон по нормализованному коду.
	GetByCode(ctx context.Context, code string) (*models.Coupon, error)
	// IncrementUsage атомарно увеличивает счётчик использований, если лимит не исчерпан.
	// Возвращает ErrCouponExhausted, если лимит достигнут, и ErrCouponNotFound, если купона нет.
	IncrementUsage(ctx context.Context, code string) (*models.Coupon, error)
	Create(ctx context.Context, coupon *models.Coupon) (*models.Coupon, error)
	List(ctx context.Context) ([]*models.Coupon, error)
	SetActive(ctx context.Context, id int64, active bool) (*models.Coupon, error)
	Delete(ctx context.Context, id int64) error
}

type couponRepository struct {
	db *sql.DB
}

// NewCouponRepository создаёт новый репозиторий купонов.
func NewCouponRepository(db *sql.DB) CouponStorage {
	return &couponRepository{db: db}
}

const couponColumns = "id, code, discount_type, discount_value, minimum_order_amount, max_usages, current_usages, valid_from, valid_until, is_active, description, created_at, updated_at"

func scanCoupon(row rowScanner) (*models.Coupon, error) {
	c := &models.Coupon{}
	var (
		minimum     decimal.NullDecimal
		maxUsages   sql.NullInt64
		description sql.NullString
	)
	err := row.Scan(&c.ID, &c.Code, &c.DiscountType, &c.DiscountValue, &minimum, &maxUsages,
		&c.CurrentUsages, &c.ValidFrom, &c.ValidUntil, &c.IsActive, &description, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if minimum.Valid {
		c.MinimumOrderAmount = &minimum.Decimal
	}
	if maxUsages.Valid {
		v := int(maxUsages.Int64)
		c.MaxUsages = &v
	}
	if description.Valid {
		c.Description = &description.String
	}
	return c, nil
}

func (r *couponRepository) GetByCode(ctx context.Context, code string) (*models.Coupon, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+couponColumns+" FROM coupons WHERE code = $1", code)
	c, err := scanCoupon(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCouponNotFound
		}
		return nil, fmt.Errorf("failed to get coupon: %w", err)
	}
	return c, nil
}

// IncrementUsage выполняет проверку лимита и инкремент одним UPDATE.
// Строка блокируется на время обновления, поэтому конкурентные вызовы
// не могут оба пройти проверку current_usages < max_usages.
func (r *couponRepository) IncrementUsage(ctx context.Context, code string) (*models.Coupon, error) {
	query := `UPDATE coupons SET current_usages = current_usages + 1, updated_at = NOW()
	          WHERE code = $1 AND (max_usages IS NULL OR current_usages < max_usages)
	          RETURNING ` + couponColumns
	c, err := scanCoupon(r.db.QueryRowContext(ctx, query, code))
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to increment coupon usage: %w", err)
	}

	// Ни одна строка не обновлена: либо купона нет, либо лимит исчерпан
	var exists bool
	if err := r.db.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM coupons WHERE code = $1)", code).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check coupon existence: %w", err)
	}
	if !exists {
		return nil, ErrCouponNotFound
	}
	return nil, ErrCouponExhausted
}

func (r *couponRepository) Create(ctx context.Context, coupon *models.Coupon) (*models.Coupon, error) {
	query := `INSERT INTO coupons (code, discount_type, discount_value, minimum_order_amount, max_usages,
	                               current_usages, valid_from, valid_until, is_active, description, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
	          RETURNING ` + couponColumns

	var minimum any
	if coupon.MinimumOrderAmount != nil {
		minimum = coupon.MinimumOrderAmount.String()
	}
	var maxUsages any
	if coupon.MaxUsages != nil {
		maxUsages = *coupon.MaxUsages
	}
	var description any
	if coupon.Description != nil {
		description = *coupon.Description
	}

	row := r.db.QueryRowContext(ctx, query,
		coupon.Code,
		string(coupon.DiscountType),
		coupon.DiscountValue.String(),
		minimum,
		maxUsages,
		coupon.CurrentUsages,
		coupon.ValidFrom,
		coupon.ValidUntil,
		coupon.IsActive,
		description,
	)
	created, err := scanCoupon(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrCouponCodeTaken
		}
		return nil, fmt.Errorf("failed to create coupon: %w", err)
	}
	return created, nil
}

func (r *couponRepository) List(ctx context.Context) ([]*models.Coupon, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+couponColumns+" FROM coupons ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query coupons: %w", err)
	}
	defer rows.Close()

	var coupons []*models.Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan coupon: %w", err)
		}
		coupons = append(coupons, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return coupons, nil
}

func (r *couponRepository) SetActive(ctx context.Context, id int64, active bool) (*models.Coupon, error) {
	query := "UPDATE coupons SET is_active = $1, updated_at = NOW() WHERE id = $2 RETURNING " + couponColumns
	c, err := scanCoupon(r.db.QueryRowContext(ctx, query, active, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCouponNotFound
		}
		return nil, fmt.Errorf("failed to update coupon: %w", err)
	}
	return c, nil
}

// Delete удаляет купон физически; заказы хранят код строкой и не затрагиваются.
func (r *couponRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM coupons WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete coupon: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrCouponNotFound
	}
	return nil
}
