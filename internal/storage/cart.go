package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/linemk/mc-store/internal/domain/models"
)

// CartStorage описывает методы для работы с корзинами сессий.
type CartStorage interface {
	// GetLines возвращает строки корзины сессии в порядке добавления.
	GetLines(ctx context.Context, sessionID string) ([]*models.CartLineItem, error)
	// AddLine добавляет товар; повторное добавление суммирует количество.
	AddLine(ctx context.Context, sessionID string, productID int64, quantity int) (*models.CartLineItem, error)
	// SetQuantity задаёт количество для строки, принадлежащей сессии.
	SetQuantity(ctx context.Context, sessionID string, lineID int64, quantity int) (*models.CartLineItem, error)
	// RemoveLine удаляет строку корзины.
	RemoveLine(ctx context.Context, sessionID string, lineID int64) error
	// Clear удаляет все строки сессии; повторный вызов безопасен.
	Clear(ctx context.Context, sessionID string) error
}

type cartRepository struct {
	db *sql.DB
}

func NewCartRepository(db *sql.DB) CartStorage {
	return &cartRepository{db: db}
}

const cartColumns = "id, session_id, product_id, quantity, created_at, updated_at"

func scanCartLine(row rowScanner) (*models.CartLineItem, error) {
	line := &models.CartLineItem{}
	if err := row.Scan(&line.ID, &line.SessionID, &line.ProductID, &line.Quantity, &line.CreatedAt, &line.UpdatedAt); err != nil {
		return nil, err
	}
	return line, nil
}

func (r *cartRepository) GetLines(ctx context.Context, sessionID string) ([]*models.CartLineItem, error) {
	query := "SELECT " + cartColumns + " FROM cart_items WHERE session_id = $1 ORDER BY id"
	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart items: %w", err)
	}
	defer rows.Close()

	var lines []*models.CartLineItem
	for rows.Next() {
		line, err := scanCartLine(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// AddLine сливает количество на стороне БД, поэтому параллельные добавления не теряются.
func (r *cartRepository) AddLine(ctx context.Context, sessionID string, productID int64, quantity int) (*models.CartLineItem, error) {
	query := `INSERT INTO cart_items (session_id, product_id, quantity, created_at, updated_at)
	          VALUES ($1, $2, $3, NOW(), NOW())
	          ON CONFLICT (session_id, product_id)
	          DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = NOW()
	          RETURNING ` + cartColumns
	line, err := scanCartLine(r.db.QueryRowContext(ctx, query, sessionID, productID, quantity))
	if err != nil {
		return nil, fmt.Errorf("failed to add cart item: %w", err)
	}
	return line, nil
}

func (r *cartRepository) SetQuantity(ctx context.Context, sessionID string, lineID int64, quantity int) (*models.CartLineItem, error) {
	query := `UPDATE cart_items SET quantity = $1, updated_at = NOW()
	          WHERE id = $2 AND session_id = $3
	          RETURNING ` + cartColumns
	line, err := scanCartLine(r.db.QueryRowContext(ctx, query, quantity, lineID, sessionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCartLineNotFound
		}
		return nil, fmt.Errorf("failed to update cart item: %w", err)
	}
	return line, nil
}

func (r *cartRepository) RemoveLine(ctx context.Context, sessionID string, lineID int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM cart_items WHERE id = $1 AND session_id = $2", lineID, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete cart item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrCartLineNotFound
	}
	return nil
}

func (r *cartRepository) Clear(ctx context.Context, sessionID string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM cart_items WHERE session_id = $1", sessionID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
