package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/linemk/mc-store/internal/domain/models"
)

// ProductStorage описывает методы чтения каталога.
type ProductStorage interface {
	// GetProductByID возвращает товар по идентификатору или ErrProductNotFound.
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	// ListProducts возвращает товары каталога с учётом фильтра.
	ListProducts(ctx context.Context, filter models.ProductFilter) ([]*models.Product, error)
}

// productRepository: реализация ProductStorage поверх Postgres.
type productRepository struct {
	db *sql.DB
}

// NewProductRepository создаёт новый репозиторий каталога.
func NewProductRepository(db *sql.DB) ProductStorage {
	return &productRepository{db: db}
}

const productColumns = "id, name, description, price, category, featured, created_at"

func scanProduct(row rowScanner) (*models.Product, error) {
	p := &models.Product{}
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Category, &p.Featured, &p.CreatedAt); err != nil {
		return nil, err
	}
	return p, nil
}

// GetProductByID ищет товар в таблице products.
func (r *productRepository) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

// ListProducts возвращает каталог; пустая категория означает «все категории».
func (r *productRepository) ListProducts(ctx context.Context, filter models.ProductFilter) ([]*models.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE ($1 = '' OR category = $1) AND (NOT $2 OR featured)
		ORDER BY featured DESC, id`
	rows, err := r.db.QueryContext(ctx, query, filter.Category, filter.FeaturedOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}
