package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/linemk/mc-store/internal/domain/models"
	"github.com/linemk/mc-store/internal/storage"
)

// CatalogService отдаёт витрину магазина
type CatalogService struct {
	log      *slog.Logger
	products storage.ProductStorage
}

func NewCatalogService(log *slog.Logger, products storage.ProductStorage) *CatalogService {
	return &CatalogService{log: log, products: products}
}

func (s *CatalogService) List(ctx context.Context, filter models.ProductFilter) ([]*models.Product, error) {
	const op = "service.CatalogService.List"

	filter.Category = strings.TrimSpace(filter.Category)
	products, err := s.products.ListProducts(ctx, filter)
	if err != nil {
		s.log.Error("failed to list products", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, storageFault(err))
	}
	if products == nil {
		products = []*models.Product{}
	}
	return products, nil
}

func (s *CatalogService) Get(ctx context.Context, id int64) (*models.Product, error) {
	const op = "service.CatalogService.Get"

	product, err := s.products.GetProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrProductNotFound) {
			return nil, fmt.Errorf("%s: product %d: %w", op, id, ErrNotFound)
		}
		s.log.Error("failed to get product", slog.String("op", op), slog.Int64("id", id), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, storageFault(err))
	}
	return product, nil
}
