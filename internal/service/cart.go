package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/linemk/mc-store/internal/domain/models"
	"github.com/linemk/mc-store/internal/storage"
	"github.com/shopspring/decimal"
)

// CartLineView: строка корзины вместе с актуальным товаром
type CartLineView struct {
	LineID    int64           `json:"id"`
	Product   *models.Product `json:"product"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// CartView: корзина с подытогом без учёта купонов
type CartView struct {
	SessionID string          `json:"session_id"`
	Lines     []CartLineView  `json:"lines"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type CartService struct {
	log      *slog.Logger
	carts    storage.CartStorage
	products storage.ProductStorage
}

func NewCartService(log *slog.Logger, carts storage.CartStorage, products storage.ProductStorage) *CartService {
	return &CartService{log: log, carts: carts, products: products}
}

// AddLine добавляет товар в корзину сессии, суммируя с уже добавленным количеством
func (s *CartService) AddLine(ctx context.Context, sessionID string, productID int64, quantity int) (*models.CartLineItem, error) {
	const op = "service.CartService.AddLine"
	logger := s.log.With(slog.String("op", op), slog.String("session_id", sessionID), slog.Int64("product_id", productID))

	if quantity < 1 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidQuantity)
	}
	if _, err := s.products.GetProductByID(ctx, productID); err != nil {
		if errors.Is(err, storage.ErrProductNotFound) {
			return nil, fmt.Errorf("%s: product %d: %w", op, productID, ErrNotFound)
		}
		logger.Error("failed to get product", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, storageFault(err))
	}

	line, err := s.carts.AddLine(ctx, sessionID, productID, quantity)
	if err != nil {
		logger.Error("failed to add cart line", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, storageFault(err))
	}
	logger.Debug("cart line added", slog.Int("quantity", line.Quantity))
	return line, nil
}

// SetQuantity задаёт количество строки. Нулевое количество не удаляет строку, а отклоняется.
func (s *CartService) SetQuantity(ctx context.Context, sessionID string, lineID int64, quantity int) (*models.CartLineItem, error) {
	const op = "service.CartService.SetQuantity"

	if quantity < 1 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidQuantity)
	}
	line, err := s.carts.SetQuantity(ctx, sessionID, lineID, quantity)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, s.lineError(op, err))
	}
	return line, nil
}

func (s *CartService) RemoveLine(ctx context.Context, sessionID string, lineID int64) error {
	const op = "service.CartService.RemoveLine"

	if err := s.carts.RemoveLine(ctx, sessionID, lineID); err != nil {
		return fmt.Errorf("%s: %w", op, s.lineError(op, err))
	}
	return nil
}

// Clear очищает корзину; повторный вызов безопасен
func (s *CartService) Clear(ctx context.Context, sessionID string) error {
	const op = "service.CartService.Clear"

	if err := s.carts.Clear(ctx, sessionID); err != nil {
		s.log.Error("failed to clear cart", slog.String("op", op), slog.Any("error", err))
		return fmt.Errorf("%s: %w", op, storageFault(err))
	}
	return nil
}

// View собирает корзину с товарами. Строки удалённых из каталога товаров не показываются.
func (s *CartService) View(ctx context.Context, sessionID string) (*CartView, error) {
	const op = "service.CartService.View"
	logger := s.log.With(slog.String("op", op), slog.String("session_id", sessionID))

	lines, err := s.carts.GetLines(ctx, sessionID)
	if err != nil {
		logger.Error("failed to load cart", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, storageFault(err))
	}

	view := &CartView{SessionID: sessionID, Lines: []CartLineView{}, Subtotal: decimal.Zero}
	for _, line := range lines {
		product, err := s.products.GetProductByID(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, storage.ErrProductNotFound) {
				continue
			}
			logger.Error("failed to get product", slog.Any("error", err))
			return nil, fmt.Errorf("%s: %w", op, storageFault(err))
		}
		total := models.RoundMoney(product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
		view.Lines = append(view.Lines, CartLineView{
			LineID:    line.ID,
			Product:   product,
			Quantity:  line.Quantity,
			LineTotal: total,
		})
		view.Subtotal = view.Subtotal.Add(total)
	}
	return view, nil
}

func (s *CartService) lineError(op string, err error) error {
	if errors.Is(err, storage.ErrCartLineNotFound) {
		return ErrNotFound
	}
	s.log.Error("cart storage failure", slog.String("op", op), slog.Any("error", err))
	return storageFault(err)
}
