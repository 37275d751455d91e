package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/linemk/mc-store/internal/domain/models"
	"github.com/linemk/mc-store/internal/storage"
)

// OrderLifecycle управляет статусами заказов: отмена владельцем,
// смена статуса администратором, просмотр.
type OrderLifecycle struct {
	log      *slog.Logger
	orders   storage.OrderStorage
	access   AccessPolicy
	notifier OrderNotifier
}

func NewOrderLifecycle(log *slog.Logger, orders storage.OrderStorage, access AccessPolicy, notifier OrderNotifier) *OrderLifecycle {
	return &OrderLifecycle{
		log:      log,
		orders:   orders,
		access:   access,
		notifier: notifierOrNop(notifier),
	}
}

func (l *OrderLifecycle) load(ctx context.Context, orderID string) (*models.Order, error) {
	if _, err := uuid.Parse(orderID); err != nil {
		return nil, ErrNotFound
	}
	order, err := l.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			return nil, ErrNotFound
		}
		return nil, storageFault(err)
	}
	return order, nil
}

// Cancel отменяет заказ. Владелец может отменить заказ в статусе pending,
// администратор может отменить и в статусе payment_pending. Использование купона не откатывается.
func (l *OrderLifecycle) Cancel(ctx context.Context, orderID string, who Requester) (*models.Order, error) {
	const op = "service.OrderLifecycle.Cancel"
	logger := l.log.With(slog.String("op", op), slog.String("order_id", orderID))

	order, err := l.load(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	admin := isAdmin(l.access, who)
	if !admin && !owns(order, who) {
		logger.Warn("cancel rejected: requester does not own the order")
		return nil, fmt.Errorf("%s: %w", op, ErrAccessDenied)
	}

	switch {
	case order.Status == models.StatusPending:
	case order.Status == models.StatusPaymentPending && admin:
	default:
		logger.Info("cancel rejected", slog.String("status", string(order.Status)))
		return nil, fmt.Errorf("%s: cannot cancel order in status %s: %w", op, order.Status, ErrInvalidTransition)
	}

	updated, err := l.orders.UpdateStatus(ctx, order.ID, order.Status, models.StatusCancelled)
	if err != nil {
		if errors.Is(err, storage.ErrStatusConflict) {
			logger.Info("cancel rejected: status changed concurrently")
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidTransition)
		}
		logger.Error("failed to cancel order", slog.Any("error", err))
		if errors.Is(err, storage.ErrOrderNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, storageFault(err))
	}

	l.notifier.StatusChanged(updated, order.Status)
	logger.Info("order cancelled", slog.Bool("by_admin", admin))
	return updated, nil
}

// SetStatus выставляет любой из допустимых статусов. Только для администраторов.
func (l *OrderLifecycle) SetStatus(ctx context.Context, orderID, status string, who Requester) (*models.Order, error) {
	const op = "service.OrderLifecycle.SetStatus"
	logger := l.log.With(slog.String("op", op), slog.String("order_id", orderID), slog.String("status", status))

	if !isAdmin(l.access, who) {
		return nil, fmt.Errorf("%s: %w", op, ErrAccessDenied)
	}
	next, ok := models.ParseOrderStatus(status)
	if !ok {
		return nil, fmt.Errorf("%s: %q: %w", op, status, ErrInvalidStatus)
	}

	order, err := l.load(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !order.Status.CanTransitionTo(next) && order.Status != next {
		// администратор не ограничен автоматом переходов
		logger.Warn("admin override outside the state machine", slog.String("from", string(order.Status)))
	}

	updated, err := l.orders.UpdateStatus(ctx, order.ID, order.Status, next)
	if err != nil {
		if errors.Is(err, storage.ErrStatusConflict) {
			logger.Warn("status changed concurrently", slog.String("from", string(order.Status)))
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidTransition)
		}
		logger.Error("failed to update order status", slog.Any("error", err))
		if errors.Is(err, storage.ErrOrderNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, storageFault(err))
	}

	if order.Status != next {
		l.notifier.StatusChanged(updated, order.Status)
	}
	logger.Info("order status updated", slog.String("from", string(order.Status)))
	return updated, nil
}

// Get возвращает заказ владельцу или администратору
func (l *OrderLifecycle) Get(ctx context.Context, orderID string, who Requester) (*models.Order, error) {
	const op = "service.OrderLifecycle.Get"

	order, err := l.load(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !isAdmin(l.access, who) && !owns(order, who) {
		return nil, fmt.Errorf("%s: %w", op, ErrAccessDenied)
	}
	return order, nil
}

// ListForRequester возвращает заказы текущей сессии и пользователя
func (l *OrderLifecycle) ListForRequester(ctx context.Context, who Requester) ([]*models.Order, error) {
	const op = "service.OrderLifecycle.ListForRequester"

	if who.SessionID == "" && who.UserID == "" {
		return []*models.Order{}, nil
	}
	orders, err := l.orders.ListForOwner(ctx, who.SessionID, who.UserID)
	if err != nil {
		l.log.Error("failed to list orders", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, storageFault(err))
	}
	if orders == nil {
		orders = []*models.Order{}
	}
	return orders, nil
}

// ListAll: выборка заказов для администратора
func (l *OrderLifecycle) ListAll(ctx context.Context, filter models.OrderFilter, who Requester) ([]*models.Order, error) {
	const op = "service.OrderLifecycle.ListAll"

	if !isAdmin(l.access, who) {
		return nil, fmt.Errorf("%s: %w", op, ErrAccessDenied)
	}
	orders, err := l.orders.List(ctx, filter)
	if err != nil {
		l.log.Error("failed to list orders", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, storageFault(err))
	}
	if orders == nil {
		orders = []*models.Order{}
	}
	return orders, nil
}
