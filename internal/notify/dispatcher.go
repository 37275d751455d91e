package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/linemk/mc-store/internal/domain/models"
)

// Dispatcher отправляет события заказов в фоне с ограничением по времени.
// Close дожидается отправки уже поставленных событий.
type Dispatcher struct {
	log     *slog.Logger
	sink    Sink
	timeout time.Duration
	now     func() time.Time

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(log *slog.Logger, sink Sink, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{log: log, sink: sink, timeout: timeout, now: time.Now}
}

func (d *Dispatcher) OrderCreated(order *models.Order) {
	d.dispatch(newEvent(EventOrderCreated, order, "", d.now()))
}

func (d *Dispatcher) StatusChanged(order *models.Order, previous models.OrderStatus) {
	d.dispatch(newEvent(EventStatusChanged, order, previous, d.now()))
}

func (d *Dispatcher) dispatch(event Event) {
	const op = "notify.Dispatcher.dispatch"

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.log.Warn("dispatcher closed, event dropped",
			slog.String("op", op), slog.String("order_id", event.OrderID))
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := d.sink.Publish(ctx, event); err != nil {
			d.log.Error("failed to publish order event",
				slog.String("op", op),
				slog.String("type", string(event.Type)),
				slog.String("order_id", event.OrderID),
				slog.Any("error", err))
		}
	}()
}

// Close перестаёт принимать события, ждёт отправки текущих и закрывает sink
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	d.wg.Wait()
	return d.sink.Close()
}
