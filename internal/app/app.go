package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
	"github.com/linemk/mc-store/internal/config"
	"github.com/linemk/mc-store/internal/domain/models"
	security "github.com/linemk/mc-store/internal/jwt-new"
	"github.com/linemk/mc-store/internal/notify"
	"github.com/linemk/mc-store/internal/service"
	"github.com/linemk/mc-store/internal/storage"
	"github.com/linemk/mc-store/internal/storage/cache"
	"github.com/linemk/mc-store/internal/storage/memory"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const pingTimeout = 5 * time.Second

type App struct {
	Config *config.Config
	Logger *slog.Logger
	DB     *sql.DB       // nil для memory драйвера
	Redis  *redis.Client // nil, если кэш не настроен

	Access    *security.AccessChecker
	Notifier  *notify.Dispatcher
	Auth      *service.AuthService
	Catalog   *service.CatalogService
	Cart      *service.CartService
	Coupons   *service.CouponService
	Checkout  *service.CheckoutService
	Lifecycle *service.OrderLifecycle
}

// stores: набор хранилищ выбранного драйвера
type stores struct {
	products storage.ProductStorage
	carts    storage.CartStorage
	coupons  storage.CouponStorage
	orders   storage.OrderStorage
	users    storage.UserStorage
}

// NewApp создаёт новый экземпляр App: хранилища, кэш, уведомления и сервисы
func NewApp(log *slog.Logger, cfg *config.Config) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: log,
		Access: security.NewAccessChecker(cfg.Admin.Emails),
	}

	var (
		st  stores
		err error
	)
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		app.DB, err = openPostgres(cfg.Database)
		if err != nil {
			return nil, err
		}
		st = stores{
			products: storage.NewProductRepository(app.DB),
			carts:    storage.NewCartRepository(app.DB),
			coupons:  storage.NewCouponRepository(app.DB),
			orders:   storage.NewOrderRepository(app.DB),
			users:    storage.NewUserRepository(app.DB),
		}
	case config.DriverMemory:
		seed, err := seedProducts(cfg.SeedProducts)
		if err != nil {
			return nil, err
		}
		st = stores{
			products: memory.NewProductRepository(seed),
			carts:    memory.NewCartRepository(),
			coupons:  memory.NewCouponRepository(),
			orders:   memory.NewOrderRepository(),
			users:    memory.NewUserRepository(),
		}
	default:
		return nil, errors.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	log.Info("storage initialized", slog.String("driver", cfg.Storage.Driver))

	if cfg.Redis.Address != "" {
		app.Redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		if err := app.Redis.Ping(ctx).Err(); err != nil {
			// кэш деградирует до хранилища, старт не блокируем
			log.Warn("redis is unavailable, product cache will fall through", slog.Any("error", err))
		}
		cancel()
		st.products = cache.NewCachedProducts(log, st.products, app.Redis, cfg.Redis.ProductTTL)
	}

	var sink notify.Sink
	if len(cfg.Kafka.Brokers) > 0 {
		sink = notify.NewKafkaSink(log, cfg.Kafka.Brokers, cfg.Kafka.Topic)
		log.Info("order events go to kafka", slog.Any("brokers", cfg.Kafka.Brokers), slog.String("topic", cfg.Kafka.Topic))
	} else {
		sink = notify.NewLogSink(log)
	}
	app.Notifier = notify.NewDispatcher(log, sink, cfg.Kafka.PublishTimeout)

	engine := service.NewPricingEngine(log, st.products, st.coupons)
	app.Auth = service.NewAuthService(log, st.users, app.Access, cfg.JWT.Secret, cfg.JWT.TokenTTL)
	app.Catalog = service.NewCatalogService(log, st.products)
	app.Cart = service.NewCartService(log, st.carts, st.products)
	app.Coupons = service.NewCouponService(log, st.coupons, engine, app.Access)
	app.Checkout = service.NewCheckoutService(log, st.carts, st.orders, engine, app.Notifier)
	app.Lifecycle = service.NewOrderLifecycle(log, st.orders, app.Access, app.Notifier)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := app.Auth.ProvisionAdmins(ctx, cfg.Admin.Emails, cfg.Admin.PasswordHash); err != nil {
		_ = app.Close()
		return nil, errors.Wrap(err, "failed to provision admins")
	}

	return app, nil
}

func openPostgres(cfg config.DatabaseConfig) (*sql.DB, error) {
	// реализуем подключение к БД через DSN
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Name,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}
	return db, nil
}

func seedProducts(seed []config.SeedProduct) ([]models.Product, error) {
	products := make([]models.Product, 0, len(seed))
	for _, p := range seed {
		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			return nil, errors.Wrapf(err, "seed product %q: invalid price", p.Name)
		}
		if !price.IsPositive() {
			return nil, errors.Errorf("seed product %q: price must be positive", p.Name)
		}
		products = append(products, models.Product{
			Name:        p.Name,
			Description: p.Description,
			Price:       price,
			Category:    p.Category,
			Featured:    p.Featured,
			CreatedAt:   time.Now(),
		})
	}
	return products, nil
}

// Close дожидается отправки уведомлений и закрывает соединения
func (a *App) Close() error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if a.Notifier != nil {
		keep(errors.Wrap(a.Notifier.Close(), "close notifier"))
	}
	if a.Redis != nil {
		keep(errors.Wrap(a.Redis.Close(), "close redis"))
	}
	if a.DB != nil {
		keep(errors.Wrap(a.DB.Close(), "close database"))
	}
	return firstErr
}
