package config

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// драйверы хранилища
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Env          string           `yaml:"env" env:"ENV" env-default:"development"` // environment
	HTTPServer   HTTPServerConfig `yaml:"http_server"`
	Storage      StorageConfig    `yaml:"storage"`
	Database     DatabaseConfig   `yaml:"database"`
	Redis        RedisConfig      `yaml:"redis"`
	Kafka        KafkaConfig      `yaml:"kafka"`
	JWT          JWTConfig        `yaml:"jwt"`
	Admin        AdminConfig      `yaml:"admin"`
	Migrations   MigrationsConfig `yaml:"migrations"`
	SeedProducts []SeedProduct    `yaml:"seed_products"`
}

// HTTPServerConfig структура http сервера
type HTTPServerConfig struct {
	Address        string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:8080"`
	Timeout        time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout    time.Duration `yaml:"idle_timeout" env-default:"60s"`
	RequestTimeout time.Duration `yaml:"request_timeout" env-default:"10s"`
}

// StorageConfig выбор хранилища: postgres для продакшена, memory для локального запуска и тестов
type StorageConfig struct {
	Driver string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"postgres"`
}

// DatabaseConfig структура по работе с БД
type DatabaseConfig struct {
	Host     string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"DB_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"DB_USER" env-default:"postgres"`
	Password string `yaml:"-" env:"DB_PASSWORD"`
	Name     string `yaml:"name" env:"DB_NAME" env-default:"mcstore"`
}

// RedisConfig кэш каталога, пустой адрес отключает кэш
type RedisConfig struct {
	Address    string        `yaml:"address" env:"REDIS_ADDRESS"`
	Password   string        `yaml:"-" env:"REDIS_PASSWORD"`
	DB         int           `yaml:"db" env-default:"0"`
	ProductTTL time.Duration `yaml:"product_ttl" env-default:"5m"`
}

// KafkaConfig события по заказам, без брокеров события пишутся в лог
type KafkaConfig struct {
	Brokers        []string      `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:","`
	Topic          string        `yaml:"topic" env-default:"mcstore.orders"`
	PublishTimeout time.Duration `yaml:"publish_timeout" env-default:"5s"`
}

// JWTConfig настройка jwt
type JWTConfig struct {
	Secret   string        `yaml:"-" env:"JWT_SECRET" env-required:"true"`
	TokenTTL time.Duration `yaml:"token_ttl" env-default:"60m"`
}

// AdminConfig почты администраторов магазина и bcrypt-хэш их пароля.
// Учётные записи администраторов заводятся при старте, через /api/auth они не регистрируются.
type AdminConfig struct {
	Emails       []string `yaml:"emails" env:"ADMIN_EMAILS" env-separator:","`
	PasswordHash string   `yaml:"password_hash" env:"ADMIN_PASSWORD_HASH"`
}

type MigrationsConfig struct {
	Path string `yaml:"path" env-default:"./migrations"`
}

// SeedProduct товар каталога для memory драйвера
type SeedProduct struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Price       string `yaml:"price"`
	Category    string `yaml:"category"`
	Featured    bool   `yaml:"featured"`
}

// MustLoad - если не загружаем - паникуем
func MustLoad() *Config {
	configPath := fetchConfigPath()
	if configPath == "" {
		log.Fatal("CONFIG_PATH not exists")
	}
	return MustLoadByPath(configPath)
}

var configFlag = flag.String("config", "", "path to config file")

func fetchConfigPath() string {
	if !flag.Parsed() {
		flag.Parse()
	}

	path := *configFlag
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	return path
}

func MustLoadByPath(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file not found: " + configPath)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("can't read config file %s: %v", configPath, err)
	}

	if cfg.Storage.Driver == DriverPostgres && cfg.Database.Password == "" {
		log.Fatal("DB_PASSWORD is required for postgres storage")
	}

	return &cfg
}
