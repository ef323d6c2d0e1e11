// Package config reads service settings from the environment. A .env file in
// the working directory is loaded first when present.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

type Config struct {
	Port           string
	LogLevel       string
	LogPretty      bool
	AllowedOrigins []string

	Database Database
	Redis    Redis
	RabbitMQ RabbitMQ

	CatalogTimeout    time.Duration
	CatalogCacheTTL   time.Duration
	CartTTL           time.Duration
	LowStockThreshold int

	Shipping       Shipping
	PaymentMethods []domain.PaymentMethod
}

type Database struct {
	Driver       string
	DSN          string
	Host         string
	Port         string
	User         string
	Password     string
	Name         string
	MaxOpenConns int
	MaxIdleConns int
}

type Redis struct {
	Host string
	Port string
	DB   int
}

func (r Redis) Enabled() bool { return r.Host != "" }

func (r Redis) Addr() string { return r.Host + ":" + r.Port }

type RabbitMQ struct {
	URL      string
	Exchange string
}

func (r RabbitMQ) Enabled() bool { return r.URL != "" }

type Shipping struct {
	StandardRate  decimal.Decimal
	ExpressRate   decimal.Decimal
	FreeThreshold decimal.Decimal
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var errs []string
	fail := func(key string, err error) {
		errs = append(errs, fmt.Sprintf("%s: %v", key, err))
	}

	cfg := &Config{
		Port:           getenv("PORT", "8080"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		AllowedOrigins: splitList(getenv("CORS_ALLOWED_ORIGINS", "*")),
		Database: Database{
			Driver:   strings.ToLower(getenv("DB_DRIVER", "mysql")),
			DSN:      os.Getenv("DATABASE_URL"),
			Host:     getenv("DB_HOST", "localhost"),
			Port:     os.Getenv("DB_PORT"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     getenv("DB_NAME", "storefront"),
		},
		Redis: Redis{
			Host: os.Getenv("REDIS_HOST"),
			Port: getenv("REDIS_PORT", "6379"),
		},
		RabbitMQ: RabbitMQ{
			URL:      os.Getenv("RABBITMQ_URL"),
			Exchange: getenv("RABBITMQ_EXCHANGE", "order.exchange"),
		},
	}
	if cfg.Database.Port == "" {
		cfg.Database.Port = "3306"
		if cfg.Database.Driver == "postgres" {
			cfg.Database.Port = "5432"
		}
	}

	var err error
	if cfg.LogPretty, err = parseBool("LOG_PRETTY", false); err != nil {
		fail("LOG_PRETTY", err)
	}
	if cfg.Database.MaxOpenConns, err = parseInt("DB_MAX_OPEN_CONNS", 100); err != nil {
		fail("DB_MAX_OPEN_CONNS", err)
	}
	if cfg.Database.MaxIdleConns, err = parseInt("DB_MAX_IDLE_CONNS", 20); err != nil {
		fail("DB_MAX_IDLE_CONNS", err)
	}
	if cfg.Redis.DB, err = parseInt("REDIS_DB", 0); err != nil {
		fail("REDIS_DB", err)
	}
	if cfg.LowStockThreshold, err = parseInt("LOW_STOCK_THRESHOLD", 10); err != nil {
		fail("LOW_STOCK_THRESHOLD", err)
	}
	if cfg.CatalogTimeout, err = parseDuration("CATALOG_TIMEOUT", 10*time.Second); err != nil {
		fail("CATALOG_TIMEOUT", err)
	}
	if cfg.CatalogCacheTTL, err = parseDuration("CATALOG_CACHE_TTL", time.Minute); err != nil {
		fail("CATALOG_CACHE_TTL", err)
	}
	if cfg.CartTTL, err = parseDuration("CART_TTL", 7*24*time.Hour); err != nil {
		fail("CART_TTL", err)
	}
	if cfg.Shipping.StandardRate, err = parseDecimal("SHIPPING_STANDARD_RATE", "9.99"); err != nil {
		fail("SHIPPING_STANDARD_RATE", err)
	}
	if cfg.Shipping.ExpressRate, err = parseDecimal("SHIPPING_EXPRESS_RATE", "19.99"); err != nil {
		fail("SHIPPING_EXPRESS_RATE", err)
	}
	if cfg.Shipping.FreeThreshold, err = parseDecimal("FREE_SHIPPING_THRESHOLD", "50.00"); err != nil {
		fail("FREE_SHIPPING_THRESHOLD", err)
	}
	for _, m := range splitList(getenv("PAYMENT_METHODS", "card,paypal,bank")) {
		pm, err := domain.ParsePaymentMethod(m)
		if err != nil {
			fail("PAYMENT_METHODS", err)
			continue
		}
		cfg.PaymentMethods = append(cfg.PaymentMethods, pm)
	}
	if len(cfg.PaymentMethods) == 0 {
		fail("PAYMENT_METHODS", fmt.Errorf("no payment method enabled"))
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

func getenv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func parseInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func parseBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	return strconv.ParseBool(v)
}

func parseDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", d)
	}
	return d, nil
}

func parseDecimal(key, def string) (decimal.Decimal, error) {
	v := getenv(key, def)
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("must not be negative, got %s", d)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
