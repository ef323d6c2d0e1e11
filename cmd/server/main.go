package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"storefront/internal/cart"
	"storefront/internal/checkout"
	"storefront/internal/config"
	handlers "storefront/internal/controllers/http"
	"storefront/internal/infra"
	"storefront/internal/infra/database"
	"storefront/internal/infra/rabbitmq"
	"storefront/internal/infra/redisstore"
	"storefront/internal/infra/ws"
	"storefront/internal/logging"
	"storefront/internal/metrics"
	"storefront/internal/repository/gormrepo"
	"storefront/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	if err := logging.Setup(cfg.LogLevel, cfg.LogPretty); err != nil {
		log.Fatal().Err(err).Msg("logging")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.MustRegister(reg)

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("db: connect")
	}

	productRepo := gormrepo.NewProductRepository(db)
	orderRepo := gormrepo.NewOrderRepository(db)

	products := services.NewProductService(productRepo, cfg.CatalogTimeout)
	var cartStore cart.Store = cart.NewMemoryStore()

	if cfg.Redis.Enabled() {
		redisClient := redis.NewClient(&redis.Options{
			Addr:         cfg.Redis.Addr(),
			DB:           cfg.Redis.DB,
			PoolSize:     200,
			MinIdleConns: 20,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
		})
		defer redisClient.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr()).Msg("redis not reachable yet")
		}
		cancel()

		products.SetCache(redisClient, cfg.CatalogCacheTTL)
		cartStore = redisstore.NewCartStore(redisClient, cfg.CartTTL)
		log.Info().Str("addr", cfg.Redis.Addr()).Msg("redis cache and cart store enabled")
	}

	hub := ws.NewHub(originAllowed(cfg.AllowedOrigins))
	events := infra.Publishers{hub}

	if cfg.RabbitMQ.Enabled() {
		publisher, err := rabbitmq.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to init publisher")
		}
		defer publisher.Close()
		events = append(events, publisher)
	}

	orders := services.NewOrderService(orderRepo, events)
	shipping := checkout.ShippingPolicy{
		StandardRate:  cfg.Shipping.StandardRate,
		ExpressRate:   cfg.Shipping.ExpressRate,
		FreeThreshold: cfg.Shipping.FreeThreshold,
	}

	handler := handlers.NewHandler(handlers.Deps{
		Products: products,
		Orders:   orders,
		Admin:    services.NewAdminService(productRepo, orderRepo, cfg.LowStockThreshold),
		Checkout: checkout.NewOrchestrator(orders, shipping, cfg.PaymentMethods),
		Carts:    cart.NewManager(cartStore),
		Feed:     hub,
		CartTTL:  cfg.CartTTL,
	})

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), logging.Middleware(), metrics.Middleware(), cors.New(corsConfig(cfg.AllowedOrigins)))
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	handler.RegisterRoutes(r)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("starting storefront")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server run")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
	log.Info().Msg("stopped")
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", handlers.SessionHeader},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition", handlers.SessionHeader},
		MaxAge:        12 * time.Hour,
	}
	if allowsAll(origins) {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

func originAllowed(origins []string) func(*http.Request) bool {
	if allowsAll(origins) {
		return nil
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range origins {
			if o == origin {
				return true
			}
		}
		return false
	}
}

func allowsAll(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return len(origins) == 0
}
