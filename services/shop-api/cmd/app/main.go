package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	httpx "web-shop/services/shop-api/internal/http"
	"web-shop/services/shop-api/internal/worker"

	"web-shop/internal/auth"
	"web-shop/internal/cart"
	"web-shop/internal/catalog"
	"web-shop/internal/checkout"
	"web-shop/internal/order"
	"web-shop/internal/payment"
	"web-shop/shared/pkg/cache"
	"web-shop/shared/pkg/config"
	"web-shop/shared/pkg/logger"
	"web-shop/shared/pkg/models"
	"web-shop/shared/pkg/pg"
	"web-shop/shared/pkg/rabbit"
)

const service = "shop-api"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.New(service, cfg.Common.LogLevel)

	if cfg.Postgres.Migrate {
		if err := pg.Migrate(cfg.Postgres.DSN, log); err != nil {
			log.Fatal().Err(err).Msg("migrate failed")
		}
	}

	db, err := pg.Connect(context.Background(), cfg.Postgres.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("pg connect failed")
	}
	defer db.Close()

	kv := openCache(cfg, log)

	rc, err := rabbit.Connect(cfg.Rabbit.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("rabbit connect failed")
	}
	defer func() { _ = rc.Close() }()

	if err := rabbit.DeclareBase(rc.Ch); err != nil {
		log.Fatal().Err(err).Msg("declare base failed")
	}

	confirmSpec := rabbit.QueueSpec{
		Name:     "shop-api.confirmations",
		BindKeys: []string{models.TypePaymentConfirmed, models.TypePaymentFailed},
		DLQKey:   "shop-api.confirmations.dlq",
	}
	catalogSpec := rabbit.QueueSpec{
		Name:     "shop-api.catalog",
		BindKeys: worker.CatalogKeys,
		DLQKey:   "shop-api.catalog.dlq",
	}
	for _, spec := range []rabbit.QueueSpec{confirmSpec, catalogSpec} {
		if err := rabbit.DeclareConsumer(rc.Ch, service, spec, 5000); err != nil {
			log.Fatal().Err(err).Str("queue", spec.Name).Msg("declare topology failed")
		}
	}

	eventsPub := rabbit.NewPublisher(rc.Ch, rabbit.ExchangeEvents)
	retryPub := rabbit.NewPublisher(rc.Ch, rabbit.ExchangeRetry)
	dlqPub := rabbit.NewPublisher(rc.Ch, rabbit.ExchangeDLX)

	var gateway payment.Gateway
	switch cfg.Payment.Mode {
	case "http":
		gateway = &payment.HTTPGateway{
			BaseURL: cfg.Payment.GatewayURL,
			Client:  &http.Client{Timeout: cfg.Payment.Timeout},
		}
	default:
		gateway = &payment.Simulated{Pub: eventsPub, Log: log}
	}

	products := &catalog.ProductsPG{DB: db}

	authn := &auth.Authenticator{
		Tokens: &auth.TokensCached{
			Store: &auth.TokensPG{DB: db},
			KV:    kv,
			TTL:   cfg.Auth.CacheTTL,
			Log:   log,
		},
		TTL: cfg.Auth.TokenTTL,
	}

	orch := &checkout.Orchestrator{
		Gateway:     gateway,
		UoW:         &checkout.PGUnitOfWork{DB: db},
		Log:         log,
		Timeout:     cfg.Payment.Timeout,
		MaxAttempts: cfg.Payment.MaxAttempts,
		BackoffMax:  cfg.Payment.BackoffMax,
	}

	orders := &order.Service{
		Repo: &order.Cached{
			Repo: &order.PG{DB: db},
			KV:   kv,
			TTL:  cfg.Orders.CacheTTL,
			Log:  log,
		},
		RejectResend: cfg.Orders.RejectResend,
		Log:          log,
	}

	router := httpx.NewRouter(&httpx.Handlers{
		Checkout: orch,
		Orders:   orders,
		Cart:     &cart.Service{Repo: &cart.PG{DB: db}, Catalog: products},
		Catalog:  products,
		Log:      log,
	}, authn, &httpx.RateLimiter{
		RPS:   cfg.RateLimit.CheckoutRPS,
		Burst: cfg.RateLimit.CheckoutBurst,
	})

	confirmCh, err := rc.Channel()
	if err != nil {
		log.Fatal().Err(err).Msg("open channel failed")
	}
	confirmDeliveries, err := rabbit.NewConsumer(confirmCh).Consume(confirmSpec.Name, 20)
	if err != nil {
		log.Fatal().Err(err).Msg("consume confirmations failed")
	}
	catalogCh, err := rc.Channel()
	if err != nil {
		log.Fatal().Err(err).Msg("open channel failed")
	}
	catalogDeliveries, err := rabbit.NewConsumer(catalogCh).Consume(catalogSpec.Name, 50)
	if err != nil {
		log.Fatal().Err(err).Msg("consume catalog failed")
	}

	confirmations := &worker.Confirmations{
		Log:         log.With().Str("consumer", "confirmations").Logger(),
		Checkout:    orch,
		RetryPub:    retryPub,
		DLQPub:      dlqPub,
		Service:     service,
		MaxAttempts: 5,
		DLQKey:      confirmSpec.DLQKey,
	}
	catalogWorker := &worker.Catalog{
		Log:         log.With().Str("consumer", "catalog").Logger(),
		Feed:        &catalog.Feed{Store: products, Log: log},
		RetryPub:    retryPub,
		DLQPub:      dlqPub,
		Service:     service,
		MaxAttempts: 5,
		DLQKey:      catalogSpec.DLQKey,
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, gctx := errgroup.WithContext(appCtx)

	g.Go(func() error {
		confirmations.Run(gctx, confirmDeliveries)
		return nil
	})
	g.Go(func() error {
		catalogWorker.Run(gctx, catalogDeliveries)
		return nil
	})
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("http started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sig:
		case <-gctx.Done():
		}
		log.Info().Msg("shutdown...")
		cancel()
		shCtx, shCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shCancel()
		return srv.Shutdown(shCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("shop-api stopped with error")
	}
}

// openCache returns Redis when configured and an in-process map otherwise.
func openCache(cfg config.Config, log zerolog.Logger) cache.KV {
	if cfg.Redis.Addr == "" {
		log.Warn().Msg("REDIS_ADDR empty -> in-process cache")
		return cache.NewMap()
	}
	rdb := cache.New(cfg.Redis.Addr)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := rdb.WaitReady(ctx, 20*time.Second); err != nil {
		log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis not ready")
	}
	log.Info().Str("addr", cfg.Redis.Addr).Msg("redis ready")
	return rdb
}
