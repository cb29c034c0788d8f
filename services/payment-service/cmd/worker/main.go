package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"web-shop/services/payment-service/internal/worker"
	"web-shop/shared/pkg/config"
	"web-shop/shared/pkg/logger"
	"web-shop/shared/pkg/models"
	"web-shop/shared/pkg/rabbit"
)

const service = "payment-service"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.New(service, cfg.Common.LogLevel)

	rc, err := rabbit.Connect(cfg.Rabbit.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("rabbit connect failed")
	}
	defer func() { _ = rc.Close() }()

	if err := rabbit.DeclareBase(rc.Ch); err != nil {
		log.Fatal().Err(err).Msg("declare base failed")
	}

	queue := service + ".sessions"
	if err := rabbit.DeclareConsumer(rc.Ch, service, rabbit.QueueSpec{
		Name:     queue,
		BindKeys: []string{models.TypeCheckoutSessionCreated},
		DLQKey:   queue + ".dlq",
	}, 5000); err != nil {
		log.Fatal().Err(err).Msg("declare payment topology failed")
	}

	deliveries, err := rabbit.NewConsumer(rc.Ch).Consume(queue, 20)
	if err != nil {
		log.Fatal().Err(err).Msg("consume failed")
	}

	w := &worker.Consumer{
		Log:         log,
		EventsPub:   rabbit.NewPublisher(rc.Ch, rabbit.ExchangeEvents),
		RetryPub:    rabbit.NewPublisher(rc.Ch, rabbit.ExchangeRetry),
		DLQPub:      rabbit.NewPublisher(rc.Ch, rabbit.ExchangeDLX),
		Service:     service,
		MaxAttempts: 5,
		DLQKey:      queue + ".dlq",
		FailRate:    cfg.Payment.FailRate,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx, deliveries)

	log.Info().Msg("payment worker started")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info().Msg("shutdown")
	cancel()
}
