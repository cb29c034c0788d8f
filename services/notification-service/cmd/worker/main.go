package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"web-shop/services/notification-service/internal/mailer"
	"web-shop/services/notification-service/internal/worker"
	"web-shop/shared/pkg/config"
	"web-shop/shared/pkg/logger"
	"web-shop/shared/pkg/models"
	"web-shop/shared/pkg/rabbit"
)

const service = "notification-service"

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

	spec := rabbit.QueueSpec{
		Name:     service + ".orders",
		BindKeys: []string{models.TypeOrderCreated, models.TypeOrderSent},
		DLQKey:   service + ".orders.dlq",
	}
	if err := rabbit.DeclareConsumer(rc.Ch, service, spec, 10000); err != nil {
		log.Fatal().Err(err).Msg("declare notification topology failed")
	}

	deliveries, err := rabbit.NewConsumer(rc.Ch).Consume(spec.Name, 10)
	if err != nil {
		log.Fatal().Err(err).Msg("consume failed")
	}

	var m mailer.Mailer = mailer.Log{Log: log}
	if cfg.Mail.PostmarkToken != "" {
		m = mailer.NewPostmark(cfg.Mail.PostmarkToken, cfg.Mail.Sender)
	} else {
		log.Warn().Msg("POSTMARK_SERVER_TOKEN not set, mails are logged only")
	}

	w := &worker.Consumer{
		Log:         log,
		Mailer:      m,
		RetryPub:    rabbit.NewPublisher(rc.Ch, rabbit.ExchangeRetry),
		DLQPub:      rabbit.NewPublisher(rc.Ch, rabbit.ExchangeDLX),
		Service:     service,
		MaxAttempts: 5,
		DLQKey:      spec.DLQKey,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx, deliveries)

	log.Info().Msg("notification worker started")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info().Msg("shutdown")
	cancel()
}
