// Command tokenctl issues an API token for an existing user.
//
//	tokenctl -email storehouse@example.com
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"web-shop/internal/auth"
	"web-shop/shared/pkg/config"
	"web-shop/shared/pkg/logger"
	"web-shop/shared/pkg/pg"
)

func main() {
	email := flag.String("email", "", "email of the user to issue a token for")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.NewWithWriter(os.Stderr, "tokenctl", cfg.Common.LogLevel)

	if *email == "" {
		log.Fatal().Msg("-email is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := pg.Connect(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("pg connect failed")
	}
	defer db.Close()

	user, err := (&auth.UsersPG{DB: db}).GetByEmail(ctx, *email)
	if err != nil {
		log.Fatal().Err(err).Str("email", *email).Msg("user lookup failed")
	}

	token, err := (&auth.Authenticator{Tokens: &auth.TokensPG{DB: db}}).Issue(ctx, user.UserID)
	if err != nil {
		log.Fatal().Err(err).Msg("issue token failed")
	}
	log.Info().Str("user_id", user.UserID).Str("role", user.Role.String()).Msg("token issued")
	fmt.Println(token)
}
