package main

import (
	"context"
	"flag"
	"fmt"

	"fintrack/pkg/auth"
	"fintrack/pkg/config"
	"fintrack/pkg/logging"
	"fintrack/pkg/store/backend"
)

func main() {
	username := flag.String("username", "", "username to reset")
	password := flag.String("password", "", "new plaintext password (min 6 chars)")
	flag.Parse()

	cfg := config.Load()
	cfg.DBWatch = false
	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	if *username == "" || *password == "" {
		log.Fatal().Msg("--username and --password are required")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	ctx := log.WithContext(context.Background())

	st, err := backend.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open store")
	}
	defer st.Close()

	svc, err := auth.NewService(st, []byte(cfg.JWTSecret), cfg.JWTTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("init auth")
	}
	if err := svc.ResetPassword(ctx, *username, *password); err != nil {
		st.Close()
		log.Fatal().Err(err).Msg("reset failed")
	}
	fmt.Printf("Password reset for user %s\n", *username)
}
