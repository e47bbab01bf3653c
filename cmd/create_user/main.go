package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"fintrack/pkg/apperr"
	"fintrack/pkg/auth"
	"fintrack/pkg/config"
	"fintrack/pkg/logging"
	"fintrack/pkg/store/backend"

	"github.com/shopspring/decimal"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Println("usage: go run ./cmd/create_user <username> <password> [monthlyBudget]")
		os.Exit(2)
	}
	in := auth.RegisterInput{Username: os.Args[1], Password: os.Args[2]}
	if len(os.Args) > 3 {
		b, err := decimal.NewFromString(os.Args[3])
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid monthly budget %q\n", os.Args[3])
			os.Exit(2)
		}
		in.MonthlyBudget = &b
	}

	cfg := config.Load()
	cfg.DBWatch = false
	log := logging.New(cfg.LogLevel, cfg.LogFormat)
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
	sess, err := svc.Register(ctx, in)
	if errors.Is(err, apperr.ErrConflict) {
		fmt.Printf("user %s already exists\n", in.Username)
		return
	}
	if err != nil {
		st.Close()
		log.Fatal().Err(err).Msg("failed to create user")
	}
	fmt.Printf("created user %s id=%d\n", sess.User.Username, sess.User.ID)
}
