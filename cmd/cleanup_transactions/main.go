package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"fintrack/pkg/config"
	"fintrack/pkg/ledger"
	"fintrack/pkg/logging"
	"fintrack/pkg/store"
	"fintrack/pkg/store/backend"
)

func main() {
	user := flag.String("user", "", "username whose transactions are removed")
	dry := flag.Bool("dry-run", true, "Preview actions without modifying the store")
	yes := flag.Bool("yes", false, "Confirm destructive action when dry-run=false")
	flag.Parse()

	if *user == "" {
		fmt.Fprintln(os.Stderr, "--user is required")
		os.Exit(2)
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

	if err := run(ctx, st, *user, *dry, *yes); err != nil {
		st.Close()
		log.Fatal().Err(err).Str("user", *user).Msg("cleanup failed")
	}
}

func run(ctx context.Context, st store.Store, username string, dry, yes bool) error {
	u, err := st.FindUserByUsername(ctx, username)
	if err != nil {
		return err
	}
	if u == nil {
		fmt.Printf("user %s not found; nothing to cleanup\n", username)
		return nil
	}
	svc := ledger.NewService(st, nil)
	txs, err := svc.List(ctx, u, store.Filter{})
	if err != nil {
		return err
	}

	fmt.Println("Planned actions:")
	fmt.Printf(" - delete %d transactions of user %s (id=%d)\n", len(txs), u.Username, u.ID)
	if dry {
		fmt.Println("dry-run: no changes made. Use --dry-run=false --yes to execute.")
		return nil
	}
	if !yes {
		fmt.Println("Destructive! Pass --yes to proceed.")
		return nil
	}
	n, err := svc.DeleteAll(ctx, u)
	if err != nil {
		return err
	}
	fmt.Printf("cleanup done: transactions deleted=%d\n", n)
	return nil
}
