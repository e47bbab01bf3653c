package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"fintrack/pkg/config"
	"fintrack/pkg/logging"
	"fintrack/pkg/store/backend"
	"fintrack/process/report"
)

func main() {
	username := flag.String("username", "user", "username to report for")
	month := flag.String("month", time.Now().Format("2006-01"), "month to report (YYYY-MM)")
	list := flag.Bool("list", false, "list matching rows")
	flag.Parse()

	cfg := config.Load()
	cfg.DBWatch = false
	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx := log.WithContext(context.Background())
	st, err := backend.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open store")
	}
	defer st.Close()

	if _, err := report.Run(ctx, os.Stdout, st, report.Options{Username: *username, Month: *month, List: *list}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		st.Close()
		os.Exit(1)
	}
}
