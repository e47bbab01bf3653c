// Package backend opens the store selected by configuration, for the server
// and the operator commands alike.
package backend

import (
	"context"
	"fmt"

	"fintrack/pkg/config"
	"fintrack/pkg/store"
	"fintrack/pkg/store/filestore"
	"fintrack/pkg/store/gormstore"

	"github.com/rs/zerolog"
)

// Open opens the backend named by cfg.StoreBackend. The file backend also
// starts watching its document for outside edits when cfg.DBWatch is set.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (store.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		st, err := gormstore.Open(ctx, gormstore.Config{
			DSN:          cfg.DSN,
			AutoMigrate:  cfg.AutoMigrate,
			MaxOpenConns: 10,
			Log:          log,
		})
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		log.Debug().Bool("auto_migrate", cfg.AutoMigrate).Msg("using postgres store")
		return st, nil
	case config.BackendFile:
		st, err := filestore.Open(cfg.DBFile, filestore.WithLogger(log))
		if err != nil {
			return nil, fmt.Errorf("open file store: %w", err)
		}
		if cfg.DBWatch {
			if err := st.Watch(); err != nil {
				// serving still works; outside edits just won't be picked up
				log.Warn().Err(err).Str("path", cfg.DBFile).Msg("file watch disabled")
			}
		}
		log.Debug().Str("path", cfg.DBFile).Bool("watch", cfg.DBWatch).Msg("using file store")
		return st, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
