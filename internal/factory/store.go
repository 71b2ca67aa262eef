// Package factory constructs driver-specific dependencies from configuration.
package factory

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/warmline/warmline/server/internal/config"
	"github.com/warmline/warmline/server/internal/store"
	"github.com/warmline/warmline/server/internal/store/postgres"
	"github.com/warmline/warmline/server/internal/store/sqlite"
)

// NewStore builds the configured store driver. The caller owns the lifetime
// of the underlying connection via the returned closer.
func NewStore(cfg *config.Config, log zerolog.Logger) (store.Store, func() error, error) {
	switch cfg.DBDriver {
	case "postgres":
		db, err := postgres.Open(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres open: %w", err)
		}
		log.Info().Str("driver", "postgres").Msg("store ready")
		return postgres.NewWithDB(db), db.Close, nil
	case "sqlite":
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite open: %w", err)
		}
		log.Info().Str("driver", "sqlite").Str("path", cfg.SQLitePath).Msg("store ready")
		return sqlite.NewWithDB(db), db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported DB_DRIVER: %s", cfg.DBDriver)
	}
}
