package dsnstore

import (
	"context"

	"github.com/koustreak/dsneditor/internal/database"
	"github.com/koustreak/dsneditor/internal/database/mysql"
	"github.com/koustreak/dsneditor/internal/database/postgres"
	"github.com/koustreak/dsneditor/internal/database/sqlite"
	"github.com/koustreak/dsneditor/internal/errs"
	"github.com/koustreak/dsneditor/internal/logger"
	"github.com/koustreak/dsneditor/internal/security"
)

// Open builds the Store selected by cfg.
func Open(ctx context.Context, cfg *Config, log *logger.Logger) (Store, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	sealer := security.NewSealer(cfg.MasterKey)

	if cfg.Backend == BackendINI || cfg.Backend == "" {
		path := cfg.Path
		if path == "" {
			path = DefaultINIPath()
		}
		return NewIniStore(path, sealer, log)
	}

	db, err := openDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	store, err := NewSQLStore(ctx, db, sealer, log)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func openDB(ctx context.Context, cfg *Config) (database.DB, error) {
	dbCfg := database.DefaultConfig(database.Driver(cfg.Backend), cfg.Database.DSN)
	mergePool(dbCfg, &cfg.Database)

	switch cfg.Backend {
	case BackendSQLite:
		return sqlite.New(ctx, dbCfg)
	case BackendPostgres:
		return postgres.New(ctx, dbCfg)
	case BackendMySQL:
		return mysql.New(ctx, dbCfg)
	default:
		return nil, errs.Newf(errs.ErrKindInvalidInput, "unknown DSN store backend %q", cfg.Backend)
	}
}

// mergePool overrides the defaults in dst with the non-zero settings of src.
func mergePool(dst, src *database.Config) {
	if src.MaxConns > 0 {
		dst.MaxConns = src.MaxConns
	}
	if src.MinConns > 0 {
		dst.MinConns = src.MinConns
	}
	if src.MaxConnLifetime > 0 {
		dst.MaxConnLifetime = src.MaxConnLifetime
	}
	if src.MaxConnIdleTime > 0 {
		dst.MaxConnIdleTime = src.MaxConnIdleTime
	}
	if src.ConnectTimeout > 0 {
		dst.ConnectTimeout = src.ConnectTimeout
	}
	if src.QueryTimeout > 0 {
		dst.QueryTimeout = src.QueryTimeout
	}
}
