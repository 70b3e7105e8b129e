package dsnstore

import (
	"context"
	"fmt"
	"time"

	"github.com/koustreak/dsneditor/internal/database"
	"github.com/koustreak/dsneditor/internal/errs"
)

// Migration is one step of the catalogue schema.
type Migration struct {
	Version int
	Name    string
	Up      string
}

// migrations holds all catalogue migrations in order. The statements are
// written in the subset of SQL shared by SQLite, PostgreSQL and MySQL.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_dsns",
		Up: `CREATE TABLE IF NOT EXISTS dsns (
			id                VARCHAR(36)  NOT NULL PRIMARY KEY,
			name              VARCHAR(255) NOT NULL,
			name_key          VARCHAR(255) NOT NULL UNIQUE,
			driver            VARCHAR(255) NOT NULL,
			connection_string TEXT         NOT NULL,
			created_at        BIGINT       NOT NULL,
			updated_at        BIGINT       NOT NULL
		)`,
	},
	{
		Version: 2,
		Name:    "index_dsns_driver",
		Up:      `CREATE INDEX idx_dsns_driver ON dsns (driver)`,
	},
}

// Migrate applies all pending migrations.
func Migrate(ctx context.Context, db database.DB) error {
	d := db.Dialect()

	if _, err := db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER      NOT NULL PRIMARY KEY,
			name       VARCHAR(255) NOT NULL,
			applied_at BIGINT       NOT NULL
		)`); err != nil {
		return errs.Wrap(errs.KindOf(err), "create migrations table", err)
	}

	var current int
	if err := db.QueryRow(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return errs.Wrap(errs.KindOf(err), "read schema version", err)
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		if _, err := db.Exec(ctx, m.Up); err != nil {
			return errs.Wrap(errs.KindOf(err), fmt.Sprintf("execute migration %d (%s)", m.Version, m.Name), err)
		}
		if _, err := db.Exec(ctx,
			d.Rebind("INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)"),
			m.Version, m.Name, time.Now().Unix(),
		); err != nil {
			return errs.Wrap(errs.KindOf(err), fmt.Sprintf("record migration %d", m.Version), err)
		}
	}
	return nil
}

// SchemaVersion returns the latest applied migration.
func SchemaVersion(ctx context.Context, db database.DB) (int, error) {
	var v int
	err := db.QueryRow(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&v)
	return v, err
}
