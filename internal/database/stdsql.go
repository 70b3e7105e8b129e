package database

import (
	"context"
	"database/sql"
)

// SQLDB adapts a database/sql pool to DB. The sqlite and mysql drivers build
// on it; each supplies its own ErrorMapper.
type SQLDB struct {
	db      *sql.DB
	dialect Dialect
	mapErr  ErrorMapper
}

// NewSQLDB wraps db. mapErr must not be nil.
func NewSQLDB(db *sql.DB, dialect Dialect, mapErr ErrorMapper) *SQLDB {
	return &SQLDB{db: db, dialect: dialect, mapErr: mapErr}
}

// ApplyPool copies the pool settings of cfg onto db.
func ApplyPool(db *sql.DB, cfg *Config) {
	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(int(cfg.MaxConns))
	}
	db.SetMaxIdleConns(int(cfg.MinConns))
	db.SetConnMaxLifetime(cfg.MaxConnLifetime)
	db.SetConnMaxIdleTime(cfg.MaxConnIdleTime)
}

// --- database.DB implementation ---

func (s *SQLDB) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return s.mapErr(err, "ping failed")
	}
	return nil
}

func (s *SQLDB) Close() {
	_ = s.db.Close()
}

func (s *SQLDB) Dialect() Dialect {
	return s.dialect
}

func (s *SQLDB) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, s.mapErr(err, "statement failed")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, s.mapErr(err, "statement failed")
	}
	return n, nil
}

func (s *SQLDB) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.mapErr(err, "query failed")
	}
	return &sqlRows{rows: rows, mapErr: s.mapErr}, nil
}

func (s *SQLDB) QueryRow(ctx context.Context, query string, args ...any) Row {
	return &sqlRow{row: s.db.QueryRowContext(ctx, query, args...), mapErr: s.mapErr}
}

// Std returns the underlying pool (for migrations and advanced use).
func (s *SQLDB) Std() *sql.DB {
	return s.db
}

// --- sql.DB type wrappers ---

type sqlRows struct {
	rows   *sql.Rows
	mapErr ErrorMapper
}

func (r *sqlRows) Next() bool                 { return r.rows.Next() }
func (r *sqlRows) Columns() ([]string, error) { return r.rows.Columns() }
func (r *sqlRows) Close()                     { _ = r.rows.Close() }

func (r *sqlRows) Scan(dest ...any) error {
	if err := r.rows.Scan(dest...); err != nil {
		return r.mapErr(err, "failed to scan row")
	}
	return nil
}

func (r *sqlRows) Err() error {
	if err := r.rows.Err(); err != nil {
		return r.mapErr(err, "error during row iteration")
	}
	return nil
}

type sqlRow struct {
	row    *sql.Row
	mapErr ErrorMapper
}

func (r *sqlRow) Scan(dest ...any) error {
	if err := r.row.Scan(dest...); err != nil {
		return r.mapErr(err, "failed to read row")
	}
	return nil
}
