// Package mysql stores the DSN catalogue in MySQL or MariaDB through
// go-sql-driver/mysql.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/koustreak/dsneditor/internal/database"
	"github.com/koustreak/dsneditor/internal/errs"
)

// MySQL error numbers
// Full list: https://dev.mysql.com/doc/mysql-errors/8.0/en/server-error-reference.html
const (
	errAccessDenied    = 1045
	errDBAccessDenied  = 1044
	errNoDatabase      = 1046
	errUnknownDatabase = 1049
	errTooManyConns    = 1040
	errUserLimit       = 1203
	errDuplicateEntry  = 1062
	errLockWait        = 1205
	errTableAccess     = 1142
)

// New opens a MySQL connection pool using the provided Config and returns it
// as a database.DB. It calls Ping to validate the connection before returning.
func New(ctx context.Context, cfg *database.Config) (*database.SQLDB, error) {
	dsn, err := BuildDSN(cfg.DSN, cfg.ConnectTimeout)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "invalid DSN", err)
	}
	database.ApplyPool(db, cfg)

	d := database.NewSQLDB(db, database.DialectMySQL, mapError)

	pingCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}
	if err := d.Ping(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return d, nil
}

// BuildDSN normalises a go-sql-driver DSN: timestamps are parsed into
// time.Time, UPDATE reports matched rather than changed rows, and the dial
// timeout defaults to connectTimeout.
func BuildDSN(dsn string, connectTimeout time.Duration) (string, error) {
	mc, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", errs.Wrap(errs.ErrKindInvalidInput, "invalid MySQL DSN", err)
	}
	mc.ParseTime = true
	mc.ClientFoundRows = true
	if mc.Timeout == 0 {
		mc.Timeout = connectTimeout
	}
	return mc.FormatDSN(), nil
}

// --- error mapping ---

// mapError translates go-sql-driver/mysql errors into *errs.Error.
func mapError(err error, msg string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	if errors.Is(err, sql.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return errs.Wrap(
			classifyMySQLCode(mysqlErr.Number),
			fmt.Sprintf("%s: %s", msg, mysqlErr.Message),
			err,
		)
	}

	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}

// classifyMySQLCode maps MySQL error numbers to ErrKind.
func classifyMySQLCode(code uint16) errs.ErrKind {
	switch code {
	case errAccessDenied, errDBAccessDenied, errTableAccess:
		return errs.ErrKindPermissionDenied
	case errNoDatabase, errUnknownDatabase, errTooManyConns, errUserLimit:
		return errs.ErrKindConnectionFailed
	case errDuplicateEntry:
		return errs.ErrKindAlreadyExists
	case errLockWait:
		return errs.ErrKindTimeout
	default:
		return errs.ErrKindQueryFailed
	}
}
