// Package sqlite is the embedded DSN catalogue backend. It uses the pure-Go
// modernc.org/sqlite driver, so the binary needs no cgo.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"modernc.org/sqlite"

	"github.com/koustreak/dsneditor/internal/database"
	"github.com/koustreak/dsneditor/internal/errs"
)

// SQLite result codes used by mapError.
// Full list: https://www.sqlite.org/rescode.html
const (
	codeBusy             = 5
	codeLocked           = 6
	codeReadOnly         = 8
	codeCantOpen         = 14
	codeConstraintUnique = 2067
	codeConstraintPK     = 1555
	codeNotADB           = 26
)

// New opens the database file named by cfg.DSN (":memory:" for a throwaway
// database) and pings it. Foreign keys and WAL journaling are switched on.
func New(ctx context.Context, cfg *database.Config) (*database.SQLDB, error) {
	if cfg.DSN == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "sqlite: database path is empty")
	}

	db, err := sql.Open("sqlite", BuildDSN(cfg.DSN))
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "invalid DSN", err)
	}
	database.ApplyPool(db, cfg)

	d := database.NewSQLDB(db, database.DialectSQLite, mapError)

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

// BuildDSN appends the connection pragmas the catalogue relies on.
func BuildDSN(path string) string {
	return fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
}

// --- error mapping ---

// mapError translates modernc.org/sqlite errors into *errs.Error.
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

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return errs.Wrap(classifyCode(sqliteErr.Code()), fmt.Sprintf("%s: %s", msg, sqliteErr.Error()), err)
	}

	return errs.Wrap(errs.ErrKindQueryFailed, msg, err)
}

// classifyCode maps SQLite (extended) result codes to ErrKind.
func classifyCode(code int) errs.ErrKind {
	switch code {
	case codeConstraintUnique, codeConstraintPK:
		return errs.ErrKindAlreadyExists
	case codeBusy, codeLocked:
		return errs.ErrKindTimeout
	case codeReadOnly:
		return errs.ErrKindPermissionDenied
	case codeCantOpen, codeNotADB:
		return errs.ErrKindConnectionFailed
	default:
		return errs.ErrKindQueryFailed
	}
}
