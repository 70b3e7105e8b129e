package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/dsneditor/internal/database"
	"github.com/koustreak/dsneditor/internal/errs"
)

func TestParseConfig(t *testing.T) {
	cfg := database.DefaultConfig(database.DriverPostgres, "postgres://dsnedit:secret@db:5432/catalogue")
	cfg.ConnectTimeout = 3 * time.Second

	pc, err := ParseConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, int32(4), pc.MaxConns)
	assert.Equal(t, int32(1), pc.MinConns)
	assert.Equal(t, "db", pc.ConnConfig.Host)
	assert.Equal(t, "catalogue", pc.ConnConfig.Database)
	assert.Equal(t, 3*time.Second, pc.ConnConfig.ConnectTimeout)

	_, err = ParseConfig(database.DefaultConfig(database.DriverPostgres, "postgres://db:notaport/x"))
	assert.True(t, errs.IsInvalidInput(err))
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want errs.ErrKind
	}{
		{"canceled", context.Canceled, errs.ErrKindTimeout},
		{"no rows", pgx.ErrNoRows, errs.ErrKindNotFound},
		{"unique", &pgconn.PgError{Code: pgUniqueViolation, Message: "duplicate key"}, errs.ErrKindAlreadyExists},
		{"privilege", &pgconn.PgError{Code: pgInsufficientPriv}, errs.ErrKindPermissionDenied},
		{"auth class", &pgconn.PgError{Code: "28000"}, errs.ErrKindPermissionDenied},
		{"connection class", &pgconn.PgError{Code: "08006"}, errs.ErrKindConnectionFailed},
		{"statement timeout", &pgconn.PgError{Code: pgQueryCanceled}, errs.ErrKindTimeout},
		{"syntax", &pgconn.PgError{Code: "42601"}, errs.ErrKindQueryFailed},
		{"network", errors.New("dial tcp: i/o error"), errs.ErrKindConnectionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errs.KindOf(mapError(tt.err, "op")))
		})
	}

	err := mapError(&pgconn.PgError{Code: pgUniqueViolation, Message: "duplicate key"}, "insert failed")
	assert.Equal(t, "insert failed: duplicate key", errs.Message(err))
}
