package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/dsneditor/internal/dsnstore"
	"github.com/koustreak/dsneditor/internal/errs"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "dsnedit.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, dsnstore.BackendINI, cfg.Store.Backend)
	assert.Equal(t, "127.0.0.1:8089", cfg.Server.Addr)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 10*time.Second, cfg.Probe.Timeout)
	assert.Equal(t, "dsn-templates", cfg.Templates.Bucket)
	assert.Empty(t, string(cfg.Templates.Provider))
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
store:
  backend: sqlite
  database:
    dsn: /tmp/catalogue.db
    query_timeout: 2s
templates:
  provider: dir
  root: /srv/templates
`)
	t.Setenv("DSNEDIT_LOGGING_LEVEL", "debug")
	t.Setenv("DSNEDIT_SERVER_ADDR", "0.0.0.0:9000")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, dsnstore.BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, "/tmp/catalogue.db", cfg.Store.Database.DSN)
	assert.Equal(t, 2*time.Second, cfg.Store.Database.QueryTimeout)
	assert.Equal(t, "/srv/templates", cfg.Templates.Root)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		kind    errs.ErrKind
		message string
	}{
		{"unknown key", "store:\n  flavour: x\n", errs.ErrKindParseFailed, "invalid configuration"},
		{"bad backend", "store:\n  backend: mongo\n", errs.ErrKindInvalidInput, "Store.Backend must be one of"},
		{"sql without dsn", "store:\n  backend: postgres\n", errs.ErrKindInvalidInput, "Store.Database.DSN is required"},
		{"minio without endpoint", "templates:\n  provider: minio\n", errs.ErrKindInvalidInput, "Templates.Endpoint is required"},
		{"bad log level", "logging:\n  level: loud\n", errs.ErrKindInvalidInput, "Logging.Level must be one of"},
		{"bad addr", "server:\n  addr: nowhere\n", errs.ErrKindInvalidInput, "Server.Addr must be host:port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Equal(t, tt.kind, errs.KindOf(err))
			assert.Contains(t, errs.Message(err), tt.message)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	assert.Equal(t, errs.ErrKindFileNotFound, errs.KindOf(err))
}

func TestLoggingConfig_Logger(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	cfg.Logging.FilePath = filepath.Join(t.TempDir(), "dsnedit.log")

	log := cfg.Logging.Logger()
	log.Info("hello")
	_, err = os.Stat(cfg.Logging.FilePath)
	assert.NoError(t, err)
}

func TestBuildInfo(t *testing.T) {
	info := GetBuildInfo()
	assert.Equal(t, Version, info.Version)
	assert.Contains(t, VersionString(), "dsnedit "+Version)
}
