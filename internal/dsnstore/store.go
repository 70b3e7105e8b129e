// Package dsnstore is the DSN catalogue behind the editor's saveDsn
// callback: named connection strings persisted in an odbc.ini file or in a
// SQL database.
//
// Usage:
//
//	store, err := dsnstore.Open(ctx, dsnstore.DefaultConfig(), log)
//	if err != nil { ... }
//	defer store.Close()
//
//	session, err := editor.New(editor.Options{
//	    ConnectionString: connStr,
//	    Save:             dsnstore.SaveCallback(store),
//	    Test:             tester.Callback(),
//	})
package dsnstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/koustreak/dsneditor/internal/connstr"
	"github.com/koustreak/dsneditor/internal/database"
	"github.com/koustreak/dsneditor/internal/errs"
	"github.com/koustreak/dsneditor/internal/profile"
	"github.com/koustreak/dsneditor/internal/security"
	"github.com/koustreak/dsneditor/internal/validate"
)

// DefaultDriver is recorded for entries whose connection string names no
// driver.
const DefaultDriver = "Elasticsearch Driver"

// Entry is a stored DSN.
type Entry struct {
	ID               string    `json:"id,omitempty" yaml:"id,omitempty"`
	Name             string    `json:"name" yaml:"name"`
	Driver           string    `json:"driver" yaml:"driver"`
	ConnectionString string    `json:"connection_string" yaml:"connection_string"`
	UpdatedAt        time.Time `json:"updated_at,omitzero" yaml:"updated_at,omitempty"`
}

// Store is the DSN catalogue. Names are matched case-insensitively, the way
// the ODBC driver manager matches them.
type Store interface {
	// List returns all entries ordered by name.
	List(ctx context.Context) ([]Entry, error)

	// Get returns the entry called name, or errs.ErrKindNotFound.
	Get(ctx context.Context, name string) (*Entry, error)

	// Exists reports whether an entry called name is stored.
	Exists(ctx context.Context, name string) (bool, error)

	// Put stores connStr under the name carried by its `dsn` keyword. An
	// existing entry is replaced only when overwrite is set; otherwise Put
	// fails with errs.ErrKindAlreadyExists.
	Put(ctx context.Context, connStr string, overwrite bool) (*Entry, error)

	// Delete removes the entry called name, or fails with
	// errs.ErrKindNotFound.
	Delete(ctx context.Context, name string) error

	// Close releases the backend.
	Close() error
}

// Backend selects the Store implementation.
type Backend string

const (
	BackendINI      Backend = "ini"
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
	BackendMySQL    Backend = "mysql"
)

// Config selects and configures the catalogue backend.
type Config struct {
	Backend Backend `mapstructure:"backend" validate:"required,oneof=ini sqlite postgres mysql"`

	// Path is the odbc.ini file of the ini backend.
	Path string `mapstructure:"path"`

	// Database configures the SQL backends. Its Driver is derived from
	// Backend.
	Database database.Config `mapstructure:"database"`

	// MasterKey seals secrets (pwd, APIKey, ProxyAuthPWD) at rest. Empty
	// keeps them in the clear.
	MasterKey string `mapstructure:"master_key"`
}

// DefaultConfig uses the per-user odbc.ini file.
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendINI,
		Path:    DefaultINIPath(),
	}
}

// DefaultINIPath returns $ODBCINI, else ~/.odbc.ini.
func DefaultINIPath() string {
	if p := os.Getenv("ODBCINI"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".odbc.ini"
	}
	return filepath.Join(home, ".odbc.ini")
}

// --- shared helpers ---

// prepared is a connection string split into what the backends store.
type prepared struct {
	name   string
	driver string
	attrs  *connstr.Attributes
}

// prepare parses connStr and checks the DSN name it carries.
func prepare(connStr string) (*prepared, error) {
	attrs, err := connstr.Parse(connStr)
	if err != nil {
		return nil, err
	}

	name, _ := attrs.Get(profile.KeyDSN)
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "the connection string carries no DSN name")
	}
	if err := validate.Name(name); err != nil {
		return nil, err
	}
	if strings.ContainsAny(name, "[]") {
		return nil, errs.New(errs.ErrKindInvalidCharacter, "Name cannot contain [ or ] characters")
	}

	driver, _ := attrs.Get("Driver")
	driver = strings.TrimSpace(connstr.StripBraces(driver))
	if driver == "" {
		driver = DefaultDriver
	}
	return &prepared{name: name, driver: driver, attrs: attrs}, nil
}

// isSecret reports whether key holds a credential.
func isSecret(key string) bool {
	f, ok := profile.Lookup(key)
	return ok && f.Control == profile.ControlSecret
}

// sealAttrs returns a copy of attrs whose secret values are sealed.
func sealAttrs(attrs *connstr.Attributes, s *security.Sealer) (*connstr.Attributes, error) {
	out := connstr.New()
	for _, p := range attrs.Pairs() {
		if isSecret(p.Key) {
			v, err := s.Seal(p.Value)
			if err != nil {
				return nil, err
			}
			p.Value = v
		}
		out.SetPair(p)
	}
	return out, nil
}

// openAttrs reverses sealAttrs in place.
func openAttrs(attrs *connstr.Attributes, s *security.Sealer) error {
	for _, p := range attrs.Pairs() {
		if !isSecret(p.Key) || !security.IsSealed(p.Value) {
			continue
		}
		v, err := s.Open(p.Value)
		if err != nil {
			return err
		}
		p.Value = v
		attrs.SetPair(p)
	}
	return nil
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
