package dsnstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/dsneditor/internal/connstr"
	"github.com/koustreak/dsneditor/internal/editor"
	"github.com/koustreak/dsneditor/internal/errs"
	"github.com/koustreak/dsneditor/internal/logger"
	"github.com/koustreak/dsneditor/internal/profile"
	"github.com/koustreak/dsneditor/internal/security"
)

const localES = "Driver={Elasticsearch Driver};dsn={Local ES};uid=elastic;pwd={p=a;ss};server=localhost;port=9200"

type factory func(t *testing.T, masterKey string) Store

func factories() map[string]factory {
	return map[string]factory{
		"ini": func(t *testing.T, masterKey string) Store {
			s, err := NewIniStore(filepath.Join(t.TempDir(), "odbc.ini"), security.NewSealer(masterKey), logger.Nop())
			require.NoError(t, err)
			return s
		},
		"sqlite": func(t *testing.T, masterKey string) Store {
			cfg := &Config{Backend: BackendSQLite, MasterKey: masterKey}
			cfg.Database.DSN = filepath.Join(t.TempDir(), "catalogue.db")
			s, err := Open(context.Background(), cfg, logger.Nop())
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	}
}

func TestStore_Lifecycle(t *testing.T) {
	for name, newStore := range factories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t, "")

			list, err := s.List(ctx)
			require.NoError(t, err)
			assert.Empty(t, list)

			e, err := s.Put(ctx, localES, false)
			require.NoError(t, err)
			assert.Equal(t, "Local ES", e.Name)
			assert.Equal(t, "Elasticsearch Driver", e.Driver)

			ok, err := s.Exists(ctx, "local es")
			require.NoError(t, err)
			assert.True(t, ok)

			got, err := s.Get(ctx, "LOCAL ES")
			require.NoError(t, err)
			p, err := profile.Decode(got.ConnectionString)
			require.NoError(t, err)
			assert.Equal(t, "Local ES", p.Name)
			assert.Equal(t, "p=a;ss", p.Password)
			assert.Equal(t, "localhost", p.Server)

			_, err = s.Put(ctx, localES, false)
			assert.True(t, errs.IsAlreadyExists(err))

			changed := strings.Replace(localES, "server=localhost", "server=es.internal", 1)
			_, err = s.Put(ctx, changed, true)
			require.NoError(t, err)
			got, err = s.Get(ctx, "Local ES")
			require.NoError(t, err)
			assert.Contains(t, got.ConnectionString, "server=es.internal")

			_, err = s.Put(ctx, "dsn=Another;server=other", false)
			require.NoError(t, err)
			list, err = s.List(ctx)
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, "Another", list[0].Name)
			assert.Equal(t, DefaultDriver, list[0].Driver)
			assert.Equal(t, "Local ES", list[1].Name)

			require.NoError(t, s.Delete(ctx, "local es"))
			assert.True(t, errs.IsNotFound(s.Delete(ctx, "Local ES")))
			_, err = s.Get(ctx, "Local ES")
			assert.True(t, errs.IsNotFound(err))
		})
	}
}

func TestStore_RejectsBadNames(t *testing.T) {
	tests := []struct {
		name    string
		connStr string
		kind    errs.ErrKind
	}{
		{"no name", "server=localhost", errs.ErrKindInvalidInput},
		{"blank name", "dsn= ;server=localhost", errs.ErrKindInvalidInput},
		{"backslash", `dsn=a\b;server=localhost`, errs.ErrKindInvalidCharacter},
		{"brackets", "dsn=[x];server=localhost", errs.ErrKindInvalidCharacter},
		{"too long", "dsn=" + strings.Repeat("n", 256), errs.ErrKindInvalidLength},
		{"malformed", "dsn={open", errs.ErrKindParseFailed},
	}

	for storeName, newStore := range factories() {
		s := newStore(t, "")
		for _, tt := range tests {
			t.Run(storeName+"/"+tt.name, func(t *testing.T) {
				_, err := s.Put(context.Background(), tt.connStr, true)
				assert.Equal(t, tt.kind, errs.KindOf(err), err)
			})
		}
	}
}

func TestStore_SealsSecrets(t *testing.T) {
	for name, newStore := range factories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t, "master")

			_, err := s.Put(ctx, localES+";APIKey=abc123", false)
			require.NoError(t, err)

			got, err := s.Get(ctx, "Local ES")
			require.NoError(t, err)
			attrs, err := connstr.Parse(got.ConnectionString)
			require.NoError(t, err)
			pwd, _ := attrs.Get("pwd")
			key, _ := attrs.Get("APIKey")
			assert.Equal(t, "p=a;ss", pwd)
			assert.Equal(t, "abc123", key)
		})
	}
}

func TestStore_SealedPrefixOutsideSecrets(t *testing.T) {
	for name, newStore := range factories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t, "")

			_, err := s.Put(ctx, "dsn=a;server=h;description="+security.SealedPrefix+"notes", false)
			require.NoError(t, err)

			got, err := s.Get(ctx, "a")
			require.NoError(t, err)
			attrs, err := connstr.Parse(got.ConnectionString)
			require.NoError(t, err)
			desc, _ := attrs.Get("description")
			assert.Equal(t, security.SealedPrefix+"notes", desc)

			list, err := s.List(ctx)
			require.NoError(t, err)
			assert.Len(t, list, 1)
		})
	}
}

func TestIniStore_FileLayout(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "odbc.ini")
	s, err := NewIniStore(path, security.NewSealer("master"), logger.Nop())
	require.NoError(t, err)

	_, err = s.Put(ctx, localES, false)
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(raw)
	assert.Contains(t, text, "[ODBC Data Sources]")
	assert.Contains(t, text, "[Local ES]")
	assert.Contains(t, text, "server")
	assert.Contains(t, text, security.SealedPrefix)
	assert.NotContains(t, text, "p=a;ss")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestIniStore_ReadsHandWrittenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "odbc.ini")
	require.NoError(t, os.WriteFile(path, []byte(`[ODBC Data Sources]
Prod = Elasticsearch Driver

[ODBC]
Trace = No

[Prod]
server = es.prod
port   = 9243
secure = 4
`), 0o600))

	s, err := NewIniStore(path, nil, logger.Nop())
	require.NoError(t, err)

	list, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Prod", list[0].Name)
	assert.Equal(t, "Elasticsearch Driver", list[0].Driver)
	assert.Equal(t, "dsn=Prod;server=es.prod;port=9243;secure=4", list[0].ConnectionString)
}

func TestSQLStore_WrongMasterKey(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "catalogue.db")

	open := func(key string) Store {
		cfg := &Config{Backend: BackendSQLite, MasterKey: key}
		cfg.Database.DSN = dbPath
		s, err := Open(ctx, cfg, logger.Nop())
		require.NoError(t, err)
		return s
	}

	s := open("right")
	_, err := s.Put(ctx, localES, false)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s = open("wrong")
	defer s.Close()
	_, err = s.Get(ctx, "Local ES")
	assert.True(t, errs.IsPermissionDenied(err))
}

func TestMigrate_Idempotent(t *testing.T) {
	ctx := context.Background()
	cfg := &Config{Backend: BackendSQLite}
	cfg.Database.DSN = filepath.Join(t.TempDir(), "catalogue.db")

	store, err := Open(ctx, cfg, logger.Nop())
	require.NoError(t, err)
	s := store.(*SQLStore)
	defer s.Close()

	require.NoError(t, Migrate(ctx, s.db))
	v, err := SchemaVersion(ctx, s.db)
	require.NoError(t, err)
	assert.Equal(t, migrations[len(migrations)-1].Version, v)
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), &Config{Backend: "oracle"}, logger.Nop())
	assert.True(t, errs.IsInvalidInput(err))
}

func TestSaveCallback(t *testing.T) {
	ctx := context.Background()
	s, err := NewIniStore(filepath.Join(t.TempDir(), "odbc.ini"), nil, logger.Nop())
	require.NoError(t, err)
	save := SaveCallback(s)

	code, _ := save(ctx, localES, 0)
	assert.Equal(t, editor.StatusOK, code)

	code, _ = save(ctx, localES, 0)
	assert.Equal(t, editor.StatusDSNExists, code)

	code, _ = save(ctx, localES, editor.FlagOverwrite)
	assert.Equal(t, editor.StatusOK, code)

	code, msg := save(ctx, `dsn=a\b`, 0)
	assert.Equal(t, editor.StatusNameInvalid, code)
	assert.NotEmpty(t, msg)

	code, _ = save(ctx, "dsn={x", 0)
	assert.Equal(t, editor.StatusInvalid, code)

	code, _ = save(ctx, "", 0)
	assert.Equal(t, editor.StatusIsNull, code)
}

func TestSaveCallback_DrivesSession(t *testing.T) {
	ctx := context.Background()
	s, err := NewIniStore(filepath.Join(t.TempDir(), "odbc.ini"), nil, logger.Nop())
	require.NoError(t, err)
	_, err = s.Put(ctx, localES, false)
	require.NoError(t, err)

	sess, err := editor.New(editor.Options{
		ConnectionString: localES,
		Save:             SaveCallback(s),
		Test:             func(context.Context, string, editor.Flags) (int, string) { return editor.StatusOK, "" },
		Logger:           logger.Nop(),
	})
	require.NoError(t, err)

	require.Equal(t, editor.OutcomeConfirm, sess.Save(ctx))
	require.Equal(t, editor.OutcomeSaved, sess.ConfirmOverwrite(ctx, true))

	result, ok := sess.Result()
	require.True(t, ok)
	got, err := s.Get(ctx, "Local ES")
	require.NoError(t, err)

	want, err := profile.Decode(result)
	require.NoError(t, err)
	stored, err := profile.Decode(got.ConnectionString)
	require.NoError(t, err)
	assert.Equal(t, want, stored)
	assert.Contains(t, got.ConnectionString, "cloudid={}")
}
