package dsnstore

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/go-ini/ini"

	"github.com/koustreak/dsneditor/internal/connstr"
	"github.com/koustreak/dsneditor/internal/errs"
	"github.com/koustreak/dsneditor/internal/logger"
	"github.com/koustreak/dsneditor/internal/profile"
	"github.com/koustreak/dsneditor/internal/security"
)

// indexSection lists every DSN with its driver, as unixODBC expects.
const indexSection = "ODBC Data Sources"

// reserved sections never hold a DSN.
var reserved = []string{ini.DefaultSection, indexSection, "ODBC"}

// IniStore keeps DSNs in an odbc.ini file: one section per DSN, keyed by
// the connection-string keywords.
//
//	[ODBC Data Sources]
//	Local ES = Elasticsearch Driver
//
//	[Local ES]
//	Driver = Elasticsearch Driver
//	dsn    = Local ES
//	server = localhost
//
// The file is re-read on every call so edits made by other tools are seen,
// and replaced atomically on every write.
type IniStore struct {
	path   string
	sealer *security.Sealer
	log    *logger.Logger
	mu     sync.Mutex
}

// NewIniStore returns a store over the file at path. The file is created on
// the first write.
func NewIniStore(path string, sealer *security.Sealer, log *logger.Logger) (*IniStore, error) {
	if path == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "ini store: file path is empty")
	}
	if log == nil {
		log = logger.Global()
	}
	return &IniStore{
		path:   path,
		sealer: sealer,
		log:    log.With().Str("store", "ini").Str("path", path).Logger(),
	}, nil
}

// Path returns the backing file.
func (s *IniStore) Path() string { return s.path }

func (s *IniStore) List(ctx context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	var out []Entry
	for _, sec := range f.Sections() {
		if isReserved(sec.Name()) {
			continue
		}
		e, err := s.entry(f, sec)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return nameKey(out[i].Name) < nameKey(out[j].Name) })
	return out, nil
}

func (s *IniStore) Get(ctx context.Context, name string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	sec := findSection(f, name)
	if sec == nil {
		return nil, errs.Newf(errs.ErrKindNotFound, "DSN %q not found", name)
	}
	return s.entry(f, sec)
}

func (s *IniStore) Exists(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load(ctx)
	if err != nil {
		return false, err
	}
	return findSection(f, name) != nil, nil
}

func (s *IniStore) Put(ctx context.Context, connStr string, overwrite bool) (*Entry, error) {
	p, err := prepare(connStr)
	if err != nil {
		return nil, err
	}
	sealed, err := sealAttrs(p.attrs, s.sealer)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	if old := findSection(f, p.name); old != nil {
		if !overwrite {
			return nil, errs.Newf(errs.ErrKindAlreadyExists, "DSN %q already exists", p.name)
		}
		f.DeleteSection(old.Name())
	}

	sec, err := f.NewSection(p.name)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid DSN name", err)
	}
	for _, pair := range sealed.Pairs() {
		if _, err := sec.NewKey(pair.Key, pair.Value); err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid keyword "+pair.Key, err)
		}
	}

	idx := f.Section(indexSection)
	removeKeyFold(idx, p.name)
	if _, err := idx.NewKey(p.name, p.driver); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid DSN name", err)
	}

	if err := s.save(f); err != nil {
		return nil, err
	}

	s.log.InfoWith("dsn stored", map[string]interface{}{"dsn": p.name, "overwrite": overwrite})
	return &Entry{
		Name:             p.name,
		Driver:           p.driver,
		ConnectionString: connstr.Write(p.attrs.Pairs()),
	}, nil
}

func (s *IniStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load(ctx)
	if err != nil {
		return err
	}
	sec := findSection(f, name)
	if sec == nil {
		return errs.Newf(errs.ErrKindNotFound, "DSN %q not found", name)
	}
	f.DeleteSection(sec.Name())
	if idx, err := f.GetSection(indexSection); err == nil {
		removeKeyFold(idx, name)
	}

	if err := s.save(f); err != nil {
		return err
	}
	s.log.InfoWith("dsn deleted", map[string]interface{}{"dsn": sec.Name()})
	return nil
}

func (s *IniStore) Close() error { return nil }

// --- file handling ---

func (s *IniStore) load(ctx context.Context) (*ini.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrKindTimeout, "ini store: operation canceled", err)
	}
	f, err := ini.LoadSources(ini.LoadOptions{
		Loose:               true,
		IgnoreInlineComment: true,
	}, s.path)
	if err != nil {
		return nil, mapError(err, "cannot read "+s.path)
	}
	return f, nil
}

func (s *IniStore) save(f *ini.File) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return mapError(err, "cannot create "+dir)
	}

	tmp, err := os.CreateTemp(dir, ".odbc.ini-*")
	if err != nil {
		return mapError(err, "cannot write "+s.path)
	}
	defer os.Remove(tmp.Name())

	if _, err := f.WriteTo(tmp); err != nil {
		_ = tmp.Close()
		return mapError(err, "cannot write "+s.path)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return mapError(err, "cannot write "+s.path)
	}
	if err := tmp.Close(); err != nil {
		return mapError(err, "cannot write "+s.path)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return mapError(err, "cannot write "+s.path)
	}
	return nil
}

// entry rebuilds the connection string stored in sec.
func (s *IniStore) entry(f *ini.File, sec *ini.Section) (*Entry, error) {
	name := sec.Name()
	attrs := connstr.New()
	if !sec.HasKey(profile.KeyDSN) {
		attrs.Set(profile.KeyDSN, name)
	}
	for _, k := range sec.Keys() {
		pair := connstr.Pair{Key: k.Name(), Value: k.Value()}
		if f, ok := profile.Lookup(pair.Key); ok {
			pair.Braced = f.Braced
		}
		attrs.SetPair(pair)
	}
	if err := openAttrs(attrs, s.sealer); err != nil {
		return nil, err
	}

	driver, _ := attrs.Get("Driver")
	if driver == "" {
		if idx, err := f.GetSection(indexSection); err == nil {
			for _, k := range idx.Keys() {
				if strings.EqualFold(k.Name(), name) {
					driver = k.Value()
				}
			}
		}
	}
	if driver == "" {
		driver = DefaultDriver
	}

	return &Entry{
		Name:             name,
		Driver:           connstr.StripBraces(driver),
		ConnectionString: connstr.Write(attrs.Pairs()),
	}, nil
}

func findSection(f *ini.File, name string) *ini.Section {
	key := nameKey(name)
	for _, sec := range f.Sections() {
		if !isReserved(sec.Name()) && nameKey(sec.Name()) == key {
			return sec
		}
	}
	return nil
}

func removeKeyFold(sec *ini.Section, name string) {
	for _, k := range sec.Keys() {
		if strings.EqualFold(k.Name(), name) {
			sec.DeleteKey(k.Name())
		}
	}
}

func isReserved(section string) bool {
	for _, r := range reserved {
		if strings.EqualFold(section, r) {
			return true
		}
	}
	return false
}
