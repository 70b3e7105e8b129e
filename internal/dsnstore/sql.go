package dsnstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/koustreak/dsneditor/internal/connstr"
	"github.com/koustreak/dsneditor/internal/database"
	"github.com/koustreak/dsneditor/internal/errs"
	"github.com/koustreak/dsneditor/internal/logger"
	"github.com/koustreak/dsneditor/internal/security"
)

const dsnTable = "dsns"

var dsnColumns = []string{"id", "name", "driver", "connection_string", "updated_at"}

// SQLStore keeps DSNs in a relational table. Secrets inside the stored
// connection strings are sealed when the Sealer is enabled.
type SQLStore struct {
	db     database.DB
	sealer *security.Sealer
	log    *logger.Logger
	now    func() time.Time
}

// NewSQLStore migrates db and returns a store over it. The store owns db and
// closes it in Close.
func NewSQLStore(ctx context.Context, db database.DB, sealer *security.Sealer, log *logger.Logger) (*SQLStore, error) {
	if log == nil {
		log = logger.Global()
	}
	if err := Migrate(ctx, db); err != nil {
		return nil, err
	}
	return &SQLStore{
		db:     db,
		sealer: sealer,
		log:    log.With().Str("store", "sql").Str("dialect", db.Dialect().String()).Logger(),
		now:    time.Now,
	}, nil
}

func (s *SQLStore) List(ctx context.Context) ([]Entry, error) {
	q, args, err := database.Select(dsnTable, s.db.Dialect()).
		Columns(dsnColumns...).
		OrderBy("name_key", database.Asc).
		Build()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := s.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLStore) Get(ctx context.Context, name string) (*Entry, error) {
	q, args, err := database.Select(dsnTable, s.db.Dialect()).
		Columns(dsnColumns...).
		Where("name_key", "=", nameKey(name)).
		Build()
	if err != nil {
		return nil, err
	}

	e, err := s.scan(s.db.QueryRow(ctx, q, args...))
	if errs.IsNotFound(err) {
		return nil, errs.Wrap(errs.ErrKindNotFound, "DSN \""+name+"\" not found", err)
	}
	return e, err
}

func (s *SQLStore) Exists(ctx context.Context, name string) (bool, error) {
	var n int
	err := s.db.QueryRow(ctx,
		s.db.Dialect().Rebind("SELECT COUNT(*) FROM dsns WHERE name_key = ?"),
		nameKey(name),
	).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLStore) Put(ctx context.Context, connStr string, overwrite bool) (*Entry, error) {
	p, err := prepare(connStr)
	if err != nil {
		return nil, err
	}
	sealed, err := sealAttrs(p.attrs, s.sealer)
	if err != nil {
		return nil, err
	}
	body := connstr.Write(sealed.Pairs())
	now := s.now().UTC()
	d := s.db.Dialect()

	entry := &Entry{
		Name:             p.name,
		Driver:           p.driver,
		ConnectionString: connstr.Write(p.attrs.Pairs()),
		UpdatedAt:        time.Unix(now.Unix(), 0).UTC(),
	}

	if overwrite {
		n, err := s.db.Exec(ctx,
			d.Rebind(`UPDATE dsns SET name = ?, driver = ?, connection_string = ?, updated_at = ? WHERE name_key = ?`),
			p.name, p.driver, body, now.Unix(), nameKey(p.name),
		)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			if err := s.db.QueryRow(ctx, d.Rebind("SELECT id FROM dsns WHERE name_key = ?"), nameKey(p.name)).Scan(&entry.ID); err != nil {
				return nil, err
			}
			s.log.InfoWith("dsn replaced", map[string]interface{}{"dsn": p.name, "id": entry.ID})
			return entry, nil
		}
	}

	entry.ID = uuid.NewString()
	_, err = s.db.Exec(ctx,
		d.Rebind(`INSERT INTO dsns (id, name, name_key, driver, connection_string, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`),
		entry.ID, p.name, nameKey(p.name), p.driver, body, now.Unix(), now.Unix(),
	)
	if errs.IsAlreadyExists(err) {
		return nil, errs.Wrap(errs.ErrKindAlreadyExists, "DSN \""+p.name+"\" already exists", err)
	}
	if err != nil {
		return nil, err
	}

	s.log.InfoWith("dsn stored", map[string]interface{}{"dsn": p.name, "id": entry.ID})
	return entry, nil
}

func (s *SQLStore) Delete(ctx context.Context, name string) error {
	n, err := s.db.Exec(ctx, s.db.Dialect().Rebind("DELETE FROM dsns WHERE name_key = ?"), nameKey(name))
	if err != nil {
		return err
	}
	if n == 0 {
		return errs.Newf(errs.ErrKindNotFound, "DSN %q not found", name)
	}
	s.log.InfoWith("dsn deleted", map[string]interface{}{"dsn": name})
	return nil
}

func (s *SQLStore) Close() error {
	s.db.Close()
	return nil
}

func (s *SQLStore) scan(row database.Row) (*Entry, error) {
	var (
		e       Entry
		body    string
		updated int64
	)
	if err := row.Scan(&e.ID, &e.Name, &e.Driver, &body, &updated); err != nil {
		return nil, err
	}

	attrs, err := connstr.Parse(body)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindParseFailed, "stored connection string of "+e.Name+" is corrupt", err)
	}
	if err := openAttrs(attrs, s.sealer); err != nil {
		return nil, err
	}
	e.ConnectionString = connstr.Write(attrs.Pairs())
	e.UpdatedAt = time.Unix(updated, 0).UTC()
	return &e, nil
}
