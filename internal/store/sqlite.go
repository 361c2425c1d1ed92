package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/dossier-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS dossier_cache (
	id        TEXT PRIMARY KEY,
	domain    TEXT NOT NULL,
	config_id TEXT NOT NULL,
	dossier   TEXT NOT NULL,
	cached_at DATETIME NOT NULL,
	UNIQUE (domain, config_id)
);

CREATE INDEX IF NOT EXISTS idx_dossier_cache_cached_at ON dossier_cache(cached_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetDossier(ctx context.Context, domain, configID string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT dossier, cached_at FROM dossier_cache WHERE domain = ? AND config_id = ?`,
		domain, configID,
	)

	var raw string
	e := Entry{Domain: domain, ConfigID: configID}
	err := row.Scan(&raw, &e.CachedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get dossier")
	}
	if err := json.Unmarshal([]byte(raw), &e.Dossier); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal dossier")
	}
	return &e, nil
}

func (s *SQLiteStore) PutDossier(ctx context.Context, d *model.AccountDossier) error {
	if d == nil {
		return eris.New("sqlite: nil dossier")
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal dossier")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO dossier_cache (id, domain, config_id, dossier, cached_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (domain, config_id) DO UPDATE SET dossier = excluded.dossier, cached_at = excluded.cached_at`,
		uuid.New().String(), d.Domain, d.Meta.ConfigID, string(raw), cachedAt(d),
	)
	return eris.Wrap(err, "sqlite: put dossier")
}

func (s *SQLiteStore) Purge(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM dossier_cache WHERE cached_at < ?`,
		cutoff.UTC(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: purge")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

// cachedAt stamps an entry with its generation time, falling back to now.
func cachedAt(d *model.AccountDossier) time.Time {
	if d.Meta.GeneratedAt.IsZero() {
		return time.Now().UTC()
	}
	return d.Meta.GeneratedAt.UTC()
}
