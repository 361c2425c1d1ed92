// Package store caches finished dossiers keyed by (domain, config id).
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"

	"github.com/sells-group/dossier-cli/internal/config"
	"github.com/sells-group/dossier-cli/internal/model"
)

// Entry is a cached dossier.
type Entry struct {
	Domain   string
	ConfigID string
	Dossier  model.AccountDossier
	CachedAt time.Time
}

// Age returns how old the entry is at now.
func (e *Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.CachedAt)
}

// Store persists dossiers for reuse across runs. Freshness is decided by
// the caller's refresh policy; the store only records when an entry was
// written.
type Store interface {
	// GetDossier returns nil, nil when nothing is cached.
	GetDossier(ctx context.Context, domain, configID string) (*Entry, error)
	// PutDossier upserts d under (d.Domain, d.Meta.ConfigID).
	PutDossier(ctx context.Context, d *model.AccountDossier) error
	// Purge deletes entries cached before cutoff and returns how many.
	Purge(ctx context.Context, cutoff time.Time) (int, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Pool is the subset of pgxpool.Pool used by PostgresStore.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// New opens the configured backend and runs migrations. It returns nil when
// caching is disabled.
func New(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		st  Store
		err error
	)
	switch cfg.Driver {
	case "", "none":
		return nil, nil
	case "sqlite":
		st, err = NewSQLite(cfg.DatabaseURL)
	case "postgres":
		st, err = NewPostgres(ctx, cfg.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}
