package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/dossier-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(0)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS dossier_cache (
	id        TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	domain    TEXT NOT NULL,
	config_id TEXT NOT NULL,
	dossier   JSONB NOT NULL,
	cached_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (domain, config_id)
);

CREATE INDEX IF NOT EXISTS idx_dossier_cache_cached_at ON dossier_cache(cached_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) GetDossier(ctx context.Context, domain, configID string) (*Entry, error) {
	var raw []byte
	e := Entry{Domain: domain, ConfigID: configID}
	err := s.pool.QueryRow(ctx,
		`SELECT dossier, cached_at FROM dossier_cache WHERE domain = $1 AND config_id = $2`,
		domain, configID,
	).Scan(&raw, &e.CachedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get dossier")
	}
	if err := json.Unmarshal(raw, &e.Dossier); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal dossier")
	}
	return &e, nil
}

func (s *PostgresStore) PutDossier(ctx context.Context, d *model.AccountDossier) error {
	if d == nil {
		return eris.New("postgres: nil dossier")
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal dossier")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO dossier_cache (id, domain, config_id, dossier, cached_at) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (domain, config_id) DO UPDATE SET dossier = $4, cached_at = $5`,
		uuid.New().String(), d.Domain, d.Meta.ConfigID, raw, cachedAt(d),
	)
	return eris.Wrap(err, "postgres: put dossier")
}

func (s *PostgresStore) Purge(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM dossier_cache WHERE cached_at < $1`,
		cutoff.UTC(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: purge")
	}
	return int(tag.RowsAffected()), nil
}
