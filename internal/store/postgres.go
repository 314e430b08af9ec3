package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// Pool is the subset of pgxpool.Pool the store depends on. pgxmock
// implements it for tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

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

	maxConns := int32(10)
	minConns := int32(2)
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

// NewPostgresWithPool wraps an existing pool (used by tests with pgxmock).
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS research_cache (
	manufacturer_key       TEXT NOT NULL,
	identifier_key         TEXT NOT NULL,
	manufacturer           TEXT NOT NULL DEFAULT '',
	identifier             TEXT NOT NULL DEFAULT '',
	introduced             TEXT,
	end_of_sale            TEXT,
	end_of_sw_maintenance  TEXT,
	end_of_sec_vul_support TEXT,
	last_day_of_support    TEXT,
	source                 TEXT NOT NULL DEFAULT '',
	confidence             INTEGER NOT NULL DEFAULT 0,
	estimation             JSONB,
	researched_at          TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (manufacturer_key, identifier_key)
);

CREATE INDEX IF NOT EXISTS idx_research_cache_researched_at ON research_cache(researched_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) GetCacheEntry(ctx context.Context, manufacturerKey, identifierKey string) (*CacheEntry, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT manufacturer_key, identifier_key, manufacturer, identifier,
		        introduced, end_of_sale, end_of_sw_maintenance, end_of_sec_vul_support, last_day_of_support,
		        source, confidence, estimation, researched_at
		 FROM research_cache
		 WHERE manufacturer_key = $1 AND identifier_key = $2`,
		manufacturerKey, identifierKey,
	)

	entry, err := scanCacheEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get cache entry")
	}
	return entry, nil
}

func (s *PostgresStore) UpsertCacheEntry(ctx context.Context, entry CacheEntry) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO research_cache (
			manufacturer_key, identifier_key, manufacturer, identifier,
			introduced, end_of_sale, end_of_sw_maintenance, end_of_sec_vul_support, last_day_of_support,
			source, confidence, estimation, researched_at
		 ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 ON CONFLICT (manufacturer_key, identifier_key) DO UPDATE SET
			manufacturer = EXCLUDED.manufacturer,
			identifier = EXCLUDED.identifier,
			introduced = EXCLUDED.introduced,
			end_of_sale = EXCLUDED.end_of_sale,
			end_of_sw_maintenance = EXCLUDED.end_of_sw_maintenance,
			end_of_sec_vul_support = EXCLUDED.end_of_sec_vul_support,
			last_day_of_support = EXCLUDED.last_day_of_support,
			source = EXCLUDED.source,
			confidence = EXCLUDED.confidence,
			estimation = EXCLUDED.estimation,
			researched_at = EXCLUDED.researched_at`,
		entry.ManufacturerKey, entry.IdentifierKey, entry.Manufacturer, entry.Identifier,
		dateArg(entry.Dates.Introduced), dateArg(entry.Dates.EndOfSale),
		dateArg(entry.Dates.EndOfSwMaintenance), dateArg(entry.Dates.EndOfSecVulSupport),
		dateArg(entry.Dates.LastDayOfSupport),
		entry.Source, entry.Confidence, nullBytes(entry.Estimation), entry.ResearchedAt.UTC(),
	)
	return eris.Wrap(err, "postgres: upsert cache entry")
}

func (s *PostgresStore) CacheStats(ctx context.Context, staleBefore time.Time) (Stats, error) {
	var st Stats
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN researched_at < $1 THEN 1 ELSE 0 END), 0)
		 FROM research_cache`,
		staleBefore.UTC(),
	).Scan(&st.Total, &st.Stale)
	return st, eris.Wrap(err, "postgres: cache stats")
}
