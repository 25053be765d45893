package repository

import (
	"context"
	"errors"
	"time"

	"tokenpulse/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/trace"
)

const createSnapshotTable = `
CREATE TABLE IF NOT EXISTS coingecko (
    id                          BIGSERIAL PRIMARY KEY,
    symbol                      TEXT             NOT NULL,
    name                        TEXT,
    current_price               DOUBLE PRECISION NOT NULL,
    market_cap                  DOUBLE PRECISION NOT NULL,
    total_volume                DOUBLE PRECISION NOT NULL,
    high_24h                    DOUBLE PRECISION NOT NULL,
    low_24h                     DOUBLE PRECISION NOT NULL,
    price_change_percentage_24h DOUBLE PRECISION,
    total_supply                DOUBLE PRECISION,
    volume_marketcap_ratio      DOUBLE PRECISION,
    volatility                  DOUBLE PRECISION,
    fetched_at                  TIMESTAMPTZ      NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_coingecko_fetched_at
    ON coingecko (fetched_at DESC);
`

const insertSnapshot = `INSERT INTO coingecko
    (symbol, name, current_price, market_cap, total_volume, high_24h, low_24h,
     price_change_percentage_24h, total_supply, volume_marketcap_ratio, volatility, fetched_at)
 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// SnapshotRepository owns the coingecko snapshot table. Each run fully
// replaces its contents; symbol is the natural key but uniqueness is not
// enforced because no rows survive across runs.
type SnapshotRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewSnapshotRepository(pool PgxPool, tracer trace.Tracer) *SnapshotRepository {
	return &SnapshotRepository{pool: pool, tracer: tracer}
}

// errNoPool is returned from every data operation when the repository was
// built without a pool (DATABASE_URL unset). The server boots in that mode
// with persistence disabled; a run then fails its storing step instead of
// crashing the process.
var errNoPool = errors.New("postgres not configured")

func (r *SnapshotRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "snapshot-repo.run-migrations")
	defer span.End()

	if r.pool == nil {
		return &domain.PersistenceError{Op: "migrate", Err: errNoPool}
	}
	_, err := r.pool.Exec(ctx, createSnapshotTable)
	return err
}

// ReplaceAll deletes every existing row and inserts the new batch inside
// one transaction, so a failure mid-replace rolls back to the prior
// snapshot instead of leaving the table empty. An empty batch still
// performs the delete; callers guard against clearing the table with
// zero new data.
func (r *SnapshotRepository) ReplaceAll(ctx context.Context, snapshots []domain.CoinSnapshot) error {
	_, span := r.tracer.Start(ctx, "snapshot-repo.replace-all")
	defer span.End()

	if r.pool == nil {
		return &domain.PersistenceError{Op: "begin", Err: errNoPool}
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return &domain.PersistenceError{Op: "begin", Err: err}
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM coingecko`); err != nil {
		return &domain.PersistenceError{Op: "delete", Err: err}
	}

	if len(snapshots) > 0 {
		batch := &pgx.Batch{}
		for _, s := range snapshots {
			batch.Queue(insertSnapshot,
				s.Symbol, s.Name, s.CurrentPrice, s.MarketCap, s.TotalVolume,
				s.High24h, s.Low24h, s.PriceChange24h, s.TotalSupply,
				s.VolumeMarketCapRatio, s.Volatility, s.FetchedAt,
			)
		}

		br := tx.SendBatch(ctx, batch)
		for range snapshots {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return &domain.PersistenceError{Op: "insert", Err: err}
			}
		}
		if err := br.Close(); err != nil {
			return &domain.PersistenceError{Op: "insert", Err: err}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return &domain.PersistenceError{Op: "commit", Err: err}
	}
	return nil
}

// GetSince returns rows with fetched_at strictly after the given time,
// ranked by market cap.
func (r *SnapshotRepository) GetSince(ctx context.Context, since time.Time) ([]domain.CoinSnapshot, error) {
	_, span := r.tracer.Start(ctx, "snapshot-repo.get-since")
	defer span.End()

	if r.pool == nil {
		return nil, &domain.PersistenceError{Op: "select", Err: errNoPool}
	}

	rows, err := r.pool.Query(ctx,
		`SELECT symbol, name, current_price, market_cap, total_volume, high_24h, low_24h,
		        price_change_percentage_24h, total_supply, volume_marketcap_ratio, volatility, fetched_at
		 FROM coingecko
		 WHERE fetched_at > $1
		 ORDER BY market_cap DESC`,
		since,
	)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "select", Err: err}
	}
	defer rows.Close()

	var snapshots []domain.CoinSnapshot
	for rows.Next() {
		var s domain.CoinSnapshot
		if err := rows.Scan(&s.Symbol, &s.Name, &s.CurrentPrice, &s.MarketCap, &s.TotalVolume,
			&s.High24h, &s.Low24h, &s.PriceChange24h, &s.TotalSupply,
			&s.VolumeMarketCapRatio, &s.Volatility, &s.FetchedAt); err != nil {
			return nil, &domain.PersistenceError{Op: "scan", Err: err}
		}
		snapshots = append(snapshots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.PersistenceError{Op: "select", Err: err}
	}
	return snapshots, nil
}
