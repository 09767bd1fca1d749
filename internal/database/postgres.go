package database

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nao1215/immoscan/internal/model"
)

// DefaultPostgresMaxConns is the pool size used when none is given.
const DefaultPostgresMaxConns = 2

// ErrEmptyDSN is returned when no PostgreSQL connection string is configured.
var ErrEmptyDSN = errors.New("postgres DSN is empty")

// PostgresSink exports crawl results to PostgreSQL.
type PostgresSink struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to the database at dsn with a pool of at most
// maxConns connections.
func OpenPostgres(ctx context.Context, dsn string, maxConns int) (*PostgresSink, error) {
	if dsn == "" {
		return nil, ErrEmptyDSN
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres DSN: %w", err)
	}
	if maxConns <= 0 {
		maxConns = DefaultPostgresMaxConns
	}
	cfg.MaxConns = int32(maxConns) //nolint:gosec // small configured value

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach postgres: %w", err)
	}

	return &PostgresSink{pool: pool}, nil
}

// Close releases every pooled connection.
func (p *PostgresSink) Close() {
	p.pool.Close()
}

// EnsureSchema creates the export tables when they are missing.
func (p *PostgresSink) EnsureSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS immoscan_crawls (
		id TEXT PRIMARY KEY,
		base_url TEXT NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ NOT NULL,
		pages_visited INTEGER NOT NULL,
		total INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS immoscan_listings (
		crawl_id TEXT NOT NULL REFERENCES immoscan_crawls(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		url TEXT NOT NULL,
		cost DOUBLE PRECISION,
		price_per_area DOUBLE PRECISION,
		floor INTEGER NOT NULL,
		is_top_floor BOOLEAN NOT NULL,
		area INTEGER NOT NULL,
		energy_class TEXT NOT NULL,
		parking_spots INTEGER NOT NULL,
		PRIMARY KEY (crawl_id, url)
	);
	CREATE INDEX IF NOT EXISTS immoscan_listings_url_idx ON immoscan_listings(url);
	`)
	if err != nil {
		return fmt.Errorf("failed to create postgres schema: %w", err)
	}
	return nil
}

// ExportCrawl writes result and its listings, batchSize rows per round trip.
// Rows that already exist are left untouched.
// It returns the number of listing rows inserted.
func (p *PostgresSink) ExportCrawl(ctx context.Context, result *model.CrawlResult, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 500
	}

	_, err := p.pool.Exec(ctx, `
	INSERT INTO immoscan_crawls (id, base_url, started_at, finished_at, pages_visited, total)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (id) DO NOTHING
	`, result.ID, result.BaseURL, result.StartedAt, result.FinishedAt, result.PagesVisited, result.Total)
	if err != nil {
		return 0, fmt.Errorf("failed to export crawl: %w", err)
	}

	total := 0
	for i := 0; i < len(result.Records); i += batchSize {
		end := min(i+batchSize, len(result.Records))

		b := &pgx.Batch{}
		for pos := i; pos < end; pos++ {
			r := result.Records[pos]
			b.Queue(`
			INSERT INTO immoscan_listings (crawl_id, position, url, cost, price_per_area, floor, is_top_floor, area, energy_class, parking_spots)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (crawl_id, url) DO NOTHING
			`, result.ID, pos, r.URL, amountPtr(r.Cost), amountPtr(r.PricePerArea),
				r.Floor, r.IsTopFloor, r.Area, r.EnergyClass, r.ParkingSpots)
		}

		br := p.pool.SendBatch(ctx, b)
		for k := i; k < end; k++ {
			tag, err := br.Exec()
			if err != nil {
				_ = br.Close()
				return total, fmt.Errorf("failed to export listing %s: %w", result.Records[k].URL, err)
			}
			total += int(tag.RowsAffected())
		}
		if err := br.Close(); err != nil {
			return total, fmt.Errorf("failed to close batch: %w", err)
		}
	}

	return total, nil
}

// amountPtr returns nil for NaN so that pgx writes NULL.
func amountPtr(a model.Amount) *float64 {
	f := a.Float64()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
