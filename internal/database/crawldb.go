package database

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/immoscan/internal/config"
	"github.com/nao1215/immoscan/internal/model"
)

// DBFileName is the name of the history database inside the data directory.
const DBFileName = "immoscan.db"

// timeLayout stores timestamps with a fixed-width fraction so that the text
// columns sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// CrawlDB provides SQLite-based storage for crawl runs and their listings.
type CrawlDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging so that readers (history, serve)
	// do not block a running crawl.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a CrawlDB in dbDir.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, DBFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file, mode=rwc creates it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	if err := cdb.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return cdb, nil
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// Path returns the path of the database file.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (cdb *CrawlDB) createTables() error {
	schema := `
	-- One row per crawl run
	CREATE TABLE IF NOT EXISTS crawls (
		id TEXT PRIMARY KEY,
		base_url TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		pages_visited INTEGER NOT NULL DEFAULT 0,
		total INTEGER NOT NULL DEFAULT 0
	);
	-- Sentinel columns are added by migrate.

	CREATE INDEX IF NOT EXISTS idx_crawls_base_url ON crawls(base_url);
	CREATE INDEX IF NOT EXISTS idx_crawls_started_at ON crawls(started_at);

	-- Extracted listings; NULL amounts were NaN
	CREATE TABLE IF NOT EXISTS listings (
		crawl_id TEXT NOT NULL REFERENCES crawls(id),
		position INTEGER NOT NULL,
		url TEXT NOT NULL,
		cost REAL,
		price_per_area REAL,
		floor INTEGER NOT NULL,
		is_top_floor INTEGER NOT NULL,
		area INTEGER NOT NULL,
		energy_class TEXT NOT NULL,
		parking_spots INTEGER NOT NULL,
		UNIQUE(crawl_id, url)
	);

	CREATE INDEX IF NOT EXISTS idx_listings_url ON listings(url);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// sentinelColumns are the crawls columns holding the sentinels a crawl was
// run with. Rows written before they existed get the default sentinels; a
// NULL price column stands for NaN.
var sentinelColumns = []struct{ name, definition string }{
	{"sentinel_price", "REAL"},
	{"sentinel_price_per_area", "REAL DEFAULT 0"},
	{"sentinel_floor", "INTEGER NOT NULL DEFAULT 0"},
	{"sentinel_area", "INTEGER NOT NULL DEFAULT 0"},
	{"sentinel_energy", "TEXT NOT NULL DEFAULT 'n/a'"},
	{"sentinel_parking", "INTEGER NOT NULL DEFAULT 0"},
	{"sentinel_parking_on_request", "INTEGER NOT NULL DEFAULT 0"},
}

// crawlColumns is the select list scanned by queryCrawls.
const crawlColumns = `id, base_url, started_at, finished_at, pages_visited, total,
	sentinel_price, sentinel_price_per_area, sentinel_floor, sentinel_area,
	sentinel_energy, sentinel_parking, sentinel_parking_on_request`

// migrate adds the columns missing from databases created by older versions.
func (cdb *CrawlDB) migrate() error {
	ctx := context.Background()

	rows, err := cdb.db.QueryContext(ctx, `SELECT name FROM pragma_table_info('crawls')`)
	if err != nil {
		return err
	}
	existing := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return err
		}
		existing[name] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, col := range sentinelColumns {
		if existing[col.name] {
			continue
		}
		if _, err := cdb.db.ExecContext(ctx, "ALTER TABLE crawls ADD COLUMN "+col.name+" "+col.definition); err != nil {
			return fmt.Errorf("failed to add column %s: %w", col.name, err)
		}
	}
	return nil
}

// CrawlMetadata contains summary information about a stored crawl.
// It is used for listing crawl history without loading the listings.
type CrawlMetadata struct {
	ID           string    `json:"id"`
	BaseURL      string    `json:"base_url"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	PagesVisited int       `json:"pages_visited"`
	Total        int       `json:"total"`

	// Sentinels are the "not found" values the crawl was run with.
	Sentinels config.Sentinels `json:"-"`
}

// ListingObservation is one listing as seen by one crawl.
type ListingObservation struct {
	CrawlID   string              `json:"crawl_id"`
	CrawledAt time.Time           `json:"crawled_at"`
	Record    model.ListingRecord `json:"record"`
}

// SaveCrawl stores a crawl and all its listings in one transaction.
// Saving the same crawl again replaces its stored values.
func (cdb *CrawlDB) SaveCrawl(ctx context.Context, result *model.CrawlResult) (err error) {
	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
	INSERT INTO crawls (`+crawlColumns+`)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		base_url = excluded.base_url,
		started_at = excluded.started_at,
		finished_at = excluded.finished_at,
		pages_visited = excluded.pages_visited,
		total = excluded.total,
		sentinel_price = excluded.sentinel_price,
		sentinel_price_per_area = excluded.sentinel_price_per_area,
		sentinel_floor = excluded.sentinel_floor,
		sentinel_area = excluded.sentinel_area,
		sentinel_energy = excluded.sentinel_energy,
		sentinel_parking = excluded.sentinel_parking,
		sentinel_parking_on_request = excluded.sentinel_parking_on_request
	`,
		result.ID,
		result.BaseURL,
		formatTimestamp(result.StartedAt),
		formatTimestamp(result.FinishedAt),
		result.PagesVisited,
		result.Total,
		nullAmount(model.Amount(result.Sentinels.PriceNotFound)),
		nullAmount(model.Amount(result.Sentinels.PricePerAreaInvalid)),
		result.Sentinels.FloorNotFound,
		result.Sentinels.AreaNotFound,
		result.Sentinels.EnergyNotFound,
		result.Sentinels.ParkingNotFound,
		result.Sentinels.ParkingOnRequest,
	)
	if err != nil {
		return fmt.Errorf("failed to insert crawl: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM listings WHERE crawl_id = ?`, result.ID); err != nil {
		return fmt.Errorf("failed to clear listings: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO listings (crawl_id, position, url, cost, price_per_area, floor, is_top_floor, area, energy_class, parking_spots)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(crawl_id, url) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare listing insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range result.Records {
		_, err = stmt.ExecContext(ctx,
			result.ID,
			i,
			r.URL,
			nullAmount(r.Cost),
			nullAmount(r.PricePerArea),
			r.Floor,
			r.IsTopFloor,
			r.Area,
			r.EnergyClass,
			r.ParkingSpots,
		)
		if err != nil {
			return fmt.Errorf("failed to insert listing %s: %w", r.URL, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit crawl: %w", err)
	}
	return nil
}

// ListCrawls returns the metadata of every stored crawl, newest first.
func (cdb *CrawlDB) ListCrawls(ctx context.Context) ([]CrawlMetadata, error) {
	return cdb.queryCrawls(ctx, `
	SELECT `+crawlColumns+`
	FROM crawls
	ORDER BY started_at DESC
	`)
}

// GetCrawl retrieves a crawl with all its listings.
// It returns nil, nil when the crawl does not exist.
func (cdb *CrawlDB) GetCrawl(ctx context.Context, id string) (*model.CrawlResult, error) {
	metas, err := cdb.queryCrawls(ctx, `
	SELECT `+crawlColumns+`
	FROM crawls
	WHERE id = ?
	`, id)
	if err != nil {
		return nil, err
	}
	if len(metas) == 0 {
		return nil, nil
	}
	return cdb.loadCrawl(ctx, metas[0])
}

// GetLatestCrawls returns up to n crawls of baseURL with their listings,
// newest first.
func (cdb *CrawlDB) GetLatestCrawls(ctx context.Context, baseURL string, n int) ([]*model.CrawlResult, error) {
	metas, err := cdb.queryCrawls(ctx, `
	SELECT `+crawlColumns+`
	FROM crawls
	WHERE base_url = ?
	ORDER BY started_at DESC
	LIMIT ?
	`, baseURL, n)
	if err != nil {
		return nil, err
	}

	results := make([]*model.CrawlResult, 0, len(metas))
	for _, meta := range metas {
		res, err := cdb.loadCrawl(ctx, meta)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

// ListingHistory returns every stored observation of the listing at url,
// oldest first.
func (cdb *CrawlDB) ListingHistory(ctx context.Context, url string) ([]ListingObservation, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT c.id, c.started_at, l.url, l.cost, l.price_per_area, l.floor, l.is_top_floor, l.area, l.energy_class, l.parking_spots
	FROM listings l
	JOIN crawls c ON c.id = l.crawl_id
	WHERE l.url = ?
	ORDER BY c.started_at ASC
	`, url)
	if err != nil {
		return nil, fmt.Errorf("failed to query listing history: %w", err)
	}
	defer rows.Close()

	history := make([]ListingObservation, 0)
	for rows.Next() {
		var (
			obs       ListingObservation
			timestamp string
		)
		record, err := scanListing(rows, &obs.CrawlID, &timestamp)
		if err != nil {
			return nil, err
		}
		obs.CrawledAt = parseTimestamp(timestamp)
		obs.Record = record
		history = append(history, obs)
	}

	return history, rows.Err()
}

// DeleteCrawl removes a crawl and its listings. It reports whether the crawl
// existed.
func (cdb *CrawlDB) DeleteCrawl(ctx context.Context, id string) (deleted bool, err error) {
	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM listings WHERE crawl_id = ?`, id); err != nil {
		return false, fmt.Errorf("failed to delete listings: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM crawls WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete crawl: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete crawl: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit delete: %w", err)
	}
	return n > 0, nil
}

func (cdb *CrawlDB) queryCrawls(ctx context.Context, query string, args ...any) ([]CrawlMetadata, error) {
	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query crawls: %w", err)
	}
	defer rows.Close()

	results := make([]CrawlMetadata, 0)
	for rows.Next() {
		var (
			meta              CrawlMetadata
			started, finished string
			price, perArea    sql.NullFloat64
		)
		s := &meta.Sentinels
		if err := rows.Scan(&meta.ID, &meta.BaseURL, &started, &finished, &meta.PagesVisited, &meta.Total,
			&price, &perArea, &s.FloorNotFound, &s.AreaNotFound,
			&s.EnergyNotFound, &s.ParkingNotFound, &s.ParkingOnRequest); err != nil {
			return nil, fmt.Errorf("failed to scan crawl: %w", err)
		}
		meta.StartedAt = parseTimestamp(started)
		meta.FinishedAt = parseTimestamp(finished)
		s.PriceNotFound = amountFromNull(price).Float64()
		s.PricePerAreaInvalid = amountFromNull(perArea).Float64()
		results = append(results, meta)
	}

	return results, rows.Err()
}

func (cdb *CrawlDB) loadCrawl(ctx context.Context, meta CrawlMetadata) (*model.CrawlResult, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT crawl_id, '', url, cost, price_per_area, floor, is_top_floor, area, energy_class, parking_spots
	FROM listings
	WHERE crawl_id = ?
	ORDER BY position ASC
	`, meta.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}
	defer rows.Close()

	records := make([]model.ListingRecord, 0, meta.Total)
	for rows.Next() {
		var crawlID, timestamp string
		record, err := scanListing(rows, &crawlID, &timestamp)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &model.CrawlResult{
		ID:           meta.ID,
		BaseURL:      meta.BaseURL,
		StartedAt:    meta.StartedAt,
		FinishedAt:   meta.FinishedAt,
		PagesVisited: meta.PagesVisited,
		Records:      records,
		Total:        meta.Total,
		Sentinels:    meta.Sentinels,
	}, nil
}

// scanListing scans a row whose first two columns are a crawl id and a
// timestamp, followed by the listing columns.
func scanListing(rows *sql.Rows, crawlID, timestamp *string) (model.ListingRecord, error) {
	var (
		r            model.ListingRecord
		cost, perSqm sql.NullFloat64
	)
	err := rows.Scan(crawlID, timestamp, &r.URL, &cost, &perSqm, &r.Floor, &r.IsTopFloor, &r.Area, &r.EnergyClass, &r.ParkingSpots)
	if err != nil {
		return r, fmt.Errorf("failed to scan listing: %w", err)
	}
	r.Cost = amountFromNull(cost)
	r.PricePerArea = amountFromNull(perSqm)
	return r, nil
}

// nullAmount maps NaN to NULL, which SQLite cannot store as a REAL.
func nullAmount(a model.Amount) sql.NullFloat64 {
	f := a.Float64()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: f, Valid: true}
}

func amountFromNull(n sql.NullFloat64) model.Amount {
	if !n.Valid {
		return model.Amount(math.NaN())
	}
	return model.Amount(n.Float64)
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,          // Format written by formatTimestamp
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
