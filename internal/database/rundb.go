package database

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/sha3"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/scrapemapper/internal/model"
)

// FileName is the database file created in the archive directory.
const FileName = "scrapemapper.db"

// ErrRunNotFound is returned when a run ID does not exist.
var ErrRunNotFound = errors.New("run not found")

// RunDB stores finished crawl runs.
type RunDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures RunDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file if missing.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the archive in dbDir.
func Open(dbDir string, opts Options) (*RunDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &RunDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close() //nolint:errcheck
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if _, err := db.ExecContext(context.Background(), "PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close() //nolint:errcheck
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := rdb.createTables(); err != nil {
		_ = db.Close() //nolint:errcheck
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return rdb, nil
}

// Close closes the database connection.
func (rdb *RunDB) Close() error {
	return rdb.db.Close()
}

// Path returns the database file path.
func (rdb *RunDB) Path() string {
	return rdb.dbPath
}

func (rdb *RunDB) createTables() error {
	schema := `
	-- One row per finished crawl
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		root_url TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		page_count INTEGER NOT NULL,
		partial INTEGER NOT NULL DEFAULT 0,
		digest TEXT NOT NULL,
		sitemap_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_root ON runs(root_url);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	-- Page summaries for cheap comparisons
	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		url TEXT NOT NULL,
		title TEXT NOT NULL,
		internal_count INTEGER NOT NULL,
		external_count INTEGER NOT NULL,
		anchor_count INTEGER NOT NULL,
		media_count INTEGER NOT NULL,
		UNIQUE(run_id, url)
	);

	CREATE INDEX IF NOT EXISTS idx_pages_run ON pages(run_id);
	`

	_, err := rdb.db.ExecContext(context.Background(), schema)
	return err
}

// Run is an archived crawl.
type Run struct {
	RunMetadata

	// SiteMap is the decoded crawl result.
	SiteMap *model.SiteMap
}

// RunMetadata describes an archived crawl without its pages.
type RunMetadata struct {
	ID         int64     `json:"id"`
	Root       string    `json:"root"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	PageCount  int       `json:"pageCount"`
	Partial    bool      `json:"partial"`

	// Digest is the hex SHA3-256 of the serialized pages. Two runs with
	// the same digest produced identical sitemaps.
	Digest string `json:"digest"`
}

// PageRecord is the archived summary of one page.
type PageRecord struct {
	URL           string `json:"url"`
	Title         string `json:"title"`
	InternalLinks int    `json:"internalLinks"`
	ExternalLinks int    `json:"externalLinks"`
	PageLinks     int    `json:"pageLinks"`
	MediaSources  int    `json:"mediaSources"`
}

// Digest returns the hex SHA3-256 of data.
func Digest(data []byte) string {
	sum := sha3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// SaveRun archives sitemap and returns the new run ID.
func (rdb *RunDB) SaveRun(ctx context.Context, sitemap *model.SiteMap) (int64, error) {
	pagesJSON, err := json.Marshal(sitemap.Pages)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize pages: %w", err)
	}

	tx, err := rdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	finished := sitemap.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}

	result, err := tx.ExecContext(ctx, `
	INSERT INTO runs (root_url, started_at, finished_at, page_count, partial, digest, sitemap_json)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		sitemap.Root,
		formatTimestamp(sitemap.StartedAt),
		formatTimestamp(finished),
		len(sitemap.Pages),
		sitemap.Partial,
		Digest(pagesJSON),
		string(pagesJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save run: %w", err)
	}

	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run ID: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO pages (run_id, position, url, title, internal_count, external_count, anchor_count, media_count)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare page insert: %w", err)
	}
	defer stmt.Close()

	for i, p := range sitemap.Pages {
		if _, err := stmt.ExecContext(ctx,
			runID,
			i,
			p.URL,
			p.Title,
			len(p.InternalLinks),
			len(p.ExternalLinks),
			len(p.PageLinks),
			len(p.MediaSources),
		); err != nil {
			return 0, fmt.Errorf("failed to save page %s: %w", p.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return runID, nil
}

// GetRun returns the run with the given ID and its decoded sitemap.
func (rdb *RunDB) GetRun(ctx context.Context, id int64) (*Run, error) {
	var (
		run               Run
		started, finished string
		partial           bool
		sitemapJSON       string
	)

	err := rdb.db.QueryRowContext(ctx, `
	SELECT id, root_url, started_at, finished_at, page_count, partial, digest, sitemap_json
	FROM runs
	WHERE id = ?
	`, id).Scan(
		&run.ID,
		&run.Root,
		&started,
		&finished,
		&run.PageCount,
		&partial,
		&run.Digest,
		&sitemapJSON,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	run.StartedAt = parseTimestamp(started)
	run.FinishedAt = parseTimestamp(finished)
	run.Partial = partial

	var pages []*model.Page
	if err := json.Unmarshal([]byte(sitemapJSON), &pages); err != nil {
		return nil, fmt.Errorf("failed to parse run %d: %w", id, err)
	}
	if pages == nil {
		pages = []*model.Page{}
	}
	run.SiteMap = &model.SiteMap{
		Root:       run.Root,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Pages:      pages,
		Partial:    run.Partial,
	}

	return &run, nil
}

// GetRunHistory returns the runs for root, newest first.
func (rdb *RunDB) GetRunHistory(ctx context.Context, root string) ([]RunMetadata, error) {
	rows, err := rdb.db.QueryContext(ctx, `
	SELECT id, root_url, started_at, finished_at, page_count, partial, digest
	FROM runs
	WHERE root_url = ?
	ORDER BY started_at DESC, id DESC
	`, root)
	if err != nil {
		return nil, fmt.Errorf("failed to get run history: %w", err)
	}
	defer rows.Close()

	var results []RunMetadata
	for rows.Next() {
		var meta RunMetadata
		var started, finished string

		if err := rows.Scan(
			&meta.ID,
			&meta.Root,
			&started,
			&finished,
			&meta.PageCount,
			&meta.Partial,
			&meta.Digest,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		meta.StartedAt = parseTimestamp(started)
		meta.FinishedAt = parseTimestamp(finished)
		results = append(results, meta)
	}

	return results, rows.Err()
}

// GetPageRecords returns the page summaries of a run in crawl order.
func (rdb *RunDB) GetPageRecords(ctx context.Context, runID int64) ([]PageRecord, error) {
	rows, err := rdb.db.QueryContext(ctx, `
	SELECT url, title, internal_count, external_count, anchor_count, media_count
	FROM pages
	WHERE run_id = ?
	ORDER BY position
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pages: %w", err)
	}
	defer rows.Close()

	var records []PageRecord
	for rows.Next() {
		var r PageRecord
		if err := rows.Scan(
			&r.URL,
			&r.Title,
			&r.InternalLinks,
			&r.ExternalLinks,
			&r.PageLinks,
			&r.MediaSources,
		); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		records = append(records, r)
	}

	return records, rows.Err()
}

// ListRoots returns every root URL with at least one archived run.
func (rdb *RunDB) ListRoots(ctx context.Context) ([]string, error) {
	rows, err := rdb.db.QueryContext(ctx, `
	SELECT DISTINCT root_url FROM runs
	ORDER BY root_url
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list roots: %w", err)
	}
	defer rows.Close()

	var roots []string
	for rows.Next() {
		var root string
		if err := rows.Scan(&root); err != nil {
			return nil, fmt.Errorf("failed to scan root: %w", err)
		}
		roots = append(roots, root)
	}

	return roots, rows.Err()
}

// timestampLayout sorts lexically in chronological order.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// timestampFormats contains the timestamp formats the archive may hold.
// More specific formats come first.
var timestampFormats = []string{
	timestampLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999",
}

// parseTimestamp tries each known format and returns the zero time when
// none matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
