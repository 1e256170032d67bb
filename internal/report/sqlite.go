package report

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/harrison/codecbench/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteStore keeps the results of every reported run so that runs can be
// compared with each other.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// RunRecord is one row of the runs table.
type RunRecord struct {
	ID        string
	StartedAt time.Time
	Groups    int
	Results   int
}

// GroupKey identifies the results of one batch at one quality.
type GroupKey struct {
	Batch   string
	Quality int
}

// NewSQLiteStore opens or creates the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Every connection of an in-memory database sees its own database.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout=5000", // must be first
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}
	if err := execWithRetry(db, schemaSQL, 5, 10*time.Millisecond); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &SQLiteStore{db: db, dbPath: dbPath}, nil
}

// execWithRetry executes a statement with exponential backoff on lock errors.
func execWithRetry(db *sql.DB, stmt string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(stmt)
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		lastErr = err
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}
	return lastErr
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Report implements executor.Reporter. All groups of one call are stored
// under a new run ID in a single transaction.
func (s *SQLiteStore) Report(groups [][]models.TaskOutput) error {
	_, err := s.Record(context.Background(), groups)
	return err
}

// Record stores groups and returns the ID of the new run.
func (s *SQLiteStore) Record(ctx context.Context, groups [][]models.TaskOutput) (string, error) {
	runID := uuid.New().String()
	total := 0
	for _, g := range groups {
		total += len(g)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, group_count, result_count) VALUES (?, ?, ?, ?)`,
		runID, time.Now().UTC(), len(groups), total); err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO results
		(run_id, batch, codec, subsampling, effort, quality, image_path, encoded_path,
		 width, height, frames, bit_depth, encoded_size,
		 encoding_seconds, decoding_seconds, color_conversion_seconds,
		 psnr, ssim, dssim, butteraugli, ssimulacra, ssimulacra2, p3norm)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, group := range groups {
		for _, o := range group {
			cs := o.Input.Settings
			d := o.Distortions
			if _, err := stmt.ExecContext(ctx,
				runID, BatchName(cs), cs.Codec.String(), cs.Subsampling.String(), cs.Effort, cs.Quality,
				o.Input.ImagePath, o.Input.EncodedPath,
				o.ImageWidth, o.ImageHeight, o.NumFrames, bitDepthValue(o.BitDepth), int64(o.EncodedSize),
				o.EncodingDuration.Seconds(), o.DecodingDuration.Seconds(), o.DecodingColorConversionDuration.Seconds(),
				d[0], d[1], d[2], d[3], d[4], d[5], d[6],
			); err != nil {
				return "", fmt.Errorf("insert result for %s: %w", o.Input.ImagePath, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit run: %w", err)
	}
	return runID, nil
}

// Runs returns every stored run, most recent first.
func (s *SQLiteStore) Runs(ctx context.Context) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, started_at, group_count, result_count FROM runs ORDER BY started_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.Groups, &r.Results); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Groups returns the batch and quality pairs stored for run runID, ordered by
// batch then quality.
func (s *SQLiteStore) Groups(ctx context.Context, runID string) ([]GroupKey, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT batch, quality FROM results WHERE run_id = ? ORDER BY batch, quality`, runID)
	if err != nil {
		return nil, fmt.Errorf("query groups: %w", err)
	}
	defer rows.Close()

	var keys []GroupKey
	for rows.Next() {
		var k GroupKey
		if err := rows.Scan(&k.Batch, &k.Quality); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// MeanEncodedSize returns the mean encoded size of the results of batch at
// quality within run runID.
func (s *SQLiteStore) MeanEncodedSize(ctx context.Context, runID, batch string, quality int) (float64, error) {
	var mean sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT AVG(encoded_size) FROM results WHERE run_id = ? AND batch = ? AND quality = ?`,
		runID, batch, quality).Scan(&mean)
	if err != nil {
		return 0, fmt.Errorf("query mean encoded size: %w", err)
	}
	if !mean.Valid {
		return 0, fmt.Errorf("no result for %s q%d in run %s", batch, quality, runID)
	}
	return mean.Float64, nil
}
