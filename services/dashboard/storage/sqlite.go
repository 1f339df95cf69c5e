package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/chart"
	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/common"
	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/timespan"
	_ "github.com/mattn/go-sqlite3"
	logger "github.com/multiversx/mx-chain-logger-go"
)

var log = logger.GetOrCreate("storage")

// ErrSnapshotNotFound signals that no snapshot is stored for the chart and span
var ErrSnapshotNotFound = errors.New("snapshot not found")

const (
	defaultHistoryDepth       = 10
	minCleanupIntervalSeconds = 60
)

// sqliteStorage is the sqlite implementation for chart snapshot storage
type sqliteStorage struct {
	db               *sql.DB
	retentionSeconds int
	historyDepth     int
	cancelFunc       context.CancelFunc
	wg               sync.WaitGroup
}

// NewSQLiteStorage creates the database, schema, and starts the retention cleaner. Only the latest
// historyDepth snapshots are kept for each (chart, span) pair.
func NewSQLiteStorage(dbPath string, retentionSeconds int, historyDepth int) (*sqliteStorage, error) {
	err := prepareDirectories(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create initial empty DB file: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every connection would see its own empty in-memory database
		db.SetMaxOpenConns(1)
	}

	err = createSchema(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	if historyDepth <= 0 {
		historyDepth = defaultHistoryDepth
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &sqliteStorage{
		db:               db,
		retentionSeconds: retentionSeconds,
		historyDepth:     historyDepth,
		cancelFunc:       cancel,
	}

	s.startRetentionCleaner(ctx)

	return s, nil
}

func prepareDirectories(dbPath string) error {
	return os.MkdirAll(filepath.Dir(dbPath), os.ModePerm)
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS chart_snapshots (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		chart        TEXT    NOT NULL,
		span         TEXT    NOT NULL,
		generated_at INTEGER NOT NULL,
		empty        INTEGER NOT NULL DEFAULT 0,
		payload      TEXT    NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_chart_snapshots_chart_span ON chart_snapshots(chart, span, generated_at);
	CREATE INDEX IF NOT EXISTS idx_chart_snapshots_generated_at ON chart_snapshots(generated_at);
	`

	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// SaveSnapshot stores the bundle and prunes the history of its (chart, span) pair
func (s *sqliteStorage) SaveSnapshot(ctx context.Context, bundle chart.Bundle) error {
	payload, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO chart_snapshots (chart, span, generated_at, empty, payload)
		VALUES (?, ?, ?, ?, ?)
	`, string(bundle.Chart), string(bundle.Span), bundle.GeneratedAt.UnixMilli(), bundle.Empty, string(payload))
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM chart_snapshots
		WHERE chart = ? AND span = ?
		  AND id NOT IN (
			  SELECT id FROM chart_snapshots
			  WHERE chart = ? AND span = ?
			  ORDER BY generated_at DESC, id DESC
			  LIMIT ?
		  )
	`, string(bundle.Chart), string(bundle.Span), string(bundle.Chart), string(bundle.Span), s.historyDepth)
	if err != nil {
		return fmt.Errorf("failed to trim snapshot history: %w", err)
	}

	return tx.Commit()
}

// GetLatestSnapshot returns the most recent snapshot of the chart for the span
func (s *sqliteStorage) GetLatestSnapshot(ctx context.Context, kind common.ChartKind, span timespan.Span) (*chart.Bundle, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `
		SELECT payload FROM chart_snapshots
		WHERE chart = ? AND span = ?
		ORDER BY generated_at DESC, id DESC
		LIMIT 1
	`, string(kind), string(span)).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, err
	}

	return decodeSnapshot(payload)
}

// GetSnapshotHistory returns all retained snapshots of the chart for the span, oldest first
func (s *sqliteStorage) GetSnapshotHistory(ctx context.Context, kind common.ChartKind, span timespan.Span) ([]chart.Bundle, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM chart_snapshots
		WHERE chart = ? AND span = ?
		ORDER BY generated_at, id
	`, string(kind), string(span))
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	history := make([]chart.Bundle, 0)
	for rows.Next() {
		var payload string
		err = rows.Scan(&payload)
		if err != nil {
			return nil, err
		}

		bundle, errDecode := decodeSnapshot(payload)
		if errDecode != nil {
			return nil, errDecode
		}
		history = append(history, *bundle)
	}

	return history, rows.Err()
}

// DeleteSnapshots removes the snapshots of the chart for the span. An empty span removes all spans.
func (s *sqliteStorage) DeleteSnapshots(ctx context.Context, kind common.ChartKind, span timespan.Span) error {
	if len(span) == 0 {
		_, err := s.db.ExecContext(ctx, "DELETE FROM chart_snapshots WHERE chart = ?", string(kind))
		return err
	}

	_, err := s.db.ExecContext(ctx, "DELETE FROM chart_snapshots WHERE chart = ? AND span = ?", string(kind), string(span))
	return err
}

func decodeSnapshot(payload string) (*chart.Bundle, error) {
	bundle := &chart.Bundle{}
	err := json.Unmarshal([]byte(payload), bundle)
	if err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}

	return bundle, nil
}

// cleanRetainedSnapshots executes the retention cleanup query synchronously
func (s *sqliteStorage) cleanRetainedSnapshots(ctx context.Context) error {
	cutoff := time.Now().Add(-time.Duration(s.retentionSeconds) * time.Second).UnixMilli()
	res, err := s.db.ExecContext(ctx, "DELETE FROM chart_snapshots WHERE generated_at < ?", cutoff)
	if err != nil {
		return err
	}

	numDeleted, _ := res.RowsAffected()
	if numDeleted > 0 {
		log.Debug("removed expired snapshots", "num", numDeleted)
	}

	return nil
}

func (s *sqliteStorage) startRetentionCleaner(ctx context.Context) {
	if s.retentionSeconds <= 0 {
		return
	}

	s.wg.Add(1)

	intervalSec := s.retentionSeconds / 10
	if intervalSec < minCleanupIntervalSeconds {
		intervalSec = minCleanupIntervalSeconds
	}

	ticker := time.NewTicker(time.Duration(intervalSec) * time.Second)

	go func() {
		defer s.wg.Done()
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				log.Debug("running retention cleanup")

				err := s.cleanRetainedSnapshots(ctx)
				if err != nil {
					log.Warn("failed to cleanup retained snapshots", "error", err)
				}
			}
		}
	}()
}

// Close closes the database and stops background routines
func (s *sqliteStorage) Close() error {
	s.cancelFunc()
	s.wg.Wait()
	return s.db.Close()
}

// IsInterfaceNil returns true if the value under the interface is nil
func (s *sqliteStorage) IsInterfaceNil() bool {
	return s == nil
}
