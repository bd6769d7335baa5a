// Package analytics records query traffic for reporting. Logging is
// best-effort: a lookup must never fail or slow down because the
// analytics backend is unhealthy.
package analytics

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const (
	flushInterval = 30 * time.Second
	flushAt       = 50
	maxCSVBytes   = 5 * 1024 * 1024
)

// Entry is one logged lookup.
type Entry struct {
	Time        time.Time
	Platform    string
	UserID      string
	Query       string
	Command     string
	Framework   string
	TopResult   string
	Confidence  int
	ResultCount int
	Locale      string
}

// QueryLogger buffers entries and flushes them to Postgres, falling
// back to a local CSV file when the database is unavailable.
type QueryLogger struct {
	db      *pgxpool.Pool
	csvPath string
	logger  *zap.Logger

	mu      sync.Mutex
	buffer  []Entry
	flushed uint64
	dropped uint64

	done chan struct{}
	wg   sync.WaitGroup
}

// NewQueryLogger creates a logger. dsn may be empty, in which case
// entries go straight to the CSV fallback.
func NewQueryLogger(dsn, csvPath string, logger *zap.Logger) (*QueryLogger, error) {
	ql := &QueryLogger{
		csvPath: csvPath,
		logger:  logger,
		done:    make(chan struct{}),
	}
	if dsn != "" {
		pool, err := pgxpool.New(context.Background(), dsn)
		if err != nil {
			return nil, fmt.Errorf("connect analytics postgres: %w", err)
		}
		if err := pool.Ping(context.Background()); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ping analytics postgres: %w", err)
		}
		ql.db = pool
	}
	ql.wg.Add(1)
	go ql.flushLoop()
	return ql, nil
}

// Log queues an entry. It never blocks on the backend.
func (ql *QueryLogger) Log(entry Entry) {
	if entry.Time.IsZero() {
		entry.Time = time.Now().UTC()
	}
	ql.mu.Lock()
	ql.buffer = append(ql.buffer, entry)
	shouldFlush := len(ql.buffer) >= flushAt
	ql.mu.Unlock()
	if shouldFlush {
		ql.Flush(context.Background())
	}
}

func (ql *QueryLogger) flushLoop() {
	defer ql.wg.Done()
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			ql.Flush(context.Background())
		case <-ql.done:
			ql.Flush(context.Background())
			return
		}
	}
}

// Flush writes all buffered entries out. Entries that cannot reach
// Postgres land in the CSV file; entries that cannot be written at all
// are counted as dropped.
func (ql *QueryLogger) Flush(ctx context.Context) {
	ql.mu.Lock()
	batch := ql.buffer
	ql.buffer = nil
	ql.mu.Unlock()
	if len(batch) == 0 {
		return
	}

	if ql.db != nil {
		if err := ql.flushPostgres(ctx, batch); err == nil {
			ql.mu.Lock()
			ql.flushed += uint64(len(batch))
			ql.mu.Unlock()
			return
		} else {
			ql.logger.Warn("analytics postgres flush failed, using csv fallback", zap.Error(err))
		}
	}

	if err := ql.flushCSV(batch); err != nil {
		ql.logger.Warn("analytics csv flush failed, dropping batch",
			zap.Int("entries", len(batch)), zap.Error(err))
		ql.mu.Lock()
		ql.dropped += uint64(len(batch))
		ql.mu.Unlock()
		return
	}
	ql.mu.Lock()
	ql.flushed += uint64(len(batch))
	ql.mu.Unlock()
}

func (ql *QueryLogger) flushPostgres(ctx context.Context, batch []Entry) error {
	for _, e := range batch {
		_, err := ql.db.Exec(ctx, `
			INSERT INTO query_log
				(logged_at, platform, user_id, query, command, framework,
				 top_result, confidence, result_count, locale)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			e.Time, e.Platform, e.UserID, e.Query, e.Command, e.Framework,
			e.TopResult, e.Confidence, e.ResultCount, e.Locale,
		)
		if err != nil {
			return fmt.Errorf("insert query log: %w", err)
		}
	}
	return nil
}

func (ql *QueryLogger) flushCSV(batch []Entry) error {
	if ql.csvPath == "" {
		return fmt.Errorf("no csv fallback path configured")
	}
	if err := ql.rotateCSV(); err != nil {
		return err
	}
	f, err := os.OpenFile(ql.csvPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open csv fallback: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	for _, e := range batch {
		record := []string{
			e.Time.Format(time.RFC3339),
			e.Platform,
			e.UserID,
			e.Query,
			e.Command,
			e.Framework,
			e.TopResult,
			strconv.Itoa(e.Confidence),
			strconv.Itoa(e.ResultCount),
			e.Locale,
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// rotateCSV moves the fallback file aside once it passes the size cap.
func (ql *QueryLogger) rotateCSV() error {
	info, err := os.Stat(ql.csvPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat csv fallback: %w", err)
	}
	if info.Size() < maxCSVBytes {
		return nil
	}
	rotated := ql.csvPath + "." + time.Now().UTC().Format("20060102T150405")
	if err := os.Rename(ql.csvPath, rotated); err != nil {
		return fmt.Errorf("rotate csv fallback: %w", err)
	}
	ql.logger.Info("rotated analytics csv", zap.String("to", rotated))
	return nil
}

// Stats reports flushed/pending/dropped counts.
func (ql *QueryLogger) Stats() (flushed, pending, dropped uint64) {
	ql.mu.Lock()
	defer ql.mu.Unlock()
	return ql.flushed, uint64(len(ql.buffer)), ql.dropped
}

// Close flushes remaining entries and releases the pool.
func (ql *QueryLogger) Close() {
	close(ql.done)
	ql.wg.Wait()
	if ql.db != nil {
		ql.db.Close()
	}
}
