package analytics

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	tcpg "github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/zap"
)

func TestQueryLoggerCSVFallback(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "queries.csv")

	ql, err := NewQueryLogger("", csvPath, zap.NewNop())
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	defer ql.Close()

	ql.Log(Entry{
		Platform:    "rest",
		UserID:      "u1",
		Query:       "scope 3 emissions",
		Command:     "esrs",
		Framework:   "ESRS",
		TopResult:   "esrs-e1-6",
		Confidence:  92,
		ResultCount: 3,
		Locale:      "en",
	})
	ql.Flush(context.Background())

	f, err := os.Open(csvPath)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0][3] != "scope 3 emissions" {
		t.Errorf("got query %q", rows[0][3])
	}
	if rows[0][7] != "92" {
		t.Errorf("got confidence %q", rows[0][7])
	}

	flushed, pending, dropped := ql.Stats()
	if flushed != 1 || pending != 0 || dropped != 0 {
		t.Errorf("stats = %d/%d/%d, want 1/0/0", flushed, pending, dropped)
	}
}

func TestQueryLoggerCSVRotation(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "queries.csv")

	// Pre-fill past the cap so the next flush rotates first.
	if err := os.WriteFile(csvPath, make([]byte, maxCSVBytes), 0o644); err != nil {
		t.Fatalf("seed csv: %v", err)
	}

	ql, err := NewQueryLogger("", csvPath, zap.NewNop())
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	defer ql.Close()

	ql.Log(Entry{Platform: "rest", Query: "water"})
	ql.Flush(context.Background())

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d files, want rotated + fresh", len(entries))
	}
	info, err := os.Stat(csvPath)
	if err != nil {
		t.Fatalf("stat fresh csv: %v", err)
	}
	if info.Size() >= maxCSVBytes {
		t.Errorf("fresh csv is %d bytes, rotation did not happen", info.Size())
	}
}

func TestQueryLoggerPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	container, err := tcpg.Run(ctx, "postgres:16-alpine",
		tcpg.WithDatabase("clausemap_test"),
		tcpg.WithUsername("test"),
		tcpg.WithPassword("test"),
		tcpg.BasicWaitStrategies(),
	)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	defer container.Terminate(ctx)

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	schema, err := os.ReadFile("../../migrations/001_query_log.up.sql")
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	if _, err := pool.Exec(ctx, string(schema)); err != nil {
		t.Fatalf("apply migration: %v", err)
	}

	ql, err := NewQueryLogger(dsn, "", zap.NewNop())
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	defer ql.Close()

	ql.Log(Entry{
		Time:        time.Now().UTC(),
		Platform:    "discord",
		UserID:      "u2",
		Query:       "energy consumption",
		Framework:   "BRSR",
		TopResult:   "brsr-p6-1",
		Confidence:  78,
		ResultCount: 1,
	})
	ql.Flush(ctx)

	var count int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM query_log`).Scan(&count); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 1 {
		t.Errorf("got %d rows, want 1", count)
	}
}

func TestTrackerSendsEvent(t *testing.T) {
	received := make(chan trackerPayload, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("measurement_id") != "G-TEST" {
			t.Errorf("missing measurement id, query = %s", r.URL.RawQuery)
		}
		var p trackerPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		received <- p
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	tr := NewTracker(TrackerConfig{
		Endpoint:    srv.URL,
		Measurement: "G-TEST",
		Secret:      "s3cret",
	}, zap.NewNop())

	tr.Track(context.Background(), "user-42", "clause_lookup", map[string]interface{}{
		"framework": "GRI",
	})

	select {
	case p := <-received:
		if len(p.Events) != 1 || p.Events[0].Name != "clause_lookup" {
			t.Errorf("unexpected payload: %+v", p)
		}
		if p.ClientID == "user-42" {
			t.Error("raw user id must not be sent as client id")
		}
	case <-time.After(time.Second):
		t.Fatal("collector never received the event")
	}
}

func TestTrackerSwallowsFailure(t *testing.T) {
	tr := NewTracker(TrackerConfig{Endpoint: "http://127.0.0.1:1"}, zap.NewNop())
	// Must not panic or return anything.
	tr.Track(context.Background(), "u", "event", nil)
}
