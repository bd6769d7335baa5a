package cache

import (
	"context"
	"testing"
	"time"

	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/verdano/clausemap/internal/match"
	"go.uber.org/zap"
)

func TestKey(t *testing.T) {
	if Key("scope emiss", nil) != keyPrefix+"scope emiss" {
		t.Error("unfiltered key mismatch")
	}
	// Filter order must not change the key.
	a := Key("scope emiss", []string{"GRI", "ESRS"})
	b := Key("scope emiss", []string{"ESRS", "GRI"})
	if a != b {
		t.Errorf("filter order changed key: %q vs %q", a, b)
	}
}

func TestCacheRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Skipf("redis container unavailable: %v", err)
	}
	t.Cleanup(func() { container.Terminate(ctx) })

	url, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatal(err)
	}

	c, err := New(url, time.Minute, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })

	key := Key("greenhous gas emiss", []string{"GRI"})

	if _, ok := c.Get(ctx, key); ok {
		t.Fatal("unexpected hit on empty cache")
	}

	want := match.MatchResult{Results: []match.Result{
		{ClauseID: "gri-305-1", Framework: "GRI", Reference: "305-1", Text: "Direct emissions", Confidence: 93},
	}}
	c.Set(ctx, key, want)

	got, ok := c.Get(ctx, key)
	if !ok {
		t.Fatal("expected hit after set")
	}
	if len(got.Results) != 1 || got.Results[0].ClauseID != "gri-305-1" || got.Results[0].Confidence != 93 {
		t.Errorf("round trip mismatch: %+v", got)
	}

	hits, misses := c.Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("got %d hits / %d misses, want 1/1", hits, misses)
	}
}
