package command

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/verdano/clausemap/internal/catalog"
	"github.com/verdano/clausemap/internal/lookup"
	"github.com/verdano/clausemap/internal/match"
)

func testDeps(t *testing.T) Deps {
	t.Helper()
	records := []catalog.ClauseRecord{
		{
			ID:        "esrs-e1-6",
			Framework: "ESRS",
			Reference: "E1-6",
			Text:      "Gross scope 1 greenhouse gas emissions",
			Keywords:  []string{"greenhouse", "gas", "emission", "scope"},
			TopicTags: []string{"emissions"},
		},
		{
			ID:        "gri-305-1",
			Framework: "GRI",
			Reference: "305-1",
			Text:      "Direct greenhouse gas emissions",
			Keywords:  []string{"greenhouse", "gas", "emission"},
			TopicTags: []string{"emissions"},
		},
	}
	snap, err := catalog.NewSnapshot(records, nil)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	engine := match.NewEngine(snap, match.Params{
		LexicalWeight:  0.7,
		SemanticWeight: 0.3,
		DedupThreshold: 0.85,
		MaxResults:     5,
		FuzzyThreshold: 0.88,
	})
	return Deps{
		Lookup:    lookup.NewService(engine, zap.NewNop()),
		Engine:    engine,
		StartedAt: time.Now(),
	}
}

func TestRegistryDispatch(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&Command{
		Name:        "ping",
		Description: "Ping test",
		Usage:       "/ping",
		Handler: func(ctx context.Context, args string, cc *CommandContext) (*CommandResult, error) {
			return &CommandResult{Content: "pong: " + args}, nil
		},
	})

	ctx := context.Background()
	cc := &CommandContext{Platform: "test"}

	result, err := reg.Dispatch(ctx, "/ping hello", cc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Content != "pong: hello" {
		t.Errorf("got %q, want %q", result.Content, "pong: hello")
	}

	result, err = reg.Dispatch(ctx, "/unknown", cc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Content == "" {
		t.Error("expected error message for unknown command")
	}
}

func TestRegistryList(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&Command{Name: "beta"})
	reg.Register(&Command{Name: "alpha"})

	list := reg.List()
	if len(list) != 2 {
		t.Fatalf("got %d commands, want 2", len(list))
	}
	if list[0].Name != "alpha" {
		t.Errorf("got %q first, want %q", list[0].Name, "alpha")
	}
}

func TestConfidenceLabel(t *testing.T) {
	cases := []struct {
		confidence int
		want       string
	}{
		{95, "Excellent match"},
		{91, "Excellent match"},
		{90, "High confidence"},
		{76, "High confidence"},
		{75, "Good match"},
		{61, "Good match"},
		{60, "Relevant"},
		{1, "Relevant"},
	}
	for _, tc := range cases {
		if got := ConfidenceLabel(tc.confidence); got != tc.want {
			t.Errorf("ConfidenceLabel(%d) = %q, want %q", tc.confidence, got, tc.want)
		}
	}
}

func TestFrameworkCommands(t *testing.T) {
	reg := NewRegistry()
	RegisterBuiltins(reg, testDeps(t))

	ctx := context.Background()
	cc := &CommandContext{Platform: "test", UserID: "u1"}

	result, err := reg.Dispatch(ctx, "/gri greenhouse gas emissions", cc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result.Content, "GRI 305-1") {
		t.Errorf("expected GRI clause in output, got:\n%s", result.Content)
	}
	if strings.Contains(result.Content, "ESRS") {
		t.Errorf("framework command leaked other frameworks:\n%s", result.Content)
	}

	// Bare framework command prints usage.
	result, err = reg.Dispatch(ctx, "/esrs", cc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result.Content, "Usage:") {
		t.Errorf("expected usage text, got %q", result.Content)
	}
}

func TestMapCommand(t *testing.T) {
	reg := NewRegistry()
	RegisterBuiltins(reg, testDeps(t))

	result, err := reg.Dispatch(context.Background(), "/map greenhouse gas emissions",
		&CommandContext{Platform: "test", UserID: "u1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result.Content, "Coverage:") {
		t.Errorf("expected coverage summary, got:\n%s", result.Content)
	}
	if !strings.Contains(result.Content, "GRI") || !strings.Contains(result.Content, "ESRS") {
		t.Errorf("expected both frameworks, got:\n%s", result.Content)
	}
}

func TestStatsAndHealthCommands(t *testing.T) {
	reg := NewRegistry()
	RegisterBuiltins(reg, testDeps(t))
	cc := &CommandContext{Platform: "test"}

	result, err := reg.Dispatch(context.Background(), "/stats", cc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result.Content, "Clauses: 2") {
		t.Errorf("expected clause count, got:\n%s", result.Content)
	}

	result, err = reg.Dispatch(context.Background(), "/health", cc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(result.Content, "OK:") {
		t.Errorf("expected OK health, got %q", result.Content)
	}
}
