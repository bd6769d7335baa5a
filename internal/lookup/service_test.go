package lookup

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/verdano/clausemap/internal/catalog"
	"github.com/verdano/clausemap/internal/match"
)

func testEngine(t *testing.T) *match.Engine {
	t.Helper()
	records := []catalog.ClauseRecord{
		{
			ID:        "gri-305-1",
			Framework: "GRI",
			Reference: "305-1",
			Text:      "Direct greenhouse gas emissions",
			Keywords:  []string{"greenhouse", "gas", "emission"},
			TopicTags: []string{"emissions"},
		},
		{
			ID:        "gri-303-3",
			Framework: "GRI",
			Reference: "303-3",
			Text:      "Water withdrawal by source",
			Keywords:  []string{"water", "withdrawal"},
			TopicTags: []string{"water"},
		},
	}
	snap, err := catalog.NewSnapshot(records, nil)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	return match.NewEngine(snap, match.Params{
		LexicalWeight:  0.7,
		SemanticWeight: 0.3,
		DedupThreshold: 0.85,
		MaxResults:     5,
		FuzzyThreshold: 0.88,
	})
}

func TestLookupMatches(t *testing.T) {
	svc := NewService(testEngine(t), zap.NewNop())

	resp := svc.Lookup(context.Background(), "rest", "u1", "greenhouse gas emissions", nil)
	if len(resp.Results) == 0 {
		t.Fatal("expected results")
	}
	if resp.Results[0].ClauseID != "gri-305-1" {
		t.Errorf("got top result %s, want gri-305-1", resp.Results[0].ClauseID)
	}
	if resp.FromCache || resp.Fallback {
		t.Errorf("unexpected flags: %+v", resp)
	}
}

func TestLookupEmptyQuery(t *testing.T) {
	svc := NewService(testEngine(t), zap.NewNop())

	resp := svc.Lookup(context.Background(), "rest", "u1", "   ", nil)
	if len(resp.Results) != 0 {
		t.Errorf("expected no results, got %d", len(resp.Results))
	}
}

func TestLookupFilterContainment(t *testing.T) {
	svc := NewService(testEngine(t), zap.NewNop())

	resp := svc.Lookup(context.Background(), "rest", "u1", "emissions", []string{"SASB"})
	if len(resp.Results) != 0 {
		t.Errorf("unknown framework filter must yield empty, got %d", len(resp.Results))
	}
}

type failingTranslator struct{}

func (failingTranslator) Translate(context.Context, string) (string, string, error) {
	return "", "", context.DeadlineExceeded
}

func TestLookupSurvivesTranslatorFailure(t *testing.T) {
	svc := NewService(testEngine(t), zap.NewNop(), WithTranslator(failingTranslator{}))

	resp := svc.Lookup(context.Background(), "rest", "u1", "water withdrawal", nil)
	if len(resp.Results) == 0 {
		t.Fatal("expected results despite translator failure")
	}
	if resp.Results[0].ClauseID != "gri-303-3" {
		t.Errorf("got %s, want gri-303-3", resp.Results[0].ClauseID)
	}
}
