//go:build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/verdano/clausemap/internal/api"
	"github.com/verdano/clausemap/internal/catalog"
	"github.com/verdano/clausemap/internal/command"
	"github.com/verdano/clausemap/internal/gateway"
	"github.com/verdano/clausemap/internal/lookup"
	"github.com/verdano/clausemap/internal/match"
	msgrouter "github.com/verdano/clausemap/internal/router"
)

// startServer wires the full in-memory stack against the sample catalog.
func startServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := zap.NewNop()

	snap, err := catalog.LoadDir("../../data/sample", "../../data/concepts.json")
	if err != nil {
		t.Fatalf("load sample catalog: %v", err)
	}
	engine := match.NewEngine(snap, match.Params{
		LexicalWeight:  0.7,
		SemanticWeight: 0.3,
		DedupThreshold: 0.85,
		MaxResults:     5,
		FuzzyThreshold: 0.88,
	})
	svc := lookup.NewService(engine, logger)

	registry := command.NewRegistry()
	command.RegisterBuiltins(registry, command.Deps{
		Lookup:    svc,
		Engine:    engine,
		StartedAt: time.Now(),
	})

	gw := gateway.NewGateway(logger)
	router := msgrouter.New(svc, gw, registry, logger)
	gw.SetHandler(router.Handle)

	restAdapter := gateway.NewRESTAdapter(logger)
	gw.Register(restAdapter)

	handler := api.NewHandler(engine, svc, nil, nil, nil, restAdapter, gw, nil, logger)
	ts := httptest.NewServer(handler.Router())
	t.Cleanup(ts.Close)
	return ts
}

func TestSmokeMatchEndpoint(t *testing.T) {
	ts := startServer(t)

	body, _ := json.Marshal(map[string]interface{}{
		"query": "scope 1 greenhouse gas emissions",
	})
	resp, err := http.Post(ts.URL+"/api/match", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /api/match: %v", err)
	}
	defer resp.Body.Close()

	var out lookup.Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Results) == 0 {
		t.Fatal("expected results across frameworks")
	}

	frameworks := make(map[string]bool)
	for _, r := range out.Results {
		if r.Confidence < 1 || r.Confidence > 100 {
			t.Errorf("confidence %d outside 1..100", r.Confidence)
		}
		frameworks[r.Framework] = true
	}
	if len(frameworks) < 2 {
		t.Errorf("expected multi-framework coverage, got %v", frameworks)
	}
}

func TestSmokeRESTGatewayRoundTrip(t *testing.T) {
	ts := startServer(t)

	body, _ := json.Marshal(map[string]string{
		"user_id": "e2e-user",
		"content": "/gri water withdrawal",
	})
	resp, err := http.Post(ts.URL+"/api/gateway/rest/message",
		"application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST gateway message: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got status %d", resp.StatusCode)
	}

	var reply struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if !strings.Contains(reply.Content, "GRI 303-3") {
		t.Errorf("expected GRI water clause, got:\n%s", reply.Content)
	}
}

func TestSmokeFrameworksAndHealth(t *testing.T) {
	ts := startServer(t)

	resp, err := http.Get(ts.URL + "/api/frameworks")
	if err != nil {
		t.Fatalf("GET frameworks: %v", err)
	}
	var frameworks []struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&frameworks); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if len(frameworks) != 5 {
		t.Errorf("got %d frameworks, want 5", len(frameworks))
	}

	resp, err = http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health returned %d", resp.StatusCode)
	}
}
