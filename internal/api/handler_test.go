package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/verdano/clausemap/internal/catalog"
	"github.com/verdano/clausemap/internal/gateway"
	"github.com/verdano/clausemap/internal/lookup"
	"github.com/verdano/clausemap/internal/match"
)

// newTestHandler creates a Handler wired with in-memory deps only.
func newTestHandler(t *testing.T) (*Handler, http.Handler) {
	t.Helper()
	logger := zap.NewNop()

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
	engine := match.NewEngine(snap, match.Params{
		LexicalWeight:  0.7,
		SemanticWeight: 0.3,
		DedupThreshold: 0.85,
		MaxResults:     5,
		FuzzyThreshold: 0.88,
	})
	svc := lookup.NewService(engine, logger)

	gw := gateway.NewGateway(logger)
	restGW := gateway.NewRESTAdapter(logger)
	gw.Register(restGW)

	h := NewHandler(engine, svc, nil, nil, nil, restGW, gw, nil, logger)
	return h, h.Router()
}

func postJSON(t *testing.T, ts *httptest.Server, path string, body interface{}) *http.Response {
	t.Helper()
	b, _ := json.Marshal(body)
	resp, err := http.Post(ts.URL+path, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func getPath(t *testing.T, ts *httptest.Server, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	_, router := newTestHandler(t)
	ts := httptest.NewServer(router)
	defer ts.Close()

	resp := getPath(t, ts, "/api/health")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got status %d", resp.StatusCode)
	}
	var body map[string]interface{}
	decodeJSON(t, resp, &body)
	if body["status"] != "ok" {
		t.Errorf("got status %v", body["status"])
	}
}

func TestMetricsPlainText(t *testing.T) {
	_, router := newTestHandler(t)
	ts := httptest.NewServer(router)
	defer ts.Close()

	resp := getPath(t, ts, "/api/metrics")
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("got content type %q", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "clausemap_clauses 2") {
		t.Errorf("unexpected metrics body:\n%s", body)
	}
}

func TestMatchEndpoint(t *testing.T) {
	_, router := newTestHandler(t)
	ts := httptest.NewServer(router)
	defer ts.Close()

	resp := postJSON(t, ts, "/api/match", matchRequest{Query: "greenhouse gas emissions"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got status %d", resp.StatusCode)
	}
	var body lookup.Response
	decodeJSON(t, resp, &body)
	if len(body.Results) == 0 {
		t.Fatal("expected results")
	}
	if body.Results[0].ClauseID != "esrs-e1-6" {
		t.Errorf("got top result %s", body.Results[0].ClauseID)
	}
}

func TestMatchEndpointUnknownFilterYieldsEmpty(t *testing.T) {
	_, router := newTestHandler(t)
	ts := httptest.NewServer(router)
	defer ts.Close()

	// An unrecognized framework tag narrows the candidate set to nothing;
	// it is not a client error.
	resp := postJSON(t, ts, "/api/match", matchRequest{
		Query:      "emissions",
		Frameworks: []string{"TCFD"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got status %d, want 200", resp.StatusCode)
	}
	var body lookup.Response
	decodeJSON(t, resp, &body)
	if len(body.Results) != 0 {
		t.Errorf("expected no results, got %d", len(body.Results))
	}
}

func TestListFrameworks(t *testing.T) {
	_, router := newTestHandler(t)
	ts := httptest.NewServer(router)
	defer ts.Close()

	resp := getPath(t, ts, "/api/frameworks")
	var body []struct {
		Name    string `json:"name"`
		Clauses int    `json:"clauses"`
	}
	decodeJSON(t, resp, &body)
	if len(body) != 2 {
		t.Fatalf("got %d frameworks, want 2", len(body))
	}
	if body[0].Name != "ESRS" || body[0].Clauses != 1 {
		t.Errorf("unexpected first framework: %+v", body[0])
	}
}

func TestGetClause(t *testing.T) {
	_, router := newTestHandler(t)
	ts := httptest.NewServer(router)
	defer ts.Close()

	resp := getPath(t, ts, "/api/clauses/gri-303-3")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got status %d", resp.StatusCode)
	}
	var clause catalog.ClauseRecord
	decodeJSON(t, resp, &clause)
	if clause.Reference != "303-3" {
		t.Errorf("got reference %q", clause.Reference)
	}

	resp = getPath(t, ts, "/api/clauses/nope")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("got status %d, want 404", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestCrosswalkUnavailable(t *testing.T) {
	_, router := newTestHandler(t)
	ts := httptest.NewServer(router)
	defer ts.Close()

	resp := getPath(t, ts, "/api/crosswalk/esrs-e1-6")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("got status %d, want 503", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestReloadUnsupported(t *testing.T) {
	_, router := newTestHandler(t)
	ts := httptest.NewServer(router)
	defer ts.Close()

	resp := postJSON(t, ts, "/api/reload", nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("got status %d, want 503", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestGatewayStatus(t *testing.T) {
	_, router := newTestHandler(t)
	ts := httptest.NewServer(router)
	defer ts.Close()

	resp := getPath(t, ts, "/api/gateway/status")
	var statuses []gateway.AdapterStatus
	decodeJSON(t, resp, &statuses)
	if len(statuses) != 1 || statuses[0].Platform != "rest" {
		t.Errorf("unexpected statuses: %+v", statuses)
	}
}
