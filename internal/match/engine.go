package match

import (
	"strings"
	"sync/atomic"

	"github.com/verdano/clausemap/internal/catalog"
	"github.com/verdano/clausemap/internal/textnorm"
)

// Engine is the single public entry point of the matcher. It composes
// normalizer, retriever, scorer, and ranker over an immutable snapshot
// state, so concurrent Match calls share nothing mutable.
type Engine struct {
	params Params
	state  atomic.Pointer[engineState]
}

// engineState pairs a catalog snapshot with the index built from it.
// Published as one pointer so no request ever sees a half-rebuilt index.
type engineState struct {
	snap  *catalog.Snapshot
	index *invertedIndex
}

// NewEngine builds the inverted index for the snapshot and returns a
// ready engine. Params are assumed validated by the config layer.
func NewEngine(snap *catalog.Snapshot, params Params) *Engine {
	e := &Engine{params: params}
	e.state.Store(&engineState{snap: snap, index: buildIndex(snap)})
	return e
}

// Reload atomically swaps in a fully built index over the new snapshot.
// In-flight matches keep using the state they started with.
func (e *Engine) Reload(snap *catalog.Snapshot) {
	e.state.Store(&engineState{snap: snap, index: buildIndex(snap)})
}

// Snapshot returns the catalog snapshot the engine currently serves.
func (e *Engine) Snapshot() *catalog.Snapshot {
	return e.state.Load().snap
}

// Params returns the matching parameters the engine was built with.
func (e *Engine) Params() Params {
	return e.params
}

// Match resolves a raw query to a ranked, deduplicated result list.
// filters, when non-empty, restricts candidates to those frameworks
// before scoring; an unknown tag simply contributes nothing. Empty or
// unmatchable queries yield an empty MatchResult, never an error.
func (e *Engine) Match(rawQuery string, filters []string) MatchResult {
	st := e.state.Load()

	tokens := textnorm.Tokens(rawQuery)
	if len(tokens) == 0 {
		return MatchResult{Results: []Result{}}
	}

	expanded := expandConcepts(tokens, st.snap)

	var allowed map[string]bool
	if len(filters) > 0 {
		allowed = make(map[string]bool, len(filters))
		for _, f := range filters {
			allowed[f] = true
		}
	}

	sc := &scorer{params: e.params}
	var candidates []Candidate
	for id := range st.index.retrieve(tokens) {
		clause, ok := st.snap.ByID(id)
		if !ok {
			continue
		}
		if allowed != nil && !allowed[clause.Framework] {
			continue
		}
		candidates = append(candidates, sc.score(tokens, expanded, clause))
	}

	return rank(candidates, st.snap, e.params)
}

// expandConcepts adds synonym terms for every concept key contained in
// the normalized query, widening semantic scoring the way the catalog's
// concept table dictates.
func expandConcepts(tokens []string, snap *catalog.Snapshot) map[string]bool {
	expanded := make(map[string]bool)
	for _, term := range snap.ExpandQuery(strings.Join(tokens, " ")) {
		expanded[term] = true
	}
	return expanded
}
