// Package match implements the cross-framework clause matching engine:
// normalized queries are resolved against an inverted index over the
// clause catalog, scored per candidate, then ranked and deduplicated into
// a bounded result list.
package match

// Candidate is the intermediate per-clause match artifact. Sub-scores are
// each in [0,1]; Confidence is the final blended score in [0,100].
type Candidate struct {
	ClauseID   string  `json:"clause_id"`
	Lexical    float64 `json:"lexical_score"`
	Semantic   float64 `json:"semantic_score"`
	Boost      float64 `json:"framework_boost"`
	Confidence int     `json:"confidence"`
}

// Result is one ranked hit handed back to the caller.
type Result struct {
	ClauseID   string `json:"clause_id"`
	Framework  string `json:"framework"`
	Reference  string `json:"reference"`
	Text       string `json:"text"`
	Confidence int    `json:"confidence"`
}

// MatchResult is the engine's output: results strictly descending by
// confidence, ties broken by framework then reference, length capped by
// the configured maximum.
type MatchResult struct {
	Results []Result `json:"results"`
}

// Empty reports whether the match produced no results. An empty result is
// the valid "no match" outcome, never an error.
func (m MatchResult) Empty() bool { return len(m.Results) == 0 }

// Params is the scoring and ranking configuration, validated upstream at
// startup.
type Params struct {
	LexicalWeight   float64
	SemanticWeight  float64
	FrameworkBoosts map[string]float64
	DedupThreshold  float64
	MaxResults      int
	FuzzyThreshold  float64
}
