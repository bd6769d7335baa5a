package match

import (
	"sort"

	"github.com/verdano/clausemap/internal/catalog"
	"github.com/verdano/clausemap/internal/textnorm"
)

// rank sorts candidates, collapses near-duplicate clauses across
// frameworks, and truncates to the configured maximum. Truncation happens
// strictly after deduplication so dedup is never shortchanged.
func rank(candidates []Candidate, snap *catalog.Snapshot, params Params) MatchResult {
	kept := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Confidence > 0 {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		return MatchResult{Results: []Result{}}
	}

	// Deterministic order: confidence desc, then framework asc, then
	// reference asc. Never insertion order or map iteration.
	sort.Slice(kept, func(i, j int) bool {
		a, _ := snap.ByID(kept[i].ClauseID)
		b, _ := snap.ByID(kept[j].ClauseID)
		if kept[i].Confidence != kept[j].Confidence {
			return kept[i].Confidence > kept[j].Confidence
		}
		if a.Framework != b.Framework {
			return a.Framework < b.Framework
		}
		return a.Reference < b.Reference
	})

	// Greedy dedup in ranked order keeps the highest-confidence member of
	// each near-duplicate group.
	type survivor struct {
		result Result
		tokens map[string]bool
	}
	var survivors []survivor
	for _, c := range kept {
		clause, ok := snap.ByID(c.ClauseID)
		if !ok {
			continue
		}
		tokens := textnorm.TokenSet(clause.Text)

		dup := false
		for _, s := range survivors {
			if jaccard(tokens, s.tokens) > params.DedupThreshold {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		survivors = append(survivors, survivor{
			result: Result{
				ClauseID:   clause.ID,
				Framework:  clause.Framework,
				Reference:  clause.Reference,
				Text:       clause.Text,
				Confidence: c.Confidence,
			},
			tokens: tokens,
		})
	}

	if len(survivors) > params.MaxResults {
		survivors = survivors[:params.MaxResults]
	}

	results := make([]Result, len(survivors))
	for i, s := range survivors {
		results[i] = s.result
	}
	return MatchResult{Results: results}
}

// jaccard is the token-set similarity used for near-duplicate detection.
func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	var intersection int
	for tok := range a {
		if b[tok] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
