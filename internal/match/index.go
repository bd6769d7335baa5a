package match

import (
	"github.com/verdano/clausemap/internal/catalog"
)

// invertedIndex maps each normalized keyword token to the ids of clauses
// whose keywords contain it. Built once per snapshot and immutable after,
// so lookups need no locking and stay bounded regardless of catalog size.
type invertedIndex struct {
	postings map[string][]string
}

// buildIndex constructs the inverted index from a catalog snapshot.
// Clause keywords are already normalized at load time.
func buildIndex(snap *catalog.Snapshot) *invertedIndex {
	ix := &invertedIndex{postings: make(map[string][]string)}
	for _, r := range snap.Records() {
		for _, kw := range r.Keywords {
			ix.postings[kw] = append(ix.postings[kw], r.ID)
		}
	}
	return ix
}

// retrieve unions the posting sets of all query tokens (OR semantics, for
// recall; the scorer handles precision). An empty union is the valid
// no-match outcome.
func (ix *invertedIndex) retrieve(tokens []string) map[string]bool {
	ids := make(map[string]bool)
	for _, tok := range tokens {
		for _, id := range ix.postings[tok] {
			ids[id] = true
		}
	}
	return ids
}
