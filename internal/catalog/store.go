package catalog

import (
	"sort"
	"strings"
	"sync/atomic"
)

// Snapshot is an immutable view of the clause catalog. Once built it is
// never mutated, so any number of requests may read it concurrently
// without locking.
type Snapshot struct {
	records     []ClauseRecord
	byID        map[string]*ClauseRecord
	byFramework map[string][]*ClauseRecord
	frameworks  []string
	concepts    map[string][]string
}

// Records returns all clause records in load order.
func (s *Snapshot) Records() []ClauseRecord { return s.records }

// Len returns the number of clause records.
func (s *Snapshot) Len() int { return len(s.records) }

// ByID looks up a clause by its store-wide unique id.
func (s *Snapshot) ByID(id string) (*ClauseRecord, bool) {
	r, ok := s.byID[id]
	return r, ok
}

// ByFramework returns all clauses of one framework.
func (s *Snapshot) ByFramework(framework string) []*ClauseRecord {
	return s.byFramework[framework]
}

// Frameworks returns the sorted framework tags present in the catalog.
// The set is data-driven: a new standard needs only new catalog rows.
func (s *Snapshot) Frameworks() []string { return s.frameworks }

// HasFramework reports whether the tag names a loaded framework.
func (s *Snapshot) HasFramework(framework string) bool {
	_, ok := s.byFramework[framework]
	return ok
}

// ExpandConcepts returns the synonym terms for a normalized concept key,
// or nil when the concept table has no entry.
func (s *Snapshot) ExpandConcepts(key string) []string {
	return s.concepts[key]
}

// ExpandQuery returns the synonym terms of every concept key contained in
// the normalized query string. Keys may span multiple tokens ("human
// right"), so matching is by token-bounded substring.
func (s *Snapshot) ExpandQuery(normalizedQuery string) []string {
	if len(s.concepts) == 0 || normalizedQuery == "" {
		return nil
	}
	padded := " " + normalizedQuery + " "
	seen := make(map[string]bool)
	var terms []string
	for key, synonyms := range s.concepts {
		if !strings.Contains(padded, " "+key+" ") {
			continue
		}
		for _, syn := range synonyms {
			if !seen[syn] {
				seen[syn] = true
				terms = append(terms, syn)
			}
		}
	}
	sort.Strings(terms)
	return terms
}

// Store publishes the current catalog snapshot. Reload is an atomic
// pointer swap: in-flight requests keep the snapshot they started with and
// never observe a partially rebuilt catalog.
type Store struct {
	current atomic.Pointer[Snapshot]
}

// NewStore creates a store publishing the given snapshot.
func NewStore(snap *Snapshot) *Store {
	s := &Store{}
	s.current.Store(snap)
	return s
}

// Snapshot returns the currently published snapshot.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Swap publishes a fully built snapshot, replacing the previous one.
func (s *Store) Swap(snap *Snapshot) {
	s.current.Store(snap)
}
