package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/verdano/clausemap/internal/textnorm"
)

// frameworkFile is the on-disk shape of one framework's catalog file.
type frameworkFile struct {
	Framework string         `json:"framework"`
	Clauses   []ClauseRecord `json:"clauses"`
}

// LoadDir reads every *.json framework file in dir (concepts.json is
// handled separately) and returns a validated snapshot. Any malformed
// record aborts the whole load.
func LoadDir(dir, conceptsPath string) (*Snapshot, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read catalog dir %s: %w", dir, err)
	}

	var records []ClauseRecord
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") || name == "concepts.json" {
			continue
		}
		recs, err := loadFrameworkFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		records = append(records, recs...)
	}

	concepts, err := loadConcepts(conceptsPath)
	if err != nil {
		return nil, err
	}
	return NewSnapshot(records, concepts)
}

func loadFrameworkFile(path string) ([]ClauseRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var ff frameworkFile
	if err := json.Unmarshal(data, &ff); err != nil {
		return nil, &CatalogLoadError{Source: path, Reason: "invalid JSON: " + err.Error()}
	}
	if ff.Framework == "" {
		return nil, &CatalogLoadError{Source: path, Reason: "missing framework tag"}
	}

	for i := range ff.Clauses {
		if ff.Clauses[i].Framework == "" {
			ff.Clauses[i].Framework = ff.Framework
		}
	}
	return ff.Clauses, nil
}

// loadConcepts reads the synonym expansion table. A missing path is not an
// error; expansion simply stays empty.
func loadConcepts(path string) (map[string][]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read concepts %s: %w", path, err)
	}
	var concepts map[string][]string
	if err := json.Unmarshal(data, &concepts); err != nil {
		return nil, &CatalogLoadError{Source: path, Reason: "invalid concepts JSON: " + err.Error()}
	}
	return concepts, nil
}

// NewSnapshot validates records, precomputes normalized keywords, and
// builds the lookup maps. Records without explicit keywords derive them
// from the clause text.
func NewSnapshot(records []ClauseRecord, concepts map[string][]string) (*Snapshot, error) {
	if err := validateRecords("catalog", records); err != nil {
		return nil, err
	}

	snap := &Snapshot{
		records:     make([]ClauseRecord, len(records)),
		byID:        make(map[string]*ClauseRecord, len(records)),
		byFramework: make(map[string][]*ClauseRecord),
		concepts:    normalizeConcepts(concepts),
	}
	copy(snap.records, records)

	for i := range snap.records {
		r := &snap.records[i]
		r.Keywords = normalizeKeywords(r)
		snap.byID[r.ID] = r
		snap.byFramework[r.Framework] = append(snap.byFramework[r.Framework], r)
	}

	for fw := range snap.byFramework {
		snap.frameworks = append(snap.frameworks, fw)
	}
	sort.Strings(snap.frameworks)
	return snap, nil
}

// normalizeKeywords canonicalizes declared keywords so the inverted index
// always holds terms in the same form the query normalizer produces.
// Records that declare no keywords derive them from the clause text.
func normalizeKeywords(r *ClauseRecord) []string {
	source := r.Keywords
	seen := make(map[string]bool)
	var out []string
	if len(source) == 0 {
		for _, tok := range textnorm.Tokens(r.Text) {
			if !seen[tok] {
				seen[tok] = true
				out = append(out, tok)
			}
		}
	} else {
		for _, kw := range source {
			for _, tok := range textnorm.Tokens(kw) {
				if !seen[tok] {
					seen[tok] = true
					out = append(out, tok)
				}
			}
		}
	}
	sort.Strings(out)
	return out
}

func normalizeConcepts(concepts map[string][]string) map[string][]string {
	if len(concepts) == 0 {
		return nil
	}
	out := make(map[string][]string, len(concepts))
	for concept, synonyms := range concepts {
		key := textnorm.Normalize(concept)
		if key == "" {
			continue
		}
		seen := make(map[string]bool)
		var terms []string
		for _, syn := range synonyms {
			for _, tok := range textnorm.Tokens(syn) {
				if !seen[tok] {
					seen[tok] = true
					terms = append(terms, tok)
				}
			}
		}
		sort.Strings(terms)
		out[key] = terms
	}
	return out
}
