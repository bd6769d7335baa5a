package catalog

import "fmt"

// ClauseRecord is one indexed provision of a reporting standard.
type ClauseRecord struct {
	ID        string   `json:"id"`
	Framework string   `json:"framework"`
	Reference string   `json:"reference"`
	Text      string   `json:"text"`
	Keywords  []string `json:"keywords,omitempty"`
	TopicTags []string `json:"topic_tags,omitempty"`
}

// CatalogLoadError reports a malformed or conflicting clause record.
// Catalog load failures are fatal at startup: the engine never serves
// queries against a partially loaded store.
type CatalogLoadError struct {
	Source   string
	RecordID string
	Reason   string
}

func (e *CatalogLoadError) Error() string {
	if e.RecordID == "" {
		return fmt.Sprintf("catalog %s: %s", e.Source, e.Reason)
	}
	return fmt.Sprintf("catalog %s: record %q: %s", e.Source, e.RecordID, e.Reason)
}

// validateRecords checks the store-wide invariants: every id is unique,
// framework+reference is unique within a framework, and no required field
// is blank.
func validateRecords(source string, records []ClauseRecord) error {
	if len(records) == 0 {
		return &CatalogLoadError{Source: source, Reason: "no clause records loaded"}
	}

	seenID := make(map[string]bool, len(records))
	seenRef := make(map[string]bool, len(records))
	for _, r := range records {
		switch {
		case r.ID == "":
			return &CatalogLoadError{Source: source, Reason: "record with empty id"}
		case r.Framework == "":
			return &CatalogLoadError{Source: source, RecordID: r.ID, Reason: "empty framework"}
		case r.Reference == "":
			return &CatalogLoadError{Source: source, RecordID: r.ID, Reason: "empty reference"}
		case r.Text == "":
			return &CatalogLoadError{Source: source, RecordID: r.ID, Reason: "empty text"}
		}
		if seenID[r.ID] {
			return &CatalogLoadError{Source: source, RecordID: r.ID, Reason: "duplicate id"}
		}
		seenID[r.ID] = true

		refKey := r.Framework + "\x00" + r.Reference
		if seenRef[refKey] {
			return &CatalogLoadError{Source: source, RecordID: r.ID,
				Reason: fmt.Sprintf("duplicate reference %q in %s", r.Reference, r.Framework)}
		}
		seenRef[refKey] = true
	}
	return nil
}
