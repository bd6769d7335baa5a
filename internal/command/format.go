package command

import (
	"fmt"
	"strings"

	"github.com/verdano/clausemap/internal/match"
)

// ConfidenceLabel maps a 0-100 confidence to the label shown to users.
func ConfidenceLabel(confidence int) string {
	switch {
	case confidence > 90:
		return "Excellent match"
	case confidence > 75:
		return "High confidence"
	case confidence > 60:
		return "Good match"
	default:
		return "Relevant"
	}
}

// FormatResults renders a result list as chat text.
func FormatResults(results []match.Result) string {
	if len(results) == 0 {
		return "No matching clauses found. Try different wording or /help for commands."
	}
	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "%d. [%s %s] %s\n   %s (%d%%)\n",
			i+1, r.Framework, r.Reference, r.Text,
			ConfidenceLabel(r.Confidence), r.Confidence)
	}
	return b.String()
}
