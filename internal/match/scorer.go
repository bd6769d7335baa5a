package match

import (
	"math"

	"github.com/hbollon/go-edlib"
	"github.com/verdano/clausemap/internal/catalog"
	"github.com/verdano/clausemap/internal/textnorm"
)

// fuzzyCredit is the lexical credit for a near-miss token (morphological
// variant or typo that survived stemming), below the 1.0 of an exact hit.
const fuzzyCredit = 0.7

// scorer computes per-candidate sub-scores and the blended confidence.
// It is a pure function of its inputs: no hidden state, deterministic.
type scorer struct {
	params Params
}

// score evaluates one clause against the distinct query tokens and the
// concept-expanded term set.
func (s *scorer) score(queryTokens []string, expanded map[string]bool, clause *catalog.ClauseRecord) Candidate {
	keywords := make(map[string]bool, len(clause.Keywords))
	for _, kw := range clause.Keywords {
		keywords[kw] = true
	}

	lexical := s.lexicalScore(queryTokens, clause.Keywords, keywords)
	semantic := s.semanticScore(queryTokens, expanded, clause.TopicTags)

	boost := 1.0
	if b, ok := s.params.FrameworkBoosts[clause.Framework]; ok {
		boost = b
	}

	blended := s.params.LexicalWeight*lexical + s.params.SemanticWeight*semantic
	blended = math.Min(math.Max(blended, 0), 1)
	confidence := int(math.Round(blended * boost * 100))
	if confidence > 100 {
		confidence = 100
	}
	if confidence < 0 {
		confidence = 0
	}

	return Candidate{
		ClauseID:   clause.ID,
		Lexical:    lexical,
		Semantic:   semantic,
		Boost:      boost,
		Confidence: confidence,
	}
}

// lexicalScore is the token-overlap ratio: matched query tokens over
// distinct query token count. An exact keyword hit counts 1.0; a fuzzy
// Jaro-Winkler hit at or above the configured threshold counts fuzzyCredit.
func (s *scorer) lexicalScore(queryTokens []string, keywordList []string, keywords map[string]bool) float64 {
	distinct := make(map[string]bool, len(queryTokens))
	for _, tok := range queryTokens {
		distinct[tok] = true
	}
	if len(distinct) == 0 {
		return 0
	}

	var matched float64
	for tok := range distinct {
		if keywords[tok] {
			matched += 1.0
			continue
		}
		if s.fuzzyHit(tok, keywordList) {
			matched += fuzzyCredit
		}
	}
	return matched / float64(len(distinct))
}

// fuzzyHit reports whether any clause keyword is similar enough to the
// token per Jaro-Winkler.
func (s *scorer) fuzzyHit(token string, keywords []string) bool {
	for _, kw := range keywords {
		sim, err := edlib.StringsSimilarity(token, kw, edlib.JaroWinkler)
		if err != nil {
			continue
		}
		if float64(sim) >= s.params.FuzzyThreshold {
			return true
		}
	}
	return false
}

// semanticScore is the overlap ratio between the clause's topic tags and
// the query's tokens plus concept-expanded terms. A clause with no tag
// overlap scores 0 here and is not penalized elsewhere.
func (s *scorer) semanticScore(queryTokens []string, expanded map[string]bool, tags []string) float64 {
	if len(tags) == 0 {
		return 0
	}

	queryTerms := make(map[string]bool, len(queryTokens)+len(expanded))
	for _, tok := range queryTokens {
		queryTerms[tok] = true
	}
	for term := range expanded {
		queryTerms[term] = true
	}

	var matched int
	for _, tag := range tags {
		for _, tok := range textnorm.Tokens(tag) {
			if queryTerms[tok] {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(tags))
}
