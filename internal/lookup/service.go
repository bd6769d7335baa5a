// Package lookup runs the full query pipeline around the matching
// engine: translation, caching, the engine itself, the vector fallback
// and analytics. Everything but the engine is optional; a nil backend
// is skipped.
package lookup

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/verdano/clausemap/internal/analytics"
	"github.com/verdano/clausemap/internal/cache"
	"github.com/verdano/clausemap/internal/match"
	"github.com/verdano/clausemap/internal/semrecall"
	"github.com/verdano/clausemap/internal/textnorm"
	"github.com/verdano/clausemap/internal/translate"
)

// fallbackConfidence marks results recovered through the vector
// fallback; they never outrank direct lexical matches.
const fallbackConfidence = 50

// Response is the outcome of a lookup, including where it came from.
type Response struct {
	Results    []match.Result `json:"results"`
	Locale     string         `json:"locale,omitempty"`
	FromCache  bool           `json:"from_cache,omitempty"`
	Fallback   bool           `json:"fallback,omitempty"`
	TookMillis int64          `json:"took_ms"`
}

// Service owns the pipeline. Engine is required; the rest may be nil.
type Service struct {
	engine     *match.Engine
	translator translate.Translator
	cache      *cache.Cache
	recall     *semrecall.Recall
	queryLog   *analytics.QueryLogger
	tracker    *analytics.Tracker
	logger     *zap.Logger
}

// Option configures optional pipeline stages.
type Option func(*Service)

func WithTranslator(t translate.Translator) Option {
	return func(s *Service) { s.translator = t }
}

func WithCache(c *cache.Cache) Option {
	return func(s *Service) { s.cache = c }
}

func WithRecall(r *semrecall.Recall) Option {
	return func(s *Service) { s.recall = r }
}

func WithAnalytics(ql *analytics.QueryLogger, tr *analytics.Tracker) Option {
	return func(s *Service) {
		s.queryLog = ql
		s.tracker = tr
	}
}

// NewService builds the pipeline around the engine.
func NewService(engine *match.Engine, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		engine:     engine,
		translator: translate.Noop{},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Lookup runs one query through the pipeline. platform and userID only
// feed analytics and may be empty.
func (s *Service) Lookup(ctx context.Context, platform, userID, query string, filters []string) Response {
	start := time.Now()

	translated, locale, err := s.translator.Translate(ctx, query)
	if err != nil {
		s.logger.Warn("translation failed, using original query", zap.Error(err))
		translated = query
		locale = ""
	}

	tokens := textnorm.Tokens(translated)
	key := cache.Key(strings.Join(tokens, " "), filters)

	if s.cache != nil && len(tokens) > 0 {
		if cached, ok := s.cache.Get(ctx, key); ok {
			resp := Response{
				Results:    cached.Results,
				Locale:     locale,
				FromCache:  true,
				TookMillis: time.Since(start).Milliseconds(),
			}
			s.record(ctx, platform, userID, translated, locale, filters, resp)
			return resp
		}
	}

	result := s.engine.Match(translated, filters)

	fallback := false
	if result.Empty() && len(tokens) > 0 && s.recall != nil {
		if recovered, ok := s.vectorFallback(ctx, translated, filters); ok {
			result = recovered
			fallback = true
		}
	}

	if s.cache != nil && len(tokens) > 0 && !fallback {
		s.cache.Set(ctx, key, result)
	}

	resp := Response{
		Results:    result.Results,
		Locale:     locale,
		Fallback:   fallback,
		TookMillis: time.Since(start).Milliseconds(),
	}
	s.record(ctx, platform, userID, translated, locale, filters, resp)
	return resp
}

// vectorFallback asks the recall index for nearest clauses when the
// lexical engine found nothing. Hits outside the filter set are
// discarded to keep filter containment intact.
func (s *Service) vectorFallback(ctx context.Context, query string, filters []string) (match.MatchResult, bool) {
	topK := s.engine.Params().MaxResults
	hits, err := s.recall.Fallback(ctx, query, topK)
	if err != nil {
		s.logger.Warn("vector fallback failed", zap.Error(err))
		return match.MatchResult{}, false
	}

	allowed := make(map[string]bool, len(filters))
	for _, f := range filters {
		allowed[f] = true
	}

	snap := s.engine.Snapshot()
	results := make([]match.Result, 0, len(hits))
	for _, hit := range hits {
		clause, ok := snap.ByID(hit.ClauseID)
		if !ok {
			continue
		}
		if len(allowed) > 0 && !allowed[clause.Framework] {
			continue
		}
		results = append(results, match.Result{
			ClauseID:   clause.ID,
			Framework:  clause.Framework,
			Reference:  clause.Reference,
			Text:       clause.Text,
			Confidence: fallbackConfidence,
		})
	}
	if len(results) == 0 {
		return match.MatchResult{}, false
	}
	return match.MatchResult{Results: results}, true
}

func (s *Service) record(ctx context.Context, platform, userID, query, locale string, filters []string, resp Response) {
	if s.queryLog != nil {
		entry := analytics.Entry{
			Platform:    platform,
			UserID:      userID,
			Query:       query,
			Framework:   strings.Join(filters, ","),
			ResultCount: len(resp.Results),
			Locale:      locale,
		}
		if len(resp.Results) > 0 {
			entry.TopResult = resp.Results[0].ClauseID
			entry.Confidence = resp.Results[0].Confidence
		}
		s.queryLog.Log(entry)
	}
	if s.tracker != nil {
		s.tracker.Track(ctx, userID, "clause_lookup", map[string]interface{}{
			"platform":     platform,
			"result_count": len(resp.Results),
			"from_cache":   resp.FromCache,
			"fallback":     resp.Fallback,
		})
	}
}
