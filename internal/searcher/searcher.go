// Package searcher answers résumé queries with a tiered search over the
// full-text index: exact phrase matches first, then word combinations, then
// plain keyword containment when no phrases can be extracted at all. Final
// scores come from a relevance pass over the accumulated candidates.
package searcher

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/Juliaess/resume-searcher-bot/internal/cache"
	"github.com/Juliaess/resume-searcher-bot/internal/phrase"
	"github.com/Juliaess/resume-searcher-bot/internal/storage"
)

// Level identifies which search tier produced a result.
type Level string

const (
	LevelExactPhrase  Level = "exact_phrase"
	LevelWordCombo    Level = "word_combo"
	LevelFallbackWord Level = "fallback_word"
)

// Result is one ranked match for a query.
type Result struct {
	Filename       string  `json:"filename"`
	CandidateName  string  `json:"candidate_name"`
	FilePath       string  `json:"file_path"`
	RelevanceScore float64 `json:"relevance_score"`
	HasExactMatch  bool    `json:"has_exact_match"`
	SearchLevel    Level   `json:"search_level"`
	MatchedPhrase  string  `json:"matched_phrase,omitempty"`
	MatchedWords   int     `json:"matched_words,omitempty"`
	MatchedWord    string  `json:"matched_word,omitempty"`
	Snippet        string  `json:"snippet,omitempty"`

	// Retained for the scoring pass, never serialized.
	content string
}

// Scoring holds the tunable constants of the relevance pass.
type Scoring struct {
	PhraseCap         float64 // per-phrase contribution cap
	MultiPhraseBonus  float64 // bonus when >= 2 phrases matched
	SinglePhraseBonus float64 // bonus when exactly 1 phrase matched
	MinScore          float64 // results below this are dropped
}

// DefaultScoring returns the production scoring constants.
func DefaultScoring() Scoring {
	return Scoring{
		PhraseCap:         0.5,
		MultiPhraseBonus:  0.2,
		SinglePhraseBonus: 0.1,
		MinScore:          0.1,
	}
}

const (
	// DefaultLimit is the result count when the caller passes none.
	DefaultLimit = 20
	// DefaultMaxConcurrent bounds simultaneous search operations. Each
	// search issues up to ~13 sub-queries against the store.
	DefaultMaxConcurrent = 5
	// DefaultCacheTTL is how long search results stay cached.
	DefaultCacheTTL = time.Hour

	cachePrefix = "pdf_search"

	maxSearchPhrases  = 10
	comboMinResults   = 3
	comboMaxWords     = 3
	comboScoreCap     = 0.6
	fallbackMaxWords  = 3
	fallbackScore     = 0.3
	exactPrelimScore  = 0.8
	maxScoredPhrases  = 3
	phraseScoreDivide = 100.0
)

// comboStopWords are generic résumé/role terms excluded from word
// combination queries.
var comboStopWords = map[string]struct{}{
	"менеджер": {}, "продажам": {}, "работы": {}, "клиентами": {},
	"проект": {}, "компании": {}, "организация": {}, "управление": {},
	"контроль": {}, "разработка": {}, "сопровождение": {},
}

// fallbackStopWords are dropped before the plain keyword fallback.
var fallbackStopWords = map[string]struct{}{
	"опыт": {}, "работы": {}, "работа": {}, "компания": {}, "проект": {},
}

// Config holds search engine parameters. Zero values fall back to defaults.
type Config struct {
	ResumesDir    string
	MaxConcurrent int64
	CacheTTL      time.Duration
	Scoring       Scoring
}

// Engine orchestrates phrase extraction, index lookups, scoring and caching.
type Engine struct {
	store  storage.Store
	cache  cache.Store
	logger *zap.Logger

	sem        *semaphore.Weighted
	scoring    Scoring
	resumesDir string
	cacheTTL   time.Duration

	scoringPasses atomic.Int64
}

// New creates a search Engine.
func New(store storage.Store, cch cache.Store, logger *zap.Logger, cfg Config) *Engine {
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	scoring := cfg.Scoring
	if scoring == (Scoring{}) {
		scoring = DefaultScoring()
	}
	return &Engine{
		store:      store,
		cache:      cch,
		logger:     logger,
		sem:        semaphore.NewWeighted(maxConcurrent),
		scoring:    scoring,
		resumesDir: cfg.ResumesDir,
		cacheTTL:   ttl,
	}
}

// Search returns up to limit ranked results for query. Results are served
// from the cache when an identical (query, limit) pair was answered within
// the TTL; cache failures are treated as misses, never as search failures.
func (e *Engine) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	key := cache.Key(cachePrefix, query, strconv.Itoa(limit))
	if data, err := e.cache.Get(ctx, key); err == nil {
		var cached []Result
		if err := json.Unmarshal(data, &cached); err == nil {
			e.logger.Debug("search cache hit", zap.Int("results", len(cached)))
			return cached, nil
		}
	}

	if err := e.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer e.sem.Release(1)

	results, err := e.tieredSearch(ctx, query, limit)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		// Index-level failures degrade to the plain keyword fallback.
		e.logger.Warn("tiered search failed, using fallback", zap.Error(err))
		results = e.fallbackSearch(ctx, query, limit)
	}

	if len(results) > 0 {
		filenames := make([]string, len(results))
		for i, r := range results {
			filenames[i] = r.Filename
		}
		if err := e.store.TouchAccess(ctx, filenames); err != nil {
			e.logger.Warn("failed to touch access times", zap.Error(err))
		}
	}

	if data, err := json.Marshal(results); err == nil {
		if err := e.cache.Set(ctx, key, data, e.cacheTTL); err != nil {
			e.logger.Warn("failed to cache search results", zap.Error(err))
		}
	}

	return results, nil
}

func (e *Engine) tieredSearch(ctx context.Context, query string, limit int) ([]Result, error) {
	phrases := phrase.Extract(query)
	if len(phrases) == 0 {
		e.logger.Debug("no phrases extracted, using fallback")
		return e.fallbackSearch(ctx, query, limit), nil
	}

	var accumulated []Result
	seen := make(map[string]struct{})

	for _, p := range phrases[:min(len(phrases), maxSearchPhrases)] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		hits, err := e.store.SearchPhrase(ctx, p, limit*2)
		if err != nil {
			return nil, fmt.Errorf("phrase query failed: %w", err)
		}
		for _, h := range hits {
			if _, ok := seen[h.Filename]; ok {
				continue
			}
			seen[h.Filename] = struct{}{}
			accumulated = append(accumulated, Result{
				Filename:       h.Filename,
				CandidateName:  h.CandidateName,
				FilePath:       filepath.Join(e.resumesDir, h.Filename),
				RelevanceScore: exactPrelimScore,
				HasExactMatch:  true,
				SearchLevel:    LevelExactPhrase,
				MatchedPhrase:  p,
				Snippet:        h.Snippet,
				content:        h.Content,
			})
		}
	}

	if len(accumulated) < comboMinResults {
		combo, err := e.wordComboSearch(ctx, phrases, limit)
		if err != nil {
			return nil, err
		}
		for _, r := range combo {
			if _, ok := seen[r.Filename]; ok {
				continue
			}
			seen[r.Filename] = struct{}{}
			accumulated = append(accumulated, r)
		}
	}

	e.scoringPasses.Add(1)
	final := make([]Result, 0, len(accumulated))
	for _, r := range accumulated {
		r.RelevanceScore = e.relevance(r, phrases)
		if r.RelevanceScore >= e.scoring.MinScore {
			final = append(final, r)
		}
	}

	sort.SliceStable(final, func(i, j int) bool {
		return final[i].RelevanceScore > final[j].RelevanceScore
	})
	if len(final) > limit {
		final = final[:limit]
	}
	return final, nil
}

// relevance recomputes a result's score from the phrases found verbatim in
// its content. With no content or no phrase matches the tier's preliminary
// score stands.
func (e *Engine) relevance(r Result, phrases []string) float64 {
	content := strings.ToLower(r.content)
	if content == "" {
		return r.RelevanceScore
	}

	var matched []string
	for _, p := range phrases {
		if strings.Contains(content, strings.ToLower(p)) {
			matched = append(matched, p)
		}
	}
	if len(matched) == 0 {
		return r.RelevanceScore
	}

	total := 0.0
	for _, p := range matched[:min(len(matched), maxScoredPhrases)] {
		total += math.Min(float64(utf8.RuneCountInString(p))/phraseScoreDivide, e.scoring.PhraseCap)
	}
	if len(matched) >= 2 {
		total += e.scoring.MultiPhraseBonus
	} else {
		total += e.scoring.SinglePhraseBonus
	}
	return math.Min(total, 1.0)
}

// wordComboSearch issues a disjunctive keyword query built from the phrase
// words and keeps hits containing at least two of the query words.
func (e *Engine) wordComboSearch(ctx context.Context, phrases []string, limit int) ([]Result, error) {
	var words []string
	seen := make(map[string]struct{})
	for _, p := range phrases {
		for _, w := range phrase.Words(p, comboStopWords) {
			if _, ok := seen[w]; ok {
				continue
			}
			seen[w] = struct{}{}
			words = append(words, w)
		}
	}
	if len(words) < 2 {
		return nil, nil
	}
	words = words[:min(len(words), comboMaxWords)]

	hits, err := e.store.SearchAnyWord(ctx, words, limit*2)
	if err != nil {
		return nil, fmt.Errorf("word combination query failed: %w", err)
	}

	var results []Result
	for _, h := range hits {
		contentLower := strings.ToLower(h.Content)
		matched := 0
		for _, w := range words {
			if strings.Contains(contentLower, w) {
				matched++
			}
		}
		if matched < 2 {
			continue
		}
		results = append(results, Result{
			Filename:       h.Filename,
			CandidateName:  h.CandidateName,
			FilePath:       filepath.Join(e.resumesDir, h.Filename),
			RelevanceScore: math.Min(float64(matched)/float64(len(words)), comboScoreCap),
			SearchLevel:    LevelWordCombo,
			MatchedWords:   matched,
			content:        h.Content,
		})
	}
	return results, nil
}

// fallbackSearch runs independent substring queries for the first few query
// words against the plain store. Used when phrase extraction yields nothing
// or the index is unavailable. Errors degrade to fewer results.
func (e *Engine) fallbackSearch(ctx context.Context, query string, limit int) []Result {
	words := phrase.Words(query, fallbackStopWords)
	if len(words) == 0 {
		words = phrase.Words(query, nil)
	}
	words = words[:min(len(words), fallbackMaxWords)]

	var results []Result
	seen := make(map[string]struct{})
	for _, w := range words {
		if ctx.Err() != nil {
			break
		}
		hits, err := e.store.SearchSubstring(ctx, w, limit)
		if err != nil {
			e.logger.Warn("fallback word query failed",
				zap.String("word", w),
				zap.Error(err))
			continue
		}
		for _, h := range hits {
			if _, ok := seen[h.Filename]; ok {
				continue
			}
			seen[h.Filename] = struct{}{}
			results = append(results, Result{
				Filename:       h.Filename,
				CandidateName:  h.CandidateName,
				FilePath:       filepath.Join(e.resumesDir, h.Filename),
				RelevanceScore: fallbackScore,
				SearchLevel:    LevelFallbackWord,
				MatchedWord:    w,
			})
		}
	}

	if len(results) > limit {
		results = results[:limit]
	}
	return results
}
