// Package extractor converts résumé PDF files into plain text.
//
// Extraction tries a primary page-by-page parser first and falls back to a
// second parser over the same bytes when the primary fails or recovers no
// usable text. Results are memoized in a bounded LRU keyed by file path.
package extractor

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	dslipak "github.com/dslipak/pdf"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

// ErrNoText is returned when no parser could recover text from a file.
var ErrNoText = errors.New("no text recovered")

// DefaultCacheSize bounds the extraction memoization cache.
const DefaultCacheSize = 500

// Strategy parses a PDF file into plain text.
type Strategy func(path string) (string, error)

// Extractor runs extraction strategies in order and memoizes results.
type Extractor struct {
	strategies []Strategy
	cache      *lru.Cache[string, string]
	logger     *zap.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithStrategies replaces the default parser chain. Used by tests.
func WithStrategies(strategies ...Strategy) Option {
	return func(e *Extractor) {
		e.strategies = strategies
	}
}

// New creates an Extractor with the default parser chain and an LRU cache of
// the given capacity.
func New(cacheSize int, logger *zap.Logger, opts ...Option) (*Extractor, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, string](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create extraction cache: %w", err)
	}

	e := &Extractor{
		strategies: []Strategy{extractByPage, extractWholeText},
		cache:      cache,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Extract returns the plain text of the file at path, or ErrNoText when no
// strategy recovers anything usable. Parser failures never propagate.
func (e *Extractor) Extract(path string) (string, error) {
	if text, ok := e.cache.Get(path); ok {
		return text, nil
	}

	for i, strategy := range e.strategies {
		text, err := runStrategy(strategy, path)
		if err != nil {
			e.logger.Warn("extraction strategy failed",
				zap.String("path", path),
				zap.Int("strategy", i),
				zap.Error(err))
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		e.cache.Add(path, text)
		return text, nil
	}

	return "", ErrNoText
}

// ClearCache drops all memoized extraction results.
func (e *Extractor) ClearCache() {
	e.cache.Purge()
}

// runStrategy isolates a parser call. The PDF parsers panic on some
// malformed files, which must degrade to a per-file failure.
func runStrategy(strategy Strategy, path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parser panic: %v", r)
		}
	}()
	return strategy(path)
}

// extractByPage is the primary strategy: walk pages and concatenate the
// recovered text with newline separators.
func extractByPage(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	var sb strings.Builder
	for pageNum := 1; pageNum <= r.NumPage(); pageNum++ {
		page := r.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if pageText != "" {
			sb.WriteString(pageText)
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}

// extractWholeText is the fallback strategy: a different parser reading the
// document as a single text stream.
func extractWholeText(path string) (string, error) {
	r, err := dslipak.Open(path)
	if err != nil {
		return "", err
	}

	reader, err := r.GetPlainText()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return "", err
	}
	return buf.String(), nil
}
