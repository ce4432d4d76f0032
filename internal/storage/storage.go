package storage

import (
	"context"
	"time"
)

// Document is one indexed résumé file. Filename is the natural key and the
// source of truth for existence checks against the corpus directory.
type Document struct {
	ID            int64
	Filename      string
	Content       string
	CandidateName string
	FileSize      int64
	IndexedAt     time.Time
	LastAccessed  time.Time
}

// FTSHit is a raw full-text match before relevance scoring.
type FTSHit struct {
	Filename      string
	CandidateName string
	Content       string
	Snippet       string
}

// IndexStats is a read-only aggregate over the index.
type IndexStats struct {
	TotalIndexedFiles int
	TotalFTSRows      int
	TotalSizeMB       float64
	DBSizeMB          float64
}

// Store defines the persistence boundary for indexed documents.
// The indexer owns all writes; the searcher only reads.
type Store interface {
	// Write path (indexer)
	UpsertDocument(ctx context.Context, doc *Document) error
	DeleteByFilenames(ctx context.Context, filenames []string) (int, error)

	// Read path
	GetDocument(ctx context.Context, filename string) (*Document, error)
	ListFilenames(ctx context.Context) ([]string, error)
	SearchPhrase(ctx context.Context, phrase string, limit int) ([]FTSHit, error)
	SearchAnyWord(ctx context.Context, words []string, limit int) ([]FTSHit, error)
	SearchSubstring(ctx context.Context, word string, limit int) ([]FTSHit, error)
	TouchAccess(ctx context.Context, filenames []string) error
	Stats(ctx context.Context) (*IndexStats, error)

	// Maintenance
	Optimize(ctx context.Context) error
	Close() error
}
