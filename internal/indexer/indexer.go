// Package indexer walks the résumé folder and keeps the document store and
// full-text index in sync with the files on disk.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Juliaess/resume-searcher-bot/internal/phrase"
	"github.com/Juliaess/resume-searcher-bot/internal/storage"
)

// ErrAlreadyRunning is returned when a full index pass is requested while
// another one is still in flight.
var ErrAlreadyRunning = errors.New("indexing already in progress")

const (
	// DefaultWorkers bounds concurrent per-file indexing goroutines.
	DefaultWorkers = 2
	// DefaultBatchSize is how many files each throttled batch holds.
	DefaultBatchSize = 100

	maxContentLen    = 20000
	batchPause       = 500 * time.Millisecond
	busyRetries      = 3
	busyBackoff      = 200 * time.Millisecond
	cleanupBatchSize = 100
)

// TextExtractor yields the plain text of a document on disk.
type TextExtractor interface {
	Extract(path string) (string, error)
}

// Config holds indexing parameters.
type Config struct {
	ResumesDir string
	Workers    int
	BatchSize  int
}

// Indexer fills the store from PDF files under a single folder.
type Indexer struct {
	store     storage.Store
	extractor TextExtractor
	logger    *zap.Logger

	resumesDir string
	workers    int
	batchSize  int

	running atomic.Bool
}

// New creates an Indexer. Zero Workers/BatchSize fall back to defaults.
func New(store storage.Store, extractor TextExtractor, logger *zap.Logger, cfg Config) *Indexer {
	workers := cfg.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Indexer{
		store:      store,
		extractor:  extractor,
		logger:     logger,
		resumesDir: cfg.ResumesDir,
		workers:    workers,
		batchSize:  batchSize,
	}
}

// Running reports whether a full index pass is in progress.
func (ix *Indexer) Running() bool {
	return ix.running.Load()
}

// IndexAll indexes every PDF in the résumé folder that is not yet in the
// store. Files are processed in throttled batches by a bounded worker pool;
// per-file failures are logged and skipped. Returns the number of files
// indexed. Only one IndexAll may run at a time.
func (ix *Indexer) IndexAll(ctx context.Context) (int, error) {
	if !ix.running.CompareAndSwap(false, true) {
		return 0, ErrAlreadyRunning
	}
	defer ix.running.Store(false)

	pdfFiles, err := ix.listPDFs()
	if err != nil {
		return 0, fmt.Errorf("failed to list resume folder: %w", err)
	}

	indexed, err := ix.store.ListFilenames(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list indexed files: %w", err)
	}
	existing := make(map[string]struct{}, len(indexed))
	for _, name := range indexed {
		existing[name] = struct{}{}
	}

	var toIndex []string
	for _, name := range pdfFiles {
		if _, ok := existing[name]; !ok {
			toIndex = append(toIndex, name)
		}
	}

	if len(toIndex) == 0 {
		ix.logger.Info("all files already indexed", zap.Int("total", len(pdfFiles)))
		return 0, nil
	}

	ix.logger.Info("starting indexing",
		zap.Int("files", len(toIndex)),
		zap.Int("workers", ix.workers),
		zap.Int("batch_size", ix.batchSize))

	var count atomic.Int64
	total := len(toIndex)

	for start := 0; start < total; start += ix.batchSize {
		if start > 0 {
			// Pause between batches to bound writer-lock contention.
			select {
			case <-ctx.Done():
				return int(count.Load()), ctx.Err()
			case <-time.After(batchPause):
			}
		}

		end := start + ix.batchSize
		if end > total {
			end = total
		}
		batch := toIndex[start:end]

		var g errgroup.Group
		g.SetLimit(ix.workers)
		for _, filename := range batch {
			filename := filename
			g.Go(func() error {
				if ctx.Err() != nil {
					return nil
				}
				if err := ix.IndexSingle(ctx, filename); err != nil {
					ix.logger.Warn("failed to index file",
						zap.String("filename", filename),
						zap.Error(err))
					return nil
				}
				n := count.Add(1)
				if n%50 == 0 {
					ix.logger.Info("indexing progress",
						zap.Int64("indexed", n),
						zap.Int("total", total))
				}
				return nil
			})
		}
		_ = g.Wait()

		if ctx.Err() != nil {
			return int(count.Load()), ctx.Err()
		}
	}

	ix.logger.Info("indexing finished",
		zap.Int64("indexed", count.Load()),
		zap.Int("total", total))
	return int(count.Load()), nil
}

// IndexSingle extracts and stores one file from the résumé folder. A busy
// store is retried a bounded number of times with linear backoff.
func (ix *Indexer) IndexSingle(ctx context.Context, filename string) error {
	path := filepath.Join(ix.resumesDir, filename)

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", filename, err)
	}

	text, err := ix.extractor.Extract(path)
	if err != nil {
		return fmt.Errorf("failed to extract %s: %w", filename, err)
	}

	doc := &storage.Document{
		Filename:      filename,
		Content:       truncateRunes(phrase.Normalize(text), maxContentLen),
		CandidateName: CandidateName(filename),
		FileSize:      info.Size(),
	}

	for attempt := 1; ; attempt++ {
		err = ix.store.UpsertDocument(ctx, doc)
		if err == nil {
			return nil
		}
		if !storage.IsBusy(err) || attempt >= busyRetries {
			return fmt.Errorf("failed to index %s: %w", filename, err)
		}
		ix.logger.Warn("store busy, retrying",
			zap.String("filename", filename),
			zap.Int("attempt", attempt))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(busyBackoff * time.Duration(attempt)):
		}
	}
}

// CleanupMissing removes index entries whose files no longer exist on disk.
// Deletions run in batches. Returns the number of entries removed.
func (ix *Indexer) CleanupMissing(ctx context.Context) (int, error) {
	indexed, err := ix.store.ListFilenames(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list indexed files: %w", err)
	}

	var missing []string
	for _, filename := range indexed {
		_, err := os.Stat(filepath.Join(ix.resumesDir, filename))
		if errors.Is(err, fs.ErrNotExist) {
			missing = append(missing, filename)
		}
	}

	if len(missing) == 0 {
		return 0, nil
	}

	total := 0
	for start := 0; start < len(missing); start += cleanupBatchSize {
		end := start + cleanupBatchSize
		if end > len(missing) {
			end = len(missing)
		}
		deleted, err := ix.store.DeleteByFilenames(ctx, missing[start:end])
		if err != nil {
			return total, fmt.Errorf("failed to delete missing files: %w", err)
		}
		total += deleted
	}

	ix.logger.Info("removed missing files from index", zap.Int("deleted", total))
	return total, nil
}

// Stats pairs the store's counters with the corpus size on disk.
type Stats struct {
	Index       storage.IndexStats
	FilesOnDisk int
}

// Stats reports index-level counters and how many PDFs the folder holds.
func (ix *Indexer) Stats(ctx context.Context) (*Stats, error) {
	indexStats, err := ix.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	files, err := ix.listPDFs()
	if err != nil {
		return nil, fmt.Errorf("failed to list resume folder: %w", err)
	}
	return &Stats{Index: *indexStats, FilesOnDisk: len(files)}, nil
}

func (ix *Indexer) listPDFs() ([]string, error) {
	entries, err := os.ReadDir(ix.resumesDir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			files = append(files, entry.Name())
		}
	}
	return files, nil
}

var nonNameRe = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)

// CandidateName derives a display name from a résumé filename: extension
// stripped, punctuation replaced by spaces, whitespace collapsed.
func CandidateName(filename string) string {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	name := phrase.Normalize(nonNameRe.ReplaceAllString(base, " "))
	if name == "" {
		return "Неизвестный кандидат"
	}
	return name
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
