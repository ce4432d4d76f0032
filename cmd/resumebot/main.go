package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Juliaess/resume-searcher-bot/internal/cache"
	"github.com/Juliaess/resume-searcher-bot/internal/config"
	"github.com/Juliaess/resume-searcher-bot/internal/extractor"
	"github.com/Juliaess/resume-searcher-bot/internal/indexer"
	"github.com/Juliaess/resume-searcher-bot/internal/logging"
	"github.com/Juliaess/resume-searcher-bot/internal/searcher"
	"github.com/Juliaess/resume-searcher-bot/internal/storage"
)

// Build-time variables (set via ldflags)
var version = "dev"

var (
	cfgPath   string
	jsonOut   bool
	limit     int
	logLevel  string
	workers   int
	batchSize int
)

var rootCmd = &cobra.Command{
	Use:   "resumebot",
	Short: "Résumé PDF indexing and phrase-based relevance search",
	Long: `resumebot maintains a full-text index over a folder of résumé PDFs and
answers free-form queries with ranked candidate matches.

Examples:
  resumebot index                    # index new PDFs from the resumes folder
  resumebot search "текст запроса"   # search the index
  resumebot cleanup                  # drop index entries for deleted files
  resumebot stats                    # show index statistics

Configuration lives in ~/.config/resumebot/config.yaml or the current
directory; RESUMEBOT_* environment variables override file values.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index new PDF files from the resumes folder",
	RunE:  runIndex,
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search indexed resumes",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove index entries whose files no longer exist",
	RunE:  runCleanup,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	RunE:  runStats,
}

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Optimize and compact the index database",
	RunE:  runOptimize,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	searchCmd.Flags().BoolVar(&jsonOut, "json", false, "print results as JSON")
	searchCmd.Flags().IntVar(&limit, "limit", 0, "maximum number of results")
	indexCmd.Flags().IntVar(&workers, "workers", 0, "override indexing worker count")
	indexCmd.Flags().IntVar(&batchSize, "batch", 0, "override indexing batch size")
	rootCmd.AddCommand(indexCmd, searchCmd, cleanupCmd, statsCmd, optimizeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app wires the storage, cache, extraction and search components together.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	store  storage.Store
	cache  cache.Store
	index  *indexer.Indexer
	engine *searcher.Engine
}

func newApp() (*app, func(), error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, err
	}

	logger, err := logging.New(cfg.Log.Env, firstNonEmpty(logLevel, cfg.Log.Level))
	if err != nil {
		return nil, nil, err
	}

	store, err := storage.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open index database: %w", err)
	}

	var cch cache.Store = cache.Noop{}
	if cfg.Redis.Addr != "" {
		redis, err := cache.NewRedis(cache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			logger.Warn("result cache unavailable, continuing without it", zap.Error(err))
		} else {
			cch = redis
		}
	}

	extr, err := extractor.New(extractor.DefaultCacheSize, logger)
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	ix := indexer.New(store, extr, logger, indexer.Config{
		ResumesDir: cfg.Resumes.Dir,
		Workers:    firstPositive(workers, cfg.Index.Workers),
		BatchSize:  firstPositive(batchSize, cfg.Index.BatchSize),
	})

	engine := searcher.New(store, cch, logger, searcher.Config{
		ResumesDir:    cfg.Resumes.Dir,
		MaxConcurrent: int64(cfg.Search.MaxConcurrent),
		CacheTTL:      cfg.Search.GetCacheTTL(),
		Scoring: searcher.Scoring{
			PhraseCap:         cfg.Search.Scoring.PhraseCap,
			MultiPhraseBonus:  cfg.Search.Scoring.MultiBonus,
			SinglePhraseBonus: cfg.Search.Scoring.SingleBonus,
			MinScore:          cfg.Search.Scoring.MinScore,
		},
	})

	a := &app{cfg: cfg, logger: logger, store: store, cache: cch, index: ix, engine: engine}
	cleanup := func() {
		a.cache.Close()
		if err := a.store.Close(); err != nil {
			logger.Warn("failed to close store", zap.Error(err))
		}
		_ = logger.Sync()
	}
	return a, cleanup, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runIndex(cmd *cobra.Command, args []string) error {
	a, cleanup, err := newApp()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := signalContext()
	defer cancel()

	indexed, err := a.index.IndexAll(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Indexed %d new files\n", indexed)
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	a, cleanup, err := newApp()
	if err != nil {
		return err
	}
	defer cleanup()

	query := strings.Join(args, " ")
	if err := searcher.Validate(query); err != nil {
		switch {
		case errors.Is(err, searcher.ErrQueryTooShort):
			return fmt.Errorf("query must be at least %d characters", searcher.MinQueryLength)
		case errors.Is(err, searcher.ErrQueryTooGeneric):
			return errors.New("query is too generic, add company names, duties or numbers")
		default:
			return err
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	n := limit
	if n <= 0 {
		n = a.cfg.Search.Limit
	}
	results, err := a.engine.Search(ctx, query, n)
	if err != nil {
		return err
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("No matches found")
		return nil
	}
	for i, r := range results {
		fmt.Printf("%d. %s (%s)\n", i+1, r.CandidateName, r.Filename)
		fmt.Printf("   score %.2f, level %s\n", r.RelevanceScore, r.SearchLevel)
		if r.Snippet != "" {
			fmt.Printf("   %s\n", r.Snippet)
		}
	}
	return nil
}

func runCleanup(cmd *cobra.Command, args []string) error {
	a, cleanup, err := newApp()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := signalContext()
	defer cancel()

	deleted, err := a.index.CleanupMissing(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Removed %d stale entries\n", deleted)
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	a, cleanup, err := newApp()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := signalContext()
	defer cancel()

	stats, err := a.index.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Files on disk:   %d\n", stats.FilesOnDisk)
	fmt.Printf("Indexed files:   %d\n", stats.Index.TotalIndexedFiles)
	fmt.Printf("Full-text rows:  %d\n", stats.Index.TotalFTSRows)
	fmt.Printf("Corpus size:     %.1f MB\n", stats.Index.TotalSizeMB)
	fmt.Printf("Database size:   %.1f MB\n", stats.Index.DBSizeMB)
	return nil
}

func runOptimize(cmd *cobra.Command, args []string) error {
	a, cleanup, err := newApp()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := signalContext()
	defer cancel()

	if err := a.store.Optimize(ctx); err != nil {
		return err
	}
	fmt.Println("Database optimized")
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
