// Package main imports trivia questions into the PostgreSQL question bank.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/quizbattle/internal/config"
	"github.com/cory-johannsen/quizbattle/internal/importer"
	"github.com/cory-johannsen/quizbattle/internal/importer/csvsource"
	"github.com/cory-johannsen/quizbattle/internal/observability"
	"github.com/cory-johannsen/quizbattle/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	format := flag.String("format", "yaml", "source format: yaml or csv")
	sourceDir := flag.String("source", "", "path to source question directory (default: content.questions_dir)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}
	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "creating logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	var src importer.Source
	switch *format {
	case "yaml":
		src = importer.YAMLSource{}
	case "csv":
		src = csvsource.NewSource()
	default:
		logger.Fatal("unknown format (supported: yaml, csv)", zap.String("format", *format))
	}

	dir := *sourceDir
	if dir == "" {
		dir = cfg.Content.QuestionsDir
	}

	start := time.Now()
	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("connecting to database", zap.Error(err))
	}
	defer pool.Close()

	imp := importer.New(src, postgres.NewQuestionRepository(pool.DB()), logger)
	n, err := imp.Run(ctx, dir)
	if err != nil {
		logger.Fatal("import failed", zap.Error(err), zap.Int("written", n))
	}
	logger.Info("import complete",
		zap.String("source", dir),
		zap.Int("questions", n),
		zap.Duration("elapsed", time.Since(start).Round(time.Millisecond)),
	)
}
