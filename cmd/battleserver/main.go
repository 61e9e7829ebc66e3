// Package main provides the battle server binary that serves quiz-gated
// battles over HTTP.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/quizbattle/internal/api"
	"github.com/cory-johannsen/quizbattle/internal/config"
	"github.com/cory-johannsen/quizbattle/internal/game/battle"
	"github.com/cory-johannsen/quizbattle/internal/game/combat"
	"github.com/cory-johannsen/quizbattle/internal/game/dice"
	"github.com/cory-johannsen/quizbattle/internal/game/monster"
	"github.com/cory-johannsen/quizbattle/internal/game/question"
	"github.com/cory-johannsen/quizbattle/internal/observability"
	"github.com/cory-johannsen/quizbattle/internal/scripting"
	"github.com/cory-johannsen/quizbattle/internal/server"
	"github.com/cory-johannsen/quizbattle/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting battle server", zap.String("http_addr", cfg.Server.Addr()))

	// Content
	contentStart := time.Now()
	catalog, err := monster.LoadCatalog(cfg.Content.MonstersDir)
	if err != nil {
		logger.Fatal("loading monsters", zap.Error(err))
	}
	skills, err := combat.LoadSkills(cfg.Content.SkillsDir)
	if err != nil {
		logger.Fatal("loading skills", zap.Error(err))
	}
	skillBook, err := combat.NewSkillBook(skills)
	if err != nil {
		logger.Fatal("building skill book", zap.Error(err))
	}
	evaluator := scripting.NewEvaluator(cfg.Battle.LuaInstructionLimit, logger)
	for _, s := range skillBook.All() {
		if s.Formula == "" {
			continue
		}
		if err := evaluator.Check(s.Formula); err != nil {
			logger.Fatal("invalid skill formula", zap.String("skill", s.ID), zap.Error(err))
		}
	}
	logger.Info("content loaded",
		zap.Int("monsters", len(catalog.All())),
		zap.Int("skills", len(skillBook.All())),
		zap.Duration("elapsed", time.Since(contentStart)),
	)

	variance, err := dice.Parse(cfg.Battle.DamageVariance)
	if err != nil {
		logger.Fatal("parsing damage variance", zap.Error(err))
	}
	rules := combat.Rules{
		DefendReductionPercent: cfg.Battle.DefendReductionPercent,
		DefendEnergyBonus:      cfg.Battle.DefendEnergyBonus,
		Variance:               variance,
	}
	if err := rules.Validate(); err != nil {
		logger.Fatal("invalid battle rules", zap.Error(err))
	}
	resolver := combat.NewResolver(rules, skillBook, evaluator, logger)

	// Connect to PostgreSQL for characters and battle persistence
	dbStart := time.Now()
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("connecting to database", zap.Error(err))
	}
	logger.Info("database connected",
		zap.String("host", cfg.Database.Host),
		zap.Duration("elapsed", time.Since(dbStart)),
	)
	charRepo := postgres.NewCharacterRepository(pool.DB())
	battleRepo := postgres.NewBattleRepository(pool.DB(), logger)

	var provider question.Provider
	switch cfg.Content.QuestionSource {
	case config.QuestionSourcePostgres:
		provider = postgres.NewQuestionRepository(pool.DB())
	default:
		fileBank, err := question.LoadFileBank(cfg.Content.QuestionsDir, dice.NewCryptoSource())
		if err != nil {
			logger.Fatal("loading questions", zap.Error(err))
		}
		logger.Info("question bank loaded", zap.Int("questions", fileBank.Len()))
		provider = fileBank
	}

	registry := battle.NewRegistry(catalog, provider, resolver, battleRepo, logger, battle.Options{
		StartingEnergy: cfg.Battle.StartingEnergy,
	})

	handler := api.NewHandler(registry, charRepo, battleRepo, api.Content{
		Monsters: catalog.All(),
		Skills:   skillBook.All(),
	}, logger)

	httpSvc := server.NewHTTPService(
		cfg.Server.Addr(),
		api.NewRouter(handler, logger),
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
		cfg.Server.ShutdownTimeout,
		logger,
	)
	if err := httpSvc.Listen(); err != nil {
		logger.Fatal("listening", zap.Error(err))
	}

	// Wire lifecycle; services stop in reverse order, so HTTP drains before the pool closes.
	lifecycle := server.NewLifecycle(logger)
	dbDone := make(chan struct{})
	lifecycle.Add("database", &server.FuncService{
		StartFn: func() error {
			<-dbDone
			return nil
		},
		StopFn: func() {
			pool.Close()
			close(dbDone)
		},
	})
	lifecycle.Add("http", httpSvc)

	logger.Info("battle server ready",
		zap.String("addr", httpSvc.Addr()),
		zap.Duration("startup", time.Since(start)),
	)
	if err := lifecycle.Run(ctx); err != nil {
		logger.Error("battle server stopped with error", zap.Error(err))
		return
	}
	logger.Info("battle server stopped", zap.Int("live_battles", registry.Count()))
}
