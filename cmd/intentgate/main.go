package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"

	"intentgate/internal/cli"
	"intentgate/internal/comparator"
	"intentgate/internal/config"
	"intentgate/internal/db"
	"intentgate/internal/detector"
	"intentgate/internal/generator"
	"intentgate/internal/llm"
	"intentgate/internal/parser"
	"intentgate/internal/repository"
	"intentgate/internal/service"
	"intentgate/internal/voting"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// DB path: configured, or default ~/.intentgate/intentgate.db
	dbPath := cfg.DBPath
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("finding home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".intentgate", "intentgate.db")
	}

	database, err := db.OpenDB(dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	ledgerRepo := repository.NewSQLiteLedgerRepo(database)
	elevationRepo := repository.NewSQLiteElevationRepo(database)

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	// Parser ensemble: the deterministic rule parser always runs; LLM
	// parsers join only when enabled.
	parsers := []parser.Parser{parser.NewRuleParser()}
	if cfg.LLM.Enabled {
		client := llm.NewOllamaClient(cfg.LLM, log)
		for i := 0; i < cfg.LLM.Parsers; i++ {
			parsers = append(parsers, parser.NewLLMParser(fmt.Sprintf("llm_v1_%d", i), client))
		}
	}
	ensemble := parser.NewEnsemble(parsers, time.Duration(cfg.ParserTimeoutMs)*time.Millisecond, log)

	engine, err := voting.NewEngine(cfg.HighConfidenceThreshold, cfg.LowConfidenceThreshold, cfg.MinParsers)
	if err != nil {
		return err
	}

	signer, err := generator.NewSigner(cfg.Signing)
	if err != nil {
		return err
	}
	gen := generator.New(cfg, signer)

	var observers []service.Observer
	if cfg.LogRequests {
		observers = append(observers, service.NewLogObserver(os.Stderr))
	}

	notifier := service.NewLogNotifier(log)
	if cfg.Notify.WebhookURL != "" {
		notifier = service.NewWebhookNotifier(cfg.Notify, log)
	}

	proc := service.StubProcessor{}
	pipeline := service.NewPipelineService(
		detector.New(cfg.BlockThreshold),
		ensemble,
		engine,
		comparator.New(&cfg.Policy),
		gen,
		proc,
		ledgerRepo,
		elevationRepo,
		notifier,
		observers...,
	)
	elevations := service.NewElevationService(elevationRepo, ledgerRepo, gen, proc, observers...)

	app := &cli.App{
		Pipeline:   pipeline,
		Elevations: elevations,
		Ledger:     ledgerRepo,
		Config:     cfg,
	}
	app.IsInteractive = func() bool {
		return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	}

	return cli.NewRootCmd(app).Execute()
}
