package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/neoluxis/gua4destiny/internal/api"
	"github.com/neoluxis/gua4destiny/internal/config"
	"github.com/neoluxis/gua4destiny/internal/divination"
	collyfetcher "github.com/neoluxis/gua4destiny/internal/fetcher/colly"
	"github.com/neoluxis/gua4destiny/internal/fulltext"
	"github.com/neoluxis/gua4destiny/internal/gua"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE:  runServeCommand,
	}
}

func runServeCommand(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadEnvironment()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	texts, err := buildFulltextService(cfg, logger)
	if err != nil {
		return fmt.Errorf("init fulltext service: %w", err)
	}
	engine := divination.NewEngine(divination.WithMethod(cfg.Divination.Method))
	server := api.NewServer(engine, texts, gua.DefaultCategory(), logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("starting server", zap.String("addr", addr))
	return server.ListenAndServe(ctx, addr)
}

// buildFulltextService wires the orchestrator with the colly fetcher.
func buildFulltextService(cfg config.Config, logger *zap.Logger) (*fulltext.Service, error) {
	registry, err := fulltext.NewBuiltinRegistry(gua.DefaultCategory())
	if err != nil {
		return nil, err
	}
	fetcher := collyfetcher.New(collyfetcher.Config{Timeout: cfg.Fulltext.Timeout()})
	return fulltext.NewService(registry, gua.DefaultCategory(), fetcher, fulltext.Options{
		CacheDir:   cfg.Fulltext.CacheDir,
		MinDelay:   cfg.Fulltext.MinDelay(),
		MaxDelay:   cfg.Fulltext.MaxDelay(),
		MaxRetries: cfg.Fulltext.MaxRetries,
		Timeout:    cfg.Fulltext.Timeout(),
		UserAgents: cfg.Fulltext.UserAgents,
		Sources:    cfg.Fulltext.Sources,
	}, logger)
}
