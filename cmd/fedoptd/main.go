// Command fedoptd runs the federated prompt-optimization daemon: an
// HTTP API that enqueues optimization runs onto a persistent job queue
// and serves population and queue status.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prompterlab/fedopt/pkg/config"
	"github.com/prompterlab/fedopt/pkg/fpo"
	"github.com/prompterlab/fedopt/pkg/logging"
	"github.com/prompterlab/fedopt/pkg/providers"
	"github.com/prompterlab/fedopt/pkg/queue"
	"github.com/prompterlab/fedopt/pkg/samples"
	"github.com/prompterlab/fedopt/pkg/similarity"
	"github.com/prompterlab/fedopt/pkg/storage"
)

func main() {
	configPath := flag.String("config", "fedopt.yaml", "path to the configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "fedoptd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := setupLogging(cfg.Logging)
	if err != nil {
		return err
	}
	logging.SetLogger(logger)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	provider, err := providers.FromConfig(cfg.Providers)
	if err != nil {
		return err
	}
	logger.Info(ctx, "using provider %s", provider.ProviderName())

	evaluator := fpo.NewEvaluator(provider, similarity.TokenF1, cfg.FPO.MinCallInterval.Std())
	aggregator := fpo.NewAggregator(evaluator)

	var evolution *fpo.Evolution
	if cfg.FPO.EvolutionEvery > 0 {
		evolution = fpo.NewEvolution(provider, fpo.WithMutation(cfg.FPO.MutationEnabled))
	}

	popStore := fpo.NewStore(store)
	source := samples.NewFSSource(cfg.Samples.Root, time.Now().UnixNano())
	orchestrator := fpo.NewOrchestrator(popStore, aggregator, evolution, source, cfg.FPO.MaxPopulation)

	seeds := make([]fpo.Seed, 0, len(cfg.FPO.Seeds))
	for _, s := range cfg.FPO.Seeds {
		seeds = append(seeds, fpo.Seed{Name: s.Name, Text: s.Text})
	}
	if _, err := orchestrator.Bootstrap(ctx, seeds, cfg.FPO.Domains); err != nil {
		return err
	}

	jobQueue, err := queue.New(ctx, store)
	if err != nil {
		return err
	}

	service := fpo.NewService(orchestrator, popStore)
	manager := queue.NewManager(jobQueue, cfg.Queue.PollInterval.Std(), cfg.Queue.MaxConcurrentCategories)
	manager.Register(fpo.QueueCategory, service.HandleRunJob)
	manager.Start(ctx)
	defer manager.Stop()

	srv := &http.Server{
		Addr: cfg.HTTP.Addr,
		Handler: newRouter(&server{
			service:        service,
			queue:          jobQueue,
			defaultCadence: cfg.FPO.EvolutionEvery,
		}),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "listening on %s", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info(ctx, "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func setupLogging(cfg config.LoggingConfig) (*logging.Logger, error) {
	outputs := []logging.Output{logging.NewConsoleOutput(true)}
	if cfg.File != "" {
		fileOut, err := logging.NewFileOutput(cfg.File)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, fileOut)
	}

	return logging.NewLogger(logging.Config{
		Severity: logging.ParseSeverity(cfg.Level),
		Outputs:  outputs,
	}), nil
}
