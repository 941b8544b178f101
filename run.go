package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/speedrun-hq/zora-runner/pkg/batch"
	"github.com/speedrun-hq/zora-runner/pkg/chainclient"
	"github.com/speedrun-hq/zora-runner/pkg/circuitbreaker"
	"github.com/speedrun-hq/zora-runner/pkg/config"
	"github.com/speedrun-hq/zora-runner/pkg/health"
	"github.com/speedrun-hq/zora-runner/pkg/logger"
	"github.com/speedrun-hq/zora-runner/pkg/models"
	"github.com/speedrun-hq/zora-runner/pkg/notify"
	"github.com/speedrun-hq/zora-runner/pkg/results"
	"github.com/speedrun-hq/zora-runner/pkg/wallet"
)

const (
	gasMonitorInterval = time.Minute
	shutdownTimeout    = 5 * time.Second
)

// run processes the batch described by cfg
func run(ctx context.Context, cfg *config.Config) error {
	start := time.Now()

	writer, err := results.NewWriter(results.RunDir(cfg.ResultsDir, start))
	if err != nil {
		return err
	}

	logDir := results.RunDir(cfg.LogsDir, start)
	fileLogger, err := logger.NewFileLogger(filepath.Join(logDir, "console_output.txt"), cfg.LoggerConfig.Level)
	if err != nil {
		return err
	}
	defer fileLogger.Close()

	traces, err := logger.NewTraceSink(filepath.Join(logDir, "tracebacks.log"))
	if err != nil {
		return err
	}
	defer traces.Close()

	console := logger.NewStdLogger(cfg.LoggerConfig.Coloring, cfg.LoggerConfig.Level)
	base := logger.Tee(console, fileLogger)

	telegram := notify.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID, base)
	defer telegram.Close(context.Background())

	log := notify.NewLogger(base, telegram)

	entries, err := wallet.LoadEntries(cfg.WalletsFile, cfg.ProxiesFile)
	if err != nil {
		return err
	}
	log.Info("Loaded %d wallets, mode %s", len(entries), cfg.Mode)

	breaker := circuitbreaker.NewCircuitBreaker(
		cfg.CircuitBreaker.Enabled,
		cfg.CircuitBreaker.Threshold,
		cfg.CircuitBreaker.WindowDuration,
		cfg.CircuitBreaker.ResetTimeout,
		base,
	)

	driver := batch.NewDriver(entries, batch.NewRunnerFactory(cfg), writer, batch.Options{
		Password:           cfg.Password,
		NextAddressMinWait: cfg.NextAddressMinWait,
		NextAddressMaxWait: cfg.NextAddressMaxWait,
		Notifier:           telegram,
		Breaker:            breaker,
		Traces:             traces,
		Logger:             log,
		Banner:             os.Stdout,
		Coloring:           cfg.LoggerConfig.Coloring,
	})

	if cfg.MetricsPort != "" {
		stop, err := startMonitoring(ctx, cfg, breaker, driver, base)
		if err != nil {
			return err
		}
		defer stop()
	}

	err = driver.Run(ctx)

	counts := writer.Counts()
	base.Info("Results in %s: success %d, already minted %d, pending %d, failed %d",
		writer.Dir(),
		counts[models.StatusSuccess], counts[models.StatusAlreadyDone],
		counts[models.StatusPending], counts[models.StatusFailed])

	return err
}

// startMonitoring serves health and metrics and keeps the gas gauges fresh.
// The monitoring connections go direct, never through the account proxies.
func startMonitoring(ctx context.Context, cfg *config.Config, breaker *circuitbreaker.CircuitBreaker, driver *batch.Driver, log logger.Logger) (func(), error) {
	registry, err := chainclient.DialAll(ctx, cfg.Chains, config.InvolvedChains(cfg.Mode), "", log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect monitoring clients: %w", err)
	}

	var clients []*chainclient.Client
	for _, name := range registry.Names() {
		client, err := registry.Get(name)
		if err != nil {
			registry.Close()
			return nil, err
		}
		clients = append(clients, client)
	}

	monitor := chainclient.NewGasMonitor(ctx, gasMonitorInterval, log, clients...)
	monitor.Start()

	server := health.NewServer(cfg.MetricsPort, cfg.MetricsAPIKey, clients, breaker, driver.Progress, log)
	go server.Start()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("%v", err)
		}
		monitor.Stop()
		registry.Close()
	}, nil
}
