package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/arjundixit/portfolio_tracker/config"
	"github.com/arjundixit/portfolio_tracker/data"
	"github.com/arjundixit/portfolio_tracker/data/cache"
	"github.com/arjundixit/portfolio_tracker/data/repository/postgres"
	"github.com/arjundixit/portfolio_tracker/internal/externalApi/cloudStorageApi/googleDriveApi"
	"github.com/arjundixit/portfolio_tracker/internal/externalApi/yahooApi"
	"github.com/arjundixit/portfolio_tracker/internal/fx/rateResolver"
	"github.com/arjundixit/portfolio_tracker/internal/reportGenerator/xlsxGenerator"
	"github.com/arjundixit/portfolio_tracker/internal/scheduler"
	"github.com/arjundixit/portfolio_tracker/internal/service/portfolioService"
	"github.com/arjundixit/portfolio_tracker/internal/transport/inbox"
)

func main() {
	cfg := config.MustLoad()

	setupLogger(cfg)

	slog.Debug("config", slog.Any("cfg", cfg))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pgClient := data.NewPostgresClient(cfg)
	defer pgClient.Close()

	pgRepo := postgres.NewPostgres(cfg, pgClient)

	redisClient := data.NewRedisClient(cfg)
	defer redisClient.Close()

	redisCache := cache.NewRedisCache(redisClient, cfg)

	yahooApiClient := yahooApi.New(cfg)

	rates := rateResolver.New(cfg, yahooApiClient)

	reportGenerator := xlsxGenerator.New()

	var cloudStorage portfolioService.CloudStorage
	if cfg.GoogleDrive.Enabled {
		cloudStorage = googleDriveApi.New(ctx, cfg)
	}

	portfolioSrv := portfolioService.New(cfg, pgRepo, redisCache, yahooApiClient, rates, reportGenerator, cloudStorage)

	watcher := inbox.NewWatcher(cfg, portfolioSrv)
	if err := watcher.EnsureDirs(); err != nil {
		slog.Error("failed to prepare inbox directories", slog.String("err", err.Error()))
		panic(err)
	}

	sched := scheduler.New()
	sched.NewIntervalJob("scan statement inbox", watcher.Scan, cfg.Jobs.InboxScanInterval, true)
	if cfg.GoogleDrive.Enabled {
		sched.NewCrontabJob("export portfolio report", portfolioSrv.ExportLatestReport, cfg.Jobs.ReportExportCrontab, false)
	}
	sched.Start()
	defer sched.Stop()

	// Waiting interruption signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-interrupt
}

func setupLogger(cfg *config.Config) {
	var logLevel slog.Level

	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)
}
