package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/hieund/repostbot/internal/browser"
	"github.com/hieund/repostbot/internal/channels/telegram"
	"github.com/hieund/repostbot/internal/config"
	"github.com/hieund/repostbot/internal/logger"
	"github.com/hieund/repostbot/internal/metrics"
	"github.com/hieund/repostbot/internal/processor"
	"github.com/hieund/repostbot/internal/resolver"
	"github.com/hieund/repostbot/internal/scheduler"
	"github.com/hieund/repostbot/internal/store"
)

var (
	serveConfigPath string
	serveLogLevel   string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the republishing bot (main command)",
	Long: `Start the republishing bot with the specified configuration.
This initializes all components (store, resolver, browser controller,
scheduler, Telegram channel) and handles graceful shutdown.`,
	Run: serveHandler,
}

func init() {
	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "c", "", "path to config file")
	serveCmd.Flags().StringVarP(&serveLogLevel, "log-level", "l", "", "override log level")
}

func serveHandler(cmd *cobra.Command, args []string) {
	// Load .env if present; a missing file is fine.
	_ = godotenv.Load()

	configPath := serveConfigPath
	if configPath == "" {
		configPath = defaultConfigPath
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf("❌ Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if serveLogLevel != "" {
		cfg.Logging.Level = serveLogLevel
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		fmt.Printf("❌ Configuration validation failed:\n")
		for _, e := range errs {
			fmt.Printf("  - %v\n", e)
		}
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		fmt.Printf("❌ Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.Info("🚀 Starting Repostbot",
		logger.Field{Key: "version", Value: Version},
		logger.Field{Key: "git_commit", Value: GitCommit},
		logger.Field{Key: "config", Value: configPath},
		logger.Field{Key: "store", Value: cfg.Store.Path},
		logger.Field{Key: "target_url", Value: cfg.Browser.TargetURL})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		log.Error("Failed to open job store", err)
		os.Exit(1)
	}
	defer st.Close()

	resolverClient, err := resolver.NewClient(resolver.Config{
		APIURL:          cfg.Resolver.APIURL,
		APIKey:          cfg.Resolver.APIKey,
		DownloadDir:     cfg.Resolver.DownloadDir,
		RequestTimeout:  time.Duration(cfg.Resolver.RequestTimeoutSeconds) * time.Second,
		DownloadTimeout: time.Duration(cfg.Resolver.DownloadTimeoutSeconds) * time.Second,
	}, log)
	if err != nil {
		log.Error("Failed to initialize resolver client", err)
		os.Exit(1)
	}

	controller := browser.NewController(browser.Config{
		Headless:          cfg.Browser.Headless,
		Stealth:           cfg.Browser.Stealth,
		TargetURL:         cfg.Browser.TargetURL,
		DiagnosticsDir:    cfg.Browser.DiagnosticsDir,
		UserAgent:         cfg.Browser.UserAgent,
		PageLoadWait:      time.Duration(cfg.Browser.PageLoadWaitSeconds) * time.Second,
		SessionReloadWait: time.Duration(cfg.Browser.SessionReloadWaitSeconds) * time.Second,
		ProcessingWait:    time.Duration(cfg.Browser.ProcessingWaitSeconds) * time.Second,
		FinalizeWait:      time.Duration(cfg.Browser.FinalizeWaitSeconds) * time.Second,
		ConfirmWait:       time.Duration(cfg.Browser.ConfirmWaitSeconds) * time.Second,
		SelectorWait:      time.Duration(cfg.Browser.SelectorWaitSeconds) * time.Second,
	}, log)

	var recorder processor.Recorder
	if cfg.Metrics.Enabled {
		m := metrics.New("repostbot", nil)
		recorder = m
		metricsSrv := &http.Server{Addr: cfg.Metrics.Listen, Handler: promhttp.Handler()}
		go func() {
			log.Info("📈 Metrics endpoint listening",
				logger.Field{Key: "addr", Value: cfg.Metrics.Listen})
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("Metrics server failed", err)
			}
		}()
		defer metricsSrv.Shutdown(context.Background()) //nolint:errcheck
	}

	tg := telegram.New(cfg.Telegram, st, cfg.Resolver.DownloadDir, log)
	if err := tg.Start(ctx); err != nil {
		log.Error("Failed to start Telegram connector", err)
		os.Exit(1)
	}

	proc := processor.New(st, resolverClient, controller, tg, recorder, log)

	sched := scheduler.New(scheduler.Config{
		PollInterval:    time.Duration(cfg.Scheduler.PollIntervalMinutes) * time.Minute,
		InterJobDelay:   time.Duration(cfg.Scheduler.InterJobDelaySeconds) * time.Second,
		CleanupInterval: time.Duration(cfg.Scheduler.CleanupIntervalHours) * time.Hour,
		CleanupMaxAge:   time.Duration(cfg.Scheduler.CleanupMaxAgeHours) * time.Hour,
	}, st, proc, resolverClient, log)
	if err := sched.Start(ctx); err != nil {
		log.Error("Failed to start scheduler", err)
		os.Exit(1)
	}

	log.Info("✅ Repostbot is running, press Ctrl+C to stop")

	<-sigChan
	log.Info("Shutdown signal received")

	if err := sched.Stop(); err != nil {
		log.Error("Failed to stop scheduler", err)
	}
	if err := tg.Stop(); err != nil {
		log.Error("Failed to stop Telegram connector", err)
	}
	cancel()

	log.Info("👋 Repostbot stopped")
}
