package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/kyuwon-dev/kisengine/internal/broker/paper"
	"github.com/kyuwon-dev/kisengine/internal/config"
	"github.com/kyuwon-dev/kisengine/internal/engine"
	"github.com/kyuwon-dev/kisengine/internal/journal"
	"github.com/kyuwon-dev/kisengine/internal/journal/archive"
	"github.com/kyuwon-dev/kisengine/internal/logger"
	"github.com/kyuwon-dev/kisengine/internal/metrics"
	"github.com/kyuwon-dev/kisengine/internal/notifier"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the trading engine loop",
	RunE:  runEngine,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runEngine(cmd *cobra.Command, args []string) error {
	// Optional .env for local credentials; absence is fine.
	_ = godotenv.Load()

	log := logger.Must(debug)
	defer log.Sync()

	store, err := config.NewStore(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg := store.Current()

	if cfg.TradingMode == config.ModeReal {
		return fmt.Errorf("trading_mode %q is not supported by this build; only paper trading is available", config.ModeReal)
	}

	b := paper.New(cfg.Paper)
	log.Info("starting kisengine",
		zap.String("broker", b.Name()),
		zap.String("config", store.Path()),
		zap.Int("loop_interval_seconds", cfg.LoopIntervalSeconds),
	)

	reg := metrics.NewRegistry()
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go func() {
			log.Info("metrics listener started",
				zap.String("listen", cfg.Metrics.Listen),
				zap.String("path", cfg.Metrics.Path))
			if err := http.ListenAndServe(cfg.Metrics.Listen, mux); err != nil {
				log.Error("metrics listener error", zap.Error(err))
			}
		}()
	}

	var jnl *journal.Journal
	if cfg.Journal.Enabled {
		jnl, err = openJournal(cfg.Journal, log)
		if err != nil {
			return fmt.Errorf("opening journal: %w", err)
		}
		defer jnl.Close()
	}

	eng := engine.New(engine.Deps{
		Store:    store,
		Broker:   b,
		Metrics:  reg,
		Journal:  jnl,
		Notifier: notifier.NewWebhook(cfg.Notify.Webhook.URL, cfg.Notify.Webhook.Headers, log),
		Logger:   log,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := eng.Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

func openJournal(cfg config.JournalConfig, log *zap.Logger) (*journal.Journal, error) {
	store, err := archiveStorage(cfg)
	if err != nil {
		return nil, err
	}
	return journal.New(cfg.Dir, store, log)
}

// archiveStorage builds the configured cold-storage backend; nil when the
// config names none.
func archiveStorage(cfg config.JournalConfig) (archive.Storage, error) {
	switch cfg.Archive.Type {
	case "s3":
		return archive.NewS3(archive.S3Config{
			Bucket:    cfg.Archive.S3.Bucket,
			Endpoint:  cfg.Archive.S3.Endpoint,
			Region:    cfg.Archive.S3.Region,
			AccessKey: cfg.Archive.S3.AccessKey,
			SecretKey: cfg.Archive.S3.SecretKey,
			Prefix:    cfg.Archive.S3.Prefix,
		})
	case "localfs":
		return archive.NewLocalFS(cfg.Archive.Path)
	}
	return nil, nil
}
