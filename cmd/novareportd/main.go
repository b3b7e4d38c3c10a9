// Command novareportd mirrors the latest daily report into blob storage and
// Postgres and serves the mirrored reports as rendered pages.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/david-andreasson/novareport/internal/api"
	"github.com/david-andreasson/novareport/internal/archive"
	"github.com/david-andreasson/novareport/internal/mirror"
	"github.com/david-andreasson/novareport/internal/platform"
	appconfig "github.com/david-andreasson/novareport/pkg/config"
	"github.com/david-andreasson/novareport/pkg/logger"
)

type config struct {
	Port         string
	DatabaseURL  string
	ServiceToken string
	RefreshKey   string
	Interval     time.Duration
	App          *appconfig.Config
}

func loadConfig() (config, error) {
	app, err := appconfig.Load(os.Getenv("NOVAREPORT_CONFIG"))
	if err != nil {
		return config{}, err
	}

	interval := mirror.DefaultInterval
	if v := os.Getenv("MIRROR_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return config{}, fmt.Errorf("MIRROR_INTERVAL must be a positive duration, got %q", v)
		}
		interval = d
	}

	cfg := config{
		Port:         envOrDefault("PORT", "8090"),
		DatabaseURL:  envOrDefault("DATABASE_URL", "postgres://localhost:5432/novareport?sslmode=disable"),
		ServiceToken: os.Getenv("NOVAREPORT_SERVICE_TOKEN"),
		RefreshKey:   os.Getenv("MIRROR_REFRESH_KEY"),
		Interval:     interval,
		App:          app,
	}
	if cfg.ServiceToken == "" {
		return config{}, errors.New("NOVAREPORT_SERVICE_TOKEN must be set")
	}
	return cfg, nil
}

func main() {
	lggr, err := logger.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "create logger: %v\n", err)
		os.Exit(1)
	}
	defer lggr.Sync()

	if err := run(lggr); err != nil {
		lggr.Errorw("novareportd stopped", "err", err)
		lggr.Sync()
		os.Exit(1)
	}
}

func run(lggr logger.Logger) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := platform.OpenDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := platform.AutoMigrate(db); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	storage, err := archive.New(ctx, cfg.App.Archive)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}

	client := api.NewClient(cfg.App.API.BaseURL, cfg.App.API.Timeout, lggr).WithToken(cfg.ServiceToken)
	svc := mirror.NewService(client, storage, mirror.NewPGRepository(db), nil, lggr)

	mux := http.NewServeMux()
	mirror.NewHandler(svc, db.PingContext, lggr).RegisterRoutes(mux, cfg.RefreshKey)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mirror.CORS(mirror.RequestLog(lggr.Named("http"))(mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go svc.Run(ctx, cfg.Interval)

	errCh := make(chan error, 1)
	go func() {
		lggr.Infow("starting novareportd", "port", cfg.Port, "archive", cfg.App.Archive.Backend, "interval", cfg.Interval)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	lggr.Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
