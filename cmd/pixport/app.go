package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gocloud.dev/blob"

	"github.com/vmunix/pixport/internal/config"
	"github.com/vmunix/pixport/internal/events"
	"github.com/vmunix/pixport/internal/logging"
	"github.com/vmunix/pixport/internal/migrations"
	"github.com/vmunix/pixport/internal/pixelstore"
)

// app holds the components shared by commands.
type app struct {
	cfg *config.Config
	log *slog.Logger
	db  *sql.DB
	bus *events.Bus

	closers []io.Closer
}

// loadConfig loads the config named by --config, or the discovered one.
// When no search location holds a config the defaults are used.
func loadConfig() (*config.Config, string, error) {
	path := configPath
	if path == "" {
		found, err := config.Discover()
		if errors.Is(err, config.ErrNoConfig) {
			return config.Default(), "", nil
		}
		if err != nil {
			return nil, "", err
		}
		path = found
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

func openApp(ctx context.Context) (*app, error) {
	cfg, path, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	logger, logCloser := logging.Setup(cfg.Log, os.Stderr)
	a := &app{cfg: cfg, log: logger, closers: []io.Closer{logCloser}}
	if path != "" {
		logger.Debug("loaded config", "path", path)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0755); err != nil {
		a.Close()
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := migrations.Open(ctx, cfg.Database.Path)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.db = db
	a.closers = append(a.closers, db)
	a.bus = events.NewBus(logger)
	return a, nil
}

// openBucket opens the configured storage bucket and closes it with the app.
func (a *app) openBucket(ctx context.Context) (*blob.Bucket, error) {
	bucket, err := pixelstore.OpenBucket(ctx, a.cfg.Storage.URL, a.cfg.Storage.Prefix)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, bucket)
	return bucket, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
