// Package app assembles the assistant's components from the process
// configuration and runs the HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/nhle/mail-assistant/internal/config"
	"github.com/nhle/mail-assistant/internal/credential"
	"github.com/nhle/mail-assistant/internal/directory"
	"github.com/nhle/mail-assistant/internal/handler"
	"github.com/nhle/mail-assistant/internal/logger"
	"github.com/nhle/mail-assistant/internal/model"
	"github.com/nhle/mail-assistant/internal/service"
	"github.com/nhle/mail-assistant/internal/store"
	appsync "github.com/nhle/mail-assistant/internal/sync"
)

const shutdownTimeout = 10 * time.Second

// App holds the wired components of a running assistant.
type App struct {
	cfg *config.Config
	log logger.Logger

	Settings *model.SettingsStore
	Activity store.Store
	Service  *service.Assistant
	Poller   *appsync.Poller
	HTTP     *fiber.App
}

// NewLogger builds the process logger from cfg.
func NewLogger(cfg *config.Config) (logger.Logger, error) {
	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	return logger.New(
		logger.WithLevel(level),
		logger.WithFormat(logger.Format(cfg.Log.Format)),
	), nil
}

// OpenSettings loads the settings file, routing secrets through the
// system keyring when the keyring backend is selected.
func OpenSettings(cfg *config.Config) (*model.SettingsStore, error) {
	var vault model.SecretVault
	if cfg.Storage.SecretsBackend == config.SecretsKeyring {
		v, err := credential.Open(cfg.Storage.KeyringDir)
		if err != nil {
			return nil, err
		}
		vault = v
	}

	settings, err := model.NewSettingsStore(cfg.Storage.SettingsFile, vault)
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	return settings, nil
}

// New wires every component. The returned App owns the activity store
// and must be closed.
func New(cfg *config.Config, log logger.Logger) (*App, error) {
	if log == nil {
		log = logger.Nop()
	}

	settings, err := OpenSettings(cfg)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, log: log, Settings: settings}

	opts := []service.Option{
		service.WithLogger(log),
		service.WithMarkAnswered(cfg.Mail.MarkAnswered),
	}
	if cfg.Storage.ActivityDB != "" {
		s, err := store.NewSQLiteStore(cfg.Storage.ActivityDB)
		if err != nil {
			return nil, fmt.Errorf("opening activity log: %w", err)
		}
		a.Activity = s
		opts = append(opts, service.WithRecorder(s))
	}

	a.Service = service.New(
		settings,
		service.NewAdapterFactory(cfg, log),
		directory.New(),
		opts...,
	)
	a.Poller = appsync.New(a.Service.PollOnce, cfg.Server.PollInterval, log)

	a.HTTP = handler.NewApp()
	handler.SetupRoutes(a.HTTP, handler.Handlers{
		Config:   handler.NewConfigHandler(settings, a.Poller, log),
		Email:    handler.NewEmailHandler(a.Service, log),
		Monitor:  handler.NewMonitorHandler(a.Service, a.Poller, log),
		Activity: handler.NewActivityHandler(a.Activity, log),
	}, cfg.Log.Level == "debug")

	return a, nil
}

// Run starts the poller and serves HTTP until ctx is cancelled or the
// listener fails.
func (a *App) Run(ctx context.Context) error {
	a.Poller.Start(ctx)
	defer a.Poller.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.HTTP.Listen(a.cfg.Server.HTTPAddr)
	}()

	a.log.Info("server started",
		"addr", a.cfg.Server.HTTPAddr,
		"settings", a.Settings.Path(),
		"configured", a.Settings.Configured(),
		"poll_interval", a.cfg.Server.PollInterval,
	)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.log.Info("shutting down")
	if err := a.HTTP.ShutdownWithTimeout(shutdownTimeout); err != nil {
		return fmt.Errorf("stopping http server: %w", err)
	}
	return nil
}

// Close releases the activity store.
func (a *App) Close() error {
	var errs []error
	if a.Poller != nil {
		a.Poller.Stop()
	}
	if a.Activity != nil {
		errs = append(errs, a.Activity.Close())
	}
	return errors.Join(errs...)
}
