// Package app wires the identity core together: config, logging, the
// sqlite store, the mail dispatcher and the two services. The HTTP/transport
// surface belongs to the host application, which embeds an Application and
// calls the services directly.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/quillgate/portal/internal/identity/notify"
	"github.com/quillgate/portal/internal/identity/service"
	"github.com/quillgate/portal/internal/identity/store"
	"github.com/quillgate/portal/internal/identity/store/drivers/sqlite"
	"github.com/quillgate/portal/pkg/slogx"
)

const BuildVersion = "v0.1.0"

// Application bundles the identity core with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db store.Store

	Invitations *service.InvitationService
	MFA         *service.MFAService
}

// New initializes the store (applying migrations), picks the dispatcher and
// constructs the services.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "identity-core",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	db, err := sqlite.NewStore(cfg.DatabaseFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}
	app.db = db

	var notifier notify.Notifier = notify.Nop{}
	if cfg.SendGridKey != "" {
		notifier = &notify.SendGrid{
			APIKey:   cfg.SendGridKey,
			From:     cfg.MailFrom,
			FromName: cfg.MailFromName,
			BaseURL:  cfg.BaseURL,
		}
	} else {
		app.logger.Warn("no SendGrid key configured, invitation mail disabled")
	}

	app.Invitations = &service.InvitationService{
		Store:    db,
		Notifier: notifier,
		TTL:      cfg.InvitationTTL,
	}
	app.MFA = &service.MFAService{
		Store:  db,
		Issuer: cfg.Issuer,
	}

	return app, nil
}

// Ping reports whether the backing store is reachable.
func (app *Application) Ping(ctx context.Context) error {
	return app.db.Ping(ctx)
}

// Close releases the store.
func (app *Application) Close() error {
	return app.db.Close()
}
