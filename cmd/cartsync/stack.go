package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cartsync/internal/app"
	serviceerrors "cartsync/internal/service"
	"cartsync/pkg/config"
	"cartsync/pkg/lib/logger"

	"github.com/spf13/cobra"
)

// openApp loads configuration and builds the full stack. Logs go to stderr
// so stdout carries only command output.
func openApp(cmd *cobra.Command) (*app.App, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	log, err := logger.SetupLogger(cfg.HTTP.Env, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, err
	}

	application, err := app.New(log, cfg)
	if err != nil {
		return nil, nil, err
	}

	return application, log, nil
}

// restore resumes the persisted session for commands that need one.
func restore(ctx context.Context, application *app.App) error {
	_, err := application.Session.Restore(ctx)
	switch {
	case errors.Is(err, serviceerrors.ErrNoSession):
		return errors.New("not signed in, run `cartsync login` first")
	case errors.Is(err, serviceerrors.ErrSessionExpired):
		return errors.New("session expired, run `cartsync login` again")
	case err != nil:
		return fmt.Errorf("restore session: %w", err)
	}
	return nil
}
