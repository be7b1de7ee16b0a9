// Package app wires the local store, the backend client and the session
// together and serves the local gateway.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"cartsync/internal/backend/httpapi"
	"cartsync/internal/database/sqlstore"
	carthandler "cartsync/internal/handlers/cart"
	sessionhandler "cartsync/internal/handlers/session"
	"cartsync/internal/models"
	"cartsync/internal/pricing"
	"cartsync/internal/routes"
	"cartsync/internal/session"
	"cartsync/pkg/config"
	"cartsync/pkg/lib/logger/sl"
)

type App struct {
	log     *slog.Logger
	cfg     *config.Config
	storage *sqlstore.Storage
	policy  pricing.Policy
	Session *session.Manager
}

func New(log *slog.Logger, cfg *config.Config) (*App, error) {
	const op = "app.New"

	storage, err := sqlstore.New(log, cfg.Storage.Driver, cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	client, err := httpapi.New(log, cfg.Backend.BaseURL, cfg.Backend.Timeout)
	if err != nil {
		_ = storage.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	policy := pricing.Policy{
		FreeDeliveryThreshold: models.Money(cfg.Pricing.FreeDeliveryThreshold),
		FlatDeliveryFee:       models.Money(cfg.Pricing.FlatDeliveryFee),
	}

	manager := session.New(log, client, client, storage, policy)
	client.UseCredentials(manager)

	return &App{
		log:     log,
		cfg:     cfg,
		storage: storage,
		policy:  policy,
		Session: manager,
	}, nil
}

func (a *App) Policy() pricing.Policy {
	return a.policy
}

func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	routes.New(
		carthandler.New(a.log, a.Session),
		sessionhandler.New(a.log, a.Session),
	).Register(mux)
	return mux
}

// Run serves on the configured port until ctx is done.
func (a *App) Run(ctx context.Context) error {
	const op = "app.Run"

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", a.cfg.HTTP.Port))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return a.Serve(ctx, ln)
}

func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	const op = "app.Serve"
	log := a.log.With("op", op, "addr", ln.Addr().String())

	server := &http.Server{
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(ln)
	}()

	log.Info("Gateway started")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("%s: %w", op, err)
	case <-ctx.Done():
	}

	log.Info("Shutting down gateway")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	<-errCh

	return nil
}

func (a *App) Close() error {
	a.log.Info("Closing database")
	return a.storage.Close()
}
