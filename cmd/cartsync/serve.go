package main

import (
	"errors"
	"os/signal"
	"syscall"

	serviceerrors "cartsync/internal/service"
	"cartsync/pkg/lib/logger/sl"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local cart gateway",
	Long: `Serve the cart over HTTP on the configured port. A previously stored
session is picked up when present; otherwise POST /session signs in.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	application, log, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if session, err := application.Session.Restore(ctx); err == nil {
		log.Info("Resumed stored session", "email", session.Email)
	} else if !errors.Is(err, serviceerrors.ErrNoSession) {
		log.Warn("Stored session not resumed", sl.Err(err))
	}

	return application.Run(ctx)
}
