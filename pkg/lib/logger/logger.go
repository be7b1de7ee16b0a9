package logger

import (
	"cartsync/pkg/config"
	"cartsync/pkg/lib/logger/handler/slogpretty"
	"errors"
	"io"
	"log/slog"
)

// SetupLogger builds the process logger for env. Output goes to out so the
// CLI can keep stdout for command results.
func SetupLogger(env string, out io.Writer) (*slog.Logger, error) {
	var log *slog.Logger

	switch env {
	case config.EnvLocal:
		log = setupPrettySlog(out)
	case config.EnvDev:
		log = slog.New(
			slog.NewJSONHandler(out, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case config.EnvProd:
		log = slog.New(
			slog.NewJSONHandler(out, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		return nil, errors.New("failed to init logger: wrong env variable")
	}

	return log, nil
}

func setupPrettySlog(out io.Writer) *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	handler := opts.NewPrettyHandler(out)

	return slog.New(handler)
}
