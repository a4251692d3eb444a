package cmd

import (
	"fmt"
	"log/slog"
	"os"
)

// initLogger configures the default slog logger from flags, returning an
// error if the configured log level is not recognized.
func initLogger(flags *cmdFlags) error {
	var level slog.Level

	if err := level.UnmarshalText([]byte(flags.LogLevel)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", flags.LogLevel, err)
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler

	if flags.TextFormat {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))

	return nil
}
