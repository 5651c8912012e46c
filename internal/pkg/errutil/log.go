package errutil

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
)

// LogError logs err at error level. Errors built with oops have their code
// and context expanded into separate attributes.
func LogError(logger *slog.Logger, msg string, err error) {
	log(logger, slog.LevelError, msg, err)
}

// LogWarn is LogError for failures the caller recovers from.
func LogWarn(logger *slog.Logger, msg string, err error) {
	log(logger, slog.LevelWarn, msg, err)
}

func log(logger *slog.Logger, level slog.Level, msg string, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		logger.Log(context.Background(), level, msg, "error", err)
		return
	}
	attrs := []any{"error", oopsErr.Error()}
	if code := oopsErr.Code(); code != nil {
		attrs = append(attrs, "code", code)
	}
	if ctx := oopsErr.Context(); len(ctx) > 0 {
		attrs = append(attrs, "context", ctx)
	}
	logger.Log(context.Background(), level, msg, attrs...)
}
