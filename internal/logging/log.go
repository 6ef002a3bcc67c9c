package logging

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
)

// LogError logs err at error level. For oops errors the code and context are added as
// separate attributes.
func LogError(logger *slog.Logger, msg string, err error, attrs ...any) {
	logAt(logger, slog.LevelError, msg, err, attrs...)
}

// LogWarn is LogError at warn level, for failures that degrade gracefully.
func LogWarn(logger *slog.Logger, msg string, err error, attrs ...any) {
	logAt(logger, slog.LevelWarn, msg, err, attrs...)
}

func logAt(logger *slog.Logger, level slog.Level, msg string, err error, attrs ...any) {
	if logger == nil {
		return
	}
	if oopsErr, ok := oops.AsOops(err); ok {
		attrs = append(attrs, "error", oopsErr.Error())
		if code := oopsErr.Code(); code != nil {
			attrs = append(attrs, "code", code)
		}
		if ctx := oopsErr.Context(); len(ctx) > 0 {
			attrs = append(attrs, "context", ctx)
		}
	} else if err != nil {
		attrs = append(attrs, "error", err.Error())
	}
	logger.Log(context.Background(), level, msg, attrs...)
}
