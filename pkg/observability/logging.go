package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/hanconv/pkg/domain"
)

// LoggingHooks logs every event at debug level, failures at warn.
func LoggingHooks(logger *slog.Logger) domain.Hooks {
	return domain.Hooks{
		OnConvertStart: func(ctx context.Context, e *domain.ConvertEvent) {
			logger.DebugContext(ctx, "convert_start", "request_id", e.RequestID, "action", e.Action, "chars", e.Chars)
		},
		OnConvertDone: func(ctx context.Context, e *domain.ConvertEvent) {
			if e.Kind != "" {
				logger.WarnContext(ctx, "convert_done", "request_id", e.RequestID, "action", e.Action, "kind", e.Kind, "duration", e.Duration)
				return
			}
			logger.DebugContext(ctx, "convert_done", "request_id", e.RequestID, "action", e.Action, "duration", e.Duration, "cached", e.Cached)
		},
		OnProbe: func(ctx context.Context, e *domain.ProbeEvent) {
			logger.DebugContext(ctx, "probe", "target", e.Target, "present", e.Present)
		},
		OnInstall: func(ctx context.Context, e *domain.InstallEvent) {
			level := slog.LevelInfo
			if !e.Success {
				level = slog.LevelWarn
			}
			logger.Log(ctx, level, "install", "packages", e.Packages, "success", e.Success)
		},
	}
}
