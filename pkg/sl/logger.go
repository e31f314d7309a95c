package sl

import (
	"io"
	"log/slog"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

// NewLogger picks the handler for the deployment environment. Unknown values fall back to prod settings.
func NewLogger(env string, w io.Writer) *slog.Logger {
	switch env {
	case EnvLocal:
		return slog.New(NewPrettyHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case EnvDev:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	default:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
}
