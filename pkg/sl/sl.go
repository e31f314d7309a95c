package sl

import "log/slog"

// Err renders an error as a slog attribute under the "error" key.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}
