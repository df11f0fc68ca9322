package logger

import (
	"log/slog"
	"os"
)

// New returns the root structured logger. JSON output so log pipelines can
// index on field names.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}
