package telemetry

import (
	"io"
	"log/slog"
	"os"
)

// InitSlog installs the process wide logger. Logs go to stderr so that
// stdout stays free for command output.
func InitSlog(debug bool) {
	slog.SetDefault(slog.New(newHandler(os.Stderr, debug)))
}

func newHandler(out io.Writer, debug bool) slog.Handler {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.NewTextHandler(out, &slog.HandlerOptions{
		Level:     level,
		AddSource: debug,
	})
}
