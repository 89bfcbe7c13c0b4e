package cfg

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// SetupLogger installs the default slog logger. The returned closer flushes
// the rotating log file, if any.
func SetupLogger(c *Cfg) io.Closer {
	var out io.Writer = os.Stdout
	var closer io.Closer = io.NopCloser(nil)

	if c.LogFile != "" {
		rotating := &lumberjack.Logger{
			Filename: c.LogFile,
			MaxSize:  100,
			MaxAge:   30,
			Compress: true,
		}
		out = rotating
		closer = rotating
	}

	slog.SetDefault(slog.New(newHandler(out, c.LogFormat, c.Debug)))
	return closer
}

func newHandler(out io.Writer, format string, debug bool) slog.Handler {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	if format == "json" {
		return slog.NewJSONHandler(out, opts)
	}
	return slog.NewTextHandler(out, opts)
}
