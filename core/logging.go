package core

import (
	"io"
	"log/slog"
	"os"
	"path"

	"github.com/encodeous/tint"
	slogmulti "github.com/samber/slog-multi"
)

// NewLogger builds the console logger for one router, optionally fanned out
// to a plain text log file shared by every router.
func NewLogger(console io.Writer, prefix string, level slog.Level, file io.Writer) *slog.Logger {
	handlers := make([]slog.Handler, 0)
	handlers = append(handlers,
		tint.NewHandler(console, &tint.Options{
			Level:        level,
			AddSource:    false,
			CustomPrefix: prefix,
			ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
				if attr.Key == "time" {
					return slog.Attr{}
				}
				return attr
			},
		}))
	if file != nil {
		handlers = append(handlers, slog.NewTextHandler(file, &slog.HandlerOptions{Level: level}).
			WithAttrs([]slog.Attr{slog.String("router", prefix)}))
	}
	return slog.New(slogmulti.Fanout(handlers...))
}

// OpenLogFile opens (creating as necessary) an append-only log file.
func OpenLogFile(logPath string) (*os.File, error) {
	err := os.MkdirAll(path.Dir(logPath), 0700)
	if err != nil {
		return nil, err
	}
	return os.OpenFile(logPath, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0600)
}
