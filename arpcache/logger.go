package arpcache

import (
	"context"
	"log/slog"
)

type logger struct {
	log *slog.Logger
}

func (l logger) error(msg string, attrs ...slog.Attr) { l.logAttrs(slog.LevelError, msg, attrs...) }
func (l logger) warn(msg string, attrs ...slog.Attr)  { l.logAttrs(slog.LevelWarn, msg, attrs...) }
func (l logger) info(msg string, attrs ...slog.Attr)  { l.logAttrs(slog.LevelInfo, msg, attrs...) }
func (l logger) debug(msg string, attrs ...slog.Attr) { l.logAttrs(slog.LevelDebug, msg, attrs...) }

func (l logger) logAttrs(level slog.Level, msg string, attrs ...slog.Attr) {
	if l.log != nil {
		l.log.LogAttrs(context.Background(), level, msg, attrs...)
	}
}
