package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Log output formats.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid %s %q", KeyLogLevel, s)
	}
	return l, nil
}

// NewLogger builds a JSON or text logger writing to w at the level held by
// level.
func NewLogger(w io.Writer, format string, level *slog.LevelVar) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == FormatText {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// WatchLogLevel re-reads log.level whenever config.yaml changes and stores
// it in level. Invalid values are logged and ignored.
func WatchLogLevel(v *viper.Viper, level *slog.LevelVar, logger *slog.Logger) {
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		applyLogLevel(v, level, logger)
	})
	v.WatchConfig()
}

func applyLogLevel(v *viper.Viper, level *slog.LevelVar, logger *slog.Logger) {
	l, err := ParseLevel(v.GetString(KeyLogLevel))
	if err != nil {
		logger.Warn("ignoring config change", "error", err)
		return
	}
	if l != level.Level() {
		level.Set(l)
		logger.Info("log level changed", "level", l.String())
	}
}
