// Package logging wires a single logrus root logger for every other
// package in this module, so `go run ./cmd/conseil` produces one
// consistent, colorized-when-a-TTY stream with an optional rotating
// file sink — never stdlib `log`.
package logging

import (
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Config controls where log output goes and at what level.
type Config struct {
	Level      string // "debug", "info", "warn", "error"
	FilePath   string // empty disables file rotation
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// New builds a root *logrus.Logger per cfg. Terminal output is
// colorized only when stderr is an actual TTY (via go-isatty), wrapped
// through go-colorable so ANSI codes render correctly on Windows
// consoles too. When cfg.FilePath is set, output is duplicated to a
// lumberjack-rotated file.
func New(cfg Config) *logrus.Logger {
	l := logrus.New()
	l.SetLevel(parseLevel(cfg.Level))
	l.SetFormatter(&logrus.TextFormatter{
		ForceColors:   isatty.IsTerminal(os.Stderr.Fd()),
		FullTimestamp: true,
	})

	out := io.Writer(colorable.NewColorableStderr())
	if cfg.FilePath != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		}
		out = io.MultiWriter(out, rotator)
	}
	l.SetOutput(out)

	if !color.NoColor && !isatty.IsTerminal(os.Stderr.Fd()) {
		color.NoColor = true
	}
	return l
}

func parseLevel(s string) logrus.Level {
	lvl, err := logrus.ParseLevel(s)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// Component returns a *logrus.Entry pre-tagged with a "component"
// field, the convention every package in this module uses for its
// logger (e.g. logging.Component(root, "chainsync")).
func Component(root *logrus.Logger, name string) *logrus.Entry {
	return root.WithField("component", name)
}
