package logging

import (
	"log"
	"os"
	"strings"
)

type level int

const (
	levelDebug level = iota
	levelInfo
	levelWarn
	levelError
)

func parseLevel(s string) level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return levelDebug
	case "warn", "warning":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

// Logger is a minimal leveled logger over the standard library.
type Logger struct {
	min  level
	base *log.Logger
}

func New(lvl string) *Logger {
	return &Logger{min: parseLevel(lvl), base: log.New(os.Stdout, "", log.LstdFlags)}
}

func (l *Logger) Debugf(format string, args ...any) { l.printf(levelDebug, "[DEBUG] ", format, args) }
func (l *Logger) Infof(format string, args ...any)  { l.printf(levelInfo, "[INFO] ", format, args) }
func (l *Logger) Warnf(format string, args ...any)  { l.printf(levelWarn, "[WARN] ", format, args) }
func (l *Logger) Errorf(format string, args ...any) { l.printf(levelError, "[ERROR] ", format, args) }

func (l *Logger) printf(lv level, prefix, format string, args []any) {
	if lv < l.min {
		return
	}
	l.base.Printf(prefix+format, args...)
}
