// Package logging adapts charmbracelet/log to orchestrator.Logger.
package logging

import (
	"os"
	"strings"

	charmlog "github.com/charmbracelet/log"
	"github.com/lokutor-ai/hearth/pkg/orchestrator"
)

// New builds a leveled, key-value logger writing to stderr. levelName is
// matched case-insensitively against debug/info/warn/error; anything else
// falls back to info.
func New(levelName string) orchestrator.Logger {
	l := charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
	})
	l.SetLevel(parseLevel(levelName))
	return l
}

func parseLevel(name string) charmlog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return charmlog.DebugLevel
	case "warn", "warning":
		return charmlog.WarnLevel
	case "error":
		return charmlog.ErrorLevel
	default:
		return charmlog.InfoLevel
	}
}
