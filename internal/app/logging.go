package app

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
)

// SetupLogger настраивает формат и уровень глобального логгера.
func SetupLogger(level, format string) error {
	lvl, err := parseLevel(level)
	if err != nil {
		return err
	}
	switch format {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	log.SetLevel(lvl)
	return nil
}

func parseLevel(level string) (log.Level, error) {
	lvl, err := log.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return log.InfoLevel, fmt.Errorf("unsupported log_level %q: %w", level, err)
	}
	return lvl, nil
}
