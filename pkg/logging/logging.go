// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

var formatters = map[string]log.Formatter{
	"text": &log.TextFormatter{
		FullTimestamp: true,
	},
	"json": &log.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
	},
}

func Setup(level, format string) error {
	formatter, ok := formatters[format]
	if !ok {
		return fmt.Errorf("log format %q is not recognized", format)
	}
	log.SetFormatter(formatter)

	parsed, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}
	log.SetLevel(parsed)

	return nil
}
