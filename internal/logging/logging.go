// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/growtradenfts/platform/internal/config"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	defaultMaxSizeMB  = 100
	defaultMaxBackups = 7
	defaultMaxAgeDays = 30
)

// Setup applies level, formatter and output to the standard logger.
// When cfg.File is set, output is duplicated to a size-rotated file.
// The returned closer releases the file handle.
func Setup(cfg config.LogConfig) (io.Closer, error) {
	level := log.InfoLevel
	if strings.TrimSpace(cfg.Level) != "" {
		parsed, errParse := log.ParseLevel(cfg.Level)
		if errParse != nil {
			return nil, fmt.Errorf("logging: %w", errParse)
		}
		level = parsed
	}
	log.SetLevel(level)

	switch cfg.Format {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	case "", "text":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("logging: unsupported format %q", cfg.Format)
	}

	file := strings.TrimSpace(cfg.File)
	if file == "" {
		log.SetOutput(os.Stderr)
		return nopCloser{}, nil
	}
	if errMkdir := os.MkdirAll(filepath.Dir(file), 0755); errMkdir != nil {
		return nil, fmt.Errorf("logging: create log dir: %w", errMkdir)
	}
	rotator := &lumberjack.Logger{
		Filename:   file,
		MaxSize:    positiveOr(cfg.MaxSizeMB, defaultMaxSizeMB),
		MaxBackups: positiveOr(cfg.MaxBackups, defaultMaxBackups),
		MaxAge:     positiveOr(cfg.MaxAgeDays, defaultMaxAgeDays),
		Compress:   true,
	}
	log.SetOutput(io.MultiWriter(os.Stderr, rotator))
	return rotator, nil
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
