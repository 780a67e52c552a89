// Package logging configures the CLI's structured logger. Records go to a
// rotating file under the log dir, never to stdout, which is reserved for
// report output.
package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/apimgr/sfind/src/paths"
)

var (
	logger      *slog.Logger
	handlerOnce sync.Once

	// level backs the handler so a later Init can still change it.
	level = new(slog.LevelVar)
)

// Config holds logging configuration
type Config struct {
	Level    string // debug, info, warn, error (default: warn)
	File     string // Log file path (empty = {log_dir}/cli.log)
	MaxSize  int    // Max log file size in MB (default: 10)
	MaxFiles int    // Max log files to keep (default: 5)
}

// FromViper returns logging configuration from viper. Call after the config
// file has been read, or every knob comes back at its zero value.
func FromViper() Config {
	return Config{
		Level:    viper.GetString("logging.level"),
		File:     viper.GetString("logging.file"),
		MaxSize:  viper.GetInt("logging.max_size"),
		MaxFiles: viper.GetInt("logging.max_files"),
	}
}

// Init initializes the CLI logger. The rotating file handler is built on the
// first call; the level is applied on every call. Every record carries a
// per-invocation run id.
func Init(cfg Config) error {
	level.Set(parseLevel(cfg.Level))

	var initErr error
	handlerOnce.Do(func() {
		logPath := cfg.File
		if logPath == "" {
			logPath = paths.LogFile()
		}

		// Expand ~ to home directory
		if len(logPath) > 0 && logPath[0] == '~' {
			home, _ := os.UserHomeDir()
			logPath = filepath.Join(home, logPath[1:])
		}

		if err := paths.EnsureFile(logPath, 0600); err != nil {
			initErr = fmt.Errorf("create log file: %w", err)
			return
		}

		maxSize := cfg.MaxSize
		if maxSize == 0 {
			maxSize = 10 // MB
		}
		maxFiles := cfg.MaxFiles
		if maxFiles == 0 {
			maxFiles = 5
		}

		rotatingWriter := &lumberjack.Logger{
			Filename:   logPath,
			MaxSize:    maxSize, // MB
			MaxBackups: maxFiles,
			MaxAge:     30, // days
			Compress:   true,
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}

		handler := slog.NewJSONHandler(rotatingWriter, opts)

		// The run id ties every record of one invocation together.
		logger = slog.New(handler).With("run", ulid.Make().String())

		slog.SetDefault(logger)
	})
	return initErr
}

func parseLevel(lvl string) slog.Level {
	switch lvl {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// Logger returns the CLI logger
func Logger() *slog.Logger {
	if logger == nil {
		// Fallback to stderr if not initialized
		return slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return logger
}
