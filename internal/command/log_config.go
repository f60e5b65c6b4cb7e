package command

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/joeycumines/reactree/internal/config"
	"github.com/joeycumines/reactree/internal/logging"
)

// logFlags are the logging flags shared by commands that run trees.
type logFlags struct {
	file   string
	level  string
	format string
}

// logConfig is resolved logging: the logger and, when logging to a file,
// the writer the caller must Close.
type logConfig struct {
	logger  *slog.Logger
	logFile io.WriteCloser
}

// Close releases the log file, if any.
func (lc logConfig) Close() error {
	if lc.logFile == nil {
		return nil
	}
	return lc.logFile.Close()
}

// resolveLogConfig resolves logging from flags, then config (including
// environment overrides), then schema defaults. Records go to stderr unless
// a log file is configured.
func resolveLogConfig(flags logFlags, cfg *config.Config, stderr io.Writer) (logConfig, error) {
	schema := config.DefaultSchema()
	if cfg == nil {
		cfg = config.NewConfig()
	}
	resolve := func(flagValue, key string) string {
		if flagValue != "" {
			return flagValue
		}
		return schema.Resolve(cfg, key)
	}
	resolveInt := func(key string) int {
		n, _ := strconv.Atoi(schema.Resolve(cfg, key))
		return n
	}

	var lc logConfig
	level, err := logging.ParseLevel(resolve(flags.level, config.KeyLogLevel))
	if err != nil {
		return lc, err
	}

	var w io.Writer = stderr
	if path := resolve(flags.file, config.KeyLogFile); path != "" {
		// zero backups is valid: rotation truncates
		f, err := logging.OpenRotating(path, resolveInt(config.KeyLogMaxSizeMB), resolveInt(config.KeyLogMaxFiles))
		if err != nil {
			return lc, fmt.Errorf("failed to open log file %s: %w", path, err)
		}
		lc.logFile = f
		w = f
	}

	lc.logger, err = logging.New(w, logging.Format(resolve(flags.format, config.KeyLogFormat)), level)
	if err != nil {
		_ = lc.Close()
		return logConfig{}, err
	}
	return lc, nil
}
