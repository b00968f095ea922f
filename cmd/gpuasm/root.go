package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"gpuasm/internal/config"
	"gpuasm/internal/slogutil"
	"gpuasm/internal/version"
)

var (
	// logLevelFlag is the CLI --log-level flag value
	logLevelFlag string
	// logFormatFlag is the CLI --log-format flag value
	logFormatFlag string
)

var rootCmd = &cobra.Command{
	Use:   "gpuasm",
	Short: "gpuasm - AMD GPU assembly tooling",
	Long: `gpuasm builds a canonical instruction database from AMD's published
RDNA and CDNA instruction set specifications and serves it to editors
through a Language Server Protocol server (hover, completion, go to
definition, signature help).`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("gpuasm version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "",
		"Log level: debug, info, warn, or error (default: from config, info)")
	rootCmd.PersistentFlags().StringVar(&logFormatFlag, "log-format", "",
		"Log format: text or json (default: from config, text)")
}

// loadConfig reads the optional gpuasm config for the current directory
// and validates it. Missing files fall back to defaults.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, err
	}
	if cerr := cfg.Validate(); cerr != nil {
		return nil, cerr
	}
	return cfg, nil
}

// effectiveLevel determines the log level from CLI flag and config.
// Precedence: --log-level flag > config logging.level > info
func effectiveLevel(cfg *config.Config) slog.Level {
	if logLevelFlag != "" {
		return slogutil.LevelFromString(logLevelFlag)
	}
	return slogutil.LevelFromString(cfg.Logging.Level)
}

// effectiveFormat determines the log format from CLI flag and config.
// Precedence: --log-format flag > config logging.format > text
func effectiveFormat(cfg *config.Config) string {
	if logFormatFlag != "" {
		return logFormatFlag
	}
	return cfg.Logging.Format
}

// newLogger builds the command logger on stderr from the effective
// logging settings.
func newLogger(cfg *config.Config) *slog.Logger {
	return slogutil.NewLoggerWithFormat(os.Stderr, effectiveFormat(cfg), effectiveLevel(cfg))
}

// resolveDataPath determines the snapshot path for commands that read
// the instruction database.
// Precedence: --data flag > GPUASM_DATA env var > config data.path > bundled default
// (LoadConfig already folds the env var and config file into cfg.)
func resolveDataPath(cfg *config.Config, flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if cfg.Data.Path != "" {
		return cfg.Data.Path
	}
	return config.DefaultDataPath
}
