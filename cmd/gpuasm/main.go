package main

import (
	"log/slog"
	"os"

	"gpuasm/internal/slogutil"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger := slogutil.NewLogger(os.Stderr, slog.LevelError)
		logger.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}
