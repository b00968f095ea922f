package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gpuasm/internal/lsp"
	"gpuasm/internal/slogutil"
	"gpuasm/internal/version"
)

var lspCmd = &cobra.Command{
	Use:   "lsp",
	Short: "Start the language server",
	Long: `Start the GPU assembly language server.

The server speaks the Language Server Protocol over stdio using
Content-Length framed JSON-RPC 2.0. It answers hover, completion,
go-to-definition, and signature-help requests for RDNA and CDNA
assembly from a prebuilt instruction database snapshot.

The snapshot path is resolved from --data, the GPUASM_DATA environment
variable, the config file, and the bundled default, in that order. A
missing or corrupt snapshot is fatal before the first message is read.

Example usage:
  gpuasm lsp --data data/isa.json

This command is typically invoked by an editor and not directly by
users.`,
	RunE: runLSP,
}

var (
	lspDataPath string
	lspLogFile  string
)

func init() {
	rootCmd.AddCommand(lspCmd)
	lspCmd.Flags().StringVar(&lspDataPath, "data", "", "Path to the instruction database snapshot")
	lspCmd.Flags().StringVar(&lspLogFile, "log-file", "", "Write logs to this file instead of stderr")
}

func runLSP(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Use stderr for logs since stdout carries the protocol. --log-file
	// redirects them for editors that swallow stderr.
	logger := newLogger(cfg)
	if lspLogFile != "" {
		fileLogger, f, err := slogutil.NewFileLogger(lspLogFile, effectiveLevel(cfg))
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()
		logger = fileLogger
	}

	logger.Info("starting language server", "version", version.Version)

	server, err := lsp.NewServer(lsp.Options{
		DataPath:             resolveDataPath(cfg, lspDataPath),
		Version:              version.Version,
		ArchitectureOverride: cfg.Server.ArchitectureOverride,
		MinPrefix:            cfg.Server.CompletionMinPrefix,
		Logger:               logger,
	})
	if err != nil {
		logger.Error("language server startup failed", "error", err)
		return err
	}

	if err := server.Start(); err != nil {
		logger.Error("language server stopped", "error", err)
		return err
	}

	return nil
}
