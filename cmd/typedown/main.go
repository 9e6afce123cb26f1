// Package main implements the typedown CLI.
//
// This file is the entry point and command registration hub; the actual
// command implementations are split across cmd_*.go files, one per
// subcommand, the same layout cmd/nerd uses.
//
// File Index:
//   - main.go         - entry point, rootCmd, global flags, init()
//   - cmd_check.go    - checkCmd, runCheck()
//   - cmd_query.go    - queryCmd, runQuery()
//   - cmd_run.go      - runScriptCmd, runRunScript()
//   - cmd_info.go     - infoCmd, runInfo()
//   - cmd_complete.go - completeCmd, runComplete()
//   - cmd_lsp.go      - lspCmd, runLSP()
//   - cmd_init.go     - initCmd, runInitProject()
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"typedown/internal/logging"
)

var (
	// Global flags
	verbose    bool
	jsonOutput bool
	pathFlag   string

	// Logger
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "typedown",
	Short: "typedown - a compiler for Markdown-embedded typed data",
	Long: `typedown compiles a hybrid Markdown dialect that embeds typed fenced
code blocks for models, entities, config and cross-entity specs.

The pipeline runs progressively: syntax -> structure -> local -> global,
each stage gating the next. Run without arguments to see available
commands.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		cfg.OutputPaths = []string{"stderr"}
		cfg.ErrorOutputPaths = []string{"stderr"}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		root := pathFlag
		if root == "" {
			root, _ = os.Getwd()
		}
		if err := logging.Initialize(root, logging.Config{DebugMode: verbose}); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to initialize file logging: %v\n", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "emit a line-based JSON document instead of human output")
	rootCmd.PersistentFlags().StringVar(&pathFlag, "path", "", "project root or file to operate on (default: current directory)")

	rootCmd.AddCommand(
		checkCmd,
		queryCmd,
		runScriptCmd,
		infoCmd,
		completeCmd,
		lspCmd,
		initCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// resolvePath returns pathFlag if set, else the current working directory.
func resolvePath() (string, error) {
	if pathFlag != "" {
		return pathFlag, nil
	}
	return os.Getwd()
}
