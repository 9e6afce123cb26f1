package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"typedown/internal/ideinit"
)

var initVSCode bool

var initCmd = &cobra.Command{
	Use:   "init <name>",
	Short: "Scaffold a new typedown project in the current (or --path) directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runInitProject,
}

func init() {
	initCmd.Flags().BoolVar(&initVSCode, "vscode", false, "also write .vscode/settings.json wiring the lsp command")
}

func runInitProject(cmd *cobra.Command, args []string) error {
	name := args[0]
	root, err := resolvePath()
	if err != nil {
		return err
	}

	result, err := ideinit.Scaffold(root, name, ideinit.Options{VSCode: initVSCode})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init: %v\n", err)
		os.Exit(1)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		return enc.Encode(result)
	}
	fmt.Printf("initialized %q at %s\n", name, result.ProjectRoot)
	for _, f := range result.FilesCreated {
		fmt.Printf("  created %s\n", f)
	}
	return nil
}
