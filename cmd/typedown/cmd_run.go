package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"typedown/internal/project"
	"typedown/internal/provider"
	"typedown/internal/runner"
	"typedown/internal/scanner"
)

var dryRunFlag bool

// runScriptCmd is the `run` subcommand, named distinctly from cobra's
// Run/RunE fields.
var runScriptCmd = &cobra.Command{
	Use:   "run <script> [target]",
	Short: "Execute a named script from typedown.toml or a document's front matter",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runRunScript,
}

func init() {
	runScriptCmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "print the resolved command without executing it")
}

func runRunScript(cmd *cobra.Command, args []string) error {
	name := args[0]
	var target string
	if len(args) == 2 {
		target = args[1]
	}

	root, err := resolvePath()
	if err != nil {
		return err
	}

	ws, err := project.Load(root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "run: %v\n", err)
		os.Exit(1)
	}

	var projectScripts, projectTasks map[string]string
	if ws.Manifest != nil {
		projectScripts = ws.Manifest.Scripts
		projectTasks = ws.Manifest.Tasks
	}

	var docScripts map[string]string
	if target != "" {
		if doc, _ := scanner.New().ScanFile(provider.NewDiskSource(), target); doc != nil {
			docScripts = doc.FrontMatter.Scripts
		}
	}

	command, ok := runner.Lookup(name, docScripts, projectScripts, projectTasks)
	if !ok {
		fmt.Fprintf(os.Stderr, "run: no script or task named %q\n", name)
		os.Exit(1)
	}

	r := runner.New()
	result, err := r.Run(cmd.Context(), name, command, runner.Vars{File: target, Dir: ws.Root}, dryRunFlag)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else {
		if result.Stdout != "" {
			fmt.Print(result.Stdout)
		}
		if result.Stderr != "" {
			fmt.Fprint(os.Stderr, result.Stderr)
		}
	}

	os.Exit(result.ExitCode)
	return nil
}
