package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"typedown/internal/compiler"
	"typedown/internal/diag"
	"typedown/internal/provider"
)

var (
	fastFlag bool
	fullFlag bool
)

var checkCmd = &cobra.Command{
	Use:   "check [stage]",
	Short: "Run the compilation pipeline up to a given stage",
	Long: `check runs the progressive pipeline: syntax -> structure -> local -> global.
Each stage only runs if the previous one produced no fatal diagnostics.

stage defaults to "local" when omitted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&fastFlag, "fast", false, "stop after the structure stage")
	checkCmd.Flags().BoolVar(&fullFlag, "full", false, "run through the global stage")
}

var checkStages = map[string]compiler.Stage{
	"syntax":    compiler.StageSyntax,
	"structure": compiler.StageStructure,
	"local":     compiler.StageLocal,
	"global":    compiler.StageGlobal,
}

func runCheck(cmd *cobra.Command, args []string) error {
	stageName := "local"
	if len(args) == 1 {
		stageName = args[0]
	}
	stage, ok := checkStages[stageName]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown stage %q: must be one of syntax, structure, local, global\n", stageName)
		os.Exit(2)
	}
	if fastFlag {
		stage = compiler.StageStructure
	}
	if fullFlag {
		stage = compiler.StageGlobal
	}

	root, err := resolvePath()
	if err != nil {
		return err
	}

	src := provider.NewDiskSource()
	result, _, err := compiler.CompileWorkspace(cmd.Context(), src, root, stage)
	if err != nil {
		result, err = compiler.Compile(cmd.Context(), src, compiler.Options{Root: root, Stage: stage})
		if err != nil {
			return fmt.Errorf("check: %w", err)
		}
	}

	if jsonOutput {
		if err := printCheckJSON(result); err != nil {
			return err
		}
	} else {
		printCheckHuman(result, stageName)
	}

	os.Exit(result.ExitCode())
	return nil
}

func printCheckJSON(result *compiler.Result) error {
	enc := json.NewEncoder(os.Stdout)
	for _, d := range result.Diagnostics {
		if err := enc.Encode(d); err != nil {
			return err
		}
	}
	return nil
}

var (
	styleError = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	styleWarn  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	styleHint  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	styleOK    = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
)

func printCheckHuman(result *compiler.Result, stageName string) {
	if len(result.Diagnostics) == 0 {
		fmt.Println(styleOK.Render(fmt.Sprintf("ok: %s stage clean (%d files)", stageName, len(result.Documents))))
		return
	}
	for _, d := range result.Diagnostics {
		loc := ""
		if d.Location != nil {
			loc = d.Location.String() + ": "
		}
		line := fmt.Sprintf("[%s] %s%s: %s", d.Code, loc, d.Category, d.Message)
		switch d.Level {
		case diag.LevelError:
			fmt.Println(styleError.Render(line))
		case diag.LevelWarning:
			fmt.Println(styleWarn.Render(line))
		case diag.LevelHint:
			fmt.Println(styleHint.Render(line))
		default:
			fmt.Println(line)
		}
	}
}
