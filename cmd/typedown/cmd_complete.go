package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"typedown/internal/compiler"
	"typedown/internal/provider"
)

var (
	completeLine    int
	completeChar    int
	completeContent string
)

var completeCmd = &cobra.Command{
	Use:   "complete <file>",
	Short: "List completion candidates at a line/char position, without an LSP session",
	Args:  cobra.ExactArgs(1),
	RunE:  runComplete,
}

func init() {
	completeCmd.Flags().IntVar(&completeLine, "line", 0, "zero-based line number")
	completeCmd.Flags().IntVar(&completeChar, "char", 0, "zero-based character offset on that line")
	completeCmd.Flags().StringVar(&completeContent, "content", "", "unsaved file content to complete against (default: read from disk)")
}

func runComplete(cmd *cobra.Command, args []string) error {
	file := args[0]
	root, err := resolvePath()
	if err != nil {
		return err
	}

	src := provider.NewOverlayProvider(provider.NewDiskSource())
	if completeContent != "" {
		src.UpdateOverlay(file, completeContent)
	}

	result, err := compiler.Compile(cmd.Context(), src, compiler.Options{Root: root, Stage: compiler.StageGlobal})
	if err != nil {
		// complete always exits 0 per spec.md §6 — an unparseable project
		// just yields no candidates rather than failing the editor request.
		fmt.Fprintf(os.Stderr, "complete: %v\n", err)
		return nil
	}

	var prefix string
	if completeContent != "" {
		lines := strings.Split(completeContent, "\n")
		if completeLine >= 0 && completeLine < len(lines) {
			prefix = wordPrefixBefore(lines[completeLine], completeChar)
		}
	}

	var candidates []string
	if result.Table != nil {
		for _, mb := range result.Table.IterModels() {
			if strings.HasPrefix(mb.ID, prefix) {
				candidates = append(candidates, mb.ID)
			}
		}
		for _, eb := range result.Table.IterEntities() {
			if strings.HasPrefix(eb.ID, prefix) {
				candidates = append(candidates, eb.ID)
			}
		}
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		return enc.Encode(candidates)
	}
	for _, c := range candidates {
		fmt.Println(c)
	}
	return nil
}

func wordPrefixBefore(line string, col int) string {
	if col < 0 || col > len(line) {
		return ""
	}
	start := col
	for start > 0 && isCompletionIDChar(line[start-1]) {
		start--
	}
	return line[start:col]
}

func isCompletionIDChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') || c == '_' || c == '-' || c == '.'
}
