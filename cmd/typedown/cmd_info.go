package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"typedown/internal/compiler"
	"typedown/internal/diag"
	"typedown/internal/provider"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Summarize the project rooted at the current (or --path) directory",
	RunE:  runInfo,
}

type projectInfo struct {
	Root      string   `json:"root"`
	Members   []string `json:"members"`
	Documents int      `json:"documents"`
	Models    int      `json:"models"`
	Entities  int      `json:"entities"`
	Specs     int      `json:"specs"`
	Errors    int      `json:"errors"`
	Warnings  int      `json:"warnings"`
}

func runInfo(cmd *cobra.Command, args []string) error {
	root, err := resolvePath()
	if err != nil {
		return err
	}

	result, ws, err := compiler.CompileWorkspace(cmd.Context(), provider.NewDiskSource(), root, compiler.StageGlobal)
	if err != nil {
		result, err = compiler.Compile(cmd.Context(), provider.NewDiskSource(), compiler.Options{Root: root, Stage: compiler.StageGlobal})
		if err != nil {
			fmt.Fprintf(os.Stderr, "info: %v\n", err)
			os.Exit(1)
		}
	}

	info := projectInfo{Root: root, Documents: len(result.Documents)}
	if ws != nil {
		info.Members = ws.MemberDirs
	}
	for _, doc := range result.Documents {
		info.Models += len(doc.Models)
		info.Entities += len(doc.Entities)
		info.Specs += len(doc.Specs)
	}
	for _, d := range result.Diagnostics {
		switch d.Level {
		case diag.LevelError:
			info.Errors++
		case diag.LevelWarning:
			info.Warnings++
		}
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		if err := enc.Encode(info); err != nil {
			return err
		}
	} else {
		fmt.Printf("root:      %s\n", info.Root)
		fmt.Printf("documents: %d\n", info.Documents)
		fmt.Printf("models:    %d\n", info.Models)
		fmt.Printf("entities:  %d\n", info.Entities)
		fmt.Printf("specs:     %d\n", info.Specs)
		fmt.Printf("errors:    %d\n", info.Errors)
		fmt.Printf("warnings:  %d\n", info.Warnings)
	}

	if info.Errors > 0 {
		os.Exit(1)
	}
	return nil
}
