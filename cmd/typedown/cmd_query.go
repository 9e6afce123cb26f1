package main

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"

	"github.com/spf13/cobra"

	"typedown/internal/compiler"
	"typedown/internal/provider"
	"typedown/internal/symtab"
)

var (
	sqlFlag   bool
	scopeFlag string
)

var queryCmd = &cobra.Command{
	Use:   "query <q>",
	Short: "Resolve a reference or run a read-only SQL-shaped query",
	Long: `query resolves a reference string ([[id.field.subfield]] syntax minus the
brackets) against the compiled project, or — with --sql — runs a minimal
"SELECT * FROM <Model> [WHERE field = 'value']" query over the in-memory
entity table.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().BoolVar(&sqlFlag, "sql", false, "interpret the argument as a SQL-shaped query")
	queryCmd.Flags().StringVar(&scopeFlag, "scope", "", "context path the query is resolved relative to (default: project root)")
}

func runQuery(cmd *cobra.Command, args []string) error {
	root, err := resolvePath()
	if err != nil {
		return err
	}

	result, _, err := compiler.CompileWorkspace(cmd.Context(), provider.NewDiskSource(), root, compiler.StageGlobal)
	if err != nil {
		result, err = compiler.Compile(cmd.Context(), provider.NewDiskSource(), compiler.Options{Root: root, Stage: compiler.StageGlobal})
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
	}
	if result.Query == nil {
		fmt.Fprintln(os.Stderr, "query: project did not reach the global stage cleanly")
		os.Exit(1)
	}

	if sqlFlag {
		rows, err := execSQL(result.Table, args[0])
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return printQueryResult(rows)
	}

	scope := scopeFlag
	if scope == "" {
		scope = root
	}
	value, err := result.Query.Resolve(args[0], scope)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return printQueryResult(value)
}

func printQueryResult(v interface{}) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		return enc.Encode(v)
	}
	fmt.Printf("%v\n", v)
	return nil
}

// sqlSelect mirrors internal/validator/specs.go's execSQL grammar: a
// single-table SELECT * with an optional equality filter, the same
// deliberately minimal in-memory view the spec sandbox's sql() primitive
// exposes, reimplemented here since that helper is unexported and this is
// the same read-only view, just reached from the CLI instead of a spec body.
var sqlSelect = regexp.MustCompile(`(?i)^\s*SELECT\s+\*\s+FROM\s+(\w+)(?:\s+WHERE\s+(\w+)\s*=\s*'([^']*)')?\s*;?\s*$`)

func execSQL(table *symtab.Table, query string) ([]map[string]interface{}, error) {
	m := sqlSelect.FindStringSubmatch(query)
	if m == nil {
		return nil, fmt.Errorf("query --sql: unsupported query shape: %s", query)
	}
	className, field, value := m[1], m[2], m[3]

	var rows []map[string]interface{}
	for _, eb := range table.IterEntities() {
		if eb.ClassName != className {
			continue
		}
		if field != "" {
			v, _ := eb.Data()[field].(string)
			if v != value {
				continue
			}
		}
		rows = append(rows, eb.Data())
	}
	return rows, nil
}
