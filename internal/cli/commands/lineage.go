package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/chartline-io/chartline/internal/engine"
)

// LineageOptions holds options for the lineage command.
type LineageOptions struct {
	OutputFormat     string
	FilterDateColumn string
	File             string
}

// NewLineageCommand creates the lineage command.
func NewLineageCommand(getConfig ConfigFunc) *cobra.Command {
	opts := &LineageOptions{}

	cmd := &cobra.Command{
		Use:   "lineage [sql]",
		Short: "Compute lineage for a SQL query",
		Long: `Extract tables, joins, filters, grouping and chart outputs from a SQL
query and print them.

The query is taken from the argument, from --file, or from stdin when
neither is given.`,
		Example: `  # Inline query
  chartline lineage "SELECT DATE(o.created_at) AS x, SUM(o.amount) AS y FROM orders o GROUP BY x"

  # From a file, as JSON
  chartline lineage --file query.sql --output json

  # From stdin
  cat query.sql | chartline lineage`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLineage(cmd, args, opts, getConfig)
		},
	}

	cmd.Flags().StringVarP(&opts.OutputFormat, "output", "o", "", "Output format (table|json)")
	cmd.Flags().StringVar(&opts.FilterDateColumn, "filter-date-column", "", "Known date filter column, overrides inference")
	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "Read the query from a file")

	return cmd
}

func runLineage(cmd *cobra.Command, args []string, opts *LineageOptions, getConfig ConfigFunc) error {
	sql, err := readQuery(cmd, args, opts.File)
	if err != nil {
		return err
	}

	cfg := getConfig(cmd.Context())

	eng, err := engine.New(engine.Config{StatePath: cfg.StatePath})
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	result, err := eng.ComputeLineage(sql, opts.FilterDateColumn)
	if err != nil {
		return err
	}

	format := opts.OutputFormat
	if format == "" {
		format = cfg.Output
	}
	if format == "json" {
		return lineageJSON(cmd.OutOrStdout(), result)
	}
	return lineageTable(cmd.OutOrStdout(), result)
}

// readQuery resolves the SQL text from the argument, a file, or stdin.
func readQuery(cmd *cobra.Command, args []string, file string) (string, error) {
	if len(args) == 1 && file != "" {
		return "", fmt.Errorf("pass the query as an argument or via --file, not both")
	}
	if len(args) == 1 {
		return args[0], nil
	}
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read query file: %w", err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("failed to read query from stdin: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func lineageJSON(w io.Writer, result *engine.Lineage) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func lineageTable(w io.Writer, result *engine.Lineage) error {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Source"})
	for _, s := range result.Sources {
		t.AppendRow(table.Row{s})
	}
	t.Render()

	if len(result.Joins) > 0 {
		t = table.NewWriter()
		t.SetOutputMirror(w)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"#", "Kind", "Left", "Right", "On"})
		for i, j := range result.Joins {
			kind := j.Kind
			if kind == "" {
				kind = "INNER"
			}
			t.AppendRow(table.Row{i + 1, kind, j.Left, j.Right, j.On})
		}
		t.Render()
	}

	if len(result.Filters) > 0 {
		fmt.Fprintf(w, "Filters:\n")
		for _, f := range result.Filters {
			fmt.Fprintf(w, "  - %s\n", f)
		}
	}
	if len(result.GroupBy) > 0 {
		fmt.Fprintf(w, "Group by: %s\n", strings.Join(result.GroupBy, ", "))
	}
	if len(result.Outputs) > 0 {
		t = table.NewWriter()
		t.SetOutputMirror(w)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Role", "Expression"})
		for _, role := range []string{"x", "y", "label", "value"} {
			if expr, ok := result.Outputs[role]; ok {
				t.AppendRow(table.Row{role, expr})
			}
		}
		t.Render()
	}
	if result.FilterDateColumn != "" {
		fmt.Fprintf(w, "Filter date column: %s\n", result.FilterDateColumn)
	}
	return nil
}
