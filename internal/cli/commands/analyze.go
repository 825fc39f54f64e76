package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sqlscope-dev/sqlscope/internal/cli/output"
	"github.com/sqlscope-dev/sqlscope/pkg/analyzer"
	"github.com/sqlscope-dev/sqlscope/pkg/sqlast"
)

// AnalyzeOptions holds options for the analyze command.
type AnalyzeOptions struct {
	File   string // Read SQL from file instead of args
	Format string // Output format override: text, json
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand() *cobra.Command {
	opts := &AnalyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze [sql]",
		Short: "Show structural metadata for a SQL statement",
		Long: `Parse a statement and print its structural metadata: clauses
present, complexity score, pattern signature, and element counts.`,
		Example: `  sqlscope analyze "SELECT a FROM t JOIN u ON t.id = u.id"
  sqlscope analyze --format json --file query.sql`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.File, "file", "", "Read SQL from file")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: text, json")

	return cmd
}

func runAnalyze(cmd *cobra.Command, opts *AnalyzeOptions, args []string) error {
	r := GetRenderer(cmd)
	if opts.Format != "" {
		r = output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(opts.Format))
	}

	sql, err := readSQL(cmd, opts.File, args)
	if err != nil {
		return err
	}

	tree, err := sqlast.Parse(sql)
	if err != nil {
		return fmt.Errorf("statement does not parse: %w", err)
	}
	md := analyzer.Analyze(tree)

	if r.Mode() == output.ModeJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(md)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "signature:   %s\n", md.PatternSignature)
	fmt.Fprintf(out, "complexity:  %d\n", md.ComplexityScore)
	fmt.Fprintf(out, "clauses:     %s\n", strings.Join(md.ClausesPresent, ", "))
	if len(md.Tables) > 0 {
		fmt.Fprintf(out, "tables:      %s\n", strings.Join(md.Tables, ", "))
	}
	fmt.Fprintf(out, "joins %d, subqueries %d, ctes %d, aggregations %d\n",
		md.NumJoins, md.NumSubqueries, md.NumCTEs, md.NumAggregations)
	return nil
}
