package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sqlscope-dev/sqlscope/internal/cli/output"
	"github.com/sqlscope-dev/sqlscope/pkg/errctx"
)

// ClassifyOptions holds options for the classify command.
type ClassifyOptions struct {
	Message  string // Error message from the database
	SQLState string // Explicit SQLSTATE when known
	File     string // Read SQL from file instead of args
	Format   string // Output format override: text, json
}

// NewClassifyCommand creates the classify command.
func NewClassifyCommand() *cobra.Command {
	opts := &ClassifyOptions{}
	cmd := &cobra.Command{
		Use:   "classify [sql]",
		Short: "Classify a database runtime error",
		Long: `Classify an error a database returned for a statement. The message
is mined for a SQLSTATE, cross-checked against the statement's
structure, and every candidate taxonomy tag is reported with its
provenance and confidence.`,
		Example: `  # Classify by error message
  sqlscope classify --message 'column "usrname" does not exist' "SELECT usrname FROM users"

  # With an explicit SQLSTATE
  sqlscope classify --sqlstate 42P01 --message 'relation "ledger" does not exist' "SELECT * FROM ledger"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClassify(cmd, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.Message, "message", "m", "", "Database error message (required)")
	cmd.Flags().StringVar(&opts.SQLState, "sqlstate", "", "Explicit SQLSTATE code")
	cmd.Flags().StringVar(&opts.File, "file", "", "Read SQL from file")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: text, json")
	_ = cmd.MarkFlagRequired("message")

	return cmd
}

func runClassify(cmd *cobra.Command, opts *ClassifyOptions, args []string) error {
	r := GetRenderer(cmd)
	if opts.Format != "" {
		r = output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(opts.Format))
	}

	// The statement is optional: classification works from the message
	// alone, it just loses the AST cross-checks.
	var sql string
	if len(args) > 0 || opts.File != "" {
		var err error
		sql, err = readSQL(cmd, opts.File, args)
		if err != nil {
			return err
		}
	}

	msg := opts.Message
	if opts.SQLState != "" {
		// Prefix the code so extraction picks it up ahead of any
		// message-pattern guess.
		msg = fmt.Sprintf("SQLSTATE %s: %s", opts.SQLState, msg)
	}

	ctx := errctx.Build(sql, errors.New(msg))
	return r.ErrorContext(ctx)
}
