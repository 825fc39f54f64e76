package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sqlscope-dev/sqlscope/internal/cli/output"
	"github.com/sqlscope-dev/sqlscope/pkg/schema"
	"github.com/sqlscope-dev/sqlscope/pkg/validator"
)

// ValidateOptions holds options for the validate command.
type ValidateOptions struct {
	Database string // Schema name to validate against
	File     string // Read SQL from file instead of args
	Format   string // Output format override: text, json
}

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	opts := &ValidateOptions{}
	cmd := &cobra.Command{
		Use:   "validate [sql]",
		Short: "Validate a SQL statement",
		Long: `Parse and validate a SQL statement, reporting every defect found
under its taxonomy tag along with structural metadata.

With --database, table and column references are also checked against
the schema file <schema-dir>/<database>.json.`,
		Example: `  # Validate a statement
  sqlscope validate "SELECT id FROM account"

  # Validate from a file
  sqlscope validate --file query.sql

  # Validate from stdin
  echo "SELECT 1" | sqlscope validate

  # Schema-aware validation
  sqlscope validate --database shop "SELECT wrong_col FROM account"

  # Machine-readable output
  sqlscope validate --format json "SELECT a, FROM t"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.Database, "database", "d", "", "Schema name to validate against")
	cmd.Flags().StringVar(&opts.File, "file", "", "Read SQL from file")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: text, json")

	return cmd
}

func runValidate(cmd *cobra.Command, opts *ValidateOptions, args []string) error {
	cfg := GetConfig(cmd)
	logger := GetLogger(cmd)
	r := GetRenderer(cmd)
	if opts.Format != "" {
		r = output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(opts.Format))
	}

	sql, err := readSQL(cmd, opts.File, args)
	if err != nil {
		return err
	}

	var catalog schema.Map
	if opts.Database != "" {
		store := schema.NewStore(cfg.SchemaDir)
		catalog, err = store.Load(opts.Database)
		if errors.Is(err, schema.ErrNotFound) {
			logger.Warn("no schema file, validating syntax only",
				"database", opts.Database, "schema_dir", cfg.SchemaDir)
			catalog = nil
		} else if err != nil {
			return err
		}
	}

	v := validator.New(validator.WithDialect(cfg.Dialect))
	res := v.ValidateSchema(sql, catalog)

	if err := r.ValidationResult(res); err != nil {
		return err
	}
	if !res.Valid() {
		return fmt.Errorf("%d validation error(s)", len(res.Errors))
	}
	return nil
}

// readSQL resolves the SQL text from an argument, a file, or stdin, in
// that priority order.
func readSQL(cmd *cobra.Command, file string, args []string) (string, error) {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return args[0], nil
	}
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", file, err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	sql := strings.TrimSpace(string(data))
	if sql == "" {
		return "", errors.New("no SQL provided: pass it as an argument, with --file, or on stdin")
	}
	return sql, nil
}
