package commands

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sqlscope-dev/sqlscope/internal/server"
	"github.com/sqlscope-dev/sqlscope/pkg/schema"
	"github.com/sqlscope-dev/sqlscope/pkg/validator"
)

// ServeOptions holds options for the serve command.
type ServeOptions struct {
	Addr string
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the validation HTTP API",
		Long: `Start an HTTP server exposing validation, error classification,
and schema discovery endpoints.`,
		Example: `  sqlscope serve
  sqlscope serve --addr :9000`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "Listen address (overrides config)")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	cfg := GetConfig(cmd)
	logger := GetLogger(cmd)

	addr := cfg.Server.Addr
	if opts.Addr != "" {
		addr = opts.Addr
	}

	srv := server.New(server.Config{
		Addr:         addr,
		Store:        schema.NewStore(cfg.SchemaDir),
		Validator:    validator.New(validator.WithDialect(cfg.Dialect)),
		Logger:       logger,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSec) * time.Second,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return srv.Serve(ctx)
}
