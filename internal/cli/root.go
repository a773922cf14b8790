package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"slices"

	"github.com/spf13/cobra"

	"frontporch/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Output     string // "text" | "json"
	ConfigPath string

	Config config.Config
}

// ValidOutputs defines the allowed output formats.
var ValidOutputs = []string{"text", "json"}

// NewRootCommand creates the root command for signupctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "signupctl",
		Short: "Front Porch volunteer signup maintenance",
		Long:  "Offline maintenance for the Front Porch volunteer signup database: restore from a snapshot, export a backup.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidOutputs, opts.Output) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid output %q: must be one of %v", opts.Output, ValidOutputs))
			}
			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load configuration", err)
			}
			opts.Config = cfg
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return WrapExitError(ExitCommandError, "invalid arguments", err)
	})

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Output, "output", "text", "output format (text|json)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "YAML config file (default $FRONTPORCH_CONFIG or frontporch.yaml)")

	cmd.AddCommand(NewRestoreCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))

	return cmd
}

// Execute runs signupctl with args and returns the process exit code.
// Panics are logged with their stack and reported as ExitFailure.
func Execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) (code int) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("internal_error", "where", "signupctl", "panic", r, "stack", string(debug.Stack()))
			fmt.Fprintf(stderr, "Error: unexpected failure: %v\n", r)
			code = ExitFailure
		}
	}()

	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		slog.Error("internal_error", "where", "signupctl", "error", err)
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return GetExitCode(err)
}
