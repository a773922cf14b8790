package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	snapshotAdapter "frontporch/internal/adapters/snapshot"
	"frontporch/internal/application/orchestrators"
	"frontporch/internal/domain/audit"
	"frontporch/internal/domain/snapshot"
)

// stdinIsTerminal decides whether restore may prompt for confirmation.
var stdinIsTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// RestoreOptions holds flags for the restore command.
type RestoreOptions struct {
	*RootOptions
	Database string
	Snapshot string
	Format   string
	Yes      bool
}

// NewRestoreCommand creates the restore command.
func NewRestoreCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RestoreOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Replace all signups with the contents of a snapshot",
		Long: `Replace every signup in the database with the signups found in a snapshot.

The snapshot is either a JSON export (GET /admin/export.json, signupctl export)
or a saved copy of the public signup page. Records for closed or unknown slots,
and names beyond a slot's capacity, are skipped with a warning. The admin
account from the configuration is re-created if it is missing.

Exit codes:
  0 - Signups restored
  1 - The snapshot holds no restorable signups, or an unexpected failure
  2 - Command error (missing snapshot, bad format, restore not confirmed)

Examples:
  signupctl restore --db volunteers.db --snapshot "Volunteer Signup-snapshot.html"
  signupctl restore --snapshot backup.json --yes --output json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRestore(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().StringVar(&opts.Snapshot, "snapshot", "", "snapshot file to restore (required)")
	cmd.Flags().StringVar(&opts.Format, "format", snapshotAdapter.FormatAuto, "snapshot format (auto|html|json)")
	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "replace signups without asking")

	return cmd
}

func runRestore(cmd *cobra.Command, opts *RestoreOptions) error {
	ctx := cmd.Context()
	if opts.Snapshot == "" {
		return NewExitError(ExitCommandError, "--snapshot is required")
	}
	dbPath := opts.Database
	if dbPath == "" {
		dbPath = opts.Config.DBPath
	}

	records, err := snapshotAdapter.ReadFile(opts.Snapshot, opts.Format)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return WrapExitError(ExitCommandError, "snapshot not found", err)
	case errors.Is(err, snapshot.ErrUnknownFormat), errors.Is(err, snapshot.ErrUnsupportedVersion):
		return WrapExitError(ExitCommandError, "cannot read snapshot", err)
	case err != nil:
		return fmt.Errorf("read snapshot %s: %w", opts.Snapshot, err)
	}

	keep, skipped := orchestrators.PlanRestore(records, opts.now())
	if len(keep) == 0 {
		return WrapExitError(ExitFailure, "nothing restored", orchestrators.ErrNothingToRestore)
	}
	verbosef(cmd, opts.RootOptions, "Read %d records from %s: %d to restore, %d skipped",
		len(records), opts.Snapshot, len(keep), len(skipped))

	if !opts.Yes {
		if !stdinIsTerminal() {
			return NewExitError(ExitCommandError, "refusing to replace signups without --yes when stdin is not a terminal")
		}
		prompt := fmt.Sprintf("Replace ALL signups in %s with %d signups from %s? [y/N] ", dbPath, len(keep), opts.Snapshot)
		if !confirm(cmd.InOrStdin(), cmd.ErrOrStderr(), prompt) {
			return NewExitError(ExitCommandError, "restore cancelled")
		}
	}

	db, stores, err := openStores(dbPath, opts.Config.SlowQueryMs)
	if err != nil {
		return fmt.Errorf("open database %s: %w", dbPath, err)
	}
	defer db.Close()

	summary, err := orchestrators.ExecuteRestore(ctx, orchestrators.RestoreInput{
		Records:       records,
		AdminUsername: opts.Config.Admin.Username,
		AdminPassword: opts.Config.Admin.Password,
	}, orchestrators.RestoreDeps{
		SignupStore: stores.signups,
		Seed:        orchestrators.SeedAdminDeps{AdminStore: stores.admins},
	})
	if errors.Is(err, orchestrators.ErrNothingToRestore) {
		return WrapExitError(ExitFailure, "nothing restored", err)
	}
	if err != nil {
		return fmt.Errorf("restore %s into %s: %w", opts.Snapshot, dbPath, err)
	}
	orchestrators.RecordAudit(ctx, stores.audits, audit.NewEvent("signupctl", audit.ActionRestore, opts.now()).
		WithDescription(fmt.Sprintf("restored %d signups from %s", summary.Total, filepath.Base(opts.Snapshot))))

	report := RestoreReport{
		Database: dbPath,
		Snapshot: opts.Snapshot,
		Admin:    opts.Config.Admin.Username,
		Summary:  summary,
	}
	if opts.Output == "json" {
		return writeJSON(cmd.OutOrStdout(), report)
	}
	WriteRestoreText(cmd.OutOrStdout(), report)
	return nil
}

// confirm asks a yes/no question; anything but "y" or "yes" declines.
func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprint(out, prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
