package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"frontporch/internal/application/orchestrators"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Database string
	Out      string
}

// ExportResult is the JSON output of export when writing to a file.
type ExportResult struct {
	Database string `json:"database"`
	Out      string `json:"out"`
	Signups  int    `json:"signups"`
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every signup to a JSON snapshot",
		Long: `Write every signup to a versioned JSON snapshot that restore accepts.

Examples:
  signupctl export --db volunteers.db --out snapshot.json
  signupctl export --out - > snapshot.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "-", "output file, - for stdout")

	return cmd
}

func runExport(cmd *cobra.Command, opts *ExportOptions) error {
	dbPath := opts.Database
	if dbPath == "" {
		dbPath = opts.Config.DBPath
	}
	if _, err := os.Stat(dbPath); err != nil {
		return WrapExitError(ExitCommandError, "database not found", err)
	}

	db, stores, err := openStores(dbPath, opts.Config.SlowQueryMs)
	if err != nil {
		return fmt.Errorf("open database %s: %w", dbPath, err)
	}
	defer db.Close()

	doc, err := orchestrators.ExecuteExportSnapshot(cmd.Context(), orchestrators.ExportSnapshotDeps{
		SignupStore: stores.signups,
		Now:         opts.now,
	})
	if err != nil {
		return fmt.Errorf("export signups: %w", err)
	}
	body, err := doc.ToJSON()
	if err != nil {
		return err
	}

	if opts.Out == "-" || opts.Out == "" {
		_, err := cmd.OutOrStdout().Write(body)
		return err
	}
	if err := os.WriteFile(opts.Out, body, 0o600); err != nil {
		return WrapExitError(ExitCommandError, "cannot write snapshot", err)
	}

	result := ExportResult{Database: dbPath, Out: opts.Out, Signups: len(doc.Signups)}
	if opts.Output == "json" {
		return writeJSON(cmd.OutOrStdout(), result)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d signups from %s to %s\n", result.Signups, dbPath, opts.Out)
	return nil
}
