package cli

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"frontporch/internal/adapters/storage"
	accountStore "frontporch/internal/adapters/storage/account"
	auditStore "frontporch/internal/adapters/storage/audit"
	signupStore "frontporch/internal/adapters/storage/signup"
)

type cliStores struct {
	signups *signupStore.SQLiteStore
	admins  *accountStore.SQLiteStore
	audits  *auditStore.SQLiteStore
}

// openStores opens and migrates the database at path.
// POST: Caller closes the returned *sql.DB
func openStores(path string, slowQueryMs int) (*sql.DB, cliStores, error) {
	db, err := storage.Open(path)
	if err != nil {
		return nil, cliStores{}, err
	}
	if err := storage.MigrateDB(db, path); err != nil {
		db.Close()
		return nil, cliStores{}, fmt.Errorf("migrate: %w", err)
	}
	timed := storage.NewTimedDB(db, nil, slowQueryMs)
	return db, cliStores{
		signups: signupStore.NewSQLiteStore(timed),
		admins:  accountStore.NewSQLiteStore(timed),
		audits:  auditStore.NewSQLiteStore(timed),
	}, nil
}

// now stamps restored signups and exports.
func (o *RootOptions) now() time.Time {
	return time.Now().UTC()
}

func verbosef(cmd *cobra.Command, opts *RootOptions, format string, args ...any) {
	if opts.Verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), format+"\n", args...)
	}
}
