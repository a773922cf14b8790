package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Open opens the SQLite database at path with the pragmas every store relies on.
// Write transactions are taken IMMEDIATE so the first statement already holds the
// write lock; a read-then-write capacity check cannot interleave with another writer.
// PRE: path is a file path or MemoryPath
// POST: Returns a pinged *sql.DB with WAL, busy_timeout and foreign keys enabled
func Open(path string) (*sql.DB, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == MemoryPath {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(8)
		db.SetMaxIdleConns(8)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	return db, nil
}

// migration upgrades the schema by exactly one version.
type migration struct {
	version int
	name    string
	apply   func(tx *sql.Tx) error
}

var migrations = []migration{
	{version: 1, name: "baseline", apply: migrateBaseline},
	{version: 2, name: "signup_slot_index", apply: migrateSlotIndex},
	{version: 3, name: "audit_event", apply: migrateAuditEvent},
}

// LatestSchemaVersion returns the version the migration chain ends at.
func LatestSchemaVersion() int {
	return migrations[len(migrations)-1].version
}

// SchemaVersion reports the applied schema version, or 0 for an untracked database.
// PRE: db is a valid database connection
// POST: Returns the highest recorded version
func SchemaVersion(db *sql.DB) (int, error) {
	var exists int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("check schema_version table: %w", err)
	}
	if exists == 0 {
		return 0, nil
	}
	var version sql.NullInt64
	if err := db.QueryRow("SELECT MAX(version) FROM schema_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return int(version.Int64), nil
}

// MigrateDB applies every pending migration, each in its own transaction.
// A file-backed database that already holds a schema is copied to
// "<dbPath>.bak-v<N>" before the first pending migration runs.
// PRE: db is a valid database connection
// POST: SchemaVersion(db) == LatestSchemaVersion()
func MigrateDB(db *sql.DB, dbPath string) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	current, err := SchemaVersion(db)
	if err != nil {
		return err
	}
	if current >= LatestSchemaVersion() {
		return nil
	}

	if current > 0 || hasUserTables(db) {
		if err := backupDB(db, dbPath, current); err != nil {
			return err
		}
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := runMigration(db, m); err != nil {
			return err
		}
		slog.Info("schema_migrated", "version", m.version, "name", m.name)
	}
	return nil
}

func runMigration(db *sql.DB, m migration) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("migration %d: begin: %w", m.version, err)
	}
	defer tx.Rollback()

	if err := m.apply(tx); err != nil {
		return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
	}
	if _, err := tx.Exec("INSERT INTO schema_version (version, applied_at) VALUES (?, ?)",
		m.version, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("migration %d: record version: %w", m.version, err)
	}
	return tx.Commit()
}

// hasUserTables reports whether anything besides schema_version exists.
func hasUserTables(db *sql.DB) bool {
	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' AND name != 'schema_version'").Scan(&n)
	return err == nil && n > 0
}

// backupDB copies a file-backed database before it is migrated.
func backupDB(db *sql.DB, dbPath string, fromVersion int) error {
	if dbPath == "" || strings.HasPrefix(dbPath, MemoryPath) {
		return nil
	}
	dest := fmt.Sprintf("%s.bak-v%d", dbPath, fromVersion)
	if _, err := os.Stat(dest); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat backup: %w", err)
	}
	if _, err := db.Exec("VACUUM INTO ?", dest); err != nil {
		return fmt.Errorf("backup before migration: %w", err)
	}
	slog.Info("schema_backup", "path", dest, "version", fromVersion)
	return nil
}

// migrateBaseline creates the tables the application started with.
// IF NOT EXISTS keeps it safe on databases created before version tracking.
func migrateBaseline(tx *sql.Tx) error {
	if _, err := tx.Exec(`
	CREATE TABLE IF NOT EXISTS signup (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		day TEXT NOT NULL,
		hour INTEGER NOT NULL,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL DEFAULT ''
	);
	`); err != nil {
		return err
	}
	if _, err := tx.Exec(adminTableSQL("admin")); err != nil {
		return err
	}
	return adoptLegacyTables(tx)
}

func adminTableSQL(name string) string {
	return `CREATE TABLE IF NOT EXISTS ` + name + ` (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at TEXT NOT NULL DEFAULT ''
	)`
}

// adoptLegacyTables upgrades tables written by the first version of the app:
// signup had no created_at, and admin used integer ids. Admin rows that carry a
// bcrypt password_hash are kept under "legacy-<id>"; rows with only a plaintext
// password column are dropped and the configured admin is seeded again.
func adoptLegacyTables(tx *sql.Tx) error {
	signupCols, err := tableColumns(tx, "signup")
	if err != nil {
		return err
	}
	if !signupCols["created_at"] {
		if _, err := tx.Exec(`ALTER TABLE signup ADD COLUMN created_at TEXT NOT NULL DEFAULT ''`); err != nil {
			return fmt.Errorf("add signup.created_at: %w", err)
		}
	}

	adminCols, err := tableColumns(tx, "admin")
	if err != nil {
		return err
	}
	if adminCols["created_at"] {
		return nil
	}
	if _, err := tx.Exec(adminTableSQL("admin_current")); err != nil {
		return err
	}
	if adminCols["password_hash"] {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO admin_current (id, username, password_hash)
			SELECT 'legacy-' || id, username, password_hash FROM admin`); err != nil {
			return fmt.Errorf("copy legacy admins: %w", err)
		}
	}
	if _, err := tx.Exec(`DROP TABLE admin`); err != nil {
		return err
	}
	_, err = tx.Exec(`ALTER TABLE admin_current RENAME TO admin`)
	return err
}

// tableColumns returns the column names of table.
func tableColumns(tx *sql.Tx, table string) (map[string]bool, error) {
	rows, err := tx.Query("SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, fmt.Errorf("inspect %s: %w", table, err)
	}
	defer rows.Close()
	cols := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

func migrateSlotIndex(tx *sql.Tx) error {
	_, err := tx.Exec("CREATE INDEX IF NOT EXISTS idx_signup_slot ON signup (day, hour)")
	return err
}

// migrateAuditEvent adds the admin activity log.
func migrateAuditEvent(tx *sql.Tx) error {
	_, err := tx.Exec(`
	CREATE TABLE IF NOT EXISTS audit_event (
		id TEXT PRIMARY KEY,
		timestamp TEXT NOT NULL,
		action TEXT NOT NULL,
		actor TEXT NOT NULL,
		resource_id TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		ip_address TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_audit_event_timestamp ON audit_event (timestamp);
	`)
	return err
}
