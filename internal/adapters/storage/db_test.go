package storage

import (
	"database/sql"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func openMemory(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(MemoryPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func openFile(t *testing.T, name string) (*sql.DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, path
}

func mustExec(t *testing.T, db *sql.DB, query string, args ...any) {
	t.Helper()
	if _, err := db.Exec(query, args...); err != nil {
		t.Fatalf("%s: %v", query, err)
	}
}

// schemaObjects lists user tables and indexes by type.
func schemaObjects(t *testing.T, db *sql.DB, kind string) []string {
	t.Helper()
	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type = ? AND name NOT LIKE 'sqlite_%' ORDER BY name", kind)
	if err != nil {
		t.Fatalf("sqlite_master: %v", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan: %v", err)
		}
		names = append(names, name)
	}
	return names
}

func columns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	rows, err := db.Query("SELECT name FROM pragma_table_info(?) ORDER BY name", table)
	if err != nil {
		t.Fatalf("pragma_table_info: %v", err)
	}
	defer rows.Close()
	var cols []string
	for rows.Next() {
		var c string
		rows.Scan(&c)
		cols = append(cols, c)
	}
	return cols
}

// TestMigrateDB_Fresh verifies the full chain on an empty database and that a rerun is a no-op.
func TestMigrateDB_Fresh(t *testing.T) {
	db := openMemory(t)

	if v, err := SchemaVersion(db); err != nil || v != 0 {
		t.Fatalf("SchemaVersion before = %d, %v; want 0", v, err)
	}
	for range 2 {
		if err := MigrateDB(db, MemoryPath); err != nil {
			t.Fatalf("MigrateDB: %v", err)
		}
	}
	if v, _ := SchemaVersion(db); v != LatestSchemaVersion() {
		t.Errorf("SchemaVersion = %d, want %d", v, LatestSchemaVersion())
	}

	var applied int
	db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&applied)
	if applied != LatestSchemaVersion() {
		t.Errorf("schema_version rows = %d, want one per migration", applied)
	}

	wantTables := []string{"admin", "audit_event", "schema_version", "signup"}
	if got := schemaObjects(t, db, "table"); !slices.Equal(got, wantTables) {
		t.Errorf("tables = %v, want %v", got, wantTables)
	}
	wantIndexes := []string{"idx_audit_event_timestamp", "idx_signup_slot"}
	if got := schemaObjects(t, db, "index"); !slices.Equal(got, wantIndexes) {
		t.Errorf("indexes = %v, want %v", got, wantIndexes)
	}
}

// TestMigrateDB_KeepsRows verifies a rerun leaves existing signups and admins alone.
func TestMigrateDB_KeepsRows(t *testing.T) {
	db := openMemory(t)
	if err := MigrateDB(db, MemoryPath); err != nil {
		t.Fatalf("MigrateDB: %v", err)
	}
	mustExec(t, db, `INSERT INTO signup (day, hour, name, created_at) VALUES ('Monday', 9, 'Ada Lovelace', '2026-05-04T09:00:00Z')`)
	mustExec(t, db, `INSERT INTO admin (id, username, password_hash) VALUES ('a1', 'frontporchadmin', 'x')`)

	if err := MigrateDB(db, MemoryPath); err != nil {
		t.Fatalf("MigrateDB again: %v", err)
	}
	var signups, admins int
	db.QueryRow("SELECT COUNT(*) FROM signup").Scan(&signups)
	db.QueryRow("SELECT COUNT(*) FROM admin").Scan(&admins)
	if signups != 1 || admins != 1 {
		t.Errorf("rows = %d signups, %d admins; want 1 and 1", signups, admins)
	}
}

// TestMigrateDB_AdoptsFirstVersionDatabase verifies a database written by the first
// version of the app keeps its signups and its bcrypt admin.
func TestMigrateDB_AdoptsFirstVersionDatabase(t *testing.T) {
	db := openMemory(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("toomanymugs"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	mustExec(t, db, `CREATE TABLE signup (id INTEGER NOT NULL PRIMARY KEY, day VARCHAR NOT NULL, hour INTEGER NOT NULL, name VARCHAR NOT NULL)`)
	mustExec(t, db, `CREATE TABLE admin (id INTEGER NOT NULL PRIMARY KEY, username VARCHAR NOT NULL, password_hash VARCHAR NOT NULL)`)
	mustExec(t, db, `CREATE INDEX ix_admin_username ON admin (username)`)
	mustExec(t, db, `INSERT INTO signup (day, hour, name) VALUES ('Tuesday', 14, 'Grace Hopper'), ('Monday', 9, 'Dara O''Briain')`)
	mustExec(t, db, `INSERT INTO admin (username, password_hash) VALUES ('frontporchadmin', ?)`, string(hash))

	if err := MigrateDB(db, MemoryPath); err != nil {
		t.Fatalf("MigrateDB: %v", err)
	}

	if got := columns(t, db, "signup"); !slices.Contains(got, "created_at") {
		t.Errorf("signup columns = %v, want created_at added", got)
	}
	var name string
	if err := db.QueryRow("SELECT name FROM signup WHERE day = 'Monday' AND hour = 9").Scan(&name); err != nil || name != "Dara O'Briain" {
		t.Errorf("signup = %q, %v", name, err)
	}

	var id, storedHash string
	if err := db.QueryRow("SELECT id, password_hash FROM admin WHERE username = 'frontporchadmin'").Scan(&id, &storedHash); err != nil {
		t.Fatalf("admin lost: %v", err)
	}
	if id != "legacy-1" {
		t.Errorf("admin id = %q, want legacy-1", id)
	}
	if bcrypt.CompareHashAndPassword([]byte(storedHash), []byte("toomanymugs")) != nil {
		t.Error("admin password no longer verifies")
	}
	if got := columns(t, db, "admin"); !slices.Equal(got, []string{"created_at", "id", "password_hash", "username"}) {
		t.Errorf("admin columns = %v", got)
	}
}

// TestMigrateDB_DropsPlaintextAdmins verifies admins stored by the old restore script
// are not carried over.
func TestMigrateDB_DropsPlaintextAdmins(t *testing.T) {
	db := openMemory(t)
	mustExec(t, db, `CREATE TABLE admin (id INTEGER PRIMARY KEY AUTOINCREMENT, username TEXT UNIQUE NOT NULL, password TEXT NOT NULL)`)
	mustExec(t, db, `INSERT INTO admin (username, password) VALUES ('frontporchadmin', 'toomanymugs')`)

	if err := MigrateDB(db, MemoryPath); err != nil {
		t.Fatalf("MigrateDB: %v", err)
	}
	var n int
	db.QueryRow("SELECT COUNT(*) FROM admin").Scan(&n)
	if n != 0 {
		t.Errorf("admins = %d, want 0", n)
	}
	if got := columns(t, db, "admin"); slices.Contains(got, "password") {
		t.Errorf("admin columns = %v, plaintext column survived", got)
	}
}

// TestMigrateDB_Backup verifies file databases with data are copied aside once.
func TestMigrateDB_Backup(t *testing.T) {
	t.Run("existing data", func(t *testing.T) {
		db, path := openFile(t, "volunteers.db")
		mustExec(t, db, `CREATE TABLE signup (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL, day TEXT NOT NULL, hour INTEGER NOT NULL)`)
		mustExec(t, db, `INSERT INTO signup (name, day, hour) VALUES ('Ada', 'Monday', 9)`)

		if err := MigrateDB(db, path); err != nil {
			t.Fatalf("MigrateDB: %v", err)
		}
		backup, err := Open(path + ".bak-v0")
		if err != nil {
			t.Fatalf("open backup: %v", err)
		}
		defer backup.Close()
		if got := columns(t, backup, "signup"); slices.Contains(got, "created_at") {
			t.Error("backup was taken after migrating")
		}
	})
	t.Run("fresh file", func(t *testing.T) {
		db, path := openFile(t, "fresh.db")
		if err := MigrateDB(db, path); err != nil {
			t.Fatalf("MigrateDB: %v", err)
		}
		if _, err := os.Stat(path + ".bak-v0"); !os.IsNotExist(err) {
			t.Errorf("unexpected backup, stat err = %v", err)
		}
	})
}

// TestOpen_Pragmas verifies the connection settings stores depend on.
func TestOpen_Pragmas(t *testing.T) {
	db, _ := openFile(t, "pragmas.db")

	var mode string
	var fk, busy int
	db.QueryRow("PRAGMA journal_mode").Scan(&mode)
	db.QueryRow("PRAGMA foreign_keys").Scan(&fk)
	db.QueryRow("PRAGMA busy_timeout").Scan(&busy)
	if mode != "wal" || fk != 1 || busy != 5000 {
		t.Errorf("journal_mode=%q foreign_keys=%d busy_timeout=%d", mode, fk, busy)
	}
}
