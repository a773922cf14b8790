package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"frontporch/internal/adapters/storage"
	domain "frontporch/internal/domain/account"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new AdminStore.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByUsername retrieves an Admin by username.
// PRE: username is non-empty
// POST: Returns the entity or an error wrapping domain.ErrAccountNotFound
func (s *SQLiteStore) GetByUsername(ctx context.Context, username string) (domain.Admin, error) {
	query := "SELECT id, username, password_hash, created_at FROM admin WHERE username = ?"
	row := s.db.QueryRowContext(ctx, query, username)

	var entity domain.Admin
	var createdAt string
	err := row.Scan(&entity.ID, &entity.Username, &entity.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Admin{}, fmt.Errorf("admin %q: %w", username, domain.ErrAccountNotFound)
	}
	if err != nil {
		return domain.Admin{}, err
	}
	entity.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return entity, nil
}

// Save persists an Admin to the database.
// PRE: entity has been validated and carries a password hash
// POST: Entity is persisted (insert or update by id); a username taken by
// another id yields domain.ErrUsernameConflict
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Admin) error {
	if existing, err := s.GetByUsername(ctx, entity.Username); err == nil && existing.ID != entity.ID {
		return domain.ErrUsernameConflict
	}
	if entity.CreatedAt.IsZero() {
		entity.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO admin (id, username, password_hash, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET username=excluded.username, password_hash=excluded.password_hash`,
		entity.ID,
		entity.Username,
		entity.PasswordHash,
		entity.CreatedAt.Format(time.RFC3339Nano),
	)
	return err
}

// Count returns the total number of admins.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM admin").Scan(&count)
	return count, err
}
