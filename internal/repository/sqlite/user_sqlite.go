package sqlite_repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"github.com/SimpnicServerTeam/planner-usersync/internal/models"
	"github.com/SimpnicServerTeam/planner-usersync/internal/repository"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id             TEXT PRIMARY KEY,
	auth0_id       TEXT NOT NULL UNIQUE,
	email          TEXT NOT NULL UNIQUE COLLATE NOCASE,
	name           TEXT NOT NULL,
	full_name      TEXT NOT NULL DEFAULT '',
	username       TEXT UNIQUE,
	student_id     TEXT NOT NULL DEFAULT '',
	picture        TEXT NOT NULL DEFAULT '',
	email_verified BOOLEAN NOT NULL DEFAULT 0,
	role           TEXT NOT NULL DEFAULT 'student',
	is_active      BOOLEAN NOT NULL DEFAULT 1,
	last_login     DATETIME NOT NULL,
	created_at     DATETIME NOT NULL,
	updated_at     DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS users_role_idx ON users (role);
`

const selectColumns = `id, auth0_id, email, name, full_name, COALESCE(username, '') AS username,
	student_id, picture, email_verified, role, is_active, last_login, created_at, updated_at`

// SQLUserRepository implements UserRepository on top of SQLite through sqlx.
type SQLUserRepository struct {
	db *sqlx.DB
}

var _ repository.UserRepository = (*SQLUserRepository)(nil)

// Open connects to the database and creates the schema when missing.
func Open(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed opening connection to %s: %w", driver, err)
	}
	if strings.Contains(dsn, ":memory:") {
		// every new connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}
	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate creates the users table.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed creating schema resources: %w", err)
	}
	return nil
}

func NewSQLUserRepository(db *sqlx.DB) *SQLUserRepository {
	return &SQLUserRepository{db: db}
}

func (r *SQLUserRepository) CreateUser(ctx context.Context, p *models.UserProfile) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO users (id, auth0_id, email, name, full_name, username, student_id, picture,
			email_verified, role, is_active, last_login, created_at, updated_at)
		VALUES (:id, :auth0_id, :email, :name, :full_name, NULLIF(:username, ''), :student_id, :picture,
			:email_verified, :role, :is_active, :last_login, :created_at, :updated_at)`, p)
	if err != nil {
		return translateError("failed to create user", err)
	}
	return nil
}

func (r *SQLUserRepository) GetUserByAuthID(ctx context.Context, authID string) (*models.UserProfile, error) {
	return r.getOne(ctx, "auth0_id = ?", authID)
}

func (r *SQLUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.UserProfile, error) {
	return r.getOne(ctx, "email = ?", email)
}

func (r *SQLUserRepository) GetUserByID(ctx context.Context, id string) (*models.UserProfile, error) {
	return r.getOne(ctx, "id = ?", id)
}

func (r *SQLUserRepository) getOne(ctx context.Context, where string, arg any) (*models.UserProfile, error) {
	var p models.UserProfile
	err := r.db.GetContext(ctx, &p, "SELECT "+selectColumns+" FROM users WHERE "+where, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("database query failed for user: %w", err)
	}
	return &p, nil
}

func (r *SQLUserRepository) UpdateUser(ctx context.Context, p *models.UserProfile) error {
	res, err := r.db.NamedExecContext(ctx, `
		UPDATE users SET auth0_id = :auth0_id, email = :email, name = :name, full_name = :full_name,
			username = NULLIF(:username, ''), student_id = :student_id, picture = :picture,
			email_verified = :email_verified, role = :role, is_active = :is_active,
			last_login = :last_login, updated_at = :updated_at
		WHERE id = :id`, p)
	if err != nil {
		return translateError("failed to update user", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if n == 0 {
		return repository.ErrUserNotFound
	}
	return nil
}

func (r *SQLUserRepository) UsernameTaken(ctx context.Context, username, excludeAuthID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		"SELECT EXISTS (SELECT 1 FROM users WHERE username = ? AND auth0_id <> ?)", username, excludeAuthID)
	if err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}
	return exists, nil
}

func (r *SQLUserRepository) ListUsers(ctx context.Context, filter models.ProfileFilter) ([]*models.UserProfile, error) {
	query := "SELECT " + selectColumns + " FROM users"
	var args []any
	if filter.Role != "" {
		query += " WHERE role = ?"
		args = append(args, filter.Role)
	}
	query += " ORDER BY created_at"

	users := []*models.UserProfile{}
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (r *SQLUserRepository) DeleteUser(ctx context.Context, authID string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE auth0_id = ?", authID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if n == 0 {
		return repository.ErrUserNotFound
	}
	return nil
}

func translateError(msg string, err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		if strings.Contains(sqliteErr.Error(), "users.username") {
			return repository.ErrUsernameTaken
		}
		return repository.ErrUserExists
	}
	return fmt.Errorf("%s: %w", msg, err)
}
