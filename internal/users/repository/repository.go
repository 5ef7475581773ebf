// Package repository implements user persistence on PostgreSQL.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"imobcrm_backend/platform/apperr"
)

const userNotFoundMessage = "user not found"

// Roles known to the system.
const (
	RoleGestor   = "gestor"
	RoleCorretor = "corretor"
)

// User is the persistence model for a user row.
type User struct {
	ID           uuid.UUID
	ManagerID    *uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

// Repo implements the users repository.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new users repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const userColumns = `id, manager_id, name, email, password_hash, role, created_at`

// GetByEmail retrieves a user by email for login.
func (r *Repo) GetByEmail(ctx context.Context, email string) (User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, apperr.NotFound(userNotFoundMessage)
		}
		return User{}, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

// GetByID retrieves a user by id.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, apperr.NotFound(userNotFoundMessage)
		}
		return User{}, fmt.Errorf("get user by id: %w", err)
	}
	return user, nil
}

// ListCorretores returns the manager's agent roster ordered by seniority.
func (r *Repo) ListCorretores(ctx context.Context, managerID uuid.UUID) ([]User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		WHERE manager_id = $1 AND role = $2
		ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, managerID, RoleCorretor)
	if err != nil {
		return nil, fmt.Errorf("list corretores: %w", err)
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan corretor: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (User, error) {
	var user User
	err := row.Scan(&user.ID, &user.ManagerID, &user.Name, &user.Email,
		&user.PasswordHash, &user.Role, &user.CreatedAt)
	return user, err
}
