// Package repository implements WhatsApp instance persistence on PostgreSQL.
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

const instanceNotFoundMessage = "whatsapp instance not found"

// Instance is the persistence model for a gateway session row.
type Instance struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	InstanceName  string
	InstanceToken string
	Status        string
	DeletedAt     *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Repository is the persistence boundary for instances.
type Repository interface {
	Create(ctx context.Context, userID uuid.UUID, instanceName, instanceToken, status string) (Instance, error)
	GetActiveByUser(ctx context.Context, userID uuid.UUID) (Instance, error)
	GetActiveByName(ctx context.Context, instanceName string) (Instance, error)
	ListByStatus(ctx context.Context, status string) ([]Instance, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (Instance, error)
	UpdateToken(ctx context.Context, id uuid.UUID, token string) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

// Repo implements the instances repository.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new instances repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

const instanceColumns = `id, user_id, instance_name, instance_token, status, deleted_at, created_at, updated_at`

// Create inserts a new active instance row for the manager.
func (r *Repo) Create(ctx context.Context, userID uuid.UUID, instanceName, instanceToken, status string) (Instance, error) {
	query := `
		INSERT INTO whatsapp_instances (user_id, instance_name, instance_token, status)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + instanceColumns

	inst, err := scanInstance(r.pool.QueryRow(ctx, query, userID, instanceName, instanceToken, status))
	if err != nil {
		return Instance{}, fmt.Errorf("create instance: %w", err)
	}
	return inst, nil
}

// GetActiveByUser returns the manager's non-deleted instance.
func (r *Repo) GetActiveByUser(ctx context.Context, userID uuid.UUID) (Instance, error) {
	query := `SELECT ` + instanceColumns + `
		FROM whatsapp_instances WHERE user_id = $1 AND deleted_at IS NULL`

	inst, err := scanInstance(r.pool.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Instance{}, apperr.NotFound(instanceNotFoundMessage)
		}
		return Instance{}, fmt.Errorf("get instance by user: %w", err)
	}
	return inst, nil
}

// GetActiveByName resolves a webhook payload's instance name to its row.
func (r *Repo) GetActiveByName(ctx context.Context, instanceName string) (Instance, error) {
	query := `SELECT ` + instanceColumns + `
		FROM whatsapp_instances WHERE instance_name = $1 AND deleted_at IS NULL`

	inst, err := scanInstance(r.pool.QueryRow(ctx, query, instanceName))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Instance{}, apperr.NotFound(instanceNotFoundMessage)
		}
		return Instance{}, fmt.Errorf("get instance by name: %w", err)
	}
	return inst, nil
}

// ListByStatus returns all non-deleted instances in the given status.
func (r *Repo) ListByStatus(ctx context.Context, status string) ([]Instance, error) {
	query := `SELECT ` + instanceColumns + `
		FROM whatsapp_instances WHERE status = $1 AND deleted_at IS NULL
		ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("list instances by status: %w", err)
	}
	defer rows.Close()

	instances := make([]Instance, 0)
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan instance: %w", err)
		}
		instances = append(instances, inst)
	}
	return instances, rows.Err()
}

// UpdateStatus persists a connection state change.
func (r *Repo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (Instance, error) {
	query := `
		UPDATE whatsapp_instances
		SET status = $2, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING ` + instanceColumns

	inst, err := scanInstance(r.pool.QueryRow(ctx, query, id, status))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Instance{}, apperr.NotFound(instanceNotFoundMessage)
		}
		return Instance{}, fmt.Errorf("update instance status: %w", err)
	}
	return inst, nil
}

// UpdateToken stores the gateway-issued credential after instance creation.
func (r *Repo) UpdateToken(ctx context.Context, id uuid.UUID, token string) error {
	query := `UPDATE whatsapp_instances SET instance_token = $2, updated_at = now() WHERE id = $1`
	if _, err := r.pool.Exec(ctx, query, id, token); err != nil {
		return fmt.Errorf("update instance token: %w", err)
	}
	return nil
}

// SoftDelete marks the row deleted and disconnected. Local state is the
// source of truth, so this never depends on the gateway answering.
func (r *Repo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE whatsapp_instances
		SET deleted_at = now(), status = 'disconnected', updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("soft delete instance: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(instanceNotFoundMessage)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanInstance(row rowScanner) (Instance, error) {
	var inst Instance
	err := row.Scan(&inst.ID, &inst.UserID, &inst.InstanceName, &inst.InstanceToken,
		&inst.Status, &inst.DeletedAt, &inst.CreatedAt, &inst.UpdatedAt)
	return inst, err
}
