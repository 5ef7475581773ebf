package assignment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo reads sweep candidates and applies assignments against postgres.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// ListManagersWithPending returns managers that own at least one unassigned
// lead in status novo older than the cutoff.
func (r *Repo) ListManagersWithPending(ctx context.Context, olderThan time.Time) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT user_id
		FROM leads
		WHERE corretor_id IS NULL
		  AND status = 'novo'
		  AND entry_date < $1`, olderThan)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanIDs(rows)
}

// ListPendingLeads returns the manager's unassigned novo leads older than the
// cutoff, oldest first so the longest-waiting lead is handed out first.
func (r *Repo) ListPendingLeads(ctx context.Context, managerID uuid.UUID, olderThan time.Time) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id
		FROM leads
		WHERE user_id = $1
		  AND corretor_id IS NULL
		  AND status = 'novo'
		  AND entry_date < $2
		ORDER BY entry_date ASC`, managerID, olderThan)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanIDs(rows)
}

// Roster returns the manager's corretores in seniority order. The order is
// stable so the rotation cursor stays meaningful across sweeps.
func (r *Repo) Roster(ctx context.Context, managerID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id
		FROM users
		WHERE manager_id = $1 AND role = 'corretor'
		ORDER BY created_at ASC`, managerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanIDs(rows)
}

// LastAssigned returns the rotation cursor for the manager, nil when no sweep
// has assigned anything yet.
func (r *Repo) LastAssigned(ctx context.Context, managerID uuid.UUID) (*uuid.UUID, error) {
	var last *uuid.UUID
	err := r.pool.QueryRow(ctx, `
		SELECT last_agent_id FROM assignment_state WHERE user_id = $1`, managerID).Scan(&last)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return last, nil
}

// Assign hands one lead to an agent and advances the rotation cursor in the
// same transaction. Returns false when the lead was already taken by a
// concurrent writer.
func (r *Repo) Assign(ctx context.Context, managerID, leadID, agentID uuid.UUID) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE leads
		SET corretor_id = $1, status = 'contatado', updated_at = now()
		WHERE id = $2 AND user_id = $3 AND corretor_id IS NULL`, agentID, leadID, managerID)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO assignment_state (user_id, last_agent_id, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id) DO UPDATE
		SET last_agent_id = EXCLUDED.last_agent_id, updated_at = now()`, managerID, agentID)
	if err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func scanIDs(rows pgx.Rows) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
