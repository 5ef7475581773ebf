// Package repository implements lead persistence on PostgreSQL.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"imobcrm_backend/platform/apperr"
)

const leadNotFoundMessage = "lead not found"

const leadColumns = `id, user_id, corretor_id, name, phone, status, property_interest,
	estimated_value, score, source, notes, entry_date, last_interaction_at, created_at, updated_at`

// Repo implements the leads repository.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new leads repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// Create inserts a lead. The unique index on (user_id, phone) makes the
// insert a no-op when the phone already has a lead; inserted reports which
// case happened.
func (r *Repo) Create(ctx context.Context, params CreateLeadParams) (Lead, bool, error) {
	query := `
		INSERT INTO leads (user_id, name, phone, property_interest, estimated_value, score, source, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, phone) DO NOTHING
		RETURNING ` + leadColumns

	lead, err := scanLead(r.pool.QueryRow(ctx, query,
		params.UserID, params.Name, params.Phone, params.PropertyInterest,
		params.EstimatedValue, params.Score, params.Source, params.Notes,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lead{}, false, nil
		}
		return Lead{}, false, fmt.Errorf("create lead: %w", err)
	}
	return lead, true, nil
}

// ExistsByPhone reports whether the manager already has a lead for the phone.
func (r *Repo) ExistsByPhone(ctx context.Context, userID uuid.UUID, phone string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM leads WHERE user_id = $1 AND phone = $2)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, userID, phone).Scan(&exists); err != nil {
		return false, fmt.Errorf("exists by phone: %w", err)
	}
	return exists, nil
}

// GetByID retrieves a lead scoped to the owning manager.
func (r *Repo) GetByID(ctx context.Context, userID, id uuid.UUID) (Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1 AND user_id = $2`

	lead, err := scanLead(r.pool.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lead{}, apperr.NotFound(leadNotFoundMessage)
		}
		return Lead{}, fmt.Errorf("get lead by id: %w", err)
	}
	return lead, nil
}

// FindByPhone retrieves a lead by its dedup key.
func (r *Repo) FindByPhone(ctx context.Context, userID uuid.UUID, phone string) (Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE user_id = $1 AND phone = $2`

	lead, err := scanLead(r.pool.QueryRow(ctx, query, userID, phone))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lead{}, apperr.NotFound(leadNotFoundMessage)
		}
		return Lead{}, fmt.Errorf("find lead by phone: %w", err)
	}
	return lead, nil
}

// List returns leads for the kanban board with filters and pagination.
func (r *Repo) List(ctx context.Context, params ListLeadsParams) ([]Lead, int, error) {
	whereClauses := []string{"user_id = $1"}
	args := []interface{}{params.UserID}

	if params.CorretorID != nil {
		args = append(args, *params.CorretorID)
		whereClauses = append(whereClauses, fmt.Sprintf("corretor_id = $%d", len(args)))
	}
	if params.Status != "" {
		args = append(args, params.Status)
		whereClauses = append(whereClauses, fmt.Sprintf("status = $%d", len(args)))
	}
	if params.Search != "" {
		args = append(args, "%"+params.Search+"%")
		whereClauses = append(whereClauses, fmt.Sprintf("(name ILIKE $%d OR phone ILIKE $%d)", len(args), len(args)))
	}

	where := strings.Join(whereClauses, " AND ")

	var total int
	countQuery := `SELECT COUNT(*) FROM leads WHERE ` + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count leads: %w", err)
	}

	page := params.Page
	if page < 1 {
		page = 1
	}
	pageSize := params.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 50
	}

	args = append(args, pageSize, (page-1)*pageSize)
	query := fmt.Sprintf(`SELECT %s FROM leads WHERE %s ORDER BY entry_date DESC LIMIT $%d OFFSET $%d`,
		leadColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan lead: %w", err)
		}
		leads = append(leads, lead)
	}
	return leads, total, rows.Err()
}

// UpdateStatus moves a lead through the funnel.
func (r *Repo) UpdateStatus(ctx context.Context, userID, id uuid.UUID, status string) (Lead, error) {
	query := `
		UPDATE leads
		SET status = $3, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + leadColumns

	lead, err := scanLead(r.pool.QueryRow(ctx, query, id, userID, status))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lead{}, apperr.NotFound(leadNotFoundMessage)
		}
		return Lead{}, fmt.Errorf("update lead status: %w", err)
	}
	return lead, nil
}

// AddInteraction appends a timeline entry to the lead.
func (r *Repo) AddInteraction(ctx context.Context, leadID uuid.UUID, interactionType, description string) error {
	query := `INSERT INTO interactions (lead_id, type, description) VALUES ($1, $2, $3)`
	if _, err := r.pool.Exec(ctx, query, leadID, interactionType, description); err != nil {
		return fmt.Errorf("add interaction: %w", err)
	}
	return nil
}

// ListInteractions returns the newest timeline entries for a lead.
func (r *Repo) ListInteractions(ctx context.Context, leadID uuid.UUID, limit int) ([]Interaction, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}

	query := `
		SELECT id, lead_id, type, description, created_at
		FROM interactions
		WHERE lead_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, leadID, limit)
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}
	defer rows.Close()

	interactions := make([]Interaction, 0)
	for rows.Next() {
		var it Interaction
		if err := rows.Scan(&it.ID, &it.LeadID, &it.Type, &it.Description, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		interactions = append(interactions, it)
	}
	return interactions, rows.Err()
}

// TouchLastInteraction bumps the lead's last interaction timestamp.
func (r *Repo) TouchLastInteraction(ctx context.Context, leadID uuid.UUID) error {
	query := `UPDATE leads SET last_interaction_at = now(), updated_at = now() WHERE id = $1`
	if _, err := r.pool.Exec(ctx, query, leadID); err != nil {
		return fmt.Errorf("touch last interaction: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLead(row rowScanner) (Lead, error) {
	var lead Lead
	err := row.Scan(
		&lead.ID, &lead.UserID, &lead.CorretorID, &lead.Name, &lead.Phone,
		&lead.Status, &lead.PropertyInterest, &lead.EstimatedValue, &lead.Score,
		&lead.Source, &lead.Notes, &lead.EntryDate, &lead.LastInteractionAt,
		&lead.CreatedAt, &lead.UpdatedAt,
	)
	return lead, err
}
