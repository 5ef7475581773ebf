package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Lead is the persistence model for a lead row.
type Lead struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	CorretorID        *uuid.UUID
	Name              string
	Phone             string
	Status            string
	PropertyInterest  string
	EstimatedValue    *float64
	Score             int
	Source            string
	Notes             string
	EntryDate         time.Time
	LastInteractionAt *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Interaction is one timeline entry for a lead.
type Interaction struct {
	ID          uuid.UUID
	LeadID      uuid.UUID
	Type        string
	Description string
	CreatedAt   time.Time
}

// CreateLeadParams carries everything needed to insert a lead.
type CreateLeadParams struct {
	UserID           uuid.UUID
	Name             string
	Phone            string
	PropertyInterest string
	EstimatedValue   *float64
	Score            int
	Source           string
	Notes            string
}

// ListLeadsParams filters the kanban listing.
type ListLeadsParams struct {
	UserID     uuid.UUID
	CorretorID *uuid.UUID
	Status     string
	Search     string
	Page       int
	PageSize   int
}

// Repository is the persistence boundary for leads.
type Repository interface {
	// Create inserts a lead. The inserted return is false when the
	// (user_id, phone) unique index suppressed the insert.
	Create(ctx context.Context, params CreateLeadParams) (Lead, bool, error)
	ExistsByPhone(ctx context.Context, userID uuid.UUID, phone string) (bool, error)
	GetByID(ctx context.Context, userID, id uuid.UUID) (Lead, error)
	List(ctx context.Context, params ListLeadsParams) ([]Lead, int, error)
	UpdateStatus(ctx context.Context, userID, id uuid.UUID, status string) (Lead, error)
	FindByPhone(ctx context.Context, userID uuid.UUID, phone string) (Lead, error)
	AddInteraction(ctx context.Context, leadID uuid.UUID, interactionType, description string) error
	ListInteractions(ctx context.Context, leadID uuid.UUID, limit int) ([]Interaction, error)
	TouchLastInteraction(ctx context.Context, leadID uuid.UUID) error
}
