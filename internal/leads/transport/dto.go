// Package transport defines request and response DTOs for the leads API.
package transport

import (
	"time"

	"github.com/google/uuid"

	"imobcrm_backend/internal/leads/repository"
)

type CreateLeadRequest struct {
	Name             string   `json:"name" validate:"required,min=1,max=200"`
	Phone            string   `json:"phone" validate:"required,min=8,max=20"`
	PropertyInterest string   `json:"propertyInterest" validate:"max=200"`
	EstimatedValue   *float64 `json:"estimatedValue,omitempty" validate:"omitempty,min=0"`
	Score            int      `json:"score" validate:"min=0,max=100"`
	Notes            string   `json:"notes" validate:"max=2000"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=novo contatado interessado visita_agendada proposta fechado perdido"`
}

type ListLeadsRequest struct {
	Status   string `form:"status" validate:"omitempty,oneof=novo contatado interessado visita_agendada proposta fechado perdido"`
	Search   string `form:"search" validate:"max=100"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

type LeadResponse struct {
	ID                uuid.UUID  `json:"id"`
	CorretorID        *uuid.UUID `json:"corretorId,omitempty"`
	Name              string     `json:"name"`
	Phone             string     `json:"phone"`
	Status            string     `json:"status"`
	PropertyInterest  string     `json:"propertyInterest"`
	EstimatedValue    *float64   `json:"estimatedValue,omitempty"`
	Score             int        `json:"score"`
	Source            string     `json:"source"`
	Notes             string     `json:"notes"`
	EntryDate         string     `json:"entryDate"`
	LastInteractionAt *string    `json:"lastInteractionAt,omitempty"`
	CreatedAt         string     `json:"createdAt"`
	UpdatedAt         string     `json:"updatedAt"`
}

type LeadListResponse struct {
	Items      []LeadResponse `json:"items"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalPages int            `json:"totalPages"`
}

type InteractionResponse struct {
	ID          uuid.UUID `json:"id"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	CreatedAt   string    `json:"createdAt"`
}

// NewLeadResponse maps a repository lead to its API shape.
func NewLeadResponse(lead repository.Lead) LeadResponse {
	resp := LeadResponse{
		ID:               lead.ID,
		CorretorID:       lead.CorretorID,
		Name:             lead.Name,
		Phone:            lead.Phone,
		Status:           lead.Status,
		PropertyInterest: lead.PropertyInterest,
		EstimatedValue:   lead.EstimatedValue,
		Score:            lead.Score,
		Source:           lead.Source,
		Notes:            lead.Notes,
		EntryDate:        lead.EntryDate.Format(time.RFC3339),
		CreatedAt:        lead.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        lead.UpdatedAt.Format(time.RFC3339),
	}
	if lead.LastInteractionAt != nil {
		formatted := lead.LastInteractionAt.Format(time.RFC3339)
		resp.LastInteractionAt = &formatted
	}
	return resp
}

// NewLeadListResponse maps a page of leads.
func NewLeadListResponse(leads []repository.Lead, total, page, pageSize int) LeadListResponse {
	items := make([]LeadResponse, 0, len(leads))
	for _, lead := range leads {
		items = append(items, NewLeadResponse(lead))
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}
	totalPages := (total + pageSize - 1) / pageSize

	return LeadListResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

// NewInteractionResponses maps timeline entries.
func NewInteractionResponses(interactions []repository.Interaction) []InteractionResponse {
	out := make([]InteractionResponse, 0, len(interactions))
	for _, it := range interactions {
		out = append(out, InteractionResponse{
			ID:          it.ID,
			Type:        it.Type,
			Description: it.Description,
			CreatedAt:   it.CreatedAt.Format(time.RFC3339),
		})
	}
	return out
}
