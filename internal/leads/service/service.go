// Package service implements lead management use cases.
package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"imobcrm_backend/internal/events"
	"imobcrm_backend/internal/leads/domain"
	"imobcrm_backend/internal/leads/repository"
	"imobcrm_backend/internal/leads/transport"
	"imobcrm_backend/platform/apperr"
	"imobcrm_backend/platform/logger"
	"imobcrm_backend/platform/phone"
)

const roleGestor = "gestor"

// Directory resolves the owning manager for any user. A gestor owns their
// own leads; a corretor works the leads of their manager.
type Directory interface {
	ManagerFor(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
}

// Service implements lead management operations.
type Service struct {
	repo      repository.Repository
	directory Directory
	bus       events.Bus
	log       *logger.Logger
}

// New creates a new leads service.
func New(repo repository.Repository, directory Directory, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, directory: directory, bus: bus, log: log}
}

// scope is the data visibility window for one authenticated user.
type scope struct {
	managerID  uuid.UUID
	corretorID *uuid.UUID
}

func (s *Service) resolveScope(ctx context.Context, userID uuid.UUID, role string) (scope, error) {
	if role == roleGestor {
		return scope{managerID: userID}, nil
	}

	managerID, err := s.directory.ManagerFor(ctx, userID)
	if err != nil {
		return scope{}, fmt.Errorf("resolve manager: %w", err)
	}
	return scope{managerID: managerID, corretorID: &userID}, nil
}

// List returns the leads visible to the user. Corretores only see leads
// assigned to them.
func (s *Service) List(ctx context.Context, userID uuid.UUID, role string, req transport.ListLeadsRequest) (transport.LeadListResponse, error) {
	sc, err := s.resolveScope(ctx, userID, role)
	if err != nil {
		return transport.LeadListResponse{}, err
	}

	params := repository.ListLeadsParams{
		UserID:     sc.managerID,
		CorretorID: sc.corretorID,
		Status:     req.Status,
		Search:     req.Search,
		Page:       req.Page,
		PageSize:   req.PageSize,
	}

	leads, total, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.LeadListResponse{}, err
	}

	return transport.NewLeadListResponse(leads, total, params.Page, params.PageSize), nil
}

// Get retrieves a single lead within the user's scope.
func (s *Service) Get(ctx context.Context, userID uuid.UUID, role string, id uuid.UUID) (transport.LeadResponse, error) {
	sc, err := s.resolveScope(ctx, userID, role)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	lead, err := s.repo.GetByID(ctx, sc.managerID, id)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	if sc.corretorID != nil && (lead.CorretorID == nil || *lead.CorretorID != *sc.corretorID) {
		return transport.LeadResponse{}, apperr.Forbidden("lead pertence a outro corretor")
	}

	return transport.NewLeadResponse(lead), nil
}

// CreateManual registers a lead entered by hand in the UI.
func (s *Service) CreateManual(ctx context.Context, userID uuid.UUID, role string, req transport.CreateLeadRequest) (transport.LeadResponse, error) {
	sc, err := s.resolveScope(ctx, userID, role)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	normalized := phone.NormalizeE164(req.Phone)
	if normalized == "" {
		return transport.LeadResponse{}, apperr.Validation("telefone invalido")
	}

	lead, inserted, err := s.repo.Create(ctx, repository.CreateLeadParams{
		UserID:           sc.managerID,
		Name:             req.Name,
		Phone:            normalized,
		PropertyInterest: req.PropertyInterest,
		EstimatedValue:   req.EstimatedValue,
		Score:            req.Score,
		Source:           domain.SourceManual,
		Notes:            req.Notes,
	})
	if err != nil {
		return transport.LeadResponse{}, err
	}
	if !inserted {
		return transport.LeadResponse{}, apperr.Conflict("ja existe um lead com este telefone")
	}

	s.bus.Publish(ctx, events.LeadCreated{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		UserID:    lead.UserID,
		Phone:     lead.Phone,
		Name:      lead.Name,
		Score:     lead.Score,
		Source:    domain.SourceManual,
	})

	return transport.NewLeadResponse(lead), nil
}

// UpdateStatus moves a lead through the funnel (kanban drag).
func (s *Service) UpdateStatus(ctx context.Context, userID uuid.UUID, role string, id uuid.UUID, status string) (transport.LeadResponse, error) {
	if !domain.ValidStatus(status) {
		return transport.LeadResponse{}, apperr.Validation("status invalido")
	}

	sc, err := s.resolveScope(ctx, userID, role)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	current, err := s.repo.GetByID(ctx, sc.managerID, id)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	if sc.corretorID != nil && (current.CorretorID == nil || *current.CorretorID != *sc.corretorID) {
		return transport.LeadResponse{}, apperr.Forbidden("lead pertence a outro corretor")
	}

	lead, err := s.repo.UpdateStatus(ctx, sc.managerID, id, status)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	s.bus.Publish(ctx, events.LeadStatusChanged{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		UserID:    userID,
		OldStatus: current.Status,
		NewStatus: status,
	})

	return transport.NewLeadResponse(lead), nil
}

// Interactions returns the lead timeline.
func (s *Service) Interactions(ctx context.Context, userID uuid.UUID, role string, id uuid.UUID, limit int) ([]transport.InteractionResponse, error) {
	sc, err := s.resolveScope(ctx, userID, role)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.GetByID(ctx, sc.managerID, id); err != nil {
		return nil, err
	}

	interactions, err := s.repo.ListInteractions(ctx, id, limit)
	if err != nil {
		return nil, err
	}

	return transport.NewInteractionResponses(interactions), nil
}

// RecordInteraction writes a timeline entry. Used by event handlers, so
// failures are logged and swallowed.
func (s *Service) RecordInteraction(ctx context.Context, leadID uuid.UUID, interactionType, description string) {
	if err := s.repo.AddInteraction(ctx, leadID, interactionType, description); err != nil {
		s.log.Error("failed to record interaction", "leadId", leadID, "type", interactionType, "error", err)
		return
	}
	if err := s.repo.TouchLastInteraction(ctx, leadID); err != nil {
		s.log.Error("failed to touch last interaction", "leadId", leadID, "error", err)
	}
}

// RecordOutboundMessage resolves the lead by phone and records a sent
// message on its timeline.
func (s *Service) RecordOutboundMessage(ctx context.Context, managerID uuid.UUID, phoneNumber, text string) {
	lead, err := s.repo.FindByPhone(ctx, managerID, phoneNumber)
	if err != nil {
		if apperr.GetKind(err) != apperr.KindNotFound {
			s.log.Error("failed to resolve lead for outbound message", "phone", phoneNumber, "error", err)
		}
		return
	}
	s.RecordInteraction(ctx, lead.ID, domain.InteractionMessageSent, text)
}
