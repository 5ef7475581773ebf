// Package service implements user directory lookups shared across modules.
package service

import (
	"context"

	"github.com/google/uuid"

	"imobcrm_backend/internal/users/repository"
	"imobcrm_backend/platform/apperr"
)

// Reader is the repository surface the directory needs.
type Reader interface {
	GetByID(ctx context.Context, id uuid.UUID) (repository.User, error)
	ListCorretores(ctx context.Context, managerID uuid.UUID) ([]repository.User, error)
}

// Service implements the user directory.
type Service struct {
	repo Reader
}

// New creates a new users service.
func New(repo Reader) *Service {
	return &Service{repo: repo}
}

// ManagerFor resolves the owning manager for any user. Gestores own
// themselves; corretores belong to their manager.
func (s *Service) ManagerFor(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return uuid.Nil, err
	}

	if user.Role == repository.RoleGestor {
		return user.ID, nil
	}
	if user.ManagerID == nil {
		return uuid.Nil, apperr.Internal("corretor sem gestor vinculado")
	}
	return *user.ManagerID, nil
}

// Roster returns the manager's corretores in assignment order.
func (s *Service) Roster(ctx context.Context, managerID uuid.UUID) ([]repository.User, error) {
	return s.repo.ListCorretores(ctx, managerID)
}
