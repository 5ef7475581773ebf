package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"imobcrm_backend/internal/events"
	"imobcrm_backend/internal/leads/domain"
	"imobcrm_backend/internal/leads/repository"
	"imobcrm_backend/internal/leads/transport"
	"imobcrm_backend/platform/apperr"
	"imobcrm_backend/platform/logger"
)

type fakeRepo struct {
	leads      map[uuid.UUID]repository.Lead
	listParams repository.ListLeadsParams
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{leads: make(map[uuid.UUID]repository.Lead)}
}

func (f *fakeRepo) add(lead repository.Lead) repository.Lead {
	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
	}
	if lead.Status == "" {
		lead.Status = domain.StatusNovo
	}
	f.leads[lead.ID] = lead
	return lead
}

func (f *fakeRepo) Create(_ context.Context, params repository.CreateLeadParams) (repository.Lead, bool, error) {
	for _, lead := range f.leads {
		if lead.UserID == params.UserID && lead.Phone == params.Phone {
			return repository.Lead{}, false, nil
		}
	}
	lead := f.add(repository.Lead{
		UserID: params.UserID, Name: params.Name, Phone: params.Phone,
		PropertyInterest: params.PropertyInterest, EstimatedValue: params.EstimatedValue,
		Score: params.Score, Source: params.Source, Notes: params.Notes,
		EntryDate: time.Now(), CreatedAt: time.Now(), UpdatedAt: time.Now(),
	})
	return lead, true, nil
}

func (f *fakeRepo) ExistsByPhone(_ context.Context, userID uuid.UUID, phone string) (bool, error) {
	for _, lead := range f.leads {
		if lead.UserID == userID && lead.Phone == phone {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) GetByID(_ context.Context, userID, id uuid.UUID) (repository.Lead, error) {
	lead, ok := f.leads[id]
	if !ok || lead.UserID != userID {
		return repository.Lead{}, apperr.NotFound("lead nao encontrado")
	}
	return lead, nil
}

func (f *fakeRepo) List(_ context.Context, params repository.ListLeadsParams) ([]repository.Lead, int, error) {
	f.listParams = params
	var out []repository.Lead
	for _, lead := range f.leads {
		if lead.UserID != params.UserID {
			continue
		}
		if params.CorretorID != nil && (lead.CorretorID == nil || *lead.CorretorID != *params.CorretorID) {
			continue
		}
		out = append(out, lead)
	}
	return out, len(out), nil
}

func (f *fakeRepo) UpdateStatus(_ context.Context, userID, id uuid.UUID, status string) (repository.Lead, error) {
	lead, ok := f.leads[id]
	if !ok || lead.UserID != userID {
		return repository.Lead{}, apperr.NotFound("lead nao encontrado")
	}
	lead.Status = status
	f.leads[id] = lead
	return lead, nil
}

func (f *fakeRepo) FindByPhone(_ context.Context, userID uuid.UUID, phone string) (repository.Lead, error) {
	for _, lead := range f.leads {
		if lead.UserID == userID && lead.Phone == phone {
			return lead, nil
		}
	}
	return repository.Lead{}, apperr.NotFound("lead nao encontrado")
}

func (f *fakeRepo) AddInteraction(_ context.Context, _ uuid.UUID, _, _ string) error { return nil }

func (f *fakeRepo) ListInteractions(_ context.Context, _ uuid.UUID, _ int) ([]repository.Interaction, error) {
	return nil, nil
}

func (f *fakeRepo) TouchLastInteraction(_ context.Context, _ uuid.UUID) error { return nil }

type fakeDirectory struct {
	managers map[uuid.UUID]uuid.UUID
}

func (f *fakeDirectory) ManagerFor(_ context.Context, userID uuid.UUID) (uuid.UUID, error) {
	if managerID, ok := f.managers[userID]; ok {
		return managerID, nil
	}
	return userID, nil
}

func newTestService(repo *fakeRepo, dir *fakeDirectory) *Service {
	log := logger.New("test")
	if dir == nil {
		dir = &fakeDirectory{}
	}
	return New(repo, dir, events.NewInMemoryBus(log), log)
}

func TestCreateManualNormalizesPhone(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, nil)
	gestorID := uuid.New()

	resp, err := svc.CreateManual(context.Background(), gestorID, "gestor", transport.CreateLeadRequest{
		Name:  "Maria Souza",
		Phone: "(11) 99999-0000",
	})
	if err != nil {
		t.Fatalf("CreateManual: %v", err)
	}
	if resp.Phone != "+5511999990000" {
		t.Errorf("phone = %q, want +5511999990000", resp.Phone)
	}
	if resp.Source != domain.SourceManual {
		t.Errorf("source = %q, want manual", resp.Source)
	}
}

func TestCreateManualRejectsDuplicatePhone(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, nil)
	gestorID := uuid.New()

	req := transport.CreateLeadRequest{Name: "Maria", Phone: "11999990000"}
	if _, err := svc.CreateManual(context.Background(), gestorID, "gestor", req); err != nil {
		t.Fatalf("first create: %v", err)
	}

	_, err := svc.CreateManual(context.Background(), gestorID, "gestor", req)
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Errorf("err = %v, want conflict", err)
	}
}

func TestCreateManualRejectsBadPhone(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, nil)

	_, err := svc.CreateManual(context.Background(), uuid.New(), "gestor", transport.CreateLeadRequest{
		Name:  "Maria",
		Phone: "abc",
	})
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Errorf("err = %v, want validation", err)
	}
}

func TestCorretorListScopedToOwnLeads(t *testing.T) {
	repo := newFakeRepo()
	gestorID := uuid.New()
	corretorID := uuid.New()
	otherID := uuid.New()

	repo.add(repository.Lead{UserID: gestorID, CorretorID: &corretorID, Phone: "+5511900000001"})
	repo.add(repository.Lead{UserID: gestorID, CorretorID: &otherID, Phone: "+5511900000002"})
	repo.add(repository.Lead{UserID: gestorID, Phone: "+5511900000003"})

	dir := &fakeDirectory{managers: map[uuid.UUID]uuid.UUID{corretorID: gestorID}}
	svc := newTestService(repo, dir)

	resp, err := svc.List(context.Background(), corretorID, "corretor", transport.ListLeadsRequest{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if resp.Total != 1 {
		t.Errorf("total = %d, want only the corretor's own lead", resp.Total)
	}
	if repo.listParams.UserID != gestorID {
		t.Error("corretor queries must run against the manager's leads")
	}
	if repo.listParams.CorretorID == nil || *repo.listParams.CorretorID != corretorID {
		t.Error("corretor filter must be forced")
	}
}

func TestCorretorCannotTouchOthersLead(t *testing.T) {
	repo := newFakeRepo()
	gestorID := uuid.New()
	corretorID := uuid.New()
	otherID := uuid.New()

	lead := repo.add(repository.Lead{UserID: gestorID, CorretorID: &otherID, Phone: "+5511900000002"})

	dir := &fakeDirectory{managers: map[uuid.UUID]uuid.UUID{corretorID: gestorID, otherID: gestorID}}
	svc := newTestService(repo, dir)

	if _, err := svc.Get(context.Background(), corretorID, "corretor", lead.ID); apperr.GetKind(err) != apperr.KindForbidden {
		t.Errorf("Get err = %v, want forbidden", err)
	}

	_, err := svc.UpdateStatus(context.Background(), corretorID, "corretor", lead.ID, domain.StatusInteressado)
	if apperr.GetKind(err) != apperr.KindForbidden {
		t.Errorf("UpdateStatus err = %v, want forbidden", err)
	}
	if repo.leads[lead.ID].Status != domain.StatusNovo {
		t.Error("status must not change")
	}
}

func TestUpdateStatusValidatesAndMoves(t *testing.T) {
	repo := newFakeRepo()
	gestorID := uuid.New()
	lead := repo.add(repository.Lead{UserID: gestorID, Phone: "+5511900000001"})
	svc := newTestService(repo, nil)

	if _, err := svc.UpdateStatus(context.Background(), gestorID, "gestor", lead.ID, "arquivado"); apperr.GetKind(err) != apperr.KindValidation {
		t.Errorf("err = %v, want validation for unknown status", err)
	}

	resp, err := svc.UpdateStatus(context.Background(), gestorID, "gestor", lead.ID, domain.StatusVisitaAgendada)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if resp.Status != domain.StatusVisitaAgendada {
		t.Errorf("status = %q, want visita_agendada", resp.Status)
	}
}
