package ingestion

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"imobcrm_backend/internal/events"
	"imobcrm_backend/internal/gateway"
	instrepo "imobcrm_backend/internal/instances/repository"
	leadsdomain "imobcrm_backend/internal/leads/domain"
	leadsrepo "imobcrm_backend/internal/leads/repository"
	"imobcrm_backend/internal/scoring"
	"imobcrm_backend/platform/apperr"
	"imobcrm_backend/platform/logger"
)

type fakeLeadRepo struct {
	leads      map[string]leadsrepo.Lead // keyed by userID+phone
	failPhones map[string]bool
	created    []leadsrepo.Lead
}

func newFakeLeadRepo() *fakeLeadRepo {
	return &fakeLeadRepo{
		leads:      make(map[string]leadsrepo.Lead),
		failPhones: make(map[string]bool),
	}
}

func key(userID uuid.UUID, phone string) string {
	return userID.String() + "|" + phone
}

func (f *fakeLeadRepo) Create(_ context.Context, params leadsrepo.CreateLeadParams) (leadsrepo.Lead, bool, error) {
	if f.failPhones[params.Phone] {
		return leadsrepo.Lead{}, false, errors.New("db write failed")
	}
	k := key(params.UserID, params.Phone)
	if _, ok := f.leads[k]; ok {
		return leadsrepo.Lead{}, false, nil
	}
	lead := leadsrepo.Lead{
		ID: uuid.New(), UserID: params.UserID, Name: params.Name,
		Phone: params.Phone, Status: leadsdomain.StatusNovo,
		PropertyInterest: params.PropertyInterest, Score: params.Score,
		Source: params.Source, Notes: params.Notes, CreatedAt: time.Now(),
	}
	f.leads[k] = lead
	f.created = append(f.created, lead)
	return lead, true, nil
}

func (f *fakeLeadRepo) ExistsByPhone(_ context.Context, userID uuid.UUID, phone string) (bool, error) {
	_, ok := f.leads[key(userID, phone)]
	return ok, nil
}

func (f *fakeLeadRepo) GetByID(_ context.Context, _, _ uuid.UUID) (leadsrepo.Lead, error) {
	return leadsrepo.Lead{}, apperr.NotFound("lead not found")
}

func (f *fakeLeadRepo) List(_ context.Context, _ leadsrepo.ListLeadsParams) ([]leadsrepo.Lead, int, error) {
	return nil, 0, nil
}

func (f *fakeLeadRepo) UpdateStatus(_ context.Context, _, _ uuid.UUID, _ string) (leadsrepo.Lead, error) {
	return leadsrepo.Lead{}, apperr.NotFound("lead not found")
}

func (f *fakeLeadRepo) FindByPhone(_ context.Context, userID uuid.UUID, phone string) (leadsrepo.Lead, error) {
	if lead, ok := f.leads[key(userID, phone)]; ok {
		return lead, nil
	}
	return leadsrepo.Lead{}, apperr.NotFound("lead not found")
}

func (f *fakeLeadRepo) AddInteraction(_ context.Context, _ uuid.UUID, _, _ string) error {
	return nil
}

func (f *fakeLeadRepo) ListInteractions(_ context.Context, _ uuid.UUID, _ int) ([]leadsrepo.Interaction, error) {
	return nil, nil
}

func (f *fakeLeadRepo) TouchLastInteraction(_ context.Context, _ uuid.UUID) error {
	return nil
}

type fakeInstanceSource struct {
	instances []instrepo.Instance
}

func (f *fakeInstanceSource) ListByStatus(_ context.Context, status string) ([]instrepo.Instance, error) {
	out := make([]instrepo.Instance, 0)
	for _, inst := range f.instances {
		if inst.Status == status {
			out = append(out, inst)
		}
	}
	return out, nil
}

type fakeFetcher struct {
	messages map[string][]gateway.Message
}

func (f *fakeFetcher) FindMessages(_ context.Context, instanceName string, _ int) ([]gateway.Message, error) {
	return f.messages[instanceName], nil
}

type memorySeen struct {
	seen map[string]bool
}

func (m *memorySeen) MarkSeen(_ context.Context, id string) (bool, error) {
	if m.seen == nil {
		m.seen = make(map[string]bool)
	}
	if m.seen[id] {
		return false, nil
	}
	m.seen[id] = true
	return true, nil
}

func newTestService(src InstanceSource, fetcher MessageFetcher, repo leadsrepo.Repository, seen SeenCache) *Service {
	log := logger.New("test")
	scorer := scoring.NewService(nil, log)
	return New(src, fetcher, repo, scorer, seen, events.NewInMemoryBus(log), log)
}

func connectedInstance(name string) instrepo.Instance {
	return instrepo.Instance{
		ID: uuid.New(), UserID: uuid.New(), InstanceName: name, Status: "connected",
	}
}

func inbound(id, jid, body string) gateway.Message {
	return gateway.Message{
		ID: id, RemoteJID: jid, PushName: "Cliente", Body: body, Timestamp: time.Now(),
	}
}

func TestRunCycleNoConnectedInstances(t *testing.T) {
	repo := newFakeLeadRepo()
	svc := newTestService(&fakeInstanceSource{}, &fakeFetcher{}, repo, &memorySeen{})

	summary, err := svc.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if summary != (Summary{}) {
		t.Errorf("summary = %+v, want zero", summary)
	}
	if len(repo.created) != 0 {
		t.Errorf("no writes expected, got %d leads", len(repo.created))
	}
}

func TestRunCycleCreatesScoredLead(t *testing.T) {
	inst := connectedInstance("imob-a")
	repo := newFakeLeadRepo()
	fetcher := &fakeFetcher{messages: map[string][]gateway.Message{
		"imob-a": {inbound("M1", "5511999999999@s.whatsapp.net", "Quero um apartamento urgente, 2 quartos")},
	}}
	svc := newTestService(&fakeInstanceSource{instances: []instrepo.Instance{inst}}, fetcher, repo, &memorySeen{})

	summary, err := svc.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if summary.Leads != 1 || summary.Messages != 1 || summary.Instances != 1 {
		t.Fatalf("summary = %+v", summary)
	}

	lead := repo.created[0]
	if lead.Phone != "+5511999999999" {
		t.Errorf("phone = %q, want +5511999999999", lead.Phone)
	}
	if lead.Status != leadsdomain.StatusNovo {
		t.Errorf("status = %q, want novo", lead.Status)
	}
	if lead.Score < 85 {
		t.Errorf("score = %d, want urgent tier", lead.Score)
	}
	if lead.Source != leadsdomain.SourcePoll {
		t.Errorf("source = %q, want poll", lead.Source)
	}
	if !strings.Contains(lead.Notes, "Quero um apartamento urgente") {
		t.Errorf("notes must keep the original message, got %q", lead.Notes)
	}
}

func TestProcessMessageSkipsOwnAndEmpty(t *testing.T) {
	inst := connectedInstance("imob-a")
	repo := newFakeLeadRepo()
	svc := newTestService(&fakeInstanceSource{}, &fakeFetcher{}, repo, &memorySeen{})

	own := inbound("M1", "5511999999999@s.whatsapp.net", "resposta do corretor")
	own.FromMe = true
	if created, err := svc.ProcessMessage(context.Background(), inst, own, leadsdomain.SourcePoll); err != nil || created {
		t.Errorf("fromMe message: created=%v err=%v", created, err)
	}

	empty := inbound("M2", "5511999999999@s.whatsapp.net", "")
	if created, err := svc.ProcessMessage(context.Background(), inst, empty, leadsdomain.SourcePoll); err != nil || created {
		t.Errorf("empty message: created=%v err=%v", created, err)
	}

	if len(repo.created) != 0 {
		t.Errorf("no leads expected, got %d", len(repo.created))
	}
}

func TestProcessMessageSkipsUnparseableJID(t *testing.T) {
	inst := connectedInstance("imob-a")
	repo := newFakeLeadRepo()
	svc := newTestService(&fakeInstanceSource{}, &fakeFetcher{}, repo, &memorySeen{})

	broadcast := inbound("M1", "status@broadcast", "oferta da semana")
	created, err := svc.ProcessMessage(context.Background(), inst, broadcast, leadsdomain.SourcePoll)
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if created {
		t.Error("broadcast jid must not create a lead")
	}
	if len(repo.created) != 0 {
		t.Errorf("no leads expected, got %d", len(repo.created))
	}
}

func TestProcessMessageDedupGate(t *testing.T) {
	inst := connectedInstance("imob-a")
	repo := newFakeLeadRepo()
	svc := newTestService(&fakeInstanceSource{}, &fakeFetcher{}, repo, &memorySeen{})

	first := inbound("M1", "5511988887777@s.whatsapp.net", "Procuro casa")
	if created, _ := svc.ProcessMessage(context.Background(), inst, first, leadsdomain.SourcePoll); !created {
		t.Fatal("first message should create a lead")
	}

	second := inbound("M2", "5511988887777@s.whatsapp.net", "Ainda procuro casa")
	created, err := svc.ProcessMessage(context.Background(), inst, second, leadsdomain.SourcePoll)
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if created {
		t.Error("second message from same phone must not create a lead")
	}
	if len(repo.created) != 1 {
		t.Errorf("leads = %d, want 1", len(repo.created))
	}
}

func TestProcessMessageDuplicateDelivery(t *testing.T) {
	inst := connectedInstance("imob-a")
	repo := newFakeLeadRepo()
	seen := &memorySeen{}
	svc := newTestService(&fakeInstanceSource{}, &fakeFetcher{}, repo, seen)

	msg := inbound("M1", "5511988887777@s.whatsapp.net", "Procuro casa")
	if created, _ := svc.ProcessMessage(context.Background(), inst, msg, leadsdomain.SourcePoll); !created {
		t.Fatal("first delivery should create a lead")
	}

	// Same message id arriving through the webhook entry.
	created, err := svc.ProcessMessage(context.Background(), inst, msg, leadsdomain.SourceWebhook)
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if created {
		t.Error("duplicate message id must be dropped by the seen cache")
	}
}

func TestRunCyclePartialFailure(t *testing.T) {
	inst := connectedInstance("imob-a")
	repo := newFakeLeadRepo()
	repo.failPhones["+5511900000002"] = true

	fetcher := &fakeFetcher{messages: map[string][]gateway.Message{
		"imob-a": {
			inbound("M1", "5511900000001@s.whatsapp.net", "Quero apartamento"),
			inbound("M2", "5511900000002@s.whatsapp.net", "Quero casa"),
			inbound("M3", "5511900000003@s.whatsapp.net", "Quero terreno"),
		},
	}}
	svc := newTestService(&fakeInstanceSource{instances: []instrepo.Instance{inst}}, fetcher, repo, &memorySeen{})

	summary, err := svc.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle must not fail on one bad message: %v", err)
	}
	if summary.Leads != 2 {
		t.Errorf("leads = %d, want 2 despite one db failure", summary.Leads)
	}
}

func TestRunCycleWithoutFetcher(t *testing.T) {
	repo := newFakeLeadRepo()
	svc := newTestService(&fakeInstanceSource{instances: []instrepo.Instance{connectedInstance("imob-a")}}, nil, repo, &memorySeen{})

	summary, err := svc.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if summary != (Summary{}) {
		t.Errorf("summary = %+v, want zero without gateway", summary)
	}
}
