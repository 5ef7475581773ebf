package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"imobcrm_backend/internal/events"
	"imobcrm_backend/internal/gateway"
	"imobcrm_backend/internal/instances/domain"
	"imobcrm_backend/internal/instances/repository"
	"imobcrm_backend/platform/apperr"
	"imobcrm_backend/platform/logger"
)

type fakeRepo struct {
	instances map[uuid.UUID]repository.Instance
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{instances: make(map[uuid.UUID]repository.Instance)}
}

func (f *fakeRepo) Create(_ context.Context, userID uuid.UUID, name, token, status string) (repository.Instance, error) {
	inst := repository.Instance{
		ID: uuid.New(), UserID: userID, InstanceName: name,
		InstanceToken: token, Status: status,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	f.instances[inst.ID] = inst
	return inst, nil
}

func (f *fakeRepo) GetActiveByUser(_ context.Context, userID uuid.UUID) (repository.Instance, error) {
	for _, inst := range f.instances {
		if inst.UserID == userID && inst.DeletedAt == nil {
			return inst, nil
		}
	}
	return repository.Instance{}, apperr.NotFound("whatsapp instance not found")
}

func (f *fakeRepo) GetActiveByName(_ context.Context, name string) (repository.Instance, error) {
	for _, inst := range f.instances {
		if inst.InstanceName == name && inst.DeletedAt == nil {
			return inst, nil
		}
	}
	return repository.Instance{}, apperr.NotFound("whatsapp instance not found")
}

func (f *fakeRepo) ListByStatus(_ context.Context, status string) ([]repository.Instance, error) {
	out := make([]repository.Instance, 0)
	for _, inst := range f.instances {
		if inst.Status == status && inst.DeletedAt == nil {
			out = append(out, inst)
		}
	}
	return out, nil
}

func (f *fakeRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string) (repository.Instance, error) {
	inst := f.instances[id]
	inst.Status = status
	inst.UpdatedAt = time.Now()
	f.instances[id] = inst
	return inst, nil
}

func (f *fakeRepo) UpdateToken(_ context.Context, id uuid.UUID, token string) error {
	inst := f.instances[id]
	inst.InstanceToken = token
	f.instances[id] = inst
	return nil
}

func (f *fakeRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	inst, ok := f.instances[id]
	if !ok || inst.DeletedAt != nil {
		return apperr.NotFound("whatsapp instance not found")
	}
	now := time.Now()
	inst.DeletedAt = &now
	inst.Status = domain.StatusDisconnected
	f.instances[id] = inst
	return nil
}

type fakeGateway struct {
	state           string
	failAll         bool
	connectNotFound bool
	createdName     string
	sentNumber      string
	sentText        string
}

func (f *fakeGateway) CreateInstance(_ context.Context, name string) (*gateway.CreateInstanceResponse, error) {
	if f.failAll {
		return nil, &gateway.StatusError{Code: 500, Body: "boom"}
	}
	f.createdName = name
	resp := &gateway.CreateInstanceResponse{}
	resp.Instance.InstanceName = name
	resp.Hash.APIKey = "inst-token"
	resp.QRCode = gateway.QRCode{Code: "2@pairing"}
	return resp, nil
}

func (f *fakeGateway) Connect(_ context.Context, _ string) (*gateway.ConnectResponse, error) {
	if f.failAll {
		return nil, &gateway.StatusError{Code: 500, Body: "boom"}
	}
	if f.connectNotFound {
		return nil, &gateway.StatusError{Code: 404, Body: "instance not found"}
	}
	return &gateway.ConnectResponse{Code: "2@pairing"}, nil
}

func (f *fakeGateway) ConnectionState(_ context.Context, name string) (*gateway.ConnectionStateResponse, error) {
	if f.failAll {
		return nil, &gateway.StatusError{Code: 500, Body: "boom"}
	}
	resp := &gateway.ConnectionStateResponse{}
	resp.Instance.InstanceName = name
	resp.Instance.State = f.state
	return resp, nil
}

func (f *fakeGateway) Restart(_ context.Context, _ string) error {
	if f.failAll {
		return &gateway.StatusError{Code: 500, Body: "boom"}
	}
	return nil
}

func (f *fakeGateway) Logout(_ context.Context, _ string) error {
	if f.failAll {
		return &gateway.StatusError{Code: 500, Body: "boom"}
	}
	return nil
}

func (f *fakeGateway) Delete(_ context.Context, _ string) error {
	if f.failAll {
		return &gateway.StatusError{Code: 500, Body: "boom"}
	}
	return nil
}

func (f *fakeGateway) SendText(_ context.Context, _, number, text string) (*gateway.SendTextResponse, error) {
	if f.failAll {
		return nil, &gateway.StatusError{Code: 500, Body: "boom"}
	}
	f.sentNumber = number
	f.sentText = text
	return &gateway.SendTextResponse{Status: "PENDING"}, nil
}

func newService(repo repository.Repository, gw Gateway) *Service {
	log := logger.New("test")
	return New(repo, gw, events.NewInMemoryBus(log), log)
}

func TestConnectCreatesInstance(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo, &fakeGateway{})
	userID := uuid.New()

	resp, err := svc.Connect(context.Background(), userID)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}

	if resp.Status != domain.StatusPending {
		t.Errorf("status = %q, want pending", resp.Status)
	}
	if resp.QRCodePNG == "" {
		t.Error("expected rendered qr code")
	}

	inst, err := repo.GetActiveByUser(context.Background(), userID)
	if err != nil {
		t.Fatalf("instance row not created: %v", err)
	}
	if inst.InstanceToken != "inst-token" {
		t.Errorf("token = %q, want gateway-issued token stored", inst.InstanceToken)
	}
}

func TestConnectReprovisionsLostSession(t *testing.T) {
	repo := newFakeRepo()
	gw := &fakeGateway{connectNotFound: true}
	svc := newService(repo, gw)
	userID := uuid.New()

	inst, _ := repo.Create(context.Background(), userID, "imob-test", "stale-token", domain.StatusConnected)

	resp, err := svc.Connect(context.Background(), userID)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}

	if gw.createdName != "imob-test" {
		t.Errorf("recreated as %q, want the existing instance name kept", gw.createdName)
	}
	if resp.InstanceName != "imob-test" {
		t.Errorf("instance name = %q, want imob-test", resp.InstanceName)
	}
	if repo.instances[inst.ID].InstanceToken != "inst-token" {
		t.Errorf("token = %q, want refreshed gateway token", repo.instances[inst.ID].InstanceToken)
	}
	if repo.instances[inst.ID].Status != domain.StatusPending {
		t.Errorf("status = %q, want pending after reprovision", repo.instances[inst.ID].Status)
	}
}

func TestStatusPersistsGatewayState(t *testing.T) {
	repo := newFakeRepo()
	gw := &fakeGateway{state: "open"}
	svc := newService(repo, gw)
	userID := uuid.New()

	inst, _ := repo.Create(context.Background(), userID, "imob-test", "tok", domain.StatusPending)

	resp, err := svc.Status(context.Background(), userID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if resp.Status != domain.StatusConnected {
		t.Errorf("status = %q, want connected", resp.Status)
	}

	stored := repo.instances[inst.ID]
	if stored.Status != domain.StatusConnected {
		t.Errorf("stored status = %q, want connected", stored.Status)
	}
}

func TestStatusGatewayDownKeepsLocalState(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo, &fakeGateway{failAll: true})
	userID := uuid.New()

	repo.Create(context.Background(), userID, "imob-test", "tok", domain.StatusConnected)

	resp, err := svc.Status(context.Background(), userID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if resp.Status != domain.StatusConnected {
		t.Errorf("status = %q, want last persisted state", resp.Status)
	}
}

func TestDisconnectSoftDeletesDespiteGatewayFailure(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo, &fakeGateway{failAll: true})
	userID := uuid.New()

	inst, _ := repo.Create(context.Background(), userID, "imob-test", "tok", domain.StatusConnected)

	if err := svc.Disconnect(context.Background(), userID); err != nil {
		t.Fatalf("Disconnect must succeed when gateway fails: %v", err)
	}

	stored := repo.instances[inst.ID]
	if stored.DeletedAt == nil {
		t.Error("row not soft-deleted")
	}
	if stored.Status != domain.StatusDisconnected {
		t.Errorf("status = %q, want disconnected", stored.Status)
	}
}

func TestSendTextRequiresConnected(t *testing.T) {
	repo := newFakeRepo()
	gw := &fakeGateway{}
	svc := newService(repo, gw)
	userID := uuid.New()

	repo.Create(context.Background(), userID, "imob-test", "tok", domain.StatusPending)

	err := svc.SendText(context.Background(), userID, "+5511999990000", "ola")
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("err = %v, want conflict for non-connected instance", err)
	}
}

func TestSendTextNormalizesPhone(t *testing.T) {
	repo := newFakeRepo()
	gw := &fakeGateway{}
	svc := newService(repo, gw)
	userID := uuid.New()

	inst, _ := repo.Create(context.Background(), userID, "imob-test", "tok", domain.StatusPending)
	repo.UpdateStatus(context.Background(), inst.ID, domain.StatusConnected)

	if err := svc.SendText(context.Background(), userID, "11 99999-0000", "ola"); err != nil {
		t.Fatalf("SendText: %v", err)
	}
	if gw.sentNumber != "+5511999990000" {
		t.Errorf("sent number = %q, want normalized E.164", gw.sentNumber)
	}
}

func TestSendTextRejectsBadPhone(t *testing.T) {
	repo := newFakeRepo()
	gw := &fakeGateway{}
	svc := newService(repo, gw)
	userID := uuid.New()

	inst, _ := repo.Create(context.Background(), userID, "imob-test", "tok", domain.StatusPending)
	repo.UpdateStatus(context.Background(), inst.ID, domain.StatusConnected)

	err := svc.SendText(context.Background(), userID, "not-a-number", "ola")
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("err = %v, want validation for unparseable phone", err)
	}
	if gw.sentNumber != "" {
		t.Error("gateway must not be called with an invalid phone")
	}
}

func TestOperationsWithoutGateway(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo, nil)
	userID := uuid.New()

	if _, err := svc.Connect(context.Background(), userID); apperr.GetKind(err) != apperr.KindUnavailable {
		t.Errorf("Connect err = %v, want unavailable", err)
	}

	// Disconnect still works on local state only.
	inst, _ := repo.Create(context.Background(), userID, "imob-test", "tok", domain.StatusConnected)
	if err := svc.Disconnect(context.Background(), userID); err != nil {
		t.Fatalf("Disconnect without gateway: %v", err)
	}
	if repo.instances[inst.ID].DeletedAt == nil {
		t.Error("row not soft-deleted")
	}
}
