// Package service implements the WhatsApp connection lifecycle.
package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"imobcrm_backend/internal/events"
	"imobcrm_backend/internal/gateway"
	"imobcrm_backend/internal/instances/domain"
	"imobcrm_backend/internal/instances/repository"
	"imobcrm_backend/internal/instances/transport"
	"imobcrm_backend/platform/apperr"
	"imobcrm_backend/platform/logger"
	"imobcrm_backend/platform/phone"
)

const gatewayUnavailableMessage = "gateway de whatsapp nao configurado"

// Gateway is the client surface the lifecycle needs.
type Gateway interface {
	CreateInstance(ctx context.Context, instanceName string) (*gateway.CreateInstanceResponse, error)
	Connect(ctx context.Context, instanceName string) (*gateway.ConnectResponse, error)
	ConnectionState(ctx context.Context, instanceName string) (*gateway.ConnectionStateResponse, error)
	Restart(ctx context.Context, instanceName string) error
	Logout(ctx context.Context, instanceName string) error
	Delete(ctx context.Context, instanceName string) error
	SendText(ctx context.Context, instanceName, number, text string) (*gateway.SendTextResponse, error)
}

// Service implements connection lifecycle operations.
type Service struct {
	repo repository.Repository
	gw   Gateway
	bus  events.Bus
	log  *logger.Logger
}

// New creates a new instances service. A nil gateway means every operation
// answers 503 until GATEWAY_BASE_URL is configured.
func New(repo repository.Repository, gw Gateway, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, gw: gw, bus: bus, log: log}
}

// Connect provisions or revives the manager's gateway session and returns
// the pairing QR code.
func (s *Service) Connect(ctx context.Context, userID uuid.UUID) (transport.ConnectResponse, error) {
	if s.gw == nil {
		return transport.ConnectResponse{}, apperr.Unavailable(gatewayUnavailableMessage)
	}

	inst, err := s.repo.GetActiveByUser(ctx, userID)
	if apperr.GetKind(err) == apperr.KindNotFound {
		return s.createInstance(ctx, userID)
	}
	if err != nil {
		return transport.ConnectResponse{}, err
	}

	resp, err := s.gw.Connect(ctx, inst.InstanceName)
	if err != nil {
		var gwErr *gateway.StatusError
		if errors.As(err, &gwErr) && gwErr.IsNotFound() {
			// The gateway lost the session; re-provision under the same
			// name so the stored config row stays valid.
			return s.reprovision(ctx, inst)
		}
		s.log.GatewayError("connect", inst.InstanceName, err)
		return transport.ConnectResponse{}, apperr.Unavailable("falha ao conectar com o gateway")
	}

	s.setStatus(ctx, inst, domain.StatusPending)

	qr, err := gateway.QRPNG(gateway.QRCode{Code: resp.Code, Base64: resp.Base64})
	if err != nil {
		return transport.ConnectResponse{}, apperr.Internal("falha ao gerar qr code")
	}

	return transport.ConnectResponse{
		InstanceName: inst.InstanceName,
		Status:       domain.StatusPending,
		QRCodePNG:    qr,
	}, nil
}

func (s *Service) reprovision(ctx context.Context, inst repository.Instance) (transport.ConnectResponse, error) {
	resp, err := s.gw.CreateInstance(ctx, inst.InstanceName)
	if err != nil {
		s.log.GatewayError("create_instance", inst.InstanceName, err)
		return transport.ConnectResponse{}, apperr.Unavailable("falha ao criar instancia no gateway")
	}

	if err := s.repo.UpdateToken(ctx, inst.ID, resp.Hash.APIKey); err != nil {
		return transport.ConnectResponse{}, err
	}

	s.setStatus(ctx, inst, domain.StatusPending)

	qr, err := gateway.QRPNG(resp.QRCode)
	if err != nil {
		return transport.ConnectResponse{}, apperr.Internal("falha ao gerar qr code")
	}

	return transport.ConnectResponse{
		InstanceName: inst.InstanceName,
		Status:       domain.StatusPending,
		QRCodePNG:    qr,
	}, nil
}

func (s *Service) createInstance(ctx context.Context, userID uuid.UUID) (transport.ConnectResponse, error) {
	instanceName := "imob-" + strings.Split(uuid.New().String(), "-")[0]

	resp, err := s.gw.CreateInstance(ctx, instanceName)
	if err != nil {
		s.log.GatewayError("create_instance", instanceName, err)
		return transport.ConnectResponse{}, apperr.Unavailable("falha ao criar instancia no gateway")
	}

	inst, err := s.repo.Create(ctx, userID, instanceName, resp.Hash.APIKey, domain.StatusPending)
	if err != nil {
		return transport.ConnectResponse{}, err
	}

	s.publishStatusChange(ctx, inst, domain.StatusDisconnected, domain.StatusPending)

	qr, err := gateway.QRPNG(resp.QRCode)
	if err != nil {
		return transport.ConnectResponse{}, apperr.Internal("falha ao gerar qr code")
	}

	return transport.ConnectResponse{
		InstanceName: inst.InstanceName,
		Status:       domain.StatusPending,
		QRCodePNG:    qr,
	}, nil
}

// Status polls the gateway for the live connection state and persists it.
func (s *Service) Status(ctx context.Context, userID uuid.UUID) (transport.StatusResponse, error) {
	inst, err := s.repo.GetActiveByUser(ctx, userID)
	if err != nil {
		return transport.StatusResponse{}, err
	}

	if s.gw == nil {
		return transport.NewStatusResponse(inst), nil
	}

	state, err := s.gw.ConnectionState(ctx, inst.InstanceName)
	if err != nil {
		// Last persisted status still answers the UI when the gateway is down.
		s.log.GatewayError("connection_state", inst.InstanceName, err)
		return transport.NewStatusResponse(inst), nil
	}

	mapped := domain.FromGatewayState(state.Instance.State)
	if mapped != inst.Status {
		inst = s.setStatus(ctx, inst, mapped)
	}

	return transport.NewStatusResponse(inst), nil
}

// Restart re-establishes the session without touching stored credentials.
func (s *Service) Restart(ctx context.Context, userID uuid.UUID) (transport.StatusResponse, error) {
	if s.gw == nil {
		return transport.StatusResponse{}, apperr.Unavailable(gatewayUnavailableMessage)
	}

	inst, err := s.repo.GetActiveByUser(ctx, userID)
	if err != nil {
		return transport.StatusResponse{}, err
	}

	if err := s.gw.Restart(ctx, inst.InstanceName); err != nil {
		s.log.GatewayError("restart", inst.InstanceName, err)
		return transport.StatusResponse{}, apperr.Unavailable("falha ao reiniciar instancia")
	}

	inst = s.setStatus(ctx, inst, domain.StatusConnecting)
	return transport.NewStatusResponse(inst), nil
}

// Disconnect tears the session down. Gateway calls are best-effort; the
// local row is always soft-deleted, local state being the source of truth.
func (s *Service) Disconnect(ctx context.Context, userID uuid.UUID) error {
	inst, err := s.repo.GetActiveByUser(ctx, userID)
	if err != nil {
		return err
	}

	if s.gw != nil {
		if err := s.gw.Logout(ctx, inst.InstanceName); err != nil {
			s.log.GatewayError("logout", inst.InstanceName, err)
		}
		if err := s.gw.Delete(ctx, inst.InstanceName); err != nil {
			s.log.GatewayError("delete", inst.InstanceName, err)
		}
	}

	if err := s.repo.SoftDelete(ctx, inst.ID); err != nil {
		return err
	}

	s.publishStatusChange(ctx, inst, inst.Status, domain.StatusDisconnected)
	return nil
}

// SendText delivers a message through the manager's connected instance.
func (s *Service) SendText(ctx context.Context, userID uuid.UUID, phoneNumber, text string) error {
	if s.gw == nil {
		return apperr.Unavailable(gatewayUnavailableMessage)
	}

	inst, err := s.repo.GetActiveByUser(ctx, userID)
	if err != nil {
		return err
	}
	if inst.Status != domain.StatusConnected {
		return apperr.Conflict("instancia nao esta conectada")
	}

	normalized := phone.NormalizeE164(phoneNumber)
	if normalized == "" {
		return apperr.Validation("telefone invalido")
	}

	if _, err := s.gw.SendText(ctx, inst.InstanceName, normalized, text); err != nil {
		s.log.GatewayError("send_text", inst.InstanceName, err)
		return apperr.Unavailable("falha ao enviar mensagem")
	}

	// Timeline write rides the bus so sending never waits on it.
	s.bus.Publish(ctx, events.MessageSent{
		BaseEvent:    events.NewBaseEvent(),
		UserID:       inst.UserID,
		InstanceName: inst.InstanceName,
		Phone:        normalized,
	})
	return nil
}

func (s *Service) setStatus(ctx context.Context, inst repository.Instance, status string) repository.Instance {
	if inst.Status == status {
		return inst
	}
	if !domain.CanTransition(inst.Status, status) {
		s.log.Warn("illegal instance status transition", "instance", inst.InstanceName,
			"from", inst.Status, "to", status)
		return inst
	}

	updated, err := s.repo.UpdateStatus(ctx, inst.ID, status)
	if err != nil {
		s.log.DatabaseError("update instance status", err)
		return inst
	}

	s.publishStatusChange(ctx, inst, inst.Status, status)
	return updated
}

func (s *Service) publishStatusChange(ctx context.Context, inst repository.Instance, from, to string) {
	if from == to {
		return
	}
	s.bus.Publish(ctx, events.InstanceStatusChanged{
		BaseEvent:    events.NewBaseEvent(),
		InstanceID:   inst.ID,
		UserID:       inst.UserID,
		InstanceName: inst.InstanceName,
		OldStatus:    from,
		NewStatus:    to,
	})
}
