// Package leads provides the lead management bounded context module.
package leads

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"imobcrm_backend/internal/events"
	apphttp "imobcrm_backend/internal/http"
	"imobcrm_backend/internal/leads/domain"
	"imobcrm_backend/internal/leads/handler"
	"imobcrm_backend/internal/leads/repository"
	"imobcrm_backend/internal/leads/service"
	"imobcrm_backend/platform/logger"
	"imobcrm_backend/platform/validator"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the leads module.
func NewModule(pool *pgxpool.Pool, directory service.Directory, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, directory, bus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for direct access by the pipeline.
func (m *Module) Repository() repository.Repository {
	return m.repo
}

// RegisterRoutes mounts lead routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/leads")
	group.GET("", m.handler.List)
	group.POST("", m.handler.Create)
	group.GET("/:id", m.handler.Get)
	group.PATCH("/:id/status", m.handler.UpdateStatus)
	group.GET("/:id/interactions", m.handler.Interactions)
}

// RegisterHandlers subscribes to domain events that feed the lead timeline.
func (m *Module) RegisterHandlers(bus *events.InMemoryBus) {
	bus.Subscribe(events.LeadCreated{}.EventName(), m)
	bus.Subscribe(events.LeadAssigned{}.EventName(), m)
	bus.Subscribe(events.MessageSent{}.EventName(), m)
}

// Handle routes events to the appropriate timeline writer.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.LeadCreated:
		if e.Source != domain.SourceManual {
			m.service.RecordInteraction(ctx, e.LeadID, domain.InteractionMessageReceived,
				fmt.Sprintf("Lead criado via %s (score %d)", e.Source, e.Score))
		}
		return nil
	case events.LeadAssigned:
		m.service.RecordInteraction(ctx, e.LeadID, domain.InteractionAssignment,
			"Lead atribuido automaticamente ao corretor "+e.AgentID.String())
		return nil
	case events.MessageSent:
		m.service.RecordOutboundMessage(ctx, e.UserID, e.Phone, "Mensagem enviada via WhatsApp")
		return nil
	default:
		return nil
	}
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
