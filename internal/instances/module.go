// Package instances provides the WhatsApp connection lifecycle module.
package instances

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"imobcrm_backend/internal/events"
	apphttp "imobcrm_backend/internal/http"
	"imobcrm_backend/internal/instances/handler"
	"imobcrm_backend/internal/instances/repository"
	"imobcrm_backend/internal/instances/service"
	"imobcrm_backend/platform/logger"
	"imobcrm_backend/platform/validator"
)

// Module is the instances bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the instances module. The gateway may
// be nil when GATEWAY_BASE_URL is not configured.
func NewModule(pool *pgxpool.Pool, gw service.Gateway, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, gw, bus, log)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "instances"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for the ingestion pipeline.
func (m *Module) Repository() repository.Repository {
	return m.repo
}

// RegisterRoutes mounts lifecycle routes on the manager-only group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Gestor.Group("/whatsapp")
	group.POST("/connect", m.handler.Connect)
	group.GET("/status", m.handler.Status)
	group.POST("/restart", m.handler.Restart)
	group.DELETE("", m.handler.Disconnect)
	group.POST("/send", m.handler.SendText)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
