// Package auth provides the authentication bounded context module.
package auth

import (
	apphttp "imobcrm_backend/internal/http"

	"imobcrm_backend/internal/auth/handler"
	"imobcrm_backend/internal/auth/service"
	usersrepo "imobcrm_backend/internal/users/repository"
	"imobcrm_backend/platform/config"
	"imobcrm_backend/platform/logger"
	"imobcrm_backend/platform/validator"
)

// Module is the auth bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the auth module.
func NewModule(users *usersrepo.Repo, cfg config.AuthServiceConfig, log *logger.Logger, val *validator.Validator) *Module {
	svc := service.New(users, cfg, log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "auth"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts auth routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.V1.Group("/auth")
	group.POST("/login", ctx.AuthRateLimiter.RateLimit(), m.handler.Login)
	group.GET("/me", ctx.AuthMiddleware, m.handler.Me)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
