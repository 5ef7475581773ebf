// Package ingestion provides the lead intake pipeline module.
package ingestion

import (
	"github.com/gin-gonic/gin"

	apphttp "imobcrm_backend/internal/http"
	"imobcrm_backend/platform/httpkit"
)

// Module exposes the manual poll trigger implementing http.Module.
type Module struct {
	service *Service
}

// NewModule wraps the pipeline service as an HTTP module.
func NewModule(svc *Service) *Module {
	return &Module{service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "ingestion"
}

// Service returns the pipeline for the scheduler worker.
func (m *Module) Service() *Service {
	return m.service
}

// RegisterRoutes mounts the manual poll trigger for managers.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Gestor.POST("/ingestion/run", func(c *gin.Context) {
		summary, err := m.service.RunCycle(c.Request.Context())
		if httpkit.HandleError(c, err) {
			return
		}
		httpkit.OK(c, summary)
	})
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
