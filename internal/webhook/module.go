// Package webhook receives push deliveries from the WhatsApp gateway and
// feeds them into the ingestion pipeline.
package webhook

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"imobcrm_backend/internal/gateway"
	apphttp "imobcrm_backend/internal/http"
	instrepo "imobcrm_backend/internal/instances/repository"
	leadsdomain "imobcrm_backend/internal/leads/domain"
	"imobcrm_backend/platform/apperr"
	"imobcrm_backend/platform/config"
	"imobcrm_backend/platform/logger"
)

// InstanceResolver maps a webhook payload's instance name to its row.
type InstanceResolver interface {
	GetActiveByName(ctx context.Context, instanceName string) (instrepo.Instance, error)
}

// Pipeline is the ingestion surface the webhook needs.
type Pipeline interface {
	ProcessMessage(ctx context.Context, inst instrepo.Instance, msg gateway.Message, source string) (bool, error)
}

// Module is the webhook module implementing http.Module.
type Module struct {
	resolver InstanceResolver
	pipeline Pipeline
	cfg      config.WebhookConfig
	log      *logger.Logger
}

// NewModule creates the webhook module.
func NewModule(resolver InstanceResolver, pipeline Pipeline, cfg config.WebhookConfig, log *logger.Logger) *Module {
	return &Module{resolver: resolver, pipeline: pipeline, cfg: cfg, log: log}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "webhook"
}

// RegisterRoutes mounts the gateway callback. The route is public; the
// shared token is the only authentication the gateway supports.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.POST("/webhook/whatsapp", m.handle)
}

func (m *Module) handle(c *gin.Context) {
	if !m.authorized(c) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook token"})
		return
	}

	var event Event
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if event.Event != eventMessagesUpsert {
		c.JSON(http.StatusOK, gin.H{"handled": false})
		return
	}

	inst, err := m.resolver.GetActiveByName(c.Request.Context(), event.Instance)
	if err != nil {
		if apperr.GetKind(err) == apperr.KindNotFound {
			m.log.IngestionSkip("unknown_instance", event.Instance, event.Data.Key.ID)
			c.JSON(http.StatusOK, gin.H{"handled": false})
			return
		}
		m.log.Error("webhook instance lookup failed", "instance", event.Instance, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}

	created, err := m.pipeline.ProcessMessage(c.Request.Context(), inst, event.toMessage(), leadsdomain.SourceWebhook)
	if err != nil {
		m.log.Error("webhook message processing failed", "instance", event.Instance,
			"messageId", event.Data.Key.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"handled": true, "leadCreated": created})
}

func (m *Module) authorized(c *gin.Context) bool {
	expected := m.cfg.GetWebhookToken()
	if expected == "" {
		// No token configured means the surface is disabled.
		return false
	}

	token := c.GetHeader("X-Webhook-Token")
	if token == "" {
		token = c.Query("token")
	}
	return token == expected
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
