// Package handler exposes the connection lifecycle over HTTP.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"imobcrm_backend/internal/instances/service"
	"imobcrm_backend/internal/instances/transport"
	"imobcrm_backend/platform/httpkit"
	"imobcrm_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for WhatsApp instances.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new instances handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// Connect provisions or revives the session and returns the pairing QR.
// POST /api/v1/gestor/whatsapp/connect
func (h *Handler) Connect(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.Connect(c.Request.Context(), identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Status returns the live connection state.
// GET /api/v1/gestor/whatsapp/status
func (h *Handler) Status(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.Status(c.Request.Context(), identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Restart re-establishes the session.
// POST /api/v1/gestor/whatsapp/restart
func (h *Handler) Restart(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.Restart(c.Request.Context(), identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Disconnect tears the session down and soft-deletes the local row.
// DELETE /api/v1/gestor/whatsapp
func (h *Handler) Disconnect(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	if err := h.svc.Disconnect(c.Request.Context(), identity.UserID()); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

// SendText sends a text message through the manager's instance.
// POST /api/v1/gestor/whatsapp/send
func (h *Handler) SendText(c *gin.Context) {
	var req transport.SendTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	if err := h.svc.SendText(c.Request.Context(), identity.UserID(), req.Phone, req.Text); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusAccepted)
}
