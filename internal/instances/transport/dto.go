// Package transport defines request and response DTOs for the instances API.
package transport

import (
	"time"

	"imobcrm_backend/internal/instances/repository"
)

type ConnectResponse struct {
	InstanceName string `json:"instanceName"`
	Status       string `json:"status"`
	QRCodePNG    string `json:"qrCodePng"`
}

type StatusResponse struct {
	InstanceName string `json:"instanceName"`
	Status       string `json:"status"`
	UpdatedAt    string `json:"updatedAt"`
}

type SendTextRequest struct {
	Phone string `json:"phone" validate:"required,min=8,max=20"`
	Text  string `json:"text" validate:"required,min=1,max=4096"`
}

// NewStatusResponse maps an instance row to its API shape.
func NewStatusResponse(inst repository.Instance) StatusResponse {
	return StatusResponse{
		InstanceName: inst.InstanceName,
		Status:       inst.Status,
		UpdatedAt:    inst.UpdatedAt.Format(time.RFC3339),
	}
}
