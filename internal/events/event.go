// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"imobcrm_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadCreated is published when a new lead enters the pipeline.
type LeadCreated struct {
	BaseEvent
	LeadID       uuid.UUID `json:"leadId"`
	UserID       uuid.UUID `json:"userId"`
	Phone        string    `json:"phone"`
	Name         string    `json:"name"`
	Score        int       `json:"score"`
	PropertyType string    `json:"propertyType,omitempty"`
	Source       string    `json:"source"` // "poll", "webhook" or "manual"
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// LeadAssigned is published when the assignment sweep hands a lead to an agent.
type LeadAssigned struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	ManagerID uuid.UUID `json:"managerId"`
	AgentID   uuid.UUID `json:"agentId"`
}

func (e LeadAssigned) EventName() string { return "leads.lead.assigned" }

// LeadStatusChanged is published when a user moves a lead through the funnel.
type LeadStatusChanged struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	UserID    uuid.UUID `json:"userId"`
	OldStatus string    `json:"oldStatus"`
	NewStatus string    `json:"newStatus"`
}

func (e LeadStatusChanged) EventName() string { return "leads.lead.status_changed" }

// =============================================================================
// WhatsApp Instance Domain Events
// =============================================================================

// InstanceStatusChanged is published when a WhatsApp connection changes state.
type InstanceStatusChanged struct {
	BaseEvent
	InstanceID   uuid.UUID `json:"instanceId"`
	UserID       uuid.UUID `json:"userId"`
	InstanceName string    `json:"instanceName"`
	OldStatus    string    `json:"oldStatus"`
	NewStatus    string    `json:"newStatus"`
}

func (e InstanceStatusChanged) EventName() string { return "instances.status.changed" }

// MessageSent is published after a text message is delivered to the gateway.
type MessageSent struct {
	BaseEvent
	UserID       uuid.UUID  `json:"userId"`
	LeadID       *uuid.UUID `json:"leadId,omitempty"`
	InstanceName string     `json:"instanceName"`
	Phone        string     `json:"phone"`
}

func (e MessageSent) EventName() string { return "instances.message.sent" }
