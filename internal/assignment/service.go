// Package assignment distributes unattended leads to a manager's corretores
// in round-robin order with a durable rotation cursor.
package assignment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"imobcrm_backend/internal/events"
	"imobcrm_backend/platform/config"
	"imobcrm_backend/platform/logger"
)

// Store is the persistence surface the sweep needs.
type Store interface {
	ListManagersWithPending(ctx context.Context, olderThan time.Time) ([]uuid.UUID, error)
	ListPendingLeads(ctx context.Context, managerID uuid.UUID, olderThan time.Time) ([]uuid.UUID, error)
	Roster(ctx context.Context, managerID uuid.UUID) ([]uuid.UUID, error)
	LastAssigned(ctx context.Context, managerID uuid.UUID) (*uuid.UUID, error)
	Assign(ctx context.Context, managerID, leadID, agentID uuid.UUID) (bool, error)
}

// Summary reports what a sweep did.
type Summary struct {
	Managers int `json:"managers"`
	Leads    int `json:"leads"`
	Assigned int `json:"assigned"`
}

type Service struct {
	store  Store
	bus    events.Bus
	minAge time.Duration
	log    *logger.Logger
}

func New(store Store, bus events.Bus, cfg config.AssignmentConfig, log *logger.Logger) *Service {
	minAge := cfg.GetSweepMinAge()
	if minAge <= 0 {
		minAge = 2 * time.Hour
	}
	return &Service{store: store, bus: bus, minAge: minAge, log: log}
}

// Sweep assigns every eligible lead across all managers. Per-lead failures
// are logged and skipped so one bad row never stalls the rotation.
func (s *Service) Sweep(ctx context.Context) (Summary, error) {
	cutoff := time.Now().Add(-s.minAge)

	managers, err := s.store.ListManagersWithPending(ctx, cutoff)
	if err != nil {
		s.log.DatabaseError("list managers with pending leads", err)
		return Summary{}, err
	}

	var summary Summary
	for _, managerID := range managers {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		leads, assigned := s.sweepManager(ctx, managerID, cutoff)
		summary.Managers++
		summary.Leads += leads
		summary.Assigned += assigned
	}
	return summary, nil
}

func (s *Service) sweepManager(ctx context.Context, managerID uuid.UUID, cutoff time.Time) (int, int) {
	leads, err := s.store.ListPendingLeads(ctx, managerID, cutoff)
	if err != nil {
		s.log.DatabaseError("list pending leads", err)
		return 0, 0
	}
	if len(leads) == 0 {
		return 0, 0
	}

	roster, err := s.store.Roster(ctx, managerID)
	if err != nil {
		s.log.DatabaseError("load agent roster", err)
		return len(leads), 0
	}
	if len(roster) == 0 {
		s.log.Warn("manager has pending leads but no corretores",
			"managerId", managerID, "pending", len(leads))
		return len(leads), 0
	}

	last, err := s.store.LastAssigned(ctx, managerID)
	if err != nil {
		s.log.DatabaseError("load rotation cursor", err)
		return len(leads), 0
	}

	assigned := 0
	for _, plan := range planAssignments(leads, roster, last) {
		ok, err := s.store.Assign(ctx, managerID, plan.LeadID, plan.AgentID)
		if err != nil {
			s.log.Error("lead assignment failed",
				"managerId", managerID, "leadId", plan.LeadID, "agentId", plan.AgentID, "error", err)
			continue
		}
		if !ok {
			// Lead was taken between listing and assigning.
			continue
		}

		assigned++
		if s.bus != nil {
			s.bus.Publish(ctx, events.LeadAssigned{
				BaseEvent: events.NewBaseEvent(),
				LeadID:    plan.LeadID,
				ManagerID: managerID,
				AgentID:   plan.AgentID,
			})
		}
	}

	s.log.Info("assignment sweep for manager done",
		"managerId", managerID, "pending", len(leads), "assigned", assigned)
	return len(leads), assigned
}

type plannedAssignment struct {
	LeadID  uuid.UUID
	AgentID uuid.UUID
}

// planAssignments pairs leads with agents round-robin, starting after the
// agent recorded in the rotation cursor. An unknown or nil cursor starts the
// rotation at the head of the roster.
func planAssignments(leads, roster []uuid.UUID, last *uuid.UUID) []plannedAssignment {
	if len(leads) == 0 || len(roster) == 0 {
		return nil
	}

	start := 0
	if last != nil {
		for i, agentID := range roster {
			if agentID == *last {
				start = i + 1
				break
			}
		}
	}

	plans := make([]plannedAssignment, 0, len(leads))
	for i, leadID := range leads {
		plans = append(plans, plannedAssignment{
			LeadID:  leadID,
			AgentID: roster[(start+i)%len(roster)],
		})
	}
	return plans
}
