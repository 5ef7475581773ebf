// Package ingestion implements the WhatsApp lead intake pipeline. Both
// entries (periodic poll and gateway webhook) funnel into ProcessMessage,
// so idempotency and dedup live in exactly one place.
package ingestion

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"imobcrm_backend/internal/events"
	"imobcrm_backend/internal/gateway"
	instrepo "imobcrm_backend/internal/instances/repository"
	leadsdomain "imobcrm_backend/internal/leads/domain"
	leadsrepo "imobcrm_backend/internal/leads/repository"
	"imobcrm_backend/internal/scoring"
	"imobcrm_backend/platform/logger"
	"imobcrm_backend/platform/phone"
)

const (
	fetchLimit       = 100
	maxParallelPolls = 4
)

// InstanceSource lists the gateway sessions worth polling.
type InstanceSource interface {
	ListByStatus(ctx context.Context, status string) ([]instrepo.Instance, error)
}

// MessageFetcher pulls recent inbound messages for one instance.
type MessageFetcher interface {
	FindMessages(ctx context.Context, instanceName string, limit int) ([]gateway.Message, error)
}

// Scorer qualifies a message. scoring.Service satisfies this.
type Scorer interface {
	Score(ctx context.Context, in scoring.Input) scoring.Result
}

// SeenCache is the message-id idempotency layer. MarkSeen returns true the
// first time an id is observed.
type SeenCache interface {
	MarkSeen(ctx context.Context, messageID string) (bool, error)
}

// Summary reports what one poll cycle touched.
type Summary struct {
	Instances int `json:"instances"`
	Messages  int `json:"messages"`
	Leads     int `json:"leads"`
}

// Service runs the intake pipeline.
type Service struct {
	instances InstanceSource
	fetcher   MessageFetcher
	leads     leadsrepo.Repository
	scorer    Scorer
	seen      SeenCache
	bus       events.Bus
	log       *logger.Logger
}

// New creates a new ingestion service. The fetcher may be nil when no
// gateway is configured; RunCycle then reports an empty summary.
func New(instances InstanceSource, fetcher MessageFetcher, leads leadsrepo.Repository,
	scorer Scorer, seen SeenCache, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		instances: instances,
		fetcher:   fetcher,
		leads:     leads,
		scorer:    scorer,
		seen:      seen,
		bus:       bus,
		log:       log,
	}
}

// RunCycle polls every connected instance and processes its messages.
// Failures are contained per instance and per message; the cycle always
// returns a summary.
func (s *Service) RunCycle(ctx context.Context) (Summary, error) {
	if s.fetcher == nil {
		return Summary{}, nil
	}

	instances, err := s.instances.ListByStatus(ctx, "connected")
	if err != nil {
		return Summary{}, fmt.Errorf("list connected instances: %w", err)
	}
	if len(instances) == 0 {
		return Summary{}, nil
	}

	var mu sync.Mutex
	summary := Summary{Instances: len(instances)}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(maxParallelPolls)

	for _, inst := range instances {
		group.Go(func() error {
			messages, err := s.fetcher.FindMessages(groupCtx, inst.InstanceName, fetchLimit)
			if err != nil {
				// One tenant's gateway trouble must not starve the others.
				s.log.GatewayError("find_messages", inst.InstanceName, err)
				return nil
			}

			var created int
			for _, msg := range messages {
				ok, err := s.ProcessMessage(groupCtx, inst, msg, leadsdomain.SourcePoll)
				if err != nil {
					s.log.Error("message processing failed", "instance", inst.InstanceName,
						"messageId", msg.ID, "error", err)
					continue
				}
				if ok {
					created++
				}
			}

			mu.Lock()
			summary.Messages += len(messages)
			summary.Leads += created
			mu.Unlock()
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return summary, err
	}

	s.log.Info("ingestion cycle complete", "instances", summary.Instances,
		"messages", summary.Messages, "leads", summary.Leads)
	return summary, nil
}

// ProcessMessage turns one inbound message into at most one lead. Returns
// true when a lead was created.
func (s *Service) ProcessMessage(ctx context.Context, inst instrepo.Instance, msg gateway.Message, source string) (bool, error) {
	if msg.FromMe || msg.Body == "" {
		return false, nil
	}

	// Poll and webhook can deliver the same message; whichever entry marks
	// the id first wins.
	if s.seen != nil && msg.ID != "" {
		first, err := s.seen.MarkSeen(ctx, msg.ID)
		if err != nil {
			// Cache outage degrades to the DB unique index as backstop.
			s.log.Warn("seen cache unavailable, relying on db constraint", "error", err)
		} else if !first {
			s.log.IngestionSkip("duplicate_message", inst.InstanceName, msg.ID)
			return false, nil
		}
	}

	phoneNumber := phone.FromJID(msg.RemoteJID)
	if phoneNumber == "" {
		s.log.IngestionSkip("unparseable_jid", inst.InstanceName, msg.ID)
		return false, nil
	}

	exists, err := s.leads.ExistsByPhone(ctx, inst.UserID, phoneNumber)
	if err != nil {
		return false, fmt.Errorf("dedup check: %w", err)
	}
	if exists {
		s.log.IngestionSkip("existing_lead", inst.InstanceName, msg.ID)
		return false, nil
	}

	result := s.scorer.Score(ctx, scoring.Input{
		PushName: msg.PushName,
		Phone:    phoneNumber,
		Body:     msg.Body,
	})

	name := result.Name
	if name == "" {
		name = phoneNumber
	}

	lead, inserted, err := s.leads.Create(ctx, leadsrepo.CreateLeadParams{
		UserID:           inst.UserID,
		Name:             name,
		Phone:            phoneNumber,
		PropertyInterest: result.PropertyType,
		Score:            result.Score,
		Source:           source,
		Notes:            buildNotes(msg.Body, result),
	})
	if err != nil {
		return false, fmt.Errorf("create lead: %w", err)
	}
	if !inserted {
		// Concurrent entry already created it.
		s.log.IngestionSkip("existing_lead", inst.InstanceName, msg.ID)
		return false, nil
	}

	s.bus.Publish(ctx, events.LeadCreated{
		BaseEvent:    events.NewBaseEvent(),
		LeadID:       lead.ID,
		UserID:       lead.UserID,
		Phone:        lead.Phone,
		Name:         lead.Name,
		Score:        lead.Score,
		PropertyType: result.PropertyType,
		Source:       source,
	})
	return true, nil
}

func buildNotes(body string, result scoring.Result) string {
	notes := "Mensagem original: " + body +
		"\n\nAvaliacao: " + result.Rationale +
		fmt.Sprintf(" (score %d)", result.Score)
	if result.EstimatedValue != "" {
		notes += "\nValor estimado: " + result.EstimatedValue
	}
	if result.FollowUp != "" {
		notes += "\nProxima acao: " + result.FollowUp
	}
	return notes
}
