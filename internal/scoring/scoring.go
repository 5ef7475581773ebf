// Package scoring qualifies inbound WhatsApp messages into scored leads.
// The primary path runs an LLM agent; a deterministic keyword scorer
// covers agent failures so ingestion never depends on the AI being up.
package scoring

import (
	"context"

	"imobcrm_backend/platform/logger"
)

// Result is the qualification outcome for one inbound message.
type Result struct {
	Name           string `json:"lead_name"`
	PropertyType   string `json:"property_type"`
	EstimatedValue string `json:"estimated_value"`
	Score          int    `json:"score"`
	Rationale      string `json:"rationale"`
	FollowUp       string `json:"follow_up"`
}

// Input carries the message context handed to the scorer.
type Input struct {
	PushName string
	Phone    string
	Body     string
}

// Scorer turns a message into a qualification result.
type Scorer interface {
	Score(ctx context.Context, in Input) (Result, error)
}

// Service wraps the agent scorer with a mandatory deterministic fallback.
// A nil agent (no API key configured) degrades to keyword scoring only.
type Service struct {
	agent    Scorer
	fallback *KeywordScorer
	log      *logger.Logger
}

func NewService(agent Scorer, log *logger.Logger) *Service {
	return &Service{
		agent:    agent,
		fallback: NewKeywordScorer(),
		log:      log,
	}
}

// Score qualifies the message. It never returns an error: when the agent
// is unavailable or answers garbage the keyword scorer decides instead.
func (s *Service) Score(ctx context.Context, in Input) Result {
	if s.agent != nil {
		result, err := s.agent.Score(ctx, in)
		if err == nil && valid(result) {
			return result
		}
		if err != nil {
			s.log.Warn("agent scoring failed, using keyword fallback", "error", err)
		} else {
			s.log.Warn("agent returned invalid result, using keyword fallback", "score", result.Score)
		}
	}

	result, _ := s.fallback.Score(ctx, in)
	return result
}

// valid gates agent output; an out-of-range score is treated as garbage
// rather than clamped, so the deterministic fallback decides instead.
func valid(r Result) bool {
	return r.Score >= 0 && r.Score <= 100 && r.Rationale != ""
}
