package scoring

import (
	"context"
	"errors"
	"testing"

	"imobcrm_backend/platform/logger"
)

type stubScorer struct {
	result Result
	err    error
}

func (s stubScorer) Score(context.Context, Input) (Result, error) {
	return s.result, s.err
}

func TestServicePrefersAgent(t *testing.T) {
	agent := stubScorer{result: Result{Score: 90, Rationale: "cliente pronto para fechar"}}
	svc := NewService(agent, logger.New("test"))

	result := svc.Score(context.Background(), Input{Body: "oi"})
	if result.Score != 90 {
		t.Errorf("score = %d, want agent score 90", result.Score)
	}
}

func TestServiceFallsBackOnAgentError(t *testing.T) {
	agent := stubScorer{err: errors.New("api down")}
	svc := NewService(agent, logger.New("test"))

	result := svc.Score(context.Background(), Input{Body: "Quero comprar uma casa"})
	if result.Score != 65 {
		t.Errorf("score = %d, want keyword fallback 65", result.Score)
	}
}

func TestServiceFallsBackOnInvalidResult(t *testing.T) {
	cases := []Result{
		{Score: 150, Rationale: "fora da faixa"},
		{Score: -5, Rationale: "negativo"},
		{Score: 80}, // missing rationale
	}

	for _, invalid := range cases {
		svc := NewService(stubScorer{result: invalid}, logger.New("test"))
		result := svc.Score(context.Background(), Input{Body: "oi"})
		if result.Score != 40 {
			t.Errorf("invalid %+v: score = %d, want keyword baseline 40", invalid, result.Score)
		}
	}
}

func TestServiceWithoutAgent(t *testing.T) {
	svc := NewService(nil, logger.New("test"))

	result := svc.Score(context.Background(), Input{Body: "Preciso urgente de apartamento"})
	if result.Score < 85 {
		t.Errorf("score = %d, want keyword urgent tier", result.Score)
	}
}

func TestParseResultToleratesFences(t *testing.T) {
	output := "```json\n{\"lead_name\": \"Maria\", \"score\": 72, \"rationale\": \"intencao clara\"}\n```"

	result, err := parseResult(output)
	if err != nil {
		t.Fatalf("parseResult: %v", err)
	}
	if result.Name != "Maria" || result.Score != 72 {
		t.Errorf("result = %+v", result)
	}

	if _, err := parseResult("no json here"); err == nil {
		t.Fatal("expected error for output without json")
	}
}
