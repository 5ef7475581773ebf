package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/genai"

	"imobcrm_backend/platform/ai/moonshot"
)

const agentInstruction = `Voce e um assistente de qualificacao de leads de uma imobiliaria brasileira.
Voce recebe uma mensagem de WhatsApp enviada por um possivel cliente e deve avaliar o potencial do lead.

Responda SOMENTE com um objeto JSON valido, sem texto adicional, no formato:
{
  "lead_name": "nome do cliente se identificavel, senao vazio",
  "property_type": "tipo de imovel mencionado (apartamento, casa, terreno...), senao vazio",
  "estimated_value": "faixa de valor mencionada, senao vazio",
  "score": 0-100,
  "rationale": "justificativa curta em portugues",
  "follow_up": "proxima acao sugerida para o corretor"
}

Criterios de pontuacao:
- 80-100: urgencia explicita, criterios concretos (tipo, regiao, valor), pronto para visitar
- 60-79: intencao clara de compra ou locacao, ainda definindo criterios
- 40-59: interesse generico, pedido de informacao
- 0-39: mensagem irrelevante, spam ou engano`

// Agent scores messages through the LLM. It satisfies the Scorer interface
// and is wrapped by Service, which owns the fallback.
type Agent struct {
	runner         *runner.Runner
	sessionService session.Service
	appName        string
	runMu          sync.Mutex
}

// NewAgent builds the scoring agent. The agent carries no tools; the model
// answer is parsed as JSON directly.
func NewAgent(apiKey, modelName string) (*Agent, error) {
	kimi := moonshot.NewModel(moonshot.Config{
		APIKey:          apiKey,
		Model:           modelName,
		DisableThinking: true,
	})

	adkAgent, err := llmagent.New(llmagent.Config{
		Name:        "LeadScorer",
		Model:       kimi,
		Description: "Scores inbound WhatsApp messages for real estate intent.",
		Instruction: agentInstruction,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create scoring agent: %w", err)
	}

	sessionService := session.InMemoryService()
	r, err := runner.New(runner.Config{
		AppName:        "lead_scorer",
		Agent:          adkAgent,
		SessionService: sessionService,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create scoring runner: %w", err)
	}

	return &Agent{
		runner:         r,
		sessionService: sessionService,
		appName:        "lead_scorer",
	}, nil
}

// Score runs one agent turn for the message and parses the JSON verdict.
func (a *Agent) Score(ctx context.Context, in Input) (Result, error) {
	output, err := a.run(ctx, buildPrompt(in))
	if err != nil {
		return Result{}, err
	}

	return parseResult(output)
}

func (a *Agent) run(ctx context.Context, promptText string) (string, error) {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	sessionID := uuid.New().String()
	userID := "scorer-" + sessionID

	_, err := a.sessionService.Create(ctx, &session.CreateRequest{
		AppName:   a.appName,
		UserID:    userID,
		SessionID: sessionID,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create scoring session: %w", err)
	}
	defer func() {
		_ = a.sessionService.Delete(ctx, &session.DeleteRequest{
			AppName:   a.appName,
			UserID:    userID,
			SessionID: sessionID,
		})
	}()

	userMessage := &genai.Content{
		Role:  "user",
		Parts: []*genai.Part{{Text: promptText}},
	}

	var output string
	runConfig := agent.RunConfig{StreamingMode: agent.StreamingModeNone}
	for event, err := range a.runner.Run(ctx, userID, sessionID, userMessage, runConfig) {
		if err != nil {
			return "", fmt.Errorf("scorer run failed: %w", err)
		}
		if event.Content != nil {
			for _, part := range event.Content.Parts {
				output += part.Text
			}
		}
	}

	return output, nil
}

func buildPrompt(in Input) string {
	var sb strings.Builder
	sb.WriteString("Mensagem recebida via WhatsApp:\n")
	if in.PushName != "" {
		sb.WriteString("Nome do contato: " + in.PushName + "\n")
	}
	sb.WriteString("Telefone: " + in.Phone + "\n")
	sb.WriteString("Texto: " + in.Body + "\n")
	return sb.String()
}

// parseResult extracts the JSON object from the model output, tolerating
// code fences and surrounding prose.
func parseResult(output string) (Result, error) {
	start := strings.Index(output, "{")
	end := strings.LastIndex(output, "}")
	if start < 0 || end <= start {
		return Result{}, fmt.Errorf("no json object in scorer output")
	}

	var result Result
	if err := json.Unmarshal([]byte(output[start:end+1]), &result); err != nil {
		return Result{}, fmt.Errorf("parse scorer output: %w", err)
	}
	return result, nil
}
