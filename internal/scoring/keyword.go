package scoring

import (
	"context"
	"regexp"
	"strings"
)

// KeywordScorer is the deterministic fallback. It classifies intent by
// Portuguese keyword tiers and extracts property hints from the text.
type KeywordScorer struct{}

func NewKeywordScorer() *KeywordScorer {
	return &KeywordScorer{}
}

var (
	urgentWords = []string{"urgente", "hoje", "imediato", "agora", "o quanto antes"}
	intentWords = []string{"quero", "procuro", "preciso", "busco", "gostaria de"}

	propertyTypes = []string{
		"apartamento", "casa", "terreno", "cobertura",
		"kitnet", "sala comercial", "sobrado", "chacara", "sitio",
	}

	bedroomsPattern = regexp.MustCompile(`(\d+)\s*(quartos?|dormit[oó]rios?|suites?|suítes?)`)
	valuePattern    = regexp.MustCompile(`(?i)(r\$\s*[\d.,]+\s*(mil|milh[oõ]es)?|[\d.,]+\s*(mil|milh[oõ]es))`)
)

// Score classifies the message without external calls. The error return
// satisfies the Scorer interface and is always nil.
func (k *KeywordScorer) Score(_ context.Context, in Input) (Result, error) {
	text := strings.ToLower(in.Body)

	score := 40
	rationale := "Mensagem recebida sem sinais claros de intencao."
	followUp := "Perguntar qual tipo de imovel e regiao de interesse."

	switch {
	case containsAny(text, urgentWords):
		score = 85
		rationale = "Mensagem indica urgencia na busca por imovel."
		followUp = "Entrar em contato imediatamente e oferecer visita."
	case containsAny(text, intentWords):
		score = 65
		rationale = "Mensagem demonstra intencao ativa de compra ou locacao."
		followUp = "Responder com opcoes compativeis e agendar conversa."
	}

	propertyType := ""
	for _, pt := range propertyTypes {
		if strings.Contains(text, pt) {
			propertyType = pt
			break
		}
	}

	// Concrete criteria in the message mean a better qualified lead.
	if bedroomsPattern.MatchString(text) {
		score += 5
	}

	estimatedValue := ""
	if match := valuePattern.FindString(in.Body); match != "" {
		estimatedValue = strings.TrimSpace(match)
		score += 5
	}

	if score > 100 {
		score = 100
	}

	name := strings.TrimSpace(in.PushName)
	if name == "" {
		name = in.Phone
	}

	return Result{
		Name:           name,
		PropertyType:   propertyType,
		EstimatedValue: estimatedValue,
		Score:          score,
		Rationale:      rationale,
		FollowUp:       followUp,
	}, nil
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
