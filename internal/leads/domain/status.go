// Package domain holds the lead funnel vocabulary shared by repository,
// service and handlers.
package domain

// Funnel statuses as shown on the kanban board.
const (
	StatusNovo           = "novo"
	StatusContatado      = "contatado"
	StatusInteressado    = "interessado"
	StatusVisitaAgendada = "visita_agendada"
	StatusProposta       = "proposta"
	StatusFechado        = "fechado"
	StatusPerdido        = "perdido"
)

// Lead sources.
const (
	SourceManual  = "manual"
	SourcePoll    = "poll"
	SourceWebhook = "webhook"
)

// Interaction types.
const (
	InteractionMessageReceived = "mensagem_recebida"
	InteractionMessageSent     = "mensagem_enviada"
	InteractionAssignment      = "atribuicao"
)

var validStatuses = map[string]bool{
	StatusNovo:           true,
	StatusContatado:      true,
	StatusInteressado:    true,
	StatusVisitaAgendada: true,
	StatusProposta:       true,
	StatusFechado:        true,
	StatusPerdido:        true,
}

// ValidStatus reports whether s is a known funnel status.
func ValidStatus(s string) bool {
	return validStatuses[s]
}
