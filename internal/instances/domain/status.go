// Package domain holds the WhatsApp connection state machine.
package domain

// Connection statuses, in lifecycle order. Disconnected is reachable from
// any state via Disconnect.
const (
	StatusDisconnected = "disconnected"
	StatusPending      = "pending"
	StatusConnecting   = "connecting"
	StatusConnected    = "connected"
)

// FromGatewayState maps the gateway's connectionState value onto the local
// state machine.
func FromGatewayState(state string) string {
	switch state {
	case "open":
		return StatusConnected
	case "connecting":
		return StatusConnecting
	case "close":
		return StatusDisconnected
	default:
		return StatusPending
	}
}

// CanTransition reports whether moving from one status to another is a
// legal lifecycle step.
func CanTransition(from, to string) bool {
	if to == StatusDisconnected {
		return true
	}

	switch from {
	case StatusDisconnected:
		return to == StatusPending
	case StatusPending:
		return to == StatusConnecting || to == StatusConnected
	case StatusConnecting:
		return to == StatusConnected || to == StatusPending
	case StatusConnected:
		return to == StatusConnecting || to == StatusPending
	default:
		return false
	}
}
