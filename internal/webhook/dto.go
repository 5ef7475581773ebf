package webhook

import (
	"time"

	"imobcrm_backend/internal/gateway"
)

// Event is the gateway's webhook envelope. Only messages.upsert is
// consumed; other event types are acknowledged and dropped.
type Event struct {
	Event    string `json:"event"`
	Instance string `json:"instance"`
	Data     struct {
		Key struct {
			ID        string `json:"id"`
			RemoteJID string `json:"remoteJid"`
			FromMe    bool   `json:"fromMe"`
		} `json:"key"`
		PushName string `json:"pushName"`
		Message  struct {
			Conversation string `json:"conversation"`
			ExtendedText *struct {
				Text string `json:"text"`
			} `json:"extendedTextMessage,omitempty"`
		} `json:"message"`
		MessageTimestamp int64 `json:"messageTimestamp"`
	} `json:"data"`
}

const eventMessagesUpsert = "messages.upsert"

// toMessage flattens the payload into the pipeline's message shape.
func (e Event) toMessage() gateway.Message {
	body := e.Data.Message.Conversation
	if body == "" && e.Data.Message.ExtendedText != nil {
		body = e.Data.Message.ExtendedText.Text
	}

	return gateway.Message{
		ID:        e.Data.Key.ID,
		RemoteJID: e.Data.Key.RemoteJID,
		PushName:  e.Data.PushName,
		Body:      body,
		FromMe:    e.Data.Key.FromMe,
		Timestamp: time.Unix(e.Data.MessageTimestamp, 0).UTC(),
	}
}
