package gateway

import "time"

// CreateInstanceRequest provisions a new session on the gateway.
type CreateInstanceRequest struct {
	InstanceName string `json:"instanceName"`
	Integration  string `json:"integration,omitempty"`
	QRCode       bool   `json:"qrcode"`
}

// CreateInstanceResponse is returned by POST /instance/create.
type CreateInstanceResponse struct {
	Instance struct {
		InstanceName string `json:"instanceName"`
		Status       string `json:"status"`
	} `json:"instance"`
	Hash struct {
		APIKey string `json:"apikey"`
	} `json:"hash"`
	QRCode QRCode `json:"qrcode"`
}

// QRCode carries the pairing payload. Code is the raw pairing string;
// Base64 is a pre-rendered PNG when the gateway provides one.
type QRCode struct {
	Code   string `json:"code,omitempty"`
	Base64 string `json:"base64,omitempty"`
}

// ConnectResponse is returned by GET /instance/connect/{name}.
type ConnectResponse struct {
	Code   string `json:"code,omitempty"`
	Base64 string `json:"base64,omitempty"`
}

// ConnectionStateResponse is returned by GET /instance/connectionState/{name}.
// State is one of "open", "connecting" or "close".
type ConnectionStateResponse struct {
	Instance struct {
		InstanceName string `json:"instanceName"`
		State        string `json:"state"`
	} `json:"instance"`
}

// SendTextRequest posts a plain text message to a chat.
type SendTextRequest struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

// SendTextResponse echoes the stored message key.
type SendTextResponse struct {
	Key struct {
		ID        string `json:"id"`
		RemoteJID string `json:"remoteJid"`
		FromMe    bool   `json:"fromMe"`
	} `json:"key"`
	Status string `json:"status"`
}

// FindMessagesRequest filters the chat history query.
type FindMessagesRequest struct {
	Where struct {
		FromMe *bool `json:"fromMe,omitempty"`
	} `json:"where"`
	Limit int `json:"limit,omitempty"`
}

// Message is a single chat message as stored by the gateway.
type Message struct {
	ID        string
	RemoteJID string
	PushName  string
	Body      string
	FromMe    bool
	Timestamp time.Time
}

// rawMessage mirrors the gateway's wire shape before flattening.
type rawMessage struct {
	Key struct {
		ID        string `json:"id"`
		RemoteJID string `json:"remoteJid"`
		FromMe    bool   `json:"fromMe"`
	} `json:"key"`
	PushName string `json:"pushName"`
	Message  struct {
		Conversation    string `json:"conversation"`
		ExtendedText    *struct {
			Text string `json:"text"`
		} `json:"extendedTextMessage,omitempty"`
	} `json:"message"`
	MessageTimestamp int64 `json:"messageTimestamp"`
}

type findMessagesResponse struct {
	Messages struct {
		Records []rawMessage `json:"records"`
	} `json:"messages"`
}

func (m rawMessage) flatten() Message {
	body := m.Message.Conversation
	if body == "" && m.Message.ExtendedText != nil {
		body = m.Message.ExtendedText.Text
	}

	return Message{
		ID:        m.Key.ID,
		RemoteJID: m.Key.RemoteJID,
		PushName:  m.PushName,
		Body:      body,
		FromMe:    m.Key.FromMe,
		Timestamp: time.Unix(m.MessageTimestamp, 0).UTC(),
	}
}
