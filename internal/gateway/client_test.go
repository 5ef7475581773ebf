package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"imobcrm_backend/platform/logger"
)

type gatewayCfg struct {
	baseURL string
	apiKey  string
}

func (c gatewayCfg) GetGatewayBaseURL() string { return c.baseURL }
func (c gatewayCfg) GetGatewayAPIKey() string  { return c.apiKey }
func (c gatewayCfg) GetGatewayRatePerSec() float64 { return 100 }

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(gatewayCfg{baseURL: server.URL, apiKey: "secret-key"}, logger.New("test"))
	if client == nil {
		t.Fatal("expected configured client")
	}
	return client, server
}

func TestNewClientUnconfigured(t *testing.T) {
	client := NewClient(gatewayCfg{}, logger.New("test"))
	if client != nil {
		t.Fatal("expected nil client without base URL")
	}

	if _, err := client.SendText(context.Background(), "inst", "+5511999990000", "ola"); err == nil {
		t.Fatal("expected error from nil client")
	}
}

func TestSendTextSetsAPIKeyAndStripsPlus(t *testing.T) {
	var gotKey, gotPath string
	var gotReq SendTextRequest

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("apikey")
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(SendTextResponse{Status: "PENDING"})
	}))

	resp, err := client.SendText(context.Background(), "corretor-1", "+5511999990000", "Ola, tudo bem?")
	if err != nil {
		t.Fatalf("SendText: %v", err)
	}

	if gotKey != "secret-key" {
		t.Errorf("apikey header = %q, want %q", gotKey, "secret-key")
	}
	if gotPath != "/message/sendText/corretor-1" {
		t.Errorf("path = %q", gotPath)
	}
	if gotReq.Number != "5511999990000" {
		t.Errorf("number = %q, want without plus prefix", gotReq.Number)
	}
	if resp.Status != "PENDING" {
		t.Errorf("status = %q", resp.Status)
	}
}

func TestFindMessagesFlattensRecords(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/findMessages/corretor-1" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{
			"messages": {"records": [
				{
					"key": {"id": "MSG1", "remoteJid": "5511999990000@s.whatsapp.net", "fromMe": false},
					"pushName": "Maria",
					"message": {"conversation": "Quero um apartamento"},
					"messageTimestamp": 1756700000
				},
				{
					"key": {"id": "MSG2", "remoteJid": "5521988880000@s.whatsapp.net", "fromMe": false},
					"pushName": "Joao",
					"message": {"extendedTextMessage": {"text": "Tem casa com quintal?"}},
					"messageTimestamp": 1756700100
				}
			]}
		}`))
	}))

	messages, err := client.FindMessages(context.Background(), "corretor-1", 50)
	if err != nil {
		t.Fatalf("FindMessages: %v", err)
	}

	if len(messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(messages))
	}
	if messages[0].ID != "MSG1" || messages[0].Body != "Quero um apartamento" {
		t.Errorf("first message = %+v", messages[0])
	}
	if messages[1].Body != "Tem casa com quintal?" {
		t.Errorf("extended text not flattened: %+v", messages[1])
	}
	if messages[0].Timestamp.IsZero() {
		t.Error("timestamp not parsed")
	}
}

func TestConnectionStateParsesState(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"instance": {"instanceName": "corretor-1", "state": "open"}}`))
	}))

	resp, err := client.ConnectionState(context.Background(), "corretor-1")
	if err != nil {
		t.Fatalf("ConnectionState: %v", err)
	}
	if resp.Instance.State != "open" {
		t.Errorf("state = %q, want open", resp.Instance.State)
	}
}

func TestStatusErrorOnFailure(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": "instance not found"}`))
	}))

	err := client.Restart(context.Background(), "ghost")
	if err == nil {
		t.Fatal("expected error")
	}

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %T", err)
	}
	if !statusErr.IsNotFound() {
		t.Errorf("code = %d, want 404", statusErr.Code)
	}
}

func TestQRPNGPrefersGatewayRender(t *testing.T) {
	got, err := QRPNG(QRCode{Base64: "data:image/png;base64,AAAA"})
	if err != nil {
		t.Fatalf("QRPNG: %v", err)
	}
	if got != "AAAA" {
		t.Errorf("got %q, want stripped data URI", got)
	}
}

func TestQRPNGRendersLocally(t *testing.T) {
	got, err := QRPNG(QRCode{Code: "2@pairing-payload"})
	if err != nil {
		t.Fatalf("QRPNG: %v", err)
	}
	if got == "" {
		t.Fatal("expected rendered png")
	}

	if _, err := QRPNG(QRCode{}); err == nil {
		t.Fatal("expected error for empty payload")
	}
}
