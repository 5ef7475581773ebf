// Package gateway implements the HTTP client for the WhatsApp gateway
// (Evolution-compatible API). All session control and messaging goes
// through this client.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"imobcrm_backend/platform/config"
	"imobcrm_backend/platform/logger"

	"golang.org/x/time/rate"
)

// StatusError is returned when the gateway answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gateway returned %d: %s", e.Code, e.Body)
}

// IsNotFound reports whether the gateway rejected the instance name.
func (e *StatusError) IsNotFound() bool {
	return e.Code == http.StatusNotFound
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
	log     *logger.Logger
}

// NewClient builds a gateway client. Returns nil when no gateway URL is
// configured; callers must treat a nil client as "gateway unavailable".
func NewClient(cfg config.GatewayConfig, log *logger.Logger) *Client {
	if cfg.GetGatewayBaseURL() == "" {
		return nil
	}

	perSec := cfg.GetGatewayRatePerSec()
	if perSec <= 0 {
		perSec = 5
	}
	burst := int(perSec)
	if burst < 1 {
		burst = 1
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.GetGatewayBaseURL(), "/"),
		apiKey:  cfg.GetGatewayAPIKey(),
		http:    &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(perSec), burst),
		log:     log,
	}
}

// CreateInstance provisions a new session and returns the initial QR payload.
func (c *Client) CreateInstance(ctx context.Context, instanceName string) (*CreateInstanceResponse, error) {
	req := CreateInstanceRequest{
		InstanceName: instanceName,
		Integration:  "WHATSAPP-BAILEYS",
		QRCode:       true,
	}

	var resp CreateInstanceResponse
	if err := c.do(ctx, http.MethodPost, "/instance/create", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Connect requests a fresh QR code for an existing instance.
func (c *Client) Connect(ctx context.Context, instanceName string) (*ConnectResponse, error) {
	var resp ConnectResponse
	if err := c.do(ctx, http.MethodGet, "/instance/connect/"+url.PathEscape(instanceName), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ConnectionState fetches the live connection state for an instance.
func (c *Client) ConnectionState(ctx context.Context, instanceName string) (*ConnectionStateResponse, error) {
	var resp ConnectionStateResponse
	if err := c.do(ctx, http.MethodGet, "/instance/connectionState/"+url.PathEscape(instanceName), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Restart tears down and re-establishes the session keeping credentials.
func (c *Client) Restart(ctx context.Context, instanceName string) error {
	return c.do(ctx, http.MethodPut, "/instance/restart/"+url.PathEscape(instanceName), nil, nil)
}

// Logout invalidates the session credentials on the phone side.
func (c *Client) Logout(ctx context.Context, instanceName string) error {
	return c.do(ctx, http.MethodDelete, "/instance/logout/"+url.PathEscape(instanceName), nil, nil)
}

// Delete removes the instance from the gateway entirely.
func (c *Client) Delete(ctx context.Context, instanceName string) error {
	return c.do(ctx, http.MethodDelete, "/instance/delete/"+url.PathEscape(instanceName), nil, nil)
}

// SendText delivers a plain text message through the instance.
func (c *Client) SendText(ctx context.Context, instanceName, number, text string) (*SendTextResponse, error) {
	req := SendTextRequest{
		Number: strings.TrimPrefix(number, "+"),
		Text:   text,
	}

	var resp SendTextResponse
	if err := c.do(ctx, http.MethodPost, "/message/sendText/"+url.PathEscape(instanceName), req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FindMessages returns recent inbound messages for the instance, newest last.
func (c *Client) FindMessages(ctx context.Context, instanceName string, limit int) ([]Message, error) {
	fromMe := false
	req := FindMessagesRequest{Limit: limit}
	req.Where.FromMe = &fromMe

	var resp findMessagesResponse
	if err := c.do(ctx, http.MethodPost, "/chat/findMessages/"+url.PathEscape(instanceName), req, &resp); err != nil {
		return nil, err
	}

	messages := make([]Message, 0, len(resp.Messages.Records))
	for _, record := range resp.Messages.Records {
		messages = append(messages, record.flatten())
	}
	return messages, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out interface{}) error {
	if c == nil {
		return fmt.Errorf("gateway not configured")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal gateway payload: %w", err)
		}
		body = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gateway response: %w", err)
	}
	return nil
}
