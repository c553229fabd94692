// Package whatsapp talks to the WhatsApp Cloud API and receives its webhooks.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"wchic_backend/platform/config"
	"wchic_backend/platform/logger"
)

const vendor = "whatsapp"

// ErrNoPhoneNumberID is returned when the sending number is not configured.
var ErrNoPhoneNumberID = errors.New("whatsapp phone number id not configured")

// Client sends messages through the Cloud API. A nil *Client drops every send.
type Client struct {
	baseURL       string
	accessToken   string
	clientsNumber string
	opsNumber     string
	http          *http.Client
	log           *logger.Logger
}

type textBody struct {
	Body string `json:"body"`
}

type templateParam struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type templateComponent struct {
	Type       string          `json:"type"`
	Parameters []templateParam `json:"parameters"`
}

type templateLanguage struct {
	Code string `json:"code"`
}

type template struct {
	Name       string              `json:"name"`
	Language   templateLanguage    `json:"language"`
	Components []templateComponent `json:"components"`
}

type sendRequest struct {
	MessagingProduct string    `json:"messaging_product"`
	To               string    `json:"to"`
	Type             string    `json:"type"`
	Text             *textBody `json:"text,omitempty"`
	Template         *template `json:"template,omitempty"`
}

// NewClient returns nil when no access token is configured.
func NewClient(cfg config.WhatsAppConfig, log *logger.Logger) *Client {
	if cfg.GetWhatsAppAccessToken() == "" {
		return nil
	}

	return &Client{
		baseURL:       strings.TrimRight(cfg.GetWhatsAppAPIBase(), "/"),
		accessToken:   cfg.GetWhatsAppAccessToken(),
		clientsNumber: cfg.GetWhatsAppClientsPhoneNumberID(),
		opsNumber:     cfg.GetWhatsAppOpsPhoneNumberID(),
		http:          &http.Client{Timeout: 10 * time.Second},
		log:           log,
	}
}

// SendToClient answers a customer from the clients number.
func (c *Client) SendToClient(ctx context.Context, to, text string) error {
	if c == nil {
		return nil
	}
	return c.SendText(ctx, c.clientsNumber, to, text)
}

// SendToOps writes to the operations number used for alerts.
func (c *Client) SendToOps(ctx context.Context, to, text string) error {
	if c == nil {
		return nil
	}
	return c.SendText(ctx, c.opsNumber, to, text)
}

func (c *Client) SendText(ctx context.Context, phoneNumberID, to, text string) error {
	if c == nil {
		return nil
	}
	return c.send(ctx, phoneNumberID, sendRequest{
		MessagingProduct: "whatsapp",
		To:               recipient(to),
		Type:             "text",
		Text:             &textBody{Body: text},
	})
}

// SendTemplate sends an approved template with positional body parameters.
func (c *Client) SendTemplate(ctx context.Context, phoneNumberID, to, name, languageCode string, params []string) error {
	if c == nil {
		return nil
	}

	components := []templateComponent{}
	if len(params) > 0 {
		body := templateComponent{Type: "body"}
		for _, p := range params {
			body.Parameters = append(body.Parameters, templateParam{Type: "text", Text: p})
		}
		components = append(components, body)
	}

	return c.send(ctx, phoneNumberID, sendRequest{
		MessagingProduct: "whatsapp",
		To:               recipient(to),
		Type:             "template",
		Template: &template{
			Name:       name,
			Language:   templateLanguage{Code: languageCode},
			Components: components,
		},
	})
}

func (c *Client) send(ctx context.Context, phoneNumberID string, payload sendRequest) error {
	if phoneNumberID == "" {
		return ErrNoPhoneNumberID
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal whatsapp payload: %w", err)
	}

	path := "/" + phoneNumberID + "/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.VendorCall(vendor, http.MethodPost, path, 0, time.Since(start))
		return fmt.Errorf("whatsapp request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	c.log.VendorCall(vendor, http.MethodPost, path, resp.StatusCode, time.Since(start))

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("whatsapp %s returned %d: %s", payload.Type, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return nil
}

// recipient strips the leading plus of an E.164 number.
func recipient(phone string) string {
	return strings.TrimPrefix(strings.TrimSpace(phone), "+")
}
