package podio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"wchic_backend/platform/config"
	"wchic_backend/platform/logger"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	defaultAPIBase  = "https://api.podio.com"
	defaultTokenURL = "https://api.podio.com/oauth/token"
	requestTimeout  = 15 * time.Second
)

// ErrDisabled is returned when client id or secret are not configured.
var ErrDisabled = errors.New("podio is not configured")

// APIError is a non-2xx answer from Podio.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("podio %s %s returned %d: %s", e.Method, e.Path, e.StatusCode, strings.TrimSpace(e.Body))
}

// IsNotFound reports whether err is Podio's 404 answer.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Item is the subset of a Podio item this backend reads.
type Item struct {
	ItemID     int64       `json:"item_id"`
	ExternalID string      `json:"external_id"`
	App        ItemApp     `json:"app"`
	Fields     []ItemField `json:"fields"`
}

type ItemApp struct {
	AppID int64 `json:"app_id"`
}

type ItemField struct {
	FieldID    int64            `json:"field_id"`
	ExternalID string           `json:"external_id"`
	Type       string           `json:"type"`
	Label      string           `json:"label"`
	Values     []map[string]any `json:"values"`
}

// Value returns the first value of a field, or nil when the field is empty.
// Date entries have no "value" key, so the entry itself is returned.
func (it *Item) Value(externalID string) any {
	for _, f := range it.Fields {
		if f.ExternalID != externalID || len(f.Values) == 0 {
			continue
		}
		first := f.Values[0]
		if v, ok := first["value"]; ok {
			return v
		}
		return first
	}
	return nil
}

// CategoryLabel returns the option text selected on a category field.
func (it *Item) CategoryLabel(externalID string) string {
	opt, ok := it.Value(externalID).(map[string]any)
	if !ok {
		return ""
	}
	text, _ := opt["text"].(string)
	return text
}

// Filled reports whether the field carries a non-empty value.
func (it *Item) Filled(externalID string) bool {
	switch v := it.Value(externalID).(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(v) != ""
	default:
		return true
	}
}

// Hook is a registered Podio webhook.
type Hook struct {
	HookID int64  `json:"hook_id"`
	URL    string `json:"url"`
	Type   string `json:"type"`
	Status string `json:"status"`
}

// Client calls the Podio REST API with per-workspace app tokens.
type Client struct {
	baseURL      string
	tokenURL     string
	clientID     string
	clientSecret string
	apps         map[WorkspaceKey]AppCredentials
	http         *http.Client
	tokens       *tokenCache
	limiter      *rate.Limiter
	log          *logger.Logger
}

// NewClient returns nil when Podio client credentials are absent.
func NewClient(cfg config.PodioConfig, log *logger.Logger) *Client {
	if !cfg.IsPodioEnabled() {
		return nil
	}

	apps := make(map[WorkspaceKey]AppCredentials)
	for key, creds := range cfg.GetPodioApps() {
		apps[WorkspaceKey(key)] = AppCredentials{AppID: creds.AppID, AppToken: creds.AppToken}
	}

	c := &Client{
		baseURL:      defaultAPIBase,
		tokenURL:     defaultTokenURL,
		clientID:     cfg.GetPodioClientID(),
		clientSecret: cfg.GetPodioClientSecret(),
		apps:         apps,
		http:         &http.Client{Timeout: requestTimeout},
		limiter:      rate.NewLimiter(rate.Limit(5), 10),
		log:          log,
	}
	c.tokens = &tokenCache{sources: make(map[WorkspaceKey]oauth2.TokenSource), newFn: c.newTokenSource}
	return c
}

func (c *Client) newTokenSource(key WorkspaceKey) (oauth2.TokenSource, error) {
	creds, ok := c.apps[key]
	if !ok || creds.AppID == "" || creds.AppToken == "" {
		return nil, fmt.Errorf("missing app credentials for workspace %s", key)
	}
	base := &appTokenSource{
		ctx:          context.Background(),
		httpClient:   c.http,
		tokenURL:     c.tokenURL,
		clientID:     c.clientID,
		clientSecret: c.clientSecret,
		creds:        creds,
	}
	return oauth2.ReuseTokenSource(nil, base), nil
}

// AppID returns the configured app id of a workspace.
func (c *Client) AppID(key WorkspaceKey) string {
	return c.apps[key].AppID
}

// AccessToken returns a valid token for the workspace, fetching one when needed.
func (c *Client) AccessToken(key WorkspaceKey) (string, error) {
	src, err := c.tokens.source(key)
	if err != nil {
		return "", err
	}
	tok, err := src.Token()
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

// GetItemByExternalID looks an item up by its external id. Podio answers 404 on a miss.
func (c *Client) GetItemByExternalID(ctx context.Context, key WorkspaceKey, externalID string) (*Item, error) {
	var item Item
	path := fmt.Sprintf("/item/app/%s/external_id/%s", c.AppID(key), url.PathEscape(externalID))
	if err := c.do(ctx, key, "get_by_external_id", http.MethodGet, path, nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// CreateItem creates an item and returns its id.
func (c *Client) CreateItem(ctx context.Context, key WorkspaceKey, externalID string, fields map[string]any) (int64, error) {
	payload := map[string]any{"fields": fields}
	if externalID != "" {
		payload["external_id"] = externalID
	}
	var out struct {
		ItemID int64 `json:"item_id"`
	}
	path := fmt.Sprintf("/item/app/%s/", c.AppID(key))
	if err := c.do(ctx, key, "create_item", http.MethodPost, path, payload, &out); err != nil {
		return 0, err
	}
	return out.ItemID, nil
}

// UpdateItem overwrites the given fields and keeps the external id.
func (c *Client) UpdateItem(ctx context.Context, key WorkspaceKey, itemID int64, externalID string, fields map[string]any) error {
	payload := map[string]any{"external_id": externalID, "fields": fields}
	path := "/item/" + strconv.FormatInt(itemID, 10)
	return c.do(ctx, key, "update_item", http.MethodPut, path, payload, nil)
}

// GetItem reads an item by id.
func (c *Client) GetItem(ctx context.Context, key WorkspaceKey, itemID int64) (*Item, error) {
	var item Item
	path := "/item/" + strconv.FormatInt(itemID, 10)
	if err := c.do(ctx, key, "get_item", http.MethodGet, path, nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateFieldValue sets a single field of an existing item.
func (c *Client) UpdateFieldValue(ctx context.Context, key WorkspaceKey, itemID int64, field string, value any) error {
	path := fmt.Sprintf("/item/%d/value/%s", itemID, url.PathEscape(field))
	return c.do(ctx, key, "update_field", http.MethodPut, path, value, nil)
}

// GetApp returns the raw app definition, used to regenerate mappings.
func (c *Client) GetApp(ctx context.Context, key WorkspaceKey) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.do(ctx, key, "get_app", http.MethodGet, "/app/"+c.AppID(key), nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// ValidateHook answers a hook.verify challenge.
func (c *Client) ValidateHook(ctx context.Context, key WorkspaceKey, hookID int64, code string) error {
	path := fmt.Sprintf("/hook/%d/verify/validate", hookID)
	return c.do(ctx, key, "validate_hook", http.MethodPost, path, map[string]string{"code": code}, nil)
}

// ListHooks lists the hooks registered on the workspace app.
func (c *Client) ListHooks(ctx context.Context, key WorkspaceKey) ([]Hook, error) {
	var hooks []Hook
	if err := c.do(ctx, key, "list_hooks", http.MethodGet, fmt.Sprintf("/hook/app/%s/", c.AppID(key)), nil, &hooks); err != nil {
		return nil, err
	}
	return hooks, nil
}

// CreateHook registers a webhook of hookType on the workspace app.
func (c *Client) CreateHook(ctx context.Context, key WorkspaceKey, hookURL, hookType string) (int64, error) {
	var out struct {
		HookID int64 `json:"hook_id"`
	}
	payload := map[string]string{"url": hookURL, "type": hookType}
	if err := c.do(ctx, key, "create_hook", http.MethodPost, fmt.Sprintf("/hook/app/%s/", c.AppID(key)), payload, &out); err != nil {
		return 0, err
	}
	return out.HookID, nil
}

func (c *Client) do(ctx context.Context, key WorkspaceKey, op, method, path string, payload, out any) error {
	token, err := c.AccessToken(key)
	if err != nil {
		return err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal podio payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "OAuth2 "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	latency := time.Since(start)
	requestDuration.WithLabelValues(string(key), op).Observe(latency.Seconds())
	if err != nil {
		requestsTotal.WithLabelValues(string(key), op, "error").Inc()
		c.log.VendorCall("podio", method, path, 0, latency)
		return fmt.Errorf("podio %s %s: %w", method, path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	requestsTotal.WithLabelValues(string(key), op, strconv.Itoa(resp.StatusCode)).Inc()
	c.log.VendorCall("podio", method, path, resp.StatusCode, latency)

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read podio response: %w", err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		c.tokens.invalidate(key)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return &APIError{StatusCode: resp.StatusCode, Method: method, Path: path, Body: string(data)}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode podio %s %s: %w", method, path, err)
	}
	return nil
}
