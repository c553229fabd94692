package podio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// tokenExpiryMargin renews tokens this long before Podio expires them.
const tokenExpiryMargin = 5 * time.Minute

// AppCredentials is the app-level grant input for one workspace.
type AppCredentials struct {
	AppID    string
	AppToken string
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

// appTokenSource performs Podio's grant_type=app exchange on every call.
type appTokenSource struct {
	ctx          context.Context
	httpClient   *http.Client
	tokenURL     string
	clientID     string
	clientSecret string
	creds        AppCredentials
}

func (s *appTokenSource) Token() (*oauth2.Token, error) {
	form := url.Values{
		"grant_type":    {"app"},
		"client_id":     {s.clientID},
		"client_secret": {s.clientSecret},
		"app_id":        {s.creds.AppID},
		"app_token":     {s.creds.AppToken},
	}

	req, err := http.NewRequestWithContext(s.ctx, http.MethodPost, s.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("podio token request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Method: http.MethodPost, Path: "/oauth/token", Body: string(body)}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("decode podio token: %w", err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("no access_token returned by podio for app %s", s.creds.AppID)
	}

	tok := &oauth2.Token{
		AccessToken:  tr.AccessToken,
		TokenType:    "OAuth2",
		RefreshToken: tr.RefreshToken,
	}
	if tr.ExpiresIn > 0 {
		tok.Expiry = time.Now().Add(time.Duration(tr.ExpiresIn)*time.Second - tokenExpiryMargin)
	}
	return tok, nil
}

// tokenCache keeps one reusable token source per workspace.
type tokenCache struct {
	mu      sync.Mutex
	sources map[WorkspaceKey]oauth2.TokenSource
	newFn   func(WorkspaceKey) (oauth2.TokenSource, error)
}

func (c *tokenCache) source(key WorkspaceKey) (oauth2.TokenSource, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if src, ok := c.sources[key]; ok {
		return src, nil
	}
	src, err := c.newFn(key)
	if err != nil {
		return nil, err
	}
	c.sources[key] = src
	return src, nil
}

// invalidate forgets the cached token, used after Podio answers 401.
func (c *tokenCache) invalidate(key WorkspaceKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sources, key)
}
