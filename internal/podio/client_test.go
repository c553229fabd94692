package podio

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"wchic_backend/platform/config"
	"wchic_backend/platform/logger"
)

// fakePodio is a minimal in-memory Podio for one app.
type fakePodio struct {
	mu          sync.Mutex
	tokenCalls  atomic.Int32
	creates     int
	updates     int
	nextItemID  int64
	byExternal  map[string]int64
	lastFields  map[string]any
	failLookups bool
}

func newFakePodio() *fakePodio {
	return &fakePodio{nextItemID: 5000, byExternal: make(map[string]int64)}
}

func (f *fakePodio) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /oauth/token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "app" {
			http.Error(w, "bad grant", http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok-" + r.PostForm.Get("app_id"), "expires_in": 28800})
	})
	mux.HandleFunc("GET /item/app/{app}/external_id/{ext}", func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "OAuth2 tok-") {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if f.failLookups {
			http.Error(w, `{"error":"unavailable"}`, http.StatusServiceUnavailable)
			return
		}
		f.mu.Lock()
		id, ok := f.byExternal[r.PathValue("ext")]
		f.mu.Unlock()
		if !ok {
			http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"item_id": id})
	})
	mux.HandleFunc("POST /item/app/{app}/", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ExternalID string         `json:"external_id"`
			Fields     map[string]any `json:"fields"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode create: %v", err)
		}
		f.mu.Lock()
		f.creates++
		f.nextItemID++
		f.byExternal[body.ExternalID] = f.nextItemID
		f.lastFields = body.Fields
		id := f.nextItemID
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{"item_id": id})
	})
	mux.HandleFunc("PUT /item/{id}", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ExternalID string         `json:"external_id"`
			Fields     map[string]any `json:"fields"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.updates++
		f.lastFields = body.Fields
		f.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	cfg := &config.Config{
		PodioClientID:     "client",
		PodioClientSecret: "secret",
		PodioApps: map[string]config.PodioAppCredentials{
			"franqueadora": {AppID: "10094649", AppToken: "t1"},
			"campinas":     {AppID: "10777978", AppToken: "t2"},
		},
	}
	c := NewClient(cfg, logger.New("development"))
	if c == nil {
		t.Fatalf("expected client to be enabled")
	}
	c.baseURL = srv.URL
	c.tokenURL = srv.URL + "/oauth/token"
	return c
}

func TestNewClientDisabledWithoutCredentials(t *testing.T) {
	if c := NewClient(&config.Config{}, logger.New("development")); c != nil {
		t.Fatalf("expected nil client without client id and secret")
	}
}

func TestUpsertCreatesThenUpdatesSameItem(t *testing.T) {
	fake := newFakePodio()
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	client := newTestClient(t, srv)
	up := NewUpserter(client, mustRegistry(t), logger.New("development"))
	lead := CanonicalLead{
		ExternalID: "wchic:wa:+5511999999999:2026-05-10",
		Fields:     map[string]any{"title": "Lead WA +5511999999999", "status": "Novo"},
	}

	first, err := up.Upsert(context.Background(), Franqueadora, lead)
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	second, err := up.Upsert(context.Background(), Franqueadora, lead)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	if first.Action != ActionCreated || second.Action != ActionUpdated {
		t.Fatalf("expected created then updated, got %s then %s", first.Action, second.Action)
	}
	if first.ItemID != second.ItemID {
		t.Fatalf("expected same item id, got %d and %d", first.ItemID, second.ItemID)
	}
	if fake.creates != 1 || fake.updates != 1 {
		t.Fatalf("expected 1 create and 1 update, got %d and %d", fake.creates, fake.updates)
	}
	if got := fake.lastFields["status"]; got != float64(1) {
		t.Errorf("expected status option id 1 on the wire, got %v", got)
	}
	if calls := fake.tokenCalls.Load(); calls != 1 {
		t.Errorf("expected token to be reused across calls, got %d grants", calls)
	}
}

func TestUpsertPropagatesNonNotFoundErrors(t *testing.T) {
	fake := newFakePodio()
	fake.failLookups = true
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	up := NewUpserter(newTestClient(t, srv), mustRegistry(t), logger.New("development"))
	_, err := up.Upsert(context.Background(), Campinas, CanonicalLead{ExternalID: "x", Fields: map[string]any{}})
	if err == nil {
		t.Fatalf("expected error")
	}
	if IsNotFound(err) {
		t.Fatalf("503 must not be treated as a miss")
	}
	if fake.creates != 0 {
		t.Fatalf("expected no create after a failed lookup, got %d", fake.creates)
	}
}

func TestClientFailsWithoutWorkspaceCredentials(t *testing.T) {
	srv := httptest.NewServer(newFakePodio().handler(t))
	defer srv.Close()

	client := newTestClient(t, srv)
	if _, err := client.GetItemByExternalID(context.Background(), RioBH, "x"); err == nil {
		t.Fatalf("expected missing app token error for rio_bh")
	}
}

func TestItemAccessors(t *testing.T) {
	var item Item
	raw := `{"item_id":7,"fields":[
		{"external_id":"status","type":"category","values":[{"value":{"id":2,"text":"Contatado"}}]},
		{"external_id":"data-do-evento","type":"date","values":[{"start":"2026-05-10 00:00:00"}]},
		{"external_id":"etapa","type":"category","values":[]},
		{"external_id":"valor-do-contrato","type":"number","values":[{"value":"1500.0000"}]}
	]}`
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if got := item.CategoryLabel("status"); got != "Contatado" {
		t.Errorf("expected Contatado, got %q", got)
	}
	if !item.Filled("data-do-evento") {
		t.Errorf("expected date field to count as filled")
	}
	if item.Filled("etapa") || item.Filled("missing") {
		t.Errorf("expected empty and absent fields to be unfilled")
	}
	if !item.Filled("valor-do-contrato") {
		t.Errorf("expected number field filled")
	}
}
