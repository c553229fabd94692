package podioapps

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"wchic_backend/internal/adapters/storage"
	"wchic_backend/internal/podio"
	"wchic_backend/platform/logger"
)

const (
	testBucket  = "podio-apps"
	testHookURL = "https://wchic.example.com/webhook/podio"
)

const campinasApp = `{
  "app_id": 10777978,
  "fields": [
    {"field_id": 1, "external_id": "titulo", "type": "text", "status": "active", "config": {"label": "Nome", "required": true}},
    {"field_id": 2, "external_id": "status-da-prospeccao", "type": "category", "status": "active", "config": {"label": "Status", "settings": {"options": [
      {"id": 1, "text": "Contatado", "status": "active"},
      {"id": 2, "text": "Orçamento enviado", "status": "active"},
      {"id": 3, "text": "Sem resposta", "status": "active"},
      {"id": 4, "text": "Recusado", "status": "active"},
      {"id": 5, "text": "Cancelado", "status": "active"},
      {"id": 6, "text": "Fechado", "status": "active"},
      {"id": 9, "text": "Antigo", "status": "deleted"}
    ]}}},
    {"field_id": 3, "external_id": "etapa", "type": "category", "status": "active", "config": {"label": "Etapa", "settings": {"options": [{"id": 1, "text": "Pré-evento", "status": "active"}]}}},
    {"field_id": 4, "external_id": "valor-do-contrato", "type": "number", "status": "active", "config": {"label": "Valor"}},
    {"field_id": 5, "external_id": "avaliacao-do-cliente", "type": "category", "status": "active", "config": {"label": "Avaliação", "settings": {"options": []}}},
    {"field_id": 6, "external_id": "campo-removido", "type": "text", "status": "deleted", "config": {"label": "Removido"}}
  ]
}`

type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	buckets []string
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string][]byte{}}
}

func (m *memStorage) EnsureBucketExists(_ context.Context, bucket string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buckets = append(m.buckets, bucket)
	return nil
}

func (m *memStorage) PutObject(_ context.Context, _ string, key, _ string, reader io.Reader, _ int64) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memStorage) GetObject(_ context.Context, _ string, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memStorage) ListObjects(_ context.Context, _ string, prefix string) ([]storage.Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []storage.Object
	for key, data := range m.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, storage.Object{Key: key, Size: int64(len(data))})
		}
	}
	return out, nil
}

type testAPI struct {
	appIDs  map[podio.WorkspaceKey]string
	hooks   map[podio.WorkspaceKey][]podio.Hook
	created []podio.WorkspaceKey
	listErr error
}

func (a *testAPI) AppID(key podio.WorkspaceKey) string { return a.appIDs[key] }

func (a *testAPI) GetApp(_ context.Context, key podio.WorkspaceKey) (json.RawMessage, error) {
	return json.RawMessage(`{"app_id":` + a.appIDs[key] + `,"fields":[]}`), nil
}

func (a *testAPI) ListHooks(_ context.Context, key podio.WorkspaceKey) ([]podio.Hook, error) {
	if a.listErr != nil && key == podio.RioBH {
		return nil, a.listErr
	}
	return a.hooks[key], nil
}

func (a *testAPI) CreateHook(_ context.Context, key podio.WorkspaceKey, _, _ string) (int64, error) {
	a.created = append(a.created, key)
	return 900 + int64(len(a.created)), nil
}

func mustRegistry(t *testing.T) *podio.Registry {
	t.Helper()
	reg, err := podio.LoadRegistry()
	if err != nil {
		t.Fatalf("load registry: %v", err)
	}
	return reg
}

func TestGenerateMappingKeepsStatusAndDropsDeleted(t *testing.T) {
	reg := mustRegistry(t)
	previous, _ := reg.Workspace(podio.Campinas)
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

	m, raw, err := GenerateMapping([]byte(campinasApp), podio.Campinas, "", previous, now)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if m.WorkspaceName != previous.WorkspaceName {
		t.Errorf("expected name carried over, got %q", m.WorkspaceName)
	}
	if m.Status == nil || m.Status.Field != "status-da-prospeccao" {
		t.Fatalf("expected status section preserved, got %+v", m.Status)
	}
	if _, ok := m.Fields["campo-removido"]; ok {
		t.Errorf("expected deleted field dropped")
	}
	if _, ok := m.OptionID("status-da-prospeccao", "Antigo"); ok {
		t.Errorf("expected deleted option dropped")
	}
	if id, ok := m.OptionID("status-da-prospeccao", "Orçamento enviado"); !ok || id != 2 {
		t.Errorf("expected option 2, got %d", id)
	}
	if m.GeneratedAt != "2026-05-04T10:00:00Z" {
		t.Errorf("unexpected generated_at %q", m.GeneratedAt)
	}
	if !bytes.HasSuffix(raw, []byte("\n")) {
		t.Errorf("expected trailing newline")
	}
}

func TestGenerateMappingRejectsMissingStatusOption(t *testing.T) {
	reg := mustRegistry(t)
	previous, _ := reg.Workspace(podio.Campinas)
	app := strings.Replace(campinasApp, `{"id": 6, "text": "Fechado", "status": "active"},`, "", 1)

	if _, _, err := GenerateMapping([]byte(app), podio.Campinas, "Campinas", previous, time.Now()); err == nil {
		t.Fatalf("expected validation error for missing status option")
	}
}

func TestExportAppsStoresConfiguredApps(t *testing.T) {
	store := newMemStorage()
	api := &testAPI{appIDs: map[podio.WorkspaceKey]string{
		podio.Franqueadora: "10094649",
		podio.Campinas:     "10777978",
	}}
	svc := NewService(api, store, testBucket, mustRegistry(t), logger.New("development"))

	apps, err := svc.ExportApps(context.Background())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(apps) != 4 {
		t.Fatalf("expected 4 workspaces, got %d", len(apps))
	}
	if apps[0].Workspace != podio.HeadOffice || apps[0].Object != "franqueadora.app.10094649.json" {
		t.Errorf("unexpected head office export %+v", apps[0])
	}
	var skipped int
	for _, a := range apps {
		if a.Skipped != "" {
			skipped++
		}
	}
	if skipped != 2 {
		t.Errorf("expected 2 skipped workspaces, got %d", skipped)
	}

	raw, err := svc.LatestExport(context.Background(), podio.Campinas)
	if err != nil {
		t.Fatalf("latest export: %v", err)
	}
	if !bytes.Contains(raw, []byte(`"app_id": 10777978`)) {
		t.Errorf("unexpected stored export %s", raw)
	}
}

func TestRegisterHooksIsIdempotent(t *testing.T) {
	api := &testAPI{
		appIDs: map[podio.WorkspaceKey]string{
			podio.Franqueadora: "10094649",
			podio.Campinas:     "10777978",
			podio.RioBH:        "12876626",
		},
		hooks: map[podio.WorkspaceKey][]podio.Hook{
			podio.Franqueadora: {{HookID: 11, URL: testHookURL, Type: HookTypeItemUpdate}},
			podio.Campinas:     {{HookID: 12, URL: testHookURL, Type: "item.create"}},
		},
		listErr: errors.New("forbidden"),
	}
	svc := NewService(api, nil, "", mustRegistry(t), logger.New("development"))

	got := map[podio.WorkspaceKey]HookResult{}
	for _, r := range svc.RegisterHooks(context.Background(), testHookURL) {
		got[r.Workspace] = r
	}

	if r := got[podio.Franqueadora]; r.Outcome != HookExists || r.HookID != 11 {
		t.Errorf("franqueadora: %+v", r)
	}
	if r := got[podio.Campinas]; r.Outcome != HookCreated {
		t.Errorf("campinas: %+v", r)
	}
	if r := got[podio.LitoralNorte]; r.Outcome != HookSkipped {
		t.Errorf("litoral_norte: %+v", r)
	}
	if r := got[podio.RioBH]; r.Outcome != HookFailed || r.Error != "forbidden" {
		t.Errorf("rio_bh: %+v", r)
	}
	if len(api.created) != 1 || api.created[0] != podio.Campinas {
		t.Errorf("expected only campinas hook created, got %v", api.created)
	}
}
