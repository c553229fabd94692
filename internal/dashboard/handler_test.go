package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"wchic_backend/platform/httpkit"
	"wchic_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

const testSecret = "test-secret"

type testConfig struct {
	password string
}

func (c testConfig) GetJWTSecret() string                { return testSecret }
func (c testConfig) GetDashboardPassword() string        { return c.password }
func (c testConfig) GetDashboardTokenTTL() time.Duration { return time.Hour }

type testStore struct {
	leads  []LeadRow
	total  int
	filter LeadFilter
}

func (s *testStore) Stats(context.Context) (Stats, error) {
	return Stats{Totals: Totals{TotalLeads: s.total}}, nil
}

func (s *testStore) ListLeads(_ context.Context, f LeadFilter) ([]LeadRow, int, error) {
	s.filter = f
	return s.leads, s.total, nil
}

func (s *testStore) GetLead(context.Context, uuid.UUID) (LeadDetail, error) {
	return LeadDetail{}, ErrLeadNotFound
}

func (s *testStore) ListMessages(context.Context, uuid.UUID) ([]Message, error) {
	return nil, nil
}

func (s *testStore) ListFranchises(context.Context) ([]FranchiseOption, error) {
	return []FranchiseOption{}, nil
}

func newTestEngine(store Store, password string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	NewHandler(store, testConfig{password: password}, logger.New("development")).RegisterRoutes(engine.Group("/dash"), nil)
	return engine
}

func do(engine *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func dashToken(t *testing.T) string {
	t.Helper()
	token, _, err := httpkit.IssueToken(testSecret, "dashboard", httpkit.RoleDashboard, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func TestLoginRequiresConfiguredPassword(t *testing.T) {
	engine := newTestEngine(&testStore{}, "")

	if rec := do(engine, http.MethodPost, "/dash/login", "", `{"password":"x"}`); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if rec := do(engine, http.MethodGet, "/dash/stats", dashToken(t), ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 on protected route, got %d", rec.Code)
	}
}

func TestLoginIssuesUsableToken(t *testing.T) {
	engine := newTestEngine(&testStore{total: 7}, "festa")

	if rec := do(engine, http.MethodPost, "/dash/login", "", `{"password":"errada"}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	rec := do(engine, http.MethodPost, "/dash/login", "", `{"password":"festa"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var out loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.ExpiresIn != time.Hour.Milliseconds() {
		t.Errorf("unexpected expiresIn %d", out.ExpiresIn)
	}

	if rec := do(engine, http.MethodGet, "/dash/stats", out.Token, ""); rec.Code != http.StatusOK {
		t.Fatalf("expected stats with issued token, got %d", rec.Code)
	}
	if rec := do(engine, http.MethodGet, "/dash/stats", "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
}

func TestListLeadsClampsPaging(t *testing.T) {
	store := &testStore{total: 250}
	engine := newTestEngine(store, "festa")
	franchiseID := uuid.New()

	rec := do(engine, http.MethodGet, "/dash/leads?page=3&limit=500&status=new&q=campinas&franchise="+franchiseID.String(), dashToken(t), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var page leadsPage
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.Limit != maxPageSize || page.TotalPages != 3 || page.Page != 3 {
		t.Errorf("unexpected page %+v", page)
	}
	if store.filter.Offset != 200 || store.filter.Status != "new" || store.filter.Query != "campinas" {
		t.Errorf("unexpected filter %+v", store.filter)
	}
	if store.filter.FranchiseID == nil || *store.filter.FranchiseID != franchiseID {
		t.Errorf("expected franchise filter")
	}
}

func TestListLeadsAllFranchisesMeansNoFilter(t *testing.T) {
	store := &testStore{}
	engine := newTestEngine(store, "festa")

	if rec := do(engine, http.MethodGet, "/dash/leads?franchise=all", dashToken(t), ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if store.filter.FranchiseID != nil || store.filter.Limit != defaultPageSize {
		t.Errorf("unexpected filter %+v", store.filter)
	}
}

func TestGetLeadNotFound(t *testing.T) {
	engine := newTestEngine(&testStore{}, "festa")

	if rec := do(engine, http.MethodGet, "/dash/leads/"+uuid.NewString(), dashToken(t), ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestExportWritesWorkbook(t *testing.T) {
	cidade := "Campinas"
	store := &testStore{leads: []LeadRow{{
		ID:            uuid.New(),
		Source:        "whatsapp",
		Status:        "routed",
		FranchiseName: "WChic Campinas",
		Cidade:        &cidade,
		Qualificado:   true,
		CreatedAt:     time.Date(2026, 4, 1, 9, 30, 0, 0, time.UTC),
	}}}
	engine := newTestEngine(store, "festa")

	rec := do(engine, http.MethodGet, "/dash/export.xlsx", dashToken(t), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if store.filter.Limit != maxExportRows {
		t.Errorf("expected export limit, got %d", store.filter.Limit)
	}

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(exportSheet)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header plus one row, got %d", len(rows))
	}
	if rows[0][1] != "Telefone" || rows[1][5] != "Campinas" || rows[1][10] != "Sim" {
		t.Errorf("unexpected rows %v", rows)
	}
}
