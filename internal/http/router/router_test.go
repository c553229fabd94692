package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apphttp "wchic_backend/internal/http"
	"wchic_backend/platform/httpkit"
	"wchic_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

type testConfig struct {
	origins []string
}

func (c testConfig) GetHTTPAddr() string      { return ":0" }
func (c testConfig) GetCORSAllowAll() bool    { return false }
func (c testConfig) GetCORSOrigins() []string { return c.origins }
func (c testConfig) GetJWTSecret() string     { return "router-secret" }

type testHealth struct {
	err error
}

func (h testHealth) Ping(context.Context) error { return h.err }

type pingModule struct{}

func (pingModule) Name() string { return "ping" }

func (pingModule) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Admin.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
}

func newTestRouter(health apphttp.HealthChecker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return New(&apphttp.App{
		Config:  testConfig{origins: []string{"https://painel.wchic.com.br"}},
		Logger:  logger.New("development"),
		Health:  health,
		Modules: []apphttp.Module{pingModule{}},
	})
}

func serve(engine *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestRootAndHealth(t *testing.T) {
	engine := newTestRouter(testHealth{})

	rec := serve(engine, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "WChic backend OK" {
		t.Fatalf("unexpected root response %d %q", rec.Code, rec.Body.String())
	}

	rec = serve(engine, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok":true`) {
		t.Fatalf("unexpected health response %d %s", rec.Code, rec.Body.String())
	}
}

func TestHealthReportsDatabaseDown(t *testing.T) {
	engine := newTestRouter(testHealth{err: errors.New("connection refused")})

	rec := serve(engine, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestAdminGroupRequiresAdminToken(t *testing.T) {
	engine := newTestRouter(nil)

	rec := serve(engine, httptest.NewRequest(http.MethodGet, "/api/v1/admin/ping", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	token, _, err := httpkit.IssueToken("router-secret", "admin", httpkit.RoleAdmin, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = serve(engine, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "pong" {
		t.Fatalf("unexpected admin response %d %q", rec.Code, rec.Body.String())
	}
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	engine := newTestRouter(nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://painel.wchic.com.br")
	rec := serve(engine, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://painel.wchic.com.br" {
		t.Fatalf("expected origin echoed, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://outro.example.com")
	if rec := serve(engine, req); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for unknown origin, got %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	engine := newTestRouter(nil)
	serve(engine, httptest.NewRequest(http.MethodGet, "/", nil))

	rec := serve(engine, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "http_requests_total") {
		t.Fatalf("expected request counter in metrics output")
	}
}
