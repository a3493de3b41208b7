package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwarvesf/escrow-history/internal/evmrpc"
	"github.com/dwarvesf/escrow-history/internal/handler"
	"github.com/dwarvesf/escrow-history/internal/monitoring"
	"github.com/dwarvesf/escrow-history/internal/types/environments"
	"github.com/dwarvesf/escrow-history/internal/utils/config"
	"github.com/dwarvesf/escrow-history/internal/utils/logger"
)

func newTestServer(t *testing.T) (*gin.Engine, *prometheus.Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	appConfig := &config.AppConfig{
		Environment: environments.Test,
		ApiServer:   config.ApiServerConfig{AllowedOrigins: "https://p2p.example.com"},
	}
	log := logger.New(environments.Test)
	registry := prometheus.NewRegistry()
	httpMetrics := monitoring.NewHTTPMetrics()
	httpMetrics.MustRegister(registry)

	h := handler.New(appConfig, log, nil, nil, evmrpc.NewRegistry(), nil, registry, nil)
	return NewHttpServer(appConfig, log, h, httpMetrics), registry
}

func TestNewHttpServer_Routes(t *testing.T) {
	r, _ := newTestServer(t)

	routes := map[string]bool{}
	for _, route := range r.Routes() {
		routes[route.Method+" "+route.Path] = true
	}

	for _, want := range []string{
		"GET /healthz",
		"GET /metrics",
		"GET /swagger/*any",
		"GET /api/v1/chains",
		"GET /api/v1/escrows/snapshots",
		"GET /api/v1/escrows/:chain/:address/transfers",
		"POST /api/v1/history-sessions",
		"GET /api/v1/history-sessions/:id",
		"POST /api/v1/history-sessions/:id/select",
		"POST /api/v1/history-sessions/:id/more",
		"POST /api/v1/history-sessions/:id/refresh",
		"GET /api/v1/health/db",
		"GET /api/v1/health/external",
		"GET /api/v1/health/jobs",
	} {
		assert.True(t, routes[want], "missing route %s", want)
	}
}

func TestNewHttpServer_ServesRequests(t *testing.T) {
	r, registry := newTestServer(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/chains", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"polygon"`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Escrow History API")

	families, err := registry.Gather()
	require.NoError(t, err)
	found := false
	for _, f := range families {
		if f.GetName() == "escrow_history_http_requests_total" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestNewHttpServer_CORS(t *testing.T) {
	r, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/chains", nil)
	req.Header.Set("Origin", "https://p2p.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "https://p2p.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}
