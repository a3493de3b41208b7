package webhook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dwarvesf/escrow-history/internal/types/environments"
	"github.com/dwarvesf/escrow-history/internal/utils/logger"
)

func heartbeatServer(t *testing.T, status int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	hits := &atomic.Int32{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "escrow-history-heartbeat", r.Header.Get("User-Agent"))
		hits.Add(1)
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, hits
}

func TestClient_CallUptimeWebhook(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantHits int32
	}{
		{name: "ok", status: http.StatusOK, wantHits: 1},
		{name: "client error is not retried", status: http.StatusNotFound, wantHits: 1},
		{name: "server error is retried", status: http.StatusBadGateway, wantHits: 1 + heartbeatRetries},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, hits := heartbeatServer(t, tt.status)

			New(logger.New(environments.Test)).CallUptimeWebhook(context.Background(), srv.URL)

			assert.Equal(t, tt.wantHits, hits.Load())
		})
	}
}

func TestClient_CallUptimeWebhook_EmptyURL(t *testing.T) {
	assert.NotPanics(t, func() {
		New(logger.New(environments.Test)).CallUptimeWebhook(context.Background(), "")
	})
}
