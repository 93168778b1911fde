package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name   string
		db     Pinger
		status int
		body   string
	}{
		{"no database", nil, http.StatusOK, `{"status":"healthy","service":"notifyfeed"}`},
		{"reachable", pingerFunc(func(context.Context) error { return nil }), http.StatusOK, `{"status":"healthy","service":"notifyfeed"}`},
		{"unreachable", pingerFunc(func(context.Context) error { return errors.New("refused") }), http.StatusServiceUnavailable, `{"status":"unhealthy","service":"notifyfeed"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), rec)

			require.NoError(t, NewHealthHandler(tt.db).HealthCheck(c))
			assert.Equal(t, tt.status, rec.Code)
			assert.JSONEq(t, tt.body, rec.Body.String())
		})
	}
}
