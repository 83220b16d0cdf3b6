package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTelemetry_ServesAuthCounters(t *testing.T) {
	provider, handler, err := InitTelemetry("school-auth-service-test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	metrics, err := NewAuthMetrics(provider.Meter("test"))
	require.NoError(t, err)
	metrics.RecordLogin(context.Background(), "password", OutcomeSuccess)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/metrics", PrometheusHandler(handler))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "auth_logins_total")
	assert.Contains(t, w.Body.String(), `service_name="school-auth-service-test"`)
}

func TestPrometheusHandler_Unset(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/metrics", PrometheusHandler(nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestInitLogger(t *testing.T) {
	for _, env := range []string{"production", "development", "test"} {
		logger, err := InitLogger(env)
		require.NoError(t, err, env)
		assert.NotNil(t, logger)
	}
}
