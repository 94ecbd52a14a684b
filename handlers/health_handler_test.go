package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/NomadCrew/nomad-crew-ledger/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestHealthHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		path           string
		status         types.HealthStatus
		expectedStatus int
	}{
		{name: "readiness up", path: "/health/readiness", status: types.HealthStatusUp, expectedStatus: http.StatusOK},
		{name: "readiness degraded", path: "/health/readiness", status: types.HealthStatusDegraded, expectedStatus: http.StatusOK},
		{name: "readiness down", path: "/health/readiness", status: types.HealthStatusDown, expectedStatus: http.StatusServiceUnavailable},
		{name: "detailed down", path: "/health", status: types.HealthStatusDown, expectedStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := new(MockHealthChecker)
			checker.On("CheckHealth", mock.Anything).Return(types.HealthCheck{Status: tt.status})

			h := NewHealthHandler(checker)
			r := gin.New()
			r.GET("/health", h.DetailedHealth)
			r.GET("/health/readiness", h.ReadinessCheck)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), string(tt.status))
		})
	}

	t.Run("liveness", func(t *testing.T) {
		checker := new(MockHealthChecker)
		r := gin.New()
		r.GET("/health/liveness", NewHealthHandler(checker).LivenessCheck)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/liveness", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		checker.AssertNotCalled(t, "CheckHealth", mock.Anything)
	})
}
