package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/P3chys/ustam-api/internal/config"
	"github.com/P3chys/ustam-api/internal/metrics"
	"github.com/P3chys/ustam-api/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestRouter(t *testing.T) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:               logger.Default.LogMode(logger.Silent),
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)

	cfg := &config.Config{
		GinMode:     gin.TestMode,
		JWTSecret:   "router-test-secret",
		CORSOrigins: []string{"http://localhost:5173"},
	}
	r := Setup(db, cfg, Deps{
		Metrics: metrics.New(),
		Email:   services.NewEmailService(cfg),
	})
	return r, mock
}

func serve(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestSetup_HealthWithoutRedis(t *testing.T) {
	r, mock := newTestRouter(t)
	mock.ExpectPing()

	w := serve(r, http.MethodGet, "/health")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"redis":"disabled"`)
}

func TestSetup_ExposesMetrics(t *testing.T) {
	r, _ := newTestRouter(t)

	serve(r, http.MethodGet, "/api/v1/auth/me")
	w := serve(r, http.MethodGet, "/metrics")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestSetup_ProtectedRoutesRequireToken(t *testing.T) {
	r, _ := newTestRouter(t)

	routes := []struct{ method, path string }{
		{http.MethodGet, "/api/v1/auth/me"},
		{http.MethodPost, "/api/v1/quotes"},
		{http.MethodPost, "/api/v1/quotes/8a7d3c1e-1111-4a2b-9c3d-000000000001/reviews"},
		{http.MethodPut, "/api/v1/reviews/8a7d3c1e-1111-4a2b-9c3d-000000000001"},
		{http.MethodPost, "/api/v1/quotes/8a7d3c1e-1111-4a2b-9c3d-000000000001/accept"},
		{http.MethodGet, "/api/v1/admin/activities"},
	}
	for _, rt := range routes {
		w := serve(r, rt.method, rt.path)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", rt.method, rt.path)
	}
}

func TestSetup_SearchUnavailableWithoutMeilisearch(t *testing.T) {
	r, _ := newTestRouter(t)

	w := serve(r, http.MethodGet, "/api/v1/craftsmen/search?q=boya")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "SEARCH_UNAVAILABLE")
}
