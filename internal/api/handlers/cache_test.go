package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/equilens-ai-go/pkg/interfaces"
)

func cacheRouter(api AnalysisAPI) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewCacheHandler(api, testLogger())

	router := gin.New()
	router.GET("/api/v1/admin/cache/stats", h.GetStats)
	router.DELETE("/api/v1/admin/cache/:ticker", h.InvalidateTicker)
	return router
}

func TestCacheStats(t *testing.T) {
	api := new(MockAnalysisAPI)
	api.On("CacheStats").Return(interfaces.CacheStats{Hits: 9, Misses: 1, Entries: 4})

	router := cacheRouter(api)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/cache/stats", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"hits":9`)
	assert.Contains(t, w.Body.String(), `"hit_rate":0.9`)
}

func TestCacheInvalidateTicker(t *testing.T) {
	api := new(MockAnalysisAPI)
	api.On("InvalidateTicker", mock.Anything, "AAPL").Return(int64(3), nil)

	router := cacheRouter(api)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/admin/cache/aapl", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"removed":3`)
	api.AssertExpectations(t)
}
