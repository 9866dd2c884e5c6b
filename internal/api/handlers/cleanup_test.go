package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func cleanupRouter(runner CleanupRunner) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewCleanupHandler(runner, testLogger())

	router := gin.New()
	router.POST("/api/v1/admin/cleanup", h.TriggerCleanup)
	return router
}

func TestTriggerCleanup(t *testing.T) {
	runner := new(MockCleanupRunner)
	runner.On("RunCleanup", mock.Anything).Return(nil)

	w := httptest.NewRecorder()
	cleanupRouter(runner).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/admin/cleanup", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "completed")
	runner.AssertExpectations(t)
}

func TestTriggerCleanup_Failure(t *testing.T) {
	runner := new(MockCleanupRunner)
	runner.On("RunCleanup", mock.Anything).Return(errors.New("prune failed"))

	w := httptest.NewRecorder()
	cleanupRouter(runner).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/admin/cleanup", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestTriggerCleanup_NotRunning(t *testing.T) {
	w := httptest.NewRecorder()
	cleanupRouter(nil).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/admin/cleanup", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
