package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func adminTestRouter(t *testing.T) *gin.Engine {
	t.Setenv("ADMIN_API_KEY", "test-admin-key")
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(NewAdminMiddleware().RequireAdminAuth())
	router.GET("/admin/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "admin access granted"})
	})
	return router
}

func TestNewAdminMiddleware_KeySource(t *testing.T) {
	t.Run("from environment", func(t *testing.T) {
		t.Setenv("ADMIN_API_KEY", "test-admin-key")
		assert.Equal(t, "test-admin-key", NewAdminMiddleware().apiKey)
	})

	t.Run("development default", func(t *testing.T) {
		t.Setenv("ADMIN_API_KEY", "")
		assert.Equal(t, defaultAdminKey, NewAdminMiddleware().apiKey)
	})
}

func TestRequireAdminAuth(t *testing.T) {
	router := adminTestRouter(t)

	tests := []struct {
		name       string
		authHeader string
		apiKey     string
		query      string
		wantStatus int
	}{
		{"bearer token", "Bearer test-admin-key", "", "", http.StatusOK},
		{"x-api-key header", "", "test-admin-key", "", http.StatusOK},
		{"query parameter", "", "", "?api_key=test-admin-key", http.StatusOK},
		{"no credentials", "", "", "", http.StatusUnauthorized},
		{"wrong bearer token", "Bearer wrong-key", "", "", http.StatusUnauthorized},
		{"bare key without scheme", "test-admin-key", "", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic test-admin-key", "", "", http.StatusUnauthorized},
		{"scheme without key", "Bearer", "", "", http.StatusUnauthorized},
		{"wrong x-api-key", "", "wrong-key", "", http.StatusUnauthorized},
		{"wrong query key", "", "", "?api_key=wrong-key", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/test"+tt.query, nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			if tt.apiKey != "" {
				req.Header.Set("X-API-Key", tt.apiKey)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Contains(t, w.Body.String(), "admin access granted")
			} else {
				assert.Contains(t, w.Body.String(), "Valid admin API key required")
			}
		})
	}
}

func TestValidateAdminKey(t *testing.T) {
	t.Setenv("ADMIN_API_KEY", "test-admin-key")
	am := NewAdminMiddleware()

	assert.True(t, am.ValidateAdminKey("test-admin-key"))
	assert.False(t, am.ValidateAdminKey("wrong-key"))
	assert.False(t, am.ValidateAdminKey(""))
}
