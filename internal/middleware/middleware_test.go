package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"dispatch-service/internal/jwt"
	"dispatch-service/internal/middleware"
	"dispatch-service/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"role": c.GetString("role")})
}

func TestClientIP(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"x-real-ip wins", map[string]string{"X-Real-IP": "9.9.9.9", "X-Forwarded-For": "8.8.8.8"}, "9.9.9.9"},
		{"first forwarded hop", map[string]string{"X-Forwarded-For": "8.8.8.8, 10.0.0.1"}, "8.8.8.8"},
		{"socket address fallback", nil, "192.0.2.1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got string
			r := gin.New()
			r.GET("/", func(c *gin.Context) {
				got = middleware.ClientIP(c)
				c.Status(http.StatusOK)
			})
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			r.ServeHTTP(httptest.NewRecorder(), req)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestJWTAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	manager := jwt.NewManager("secret", 1)

	r := gin.New()
	r.GET("/me", middleware.JWTAuth(manager), okHandler)

	t.Run("missing token", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer nope")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		token, err := manager.Generate(1, "alice", models.RoleAdmin)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), models.RoleAdmin)
	})
}

func TestAdminOnly(t *testing.T) {
	gin.SetMode(gin.TestMode)
	manager := jwt.NewManager("secret", 1)

	r := gin.New()
	r.GET("/admin", middleware.JWTAuth(manager), middleware.AdminOnly(), okHandler)

	t.Run("user role rejected", func(t *testing.T) {
		token, err := manager.Generate(1, "bob", models.RoleUser)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("admin role allowed", func(t *testing.T) {
		token, err := manager.Generate(2, "root", models.RoleAdmin)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
