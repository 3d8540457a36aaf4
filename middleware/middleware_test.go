package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"order-management-service/internal/auth"
	"order-management-service/pkg/ctxmanage"
)

func setup(t *testing.T) (*gin.Engine, *auth.Keys, *auth.MemoryRevoker) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	keys, err := auth.NewKeys("test-secret", time.Hour)
	require.NoError(t, err)
	revoker := auth.NewMemoryRevoker()
	m, err := NewMid(keys, revoker)
	require.NoError(t, err)

	r := gin.New()
	r.Use(Logger())
	g := r.Group("/", m.Authentication())
	g.GET("/staff", m.Authorize(func(c *gin.Context) {
		s, _ := Session(c)
		c.String(http.StatusOK, s.UserID)
	}, auth.RoleStaff))
	g.GET("/trace", func(c *gin.Context) {
		c.String(http.StatusOK, ctxmanage.GetTraceIdOfRequest(c))
	})
	return r, keys, revoker
}

func do(r http.Handler, path, token string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestNewMidRequiresDependencies(t *testing.T) {
	_, err := NewMid(nil, auth.NewMemoryRevoker())
	assert.Error(t, err)
}

func TestAuthenticationRejectsMissingAndInvalidTokens(t *testing.T) {
	r, _, _ := setup(t)

	w := do(r, "/staff", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"AuthenticationError","message":"No token, authorization denied."}`, w.Body.String())

	w = do(r, "/staff", "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthorizeByRole(t *testing.T) {
	r, keys, _ := setup(t)

	customer, _, err := keys.GenerateToken(auth.Identity{UserID: "c-1", Role: auth.RoleCustomer})
	require.NoError(t, err)
	w := do(r, "/staff", customer)
	assert.Equal(t, http.StatusForbidden, w.Code)

	staff, _, err := keys.GenerateToken(auth.Identity{UserID: "s-1", Role: auth.RoleStaff})
	require.NoError(t, err)
	w = do(r, "/staff", staff)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "s-1", w.Body.String())
}

func TestAuthenticationRejectsRevokedToken(t *testing.T) {
	r, keys, revoker := setup(t)

	token, claims, err := keys.GenerateToken(auth.Identity{UserID: "s-1", Role: auth.RoleStaff})
	require.NoError(t, err)
	require.NoError(t, revoker.Revoke(context.Background(), claims.ID, claims.ExpiresAt.Time))

	w := do(r, "/staff", token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoggerPropagatesTraceId(t *testing.T) {
	r, keys, _ := setup(t)
	token, _, err := keys.GenerateToken(auth.Identity{UserID: "c-1", Role: auth.RoleCustomer})
	require.NoError(t, err)

	w := do(r, "/trace", token, TraceHeader, "trace-123")
	assert.Equal(t, "trace-123", w.Body.String())
	assert.Equal(t, "trace-123", w.Header().Get(TraceHeader))

	w = do(r, "/trace", token)
	assert.NotEmpty(t, w.Body.String())
	assert.NotEqual(t, "Unknown", w.Body.String())
}
