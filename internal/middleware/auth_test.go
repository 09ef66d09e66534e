package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"focusflow/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func protectedRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(JWTAuthMiddleware())
	r.GET("/protected", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("username"))
	})
	return r
}

func enableAuth(t *testing.T) {
	t.Helper()
	auth.Configure(auth.Settings{Secret: "test-secret", Username: "alice"})
	t.Cleanup(func() { auth.Configure(auth.Settings{}) })
}

func TestJWTAuthMiddleware_Success(t *testing.T) {
	enableAuth(t)
	r := protectedRouter()

	token, err := auth.GenerateToken("alice")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "alice", w.Body.String())
}

func TestJWTAuthMiddleware_QueryToken(t *testing.T) {
	enableAuth(t)
	r := protectedRouter()

	token, err := auth.GenerateToken("alice")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/protected?token="+token, nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestJWTAuthMiddleware_MissingHeader(t *testing.T) {
	enableAuth(t)
	r := protectedRouter()

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuthMiddleware_InvalidToken(t *testing.T) {
	enableAuth(t)
	r := protectedRouter()

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer nope")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuthMiddleware_DisabledPassesThrough(t *testing.T) {
	auth.Configure(auth.Settings{})
	r := protectedRouter()

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestJWTAuthMiddleware_OtherSchemeIsRejected(t *testing.T) {
	enableAuth(t)
	r := protectedRouter()

	token, err := auth.GenerateToken("alice")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/protected?token="+token, nil)
	req.Header.Set("Authorization", "Basic YWxpY2U6cHc=")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Header().Get("WWW-Authenticate"), "Bearer")
}

func TestJWTAuthMiddleware_SchemeIsCaseInsensitive(t *testing.T) {
	enableAuth(t)
	r := protectedRouter()

	token, err := auth.GenerateToken("alice")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "bearer "+token)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}
