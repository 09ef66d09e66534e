package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"focusflow/internal/auth"
	"focusflow/internal/database"
	"focusflow/internal/realtime"
	"focusflow/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T, s auth.Settings) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	database.DB = db
	t.Cleanup(func() { _ = database.Close(db) })

	auth.Configure(s)
	t.Cleanup(func() { auth.Configure(auth.Settings{}) })
	return SetupRoutes()
}

func get(r *gin.Engine, path, token string) int {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w.Code
}

func TestHealth(t *testing.T) {
	r := setup(t, auth.Settings{})
	require.Equal(t, http.StatusOK, get(r, "/health", ""))
	require.Equal(t, http.StatusOK, get(r, "/api/health", ""))
}

func TestTasks_OpenWhenAuthDisabled(t *testing.T) {
	r := setup(t, auth.Settings{})
	require.Equal(t, http.StatusOK, get(r, "/api/tasks", ""))
	require.Equal(t, http.StatusOK, get(r, "/api/stats", ""))
}

func TestTasks_RequireTokenWhenAuthEnabled(t *testing.T) {
	r := setup(t, auth.Settings{Secret: "test-secret", Username: "focusflow"})
	require.Equal(t, http.StatusUnauthorized, get(r, "/api/tasks", ""))
	require.Equal(t, http.StatusOK, get(r, "/api/health", ""), "health stays public")

	token, err := auth.GenerateToken("focusflow")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, get(r, "/api/tasks", token))
}

func TestCORSPreflight(t *testing.T) {
	r := setup(t, auth.Settings{})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/tasks", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestLoginRouteOnlyWithAuth(t *testing.T) {
	r := setup(t, auth.Settings{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{}`)))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestWebSocket_ReceivesTaskEvents(t *testing.T) {
	srv := httptest.NewServer(setup(t, auth.Settings{}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	hub := realtime.GetHub()
	require.Eventually(t, func() bool { return hub.Len() > 0 }, time.Second, 10*time.Millisecond)

	body := `{"id":"t1","title":"Estudiar","priority":"Alta","createdAt":"2025-10-26T14:30:00.000Z","subtasks":[]}`
	resp, err := http.Post(srv.URL+"/api/tasks", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var evt realtime.Event
	require.NoError(t, json.Unmarshal(msg, &evt))
	require.Equal(t, realtime.TaskCreated, evt.Type)
	require.Equal(t, "t1", evt.TaskID)
}
