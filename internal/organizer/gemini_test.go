package organizer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"focusflow/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 10, 26, 14, 30, 0, 0, time.UTC)

func geminiAnswer(t *testing.T, text string) []byte {
	t.Helper()
	resp := map[string]any{
		"candidates": []any{
			map[string]any{"content": map[string]any{
				"role":  "model",
				"parts": []any{map[string]any{"text": text}},
			}},
		},
	}
	b, err := json.Marshal(resp)
	require.NoError(t, err)
	return b
}

func newClient(srv *httptest.Server) *GeminiClient {
	return NewGeminiClient("test-key",
		WithBaseURL(srv.URL),
		WithRetryDelay(time.Millisecond),
		WithClock(func() time.Time { return fixedNow }),
	)
}

func TestOrganize_SendsSchemaAndNormalizes(t *testing.T) {
	var gotPath, gotKey string
	var gotReq generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotReq)

		answer := `[
			{"id":"1","title":"Comprar comida","priority":"Alta","details":"para la semana",
			 "subtasks":[{"id":"1a","text":"leche"},{"id":"1b","text":"  "},{"id":"1c","text":"pan"}]},
			{"id":"1","title":"Llamar al médico","priority":"Urgente","subtasks":[]},
			{"id":"3","title":"   ","priority":"Baja","subtasks":[]}
		]`
		_, _ = w.Write(geminiAnswer(t, answer))
	}))
	defer srv.Close()

	tasks, err := newClient(srv).Organize(context.Background(), "tengo que comprar leche y pan y llamar al médico")
	require.NoError(t, err)

	assert.Equal(t, "/models/gemini-2.5-pro:generateContent", gotPath)
	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, "application/json", gotReq.GenerationConfig.ResponseMimeType)
	assert.Equal(t, "ARRAY", gotReq.GenerationConfig.ResponseSchema["type"])
	assert.Equal(t, thinkingBudget, gotReq.GenerationConfig.ThinkingConfig.ThinkingBudget)
	require.Len(t, gotReq.Contents, 1)
	assert.Equal(t, "user", gotReq.Contents[0].Role)
	assert.Contains(t, gotReq.SystemInstruction.Parts[0].Text, "TDAH")

	require.Len(t, tasks, 2)
	first := tasks[0]
	assert.Equal(t, "Comprar comida", first.Title)
	assert.Equal(t, models.PriorityHigh, first.Priority)
	assert.Equal(t, "para la semana", first.Details)
	assert.Equal(t, "2025-10-26T14:30:00.000Z", first.CreatedAt)
	assert.False(t, first.Completed)
	require.Len(t, first.Subtasks, 2)
	assert.Equal(t, "leche", first.Subtasks[0].Text)
	assert.Equal(t, "pan", first.Subtasks[1].Text)
	for _, s := range first.Subtasks {
		assert.False(t, s.Completed)
		assert.True(t, strings.HasPrefix(s.ID, "sub-"))
	}

	second := tasks[1]
	assert.Equal(t, models.PriorityMedium, second.Priority, "unknown priority falls back to Media")
	assert.NotNil(t, second.Subtasks)
	assert.NotEqual(t, first.ID, second.ID, "model ids are replaced")
	assert.True(t, strings.HasPrefix(second.ID, "task-"))
}

func TestOrganize_BlankTranscriptionSkipsAPI(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	tasks, err := newClient(srv).Organize(context.Background(), "  \n\t ")
	require.NoError(t, err)
	assert.Empty(t, tasks)
	assert.NotNil(t, tasks)
	assert.Zero(t, hits.Load())
}

func TestOrganize_NoAPIKey(t *testing.T) {
	c := NewGeminiClient("")
	_, err := c.Organize(context.Background(), "algo")
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestOrganize_RetriesTransientErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{"code":503,"message":"overloaded","status":"UNAVAILABLE"}}`))
			return
		}
		_, _ = w.Write(geminiAnswer(t, `[{"id":"x","title":"Tarea","priority":"Baja","subtasks":[]}]`))
	}))
	defer srv.Close()

	tasks, err := newClient(srv).Organize(context.Background(), "una tarea")
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
	assert.Equal(t, int32(2), hits.Load())
}

func TestOrganize_ClientErrorIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`))
	}))
	defer srv.Close()

	_, err := newClient(srv).Organize(context.Background(), "algo")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOrganizeFailed))
	assert.Contains(t, err.Error(), "API key not valid")
	assert.Equal(t, int32(1), hits.Load())
}

func TestOrganize_InvalidJSONAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(geminiAnswer(t, "no es json"))
	}))
	defer srv.Close()

	_, err := newClient(srv).Organize(context.Background(), "algo")
	assert.ErrorIs(t, err, ErrOrganizeFailed)
}
