// Package organizer turns a free-form transcription into structured tasks
// using the Gemini generateContent API.
package organizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"focusflow/internal/ids"
	"focusflow/internal/logging"
	"focusflow/internal/models"

	"github.com/sirupsen/logrus"
)

const (
	geminiBaseURL      = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel       = "gemini-2.5-pro"
	geminiMaxRetries   = 3
	geminiInitialDelay = 1 * time.Second
	thinkingBudget     = 32768

	createdAtLayout = "2006-01-02T15:04:05.000Z07:00"
)

const systemInstruction = `Eres un asistente de funciones ejecutivas de clase mundial especializado en ayudar a personas con TDAH. Tu tarea es tomar un flujo de conciencia desorganizado y convertirlo en una lista de tareas estructurada, priorizada y procesable. No omitas ningún detalle. Identifica las tareas principales, divídelas en subtareas más pequeñas y manejables si es necesario, y asigna un nivel de prioridad (Alta, Media, Baja) a cada tarea principal. Genera IDs únicos para cada tarea y subtarea. El resultado DEBE ser un JSON que se ajuste al esquema proporcionado.`

var (
	ErrNoAPIKey       = errors.New("gemini api key is not set")
	ErrOrganizeFailed = errors.New("failed to organize tasks, the AI model might be experiencing issues")
)

// Organizer splits a transcription into tasks.
type Organizer interface {
	Organize(ctx context.Context, transcription string) ([]models.Task, error)
}

// GeminiClient calls generateContent with a fixed response schema.
type GeminiClient struct {
	apiKey       string
	model        string
	baseURL      string
	client       *http.Client
	initialDelay time.Duration
	now          func() time.Time
	log          logrus.FieldLogger
}

type Option func(*GeminiClient)

func WithModel(model string) Option {
	return func(c *GeminiClient) {
		if model != "" {
			c.model = model
		}
	}
}

// WithBaseURL points the client at another endpoint, e.g. a test server.
func WithBaseURL(u string) Option {
	return func(c *GeminiClient) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *GeminiClient) { c.client = hc }
}

// WithRetryDelay sets the first backoff delay; later ones double.
func WithRetryDelay(d time.Duration) Option {
	return func(c *GeminiClient) { c.initialDelay = d }
}

// WithClock sets the clock used to stamp createdAt.
func WithClock(now func() time.Time) Option {
	return func(c *GeminiClient) { c.now = now }
}

func NewGeminiClient(apiKey string, opts ...Option) *GeminiClient {
	c := &GeminiClient{
		apiKey:       apiKey,
		model:        DefaultModel,
		baseURL:      geminiBaseURL,
		client:       &http.Client{Timeout: 5 * time.Minute},
		initialDelay: geminiInitialDelay,
		now:          time.Now,
		log:          logging.Logger.WithField("component", "organizer"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	SystemInstruction content          `json:"systemInstruction"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type generationConfig struct {
	ResponseMimeType string         `json:"responseMimeType"`
	ResponseSchema   map[string]any `json:"responseSchema"`
	ThinkingConfig   struct {
		ThinkingBudget int `json:"thinkingBudget"`
	} `json:"thinkingConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

type geminiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// responseSchema is an array of tasks, each with subtasks.
var responseSchema = map[string]any{
	"type": "ARRAY",
	"items": map[string]any{
		"type": "OBJECT",
		"properties": map[string]any{
			"id":    map[string]any{"type": "STRING", "description": "A unique identifier for the task, like a UUID."},
			"title": map[string]any{"type": "STRING", "description": "A concise title for the main task."},
			"priority": map[string]any{
				"type":        "STRING",
				"enum":        []string{"Alta", "Media", "Baja"},
				"description": "The priority level of the task.",
			},
			"details": map[string]any{"type": "STRING", "description": "Optional additional details or context for the task."},
			"subtasks": map[string]any{
				"type":        "ARRAY",
				"description": "A list of smaller, actionable steps to complete the main task.",
				"items": map[string]any{
					"type": "OBJECT",
					"properties": map[string]any{
						"id":   map[string]any{"type": "STRING", "description": "A unique identifier for the subtask."},
						"text": map[string]any{"type": "STRING", "description": "The description of the subtask."},
					},
					"required": []string{"id", "text"},
				},
			},
		},
		"required": []string{"id", "title", "priority", "subtasks"},
	},
}

// Organize sends the transcription to Gemini and returns normalized tasks.
// A blank transcription returns no tasks without calling the API.
func (c *GeminiClient) Organize(ctx context.Context, transcription string) ([]models.Task, error) {
	if strings.TrimSpace(transcription) == "" {
		return []models.Task{}, nil
	}
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	req := generateRequest{
		SystemInstruction: content{Parts: []part{{Text: systemInstruction}}},
		Contents:          []content{{Role: "user", Parts: []part{{Text: transcription}}}},
	}
	req.GenerationConfig.ResponseMimeType = "application/json"
	req.GenerationConfig.ResponseSchema = responseSchema
	req.GenerationConfig.ThinkingConfig.ThinkingBudget = thinkingBudget

	text, err := c.generate(ctx, req)
	if err != nil {
		c.log.WithError(err).Error("error organizing tasks with gemini")
		return nil, fmt.Errorf("%w: %w", ErrOrganizeFailed, err)
	}

	var raw []rawTask
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		c.log.WithError(err).Error("gemini returned invalid JSON")
		return nil, fmt.Errorf("%w: invalid response: %w", ErrOrganizeFailed, err)
	}
	return normalize(raw, c.now()), nil
}

func (c *GeminiClient) generate(ctx context.Context, req generateRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)

	var lastErr error
	for attempt := 0; attempt < geminiMaxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(math.Pow(2, float64(attempt-1))) * c.initialDelay
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		text, retry, err := c.do(ctx, endpoint, body)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !retry {
			return "", err
		}
		c.log.WithError(err).WithField("attempt", attempt+1).Warn("gemini request failed, retrying")
	}
	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}

// do performs one request. retry reports whether the failure is transient.
func (c *GeminiClient) do(ctx context.Context, endpoint string, body []byte) (text string, retry bool, err error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", false, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", ctx.Err() == nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr geminiError
		msg := string(respBody)
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		transient := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return "", transient, fmt.Errorf("gemini API error (status %d): %s", resp.StatusCode, msg)
	}

	var gr generateResponse
	if err := json.Unmarshal(respBody, &gr); err != nil {
		return "", false, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(gr.Candidates) == 0 {
		return "", false, errors.New("no candidates returned")
	}
	var sb strings.Builder
	for _, p := range gr.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), false, nil
}

type rawSubtask struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type rawTask struct {
	ID       string       `json:"id"`
	Title    string       `json:"title"`
	Priority string       `json:"priority"`
	Details  string       `json:"details"`
	Subtasks []rawSubtask `json:"subtasks"`
}

// normalize turns model output into tasks ready to be added: every task and
// subtask gets a fresh id and completed=false, createdAt is stamped,
// unknown priorities become Media, and blank titles or subtasks are dropped.
// The model's own ids are ignored since they are only unique within one answer.
func normalize(raw []rawTask, now time.Time) []models.Task {
	stamp := now.UTC().Format(createdAtLayout)
	tasks := make([]models.Task, 0, len(raw))
	for _, r := range raw {
		title := strings.TrimSpace(r.Title)
		if title == "" {
			continue
		}
		priority := models.Priority(strings.TrimSpace(r.Priority))
		if !priority.Valid() {
			priority = models.PriorityMedium
		}

		subs := make([]models.Subtask, 0, len(r.Subtasks))
		for _, s := range r.Subtasks {
			text := strings.TrimSpace(s.Text)
			if text == "" {
				continue
			}
			subs = append(subs, models.Subtask{ID: ids.NewSubtaskID(), Text: text})
		}

		tasks = append(tasks, models.Task{
			ID:        ids.NewTaskID(),
			Title:     title,
			Priority:  priority,
			Details:   strings.TrimSpace(r.Details),
			Subtasks:  subs,
			CreatedAt: stamp,
		})
	}
	return tasks
}
