package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"focusflow/internal/logging"
	"focusflow/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// DefaultBaseURL is where the task server listens by default.
const DefaultBaseURL = "http://localhost:3001/api"

// ErrNotFound is returned when the server answers 404 for a task.
var ErrNotFound = errors.New("task not found")

// StatusError is a non-2xx answer from the server.
type StatusError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: server returned %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: server returned %d", e.Op, e.StatusCode)
}

// BulkResult is the per-task outcome count of BulkCreateTasks.
type BulkResult struct {
	Success int `json:"success"`
	Errors  int `json:"errors"`
}

// Client talks to the remote task service. CRUD calls go through a circuit
// breaker; Health does not, so a probe always reaches the network.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	log     logrus.FieldLogger
}

type Option func(*Client)

// WithToken sends "Authorization: Bearer <token>" on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds each request, including reading the body.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithBreakerSettings replaces the default circuit breaker settings.
func WithBreakerSettings(st gobreaker.Settings) Option {
	return func(c *Client) { c.breaker = gobreaker.NewCircuitBreaker(st) }
}

// New builds a client for baseURL, e.g. "http://localhost:3001/api".
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	log := logging.Logger.WithField("component", "apiclient")
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "task-service",
		MaxRequests: 1,
		Timeout:     5 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		IsSuccessful: func(err error) bool {
			// a 4xx is the caller's problem, not a sign the server is down
			var se *StatusError
			return err == nil || errors.Is(err, ErrNotFound) || (errors.As(err, &se) && se.StatusCode < 500)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{"breaker": name, "from": from.String(), "to": to.String()}).Warn("circuit breaker state changed")
		},
	})
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BreakerState exposes the circuit breaker state for status reporting.
func (c *Client) BreakerState() gobreaker.State {
	return c.breaker.State()
}

// Health reports whether GET /health answers 2xx. Transport errors count as unreachable.
func (c *Client) Health(ctx context.Context) bool {
	req, err := c.newRequest(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.WithError(err).Debug("health check failed")
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// ListTasks fetches every task with its subtasks.
func (c *Client) ListTasks(ctx context.Context) ([]models.Task, error) {
	var tasks []models.Task
	if err := c.call(ctx, "list tasks", http.MethodGet, "/tasks", nil, &tasks); err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	for i := range tasks {
		tasks[i].Normalize()
	}
	return tasks, nil
}

// GetTask fetches one task, or ErrNotFound.
func (c *Client) GetTask(ctx context.Context, id string) (models.Task, error) {
	var task models.Task
	err := c.call(ctx, "get task", http.MethodGet, "/tasks/"+url.PathEscape(id), nil, &task)
	task.Normalize()
	return task, err
}

// CreateTask stores a client-built task (the client always supplies the id).
func (c *Client) CreateTask(ctx context.Context, task models.Task) (models.Task, error) {
	task.Normalize()
	var created models.Task
	err := c.call(ctx, "create task", http.MethodPost, "/tasks", task, &created)
	created.Normalize()
	return created, err
}

// taskUpdate is the PUT body. Unlike models.Task it always carries details
// and targetDate, so clearing them reaches the server.
type taskUpdate struct {
	Title      string           `json:"title"`
	Priority   models.Priority  `json:"priority"`
	Details    string           `json:"details"`
	Completed  bool             `json:"completed"`
	TargetDate string           `json:"targetDate"`
	Subtasks   []models.Subtask `json:"subtasks"`
}

// UpdateTask replaces the task's fields and its whole subtask list.
func (c *Client) UpdateTask(ctx context.Context, id string, task models.Task) (models.Task, error) {
	task.Normalize()
	body := taskUpdate{
		Title:      task.Title,
		Priority:   task.Priority,
		Details:    task.Details,
		Completed:  task.Completed,
		TargetDate: task.TargetDate,
		Subtasks:   task.Subtasks,
	}
	var updated models.Task
	err := c.call(ctx, "update task", http.MethodPut, "/tasks/"+url.PathEscape(id), body, &updated)
	updated.Normalize()
	return updated, err
}

// DeleteTask removes a task, or returns ErrNotFound.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.call(ctx, "delete task", http.MethodDelete, "/tasks/"+url.PathEscape(id), nil, nil)
}

// BulkCreateTasks upserts tasks by id. Each task succeeds or fails on its own.
func (c *Client) BulkCreateTasks(ctx context.Context, tasks []models.Task) (BulkResult, error) {
	if tasks == nil {
		tasks = []models.Task{}
	}
	var res BulkResult
	err := c.call(ctx, "bulk create tasks", http.MethodPost, "/tasks/bulk", tasks, &res)
	return res, err
}

func (c *Client) call(ctx context.Context, op, method, path string, body, out any) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.do(ctx, op, method, path, body, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return err
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var payload io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		payload = bytes.NewReader(b)
	}

	req, err := c.newRequest(ctx, method, path, payload)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.WithError(err).WithField("op", op).Error("request failed")
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		se := &StatusError{Op: op, StatusCode: resp.StatusCode}
		var apiErr struct {
			Error string `json:"error"`
		}
		if b, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); err == nil && json.Unmarshal(b, &apiErr) == nil {
			se.Message = apiErr.Error
		}
		c.log.WithFields(logrus.Fields{"op": op, "status": resp.StatusCode}).Error("server rejected request")
		return se
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}
