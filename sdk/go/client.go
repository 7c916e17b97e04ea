package taskboardsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Taskboard HTTP API client.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	ActorID     string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Task represents the API task model.
type Task struct {
	ID           string   `json:"id"`
	BoardID      string   `json:"board_id"`
	ParentID     *string  `json:"parent_id,omitempty"`
	Key          string   `json:"key"`
	Summary      string   `json:"summary"`
	Description  string   `json:"description,omitempty"`
	Status       string   `json:"status"`
	Priority     string   `json:"priority"`
	Labels       []string `json:"labels,omitempty"`
	DueDate      *string  `json:"due_date,omitempty"`
	ScheduleDate *string  `json:"schedule_date,omitempty"`
	Estimation   *float64 `json:"estimation,omitempty"`
	Subtasks     []Task   `json:"subtasks,omitempty"`
	CreatedAt    string   `json:"created_at"`
	UpdatedAt    string   `json:"updated_at"`
}

type Board struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	FolderID  *string `json:"folder_id,omitempty"`
	CreatedAt string  `json:"created_at"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Type       string `json:"type"`
	BoardID    string `json:"board_id,omitempty"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json,omitempty"`
}

// Columns maps each status column to its ordered tasks.
type Columns map[string][]Task

type Group struct {
	BoardID string  `json:"board_id"`
	Label   string  `json:"label"`
	Columns Columns `json:"columns"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CreateBoard creates a board.
func (c *Client) CreateBoard(ctx context.Context, name string) (Board, error) {
	var resp Board
	err := c.do(ctx, http.MethodPost, "boards", map[string]any{"name": name}, &resp)
	return resp, err
}

// Boards lists all boards.
func (c *Client) Boards(ctx context.Context) ([]Board, error) {
	var resp []Board
	err := c.do(ctx, http.MethodGet, "boards", nil, &resp)
	return resp, err
}

// CreateTask creates a top-level task on a board.
func (c *Client) CreateTask(ctx context.Context, boardID, summary string) (Task, error) {
	endpoint := fmt.Sprintf("boards/%s/tasks", url.PathEscape(boardID))
	var resp Task
	err := c.do(ctx, http.MethodPost, endpoint, map[string]any{"summary": summary}, &resp)
	return resp, err
}

// Tasks returns a board's task trees.
func (c *Client) Tasks(ctx context.Context, boardID string) ([]Task, error) {
	endpoint := fmt.Sprintf("boards/%s/tasks", url.PathEscape(boardID))
	var resp []Task
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// BoardColumns returns a board's column view.
func (c *Client) BoardColumns(ctx context.Context, boardID string) (Columns, error) {
	endpoint := fmt.Sprintf("boards/%s/columns", url.PathEscape(boardID))
	var resp Columns
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// TaskByKey resolves a task by its human-readable key.
func (c *Client) TaskByKey(ctx context.Context, key string) (Task, error) {
	var resp struct {
		Task Task `json:"task"`
	}
	err := c.do(ctx, http.MethodGet, "tasks/key/"+url.PathEscape(key), nil, &resp)
	return resp.Task, err
}

// UpdateTask patches a task. Fields absent from the patch are untouched.
func (c *Client) UpdateTask(ctx context.Context, taskID string, patch map[string]any) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPatch, "tasks/"+url.PathEscape(taskID), patch, &resp)
	return resp, err
}

// MoveTask moves a task to another status column.
func (c *Client) MoveTask(ctx context.Context, taskID, status string) (Task, error) {
	endpoint := fmt.Sprintf("tasks/%s/move", url.PathEscape(taskID))
	var resp Task
	err := c.do(ctx, http.MethodPost, endpoint, map[string]any{"status": status}, &resp)
	return resp, err
}

// UpdateTaskStatus satisfies the status store contract used by optimistic
// board reconciliation.
func (c *Client) UpdateTaskStatus(ctx context.Context, taskID string, status string) error {
	_, err := c.MoveTask(ctx, taskID, status)
	return err
}

// Reorder rewrites the order of one board column.
func (c *Client) Reorder(ctx context.Context, boardID, status string, orderedIDs []string) error {
	endpoint := fmt.Sprintf("boards/%s/tasks/reorder", url.PathEscape(boardID))
	return c.do(ctx, http.MethodPost, endpoint, map[string]any{
		"status":      status,
		"ordered_ids": orderedIDs,
	}, nil)
}

// DeleteTask removes a task and its subtree.
func (c *Client) DeleteTask(ctx context.Context, taskID string) error {
	return c.do(ctx, http.MethodDelete, "tasks/"+url.PathEscape(taskID), nil, nil)
}

// Schedule returns the cross-board view for a day (YYYY-MM-DD).
func (c *Client) Schedule(ctx context.Context, day string) ([]Group, error) {
	var resp []Group
	err := c.do(ctx, http.MethodGet, "schedule/"+url.PathEscape(day), nil, &resp)
	return resp, err
}

// Events returns recent events.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	endpoint := "events"
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	var resp []Event
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/v1/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	case c.ActorID != "":
		req.Header.Set("X-Actor-Id", c.ActorID)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
