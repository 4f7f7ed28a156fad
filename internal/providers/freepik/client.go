package freepik

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

	"github.com/rs/zerolog"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("freepik: api key is required")

// ErrTaskNotFound is returned by TaskStatus when the backend answers 404.
var ErrTaskNotFound = errors.New("freepik: task not found")

const (
	defaultBaseURL = "https://api.freepik.com/v1/ai/gemini-2-5-flash-image-preview"
	apiKeyHeader   = "x-freepik-api-key"
	maxErrorBody   = 2048
)

// StatusError reports a non-2xx answer other than 404.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("freepik: status %d", e.Code)
	}
	return fmt.Sprintf("freepik: status %d: %s", e.Code, e.Body)
}

// Options configures the Freepik client.
type Options struct {
	APIKey         string
	BaseURL        string
	HTTPClient     *http.Client
	Logger         *zerolog.Logger
	RequestTimeout time.Duration
}

// Client talks to the Freepik image generation task API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// Size is the requested output size.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// CreateTaskRequest is the body of a task creation call.
type CreateTaskRequest struct {
	Prompt          string   `json:"prompt"`
	ReferenceImages []string `json:"reference_images"`
	Size            Size     `json:"size"`
}

// TaskState is the decoded body of a status query. Generated is left raw; its
// shape varies and is interpreted by the result extractor.
type TaskState struct {
	TaskID    string          `json:"task_id"`
	Status    string          `json:"status"`
	Generated json.RawMessage `json:"generated"`
}

type envelope struct {
	Data TaskState `json:"data"`
}

// NewClient constructs a client with defaults for unset options.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// CreateTask submits a generation job and returns the backend task id.
func (c *Client) CreateTask(ctx context.Context, req CreateTaskRequest) (string, error) {
	if !c.HasCredentials() {
		return "", ErrMissingAPIKey
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return "", errors.New("freepik: prompt is required")
	}
	if req.ReferenceImages == nil {
		req.ReferenceImages = []string{}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("freepik: encode request: %w", err)
	}

	raw, err := c.do(ctx, http.MethodPost, c.baseURL, body)
	if err != nil {
		return "", err
	}
	var decoded envelope
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("freepik: decode create response: %w", err)
	}
	taskID := strings.TrimSpace(decoded.Data.TaskID)
	if taskID == "" {
		c.logger.Error().Str("body", truncate(raw)).Msg("freepik: create response without task id")
		return "", errors.New("freepik: response missing task id")
	}
	c.logger.Debug().Str("task_id", taskID).Msg("freepik: task created")
	return taskID, nil
}

// TaskStatus fetches the current state of a task.
func (c *Client) TaskStatus(ctx context.Context, taskID string) (*TaskState, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIKey
	}
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return nil, errors.New("freepik: task id is required")
	}
	raw, err := c.do(ctx, http.MethodGet, c.baseURL+"/"+url.PathEscape(taskID), nil)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
		}
		return nil, err
	}
	var decoded envelope
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("freepik: decode status response: %w", err)
	}
	state := decoded.Data
	if state.TaskID == "" {
		state.TaskID = taskID
	}
	return &state, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("freepik: build request: %w", err)
	}
	httpReq.Header.Set(apiKeyHeader, c.apiKey)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("freepik: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("freepik: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Body: truncate(raw)}
	}
	return raw, nil
}

func truncate(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > maxErrorBody {
		return s[:maxErrorBody]
	}
	return s
}
