package dataforseo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Default base URL for the DataForSEO v3 API.
const defaultBaseURL = "https://api.dataforseo.com"

// StatusOK is the provider's success sentinel. Envelope status codes in the
// 20xxx family indicate success; 20100 specifically means the task is queued.
const (
	StatusOK     = 20000
	StatusQueued = 20100
)

// Client defines the DataForSEO API operations. All endpoints share one
// envelope shape; callers decode Task.Result into endpoint-specific types.
type Client interface {
	Post(ctx context.Context, endpoint string, body any) (*Response, error)
	Get(ctx context.Context, endpoint string) (*Response, error)
}

// Response is the provider's envelope, carried on every endpoint.
type Response struct {
	Version       string  `json:"version"`
	StatusCode    int     `json:"status_code"`
	StatusMessage string  `json:"status_message"`
	Cost          float64 `json:"cost"`
	TasksCount    int     `json:"tasks_count"`
	TasksError    int     `json:"tasks_error"`
	Tasks         []Task  `json:"tasks"`
}

// Task is one sub-task inside the envelope.
type Task struct {
	ID            string          `json:"id"`
	StatusCode    int             `json:"status_code"`
	StatusMessage string          `json:"status_message"`
	Cost          float64         `json:"cost"`
	Result        json.RawMessage `json:"result"`
}

// OK reports whether the task status is in the success family.
func (t *Task) OK() bool {
	return t.StatusCode >= 20000 && t.StatusCode < 30000
}

// APIError is returned when the transport yields a non-2xx status or the
// provider's envelope status code is not the success sentinel.
type APIError struct {
	HTTPStatus int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("dataforseo: status %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("dataforseo: HTTP %d: %s", e.HTTPStatus, e.Message)
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithBaseURL overrides the default base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimSuffix(url, "/")
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// httpClient implements Client using net/http with Basic auth.
type httpClient struct {
	login    string
	password string
	baseURL  string
	http     *http.Client
}

// NewClient creates a new DataForSEO client.
func NewClient(login, password string, opts ...Option) Client {
	c := &httpClient{
		login:    login,
		password: password,
		baseURL:  defaultBaseURL,
		http: &http.Client{
			Timeout: 90 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// normalizeEndpoint ensures exactly one "/v3/" prefix on the path.
func normalizeEndpoint(endpoint string) string {
	p := strings.TrimPrefix(endpoint, "/")
	p = strings.TrimPrefix(p, "v3/")
	return "/v3/" + p
}

func (c *httpClient) Post(ctx context.Context, endpoint string, body any) (*Response, error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, eris.Wrap(err, "dataforseo: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+normalizeEndpoint(endpoint), bytes.NewReader(buf))
	if err != nil {
		return nil, eris.Wrap(err, "dataforseo: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.login, c.password)

	return c.do(req)
}

func (c *httpClient) Get(ctx context.Context, endpoint string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+normalizeEndpoint(endpoint), nil)
	if err != nil {
		return nil, eris.Wrap(err, "dataforseo: create request")
	}
	req.SetBasicAuth(c.login, c.password)

	return c.do(req)
}

func (c *httpClient) do(req *http.Request) (*Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "dataforseo: execute request")
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "dataforseo: read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{
			HTTPStatus: resp.StatusCode,
			Message:    string(data),
		}
	}

	var env Response
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, eris.Wrap(err, "dataforseo: decode envelope")
	}

	if env.StatusCode != StatusOK {
		return nil, &APIError{
			HTTPStatus: resp.StatusCode,
			Code:       env.StatusCode,
			Message:    env.StatusMessage,
		}
	}

	return &env, nil
}
