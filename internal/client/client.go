// Package client talks to a running chronoscope server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/lazypower/chronoscope/internal/artifact"
	"github.com/lazypower/chronoscope/internal/engine"
)

const (
	defaultServerURL = "http://127.0.0.1:37778"
	httpTimeout      = 60 * time.Second
)

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Kind    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("status %d: %s: %s", e.Status, e.Kind, e.Message)
}

// Echo is a recorded echo as the server reports it.
type Echo struct {
	Meta   artifact.Metadata `json:"meta"`
	Digest string            `json:"digest"`
	Links  map[string]string `json:"links"`
}

// Client talks to the chronoscope HTTP API.
type Client struct {
	http      *http.Client
	serverURL string
}

// New creates a client for serverURL. An empty URL falls back to
// CHRONOSCOPE_URL, then to http://127.0.0.1:37778.
func New(serverURL string) *Client {
	if serverURL == "" {
		serverURL = os.Getenv("CHRONOSCOPE_URL")
	}
	if serverURL == "" {
		serverURL = defaultServerURL
	}
	return &Client{
		http:      &http.Client{Timeout: httpTimeout},
		serverURL: strings.TrimRight(serverURL, "/"),
	}
}

// URL returns the server base URL.
func (c *Client) URL() string { return c.serverURL }

// Synthesize asks the server to synthesize and record req.
func (c *Client) Synthesize(ctx context.Context, req engine.Request) (*Echo, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	data, err := c.do(ctx, http.MethodPost, "/api/echoes", body)
	if err != nil {
		return nil, err
	}
	var e Echo
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode echo: %w", err)
	}
	return &e, nil
}

// Get returns a recorded echo by ID.
func (c *Client) Get(ctx context.Context, id string) (*Echo, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/echoes/"+id, nil)
	if err != nil {
		return nil, err
	}
	var e Echo
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode echo: %w", err)
	}
	return &e, nil
}

// Download writes the output behind link (an entry of Echo.Links) to w.
func (c *Client) Download(ctx context.Context, link string, w io.Writer) error {
	data, err := c.do(ctx, http.MethodGet, link, nil)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Healthy checks if the server is reachable.
func (c *Client) Healthy(ctx context.Context) bool {
	_, err := c.do(ctx, http.MethodGet, "/api/health", nil)
	return err == nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.serverURL+path, rd)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response %s: %w", path, err)
	}
	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(data))}
		var e struct {
			Error string `json:"error"`
			Kind  string `json:"kind"`
		}
		if json.Unmarshal(data, &e) == nil && e.Kind != "" {
			apiErr.Kind, apiErr.Message = e.Kind, e.Error
		}
		return nil, fmt.Errorf("%s %s: %w", method, path, apiErr)
	}
	return data, nil
}
