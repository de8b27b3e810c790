// Package apiclient talks to a running viewer over HTTP.
package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/randomizedcoder/go-demo-viewer/internal/changes"
	"github.com/randomizedcoder/go-demo-viewer/internal/gateway"
	"github.com/randomizedcoder/go-demo-viewer/internal/registry"
)

// Client calls the viewer's JSON API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a Client. runTimeout is the server's per-run bound; the
// HTTP timeout leaves headroom on top of it.
func New(baseURL string, runTimeout time.Duration) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = runTimeout + 5*time.Second

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Transport: transport,
			Timeout:   runTimeout + 10*time.Second,
		},
	}
}

// BaseURL returns the server URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Demos lists the available demos.
func (c *Client) Demos(ctx context.Context) ([]registry.Unit, error) {
	var units []registry.Unit
	if err := c.getJSON(ctx, "/api/demos", &units); err != nil {
		return nil, err
	}
	return units, nil
}

// Run executes a demo on the server. Unknown ids wrap registry.ErrNotFound.
func (c *Client) Run(ctx context.Context, id string) (gateway.Result, error) {
	var result gateway.Result
	if err := c.getJSON(ctx, "/api/run/"+url.PathEscape(id), &result); err != nil {
		return gateway.Result{}, err
	}
	return result, nil
}

// ModTime returns the modification time of a demo's source file.
func (c *Client) ModTime(ctx context.Context, id string) (changes.Record, error) {
	var record changes.Record
	if err := c.getJSON(ctx, "/api/mtime/"+url.PathEscape(id), &record); err != nil {
		return changes.Record{}, err
	}
	return record, nil
}

// Health checks the /health endpoint.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.get(ctx, "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status: %s", resp.Status)
	}
	return nil
}

// StatusError is returned for non-200 responses other than 404.
type StatusError struct {
	Code    int
	Status  string
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("bad status: %s: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("bad status: %s", e.Status)
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	return c.http.Do(req)
}

func (c *Client) getJSON(ctx context.Context, path string, dst any) error {
	resp, err := c.get(ctx, path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var payload struct {
			Error string `json:"error"`
		}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = json.Unmarshal(body, &payload)

		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %s", registry.ErrNotFound, strings.TrimPrefix(path, "/api/"))
		}
		return &StatusError{Code: resp.StatusCode, Status: resp.Status, Message: payload.Error}
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// IsNotFound reports whether err is a not-found response.
func IsNotFound(err error) bool {
	return errors.Is(err, registry.ErrNotFound)
}
