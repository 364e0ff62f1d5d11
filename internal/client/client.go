// Package client talks to a zynk node over HTTP.
package client

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

	"github.com/MikhailWahib/zynk/internal/server"
)

const defaultTimeout = 10 * time.Second

// ErrNotLeader is returned when the node refuses writes because it does
// not hold leadership.
var ErrNotLeader = errors.New("client: node is not the leader")

// StatusError is returned for any other non-2xx response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("client: server returned %d: %s", e.Code, e.Message)
}

// Client is safe for concurrent use.
type Client struct {
	base string
	http *http.Client
}

// New returns a client for addr, either host:port or a full http URL.
func New(addr string) *Client {
	if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
		addr = "http://" + addr
	}
	return &Client{
		base: strings.TrimRight(addr, "/"),
		http: &http.Client{Timeout: defaultTimeout},
	}
}

func (c *Client) keyURL(key []byte) string {
	return c.base + "/kv/" + url.PathEscape(string(key))
}

func (c *Client) do(ctx context.Context, method, target string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("client: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("client: read response: %w", err)
	}

	if resp.StatusCode == http.StatusServiceUnavailable {
		return ErrNotLeader
	}
	if resp.StatusCode/100 != 2 {
		var e server.ErrorResponse
		_ = json.Unmarshal(data, &e)
		return &StatusError{Code: resp.StatusCode, Message: e.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("client: decode response: %w", err)
	}
	return nil
}

// Put stores value under key.
func (c *Client) Put(ctx context.Context, key, value []byte) error {
	var resp server.StatusResponse
	return c.do(ctx, http.MethodPut, c.keyURL(key), value, &resp)
}

// Get fetches key. A missing key is (nil, false, nil).
func (c *Client) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	var resp server.GetResponse
	if err := c.do(ctx, http.MethodGet, c.keyURL(key), nil, &resp); err != nil {
		return nil, false, err
	}
	if !resp.Found {
		return nil, false, nil
	}
	if resp.Value == nil {
		resp.Value = []byte{}
	}
	return resp.Value, true, nil
}

// Delete removes key and returns the server's removed flag.
func (c *Client) Delete(ctx context.Context, key []byte) (bool, error) {
	var resp server.DeleteResponse
	if err := c.do(ctx, http.MethodDelete, c.keyURL(key), nil, &resp); err != nil {
		return false, err
	}
	return resp.Removed, nil
}
