package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// FetchError reports a failed read from the daemon's REST API. It is
// non-fatal everywhere it occurs: a failed history or channel-list load
// degrades the dashboard to live-only data for the affected channel.
type FetchError struct {
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("fetch %s: status %d", e.Endpoint, e.StatusCode)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Client is a read-only client for the spacebot daemon's REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client with the default timeout
func NewClient(baseURL string) *Client {
	return NewClientWithTimeout(baseURL, 30*time.Second)
}

// NewClientWithTimeout creates a new API client with a custom timeout
func NewClientWithTimeout(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// BaseURL returns the daemon endpoint this client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Status fetches the daemon's liveness report
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var status StatusResponse
	if err := c.getJSON(ctx, "/api/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Channels fetches the current channel list
func (c *Client) Channels(ctx context.Context) ([]Channel, error) {
	var resp ChannelsResponse
	if err := c.getJSON(ctx, "/api/channels", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Channels, nil
}

// Messages fetches the most recent limit persisted messages for a channel,
// ordered ascending by creation time (the daemon returns the tail of the
// log, oldest first). The call is stateless; invoking it at most once per
// channel lifetime is the caller's responsibility.
func (c *Client) Messages(ctx context.Context, channelID string, limit int) ([]Message, error) {
	query := url.Values{}
	query.Set("channel_id", channelID)
	query.Set("limit", strconv.Itoa(limit))

	var resp MessagesResponse
	if err := c.getJSON(ctx, "/api/channels/messages", query, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// getJSON issues a GET and decodes the JSON response body into out
func (c *Client) getJSON(ctx context.Context, endpoint string, query url.Values, out interface{}) error {
	reqURL := c.baseURL + endpoint
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return &FetchError{Endpoint: endpoint, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &FetchError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &FetchError{Endpoint: endpoint, StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &FetchError{Endpoint: endpoint, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	return nil
}
