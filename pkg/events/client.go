package events

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Marenz/spacebot-dash/pkg/logger"
)

// ConnectionError reports a dropped or failed stream connection. It is
// recovered automatically via reconnect and never surfaced as a fatal
// failure; the worst case is a gap of one reconnect delay.
type ConnectionError struct {
	Endpoint string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("stream connection to %s: %v", e.Endpoint, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Client maintains one long-lived SSE connection to the daemon's event
// stream. Frames are dispatched by event name through a handler table read
// at dispatch time, so handlers can be swapped without reconnecting. On
// failure the client schedules a single reconnect after a fixed delay and
// keeps retrying indefinitely.
type Client struct {
	endpoint       string
	reconnectDelay time.Duration
	httpClient     *http.Client
	handlers       atomic.Pointer[HandlerTable]
	connected      atomic.Bool
	log            *logger.ComponentLogger

	// Optional; invoked on every connect/disconnect transition. Set before
	// Connect and not changed afterwards.
	OnConnectionChange func(connected bool)

	mu     sync.Mutex
	cancel context.CancelFunc
	timer  *time.Timer
	closed bool
}

// NewClient creates a stream client for the given SSE endpoint
func NewClient(endpoint string, reconnectDelay time.Duration) *Client {
	return &Client{
		endpoint:       endpoint,
		reconnectDelay: reconnectDelay,
		// No overall timeout: the stream is a deliberately unbounded read
		httpClient: &http.Client{},
		log:        logger.WithComponent("stream_client"),
	}
}

// SetHandlers atomically replaces the handler table. Takes effect on the
// next dispatched frame; the live connection is not disturbed.
func (c *Client) SetHandlers(table HandlerTable) {
	c.handlers.Store(&table)
}

// Connected reports whether a stream connection is currently established
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// Connect starts the connection loop. Non-blocking; reading and dispatch
// happen on a single background goroutine, so handlers for one connection
// never run concurrently with each other.
func (c *Client) Connect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.startLocked()
}

// startLocked launches one connection attempt. Caller holds c.mu.
func (c *Client) startLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	go c.run(ctx)
}

func (c *Client) run(ctx context.Context) {
	err := c.consume(ctx)
	c.setConnected(false)

	if ctx.Err() != nil {
		// Deliberate teardown, not a drop
		return
	}

	c.log.Warn("Stream connection lost, scheduling reconnect",
		"endpoint", c.endpoint, "error", err, "delay", c.reconnectDelay)
	c.scheduleReconnect()
}

// scheduleReconnect arms a single reconnect timer unless the client was closed
func (c *Client) scheduleReconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.timer = time.AfterFunc(c.reconnectDelay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.timer = nil
		if c.closed {
			return
		}
		c.startLocked()
	})
}

// Close synchronously tears down the active connection and cancels any
// pending reconnect. Safe to call at any point, including while a
// connection attempt or reconnect delay is outstanding; no handler is
// invoked afterwards.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Client) setConnected(connected bool) {
	if c.connected.Swap(connected) != connected && c.OnConnectionChange != nil {
		c.OnConnectionChange(connected)
	}
}

// consume establishes the SSE connection and reads frames until the
// connection fails, the server closes it, or ctx is cancelled
func (c *Client) consume(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return &ConnectionError{Endpoint: c.endpoint, Err: err}
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ConnectionError{Endpoint: c.endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &ConnectionError{Endpoint: c.endpoint, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	c.setConnected(true)
	c.log.Info("Stream connected", "endpoint", c.endpoint)

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var eventName string
	var data []string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if len(data) > 0 {
				if ctx.Err() != nil {
					return &ConnectionError{Endpoint: c.endpoint, Err: ctx.Err()}
				}
				c.dispatch(eventName, strings.Join(data, "\n"))
			}
			eventName = ""
			data = nil
		case strings.HasPrefix(line, "event:"):
			eventName = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		case strings.HasPrefix(line, ":"):
			// Comment / keep-alive line
		}
	}

	if err := scanner.Err(); err != nil {
		return &ConnectionError{Endpoint: c.endpoint, Err: err}
	}
	// Server-initiated close reads as a clean EOF
	return &ConnectionError{Endpoint: c.endpoint, Err: io.EOF}
}

// dispatch parses the frame's data and invokes the registered handler.
// Parse failures degrade to a raw payload rather than dropping the event.
func (c *Client) dispatch(eventName, data string) {
	table := c.handlers.Load()
	if table == nil {
		return
	}
	handler, ok := (*table)[eventName]
	if !ok {
		c.log.Debug("No handler for event", "event", eventName)
		return
	}

	payload := Payload{Raw: data}
	decoded, err := decodePayload(eventName, data)
	if err != nil {
		c.log.Warn("Malformed event payload, delivering raw", "event", eventName, "error", err)
	} else {
		payload.Decoded = decoded
	}
	handler(payload)
}
