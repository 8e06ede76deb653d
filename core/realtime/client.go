// Package realtime is a websocket client for the OpenAI Realtime API.
//
// Every message that goes over the socket, in either direction, is reported
// to the event callback in the order it was sent or received. Server events
// are delivered on the single reader goroutine.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultURL   = "wss://api.openai.com/v1/realtime"
	DefaultModel = "gpt-4o-realtime-preview-2024-10-01"

	defaultReadTimeout  = 120 * time.Second
	defaultPingInterval = 30 * time.Second
	writeTimeout        = 10 * time.Second
)

type Client struct {
	apiKey       string
	relayURL     string
	model        string
	dialer       *websocket.Dialer
	readTimeout  time.Duration
	pingInterval time.Duration

	onEvent func(Event)
	onError func(error)

	mu     sync.Mutex
	conn   *websocket.Conn
	cancel context.CancelFunc
	closed bool

	writeMu sync.Mutex
}

type ClientOption func(*Client)

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		model:        DefaultModel,
		dialer:       &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		readTimeout:  defaultReadTimeout,
		pingInterval: defaultPingInterval,
		onEvent:      func(Event) {},
		onError:      func(error) {},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithAPIKey authenticates directly against the API. Only suitable for
// trusted environments; prefer a relay otherwise.
func WithAPIKey(apiKey string) ClientOption {
	return func(c *Client) { c.apiKey = apiKey }
}

// WithRelayURL connects to a relay server that holds the API key.
func WithRelayURL(relayURL string) ClientOption {
	return func(c *Client) { c.relayURL = relayURL }
}

func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

func WithDialer(dialer *websocket.Dialer) ClientOption {
	return func(c *Client) { c.dialer = dialer }
}

func WithKeepAlive(readTimeout, pingInterval time.Duration) ClientOption {
	return func(c *Client) {
		c.readTimeout = readTimeout
		c.pingInterval = pingInterval
	}
}

// OnEvent sets the callback receiving every client and server event. It must
// be set before Connect.
func (c *Client) OnEvent(f func(Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f == nil {
		f = func(Event) {}
	}
	c.onEvent = f
}

// OnError sets the callback receiving connection failures that were not
// caused by Disconnect.
func (c *Client) OnError(f func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f == nil {
		f = func(error) {}
	}
	c.onError = f
}

func (c *Client) Connect(ctx context.Context) (err error) {
	ctx, span := tracer.Start(ctx, "connect realtime")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to connect")
		}
		span.End()
	}()

	if c.apiKey == "" && c.relayURL == "" {
		return ErrMissingCredentials
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return ErrAlreadyConnected
	}

	endpoint, header, err := c.endpoint()
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.String("realtime.model", c.model))

	conn, resp, err := c.dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		if resp != nil {
			return &ConnectionError{
				Reason:    fmt.Sprintf("handshake failed with HTTP %d", resp.StatusCode),
				Err:       err,
				Retryable: resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests,
			}
		}
		return &ConnectionError{Reason: "dial failed", Err: err, Retryable: true}
	}

	conn.SetPingHandler(func(appData string) error {
		c.writeMu.Lock()
		defer c.writeMu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(5*time.Second))
	})
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.readTimeout))
	})

	loopCtx, cancel := context.WithCancel(context.Background())
	c.conn = conn
	c.cancel = cancel
	c.closed = false

	go c.readLoop(conn, trace.SpanContextFromContext(ctx))
	go c.keepAlive(loopCtx, conn)

	logger.Info("connected to realtime API", "model", c.model)
	return nil
}

func (c *Client) endpoint() (string, http.Header, error) {
	header := http.Header{}
	raw := c.relayURL
	if raw == "" {
		raw = DefaultURL
		header.Set("Authorization", "Bearer "+c.apiKey)
		header.Set("OpenAI-Beta", "realtime=v1")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", nil, fmt.Errorf("invalid realtime URL: %w", err)
	}
	query := u.Query()
	if query.Get("model") == "" {
		query.Set("model", c.model)
	}
	u.RawQuery = query.Encode()
	return u.String(), header, nil
}

// Disconnect closes the socket. It does not wait for the reader goroutine, so
// it is safe to call from an event callback.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	conn, cancel := c.conn, c.cancel
	c.conn, c.cancel = nil, nil
	c.closed = true
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	cancel()

	c.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()

	return conn.Close()
}

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Send writes a client event of the given type. The event is reported to the
// event callback before it is written, under the same lock as the write, so
// reports follow wire order. The callback must not call Send.
func (c *Client) Send(eventType string, fields map[string]any) error {
	c.mu.Lock()
	conn, onEvent := c.conn, c.onEvent
	c.mu.Unlock()

	if conn == nil {
		return ErrNotConnected
	}

	message := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		message[k] = v
	}
	message["event_id"] = "evt_" + uuid.NewString()
	message["type"] = eventType

	raw, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", eventType, err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	onEvent(Event{Time: time.Now(), Source: SourceClient, Type: eventType, Raw: raw})
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		return &ConnectionError{Reason: "send " + eventType, Err: err, Retryable: true}
	}
	return nil
}

func (c *Client) readLoop(conn *websocket.Conn, parent trace.SpanContext) {
	for {
		_ = conn.SetReadDeadline(time.Now().Add(c.readTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			c.fail(conn, parent, err)
			return
		}

		ev, err := newEvent(SourceServer, message)
		if err != nil {
			logger.Warn("dropping malformed server event", "error", err)
			continue
		}

		c.mu.Lock()
		onEvent := c.onEvent
		c.mu.Unlock()
		onEvent(ev)
	}
}

func (c *Client) fail(conn *websocket.Conn, parent trace.SpanContext, err error) {
	c.mu.Lock()
	stale := c.closed || c.conn != conn
	if !stale {
		c.conn = nil
		c.closed = true
		if c.cancel != nil {
			c.cancel()
			c.cancel = nil
		}
	}
	onError := c.onError
	c.mu.Unlock()

	_ = conn.Close()
	if stale {
		return
	}

	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		err = errors.Join(ErrConnectionClosed, err)
	}
	connErr := &ConnectionError{Reason: "read failed", Err: err, Retryable: true}

	_, span := tracer.Start(trace.ContextWithSpanContext(context.Background(), parent), "realtime connection lost")
	span.RecordError(connErr)
	span.SetStatus(codes.Error, "connection lost")
	span.End()

	logger.Error("realtime connection lost", "error", err)
	onError(connErr)
}

func (c *Client) keepAlive(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
			c.writeMu.Unlock()
			if err != nil {
				logger.Debug("keepalive ping failed", "error", err)
				return
			}
		}
	}
}
