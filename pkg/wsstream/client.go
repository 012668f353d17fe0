package wsstream

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/haivivi/wsstream/pkg/retry"
)

const (
	// DefaultRetryAttempts is the number of connection attempts, including
	// the first one.
	DefaultRetryAttempts = 20

	// DefaultRetryDelay is the pause between two connection attempts.
	DefaultRetryDelay = 500 * time.Millisecond

	// DefaultConnectTimeout bounds a single connection attempt.
	DefaultConnectTimeout = 8 * time.Second

	// DefaultKeepaliveInterval is how often the sender pings an idle
	// connection.
	DefaultKeepaliveInterval = 15 * time.Second

	// DefaultIdleTimeout is how long the receiver waits for an inbound frame
	// before ending the result sequence.
	DefaultIdleTimeout = 30 * time.Second

	// DefaultWriteTimeout bounds a single frame write.
	DefaultWriteTimeout = 10 * time.Second
)

// Dialer opens WebSocket connections. *websocket.Dialer implements it.
type Dialer interface {
	DialContext(ctx context.Context, urlStr string, requestHeader http.Header) (*websocket.Conn, *http.Response, error)
}

// Client holds the endpoint and request headers used for every session, and
// every dial attempt within a session.
type Client struct {
	config *clientConfig
}

type clientConfig struct {
	endpoint     string
	header       http.Header
	dialer       Dialer
	retry        retry.Policy
	keepalive    time.Duration
	idleTimeout  time.Duration
	writeTimeout time.Duration
	logger       *slog.Logger
}

// Option configures the Client.
type Option func(*clientConfig)

// NewClient creates a client for the given ws:// or wss:// endpoint.
// http:// and https:// are accepted and mapped to their WebSocket schemes.
// The endpoint is validated when a stream is opened.
func NewClient(endpoint string, opts ...Option) *Client {
	cfg := &clientConfig{
		endpoint: endpoint,
		header:   http.Header{},
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: DefaultConnectTimeout,
		},
		retry: retry.Policy{
			MaxAttempts:    DefaultRetryAttempts,
			Delay:          DefaultRetryDelay,
			AttemptTimeout: DefaultConnectTimeout,
		},
		keepalive:    DefaultKeepaliveInterval,
		idleTimeout:  DefaultIdleTimeout,
		writeTimeout: DefaultWriteTimeout,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	return &Client{config: cfg}
}

// WithHeader adds a request header sent with the upgrade request.
func WithHeader(key, value string) Option {
	return func(c *clientConfig) {
		c.header.Add(key, value)
	}
}

// WithHeaders merges h into the upgrade request headers.
func WithHeaders(h http.Header) Option {
	return func(c *clientConfig) {
		for k, vs := range h {
			for _, v := range vs {
				c.header.Add(k, v)
			}
		}
	}
}

// WithDialer replaces the default gorilla dialer.
func WithDialer(d Dialer) Option {
	return func(c *clientConfig) {
		c.dialer = d
	}
}

// WithRetryPolicy overrides the connection retry policy.
func WithRetryPolicy(p retry.Policy) Option {
	return func(c *clientConfig) {
		c.retry = p
	}
}

// WithKeepaliveInterval sets the ping interval of the sender.
func WithKeepaliveInterval(d time.Duration) Option {
	return func(c *clientConfig) {
		c.keepalive = d
	}
}

// WithIdleTimeout sets how long the receiver waits for inbound frames.
func WithIdleTimeout(d time.Duration) Option {
	return func(c *clientConfig) {
		c.idleTimeout = d
	}
}

// WithWriteTimeout sets the deadline applied to every frame write.
func WithWriteTimeout(d time.Duration) Option {
	return func(c *clientConfig) {
		c.writeTimeout = d
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *clientConfig) {
		c.logger = l
	}
}

// Endpoint returns the endpoint the client was created with.
func (c *Client) Endpoint() string {
	return c.config.endpoint
}

// Header returns a copy of the upgrade request headers.
func (c *Client) Header() http.Header {
	return c.config.header.Clone()
}
