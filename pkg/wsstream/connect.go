package wsstream

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/gorilla/websocket"

	"github.com/haivivi/wsstream/pkg/retry"
)

// requestURL validates the endpoint and normalizes its scheme.
func requestURL(endpoint string) (*url.URL, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, errors.New("missing host")
	}
	return u, nil
}

// redact strips the query and user info so credentials passed as URL
// parameters never reach the logs.
func redact(u *url.URL) string {
	r := *u
	r.User = nil
	r.RawQuery = ""
	r.Fragment = ""
	return r.String()
}

// connect dials the endpoint under the client's retry policy.
func (c *Client) connect(ctx context.Context) (*Session, error) {
	u, err := requestURL(c.config.endpoint)
	if err != nil {
		return nil, &ConnectionError{URL: c.config.endpoint, Err: err}
	}

	target := u.String()
	display := redact(u)
	header := c.config.header.Clone()
	log := c.config.logger.With("url", display)

	var status int
	conn, err := retry.Do(ctx, c.config.retry,
		func(ctx context.Context) (*websocket.Conn, error) {
			status = 0
			log.Info("ws connecting")
			conn, resp, err := c.config.dialer.DialContext(ctx, target, header)
			if resp != nil && resp.Body != nil {
				resp.Body.Close()
			}
			if err != nil {
				if resp != nil {
					status = resp.StatusCode
				}
				return nil, err
			}
			return conn, nil
		},
		retry.OnError(func(attempt int, err error) {
			log.Error("ws connect failed",
				"attempt", attempt,
				"max_attempts", c.config.retry.MaxAttempts,
				"status", status,
				"error", err,
			)
		}),
	)
	if err != nil {
		cerr := &ConnectionError{URL: display, HTTPStatus: status, Err: err}
		var rerr *retry.Error
		if errors.As(err, &rerr) {
			cerr.Attempts = rerr.Attempts
			cerr.Err = rerr.Err
		}
		return nil, cerr
	}

	return newSession(conn, c.config), nil
}
