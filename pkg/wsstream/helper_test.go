package wsstream

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/haivivi/wsstream/pkg/retry"
)

// textCodec sends chunks as binary frames, "END" as the end marker, and
// yields every text frame except "skip".
type textCodec struct{}

func (textCodec) ToInput(chunk []byte) string { return string(chunk) }

func (textCodec) ToMessage(in string) Frame {
	if in == "" {
		return Text("END")
	}
	return Binary([]byte(in))
}

func (textCodec) FromMessage(f Frame) (string, bool) {
	s := string(f.Data)
	return s, s != "skip"
}

type serverEvent struct {
	Kind string
	Data string
}

func (e serverEvent) String() string {
	if e.Data == "" {
		return e.Kind
	}
	return e.Kind + ":" + e.Data
}

type testServer struct {
	*httptest.Server

	mu     sync.Mutex
	events []serverEvent
	data   atomic.Int64
	done   chan struct{}
}

// newTestServer starts a server that upgrades a single connection, records
// every ping and data frame it reads, and runs script on it.
func newTestServer(t *testing.T, script func(conn *websocket.Conn, s *testServer)) *testServer {
	t.Helper()
	s := &testServer{done: make(chan struct{})}
	var once sync.Once
	upgrader := websocket.Upgrader{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		defer once.Do(func() { close(s.done) })
		conn.SetPingHandler(func(data string) error {
			s.record("ping", "")
			return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
		})
		script(conn, s)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *testServer) WSURL() string {
	return "ws" + strings.TrimPrefix(s.Server.URL, "http")
}

func (s *testServer) record(kind, data string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, serverEvent{Kind: kind, Data: data})
}

func (s *testServer) Events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, e := range s.events {
		out[i] = e.String()
	}
	return out
}

// readAll reads until the connection fails, recording data frames.
func (s *testServer) readAll(conn *websocket.Conn, onData func(mt int, data []byte)) {
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			s.record("eof", "")
			return
		}
		s.data.Add(1)
		switch mt {
		case websocket.TextMessage:
			s.record("text", string(data))
		case websocket.BinaryMessage:
			s.record("binary", string(data))
		}
		if onData != nil {
			onData(mt, data)
		}
	}
}

func (s *testServer) waitDone(t *testing.T) {
	t.Helper()
	select {
	case <-s.done:
	case <-time.After(5 * time.Second):
		t.Fatal("server connection did not finish")
	}
}

func writeText(conn *websocket.Conn, msgs ...string) {
	for _, m := range msgs {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(m))
	}
}

func writeClose(conn *websocket.Conn) {
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testClient(url string, opts ...Option) *Client {
	base := []Option{
		WithLogger(discardLogger()),
		WithRetryPolicy(retry.Policy{MaxAttempts: 3, Delay: time.Millisecond, AttemptTimeout: 2 * time.Second}),
		WithIdleTimeout(5 * time.Second),
	}
	return NewClient(url, append(base, opts...)...)
}

// flakyDialer fails the first n dials, then dials for real.
type flakyDialer struct {
	failures int
	calls    atomic.Int32
	dialer   websocket.Dialer
}

var errRefused = errors.New("connection refused")

func (d *flakyDialer) DialContext(ctx context.Context, u string, h http.Header) (*websocket.Conn, *http.Response, error) {
	n := d.calls.Add(1)
	if int(n) <= d.failures {
		return nil, nil, errRefused
	}
	return d.dialer.DialContext(ctx, u, h)
}

func chunksOf(items ...string) <-chan []byte {
	ch := make(chan []byte, len(items))
	for _, it := range items {
		ch <- []byte(it)
	}
	close(ch)
	return ch
}

func collect[T any](seq iter.Seq[T]) []T {
	var out []T
	for v := range seq {
		out = append(out, v)
	}
	return out
}
