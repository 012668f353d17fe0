package wsstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haivivi/wsstream/pkg/retry"
)

func drainThenClose(conn *websocket.Conn, s *testServer) {
	s.readAll(conn, nil)
	writeClose(conn)
}

func TestStream_ConnectsOnLastAttempt(t *testing.T) {
	srv := newTestServer(t, drainThenClose)
	dialer := &flakyDialer{failures: 19}

	c := testClient(srv.WSURL(),
		WithDialer(dialer),
		WithRetryPolicy(retry.Policy{MaxAttempts: DefaultRetryAttempts, Delay: time.Millisecond, AttemptTimeout: time.Second}),
	)

	seq, err := Stream(context.Background(), c, chunksOf("a"), textCodec{})
	require.NoError(t, err)
	assert.Empty(t, collect(seq))
	assert.EqualValues(t, 20, dialer.calls.Load())
}

func TestStream_ConnectionErrorAfterAllAttempts(t *testing.T) {
	dialer := &flakyDialer{failures: 1000}
	c := testClient("ws://127.0.0.1:1/listen?token=secret",
		WithDialer(dialer),
		WithRetryPolicy(retry.Policy{MaxAttempts: DefaultRetryAttempts, Delay: time.Millisecond, AttemptTimeout: time.Second}),
	)

	seq, err := Stream(context.Background(), c, chunksOf("a"), textCodec{})
	require.Error(t, err)
	assert.Nil(t, seq)
	assert.EqualValues(t, 20, dialer.calls.Load())

	var cerr *ConnectionError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, 20, cerr.Attempts)
	assert.ErrorIs(t, err, errRefused)
	assert.Equal(t, "ws://127.0.0.1:1/listen", cerr.URL)
	assert.NotContains(t, err.Error(), "secret")
}

func TestStream_InvalidEndpointIsNotRetried(t *testing.T) {
	for _, endpoint := range []string{"ftp://example.com/x", "ws:///nohost", "://bad"} {
		t.Run(endpoint, func(t *testing.T) {
			dialer := &flakyDialer{}
			c := testClient(endpoint, WithDialer(dialer))

			_, err := Stream(context.Background(), c, chunksOf(), textCodec{})
			var cerr *ConnectionError
			require.ErrorAs(t, err, &cerr)
			assert.Zero(t, cerr.Attempts)
			assert.Zero(t, dialer.calls.Load())
		})
	}
}

func TestStream_HandshakeStatusIsReported(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no token", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := testClient("ws"+strings.TrimPrefix(srv.URL, "http"),
		WithRetryPolicy(retry.Policy{MaxAttempts: 2, Delay: time.Millisecond}),
	)

	_, err := Stream(context.Background(), c, chunksOf(), textCodec{})
	var cerr *ConnectionError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, 2, cerr.Attempts)
	assert.Equal(t, http.StatusUnauthorized, cerr.HTTPStatus)
	assert.ErrorIs(t, err, websocket.ErrBadHandshake)
}

func TestStream_HeadersAreSent(t *testing.T) {
	got := make(chan string, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got <- r.Header.Get("Authorization")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		writeClose(conn)
	}))
	defer srv.Close()

	c := testClient("http"+strings.TrimPrefix(srv.URL, "http"), WithHeader("Authorization", "Token abc"))
	seq, err := Stream(context.Background(), c, chunksOf(), textCodec{})
	require.NoError(t, err)
	collect(seq)
	assert.Equal(t, "Token abc", <-got)
}

func TestStream_SendsChunksEndMarkerAndHalfCloses(t *testing.T) {
	srv := newTestServer(t, func(conn *websocket.Conn, s *testServer) {
		s.readAll(conn, nil)
		writeText(conn, "done")
		writeClose(conn)
	})

	c := testClient(srv.WSURL())
	seq, err := Stream(context.Background(), c, chunksOf("a", "b", "c", "d", "e"), textCodec{})
	require.NoError(t, err)

	assert.Equal(t, []string{"done"}, collect(seq))
	srv.waitDone(t)
	assert.Equal(t, []string{
		"binary:a", "binary:b", "binary:c", "binary:d", "binary:e",
		"text:END",
		"eof",
	}, srv.Events())
}

func TestStream_ResultsAfterEndMarkerAreDrained(t *testing.T) {
	srv := newTestServer(t, func(conn *websocket.Conn, s *testServer) {
		s.readAll(conn, nil)
		time.Sleep(50 * time.Millisecond)
		writeText(conn, "late-1", "late-2")
		writeClose(conn)
	})

	c := testClient(srv.WSURL())
	seq, err := Stream(context.Background(), c, chunksOf("a"), textCodec{})
	require.NoError(t, err)
	assert.Equal(t, []string{"late-1", "late-2"}, collect(seq))
}

func TestStream_KeepalivePingBeforeData(t *testing.T) {
	srv := newTestServer(t, drainThenClose)

	chunks := make(chan []byte)
	go func() {
		time.Sleep(150 * time.Millisecond)
		chunks <- []byte("a")
		close(chunks)
	}()

	c := testClient(srv.WSURL(), WithKeepaliveInterval(20*time.Millisecond))
	seq, err := Stream(context.Background(), c, chunks, textCodec{})
	require.NoError(t, err)
	collect(seq)
	srv.waitDone(t)

	events := srv.Events()
	require.NotEmpty(t, events)
	assert.Equal(t, "ping", events[0])
	assert.Contains(t, events, "binary:a")
}

func TestStream_IdleTimeoutEndsSequence(t *testing.T) {
	srv := newTestServer(t, func(conn *websocket.Conn, s *testServer) {
		s.readAll(conn, nil)
	})

	chunks := make(chan []byte)
	c := testClient(srv.WSURL(), WithIdleTimeout(50*time.Millisecond))
	seq, err := Stream(context.Background(), c, chunks, textCodec{})
	require.NoError(t, err)

	start := time.Now()
	assert.Empty(t, collect(seq))
	assert.Less(t, time.Since(start), 3*time.Second)

	// The sender was stopped with the sequence, so the server sees the
	// connection go away.
	srv.waitDone(t)
}

func TestStream_AbandonStopsSender(t *testing.T) {
	srv := newTestServer(t, func(conn *websocket.Conn, s *testServer) {
		s.readAll(conn, func(mt int, _ []byte) {
			if mt == websocket.BinaryMessage {
				writeText(conn, "ack")
			}
		})
	})

	chunks := make(chan []byte)
	stop := make(chan struct{})
	defer close(stop)
	var sent atomic.Int64
	go func() {
		for {
			select {
			case chunks <- []byte("x"):
				sent.Add(1)
			case <-stop:
				return
			}
		}
	}()

	c := testClient(srv.WSURL())
	seq, err := Stream(context.Background(), c, chunks, textCodec{})
	require.NoError(t, err)

	var got []string
	for r := range seq {
		got = append(got, r)
		break
	}
	assert.Equal(t, []string{"ack"}, got)

	srv.waitDone(t)
	before := sent.Load()
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, before, sent.Load(), "sender kept pulling chunks after abandonment")
	assert.LessOrEqual(t, srv.data.Load(), sent.Load())
}

func TestStream_RemoteCloseAfterTwoResults(t *testing.T) {
	srv := newTestServer(t, func(conn *websocket.Conn, s *testServer) {
		writeText(conn, "one", "two")
		writeClose(conn)
		s.readAll(conn, nil)
	})

	c := testClient(srv.WSURL())
	seq, err := Stream(context.Background(), c, make(chan []byte), textCodec{})
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, collect(seq))
}

func TestStream_DecoderFiltersFrames(t *testing.T) {
	srv := newTestServer(t, func(conn *websocket.Conn, s *testServer) {
		writeText(conn, "skip", "keep", "skip")
		writeClose(conn)
		s.readAll(conn, nil)
	})

	c := testClient(srv.WSURL())
	seq, err := Stream(context.Background(), c, make(chan []byte), textCodec{})
	require.NoError(t, err)
	assert.Equal(t, []string{"keep"}, collect(seq))
}

func TestStream_RemoteDropEndsSequence(t *testing.T) {
	srv := newTestServer(t, func(conn *websocket.Conn, s *testServer) {
		writeText(conn, "one")
		conn.NetConn().Close()
	})

	c := testClient(srv.WSURL())
	seq, err := Stream(context.Background(), c, make(chan []byte), textCodec{})
	require.NoError(t, err)
	assert.Equal(t, []string{"one"}, collect(seq))
}

func TestStream_CancelWithoutIterating(t *testing.T) {
	srv := newTestServer(t, func(conn *websocket.Conn, s *testServer) {
		s.readAll(conn, nil)
	})

	ctx, cancel := context.WithCancel(context.Background())
	c := testClient(srv.WSURL())
	seq, err := Stream(ctx, c, make(chan []byte), textCodec{})
	require.NoError(t, err)
	require.NotNil(t, seq)

	cancel()
	srv.waitDone(t)
	assert.Equal(t, []string{"eof"}, srv.Events())
	assert.Empty(t, collect(seq))
}

func TestStream_SequenceIsSingleUse(t *testing.T) {
	srv := newTestServer(t, func(conn *websocket.Conn, s *testServer) {
		writeText(conn, "one")
		writeClose(conn)
		s.readAll(conn, nil)
	})

	c := testClient(srv.WSURL())
	seq, err := Stream(context.Background(), c, make(chan []byte), textCodec{})
	require.NoError(t, err)
	assert.Equal(t, []string{"one"}, collect(seq))
	assert.Empty(t, collect(seq))
}

func TestStream_PanicInLoopBodyReleasesSession(t *testing.T) {
	srv := newTestServer(t, func(conn *websocket.Conn, s *testServer) {
		writeText(conn, "one")
		s.readAll(conn, nil)
	})

	c := testClient(srv.WSURL())
	seq, err := Stream(context.Background(), c, make(chan []byte), textCodec{})
	require.NoError(t, err)

	assert.Panics(t, func() {
		for range seq {
			panic("consumer failed")
		}
	})
	srv.waitDone(t)
}
