// Package listentest provides an in-process listen server for tests and
// local development.
//
// The server accepts linear16 audio, answers with an interim result every
// few hundred milliseconds of audio, and on CloseStream sends a final
// result followed by a normal Close frame. It records what each session
// sent so tests can assert on it.
package listentest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/haivivi/wsstream/pkg/listen"
)

// DefaultWords is the transcript the server pretends to recognize.
const DefaultWords = "the quick brown fox jumps over the lazy dog"

// Config configures a Handler.
type Config struct {
	// InterimEvery is the amount of audio between two interim results.
	// Default 300ms.
	InterimEvery time.Duration

	// Binary sends results as msgpack binary frames instead of JSON text.
	Binary bool

	// Words is the transcript, revealed one word per interim result.
	// Default DefaultWords.
	Words string

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Record describes one finished session.
type Record struct {
	Header http.Header
	Query  map[string]string

	// AudioFrames and AudioBytes count binary frames received.
	AudioFrames int
	AudioBytes  int

	Pings       int
	KeepAlives  int
	CloseStream bool

	// HalfClosed is set when the client shut down its side of the
	// connection after CloseStream instead of dropping it.
	HalfClosed bool

	// Results is the number of results sent, metadata excluded.
	Results int
}

// Handler is an http.Handler that serves the listen API over WebSocket.
type Handler struct {
	cfg      Config
	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions []Record
	notify   []chan Record
}

// NewHandler returns a Handler for cfg.
func NewHandler(cfg Config) *Handler {
	if cfg.InterimEvery <= 0 {
		cfg.InterimEvery = 300 * time.Millisecond
	}
	if cfg.Words == "" {
		cfg.Words = DefaultWords
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Handler{cfg: cfg}
}

// Sessions returns the records of all finished sessions.
func (h *Handler) Sessions() []Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Record(nil), h.sessions...)
}

// Finished returns a channel that receives the record of the next finished
// session.
func (h *Handler) Finished() <-chan Record {
	ch := make(chan Record, 1)
	h.mu.Lock()
	h.notify = append(h.notify, ch)
	h.mu.Unlock()
	return ch
}

func (h *Handler) finish(rec Record) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions = append(h.sessions, rec)
	for _, ch := range h.notify {
		ch <- rec
	}
	h.notify = nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.cfg.Logger.Warn("listentest: upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	s := &session{
		cfg:  h.cfg,
		conn: conn,
		log:  h.cfg.Logger.With("request_id", r.Header.Get("X-Request-Id")),
		rec: Record{
			Header: r.Header.Clone(),
			Query:  flatten(r.URL.Query()),
		},
		words: strings.Fields(h.cfg.Words),
	}
	s.bytesPerSecond = audioRate(s.rec.Query)
	conn.SetPingHandler(func(data string) error {
		s.rec.Pings++
		err := conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	s.log.Debug("listentest: session started", "query", s.rec.Query)
	s.serve()
	s.log.Debug("listentest: session finished",
		"audio_bytes", s.rec.AudioBytes,
		"results", s.rec.Results,
		"half_closed", s.rec.HalfClosed)
	h.finish(s.rec)
}

type session struct {
	cfg            Config
	conn           *websocket.Conn
	log            *slog.Logger
	rec            Record
	words          []string
	bytesPerSecond int
	pending        int
	revealed       int
}

func (s *session) serve() {
	for {
		mt, data, err := s.conn.ReadMessage()
		if err != nil {
			if s.rec.CloseStream && isEOF(err) {
				s.rec.HalfClosed = true
			}
			return
		}

		switch mt {
		case websocket.BinaryMessage:
			s.audio(len(data))
		case websocket.TextMessage:
			var msg struct {
				Type string `json:"type"`
			}
			if err := json.Unmarshal(data, &msg); err != nil {
				s.log.Warn("listentest: bad control message", "error", err)
				continue
			}
			switch msg.Type {
			case "KeepAlive":
				s.rec.KeepAlives++
			case "CloseStream":
				s.rec.CloseStream = true
				s.closeStream()
			default:
				s.log.Warn("listentest: unknown control message", "type", msg.Type)
			}
		}
	}
}

func (s *session) audio(n int) {
	s.rec.AudioFrames++
	s.rec.AudioBytes += n
	s.pending += n

	every := int(s.cfg.InterimEvery.Seconds() * float64(s.bytesPerSecond))
	if every <= 0 {
		every = 1
	}
	for s.pending >= every {
		s.pending -= every
		if s.revealed < len(s.words) {
			s.revealed++
		}
		s.send(s.result(false))
	}
}

func (s *session) closeStream() {
	s.revealed = len(s.words)
	s.send(s.result(true))
	s.write(listen.Result{Type: listen.ResultTypeMetadata, Duration: s.seconds()})
	_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (s *session) result(final bool) listen.Result {
	transcript := strings.Join(s.words[:s.revealed], " ")
	words := make([]listen.Word, s.revealed)
	for i, w := range s.words[:s.revealed] {
		words[i] = listen.Word{Word: w, Start: float64(i) * 0.3, End: float64(i+1) * 0.3, Confidence: 0.9}
	}
	return listen.Result{
		Type:        listen.ResultTypeResults,
		Duration:    s.seconds(),
		IsFinal:     final,
		SpeechFinal: final,
		Channel: listen.Channel{Alternatives: []listen.Alternative{{
			Transcript: transcript,
			Confidence: 0.9,
			Words:      words,
		}}},
	}
}

func (s *session) seconds() float64 {
	if s.bytesPerSecond == 0 {
		return 0
	}
	return float64(s.rec.AudioBytes) / float64(s.bytesPerSecond)
}

func (s *session) send(r listen.Result) {
	if s.write(r) {
		s.rec.Results++
	}
}

func (s *session) write(r listen.Result) bool {
	var (
		data []byte
		err  error
		mt   = websocket.TextMessage
	)
	if s.cfg.Binary {
		mt = websocket.BinaryMessage
		data, err = msgpack.Marshal(r)
	} else {
		data, err = json.Marshal(r)
	}
	if err != nil {
		s.log.Error("listentest: encode result", "error", err)
		return false
	}
	if err := s.conn.WriteMessage(mt, data); err != nil {
		s.log.Debug("listentest: write result", "error", err)
		return false
	}
	return true
}

func isEOF(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseAbnormalClosure) ||
		errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

func flatten(q map[string][]string) map[string]string {
	out := make(map[string]string, len(q))
	for k, vs := range q {
		out[k] = strings.Join(vs, ",")
	}
	return out
}

func audioRate(q map[string]string) int {
	rate, err := strconv.Atoi(q["sample_rate"])
	if err != nil || rate <= 0 {
		rate = listen.DefaultSampleRate
	}
	channels, err := strconv.Atoi(q["channels"])
	if err != nil || channels <= 0 {
		channels = 1
	}
	return rate * channels * 2
}

// Server is a Handler running on an httptest server.
type Server struct {
	*httptest.Server
	Handler *Handler
}

// NewServer starts a Server. Close it when done.
func NewServer(cfg Config) *Server {
	h := NewHandler(cfg)
	return &Server{Server: httptest.NewServer(h), Handler: h}
}

// Endpoint returns the ws:// base URL of the server.
func (s *Server) Endpoint() string {
	return "ws" + strings.TrimPrefix(s.Server.URL, "http")
}

// ListenAndServe serves h on addr until ctx is cancelled or the listener
// fails. It returns nil after a cancellation.
func ListenAndServe(ctx context.Context, addr string, h *Handler) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	h.cfg.Logger.Info("listentest: serving", "addr", ln.Addr().String())

	srv := &http.Server{Handler: h, ReadHeaderTimeout: 10 * time.Second}
	stop := context.AfterFunc(ctx, func() { srv.Close() })
	defer stop()

	err = srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) && ctx.Err() != nil {
		return nil
	}
	return err
}
