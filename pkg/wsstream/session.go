package wsstream

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Session is an established connection split into a write half, owned by
// the sender goroutine, and a read half, owned by the result sequence.
//
// gorilla/websocket allows one concurrent writer and one concurrent reader,
// which is exactly this split; the halves share no other state.
type Session struct {
	// ID identifies the session in logs.
	ID string

	conn      *websocket.Conn
	w         *writeHalf
	r         *readHalf
	closeOnce sync.Once
	closeErr  error
}

func newSession(conn *websocket.Conn, cfg *clientConfig) *Session {
	s := &Session{
		ID:   uuid.New().String(),
		conn: conn,
		w:    &writeHalf{conn: conn, timeout: cfg.writeTimeout},
		r:    &readHalf{conn: conn, idle: cfg.idleTimeout},
	}
	s.r.installHandlers(cfg.writeTimeout)
	return s
}

// close tears down the underlying connection. Pending reads and writes on
// either half fail with net.ErrClosed.
func (s *Session) close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}

// frameWriter is the sender's view of a session.
type frameWriter interface {
	WriteFrame(f Frame) error
	CloseWrite() error
}

// frameReader is the receiver's view of a session.
type frameReader interface {
	ReadFrame() (Frame, error)
}

var (
	_ frameWriter = (*writeHalf)(nil)
	_ frameReader = (*readHalf)(nil)
)

type writeHalf struct {
	conn    *websocket.Conn
	timeout time.Duration
}

// WriteFrame writes f, bounded by the write timeout.
func (w *writeHalf) WriteFrame(f Frame) error {
	deadline := time.Now().Add(w.timeout)
	switch {
	case f.Type.IsControl():
		return w.conn.WriteControl(int(f.Type), f.Data, deadline)
	case f.Type.IsData():
		if err := w.conn.SetWriteDeadline(deadline); err != nil {
			return err
		}
		return w.conn.WriteMessage(int(f.Type), f.Data)
	}
	return errors.New("wsstream: cannot write " + f.Type.String() + " frame")
}

// CloseWrite shuts down the sending side of the underlying connection while
// leaving the receiving side open. No Close frame is sent.
func (w *writeHalf) CloseWrite() error {
	cw, ok := w.conn.NetConn().(interface{ CloseWrite() error })
	if !ok {
		return errHalfCloseUnsupported
	}
	return cw.CloseWrite()
}

type readHalf struct {
	conn *websocket.Conn
	idle time.Duration
}

// installHandlers makes inbound ping and pong frames count as activity.
// Pings are answered at the framing layer, as gorilla's default handler does.
func (r *readHalf) installHandlers(writeTimeout time.Duration) {
	r.conn.SetPongHandler(func(string) error {
		return r.conn.SetReadDeadline(time.Now().Add(r.idle))
	})
	r.conn.SetPingHandler(func(data string) error {
		if err := r.conn.SetReadDeadline(time.Now().Add(r.idle)); err != nil {
			return err
		}
		err := r.conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeTimeout))
		if err == websocket.ErrCloseSent {
			return nil
		}
		var ne net.Error
		if errors.As(err, &ne) {
			return nil
		}
		return err
	})
}

// ReadFrame waits at most the idle timeout for the next data frame. A close
// frame from the remote is returned as a CloseFrame rather than an error.
func (r *readHalf) ReadFrame() (Frame, error) {
	if err := r.conn.SetReadDeadline(time.Now().Add(r.idle)); err != nil {
		return Frame{}, err
	}
	mt, data, err := r.conn.ReadMessage()
	if err != nil {
		var ce *websocket.CloseError
		if errors.As(err, &ce) && ce.Code != websocket.CloseAbnormalClosure {
			return Close(ce.Code, ce.Text), nil
		}
		return Frame{}, err
	}
	return Frame{Type: FrameType(mt), Data: data}, nil
}
