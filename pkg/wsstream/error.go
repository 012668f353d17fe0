package wsstream

import (
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"

	"github.com/gorilla/websocket"
)

// ConnectionError is returned by Stream when no session could be
// established. It is the only error Stream reports; no goroutine is started
// when it occurs.
type ConnectionError struct {
	// URL is the endpoint with its query string removed.
	URL string

	// Attempts is the number of dial attempts made. It is zero when the
	// request could not be built.
	Attempts int

	// HTTPStatus is the status of the last failed handshake response, if the
	// server answered at all.
	HTTPStatus int

	// Err is the cause of the last failure.
	Err error
}

func (e *ConnectionError) Error() string {
	if e.Attempts == 0 {
		return fmt.Sprintf("wsstream: invalid request for %s: %v", e.URL, e.Err)
	}
	if e.HTTPStatus != 0 {
		return fmt.Sprintf("wsstream: connect %s failed after %d attempt(s), status %d: %v", e.URL, e.Attempts, e.HTTPStatus, e.Err)
	}
	return fmt.Sprintf("wsstream: connect %s failed after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// errHalfCloseUnsupported is returned when the underlying connection cannot
// shut down only its write side.
var errHalfCloseUnsupported = errors.New("wsstream: connection does not support half-close")

// isNormalSendClose reports whether a write failed only because the
// connection was already going away: already closed, closed by the peer,
// written after our close, or a broken pipe.
func isNormalSendClose(err error) bool {
	if errors.Is(err, net.ErrClosed) ||
		errors.Is(err, websocket.ErrCloseSent) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}
	var ce *websocket.CloseError
	return errors.As(err, &ce)
}

// isTimeout reports whether err is a deadline expiry.
func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// isDisconnect reports whether a read failed because the connection went
// away without a closing handshake, or was closed locally.
func isDisconnect(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseAbnormalClosure) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed)
}
