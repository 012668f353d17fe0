package wsstream

import (
	"fmt"

	"github.com/gorilla/websocket"
)

// FrameType is the kind of a WebSocket frame.
type FrameType int

const (
	// OtherFrame is any frame kind the codec contract does not name, such as
	// a continuation fragment.
	OtherFrame FrameType = 0

	TextFrame   FrameType = websocket.TextMessage
	BinaryFrame FrameType = websocket.BinaryMessage
	CloseFrame  FrameType = websocket.CloseMessage
	PingFrame   FrameType = websocket.PingMessage
	PongFrame   FrameType = websocket.PongMessage
)

// IsData reports whether frames of this type carry application data.
func (t FrameType) IsData() bool {
	return t == TextFrame || t == BinaryFrame
}

// IsControl reports whether t is a ping, pong or close frame.
func (t FrameType) IsControl() bool {
	return t == PingFrame || t == PongFrame || t == CloseFrame
}

func (t FrameType) String() string {
	switch t {
	case TextFrame:
		return "text"
	case BinaryFrame:
		return "binary"
	case CloseFrame:
		return "close"
	case PingFrame:
		return "ping"
	case PongFrame:
		return "pong"
	case OtherFrame:
		return "other"
	}
	return fmt.Sprintf("frame(%d)", int(t))
}

// Frame is a single WebSocket message as seen by a Codec.
type Frame struct {
	Type FrameType
	Data []byte
}

// Text returns a text frame carrying s.
func Text(s string) Frame {
	return Frame{Type: TextFrame, Data: []byte(s)}
}

// Binary returns a binary frame carrying b.
func Binary(b []byte) Frame {
	return Frame{Type: BinaryFrame, Data: b}
}

// Close returns a close frame with the given status code and reason.
func Close(code int, reason string) Frame {
	return Frame{Type: CloseFrame, Data: websocket.FormatCloseMessage(code, reason)}
}

// CloseCode returns the status code of a close frame, or
// websocket.CloseNoStatusReceived when the frame carries none.
func (f Frame) CloseCode() int {
	if f.Type != CloseFrame || len(f.Data) < 2 {
		return websocket.CloseNoStatusReceived
	}
	return int(f.Data[0])<<8 | int(f.Data[1])
}
