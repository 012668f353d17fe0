package listen

import (
	"encoding/json"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/haivivi/wsstream/pkg/wsstream"
)

// Codec encodes audio chunks for the listen API and decodes its results.
type Codec struct{}

var _ wsstream.Codec[Input, Result] = Codec{}

// ToInput wraps a chunk of PCM audio.
func (Codec) ToInput(chunk []byte) Input {
	return Input{Type: Audio, Audio: chunk}
}

// ToMessage encodes audio as a binary frame and control messages as JSON
// text frames.
func (Codec) ToMessage(in Input) wsstream.Frame {
	switch in.Type {
	case Audio:
		return wsstream.Binary(in.Audio)
	case KeepAlive:
		return wsstream.Text(`{"type":"KeepAlive"}`)
	default:
		return wsstream.Text(`{"type":"CloseStream"}`)
	}
}

// FromMessage decodes a text frame as JSON and a binary frame as msgpack.
// Frames that do not decode and metadata messages are dropped.
func (Codec) FromMessage(f wsstream.Frame) (Result, bool) {
	var r Result
	var err error
	switch f.Type {
	case wsstream.TextFrame:
		err = json.Unmarshal(f.Data, &r)
	case wsstream.BinaryFrame:
		err = msgpack.Unmarshal(f.Data, &r)
	default:
		return Result{}, false
	}
	if err != nil || r.Type == "" || r.Type == ResultTypeMetadata {
		return Result{}, false
	}
	return r, true
}
