package wsstream

// Codec converts between raw chunks, application inputs, and frames.
//
// In is the encoded outbound unit. Its zero value is the end-of-stream
// marker: after the chunk channel is closed the sender writes
// ToMessage(zero) exactly once.
//
// Out is the decoded inbound unit. FromMessage is only called with text and
// binary frames; returning false drops the frame silently.
type Codec[In, Out any] interface {
	ToInput(chunk []byte) In
	ToMessage(in In) Frame
	FromMessage(f Frame) (Out, bool)
}

// CodecFuncs adapts three ordinary functions to a Codec.
type CodecFuncs[In, Out any] struct {
	Input   func(chunk []byte) In
	Message func(in In) Frame
	Decode  func(f Frame) (Out, bool)
}

// ToInput calls c.Input.
func (c CodecFuncs[In, Out]) ToInput(chunk []byte) In {
	return c.Input(chunk)
}

// ToMessage calls c.Message.
func (c CodecFuncs[In, Out]) ToMessage(in In) Frame {
	return c.Message(in)
}

// FromMessage calls c.Decode.
func (c CodecFuncs[In, Out]) FromMessage(f Frame) (Out, bool) {
	return c.Decode(f)
}

// BytesCodec sends each chunk as a binary frame, an empty binary frame as the
// end marker, and yields the payload of every inbound data frame.
type BytesCodec struct{}

var _ Codec[[]byte, []byte] = BytesCodec{}

func (BytesCodec) ToInput(chunk []byte) []byte { return chunk }

func (BytesCodec) ToMessage(in []byte) Frame { return Binary(in) }

func (BytesCodec) FromMessage(f Frame) ([]byte, bool) { return f.Data, true }
