package listen

import (
	"context"
	"iter"

	"github.com/haivivi/wsstream/pkg/wsstream"
)

// NewClient returns a stream client for p. Additional options are applied
// after the request headers.
func NewClient(p Params, opts ...wsstream.Option) (*wsstream.Client, error) {
	endpoint, err := p.URL()
	if err != nil {
		return nil, err
	}
	all := append([]wsstream.Option{wsstream.WithHeaders(p.Header())}, opts...)
	return wsstream.NewClient(endpoint, all...), nil
}

// Transcribe streams chunks of linear16 audio through c and returns the
// results. Close chunks to finish the stream; the sequence then ends once
// the server has delivered its final results.
func Transcribe(ctx context.Context, c *wsstream.Client, chunks <-chan []byte) (iter.Seq[Result], error) {
	return wsstream.Stream(ctx, c, chunks, Codec{})
}
