// Package wsstream streams raw byte chunks to a WebSocket endpoint and
// returns the decoded results the remote side sends back on the same
// connection.
//
// The package is protocol-agnostic: a [Codec] turns outbound chunks into
// frames and inbound frames into results. Framing itself is handled by
// github.com/gorilla/websocket.
//
// # Streaming
//
//	client := wsstream.NewClient("wss://stt.example.com/v1/listen",
//	    wsstream.WithHeader("Authorization", "Token "+apiKey),
//	)
//	results, err := wsstream.Stream(ctx, client, audioChunks, codec)
//	if err != nil {
//	    return err // *wsstream.ConnectionError
//	}
//	for r := range results {
//	    fmt.Println(r)
//	}
//
// # Connection
//
// Stream dials with a bounded retry policy: 20 attempts, 500ms apart, each
// attempt limited to 8s. Running out of attempts is the only error Stream
// returns. Once the session is up, transport problems end the result
// sequence instead of being reported.
//
// # Sender and receiver
//
// A background goroutine drains the chunk channel, encodes each chunk and
// writes it. It sends a ping every 15s while idle; a chunk that is ready at
// the same time as a ping always goes first. When the channel is closed it
// writes the codec's zero input as an end marker (never a Close frame, so the
// remote can keep sending results) and half-closes the connection.
//
// The result sequence itself reads frames. It ends when nothing arrives for
// 30s, when the remote sends Close or drops the connection, or on a read
// error.
//
// # Cancellation
//
// Leaving the range loop early (break, return, panic) stops the sender
// goroutine and closes the connection before the loop statement completes.
// Cancelling the context passed to Stream does the same, even if the
// sequence was never iterated.
package wsstream
