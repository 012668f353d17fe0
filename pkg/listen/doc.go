// Package listen streams raw PCM audio to a live transcription endpoint and
// yields recognition results as they arrive.
//
// It is a [wsstream.Codec] for a Deepgram-compatible listen API: audio
// chunks go out as binary frames, the end of the stream is announced with a
// {"type":"CloseStream"} text frame, and results come back as JSON text
// frames or msgpack binary frames.
//
// # Usage
//
//	c, err := listen.NewClient(listen.Params{
//	    Endpoint:   "wss://api.example.com",
//	    APIKey:     key,
//	    SampleRate: 16000,
//	})
//	if err != nil {
//	    return err
//	}
//	results, err := listen.Transcribe(ctx, c, chunks)
//	if err != nil {
//	    return err
//	}
//	for r := range results {
//	    if r.IsFinal {
//	        fmt.Println(r.Transcript())
//	    }
//	}
package listen
