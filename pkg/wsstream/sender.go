package wsstream

import (
	"context"
	"log/slog"
	"time"
)

// senderExit says why the send loop stopped.
type senderExit int

const (
	// exitDrained: the chunk channel was closed and every chunk was sent.
	exitDrained senderExit = iota
	// exitBroken: a write failed, the connection is gone.
	exitBroken
	// exitAborted: the context was cancelled.
	exitAborted
)

func (e senderExit) String() string {
	switch e {
	case exitDrained:
		return "drained"
	case exitBroken:
		return "broken"
	case exitAborted:
		return "aborted"
	}
	return "unknown"
}

type sender[In, Out any] struct {
	w         frameWriter
	chunks    <-chan []byte
	codec     Codec[In, Out]
	keepalive time.Duration
	log       *slog.Logger
}

// run drains the chunk channel into the write half, then sends the end
// marker if the channel ended cleanly, then half-closes.
func (s *sender[In, Out]) run(ctx context.Context) {
	ticker := time.NewTicker(s.keepalive)
	defer ticker.Stop()

	exit := s.loop(ctx, ticker.C)
	s.log.Debug("ws sender stopped", "reason", exit.String())

	if exit == exitDrained {
		// A Close frame here would stop the remote from sending the results
		// it still owes us.
		var end In
		if err := s.w.WriteFrame(s.codec.ToMessage(end)); err != nil {
			s.log.Debug("ws end marker failed", "error", err)
		}
	}

	if err := s.w.CloseWrite(); err != nil {
		s.log.Debug("ws close write failed", "error", err)
	}
}

// loop sends chunks and keepalive pings. A ready chunk always wins over a due
// ping: the ping is only written once no chunk is immediately available.
func (s *sender[In, Out]) loop(ctx context.Context, tick <-chan time.Time) senderExit {
	pingDue := false
	for {
		select {
		case chunk, ok := <-s.chunks:
			if !ok {
				return exitDrained
			}
			if !s.send(ctx, chunk) {
				return stopped(ctx)
			}
			continue
		default:
		}

		if ctx.Err() != nil {
			return exitAborted
		}

		if pingDue {
			pingDue = false
			if err := s.w.WriteFrame(Frame{Type: PingFrame}); err != nil {
				s.log.Debug("ws ping failed", "error", err)
				return exitBroken
			}
			continue
		}

		select {
		case <-ctx.Done():
			return exitAborted
		case chunk, ok := <-s.chunks:
			if !ok {
				return exitDrained
			}
			if !s.send(ctx, chunk) {
				return stopped(ctx)
			}
		case <-tick:
			pingDue = true
		}
	}
}

// send encodes and writes one chunk. It reports false if the loop must stop.
func (s *sender[In, Out]) send(ctx context.Context, chunk []byte) bool {
	if ctx.Err() != nil {
		return false
	}
	frame := s.codec.ToMessage(s.codec.ToInput(chunk))
	if err := s.w.WriteFrame(frame); err != nil {
		switch {
		case ctx.Err() != nil:
		case isNormalSendClose(err):
			s.log.Debug("ws send closed", "error", err)
		default:
			s.log.Error("ws send failed", "error", err)
		}
		return false
	}
	return true
}

func stopped(ctx context.Context) senderExit {
	if ctx.Err() != nil {
		return exitAborted
	}
	return exitBroken
}
