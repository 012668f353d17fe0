package wsstream

import (
	"context"
	"iter"
	"sync"
	"sync/atomic"
)

// Stream opens a session on c, starts sending chunks in the background, and
// returns the sequence of results decoded from the session.
//
// The chunk channel is owned by the caller; closing it marks the end of the
// outbound stream. The only error Stream returns is a *ConnectionError.
//
// The returned sequence can be ranged over once. When the range loop ends for
// any reason the sender goroutine is stopped and the connection is closed
// before the loop statement returns. Cancelling ctx has the same effect.
func Stream[In, Out any](ctx context.Context, c *Client, chunks <-chan []byte, codec Codec[In, Out]) (iter.Seq[Out], error) {
	if codec == nil {
		panic("wsstream: codec is required")
	}

	sess, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}

	log := c.config.logger.With("session_id", sess.ID)
	log.Info("ws connected")

	sendCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	snd := &sender[In, Out]{
		w:         sess.w,
		chunks:    chunks,
		codec:     codec,
		keepalive: c.config.keepalive,
		log:       log,
	}
	go func() {
		defer close(done)
		snd.run(sendCtx)
	}()

	g := &guard{
		cancel: cancel,
		close:  sess.close,
		done:   done,
	}
	stop := context.AfterFunc(ctx, g.release)

	var used atomic.Bool
	return func(yield func(Out) bool) {
		if !used.CompareAndSwap(false, true) {
			return
		}
		defer func() {
			stop()
			g.release()
			log.Debug("ws session released")
		}()
		receive(sess.r, sess.r.idle, codec, log, yield)
	}, nil
}

// guard ties the sender goroutine to the lifetime of the result sequence.
type guard struct {
	once   sync.Once
	cancel context.CancelFunc
	close  func() error
	done   <-chan struct{}
}

// release stops the sender, closes the connection and waits for the sender
// to exit. It is safe to call more than once and from any goroutine.
func (g *guard) release() {
	g.once.Do(func() {
		g.cancel()
		g.close()
		<-g.done
	})
}
