package wsstream

import (
	"log/slog"
	"time"
)

// receive reads frames from the read half and yields decoded results until
// the remote goes quiet, closes, or the connection fails. It never reports
// an error; every way out simply ends the sequence.
func receive[In, Out any](r frameReader, idle time.Duration, codec Codec[In, Out], log *slog.Logger, yield func(Out) bool) {
	for {
		f, err := r.ReadFrame()
		if err != nil {
			switch {
			case isTimeout(err):
				log.Warn("ws receiver timed out", "inactivity", idle.String())
			case isDisconnect(err):
				log.Debug("ws receiver disconnected", "error", err)
			default:
				log.Error("ws receiver failed", "error", err)
			}
			return
		}

		switch f.Type {
		case TextFrame, BinaryFrame:
			out, ok := codec.FromMessage(f)
			if !ok {
				continue
			}
			if !yield(out) {
				return
			}
		case CloseFrame:
			log.Debug("ws closed by remote", "code", f.CloseCode())
			return
		default:
			// Pings are answered by the framing layer, pongs answer our own
			// pings; neither needs handling here.
		}
	}
}
