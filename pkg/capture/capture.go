// Package capture turns a stream of raw 16-bit PCM into fixed-duration mono
// chunks suitable for a live transcription stream.
//
// The source may be stereo and at any sample rate. Stereo is downmixed by
// averaging both channels, and the sample rate is converted with a pure Go
// resampler when it differs from the target.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	resampling "github.com/tphakala/go-audio-resampling"
)

// DefaultChunkDuration is the amount of audio in each chunk.
const DefaultChunkDuration = 100 * time.Millisecond

// Format describes 16-bit signed little-endian PCM.
type Format struct {
	SampleRate int
	Stereo     bool
}

func (f Format) channels() int {
	if f.Stereo {
		return 2
	}
	return 1
}

func (f Format) frameBytes() int {
	return 2 * f.channels()
}

// BytesPerSecond returns the byte rate of f.
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.frameBytes()
}

// Config configures a Capture.
type Config struct {
	// Source is the format of the input. SampleRate is required.
	Source Format

	// SampleRate of the output. Zero keeps the source rate.
	SampleRate int

	// ChunkDuration defaults to DefaultChunkDuration.
	ChunkDuration time.Duration

	// Realtime paces chunks so they are emitted no faster than the audio
	// would play.
	Realtime bool

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Capture reads PCM from a reader and emits mono chunks at the output rate.
type Capture struct {
	src io.Reader
	cfg Config
	out Format

	resampler resampling.Resampler
	emitted   atomic.Int64

	mu  sync.Mutex
	err error
}

// New returns a Capture reading from r.
func New(r io.Reader, cfg Config) (*Capture, error) {
	if cfg.Source.SampleRate <= 0 {
		return nil, fmt.Errorf("capture: invalid source sample rate %d", cfg.Source.SampleRate)
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = cfg.Source.SampleRate
	}
	if cfg.SampleRate < 0 {
		return nil, fmt.Errorf("capture: invalid sample rate %d", cfg.SampleRate)
	}
	if cfg.ChunkDuration <= 0 {
		cfg.ChunkDuration = DefaultChunkDuration
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	c := &Capture{
		src: r,
		cfg: cfg,
		out: Format{SampleRate: cfg.SampleRate},
	}
	if cfg.SampleRate != cfg.Source.SampleRate {
		rs, err := resampling.New(&resampling.Config{
			InputRate:  float64(cfg.Source.SampleRate),
			OutputRate: float64(cfg.SampleRate),
			Channels:   1,
			Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
		})
		if err != nil {
			return nil, fmt.Errorf("capture: create resampler: %w", err)
		}
		c.resampler = rs
	}
	return c, nil
}

// Format returns the format of the emitted chunks.
func (c *Capture) Format() Format {
	return c.out
}

// ChunkBytes returns the size of a full chunk.
func (c *Capture) ChunkBytes() int {
	return chunkBytes(c.out, c.cfg.ChunkDuration)
}

// Emitted returns the number of bytes delivered on the chunk channel so far.
func (c *Capture) Emitted() int64 {
	return c.emitted.Load()
}

// Err returns the read or conversion error that ended the capture, if any.
// It is only meaningful once the chunk channel is closed.
func (c *Capture) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Start begins reading in a new goroutine. The returned channel is closed
// at the end of the input, on error, or when ctx is cancelled. The last
// chunk may be shorter than ChunkBytes.
func (c *Capture) Start(ctx context.Context) <-chan []byte {
	ch := make(chan []byte)
	go func() {
		defer close(ch)
		if err := c.run(ctx, ch); err != nil {
			c.cfg.Logger.Error("capture failed", "error", err)
			c.mu.Lock()
			c.err = err
			c.mu.Unlock()
		}
	}()
	return ch
}

func (c *Capture) run(ctx context.Context, ch chan<- []byte) error {
	readSize := chunkBytes(c.cfg.Source, c.cfg.ChunkDuration)
	size := c.ChunkBytes()
	buf := make([]byte, readSize)
	var pending []byte

	start := time.Now()
	var sent int
	emit := func(chunk []byte) bool {
		if c.cfg.Realtime {
			due := start.Add(time.Duration(sent) * c.cfg.ChunkDuration)
			if !sleepUntil(ctx, due) {
				return false
			}
		}
		select {
		case ch <- chunk:
			sent++
			c.emitted.Add(int64(len(chunk)))
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		if ctx.Err() != nil {
			return nil
		}
		n, rerr := io.ReadFull(c.src, buf)
		n -= n % c.cfg.Source.frameBytes()
		if n > 0 {
			mono, err := c.convert(buf[:n])
			if err != nil {
				return err
			}
			pending = append(pending, mono...)
			for len(pending) >= size {
				chunk := make([]byte, size)
				copy(chunk, pending)
				pending = pending[size:]
				if !emit(chunk) {
					return nil
				}
			}
		}

		switch {
		case rerr == nil:
		case errors.Is(rerr, io.EOF) || errors.Is(rerr, io.ErrUnexpectedEOF):
			if len(pending) > 0 {
				emit(pending)
			}
			return nil
		default:
			return fmt.Errorf("capture: read: %w", rerr)
		}
	}
}

// convert downmixes b to mono and resamples it to the output rate.
func (c *Capture) convert(b []byte) ([]byte, error) {
	samples := decode(b, c.cfg.Source.Stereo)
	if c.resampler == nil {
		return encode(samples), nil
	}
	out, err := c.resampler.Process(samples)
	if err != nil {
		return nil, fmt.Errorf("capture: resample: %w", err)
	}
	return encode(out), nil
}

// decode converts little-endian int16 PCM to mono samples in [-1, 1).
func decode(b []byte, stereo bool) []float64 {
	if stereo {
		out := make([]float64, len(b)/4)
		for i := range out {
			l := int16(b[i*4]) | int16(b[i*4+1])<<8
			r := int16(b[i*4+2]) | int16(b[i*4+3])<<8
			out[i] = float64((int32(l)+int32(r))/2) / 32768.0
		}
		return out
	}
	out := make([]float64, len(b)/2)
	for i := range out {
		out[i] = float64(int16(b[i*2])|int16(b[i*2+1])<<8) / 32768.0
	}
	return out
}

func encode(samples []float64) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		var v int16
		switch {
		case s >= 1.0:
			v = 32767
		case s < -1.0:
			v = -32768
		default:
			v = int16(s * 32768.0)
		}
		out[i*2] = byte(v)
		out[i*2+1] = byte(v >> 8)
	}
	return out
}

func chunkBytes(f Format, d time.Duration) int {
	frames := int(int64(f.SampleRate) * int64(d) / int64(time.Second))
	if frames < 1 {
		frames = 1
	}
	return frames * f.frameBytes()
}

func sleepUntil(ctx context.Context, t time.Time) bool {
	d := time.Until(t)
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
