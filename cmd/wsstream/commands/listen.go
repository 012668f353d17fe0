package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/haivivi/wsstream/pkg/capture"
	"github.com/haivivi/wsstream/pkg/cli"
	"github.com/haivivi/wsstream/pkg/listen"
)

// ListenRequest configures the listen command. It can be loaded from a YAML
// or JSON file with -f; command line flags override it.
type ListenRequest struct {
	// Input is a raw PCM file, or "-" for stdin.
	Input string `yaml:"input" json:"input"`

	// SampleRate and Stereo describe the input audio.
	// Default: 16000, mono.
	SampleRate int  `yaml:"sample_rate" json:"sample_rate"`
	Stereo     bool `yaml:"stereo" json:"stereo"`

	// TargetRate is the rate sent to the server. Zero sends the context
	// sample rate, or the input rate if the context has none.
	TargetRate int `yaml:"target_rate" json:"target_rate"`

	// ChunkMS is the amount of audio per frame. Default: 100.
	ChunkMS int `yaml:"chunk_ms" json:"chunk_ms"`

	// Realtime paces the upload at playback speed.
	Realtime bool `yaml:"realtime" json:"realtime"`

	Model          string   `yaml:"model" json:"model"`
	Language       string   `yaml:"language" json:"language"`
	Keywords       []string `yaml:"keywords" json:"keywords"`
	InterimResults bool     `yaml:"interim_results" json:"interim_results"`
	Punctuate      bool     `yaml:"punctuate" json:"punctuate"`
}

// ListenSummary is printed when the stream ends.
type ListenSummary struct {
	AudioBytes int64         `yaml:"audio_bytes" json:"audio_bytes"`
	Results    int           `yaml:"results" json:"results"`
	Finals     int           `yaml:"finals" json:"finals"`
	Elapsed    time.Duration `yaml:"elapsed" json:"elapsed"`
}

// newListenRequest returns the defaults overlaid with the context settings.
func newListenRequest(ctx *cli.Context) *ListenRequest {
	return &ListenRequest{
		SampleRate:     listen.DefaultSampleRate,
		TargetRate:     ctx.SampleRate,
		ChunkMS:        int(capture.DefaultChunkDuration / time.Millisecond),
		Model:          ctx.Model,
		Language:       ctx.Language,
		Keywords:       ctx.Keywords,
		InterimResults: true,
		Punctuate:      true,
	}
}

// applyFlags copies the flags the user set explicitly onto req.
func applyFlags(flags *pflag.FlagSet, req *ListenRequest) {
	if flags.Changed("input") {
		req.Input, _ = flags.GetString("input")
	}
	if flags.Changed("rate") {
		req.SampleRate, _ = flags.GetInt("rate")
	}
	if flags.Changed("target-rate") {
		req.TargetRate, _ = flags.GetInt("target-rate")
	}
	if flags.Changed("stereo") {
		req.Stereo, _ = flags.GetBool("stereo")
	}
	if flags.Changed("realtime") {
		req.Realtime, _ = flags.GetBool("realtime")
	}
	if flags.Changed("chunk") {
		d, _ := flags.GetDuration("chunk")
		req.ChunkMS = int(d / time.Millisecond)
	}
	if flags.Changed("model") {
		req.Model, _ = flags.GetString("model")
	}
	if flags.Changed("language") {
		req.Language, _ = flags.GetString("language")
	}
	if flags.Changed("keyword") {
		req.Keywords, _ = flags.GetStringSlice("keyword")
	}
	if flags.Changed("interim") {
		req.InterimResults, _ = flags.GetBool("interim")
	}
	if flags.Changed("punctuate") {
		req.Punctuate, _ = flags.GetBool("punctuate")
	}
}

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Stream PCM audio and print transcripts as they arrive",
	Long: `Stream raw 16-bit little-endian PCM to the context endpoint.

Audio is cut into short chunks and sent while results are printed. When the
input ends the stream is finished gracefully: the server gets an end-of-stream
message and the command waits for its last results.

Examples:
  wsstream listen --input speech.pcm
  wsstream listen --input music.pcm --rate 44100 --stereo --target-rate 16000
  wsstream listen -f listen.yaml -o jsonl`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cctx, err := getContext()
		if err != nil {
			return err
		}

		req := newListenRequest(cctx)
		if inputFile != "" {
			if err := cli.LoadRequest(inputFile, req); err != nil {
				return err
			}
		}
		applyFlags(cmd.Flags(), req)
		if req.Input == "" {
			return fmt.Errorf("input is required, use --input or set input in the -f file")
		}
		if req.Input == "-" && inputFile == "-" {
			return fmt.Errorf("request file and audio cannot both be read from stdin")
		}

		format, err := getFormat()
		if err != nil {
			return err
		}

		var src io.Reader = os.Stdin
		if req.Input != "-" {
			f, err := os.Open(req.Input)
			if err != nil {
				return fmt.Errorf("failed to open input: %w", err)
			}
			defer f.Close()
			src = f
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)
		go func() {
			select {
			case <-sigCh:
				slog.Info("interrupted, closing stream")
				cancel()
			case <-ctx.Done():
			}
		}()

		out := cmd.OutOrStdout()
		live, width := false, 0
		if f, ok := out.(*os.File); ok {
			live, width = terminalWidth(f)
		}

		sum, err := runListen(ctx, cctx, req, listenOutput{
			w:      out,
			format: format,
			live:   live,
			width:  width,
		}, src)
		if err != nil {
			return err
		}
		if format != cli.FormatText {
			slog.Info("stream finished",
				"audio", cli.FormatBytes(sum.AudioBytes),
				"results", sum.Results,
				"elapsed", cli.FormatDuration(sum.Elapsed))
		}
		return nil
	},
}

type listenOutput struct {
	w      io.Writer
	format cli.OutputFormat
	live   bool
	width  int
}

// runListen streams src through a listen session and prints the results.
func runListen(ctx context.Context, cctx *cli.Context, req *ListenRequest, out listenOutput, src io.Reader) (*ListenSummary, error) {
	logger := slog.Default().With("context", cctx.Name)

	cp, err := capture.New(src, capture.Config{
		Source:        capture.Format{SampleRate: req.SampleRate, Stereo: req.Stereo},
		SampleRate:    req.TargetRate,
		ChunkDuration: time.Duration(req.ChunkMS) * time.Millisecond,
		Realtime:      req.Realtime,
		Logger:        logger,
	})
	if err != nil {
		return nil, err
	}

	client, err := listen.NewClient(listen.Params{
		Endpoint:       cctx.Endpoint,
		APIKey:         cctx.APIKey,
		Model:          req.Model,
		Language:       req.Language,
		SampleRate:     cp.Format().SampleRate,
		Channels:       1,
		InterimResults: req.InterimResults,
		Punctuate:      req.Punctuate,
		Keywords:       req.Keywords,
		Extra:          cctx.Extra,
	}, clientOptions(cctx, logger)...)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	streamCtx, stop := context.WithCancel(ctx)
	defer stop()
	results, err := listen.Transcribe(streamCtx, client, cp.Start(streamCtx))
	if err != nil {
		return nil, err
	}

	sum := &ListenSummary{}
	var view *cli.TranscriptView
	var stream *cli.Stream
	if out.format == cli.FormatText {
		view = cli.NewTranscriptView(out.w, cli.NewStyles(cli.DefaultTheme), out.live, out.width)
	} else {
		stream = cli.NewStream(out.w, out.format)
	}

	for r := range results {
		sum.Results++
		if r.IsFinal {
			sum.Finals++
		}
		if view != nil {
			err = view.Show(cli.Line{Start: r.Start, Text: r.Transcript(), Final: r.IsFinal})
		} else {
			err = stream.Write(r)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to write result: %w", err)
		}
	}

	// Stop the capture if the stream ended before the input did.
	stop()
	sum.AudioBytes = cp.Emitted()
	sum.Elapsed = time.Since(start)
	if err := cp.Err(); err != nil {
		return sum, err
	}
	if view != nil {
		_ = view.Summary("%s of audio, %d results in %s",
			cli.FormatBytes(sum.AudioBytes), sum.Results, cli.FormatDuration(sum.Elapsed))
	}
	return sum, nil
}

func init() {
	f := listenCmd.Flags()
	f.StringP("input", "i", "", "raw PCM input file, - for stdin")
	f.Int("rate", listen.DefaultSampleRate, "sample rate of the input")
	f.Int("target-rate", 0, "sample rate sent to the server (default: context or input rate)")
	f.Bool("stereo", false, "input is interleaved stereo, downmixed before sending")
	f.Bool("realtime", false, "send audio no faster than real time")
	f.Duration("chunk", capture.DefaultChunkDuration, "audio per frame")
	f.String("model", "", "model (overrides the context)")
	f.String("language", "", "language (overrides the context)")
	f.StringSlice("keyword", nil, "keyword to boost (repeatable)")
	f.Bool("interim", true, "request interim results")
	f.Bool("punctuate", true, "request punctuation")
}
