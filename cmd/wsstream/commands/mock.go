package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/haivivi/wsstream/pkg/listen/listentest"
)

var (
	flagMockAddr    string
	flagMockBinary  bool
	flagMockInterim time.Duration
	flagMockWords   string
)

var mockServerCmd = &cobra.Command{
	Use:   "mock-server",
	Short: "Run a local listen server for testing",
	Long: `Run a WebSocket server that speaks the listen protocol.

It answers audio with interim results, and CloseStream with a final result
followed by a normal close. No real recognition takes place: the transcript
is a fixed sentence revealed word by word.

Examples:
  wsstream mock-server --addr :8765
  wsstream mock-server --addr 127.0.0.1:9000 --binary --words "hello world"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)
		go func() {
			select {
			case <-sigCh:
				slog.Info("shutting down")
				cancel()
			case <-ctx.Done():
			}
		}()

		h := listentest.NewHandler(listentest.Config{
			InterimEvery: flagMockInterim,
			Binary:       flagMockBinary,
			Words:        flagMockWords,
			Logger:       slog.Default(),
		})
		return listentest.ListenAndServe(ctx, flagMockAddr, h)
	},
}

func init() {
	mockServerCmd.Flags().StringVar(&flagMockAddr, "addr", ":8765", "listen address")
	mockServerCmd.Flags().BoolVar(&flagMockBinary, "binary", false, "send results as msgpack binary frames")
	mockServerCmd.Flags().DurationVar(&flagMockInterim, "interim", 300*time.Millisecond, "audio between two interim results")
	mockServerCmd.Flags().StringVar(&flagMockWords, "words", listentest.DefaultWords, "transcript to reveal")
}
