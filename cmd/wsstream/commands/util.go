package commands

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/x/term"

	"github.com/haivivi/wsstream/pkg/cli"
	"github.com/haivivi/wsstream/pkg/retry"
	"github.com/haivivi/wsstream/pkg/wsstream"
)

// parsePairs parses repeated key=value flag values.
func parsePairs(args []string) (map[string]string, error) {
	if len(args) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(args))
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("%q is not key=value", a)
		}
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}

// clientOptions turns the connection settings of a context into stream
// client options. Zero settings keep the client defaults.
func clientOptions(ctx *cli.Context, logger *slog.Logger) []wsstream.Option {
	opts := []wsstream.Option{wsstream.WithLogger(logger)}
	for k, v := range ctx.Headers {
		opts = append(opts, wsstream.WithHeader(k, v))
	}
	if ctx.RetryAttempts > 0 || ctx.RetryDelayMS > 0 {
		policy := retry.Policy{
			MaxAttempts:    wsstream.DefaultRetryAttempts,
			Delay:          wsstream.DefaultRetryDelay,
			AttemptTimeout: wsstream.DefaultConnectTimeout,
		}
		if ctx.RetryAttempts > 0 {
			policy.MaxAttempts = ctx.RetryAttempts
		}
		if ctx.RetryDelayMS > 0 {
			policy.Delay = cli.Millis(ctx.RetryDelayMS)
		}
		opts = append(opts, wsstream.WithRetryPolicy(policy))
	}
	if ctx.KeepaliveMS > 0 {
		opts = append(opts, wsstream.WithKeepaliveInterval(cli.Millis(ctx.KeepaliveMS)))
	}
	if ctx.IdleMS > 0 {
		opts = append(opts, wsstream.WithIdleTimeout(cli.Millis(ctx.IdleMS)))
	}
	return opts
}

// terminalWidth reports whether f is a terminal and its width.
func terminalWidth(f *os.File) (bool, int) {
	if f == nil || !term.IsTerminal(f.Fd()) {
		return false, 0
	}
	w, _, err := term.GetSize(f.Fd())
	if err != nil {
		return true, 0
	}
	return true, w
}
