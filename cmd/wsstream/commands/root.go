package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/haivivi/wsstream/pkg/cli"
)

var (
	// Global flags
	cfgFile      string
	contextName  string
	inputFile    string
	outputFormat string
	outputJSON   bool
	verbose      bool

	globalConfig *cli.Config
)

var rootCmd = &cobra.Command{
	Use:   "wsstream",
	Short: "Stream audio over WebSocket and print live results",
	Long: `wsstream - full-duplex WebSocket streaming from the command line.

Audio chunks are pushed to the endpoint while results are printed as they
arrive. Endpoints and credentials are kept in named contexts stored in
~/.wsstream/config.yaml, similar to kubectl's context management.

Examples:
  # Run a local server to try things out
  wsstream mock-server --addr :8765

  # Point a context at it
  wsstream config add-context local --endpoint ws://localhost:8765
  wsstream config use-context local

  # Transcribe a raw 16kHz mono PCM file
  wsstream listen --input speech.pcm

  # Stream from another program, printing JSON lines
  arecord -f S16_LE -r 16000 -c 1 -t raw | wsstream listen --input - -o jsonl
`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Command returns the root cobra command for mounting into a parent CLI.
func Command() *cobra.Command {
	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.wsstream/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&contextName, "context", "c", "", "context name to use")
	rootCmd.PersistentFlags().StringVarP(&inputFile, "file", "f", "", "request file (YAML or JSON, - for stdin)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "", "output format: text, json, jsonl, yaml")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "shorthand for -o json")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(listenCmd)
	rootCmd.AddCommand(mockServerCmd)
}

func initConfig() {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	var err error
	globalConfig, err = cli.LoadConfig(cfgFile)
	if err != nil {
		// mock-server runs without a config.
		fmt.Fprintf(os.Stderr, "Warning: config: %v\n", err)
	}
}

func getConfig() (*cli.Config, error) {
	if globalConfig == nil {
		return nil, fmt.Errorf("configuration not initialized")
	}
	return globalConfig, nil
}

// getContext returns the context selected with -c, or the current one.
func getContext() (*cli.Context, error) {
	cfg, err := getConfig()
	if err != nil {
		return nil, err
	}

	ctx, err := cfg.ResolveContext(contextName)
	if err != nil {
		if contextName == "" {
			return nil, fmt.Errorf("no context specified. Use -c flag or set a default context with 'wsstream config use-context'")
		}
		return nil, err
	}
	return ctx, nil
}

// getFormat resolves -o and --json.
func getFormat() (cli.OutputFormat, error) {
	if outputJSON {
		return cli.FormatJSON, nil
	}
	return cli.ParseFormat(outputFormat)
}
