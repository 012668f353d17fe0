package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/haivivi/wsstream/pkg/cli"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
	Long: `Manage wsstream CLI configuration.

Configuration is stored in ~/.wsstream/config.yaml.
Multiple contexts can be defined for different endpoints or accounts.`,
}

var configAddContextCmd = &cobra.Command{
	Use:   "add-context <name>",
	Short: "Add or replace a context",
	Long: `Add a context pointing at a streaming endpoint.

Examples:
  wsstream config add-context local --endpoint ws://localhost:8765
  wsstream config add-context prod --endpoint wss://api.example.com --api-key sk-xxxxx \
      --model nova-2 --language en-US --keyword giztoy --header X-Team=asr`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		flags := cmd.Flags()
		endpoint, _ := flags.GetString("endpoint")
		apiKey, _ := flags.GetString("api-key")
		model, _ := flags.GetString("model")
		language, _ := flags.GetString("language")
		rate, _ := flags.GetInt("sample-rate")
		keywords, _ := flags.GetStringSlice("keyword")
		headerArgs, _ := flags.GetStringArray("header")
		extraArgs, _ := flags.GetStringArray("extra")
		attempts, _ := flags.GetInt("retry-attempts")
		retryDelay, _ := flags.GetDuration("retry-delay")
		keepalive, _ := flags.GetDuration("keepalive")
		idle, _ := flags.GetDuration("idle-timeout")

		headers, err := parsePairs(headerArgs)
		if err != nil {
			return fmt.Errorf("invalid --header: %w", err)
		}
		extra, err := parsePairs(extraArgs)
		if err != nil {
			return fmt.Errorf("invalid --extra: %w", err)
		}

		ctx := &cli.Context{
			Endpoint:      endpoint,
			APIKey:        apiKey,
			Model:         model,
			Language:      language,
			SampleRate:    rate,
			Keywords:      keywords,
			Headers:       headers,
			RetryAttempts: attempts,
			RetryDelayMS:  int(retryDelay / time.Millisecond),
			KeepaliveMS:   int(keepalive / time.Millisecond),
			IdleMS:        int(idle / time.Millisecond),
			Extra:         extra,
		}

		cfg, err := getConfig()
		if err != nil {
			return err
		}
		if err := cfg.AddContext(name, ctx); err != nil {
			return err
		}

		cli.PrintSuccess("Context '%s' added successfully", name)
		return nil
	},
}

var configDeleteContextCmd = &cobra.Command{
	Use:   "delete-context <name>",
	Short: "Delete a context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		if err := cfg.DeleteContext(args[0]); err != nil {
			return err
		}
		cli.PrintSuccess("Context '%s' deleted", args[0])
		return nil
	},
}

var configUseContextCmd = &cobra.Command{
	Use:   "use-context <name>",
	Short: "Set the default context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		if err := cfg.UseContext(args[0]); err != nil {
			return err
		}
		cli.PrintSuccess("Switched to context '%s'", args[0])
		return nil
	},
}

var configGetContextCmd = &cobra.Command{
	Use:   "get-context",
	Short: "Show the current context",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		if cfg.CurrentContext == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "No current context set")
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), cfg.CurrentContext)
		}
		return nil
	},
}

var configListContextsCmd = &cobra.Command{
	Use:   "list-contexts",
	Short: "List all contexts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		if len(cfg.Contexts) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No contexts configured")
			return nil
		}

		for _, name := range cfg.ListContexts() {
			marker := "  "
			if name == cfg.CurrentContext {
				marker = "* "
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s%s\t%s\n", marker, name, cfg.Contexts[name].Endpoint)
		}
		return nil
	},
}

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "View full configuration with secrets masked",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		view := &cli.Config{
			CurrentContext: cfg.CurrentContext,
			Contexts:       make(map[string]*cli.Context, len(cfg.Contexts)),
		}
		for name, ctx := range cfg.Contexts {
			view.Contexts[name] = ctx.Redacted()
		}

		format, err := getFormat()
		if err != nil {
			return err
		}
		return cli.Output(view, cli.OutputOptions{Format: format, Writer: cmd.OutOrStdout()})
	},
}

func init() {
	f := configAddContextCmd.Flags()
	f.StringP("endpoint", "e", "", "endpoint base URL, ws:// or wss:// (required)")
	f.StringP("api-key", "k", "", "API key sent as 'Authorization: Token <key>'")
	f.String("model", "", "default model")
	f.String("language", "", "default language")
	f.Int("sample-rate", 0, "default sample rate of the sent audio")
	f.StringSlice("keyword", nil, "keyword to boost (repeatable)")
	f.StringArray("header", nil, "extra request header as Key=Value (repeatable)")
	f.StringArray("extra", nil, "extra query parameter as key=value (repeatable)")
	f.Int("retry-attempts", 0, "connection attempts (default 20)")
	f.Duration("retry-delay", 0, "pause between connection attempts (default 500ms)")
	f.Duration("keepalive", 0, "ping interval while no audio is sent (default 15s)")
	f.Duration("idle-timeout", 0, "give up when nothing is received for this long (default 30s)")
	_ = configAddContextCmd.MarkFlagRequired("endpoint")

	configCmd.AddCommand(configAddContextCmd)
	configCmd.AddCommand(configDeleteContextCmd)
	configCmd.AddCommand(configUseContextCmd)
	configCmd.AddCommand(configGetContextCmd)
	configCmd.AddCommand(configListContextsCmd)
	configCmd.AddCommand(configViewCmd)
}
