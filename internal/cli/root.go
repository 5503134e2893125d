package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"msgboard/relay/internal/config"
)

// RootOptions holds global flags and the configuration they resolve to.
type RootOptions struct {
	ConfigFile string
	LogLevel   string

	Config config.Config
	Logger *slog.Logger
}

// NewRootCommand creates the root command for the msgboard CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "msgboard",
		Short: "Message board front end and datagram ingest listener",
		Long: `msgboard serves a small message board. The HTTP front end forwards
every submitted form as one UDP datagram; the ingest listener decodes it
and appends it to a JSON document on disk.`,
		SilenceUsage:  true,
		SilenceErrors: true, // main prints the error
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.ConfigFile)
			if err != nil {
				return err
			}
			if opts.LogLevel != "" {
				cfg.Server.LogLevel = opts.LogLevel
			}
			opts.Config = cfg
			opts.Logger = config.NewLogger(os.Stderr, cfg.Server.LogLevel)
			slog.SetDefault(opts.Logger)
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file (yaml, toml or json)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error); overrides LOG_LEVEL")

	// Add subcommands
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewWebCommand(opts))
	cmd.AddCommand(NewListenCommand(opts))
	cmd.AddCommand(NewMessagesCommand(opts))

	return cmd
}
