package cli

import (
	"github.com/spf13/cobra"

	"msgboard/relay/internal/app"
)

// NewServeCommand runs the front end and the listener in one process.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP front end and the ingest listener",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(cmd.Context(), rootOpts.Config, app.ModeAll, app.WithLogger(rootOpts.Logger))
		},
	}
}

// NewWebCommand runs only the HTTP front end. Submissions go to the
// configured listener address.
func NewWebCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "web",
		Short: "Run only the HTTP front end",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(cmd.Context(), rootOpts.Config, app.ModeWeb, app.WithLogger(rootOpts.Logger))
		},
	}
}

// NewListenCommand runs only the ingest listener, the sole store writer.
func NewListenCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "listen",
		Short: "Run only the datagram ingest listener",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(cmd.Context(), rootOpts.Config, app.ModeListener, app.WithLogger(rootOpts.Logger))
		},
	}
}
