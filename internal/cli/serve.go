package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/matzehuels/figura/internal/app"
	"github.com/matzehuels/figura/internal/server"
)

func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve exposes generation, export, the tool catalog and draft sync over
HTTP. It shuts down gracefully on interrupt.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := withLogger(cmd.Context(), c.Logger)
			cfg := c.config.Server
			if cmd.Flags().Changed("addr") {
				cfg.Addr = addr
			}

			a, err := c.newApp(ctx, app.Options{})
			if err != nil {
				return err
			}
			defer a.Close(context.WithoutCancel(ctx))

			srv := server.New(a.Runner, a.Syncer, a.Tools, c.Logger)
			srv.Cache, srv.Keyer = a.Cache, a.Keyer
			srv.MaxBodyBytes = cfg.MaxBodyBytes

			printInfo("Listening on %s", StyleHighlight.Render(cfg.Addr))
			return srv.Serve(ctx, cfg.Addr, cfg.ReadTimeout.Duration, cfg.WriteTimeout.Duration)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}
