package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/figura/internal/app"
	"github.com/matzehuels/figura/pkg/drafts"
	"github.com/matzehuels/figura/pkg/fallback"
)

func (c *CLI) draftsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drafts",
		Short: "Store and inspect tool drafts",
		Long: `Drafts are JSON snapshots of a tool's editor state. They are pushed to the
configured remote store and kept in a bounded local history when the remote
is unavailable.`,
	}

	cmd.AddCommand(c.draftsSyncCommand())
	cmd.AddCommand(c.draftsListCommand())
	cmd.AddCommand(c.draftsLatestCommand())

	return cmd
}

func (c *CLI) draftsSyncCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sync <tool-id> <payload.json>",
		Short: "Store a draft remotely, or locally when that fails",
		Example: `  figura drafts sync org-chart state.json
  echo '{"input":"A -> B"}' | figura drafts sync flow-chart -`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := withLogger(cmd.Context(), c.Logger)
			payload, err := readInput(args[1], cmd.InOrStdin())
			if err != nil {
				return err
			}
			a, err := c.newApp(ctx, app.Options{})
			if err != nil {
				return err
			}
			defer a.Close(context.WithoutCancel(ctx))

			resp := a.Syncer.Sync(ctx, drafts.Request{ToolID: args[0], Payload: json.RawMessage(payload)})
			switch {
			case !resp.Stored:
				printWarning("%s", resp.Message)
			case resp.Source == fallback.Local:
				printWarning("%s", resp.Message)
				printDetail("id %s", resp.SyncID)
			default:
				printSuccess("%s", resp.Message)
				printDetail("id %s", resp.SyncID)
			}
			return nil
		},
	}
}

// ring opens the local draft history.
func (c *CLI) ring() (*drafts.Ring, error) {
	return drafts.NewRing(c.config.Sync.LocalDir, c.config.Sync.Capacity)
}

func (c *CLI) draftsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list <tool-id>",
		Short: "List locally kept drafts, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.ring()
			if err != nil {
				return err
			}
			entries, err := r.List(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				printInfo("No local drafts for %s", args[0])
				return nil
			}
			now := time.Now()
			for i := len(entries) - 1; i >= 0; i-- {
				e := entries[i]
				fmt.Printf("%s  %s  %s\n",
					StyleValue.Render(e.SyncID),
					StyleDim.Render(formatRelativeTime(e.SyncedAt, now)),
					StyleDim.Render(fmt.Sprintf("%d bytes", len(e.Payload))))
			}
			printDetail("%d of %d kept in %s", len(entries), r.Capacity(), r.Path())
			return nil
		},
	}
}

func (c *CLI) draftsLatestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "latest <tool-id>",
		Short: "Print the newest locally kept draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.ring()
			if err != nil {
				return err
			}
			e, ok, err := r.Latest(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no local drafts for %s", args[0])
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(e.Payload))
			return err
		},
	}
}
