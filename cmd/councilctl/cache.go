package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"councilwatch/internal/app"
)

func newCacheCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the local entity cache",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "stats",
			Short: "Show cache statistics",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApp(cmd, open, func(_ context.Context, a *app.App) error {
					st := a.Store.Stats()
					out := cmd.OutOrStdout()
					fmt.Fprintf(out, "Backend: %s\n", a.Config.Cache.Backend)
					fmt.Fprintf(out, "Councils: %d\n", st.Entities)
					fmt.Fprintf(out, "Aggregates: %d\n", st.Aggregates)
					fmt.Fprintf(out, "Recent lists: %d\n", st.RecentItems)
					if !st.Oldest.IsZero() {
						fmt.Fprintf(out, "Oldest entry: %s\n", st.Oldest.UTC().Format(time.RFC3339))
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "clear [council]",
			Short: "Remove one council, or everything, from the cache",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
					key := ""
					if len(args) == 1 {
						c, err := resolveCouncil(a, args[0])
						if err != nil {
							return err
						}
						key = c.Key
					}
					if err := a.Store.Clear(ctx, key); err != nil {
						return fmt.Errorf("clearing cache: %w", err)
					}
					if key == "" {
						fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared.")
					} else {
						fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s.\n", key)
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "prune",
			Short: "Drop expired entries from the cache",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApp(cmd, open, func(_ context.Context, a *app.App) error {
					// Opening the cache already drops what expired while it was on disk.
					a.Store.Prune()
					fmt.Fprintf(cmd.OutOrStdout(), "Expired entries removed; %d council(s) remain.\n", a.Store.Stats().Entities)
					return nil
				})
			},
		},
	)
	return cmd
}
