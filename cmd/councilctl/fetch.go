package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"councilwatch/internal/app"
	"councilwatch/internal/council/directory"
	"councilwatch/internal/council/query"
)

const fetchTimeout = time.Minute

func resolveCouncil(a *app.App, key string) (directory.Council, error) {
	c, ok := a.Directory.Get(key)
	if !ok {
		return directory.Council{}, fmt.Errorf("unknown council %q (known: %v)", key, a.Directory.Keys())
	}
	return c, nil
}

func newFetchCmd(open opener) *cobra.Command {
	var force, departments bool
	cmd := &cobra.Command{
		Use:   "fetch <council>",
		Short: "Print a council summary, fetching it when the cache has nothing servable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				c, err := resolveCouncil(a, args[0])
				if err != nil {
					return err
				}
				ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
				defer cancel()

				if !cmd.Flags().Changed("departments") {
					departments = a.Config.Fetch.IncludeDepartments
				}
				q := a.Queries.Aggregate(ctx, c.Key, query.AggregateOptions{IncludeDepartments: departments})
				defer q.Close()
				st := q.Await(ctx)
				if force {
					st = q.Refresh(ctx)
				}
				if st.Data == nil {
					return errors.New(query.MessageFetchFailed)
				}
				return printJSON(cmd.OutOrStdout(), st)
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "refetch even if the cached summary is fresh")
	cmd.Flags().BoolVar(&departments, "departments", false, "include the department directory (default INCLUDE_DEPARTMENTS)")
	return cmd
}

func newReportsCmd(open opener) *cobra.Command {
	var (
		status string
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "reports <council>",
		Short: "List a council's recent issue reports",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				c, err := resolveCouncil(a, args[0])
				if err != nil {
					return err
				}
				if !c.Reports {
					fmt.Fprintf(cmd.OutOrStdout(), "%s has no report source.\n", c.Name)
					return nil
				}
				ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
				defer cancel()

				q := a.Queries.RecentItems(ctx, c.Key, query.RecentFilter{Status: status, Limit: limit})
				defer q.Close()
				st := q.Await(ctx)
				if st.Error != "" && len(st.Data) == 0 {
					return errors.New(st.Error)
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), st)
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tSTATUS\tCATEGORY\tTITLE")
				for _, item := range st.Data {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", item.ID, item.Status, item.Category, item.Title)
				}
				if err := tw.Flush(); err != nil {
					return err
				}
				if st.IsStale {
					fmt.Fprintf(cmd.OutOrStdout(), "(cached %s, refreshing)\n", st.LastUpdated.Format(time.RFC3339))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "only reports with this status (open, investigating, planned, fixed, closed)")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of reports")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the query state as JSON")
	return cmd
}
