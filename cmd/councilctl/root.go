package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"councilwatch/internal/app"
	"councilwatch/internal/platform/config"
	"councilwatch/internal/platform/logger"
)

// opener builds the wired core a command runs against.
type opener func(ctx context.Context) (*app.App, error)

var flagLogLevel string

func openFromEnv(ctx context.Context) (*app.App, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return app.New(ctx, cfg, logger.NewWithWriter(os.Stderr, flagLogLevel))
}

func newRootCmd(open opener) *cobra.Command {
	root := &cobra.Command{
		Use:          "councilctl",
		Short:        "Inspect and refresh cached council data",
		Long:         "councilctl fetches council summaries and reports through the same cache the councilwatch server uses.",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "log level written to stderr")

	root.AddCommand(
		newFetchCmd(open),
		newReportsCmd(open),
		newCacheCmd(open),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "councilctl %s (commit: %s)\n", version, commit)
		},
	}
}

// withApp opens the core, runs fn and always flushes the cache afterwards.
func withApp(cmd *cobra.Command, open opener, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := open(ctx)
	if err != nil {
		return err
	}
	runErr := fn(ctx, a)
	if err := a.Shutdown(context.WithoutCancel(ctx)); err != nil && runErr == nil {
		return fmt.Errorf("saving cache: %w", err)
	}
	return runErr
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
