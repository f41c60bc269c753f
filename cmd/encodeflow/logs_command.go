package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"encodeflow/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		query  logs.Query
		follow bool
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent log lines, optionally for one asset or media id",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := filepath.Join(cfg.Paths.LogDir, "encodeflow.log")
			out := cmd.OutOrStdout()

			lines, offset, err := logs.Last(path, query)
			if err != nil {
				return err
			}
			for _, line := range lines {
				fmt.Fprintln(out, line)
			}
			if !follow {
				return nil
			}

			followCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return logs.Follow(followCtx, path, offset, query, 0, func(line string) {
				fmt.Fprintln(out, line)
			})
		},
	}

	cmd.Flags().IntVarP(&query.Lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().Int64Var(&query.AssetID, "asset", 0, "Only show lines for this asset id")
	cmd.Flags().StringVar(&query.MediaID, "media-id", "", "Only show lines for this provider media id")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines until interrupted")
	return cmd
}

