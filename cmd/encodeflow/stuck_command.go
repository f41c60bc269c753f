package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"encodeflow/internal/assets"
)

func newStuckCommand(ctx *commandContext) *cobra.Command {
	var (
		olderThan time.Duration
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "stuck",
		Short: "List jobs that have been started for too long",
		Long: "List root assets whose provider job has been in the started state longer than a threshold.\n\n" +
			"Callbacks can be lost; stuck jobs are candidates for manual resubmission once the provider side is checked.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				threshold := rt.manager.StuckThreshold()
				var (
					stuck []*assets.Asset
					err   error
				)
				if cmd.Flags().Changed("older-than") {
					if olderThan <= 0 {
						return fmt.Errorf("--older-than must be positive, got %s", olderThan)
					}
					threshold = olderThan
					stuck, err = rt.store.StuckStarted(cmd.Context(), time.Now().Add(-olderThan))
				} else {
					stuck, err = rt.manager.StuckJobs(cmd.Context())
				}
				if err != nil {
					return err
				}

				if asJSON {
					views := make([]assetView, 0, len(stuck))
					for _, asset := range stuck {
						views = append(views, newAssetView(asset))
					}
					return writeJSON(cmd, views)
				}

				out := cmd.OutOrStdout()
				if len(stuck) == 0 {
					fmt.Fprintf(out, "No jobs started more than %s ago\n", threshold)
					return nil
				}
				now := time.Now()
				rows := make([][]string, 0, len(stuck))
				for _, asset := range stuck {
					rows = append(rows, []string{
						strconv.FormatInt(asset.ID, 10),
						asset.Filename,
						valueOrDash(asset.ExternalEncodingID),
						formatAge(asset.StatusChangedAt, now),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Filename", "Media ID", "Started"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Override the configured stuck threshold (e.g. 90m)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
