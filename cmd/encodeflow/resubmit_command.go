package main

import (
	"errors"
	"fmt"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"encodeflow/internal/assets"
)

func newResubmitCommand(ctx *commandContext) *cobra.Command {
	var (
		failed   bool
		parallel int
	)

	cmd := &cobra.Command{
		Use:   "resubmit [id...]",
		Short: "Submit finished or failed assets for encoding again",
		RunE: func(cmd *cobra.Command, args []string) error {
			if failed == (len(args) > 0) {
				return errors.New("specify asset ids or --failed (but not both)")
			}
			ids, err := parseAssetIDs(args)
			if err != nil {
				return err
			}
			if parallel < 1 {
				parallel = 1
			}

			return ctx.withRuntime(func(rt *runtime) error {
				if failed {
					roots, err := rt.store.ListRoots(cmd.Context(), assets.StatusError)
					if err != nil {
						return err
					}
					for _, root := range roots {
						ids = append(ids, root.ID)
					}
					if len(ids) == 0 {
						fmt.Fprintln(cmd.OutOrStdout(), "No failed assets to resubmit")
						return nil
					}
				}

				var (
					mu       sync.Mutex
					failures int
				)
				out := cmd.OutOrStdout()
				group, groupCtx := errgroup.WithContext(cmd.Context())
				group.SetLimit(parallel)
				for _, id := range ids {
					group.Go(func() error {
						asset, err := rt.manager.Resubmit(groupCtx, id)
						mu.Lock()
						defer mu.Unlock()
						switch {
						case err != nil:
							failures++
							fmt.Fprintf(out, "Asset %d: %s\n", id, describeFailure(err))
						case asset.EncodingStatus == assets.StatusStarted:
							fmt.Fprintf(out, "Asset %d: started (media id %s)\n", id, asset.ExternalEncodingID)
						default:
							failures++
							fmt.Fprintf(out, "Asset %d: submission failed, now %s\n", id, statusLabel(asset.EncodingStatus))
						}
						return nil
					})
				}
				if err := group.Wait(); err != nil {
					return err
				}
				if failures > 0 {
					return fmt.Errorf("%d of %d resubmissions did not start", failures, len(ids))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&failed, "failed", false, "Resubmit every root asset in the error state")
	cmd.Flags().IntVarP(&parallel, "parallel", "p", 1, "Number of submissions to run concurrently")
	return cmd
}
