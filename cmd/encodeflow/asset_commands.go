package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"encodeflow/internal/assets"
	"encodeflow/internal/services"
)

func newAssetCommand(ctx *commandContext) *cobra.Command {
	assetCmd := &cobra.Command{
		Use:   "asset",
		Short: "Create and inspect assets",
	}

	assetCmd.AddCommand(newAssetCreateCommand(ctx))
	assetCmd.AddCommand(newAssetShowCommand(ctx))
	assetCmd.AddCommand(newAssetListCommand(ctx))

	return assetCmd
}

func newAssetCreateCommand(ctx *commandContext) *cobra.Command {
	var (
		contentType string
		size        int64
		width       int
		height      int
	)

	cmd := &cobra.Command{
		Use:   "create <filename>",
		Short: "Record an uploaded original and submit it for encoding",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := assets.NewRoot{
				Filename:    args[0],
				ContentType: contentType,
				Size:        size,
			}
			if cmd.Flags().Changed("width") {
				in.Width = &width
			}
			if cmd.Flags().Changed("height") {
				in.Height = &height
			}

			return ctx.withRuntime(func(rt *runtime) error {
				asset, err := rt.manager.Create(cmd.Context(), in)
				if asset != nil {
					printAssetSummary(cmd, asset)
				}
				if err != nil {
					if asset != nil && asset.ID > 0 {
						fmt.Fprintf(cmd.ErrOrStderr(), "Retry with: encodeflow resubmit %d\n", asset.ID)
					}
					return err
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&contentType, "content-type", "", "MIME type of the uploaded file")
	cmd.Flags().Int64Var(&size, "size", 0, "Size of the uploaded file in bytes")
	cmd.Flags().IntVar(&width, "width", 0, "Source width in pixels")
	cmd.Flags().IntVar(&height, "height", 0, "Source height in pixels")
	_ = cmd.MarkFlagRequired("content-type")

	return cmd
}

func printAssetSummary(cmd *cobra.Command, asset *assets.Asset) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Asset %d (%s)\n", asset.ID, asset.Filename)
	fmt.Fprintf(out, "Status: %s\n", statusLabel(asset.EncodingStatus))
	if asset.ExternalEncodingID != "" {
		fmt.Fprintf(out, "Media ID: %s\n", asset.ExternalEncodingID)
	}
}

func newAssetShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a root asset and its derived files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseAssetIDs(args)
			if err != nil {
				return err
			}
			return ctx.withRuntime(func(rt *runtime) error {
				asset, err := rt.store.GetByID(cmd.Context(), ids[0])
				if err != nil {
					return err
				}
				if asset == nil {
					return fmt.Errorf("asset %d not found", ids[0])
				}
				children, err := rt.store.Children(cmd.Context(), asset.ID)
				if err != nil {
					return err
				}

				if asJSON {
					view := newAssetView(asset)
					for _, child := range children {
						view.Derived = append(view.Derived, newAssetView(child))
					}
					return writeJSON(cmd, view)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Asset %d: %s\n", asset.ID, asset.Filename)
				fmt.Fprintf(out, "Content type: %s\n", asset.ContentType)
				if asset.IsRoot() {
					fmt.Fprintf(out, "Status: %s (since %s)\n", statusLabel(asset.EncodingStatus), formatTime(asset.StatusChangedAt))
					fmt.Fprintf(out, "Media ID: %s\n", valueOrDash(asset.ExternalEncodingID))
				} else {
					fmt.Fprintf(out, "Derived from asset %d as %q\n", *asset.ParentID, asset.Suffix)
				}
				if len(children) == 0 {
					fmt.Fprintln(out, "No derived files")
					return nil
				}
				rows := make([][]string, 0, len(children))
				for _, child := range children {
					rows = append(rows, []string{
						strconv.FormatInt(child.ID, 10),
						child.Suffix,
						child.Filename,
						child.ContentType,
						formatDimensions(child.Width, child.Height),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Suffix", "Filename", "Type", "Size"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newAssetListCommand(ctx *commandContext) *cobra.Command {
	var (
		statusFilters []string
		asJSON        bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List root assets",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses := make([]assets.Status, 0, len(statusFilters))
			for _, value := range statusFilters {
				status, err := assets.ParseStatus(value)
				if err != nil {
					return err
				}
				statuses = append(statuses, status)
			}

			return ctx.withRuntime(func(rt *runtime) error {
				roots, err := rt.store.ListRoots(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if asJSON {
					views := make([]assetView, 0, len(roots))
					for _, root := range roots {
						views = append(views, newAssetView(root))
					}
					return writeJSON(cmd, views)
				}
				out := cmd.OutOrStdout()
				if len(roots) == 0 {
					fmt.Fprintln(out, "No assets found")
					return nil
				}
				rows := make([][]string, 0, len(roots))
				for _, root := range roots {
					rows = append(rows, []string{
						strconv.FormatInt(root.ID, 10),
						root.Filename,
						statusLabel(root.EncodingStatus),
						valueOrDash(root.ExternalEncodingID),
						formatTime(root.StatusChangedAt),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Filename", "Status", "Media ID", "Changed"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&statusFilters, "status", "s", nil, "Filter by status (init, started, done, error)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func describeFailure(err error) string {
	switch {
	case errors.Is(err, services.ErrInvalidTransition):
		return "job is already in progress"
	case errors.Is(err, services.ErrNotFound):
		return "not found"
	case errors.Is(err, services.ErrValidation):
		return strings.TrimSpace(err.Error())
	default:
		return err.Error()
	}
}

