package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"encodeflow/internal/encodingcom"
)

func newCallbackCommand(ctx *commandContext) *cobra.Command {
	var inline string

	cmd := &cobra.Command{
		Use:   "callback [file|-]",
		Short: "Process a provider completion notification",
		Long: "Process a provider completion notification.\n\n" +
			"The notification XML is read from the given file, from --xml, or from stdin.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reader, closeInput, err := callbackInput(cmd, args, inline)
			if err != nil {
				return err
			}
			defer closeInput()

			payload, err := encodingcom.ParseCallback(reader)
			if err != nil {
				return err
			}

			return ctx.withRuntime(func(rt *runtime) error {
				if err := rt.manager.ProcessCallback(cmd.Context(), payload); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Processed notification for media id %s\n", strings.TrimSpace(payload.MediaID))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&inline, "xml", "", "Notification XML passed inline")
	return cmd
}

func callbackInput(cmd *cobra.Command, args []string, inline string) (io.Reader, func(), error) {
	noop := func() {}
	if strings.TrimSpace(inline) != "" {
		if len(args) > 0 {
			return nil, noop, errors.New("use either --xml or a file argument, not both")
		}
		return strings.NewReader(inline), noop, nil
	}
	if len(args) == 1 && args[0] != "-" {
		file, err := os.Open(args[0])
		if err != nil {
			return nil, noop, fmt.Errorf("open notification: %w", err)
		}
		return file, func() { _ = file.Close() }, nil
	}
	in := cmd.InOrStdin()
	if isInteractive(in) {
		return nil, noop, errors.New("no notification given; pass a file, --xml, or pipe XML on stdin")
	}
	return in, noop, nil
}

func isInteractive(reader io.Reader) bool {
	file, ok := reader.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
