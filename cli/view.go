package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ankit-chaubey/exif-extractor/core"
)

func newViewCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "view <image>",
		Short: "Print the metadata report for one image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			s, err := newSession(ctx, cmd, root, false)
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := s.engine.Extract(ctx, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprint(out, core.Render(res.Set, time.Now()))
			if len(res.Failures) > 0 {
				fmt.Fprintf(out, "\n%s reported errors\n", core.Plural(len(res.Failures), "reader"))
			}
			return nil
		},
	}
}
