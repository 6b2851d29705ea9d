// File: cmd/capture.go
package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newCaptureCmd(a *app) *cobra.Command {
	var (
		out        string
		screenshot string
	)
	cmd := &cobra.Command{
		Use:   "capture <url>",
		Short: "Save a page's layout snapshot for offline replay",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			session, err := a.openPage(ctx, args[0])
			if err != nil {
				return err
			}
			defer session.Close()

			// Screenshot first so nothing of ours is in the image.
			if screenshot != "" {
				img, err := session.Screenshot(ctx)
				if err != nil {
					return err
				}
				if err := writePNG(screenshot, img); err != nil {
					return err
				}
			}
			snap, err := session.CaptureSnapshot(ctx, nil)
			if err != nil {
				return err
			}
			if err := snap.Save(out); err != nil {
				return err
			}
			a.logger.Info("Snapshot written.", zap.String("path", out), zap.Int("elements", len(snap.Nodes)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "snapshot.json", "snapshot output path")
	cmd.Flags().StringVar(&screenshot, "screenshot", "", "also write a PNG of the viewport to this path")
	return cmd
}
