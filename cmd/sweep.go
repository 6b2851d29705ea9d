// File: cmd/sweep.go
package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/boxlens/api/schemas"
	"github.com/xkilldash9x/boxlens/internal/inspector"
)

func newSweepCmd(a *app) *cobra.Command {
	var (
		screenshot string
		detail     bool
	)
	cmd := &cobra.Command{
		Use:   "sweep <url>",
		Short: "Overlay every visible element of a page once",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			url := args[0]

			session, err := a.openPage(ctx, url)
			if err != nil {
				return err
			}
			defer session.Close()

			ctrl, err := a.newController(schemas.State{Enabled: true, SweepMode: true}, inspector.Deps{
				Source:   session,
				Surface:  session,
				Notifier: session,
			})
			if err != nil {
				return err
			}
			if err := ctrl.Rebuild(ctx); err != nil {
				return err
			}
			res := ctrl.LastSweep()
			a.logger.Info("Sweep finished.",
				zap.String("url", url),
				zap.Int("processed", res.Processed),
				zap.Int("bands", len(res.Bands)),
				zap.Stringer("capped", res.Capped),
			)

			if screenshot != "" {
				img, err := session.Screenshot(ctx)
				if err != nil {
					return err
				}
				if err := writePNG(screenshot, img); err != nil {
					return err
				}
				a.logger.Info("Screenshot written.", zap.String("path", screenshot))
			}
			limits := inspector.OptionsFromConfig(a.cfg.Inspector()).Limits()
			return writeJSON(cmd.OutOrStdout(), newSweepReport(url, res, limits, detail))
		},
	}
	cmd.Flags().StringVar(&screenshot, "screenshot", "", "write a PNG of the overlaid viewport to this path")
	cmd.Flags().BoolVar(&detail, "bands", false, "include every band in the output")
	return cmd
}
