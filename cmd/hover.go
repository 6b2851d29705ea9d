// File: cmd/hover.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/boxlens/api/schemas"
	"github.com/xkilldash9x/boxlens/internal/inspector"
)

func newHoverCmd(a *app) *cobra.Command {
	var (
		x, y       float64
		screenshot string
	)
	cmd := &cobra.Command{
		Use:   "hover <url>",
		Short: "Inspect the element under a viewport point",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			session, err := a.openPage(ctx, args[0])
			if err != nil {
				return err
			}
			defer session.Close()

			panel := &jsonPanel{out: cmd.OutOrStdout(), log: a.logger}
			ctrl, err := a.newController(schemas.State{Enabled: true}, inspector.Deps{
				Source:   session,
				Surface:  session,
				Panel:    panel,
				Notifier: session,
			})
			if err != nil {
				return err
			}
			if err := ctrl.PointerEnter(ctx, schemas.Point{X: x, Y: y}, 0); err != nil {
				return err
			}
			if !ctrl.Hover().Inspecting() {
				return fmt.Errorf("no inspectable element at (%g, %g)", x, y)
			}

			if screenshot != "" {
				img, err := session.Screenshot(ctx)
				if err != nil {
					return err
				}
				return writePNG(screenshot, img)
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&x, "x", 0, "pointer x in viewport pixels")
	cmd.Flags().Float64Var(&y, "y", 0, "pointer y in viewport pixels")
	cmd.Flags().StringVar(&screenshot, "screenshot", "", "write a PNG of the overlaid viewport to this path")
	return cmd
}
