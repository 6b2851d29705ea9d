// File: cmd/replay.go
package cmd

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/boxlens/api/schemas"
	"github.com/xkilldash9x/boxlens/internal/dom"
	"github.com/xkilldash9x/boxlens/internal/inspector"
	"github.com/xkilldash9x/boxlens/internal/overlay/render"
)

func newReplayCmd(a *app) *cobra.Command {
	var (
		base   string
		out    string
		mode   string
		x, y   float64
		detail bool
	)
	cmd := &cobra.Command{
		Use:   "replay <snapshot.json>",
		Short: "Run the overlay engine on a saved snapshot without a browser",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			snap, err := dom.LoadSnapshot(args[0])
			if err != nil {
				return err
			}
			snap.UIPrefix = a.cfg.Inspector().UIPrefix

			var img image.Image
			if base != "" {
				if img, err = readPNG(base); err != nil {
					return err
				}
			} else {
				img = blankPage(snap.Viewport())
			}
			surface := render.NewImageSurface(img, snap.Viewport(), nil)

			state := schemas.State{Enabled: true}
			switch schemas.Mode(mode) {
			case schemas.ModeSweep:
				state.SweepMode = true
			case schemas.ModeHover:
			default:
				return fmt.Errorf("unknown mode %q (want %s or %s)", mode, schemas.ModeSweep, schemas.ModeHover)
			}

			ctrl, err := a.newController(state, inspector.Deps{
				Source:  staticSource{doc: snap},
				Surface: surface,
				Panel:   &jsonPanel{out: cmd.OutOrStdout(), log: a.logger},
			})
			if err != nil {
				return err
			}

			if state.SweepMode {
				if err := ctrl.Rebuild(ctx); err != nil {
					return err
				}
				limits := inspector.OptionsFromConfig(a.cfg.Inspector()).Limits()
				if err := writeJSON(cmd.OutOrStdout(), newSweepReport(snap.URL, ctrl.LastSweep(), limits, detail)); err != nil {
					return err
				}
			} else {
				if err := ctrl.PointerEnter(ctx, schemas.Point{X: x, Y: y}, 0); err != nil {
					return err
				}
				if !ctrl.Hover().Inspecting() {
					return fmt.Errorf("no inspectable element at (%g, %g)", x, y)
				}
			}

			if out != "" {
				if err := writePNG(out, surface.Image()); err != nil {
					return err
				}
				a.logger.Info("Overlay image written.", zap.String("path", out))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&base, "image", "", "screenshot taken with the snapshot (default: blank page)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the overlaid PNG to this path")
	cmd.Flags().StringVar(&mode, "mode", string(schemas.ModeSweep), "sweep or hover")
	cmd.Flags().Float64Var(&x, "x", 0, "pointer x for hover mode")
	cmd.Flags().Float64Var(&y, "y", 0, "pointer y for hover mode")
	cmd.Flags().BoolVar(&detail, "bands", false, "include every band in the output")
	return cmd
}

// blankPage is a white canvas the size of the viewport.
func blankPage(vp schemas.Viewport) image.Image {
	w, h := int(math.Ceil(vp.Width)), int(math.Ceil(vp.Height))
	if w <= 0 || h <= 0 {
		w, h = 1, 1
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return img
}
