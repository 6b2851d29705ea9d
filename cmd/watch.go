// File: cmd/watch.go
package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/boxlens/internal/inspector"
	"github.com/xkilldash9x/boxlens/internal/overlay/schedule"
	"github.com/xkilldash9x/boxlens/internal/prefs"
)

// toggleKeys maps a line typed on stdin to the intent it fires.
var toggleKeys = map[string]inspector.Intent{
	"t": inspector.ToggleEnabled,
	"m": inspector.ToggleMode,
	"l": inspector.ToggleLegend,
}

func newWatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <url>",
		Short: "Open a page and keep the overlay live while it is used",
		Long: `Opens the page and keeps the overlay in sync with
pointer, scroll, resize and DOM changes until interrupted. Pass
--headless=false to interact with the page yourself.

Type a key and press enter to toggle:
  t  inspector on/off
  m  hover / all-elements mode
  l  legend on/off`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.watch(cmd.Context(), args[0], cmd.InOrStdin())
		},
	}
	return cmd
}

func (a *app) watch(ctx context.Context, url string, stdin io.Reader) error {
	store, err := prefs.FromConfig(a.cfg.Prefs())
	if err != nil {
		return err
	}
	state, err := store.Load()
	if err != nil {
		a.logger.Warn("Could not read saved preferences, using defaults.", zap.String("path", store.Path()), zap.Error(err))
	}

	sess, err := a.openPage(ctx, url)
	if err != nil {
		return err
	}
	defer sess.Close()

	ctrl, err := a.newController(state, inspector.Deps{
		Source:   sess,
		Surface:  sess,
		Notifier: sess,
	})
	if err != nil {
		return err
	}

	schedCfg := a.cfg.Scheduler()
	sched := schedule.New(a.logger, ctrl.Pass, schedule.Options{
		FrameInterval:  schedCfg.FrameInterval,
		ResizeDebounce: schedCfg.ResizeDebounce,
	})
	ctrl.SetRequester(sched)

	g, gctx := errgroup.WithContext(ctx)
	triggers, err := sess.Triggers(gctx)
	if err != nil {
		return err
	}

	g.Go(func() error { return sched.Run(gctx) })
	g.Go(func() error {
		for t := range triggers {
			if err := ctrl.HandleTrigger(gctx, t); err != nil {
				a.logger.Warn("Trigger handling failed.", zap.String("kind", string(t.Kind)), zap.Error(err))
			}
		}
		return nil
	})

	// The reader may block on stdin forever, so it lives outside the group and
	// only feeds intents in.
	intents := make(chan inspector.Intent)
	go readIntents(gctx, stdin, intents, a.logger)
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case intent := <-intents:
				next, err := ctrl.Toggle(gctx, intent)
				if err != nil {
					a.logger.Warn("Toggle failed.", zap.String("intent", string(intent)), zap.Error(err))
				}
				if err := store.Save(next); err != nil {
					a.logger.Warn("Failed to save preferences.", zap.Error(err))
				}
			}
		}
	})

	if s := ctrl.State(); s.Enabled && s.SweepMode {
		sched.RequestSoon()
	}
	a.logger.Info("Watching page.", zap.String("url", url), zap.String("mode", string(state.Mode())),
		zap.Bool("enabled", state.Enabled))

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watch stopped: %w", err)
	}
	return nil
}

func readIntents(ctx context.Context, r io.Reader, out chan<- inspector.Intent, logger *zap.Logger) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		key := strings.ToLower(strings.TrimSpace(sc.Text()))
		if key == "" {
			continue
		}
		intent, ok := toggleKeys[key]
		if !ok {
			logger.Info("Unknown key, use t, m or l.", zap.String("key", key))
			continue
		}
		select {
		case out <- intent:
		case <-ctx.Done():
			return
		}
	}
}
