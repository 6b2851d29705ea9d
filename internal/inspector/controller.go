// Package inspector is the top-level controller. It owns the hover state
// machine and the persisted flags, and decides which pass a host trigger
// leads to.
package inspector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/boxlens/api/schemas"
	"github.com/xkilldash9x/boxlens/internal/dom"
	"github.com/xkilldash9x/boxlens/internal/overlay/gaps"
	"github.com/xkilldash9x/boxlens/internal/overlay/geometry"
	"github.com/xkilldash9x/boxlens/internal/overlay/metrics"
	"github.com/xkilldash9x/boxlens/internal/overlay/render"
	"github.com/xkilldash9x/boxlens/internal/overlay/sweep"
)

// Source captures a consistent read of the page. pointer is the last known
// pointer position, used for the host-side hit test, and may be nil.
type Source interface {
	Capture(ctx context.Context, pointer *schemas.Point) (dom.Document, error)
}

// Panel displays the hover summary.
type Panel interface {
	Show(schemas.Summary)
	Hide()
}

// Notifier shows a short-lived, non-blocking message to the user.
type Notifier interface {
	Notify(ctx context.Context, message string, ttl time.Duration) error
}

// HoverState is a snapshot of the hover state machine. Target is zero when
// idle.
type HoverState struct {
	Target  int
	Pointer *schemas.Point
}

// Inspecting reports whether an element is tracked.
func (h HoverState) Inspecting() bool { return h.Target != 0 }

// Controller wires the overlay engine to a page. Its methods are safe for
// concurrent use. Every capture-to-render sequence runs under passMu, so
// passes and toggles apply one at a time in the order they acquire it.
type Controller struct {
	logger   *zap.Logger
	opts     Options
	source   Source
	hover    *render.Renderer
	sweep    *render.Renderer
	panel    Panel
	notifier Notifier
	geo      geometry.Calculator
	scanner  *sweep.Scanner

	passMu sync.Mutex

	mu        sync.Mutex
	state     schemas.State
	target    int
	pointer   *schemas.Point
	requester Requester
	last      schemas.SweepResult
}

// Deps are the controller's collaborators. Panel and Notifier are optional.
type Deps struct {
	Source   Source
	Surface  render.Surface
	Palette  render.Palette
	Panel    Panel
	Notifier Notifier
}

// New builds a controller starting from the given state.
func New(logger *zap.Logger, opts Options, initial schemas.State, deps Deps) (*Controller, error) {
	if deps.Source == nil {
		return nil, errors.New("inspector: a page source is required")
	}
	if deps.Surface == nil {
		return nil, errors.New("inspector: a render surface is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	geo := geometry.NewCalculator(opts.MinLabelThickness)
	gapCalc := gaps.Calculator{RowEpsilon: opts.RowEpsilon, ColumnEpsilon: opts.ColumnEpsilon, Geometry: geo}
	if gapCalc.RowEpsilon <= 0 {
		gapCalc.RowEpsilon = gaps.DefaultEpsilon
	}
	if gapCalc.ColumnEpsilon <= 0 {
		gapCalc.ColumnEpsilon = gaps.DefaultEpsilon
	}

	return &Controller{
		logger:   logger.Named("inspector"),
		opts:     opts,
		source:   deps.Source,
		hover:    render.NewRenderer(logger, deps.Surface, render.LayerHover, deps.Palette),
		sweep:    render.NewRenderer(logger, deps.Surface, render.LayerSweep, deps.Palette),
		panel:    deps.Panel,
		notifier: deps.Notifier,
		geo:      geo,
		scanner:  sweep.NewScanner(logger, geo, gapCalc),
		state:    initial,
	}, nil
}

// SetRequester routes deferred recomputes through r. Without one, triggers
// recompute synchronously.
func (c *Controller) SetRequester(r Requester) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requester = r
}

// State returns the current flags.
func (c *Controller) State() schemas.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Hover returns the hover state machine's current state.
func (c *Controller) Hover() HoverState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return HoverState{Target: c.target, Pointer: c.pointer}
}

// LastSweep returns the result of the most recent sweep pass.
func (c *Controller) LastSweep() schemas.SweepResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// PointerMove records the pointer position without recomputing.
func (c *Controller) PointerMove(p schemas.Point) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pointer = &p
}

// PointerEnter moves the hover target to the element under p, or to key when
// the host already resolved it. Inspector UI and degenerate elements never
// become the target.
func (c *Controller) PointerEnter(ctx context.Context, p schemas.Point, key int) error {
	c.passMu.Lock()
	defer c.passMu.Unlock()

	c.mu.Lock()
	c.pointer = &p
	state := c.state
	c.mu.Unlock()
	if !state.Enabled || state.SweepMode {
		return nil
	}

	doc, err := c.source.Capture(ctx, &p)
	if err != nil {
		return fmt.Errorf("failed to capture page: %w", err)
	}
	var (
		el dom.Element
		ok bool
	)
	if key != 0 {
		el, ok = doc.Lookup(key)
	} else {
		el, ok = doc.ElementAt(p.X, p.Y)
	}
	if !ok || el.IsInspectorUI() {
		return nil
	}
	return c.enter(ctx, doc, el, false)
}

// Scroll keeps the overlay glued to content. In sweep mode it rebuilds; in
// hover mode it re-resolves the element under the last pointer position.
func (c *Controller) Scroll(ctx context.Context) error {
	c.passMu.Lock()
	defer c.passMu.Unlock()

	c.mu.Lock()
	state, pointer := c.state, c.pointer
	c.mu.Unlock()

	switch {
	case !state.Enabled:
		return nil
	case state.SweepMode:
		return c.rebuild(ctx)
	case pointer == nil:
		return nil
	}

	doc, err := c.source.Capture(ctx, pointer)
	if err != nil {
		return fmt.Errorf("failed to capture page: %w", err)
	}
	el, ok := doc.ElementAt(pointer.X, pointer.Y)
	if !ok || el.IsInspectorUI() {
		return c.recheck(ctx)
	}
	return c.enter(ctx, doc, el, false)
}

// Recheck re-reads the current hover target and drops back to idle if it has
// become degenerate or detached.
func (c *Controller) Recheck(ctx context.Context) error {
	c.passMu.Lock()
	defer c.passMu.Unlock()
	return c.recheck(ctx)
}

func (c *Controller) recheck(ctx context.Context) error {
	c.mu.Lock()
	state, target, pointer := c.state, c.target, c.pointer
	c.mu.Unlock()
	if !state.Enabled || state.SweepMode || target == 0 {
		return nil
	}

	doc, err := c.source.Capture(ctx, pointer)
	if err != nil {
		return fmt.Errorf("failed to capture page: %w", err)
	}
	el, ok := doc.Lookup(target)
	if !ok {
		c.logger.Debug("Hover target left the document.", zap.Int("key", target))
		return c.toIdle(ctx)
	}
	return c.enter(ctx, doc, el, true)
}

// enter is the Inspecting (re-)entry action.
func (c *Controller) enter(ctx context.Context, doc dom.Document, el dom.Element, recheck bool) error {
	snap, err := metrics.Extract(el, doc.Viewport())
	if err != nil {
		if !errors.Is(err, metrics.ErrDegenerate) {
			return err
		}
		if recheck || c.Hover().Target == el.Key() {
			c.logger.Debug("Hover target is degenerate.", zap.Int("key", el.Key()), zap.Error(err))
			return c.toIdle(ctx)
		}
		return nil
	}

	var bands []schemas.Band
	if outline, ok := c.geo.Outline(snap.Box); ok {
		bands = append(bands, outline)
	}
	bands = append(bands, c.geo.OutsetBands(snap.Box, snap.Margin, schemas.RoleMargin)...)
	bands = append(bands, c.geo.InsetBands(snap.Box, snap.Padding, schemas.RolePadding)...)
	if err := c.hover.Render(ctx, bands); err != nil {
		return err
	}

	c.mu.Lock()
	c.target = el.Key()
	c.mu.Unlock()

	if c.panel != nil {
		sum, err := metrics.Summarize(el)
		if err != nil {
			c.logger.Debug("Could not summarize hover target.", zap.Int("key", el.Key()), zap.Error(err))
		} else {
			c.panel.Show(sum)
		}
	}
	return nil
}

func (c *Controller) toIdle(ctx context.Context) error {
	c.mu.Lock()
	c.target = 0
	c.mu.Unlock()
	if c.panel != nil {
		c.panel.Hide()
	}
	return c.hover.Clear(ctx)
}

// Rebuild runs one sweep pass and renders it. A capped pass surfaces one
// notice naming the cap.
func (c *Controller) Rebuild(ctx context.Context) error {
	c.passMu.Lock()
	defer c.passMu.Unlock()
	return c.rebuild(ctx)
}

func (c *Controller) rebuild(ctx context.Context) error {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()
	if !state.Enabled || !state.SweepMode {
		return nil
	}

	doc, err := c.source.Capture(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to capture page: %w", err)
	}
	limits := c.opts.Limits()
	res := c.scanner.Sweep(doc, limits)
	if err := c.sweep.Render(ctx, res.Bands); err != nil {
		return err
	}

	c.mu.Lock()
	c.last = res
	c.mu.Unlock()

	if res.Capped != schemas.CapNone {
		c.notify(ctx, res.Capped.Notice(limits))
	}
	return nil
}

// Pass is the scheduler's unit of work for the active mode.
func (c *Controller) Pass(ctx context.Context) error {
	c.passMu.Lock()
	defer c.passMu.Unlock()
	if c.State().SweepMode {
		return c.rebuild(ctx)
	}
	return c.recheck(ctx)
}

// HandleTrigger dispatches one host notification.
func (c *Controller) HandleTrigger(ctx context.Context, t Trigger) error {
	if err := t.Validate(); err != nil {
		return err
	}
	state := c.State()

	switch t.Kind {
	case TriggerPointerMove:
		c.PointerMove(*t.Point)
		return nil
	case TriggerPointerEnter:
		return c.PointerEnter(ctx, *t.Point, t.Key)
	case TriggerScroll:
		if state.Enabled && state.SweepMode {
			return c.requestSoon(ctx)
		}
		return c.Scroll(ctx)
	case TriggerResize:
		if !state.Enabled || !state.SweepMode {
			return nil
		}
		c.mu.Lock()
		r := c.requester
		c.mu.Unlock()
		if r != nil {
			r.NotifyResize()
			return nil
		}
		return c.Rebuild(ctx)
	case TriggerMutation:
		if !state.Enabled || !state.SweepMode {
			return nil
		}
		return c.requestSoon(ctx)
	}
	return nil
}

func (c *Controller) requestSoon(ctx context.Context) error {
	if c.deferToRequester() {
		return nil
	}
	return c.Rebuild(ctx)
}

// requestSoonLocked is requestSoon for callers already holding passMu.
func (c *Controller) requestSoonLocked(ctx context.Context) error {
	if c.deferToRequester() {
		return nil
	}
	return c.rebuild(ctx)
}

func (c *Controller) deferToRequester() bool {
	c.mu.Lock()
	r := c.requester
	c.mu.Unlock()
	if r == nil {
		return false
	}
	r.RequestSoon()
	return true
}

// Toggle applies a user intent and returns the new flags for persistence.
func (c *Controller) Toggle(ctx context.Context, intent Intent) (schemas.State, error) {
	c.passMu.Lock()
	defer c.passMu.Unlock()

	c.mu.Lock()
	prev := c.state
	next := prev
	switch intent {
	case ToggleEnabled:
		next.Enabled = !prev.Enabled
	case ToggleMode:
		next.SweepMode = !prev.SweepMode
	case ToggleLegend:
		next.ShowLegend = !prev.ShowLegend
	default:
		c.mu.Unlock()
		return prev, fmt.Errorf("unknown toggle intent %q", intent)
	}
	c.state = next
	c.mu.Unlock()

	c.logger.Info("State toggled.", zap.String("intent", string(intent)),
		zap.Bool("enabled", next.Enabled), zap.String("mode", string(next.Mode())))

	var err error
	switch intent {
	case ToggleEnabled:
		c.notify(ctx, "Inspector: "+onOff(next.Enabled))
		if !next.Enabled {
			err = errors.Join(c.toIdle(ctx), c.sweep.Clear(ctx))
		} else if next.SweepMode {
			err = c.requestSoonLocked(ctx)
		}
	case ToggleMode:
		if next.SweepMode {
			c.notify(ctx, "Mode: All")
		} else {
			c.notify(ctx, "Mode: Hover")
		}
		if !next.Enabled {
			break
		}
		if next.SweepMode {
			err = errors.Join(c.toIdle(ctx), c.requestSoonLocked(ctx))
		} else {
			err = c.sweep.Clear(ctx)
		}
	case ToggleLegend:
		c.notify(ctx, "Legend: "+onOff(next.ShowLegend))
	}
	return next, err
}

func (c *Controller) notify(ctx context.Context, msg string) {
	if c.notifier == nil || msg == "" {
		return
	}
	if err := c.notifier.Notify(ctx, msg, c.opts.NoticeDuration); err != nil {
		c.logger.Warn("Failed to show notice.", zap.String("message", msg), zap.Error(err))
	}
}

func onOff(b bool) string {
	if b {
		return "ON"
	}
	return "OFF"
}
