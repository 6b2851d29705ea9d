package inspector_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/boxlens/api/schemas"
	"github.com/xkilldash9x/boxlens/internal/dom"
	"github.com/xkilldash9x/boxlens/internal/dom/domtest"
	"github.com/xkilldash9x/boxlens/internal/inspector"
	"github.com/xkilldash9x/boxlens/internal/overlay/render"
)

// -- Test doubles --

type pageSource struct {
	mu    sync.Mutex
	doc   *dom.Snapshot
	err   error
	calls int
}

func (s *pageSource) Capture(_ context.Context, _ *schemas.Point) (dom.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.doc, nil
}

func (s *pageSource) set(doc *dom.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = doc
}

// gatedSource blocks its first capture until release is closed.
type gatedSource struct {
	inner   inspector.Source
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGatedSource(doc *dom.Snapshot) *gatedSource {
	return &gatedSource{
		inner:   &pageSource{doc: doc},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (g *gatedSource) Capture(ctx context.Context, p *schemas.Point) (dom.Document, error) {
	g.once.Do(func() {
		close(g.entered)
		<-g.release
	})
	return g.inner.Capture(ctx, p)
}

// detachingDoc hands out hit-test results whose second style read fails, as
// when a node is removed between two reads of one pass.
type detachingDoc struct{ dom.Document }

func (d detachingDoc) ElementAt(x, y float64) (dom.Element, bool) {
	el, ok := d.Document.ElementAt(x, y)
	if !ok {
		return nil, false
	}
	return &detachingElement{Element: el}, true
}

type detachingElement struct {
	dom.Element
	reads int
}

func (e *detachingElement) Style() (dom.Style, error) {
	e.reads++
	if e.reads > 1 {
		return nil, dom.ErrDetached
	}
	return e.Element.Style()
}

type docSource struct{ doc dom.Document }

func (s docSource) Capture(context.Context, *schemas.Point) (dom.Document, error) {
	return s.doc, nil
}

type mockPanel struct{ mock.Mock }

func (m *mockPanel) Show(s schemas.Summary) { m.Called(s) }
func (m *mockPanel) Hide()                  { m.Called() }

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) Notify(ctx context.Context, msg string, ttl time.Duration) error {
	return m.Called(ctx, msg, ttl).Error(0)
}

type mockRequester struct{ mock.Mock }

func (m *mockRequester) RequestSoon()  { m.Called() }
func (m *mockRequester) NotifyResize() { m.Called() }

type fixture struct {
	ctrl     *inspector.Controller
	source   *pageSource
	surface  *render.MemorySurface
	panel    *mockPanel
	notifier *mockNotifier
	keys     map[string]int
}

var viewport = schemas.Viewport{Width: 800, Height: 600}

// page has two padded cards, a degenerate span and a piece of inspector UI.
func page() (*dom.Snapshot, map[string]int) {
	b := domtest.New(viewport)
	keys := map[string]int{}
	keys["card1"] = b.Add(dom.RootParent, "div", domtest.Rect(0, 0, 200, 100), domtest.Spacing(16, 8)...)
	keys["card2"] = b.Add(dom.RootParent, "div", domtest.Rect(300, 0, 200, 100), domtest.Spacing(4, 0)...)
	keys["empty"] = b.Add(dom.RootParent, "span", domtest.Rect(600, 0, 0, 0))
	keys["ui"] = b.AddNode(dom.Node{Parent: dom.RootParent, Tag: "div", ID: "bl-toggle", Rect: domtest.Rect(700, 500, 80, 80)})
	return b.Snapshot(), keys
}

func newFixture(t *testing.T, state schemas.State) *fixture {
	t.Helper()
	doc, keys := page()
	f := &fixture{
		source:   &pageSource{doc: doc},
		surface:  render.NewMemorySurface(),
		panel:    new(mockPanel),
		notifier: new(mockNotifier),
		keys:     keys,
	}
	ctrl, err := inspector.New(zaptest.NewLogger(t), inspector.DefaultOptions(), state, inspector.Deps{
		Source:   f.source,
		Surface:  f.surface,
		Panel:    f.panel,
		Notifier: f.notifier,
	})
	require.NoError(t, err)
	f.ctrl = ctrl
	return f
}

var (
	hoverOn = schemas.State{Enabled: true}
	sweepOn = schemas.State{Enabled: true, SweepMode: true}
)

// -- Hover state machine --

func TestHoverEnterAndSwitch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, hoverOn)
	f.panel.On("Show", mock.AnythingOfType("schemas.Summary")).Return()

	require.NoError(t, f.ctrl.PointerEnter(ctx, schemas.Point{X: 50, Y: 50}, 0))
	assert.Equal(t, f.keys["card1"], f.ctrl.Hover().Target)
	// Outline, four margin bands and four padding bands.
	assert.Len(t, f.surface.Layer(render.LayerHover), 9)

	require.NoError(t, f.ctrl.PointerEnter(ctx, schemas.Point{X: 350, Y: 50}, 0))
	assert.Equal(t, f.keys["card2"], f.ctrl.Hover().Target)
	assert.Len(t, f.surface.Layer(render.LayerHover), 5, "outline and four padding bands")

	f.panel.AssertNumberOfCalls(t, "Show", 2)
	assert.Empty(t, f.surface.Layer(render.LayerSweep))
}

func TestHoverIgnoresUIAndDegenerate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, hoverOn)
	f.panel.On("Show", mock.Anything).Return()

	require.NoError(t, f.ctrl.PointerEnter(ctx, schemas.Point{X: 750, Y: 550}, 0))
	assert.False(t, f.ctrl.Hover().Inspecting(), "inspector UI is never a target")

	require.NoError(t, f.ctrl.PointerEnter(ctx, schemas.Point{}, f.keys["empty"]))
	assert.False(t, f.ctrl.Hover().Inspecting(), "degenerate element is never a target")
	assert.Equal(t, 0, f.surface.Passes(render.LayerHover))
	f.panel.AssertNotCalled(t, "Show", mock.Anything)
}

func TestHoverSummary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, hoverOn)
	f.panel.On("Show", mock.MatchedBy(func(s schemas.Summary) bool {
		return s.Key == f.keys["card1"] && s.Tag == "div" && s.Padding.Top == 16 && s.Margin.Left == 8
	})).Return().Once()

	require.NoError(t, f.ctrl.PointerEnter(ctx, schemas.Point{X: 10, Y: 10}, 0))
	f.panel.AssertExpectations(t)
}

func TestHoverSummaryReadFailureIsLogged(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zapcore.DebugLevel)
	doc, keys := page()
	panel := new(mockPanel)

	ctrl, err := inspector.New(zap.New(core), inspector.DefaultOptions(), hoverOn, inspector.Deps{
		Source:  docSource{doc: detachingDoc{Document: doc}},
		Surface: render.NewMemorySurface(),
		Panel:   panel,
	})
	require.NoError(t, err)

	require.NoError(t, ctrl.PointerEnter(ctx, schemas.Point{X: 50, Y: 50}, 0))
	assert.Equal(t, keys["card1"], ctrl.Hover().Target, "the ring is still drawn")
	panel.AssertNotCalled(t, "Show", mock.Anything)

	entries := logs.FilterMessage("Could not summarize hover target.").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(keys["card1"]), entries[0].ContextMap()["key"])
}

func TestHoverRecheckDetectsRemoval(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, hoverOn)
	f.panel.On("Show", mock.Anything).Return()
	f.panel.On("Hide").Return().Once()

	require.NoError(t, f.ctrl.PointerEnter(ctx, schemas.Point{X: 50, Y: 50}, 0))
	require.True(t, f.ctrl.Hover().Inspecting())

	// The card collapses to nothing; the next recheck notices.
	b := domtest.New(viewport)
	b.AddNode(dom.Node{Key: f.keys["card1"], Parent: dom.RootParent, Tag: "div", Rect: domtest.Rect(0, 0, 0, 0)})
	f.source.set(b.Snapshot())

	require.NoError(t, f.ctrl.Recheck(ctx))
	assert.False(t, f.ctrl.Hover().Inspecting())
	assert.Empty(t, f.surface.Layer(render.LayerHover))
	f.panel.AssertExpectations(t)
}

func TestHoverRecheckDetached(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, hoverOn)
	f.panel.On("Show", mock.Anything).Return()
	f.panel.On("Hide").Return()

	require.NoError(t, f.ctrl.PointerEnter(ctx, schemas.Point{X: 50, Y: 50}, 0))

	f.source.set(domtest.New(viewport).Snapshot())
	require.NoError(t, f.ctrl.Recheck(ctx))
	assert.False(t, f.ctrl.Hover().Inspecting())
}

func TestHoverScrollRehitTests(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, hoverOn)
	f.panel.On("Show", mock.Anything).Return()

	f.ctrl.PointerMove(schemas.Point{X: 350, Y: 50})
	assert.False(t, f.ctrl.Hover().Inspecting(), "moving alone does not recompute")

	require.NoError(t, f.ctrl.HandleTrigger(ctx, inspector.Trigger{Kind: inspector.TriggerScroll}))
	assert.Equal(t, f.keys["card2"], f.ctrl.Hover().Target)
}

func TestHoverCaptureFailure(t *testing.T) {
	f := newFixture(t, hoverOn)
	f.source.err = errors.New("target crashed")

	err := f.ctrl.PointerEnter(context.Background(), schemas.Point{X: 1, Y: 1}, 0)
	assert.ErrorContains(t, err, "target crashed")
	assert.False(t, f.ctrl.Hover().Inspecting())
}

func TestDisabledIgnoresEverything(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, schemas.State{})

	require.NoError(t, f.ctrl.PointerEnter(ctx, schemas.Point{X: 50, Y: 50}, 0))
	for _, k := range []inspector.TriggerKind{inspector.TriggerScroll, inspector.TriggerResize, inspector.TriggerMutation} {
		require.NoError(t, f.ctrl.HandleTrigger(ctx, inspector.Trigger{Kind: k}))
	}
	assert.Equal(t, 0, f.source.calls)
}

// -- Sweep --

func TestRebuild(t *testing.T) {
	f := newFixture(t, sweepOn)

	require.NoError(t, f.ctrl.Rebuild(context.Background()))

	res := f.ctrl.LastSweep()
	assert.Equal(t, 2, res.Processed)
	assert.Equal(t, schemas.CapNone, res.Capped)
	assert.Len(t, f.surface.Layer(render.LayerSweep), 12)
	f.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything)
}

func TestRebuildCappedNotifies(t *testing.T) {
	doc, _ := page()
	source := &pageSource{doc: doc}
	notifier := new(mockNotifier)
	opts := inspector.DefaultOptions()
	opts.MaxElements = 1
	notifier.On("Notify", mock.Anything, "Elements capped at 1 for performance", opts.NoticeDuration).Return(nil).Once()

	ctrl, err := inspector.New(zaptest.NewLogger(t), opts, sweepOn, inspector.Deps{
		Source: source, Surface: render.NewMemorySurface(), Notifier: notifier,
	})
	require.NoError(t, err)

	require.NoError(t, ctrl.Rebuild(context.Background()))
	assert.Equal(t, schemas.CapElements, ctrl.LastSweep().Capped)
	notifier.AssertExpectations(t)
}

func TestSweepTriggersUseRequester(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, sweepOn)
	req := new(mockRequester)
	req.On("RequestSoon").Return().Twice()
	req.On("NotifyResize").Return().Once()
	f.ctrl.SetRequester(req)

	require.NoError(t, f.ctrl.HandleTrigger(ctx, inspector.Trigger{Kind: inspector.TriggerScroll}))
	require.NoError(t, f.ctrl.HandleTrigger(ctx, inspector.Trigger{Kind: inspector.TriggerMutation}))
	require.NoError(t, f.ctrl.HandleTrigger(ctx, inspector.Trigger{Kind: inspector.TriggerResize}))

	req.AssertExpectations(t)
	assert.Equal(t, 0, f.source.calls, "work is deferred to the scheduler")
}

func TestHoverModeIgnoresResizeAndMutation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, hoverOn)
	req := new(mockRequester)
	f.ctrl.SetRequester(req)

	require.NoError(t, f.ctrl.HandleTrigger(ctx, inspector.Trigger{Kind: inspector.TriggerResize}))
	require.NoError(t, f.ctrl.HandleTrigger(ctx, inspector.Trigger{Kind: inspector.TriggerMutation}))
	req.AssertNotCalled(t, "RequestSoon")
	req.AssertNotCalled(t, "NotifyResize")
}

func TestHandleTriggerValidation(t *testing.T) {
	f := newFixture(t, hoverOn)
	ctx := context.Background()

	assert.Error(t, f.ctrl.HandleTrigger(ctx, inspector.Trigger{Kind: inspector.TriggerPointerEnter}))
	assert.Error(t, f.ctrl.HandleTrigger(ctx, inspector.Trigger{Kind: "wheel"}))
}

// -- Toggles --

func TestToggleEnabled(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, hoverOn)
	f.panel.On("Show", mock.Anything).Return()
	f.panel.On("Hide").Return()
	f.notifier.On("Notify", mock.Anything, "Inspector: OFF", mock.Anything).Return(nil).Once()
	f.notifier.On("Notify", mock.Anything, "Inspector: ON", mock.Anything).Return(nil).Once()

	require.NoError(t, f.ctrl.PointerEnter(ctx, schemas.Point{X: 50, Y: 50}, 0))

	state, err := f.ctrl.Toggle(ctx, inspector.ToggleEnabled)
	require.NoError(t, err)
	assert.False(t, state.Enabled)
	assert.False(t, f.ctrl.Hover().Inspecting())
	assert.Empty(t, f.surface.Layer(render.LayerHover))

	state, err = f.ctrl.Toggle(ctx, inspector.ToggleEnabled)
	require.NoError(t, err)
	assert.True(t, state.Enabled)
	f.notifier.AssertExpectations(t)
}

func TestToggleModeSwitchesLayers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, hoverOn)
	f.panel.On("Show", mock.Anything).Return()
	f.panel.On("Hide").Return()
	f.notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, f.ctrl.PointerEnter(ctx, schemas.Point{X: 50, Y: 50}, 0))

	state, err := f.ctrl.Toggle(ctx, inspector.ToggleMode)
	require.NoError(t, err)
	assert.Equal(t, schemas.ModeSweep, state.Mode())
	assert.Empty(t, f.surface.Layer(render.LayerHover))
	assert.NotEmpty(t, f.surface.Layer(render.LayerSweep), "switching to sweep rebuilds immediately")

	state, err = f.ctrl.Toggle(ctx, inspector.ToggleMode)
	require.NoError(t, err)
	assert.Equal(t, schemas.ModeHover, state.Mode())
	assert.Empty(t, f.surface.Layer(render.LayerSweep))

	f.notifier.AssertCalled(t, "Notify", mock.Anything, "Mode: All", mock.Anything)
	f.notifier.AssertCalled(t, "Notify", mock.Anything, "Mode: Hover", mock.Anything)
}

func TestToggleLegend(t *testing.T) {
	f := newFixture(t, schemas.State{Enabled: true, ShowLegend: true})
	f.notifier.On("Notify", mock.Anything, "Legend: OFF", mock.Anything).Return(errors.New("toast failed"))

	state, err := f.ctrl.Toggle(context.Background(), inspector.ToggleLegend)
	require.NoError(t, err, "a failed notice is not an error")
	assert.False(t, state.ShowLegend)
	assert.Equal(t, state, f.ctrl.State())
}

func TestToggleUnknown(t *testing.T) {
	f := newFixture(t, hoverOn)
	state, err := f.ctrl.Toggle(context.Background(), "zoom")
	assert.Error(t, err)
	assert.Equal(t, hoverOn, state)
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := inspector.New(nil, inspector.DefaultOptions(), hoverOn, inspector.Deps{Surface: render.NewMemorySurface()})
	assert.Error(t, err)
	_, err = inspector.New(nil, inspector.DefaultOptions(), hoverOn, inspector.Deps{Source: &pageSource{}})
	assert.Error(t, err)
}

// -- Serialization --

func TestToggleWaitsForInFlightPass(t *testing.T) {
	tests := []struct {
		name   string
		state  schemas.State
		intent inspector.Intent
		pass   func(ctx context.Context, c *inspector.Controller) error
		layer  string
	}{
		{
			name:   "DisableDuringHoverEnter",
			state:  hoverOn,
			intent: inspector.ToggleEnabled,
			pass: func(ctx context.Context, c *inspector.Controller) error {
				return c.PointerEnter(ctx, schemas.Point{X: 50, Y: 50}, 0)
			},
			layer: render.LayerHover,
		},
		{
			name:   "SwitchToHoverDuringSweep",
			state:  sweepOn,
			intent: inspector.ToggleMode,
			pass:   func(ctx context.Context, c *inspector.Controller) error { return c.Pass(ctx) },
			layer:  render.LayerSweep,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			doc, _ := page()
			gate := newGatedSource(doc)
			surface := render.NewMemorySurface()
			notifier := new(mockNotifier)
			notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything).Return(nil)

			ctrl, err := inspector.New(zaptest.NewLogger(t), inspector.DefaultOptions(), tt.state, inspector.Deps{
				Source:   gate,
				Surface:  surface,
				Notifier: notifier,
			})
			require.NoError(t, err)

			passDone := make(chan error, 1)
			go func() { passDone <- tt.pass(ctx, ctrl) }()
			<-gate.entered

			toggleDone := make(chan error, 1)
			go func() {
				_, err := ctrl.Toggle(ctx, tt.intent)
				toggleDone <- err
			}()

			select {
			case <-toggleDone:
				t.Fatal("toggle applied while a pass was still capturing")
			case <-time.After(50 * time.Millisecond):
			}

			close(gate.release)
			require.NoError(t, <-passDone)
			require.NoError(t, <-toggleDone)

			assert.False(t, ctrl.Hover().Inspecting())
			assert.Empty(t, surface.Layer(tt.layer), "the stale pass must not outlive the toggle")
		})
	}
}
