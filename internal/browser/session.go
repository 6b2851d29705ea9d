// Package browser hosts the overlay engine in a real Chromium page driven over
// the DevTools protocol.
package browser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/boxlens/api/schemas"
	"github.com/xkilldash9x/boxlens/internal/config"
	"github.com/xkilldash9x/boxlens/internal/dom"
	"github.com/xkilldash9x/boxlens/internal/inspector"
	"github.com/xkilldash9x/boxlens/internal/overlay/render"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	closeTimeout     = 10 * time.Second
	triggerQueueSize = 256
)

// ErrClosed is returned by operations on a closed session.
var ErrClosed = errors.New("browser: session is closed")

// ErrTriggersInstalled is returned once Triggers has already succeeded.
var ErrTriggersInstalled = errors.New("browser: triggers already installed")

// Session is one browser tab. It is the page source, render surface and
// notifier for an inspector controller.
type Session struct {
	id     string
	cfg    config.BrowserConfig
	prefix string
	logger *zap.Logger

	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc

	triggersMu sync.Mutex
	triggersOn bool

	mu     sync.Mutex
	closed bool
}

var (
	_ inspector.Source   = (*Session)(nil)
	_ inspector.Notifier = (*Session)(nil)
	_ render.Surface     = (*Session)(nil)
)

// NewSession launches a browser and opens a blank tab sized to the configured
// viewport. uiPrefix names the overlay's own nodes.
func NewSession(ctx context.Context, cfg config.BrowserConfig, uiPrefix string, logger *zap.Logger) (*Session, error) {
	if uiPrefix == "" {
		uiPrefix = dom.DefaultUIPrefix
	}
	id := uuid.New().String()
	log := logger.Named("browser").With(zap.String("session_id", id))

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, DefaultAllocatorOptions(cfg)...)
	tabCtx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(log.Sugar().Debugf),
		chromedp.WithErrorf(log.Sugar().Warnf),
	)
	s := &Session{
		id:          id,
		cfg:         cfg,
		prefix:      uiPrefix,
		logger:      log,
		ctx:         tabCtx,
		cancel:      cancel,
		allocCancel: allocCancel,
	}

	// The first Run starts the browser process.
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	if cfg.ViewportWidth > 0 && cfg.ViewportHeight > 0 {
		if err := s.SetViewport(ctx, cfg.ViewportWidth, cfg.ViewportHeight); err != nil {
			s.Close()
			return nil, err
		}
	}
	log.Info("Browser session started.", zap.Bool("headless", cfg.Headless))
	return s, nil
}

// ID is the session's unique identifier.
func (s *Session) ID() string { return s.id }

// run executes actions on the tab, aborting when either ctx or the session
// ends.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}

	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// evaluate runs script and decodes its result into res.
func (s *Session) evaluate(ctx context.Context, script string, res interface{}) error {
	return s.run(ctx, chromedp.Evaluate(script, res))
}

// Navigate loads url and waits for the page to settle.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if s.cfg.NavigationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.NavigationTimeout)
		defer cancel()
	}
	s.logger.Info("Navigating.", zap.String("url", url))
	err := s.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if s.cfg.PostLoadWait > 0 {
		select {
		case <-time.After(s.cfg.PostLoadWait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// SetViewport emulates a device viewport of the given CSS pixel size.
func (s *Session) SetViewport(ctx context.Context, width, height int) error {
	if err := s.run(ctx, chromedp.EmulateViewport(int64(width), int64(height))); err != nil {
		return fmt.Errorf("failed to set viewport %dx%d: %w", width, height, err)
	}
	return nil
}

// CaptureSnapshot reads the layout of every element in one evaluation.
func (s *Session) CaptureSnapshot(ctx context.Context, pointer *schemas.Point) (*dom.Snapshot, error) {
	script, err := captureScript(pointer, s.prefix)
	if err != nil {
		return nil, err
	}
	var raw []byte
	if err := s.evaluate(ctx, script, &raw); err != nil {
		return nil, fmt.Errorf("failed to capture layout: %w", err)
	}
	snap, err := dom.DecodeSnapshot(raw)
	if err != nil {
		return nil, err
	}
	snap.UIPrefix = s.prefix
	return snap, nil
}

// Capture implements inspector.Source.
func (s *Session) Capture(ctx context.Context, pointer *schemas.Point) (dom.Document, error) {
	snap, err := s.CaptureSnapshot(ctx, pointer)
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// LayerID is the id of the container holding layer.
func (s *Session) LayerID(layer string) string {
	return s.prefix + "layer-" + layer
}

// Replace implements render.Surface by swapping the layer's children in a
// single evaluation.
func (s *Session) Replace(ctx context.Context, layer string, prims []render.Primitive) ([]render.Handle, error) {
	script, err := replaceLayerScript(s.LayerID(layer), s.prefix, prims)
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := s.evaluate(ctx, script, &ids); err != nil {
		return nil, err
	}
	handles := make([]render.Handle, len(ids))
	for i, id := range ids {
		handles[i] = render.Handle(id)
	}
	return handles, nil
}

// Notify implements inspector.Notifier with an auto-dismissing toast.
func (s *Session) Notify(ctx context.Context, message string, ttl time.Duration) error {
	script, err := toastScript(s.prefix+"toast", message, ttl)
	if err != nil {
		return err
	}
	return s.evaluate(ctx, script, nil)
}

// Screenshot captures the visible viewport.
func (s *Session) Screenshot(ctx context.Context) (image.Image, error) {
	var buf []byte
	if err := s.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("failed to decode screenshot: %w", err)
	}
	return img, nil
}

// Triggers installs the page listeners and streams host notifications until
// ctx ends, when the channel is closed. It succeeds once per session; a
// failed install may be retried. Notifications are dropped while the consumer is behind.
func (s *Session) Triggers(ctx context.Context) (<-chan inspector.Trigger, error) {
	s.triggersMu.Lock()
	defer s.triggersMu.Unlock()
	if s.triggersOn {
		return nil, ErrTriggersInstalled
	}
	out, err := s.installTriggers(ctx)
	if err != nil {
		return nil, err
	}
	s.triggersOn = true
	return out, nil
}

func (s *Session) installTriggers(ctx context.Context) (chan inspector.Trigger, error) {
	script, err := triggerHookScript(s.prefix)
	if err != nil {
		return nil, err
	}

	lctx, stop := context.WithCancel(ctx)
	out := make(chan inspector.Trigger, triggerQueueSize)
	var (
		mu     sync.Mutex
		closed bool
	)
	go func() {
		select {
		case <-lctx.Done():
		case <-s.ctx.Done():
		}
		stop()
		mu.Lock()
		closed = true
		close(out)
		mu.Unlock()
	}()

	// The listener is detached when lctx ends.
	listenCtx, stopListen := context.WithCancel(s.ctx)
	context.AfterFunc(lctx, stopListen)
	chromedp.ListenTarget(listenCtx, func(ev interface{}) {
		binding, ok := ev.(*runtime.EventBindingCalled)
		if !ok || binding.Name != TriggerBinding {
			return
		}
		var t inspector.Trigger
		if err := json.Unmarshal([]byte(binding.Payload), &t); err != nil {
			s.logger.Warn("Could not decode trigger payload.", zap.Error(err), zap.String("payload", binding.Payload))
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case out <- t:
		default:
			s.logger.Debug("Trigger queue full, dropping notification.", zap.String("kind", string(t.Kind)))
		}
	})

	err = s.run(ctx, chromedp.ActionFunc(func(c context.Context) error {
		if err := runtime.AddBinding(TriggerBinding).Do(c); err != nil {
			return fmt.Errorf("failed to add binding %s: %w", TriggerBinding, err)
		}
		if _, err := page.AddScriptToEvaluateOnNewDocument(script).Do(c); err != nil {
			return fmt.Errorf("failed to inject trigger hook persistently: %w", err)
		}
		return nil
	}), chromedp.Evaluate(script, nil))
	if err != nil {
		stop()
		return nil, err
	}
	s.logger.Debug("Trigger hook installed.")
	return out, nil
}

// Close shuts the tab and the browser process down. It is safe to call more
// than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	// Cancelling the tab context closes the target gracefully.
	done := make(chan struct{})
	go func() {
		s.cancel()
		s.allocCancel()
		close(done)
	}()
	select {
	case <-done:
		s.logger.Info("Browser session closed.")
	case <-time.After(closeTimeout):
		s.logger.Warn("Timed out closing browser session.")
	}
}
