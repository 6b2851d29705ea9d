// Package schedule coalesces overlay recompute triggers into serial,
// frame-aligned passes.
package schedule

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultFrameInterval  = 16 * time.Millisecond
	DefaultResizeDebounce = 100 * time.Millisecond
)

// ErrStopped is returned by RecomputeNow when the loop is not running.
var ErrStopped = errors.New("schedule: loop is not running")

// PassFunc performs one recompute. Errors are logged and never stop the loop.
type PassFunc func(ctx context.Context) error

// Scheduler runs passes one at a time on a single loop. Any number of
// RequestSoon calls made before the loop picks up the request collapse into a
// single pass. It is safe for concurrent use.
type Scheduler struct {
	logger   *zap.Logger
	pass     PassFunc
	limiter  *rate.Limiter
	debounce time.Duration

	pending   atomic.Bool
	running   atomic.Bool
	wake      chan struct{}
	immediate chan chan error
	done      chan struct{}
	passes    atomic.Int64

	resizeMu    sync.Mutex
	resizeTimer *time.Timer
}

// Options tunes a Scheduler. Zero values fall back to the defaults.
type Options struct {
	FrameInterval  time.Duration
	ResizeDebounce time.Duration
}

// New returns a scheduler that runs pass.
func New(logger *zap.Logger, pass PassFunc, opts Options) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = DefaultFrameInterval
	}
	if opts.ResizeDebounce <= 0 {
		opts.ResizeDebounce = DefaultResizeDebounce
	}
	return &Scheduler{
		logger:    logger.Named("scheduler"),
		pass:      pass,
		limiter:   rate.NewLimiter(rate.Every(opts.FrameInterval), 1),
		debounce:  opts.ResizeDebounce,
		wake:      make(chan struct{}, 1),
		immediate: make(chan chan error),
		done:      make(chan struct{}),
	}
}

// RequestSoon asks for a pass on the next frame. It never blocks.
func (s *Scheduler) RequestSoon() {
	if !s.pending.CompareAndSwap(false, true) {
		return
	}
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// NotifyResize requests a pass once resize notifications have been quiet for
// the debounce window.
func (s *Scheduler) NotifyResize() {
	s.resizeMu.Lock()
	defer s.resizeMu.Unlock()
	if s.resizeTimer == nil {
		s.resizeTimer = time.AfterFunc(s.debounce, s.RequestSoon)
		return
	}
	s.resizeTimer.Reset(s.debounce)
}

// RecomputeNow runs a pass on the loop without waiting for a frame and returns
// its error.
func (s *Scheduler) RecomputeNow(ctx context.Context) error {
	reply := make(chan error, 1)
	select {
	case s.immediate <- reply:
	case <-s.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Passes reports how many passes have run.
func (s *Scheduler) Passes() int64 {
	return s.passes.Load()
}

// Run drives the loop until ctx is cancelled. A Scheduler runs at most once.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("schedule: Run called twice")
	}
	defer close(s.done)
	defer s.stopResizeTimer()

	s.logger.Debug("Scheduler loop started.")
	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Scheduler loop stopped.")
			return nil
		case <-s.wake:
			if err := s.limiter.Wait(ctx); err != nil {
				// Only cancellation or an impossible wait lands here.
				s.logger.Debug("Scheduler loop stopped.")
				return nil
			}
			s.pending.Store(false)
			s.runPass(ctx)
		case reply := <-s.immediate:
			s.pending.Store(false)
			reply <- s.runPass(ctx)
		}
	}
}

func (s *Scheduler) runPass(ctx context.Context) error {
	start := time.Now()
	err := s.pass(ctx)
	n := s.passes.Add(1)
	if err != nil {
		s.logger.Warn("Recompute pass failed.", zap.Int64("pass", n), zap.Error(err))
		return err
	}
	s.logger.Debug("Recompute pass finished.", zap.Int64("pass", n), zap.Duration("took", time.Since(start)))
	return nil
}

func (s *Scheduler) stopResizeTimer() {
	s.resizeMu.Lock()
	defer s.resizeMu.Unlock()
	if s.resizeTimer != nil {
		s.resizeTimer.Stop()
	}
}
