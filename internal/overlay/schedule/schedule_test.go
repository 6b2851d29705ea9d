package schedule_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/boxlens/internal/overlay/schedule"
)

// start runs s in the background and returns a stop function that waits for
// the loop to exit.
func start(t *testing.T, s *schedule.Scheduler) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx) }()
	return func() {
		cancel()
		select {
		case err := <-errc:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("scheduler did not stop")
		}
	}
}

func TestRequestSoonCoalesces(t *testing.T) {
	defer goleak.VerifyNone(t)

	release := make(chan struct{})
	var calls atomic.Int32
	s := schedule.New(zaptest.NewLogger(t), func(ctx context.Context) error {
		if calls.Add(1) == 1 {
			<-release
		}
		return nil
	}, schedule.Options{FrameInterval: time.Millisecond})
	stop := start(t, s)
	defer stop()

	s.RequestSoon()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)

	// Triggers that arrive during a pass collapse into one follow-up pass.
	for i := 0; i < 50; i++ {
		s.RequestSoon()
	}
	close(release)

	require.Eventually(t, func() bool { return s.Passes() == 2 }, time.Second, time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int64(2), s.Passes())
}

func TestNotifyResizeDebounces(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := schedule.New(zaptest.NewLogger(t), func(context.Context) error { return nil },
		schedule.Options{FrameInterval: time.Millisecond, ResizeDebounce: 60 * time.Millisecond})
	stop := start(t, s)
	defer stop()

	for i := 0; i < 10; i++ {
		s.NotifyResize()
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, int64(0), s.Passes(), "still inside the debounce window")

	require.Eventually(t, func() bool { return s.Passes() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, int64(1), s.Passes())
}

func TestRecomputeNow(t *testing.T) {
	defer goleak.VerifyNone(t)

	boom := errors.New("layout read failed")
	var fail atomic.Bool
	s := schedule.New(zaptest.NewLogger(t), func(context.Context) error {
		if fail.Load() {
			return boom
		}
		return nil
	}, schedule.Options{})
	stop := start(t, s)

	ctx := context.Background()
	require.NoError(t, s.RecomputeNow(ctx))
	fail.Store(true)
	assert.ErrorIs(t, s.RecomputeNow(ctx), boom)
	assert.Equal(t, int64(2), s.Passes())

	// A failed pass does not stop the loop.
	fail.Store(false)
	s.RequestSoon()
	require.Eventually(t, func() bool { return s.Passes() == 3 }, time.Second, time.Millisecond)

	stop()
	assert.ErrorIs(t, s.RecomputeNow(ctx), schedule.ErrStopped)
}

func TestRunTwice(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := schedule.New(zaptest.NewLogger(t), func(context.Context) error { return nil }, schedule.Options{})
	stop := start(t, s)
	defer stop()

	require.NoError(t, s.RecomputeNow(context.Background()))
	assert.Error(t, s.Run(context.Background()))
}
