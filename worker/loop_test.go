package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func createTestLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func fastConfig() Config {
	return Config{NoopDelay: time.Millisecond, StopTimeout: time.Second}
}

func TestLoopRunsUntilFinish(t *testing.T) {
	var calls atomic.Int32
	l := New(context.Background(), "rx", func(ctx context.Context) Result {
		if calls.Add(1) == 5 {
			return Finish
		}
		return Normal
	}, fastConfig(), createTestLogger())

	l.Start()
	select {
	case <-l.Done():
	case <-time.After(time.Second):
		t.Fatal("loop did not finish")
	}

	assert.Equal(t, int32(5), calls.Load())
	assert.False(t, l.Running())
	assert.Equal(t, uint64(5), l.Iterations())
}

func TestStartIsIdempotent(t *testing.T) {
	var concurrent, peak atomic.Int32
	l := New(context.Background(), "tx", func(ctx context.Context) Result {
		n := concurrent.Add(1)
		if n > peak.Load() {
			peak.Store(n)
		}
		time.Sleep(time.Millisecond)
		concurrent.Add(-1)
		return Noop
	}, fastConfig(), createTestLogger())

	l.Start()
	l.Start()
	time.Sleep(20 * time.Millisecond)
	require.True(t, l.Stop(time.Second))

	assert.Equal(t, int32(1), peak.Load())
}

func TestStopCancelsBlockedServiceFunc(t *testing.T) {
	entered := make(chan struct{})
	l := New(context.Background(), "tx", func(ctx context.Context) Result {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-ctx.Done()
		return Noop
	}, fastConfig(), createTestLogger())

	l.Start()
	<-entered
	assert.True(t, l.Stop(time.Second))
	assert.False(t, l.Running())
}

func TestStopTimesOutOnStuckServiceFunc(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	l := New(context.Background(), "rx", func(ctx context.Context) Result {
		entered <- struct{}{}
		<-release
		return Noop
	}, fastConfig(), createTestLogger())

	l.Start()
	<-entered
	assert.False(t, l.Stop(20*time.Millisecond))
	assert.False(t, l.Running())

	close(release)
	select {
	case <-l.Done():
	case <-time.After(time.Second):
		t.Fatal("abandoned goroutine never exited")
	}
}

func TestStartWaitsForAbandonedRun(t *testing.T) {
	var concurrent, peak atomic.Int32
	var first atomic.Bool
	first.Store(true)
	entered := make(chan struct{}, 1)
	l := New(context.Background(), "rx", func(ctx context.Context) Result {
		n := concurrent.Add(1)
		defer concurrent.Add(-1)
		if n > peak.Load() {
			peak.Store(n)
		}
		if first.Swap(false) {
			entered <- struct{}{}
			// Ignores ctx like a driver receive with its own timeout
			time.Sleep(100 * time.Millisecond)
		}
		return Noop
	}, fastConfig(), createTestLogger())

	l.Start()
	<-entered
	require.False(t, l.Stop(10*time.Millisecond))
	abandoned := l.Done()

	l.Start()
	select {
	case <-abandoned:
	default:
		t.Fatal("Start returned while the previous run was still inside the service function")
	}
	assert.True(t, l.Running())
	time.Sleep(10 * time.Millisecond)
	require.True(t, l.Stop(time.Second))
	assert.Equal(t, int32(1), peak.Load())
}

func TestCancelDoesNotWait(t *testing.T) {
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	l := New(context.Background(), "rx", func(ctx context.Context) Result {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-release
		return Noop
	}, fastConfig(), createTestLogger())

	l.Start()
	<-entered
	l.Cancel()
	assert.False(t, l.Running())
	select {
	case <-l.Done():
		t.Fatal("run exited before the service function returned")
	default:
	}

	close(release)
	assert.True(t, l.Stop(time.Second))
}

func TestLoopRestartsAfterStop(t *testing.T) {
	var calls atomic.Int32
	l := New(context.Background(), "rx", func(ctx context.Context) Result {
		calls.Add(1)
		return Noop
	}, fastConfig(), createTestLogger())

	l.Start()
	time.Sleep(10 * time.Millisecond)
	require.True(t, l.Stop(time.Second))
	before := calls.Load()

	l.Start()
	assert.Eventually(t, func() bool { return calls.Load() > before }, time.Second, time.Millisecond)
	assert.True(t, l.Close())
}

func TestPanicIsContained(t *testing.T) {
	var calls atomic.Int32
	l := New(context.Background(), "rx", func(ctx context.Context) Result {
		switch calls.Add(1) {
		case 1:
			panic("driver exploded")
		case 3:
			return Finish
		}
		return Normal
	}, fastConfig(), createTestLogger())

	l.Start()
	select {
	case <-l.Done():
	case <-time.After(time.Second):
		t.Fatal("loop did not survive the panic")
	}
	assert.Equal(t, uint64(1), l.Panics())
	assert.Equal(t, int32(3), calls.Load())
}

func TestParentCancelStopsLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := New(ctx, "rx", func(ctx context.Context) Result { return Noop }, fastConfig(), createTestLogger())

	l.Start()
	cancel()
	select {
	case <-l.Done():
	case <-time.After(time.Second):
		t.Fatal("parent cancellation did not stop the loop")
	}
}

func TestNoopDelay(t *testing.T) {
	l := New(context.Background(), "rx", func(ctx context.Context) Result { return Noop }, Config{}, nil)
	assert.Equal(t, time.Duration(0), l.NoopDelay())
	l.SetNoopDelay(250 * time.Millisecond)
	assert.Equal(t, 250*time.Millisecond, l.NoopDelay())
	assert.True(t, l.Stop(time.Millisecond), "stopping a never-started loop succeeds")
}

func TestResultString(t *testing.T) {
	assert.Equal(t, "noop", Noop.String())
	assert.Equal(t, "finish", Finish.String())
	assert.Equal(t, "result(9)", Result(9).String())
}
