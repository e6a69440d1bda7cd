// Package worker runs a service function repeatedly on a dedicated goroutine
// until it reports completion or the loop is stopped.
package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teranos/rfbridge/logger"
	"go.uber.org/zap"
)

// Result is what one invocation of a service function reports.
type Result int

const (
	// Noop means nothing was done; the loop sleeps for the noop delay.
	Noop Result = iota
	// Normal means work was done; the loop invokes again immediately.
	Normal
	// Finish ends the loop.
	Finish
)

func (r Result) String() string {
	switch r {
	case Noop:
		return "noop"
	case Normal:
		return "normal"
	case Finish:
		return "finish"
	default:
		return fmt.Sprintf("result(%d)", int(r))
	}
}

// ServiceFunc is one unit of work. ctx is cancelled when the loop stops, and
// blocking calls inside the function should honour it.
type ServiceFunc func(ctx context.Context) Result

// Config controls loop pacing.
type Config struct {
	NoopDelay   time.Duration `json:"noop_delay"`   // Sleep after a Noop iteration
	StopTimeout time.Duration `json:"stop_timeout"` // Default bounded wait used by Close
}

// DefaultConfig returns the pacing used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		NoopDelay:   100 * time.Millisecond,
		StopTimeout: 5 * time.Second,
	}
}

// loopLogger adds open/close markers to the loop's named logger.
type loopLogger struct {
	*zap.SugaredLogger
}

func (l loopLogger) Starting(msg string, keysAndValues ...interface{}) {
	logger.OpenInfow(l.SugaredLogger, msg, keysAndValues...)
}

func (l loopLogger) Closing(msg string, keysAndValues ...interface{}) {
	logger.CloseInfow(l.SugaredLogger, msg, keysAndValues...)
}

// Loop owns one goroutine that calls a ServiceFunc until it returns Finish or
// Stop is called. A stopped or finished loop can be started again.
type Loop struct {
	name      string
	fn        ServiceFunc
	parentCtx context.Context
	cfg       Config
	logger    loopLogger

	noopDelay  atomic.Int64
	iterations atomic.Uint64
	panics     atomic.Uint64

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// New creates a loop. Nothing runs until Start.
func New(ctx context.Context, name string, fn ServiceFunc, cfg Config, log *zap.SugaredLogger) *Loop {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = DefaultConfig().StopTimeout
	}
	l := &Loop{
		name:      name,
		fn:        fn,
		parentCtx: ctx,
		cfg:       cfg,
		logger:    loopLogger{log.Named("worker." + name)},
	}
	l.noopDelay.Store(int64(cfg.NoopDelay))
	return l
}

// Name returns the loop name.
func (l *Loop) Name() string { return l.name }

// Start launches the goroutine. Starting a running loop does nothing. When a
// previous run outlived its Stop timeout, Start waits for it to exit first so
// two runs never call the service function at once.
func (l *Loop) Start() {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return
	}
	prev := l.done
	l.mu.Unlock()

	if prev != nil {
		select {
		case <-prev:
		default:
			l.logger.Warnw("Waiting for the previous run to exit")
			<-prev
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return
	}

	ctx, cancel := context.WithCancel(l.parentCtx)
	done := make(chan struct{})
	l.cancel = cancel
	l.done = done
	l.running = true

	l.logger.Starting("Service loop started")
	go l.run(ctx, done)
}

// Cancel cancels the current run without waiting for it to exit.
func (l *Loop) Cancel() {
	l.mu.Lock()
	cancel := l.cancel
	l.running = false
	l.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Stop cancels the loop and waits up to timeout for the goroutine to exit. It
// returns false when the goroutine is still inside the service function after
// the wait; that goroutine exits on its own once the function returns.
func (l *Loop) Stop(timeout time.Duration) bool {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.running = false
	l.mu.Unlock()

	if cancel == nil {
		return true
	}
	cancel()

	select {
	case <-done:
		l.logger.Closing("Service loop stopped")
		return true
	case <-time.After(timeout):
		l.logger.Warnw("Service loop did not exit in time", logger.FieldTimeout, timeout)
		return false
	}
}

// Close stops the loop using the configured stop timeout.
func (l *Loop) Close() bool {
	return l.Stop(l.cfg.StopTimeout)
}

// Running reports whether the goroutine has been started and not yet stopped
// or finished.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// Done is closed when the current run exits. It is nil before the first Start.
func (l *Loop) Done() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done
}

// SetNoopDelay changes the sleep after a Noop iteration.
func (l *Loop) SetNoopDelay(d time.Duration) {
	l.noopDelay.Store(int64(d))
}

// NoopDelay returns the sleep after a Noop iteration.
func (l *Loop) NoopDelay() time.Duration {
	return time.Duration(l.noopDelay.Load())
}

// Iterations returns how many times the service function has been called.
func (l *Loop) Iterations() uint64 {
	return l.iterations.Load()
}

// Panics returns how many invocations panicked.
func (l *Loop) Panics() uint64 {
	return l.panics.Load()
}

func (l *Loop) run(ctx context.Context, done chan struct{}) {
	defer func() {
		l.mu.Lock()
		if l.done == done {
			l.running = false
		}
		l.mu.Unlock()
		close(done)
	}()

	for {
		if ctx.Err() != nil {
			return
		}

		switch l.invoke(ctx) {
		case Finish:
			l.logger.Closing("Service loop finished")
			return
		case Normal:
			continue
		default:
			delay := l.NoopDelay()
			if delay <= 0 {
				continue
			}
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}
}

// invoke calls the service function, turning a panic into a Noop so the loop
// keeps running.
func (l *Loop) invoke(ctx context.Context) (res Result) {
	l.iterations.Add(1)
	defer func() {
		if r := recover(); r != nil {
			l.panics.Add(1)
			l.logger.Errorw("Service function panicked", logger.FieldError, fmt.Sprint(r))
			res = Noop
		}
	}()
	return l.fn(ctx)
}
