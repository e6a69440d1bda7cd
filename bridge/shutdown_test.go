package bridge

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/rfbridge/device"
	"github.com/teranos/rfbridge/device/sim"
	"github.com/teranos/rfbridge/errors"
	"github.com/teranos/rfbridge/metrics"
	"github.com/teranos/rfbridge/sample"
)

// recvTracker counts receives in flight across every stream it hands out.
type recvTracker struct {
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (r *recvTracker) enter() {
	n := r.inFlight.Add(1)
	for {
		p := r.peak.Load()
		if n <= p || r.peak.CompareAndSwap(p, n) {
			return
		}
	}
}

func (r *recvTracker) leave() { r.inFlight.Add(-1) }

// stallingRx is a driver whose receive always waits out its full timeout
// unless data arrives. Stream commands do not wake it. Once stopped it
// reports zero samples and no error, like a drained driver.
type stallingRx struct {
	tracker   *recvTracker
	data      chan []sample.SC16
	streaming atomic.Bool
	closed    atomic.Bool

	mu                   sync.Mutex
	closedWhileReceiving bool
}

func newStallingRx(tracker *recvTracker) *stallingRx {
	return &stallingRx{tracker: tracker, data: make(chan []sample.SC16, 4)}
}

func (s *stallingRx) Recv(buf []sample.SC16, timeout time.Duration) (int, device.RxMetadata, error) {
	if s.closed.Load() {
		return 0, device.RxMetadata{}, errors.Wrap(errors.ErrStreamInvalid, "rx stream closed")
	}
	s.tracker.enter()
	defer s.tracker.leave()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case d := <-s.data:
		n := copy(buf, d)
		return n, device.RxMetadata{EndOfBurst: true}, nil
	case <-timer.C:
	}
	if s.streaming.Load() {
		return 0, device.RxMetadata{ErrorCode: device.RxErrorTimeout}, nil
	}
	return 0, device.RxMetadata{}, nil
}

func (s *stallingRx) IssueStreamCommand(cmd device.StreamCommand) error {
	s.streaming.Store(cmd.Mode == device.StreamModeStartContinuous)
	return nil
}

func (s *stallingRx) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tracker.inFlight.Load() > 0 {
		s.closedWhileReceiving = true
	}
	s.closed.Store(true)
	return nil
}

func (s *stallingRx) ClosedWhileReceiving() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closedWhileReceiving
}

// stallingIngress is a started, ingress-only harness whose stop timeout is
// shorter than its receive timeout, already idle inside a receive.
type stallingIngress struct {
	*harness
	sd      *scriptedDevice
	tracker *recvTracker
	m       *metrics.Metrics

	mu      sync.Mutex
	streams []*stallingRx
}

func newStallingIngress(t *testing.T) *stallingIngress {
	t.Helper()
	opts := testOptions()
	opts.RecvTimeout = 150 * time.Millisecond
	opts.Worker.StopTimeout = 20 * time.Millisecond

	s := &stallingIngress{tracker: &recvTracker{}, m: metrics.NewMetrics()}
	s.sd = &scriptedDevice{Device: sim.NewDefault(), openRx: func() (device.RxStream, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		rx := newStallingRx(s.tracker)
		s.streams = append(s.streams, rx)
		return rx, nil
	}}
	s.harness = newHarness(t, s.sd, opts)
	s.harness.dev = s.sd.Device
	s.c.metrics = s.m
	require.NoError(t, s.c.Initialize())
	s.c.EnableIngress(true)
	require.NoError(t, s.c.Start())

	s.awaitSRI(t, "a")
	s.awaitReceiving(t)
	return s
}

func (s *stallingIngress) awaitReceiving(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool { return s.tracker.inFlight.Load() == 1 }, waitFor, tick)
}

func (s *stallingIngress) stream(i int) *stallingRx {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streams[i]
}

func (s *stallingIngress) reacquisitions() float64 {
	return testutil.ToFloat64(s.m.Reacquisitions.WithLabelValues("test", directionRX))
}

func TestStop_JoinsBlockedReceiveBeforeRestart(t *testing.T) {
	s := newStallingIngress(t)

	require.NoError(t, s.c.Stop())
	assert.Equal(t, int32(0), s.tracker.inFlight.Load(), "stop returns only after the receive is over")

	require.NoError(t, s.c.Start())
	s.awaitReceiving(t)
	s.stream(0).data <- ramp(0, 4)

	require.Eventually(t, func() bool { return len(s.out.Packets()) == 1 }, waitFor, tick)
	assert.Equal(t, ramp(0, 4), s.out.Packets()[0].data)

	rxOpens, _ := s.sd.opens()
	assert.Equal(t, 1, rxOpens, "stopping is not a stream failure")
	assert.Equal(t, 0.0, s.reacquisitions())
	assert.Equal(t, int32(1), s.tracker.peak.Load(), "receives never overlap")
}

func TestDisableIngress_JoinsBlockedReceiveBeforeClose(t *testing.T) {
	s := newStallingIngress(t)

	s.c.EnableIngress(false)
	first := s.stream(0)
	assert.False(t, first.ClosedWhileReceiving(), "the handle is closed only after its loop exited")

	s.c.EnableIngress(true)
	s.awaitReceiving(t)
	s.stream(1).data <- ramp(10, 3)

	require.Eventually(t, func() bool { return len(s.out.Packets()) == 1 }, waitFor, tick)
	assert.Equal(t, ramp(10, 3), s.out.Packets()[0].data)

	rxOpens, _ := s.sd.opens()
	assert.Equal(t, 2, rxOpens, "one open per enable")
	assert.Equal(t, 0.0, s.reacquisitions())
	assert.Equal(t, int32(1), s.tracker.peak.Load(), "receives never overlap")
}
