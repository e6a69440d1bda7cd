package bridge

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/teranos/rfbridge/bulkio"
	"github.com/teranos/rfbridge/device"
	"github.com/teranos/rfbridge/device/sim"
	"github.com/teranos/rfbridge/sample"
	"github.com/teranos/rfbridge/worker"
)

const (
	waitFor = 2 * time.Second
	tick    = 2 * time.Millisecond
)

// testOptions keeps every wait short and the RX batch at ten samples.
func testOptions() Options {
	opts := DefaultOptions()
	opts.ID = "test"
	opts.RecvTimeout = 20 * time.Millisecond
	opts.SendTimeout = 20 * time.Millisecond
	opts.DrainTimeout = 5 * time.Millisecond
	opts.DrainAttempts = 8
	opts.MaxTransferBytes = 40
	opts.BufferFraction = 1.0
	opts.Worker = worker.Config{NoopDelay: time.Millisecond, StopTimeout: time.Second}
	opts.Trace = true
	return opts
}

type pushed struct {
	data     []sample.SC16
	t        bulkio.Time
	eob      bool
	streamID string
}

// recorder is an egress that keeps everything pushed to it.
type recorder struct {
	mu      sync.Mutex
	sris    []bulkio.SRI
	packets []pushed
}

func (r *recorder) PushSRI(sri bulkio.SRI) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sris = append(r.sris, sri.Clone())
}

func (r *recorder) PushPacket(data []sample.SC16, t bulkio.Time, eob bool, streamID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.packets = append(r.packets, pushed{
		data:     append([]sample.SC16(nil), data...),
		t:        t,
		eob:      eob,
		streamID: streamID,
	})
}

func (r *recorder) Packets() []pushed {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]pushed(nil), r.packets...)
}

func (r *recorder) SRIs() []bulkio.SRI {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bulkio.SRI(nil), r.sris...)
}

func (r *recorder) Samples() []sample.SC16 {
	var out []sample.SC16
	for _, p := range r.Packets() {
		out = append(out, p.data...)
	}
	return out
}

type harness struct {
	dev *sim.Device
	in  *bulkio.InPort
	out *recorder
	c   *Component
}

func newHarness(t *testing.T, dev device.Device, opts Options) *harness {
	t.Helper()
	h := &harness{in: bulkio.NewInPort("dataShort_in", 0), out: &recorder{}}
	if s, ok := dev.(*sim.Device); ok {
		h.dev = s
	}
	h.c = New(context.Background(), dev, h.in, h.out, opts, nil, nil)
	t.Cleanup(h.c.Release)
	return h
}

// initialized returns a harness over a default simulated device, initialized.
func initialized(t *testing.T) *harness {
	t.Helper()
	return initializedWith(t, sim.NewDefault(), testOptions())
}

func initializedWith(t *testing.T, dev device.Device, opts Options) *harness {
	t.Helper()
	h := newHarness(t, dev, opts)
	require.NoError(t, h.c.Initialize())
	return h
}

func (h *harness) fftBlock(t *testing.T) *sim.Block {
	t.Helper()
	blk, err := h.dev.SimBlock(sim.FFTBlockID)
	require.NoError(t, err)
	return blk
}

func ramp(start, n int) []sample.SC16 {
	out := make([]sample.SC16, n)
	for i := range out {
		out[i] = sample.SC16{I: int16(start + i), Q: int16(-(start + i))}
	}
	return out
}

func upstreamSRI(id string) bulkio.SRI {
	sri := bulkio.DefaultSRI(id)
	sri.XDelta = 1e-6
	sri.Mode = bulkio.ModeComplex
	return sri
}

func countMode(cmds []device.StreamCommand, mode device.StreamMode) int {
	n := 0
	for _, c := range cmds {
		if c.Mode == mode {
			n++
		}
	}
	return n
}

// scriptedDevice wraps the simulator and substitutes stream factories so a
// test can dictate exact driver results.
type scriptedDevice struct {
	*sim.Device
	mu     sync.Mutex
	openRx func() (device.RxStream, error)
	openTx func() (device.TxStream, error)
	rxOpen int
	txOpen int
}

func (d *scriptedDevice) OpenRxStream(args device.StreamArgs) (device.RxStream, error) {
	d.mu.Lock()
	d.rxOpen++
	open := d.openRx
	d.mu.Unlock()
	if open == nil {
		return d.Device.OpenRxStream(args)
	}
	return open()
}

func (d *scriptedDevice) OpenTxStream(args device.StreamArgs) (device.TxStream, error) {
	d.mu.Lock()
	d.txOpen++
	open := d.openTx
	d.mu.Unlock()
	if open == nil {
		return d.Device.OpenTxStream(args)
	}
	return open()
}

func (d *scriptedDevice) opens() (rx, tx int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rxOpen, d.txOpen
}

type sendCall struct {
	n    int
	md   device.TxMetadata
	data []sample.SC16
}

// scriptedTx accepts at most limit samples per call; a zero limit accepts
// nothing. Accepted samples are kept in order.
type scriptedTx struct {
	mu       sync.Mutex
	limit    int
	calls    []sendCall
	accepted []sample.SC16
	closed   bool
}

func (s *scriptedTx) Send(buf []sample.SC16, md device.TxMetadata, _ time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(buf)
	if n > s.limit {
		n = s.limit
	}
	s.calls = append(s.calls, sendCall{n: len(buf), md: md, data: append([]sample.SC16(nil), buf...)})
	s.accepted = append(s.accepted, buf[:n]...)
	return n, nil
}

func (s *scriptedTx) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *scriptedTx) Calls() []sendCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sendCall(nil), s.calls...)
}

func (s *scriptedTx) Accepted() []sample.SC16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sample.SC16(nil), s.accepted...)
}

func (s *scriptedTx) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
