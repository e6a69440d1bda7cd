package bridge

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/teranos/rfbridge/bulkio"
	"github.com/teranos/rfbridge/device"
	"github.com/teranos/rfbridge/logger"
	"github.com/teranos/rfbridge/sample"
	"github.com/teranos/rfbridge/worker"
)

// warnInterval spaces out repeated per-iteration warnings.
const warnInterval = time.Second

// rxWorker owns the RX batch buffer. One is created per EnableIngress, so a
// loop abandoned by a timed-out stop never shares a buffer with its successor.
type rxWorker struct {
	c *Component

	buf     []sample.SC16
	fill    int
	first   device.TimeSpec
	hasTime bool

	timeoutWarn  rate.Sometimes
	overflowWarn rate.Sometimes
	errorWarn    rate.Sometimes
}

func newRxWorker(c *Component, capacity int) *rxWorker {
	return &rxWorker{
		c:            c,
		buf:          make([]sample.SC16, capacity),
		timeoutWarn:  rate.Sometimes{Interval: warnInterval},
		overflowWarn: rate.Sometimes{Interval: warnInterval},
		errorWarn:    rate.Sometimes{Interval: warnInterval},
	}
}

// service is one RX iteration: wait for an SRI, receive into the unfilled
// tail of the batch, and forward the batch once it is full or the hardware
// ends the burst.
func (w *rxWorker) service(ctx context.Context) worker.Result {
	c := w.c
	rx := c.rxHandle()
	if rx == nil {
		return worker.Noop
	}

	if !c.receivedSRI.Load() {
		// With TX enabled the TX loop owns the ingress port
		if c.txEnabled.Load() {
			return worker.Noop
		}
		pkt := c.in.TryGetPacket()
		if pkt == nil {
			return worker.Noop
		}
		c.trackConnection(pkt.StreamID, pkt.EOS)
		if !pkt.SRIChanged {
			return worker.Noop
		}
		c.propagate(pkt.SRI)
	}

	n, md, err := rx.Recv(w.buf[w.fill:], c.opts.RecvTimeout)
	if ctx.Err() != nil {
		// Stopping. A short or failed receive here comes from the stop command,
		// not a broken stream.
		if err == nil {
			w.accept(n, md)
		}
		return worker.Noop
	}
	if err != nil {
		w.errorWarn.Do(func() {
			c.rxLog.Warnw("Receive failed", logger.FieldError, err)
		})
		c.reacquireRx(rx)
		return worker.Noop
	}

	switch md.ErrorCode {
	case device.RxErrorNone:
	case device.RxErrorTimeout:
		c.metrics.RecordTimeout(c.id)
		w.timeoutWarn.Do(func() {
			c.rxLog.Errorw("Timeout while streaming", logger.FieldTimeout, c.opts.RecvTimeout)
		})
		w.accept(n, md)
		return worker.Noop
	case device.RxErrorOverflow:
		c.metrics.RecordOverflow(c.id)
		w.overflowWarn.Do(func() {
			c.rxLog.Warnw("Overflow while streaming", logger.FieldSamples, n)
		})
		if n == 0 {
			return worker.Normal
		}
	default:
		w.errorWarn.Do(func() {
			c.rxLog.Warnw("Receive reported an error", logger.FieldErrorCode, md.ErrorCode.String())
		})
		c.reacquireRx(rx)
		return worker.Noop
	}

	if n == 0 && !md.EndOfBurst {
		c.reacquireRx(rx)
		return worker.Noop
	}

	w.accept(n, md)
	if w.fill < len(w.buf) && !md.EndOfBurst {
		return worker.Normal
	}
	w.flush(md.EndOfBurst)
	return worker.Normal
}

func (w *rxWorker) accept(n int, md device.RxMetadata) {
	if n == 0 {
		return
	}
	if w.fill == 0 {
		w.first, w.hasTime = md.TimeSpec, md.HasTimeSpec
	}
	w.fill += n
	w.c.metrics.RecordReceived(w.c.id, n)
}

// flush forwards the accumulated batch. An end of burst echoed back from a
// TX flush is forwarded as a plain batch once.
func (w *rxWorker) flush(eob bool) {
	c := w.c
	if eob && c.expectEOB.CompareAndSwap(true, false) {
		c.rxLog.Debugw("Suppressed expected end of burst", logger.FieldSamples, w.fill)
		eob = false
	}
	if w.fill == 0 && !eob {
		return
	}

	t := bulkio.Now()
	if w.hasTime {
		t = bulkio.Time{WholeSecs: w.first.FullSecs, FracSecs: w.first.FracSecs}
	}

	c.out.PushPacket(w.buf[:w.fill], t, eob, c.currentStreamID())
	c.metrics.RecordPush(c.id)
	if c.opts.Trace {
		c.rxLog.Debugw("Pushed batch", logger.FieldSamples, w.fill, logger.FieldEOB, eob)
	}

	w.fill = 0
	w.hasTime = false
}
