package bridge

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/teranos/rfbridge/device"
	"github.com/teranos/rfbridge/logger"
	"github.com/teranos/rfbridge/sample"
	"github.com/teranos/rfbridge/worker"
)

type txWorker struct {
	c        *Component
	sendWarn rate.Sometimes
}

func newTxWorker(c *Component) *txWorker {
	return &txWorker{c: c, sendWarn: rate.Sometimes{Interval: warnInterval}}
}

// service is one TX iteration: take the next ingress packet and transfer all
// of it to the hardware before returning.
func (w *txWorker) service(ctx context.Context) worker.Result {
	c := w.c
	tx := c.txHandle()
	if tx == nil {
		return worker.Noop
	}

	pkt, err := c.in.GetPacket(ctx)
	if err != nil || pkt == nil {
		return worker.Noop
	}

	c.trackConnection(pkt.StreamID, pkt.EOS)
	if pkt.SRIChanged {
		c.propagate(pkt.SRI)
	}

	if len(pkt.Data) == 0 && !pkt.EOS {
		c.txLog.Debugw("Skipping empty packet", logger.FieldStreamID, pkt.StreamID)
		return worker.Noop
	}

	md := device.TxMetadata{
		HasTimeSpec: true,
		TimeSpec:    device.TimeSpec{FullSecs: pkt.T.WholeSecs, FracSecs: pkt.T.FracSecs},
		EndOfBurst:  pkt.EOB,
	}
	if pkt.EOB {
		c.expectEOB.Store(true)
	}

	if len(pkt.Data) > 0 {
		w.sendAll(ctx, tx, pkt.Data, md)
	}
	if pkt.EOS {
		w.flush()
	}
	return worker.Normal
}

// sendAll sends until every sample is accepted. Continuation sends carry no
// timestamp. Every failed send reacquires the stream; after
// MaxReacquireAttempts consecutive failures the rest of the batch is dropped.
func (w *txWorker) sendAll(ctx context.Context, tx device.TxStream, data []sample.SC16, md device.TxMetadata) {
	c := w.c
	remaining := data
	failures := 0

	for len(remaining) > 0 {
		if ctx.Err() != nil {
			w.drop(remaining, "loop stopping")
			return
		}
		if tx == nil {
			// No stream to retry on; the packet is not fully transferred
			w.drop(remaining, "no TX stream")
			return
		}

		n, err := tx.Send(remaining, md, c.opts.SendTimeout)
		if c.opts.Trace {
			c.txLog.Debugw("Sent", logger.FieldRequested, len(remaining), logger.FieldSamples, n, logger.FieldEOB, md.EndOfBurst)
		}
		if n > 0 {
			c.metrics.RecordSent(c.id, n)
			remaining = remaining[n:]
			md.HasTimeSpec = false
			failures = 0
		}
		if err == nil && n > 0 {
			continue
		}
		if len(remaining) == 0 {
			return
		}

		failures++
		w.sendWarn.Do(func() {
			c.txLog.Warnw("Send transferred nothing",
				logger.FieldRequested, len(remaining),
				logger.FieldAttempt, failures,
				logger.FieldError, err)
		})
		tx = c.reacquireTx(tx)
		// Full transfer of a packet holds only up to MaxReacquireAttempts
		// failed sends; past that the rest is dropped and the loop moves on.
		if failures >= c.opts.maxReacquire() {
			w.drop(remaining, "stream kept failing")
			return
		}
	}
}

func (w *txWorker) drop(remaining []sample.SC16, reason string) {
	w.c.txLog.Errorw("Dropping unsent samples",
		logger.FieldSamples, len(remaining),
		"reason", reason)
	w.c.metrics.RecordDropped(w.c.id, len(remaining))
}

// flush sends one empty end-of-burst so the hardware pushes out what it holds.
func (w *txWorker) flush() {
	c := w.c
	tx := c.txHandle()
	if tx == nil {
		return
	}
	c.txLog.Debugw("EOS, flushing FFT block")
	if _, err := tx.Send(nil, device.TxMetadata{EndOfBurst: true}, c.opts.SendTimeout); err != nil {
		c.txLog.Warnw("Flush send failed", logger.FieldError, err)
	}
}
