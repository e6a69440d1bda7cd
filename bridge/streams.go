package bridge

import (
	"time"

	"github.com/teranos/rfbridge/device"
	"github.com/teranos/rfbridge/logger"
	"github.com/teranos/rfbridge/sample"
	"github.com/teranos/rfbridge/worker"
)

const (
	directionRX = "rx"
	directionTX = "tx"
)

// EnableIngress turns the RX streamer on or off. Enabling acquires an RX
// stream on the keep-one-in-N block and creates the RX loop, starting both
// when the component is started. Disabling stops the loop, stops continuous
// streaming, drains what the hardware still holds and releases the stream.
func (c *Component) EnableIngress(enable bool) {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	if enable {
		c.enableRxLocked()
		return
	}
	c.disableRxLocked()
}

// EnableEgress turns the TX streamer on or off on the FFT block.
func (c *Component) EnableEgress(enable bool) {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	if enable {
		c.enableTxLocked()
		return
	}
	c.disableTxLocked()
}

// IngressEnabled reports whether the RX streamer is enabled.
func (c *Component) IngressEnabled() bool { return c.rxEnabled.Load() }

// EgressEnabled reports whether the TX streamer is enabled.
func (c *Component) EgressEnabled() bool { return c.txEnabled.Load() }

// SetNoopDelay changes the idle sleep of both loops.
func (c *Component) SetNoopDelay(d time.Duration) {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()
	c.opts.Worker.NoopDelay = d
	for _, l := range []*worker.Loop{c.rxLoop, c.txLoop} {
		if l != nil {
			l.SetNoopDelay(d)
		}
	}
}

func (c *Component) enableRxLocked() {
	if c.rxLoop != nil {
		c.rxLog.Debugw("Attempted to enable ingress, but already streaming")
		return
	}
	if !c.initialized || c.released {
		c.rxLog.Warnw("Attempted to enable ingress before initialization")
		return
	}

	c.handleMu.Lock()
	c.rxArgs = device.StreamArgs{
		Format:  sample.FormatSC16,
		BlockID: c.decRef.BlockID,
		Port:    c.decRef.Port,
		SPP:     device.SPPFromArgs(c.decBlock.Args()),
	}
	c.rxStream = c.openRxLocked()
	c.handleMu.Unlock()

	rx := newRxWorker(c, c.opts.rxCapacity())
	c.rxLoop = worker.New(c.ctx, directionRX, rx.service, c.opts.Worker, c.log)
	c.rxEnabled.Store(true)
	c.rxLog.Debugw("Ingress enabled", logger.FieldRequested, len(rx.buf))

	if c.started.Load() {
		c.handleMu.Lock()
		c.startStreamingLocked()
		c.handleMu.Unlock()
		c.rxLoop.Start()
	}
}

func (c *Component) disableRxLocked() {
	if c.rxLoop == nil {
		c.rxLog.Debugw("Attempted to disable ingress, but not streaming")
		return
	}

	c.stopRxLoopLocked()
	c.rxLoop = nil
	c.rxEnabled.Store(false)

	c.handleMu.Lock()
	rx := c.rxStream
	c.rxStream = nil
	c.handleMu.Unlock()

	if rx != nil {
		c.drain(rx)
		if err := rx.Close(); err != nil {
			c.rxLog.Warnw("Failed to close RX stream", logger.FieldError, err)
		}
	}
	c.rxLog.Debugw("Ingress disabled")
}

func (c *Component) enableTxLocked() {
	if c.txLoop != nil {
		c.txLog.Debugw("Attempted to enable egress, but already streaming")
		return
	}
	if !c.initialized || c.released {
		c.txLog.Warnw("Attempted to enable egress before initialization")
		return
	}

	c.handleMu.Lock()
	c.txArgs = device.StreamArgs{
		Format:  sample.FormatSC16,
		BlockID: c.fftRef.BlockID,
		Port:    c.fftRef.Port,
		SPP:     device.SPPFromArgs(c.fftBlock.Args()),
	}
	c.txStream = c.openTxLocked()
	c.handleMu.Unlock()

	tx := newTxWorker(c)
	c.txLoop = worker.New(c.ctx, directionTX, tx.service, c.opts.Worker, c.log)
	c.txEnabled.Store(true)
	c.txLog.Debugw("Egress enabled")

	if c.started.Load() {
		c.txLoop.Start()
	}
}

func (c *Component) disableTxLocked() {
	if c.txLoop == nil {
		c.txLog.Debugw("Attempted to disable egress, but not streaming")
		return
	}

	c.stopTxLoopLocked()
	c.txLoop = nil
	c.txEnabled.Store(false)

	c.handleMu.Lock()
	tx := c.txStream
	c.txStream = nil
	c.handleMu.Unlock()

	if tx != nil {
		if err := tx.Close(); err != nil {
			c.txLog.Warnw("Failed to close TX stream", logger.FieldError, err)
		}
	}
	c.txLog.Debugw("Egress disabled")
}

func (c *Component) openRxLocked() device.RxStream {
	c.rxLog.Debugw("Using streamer arguments", logger.FieldStreamArgs, c.rxArgs.String())
	rx, err := c.dev.OpenRxStream(c.rxArgs)
	if err != nil {
		c.rxLog.Errorw("Failed to retrieve RX stream", logger.FieldError, err)
		return nil
	}
	return rx
}

func (c *Component) openTxLocked() device.TxStream {
	c.txLog.Debugw("Using streamer arguments", logger.FieldStreamArgs, c.txArgs.String())
	tx, err := c.dev.OpenTxStream(c.txArgs)
	if err != nil {
		c.txLog.Errorw("Failed to retrieve TX stream", logger.FieldError, err)
		return nil
	}
	return tx
}

// stopRxLoopLocked cancels the RX loop, stops continuous streaming so a
// blocked receive returns, and joins the loop. A loop still inside a receive
// after StopTimeout is waited for, so the stream handle never outlives the
// goroutine using it.
func (c *Component) stopRxLoopLocked() {
	c.rxLoop.Cancel()

	c.handleMu.Lock()
	c.stopStreamingLocked()
	c.handleMu.Unlock()

	if c.rxLoop.Stop(c.opts.Worker.StopTimeout) {
		return
	}
	c.rxLog.Warnw("RX loop still inside a receive, waiting for it",
		logger.FieldTimeout, c.opts.Worker.StopTimeout)
	<-c.rxLoop.Done()
}

// stopTxLoopLocked joins the TX loop, waiting past StopTimeout for a send
// that is still in flight.
func (c *Component) stopTxLoopLocked() {
	if c.txLoop.Stop(c.opts.Worker.StopTimeout) {
		return
	}
	c.txLog.Warnw("TX loop still inside a send, waiting for it",
		logger.FieldTimeout, c.opts.Worker.StopTimeout)
	<-c.txLoop.Done()
}

// startStreamingLocked issues START_CONTINUOUS unless already streaming.
func (c *Component) startStreamingLocked() {
	if c.rxStreaming || c.rxStream == nil {
		return
	}
	if err := c.rxStream.IssueStreamCommand(device.StartContinuous()); err != nil {
		c.rxLog.Errorw("Failed to start continuous streaming", logger.FieldError, err)
		return
	}
	c.rxStreaming = true
	c.metrics.RecordStreaming(c.id, true)
}

// stopStreamingLocked issues STOP_CONTINUOUS if streaming.
func (c *Component) stopStreamingLocked() {
	if !c.rxStreaming {
		return
	}
	c.rxStreaming = false
	c.metrics.RecordStreaming(c.id, false)
	if c.rxStream == nil {
		return
	}
	if err := c.rxStream.IssueStreamCommand(device.StopContinuous()); err != nil {
		c.rxLog.Warnw("Failed to stop continuous streaming", logger.FieldError, err)
	}
}

// drain reads and discards samples still in flight after streaming stopped,
// until a receive returns nothing without error or the attempts run out.
func (c *Component) drain(rx device.RxStream) {
	scratch := make([]sample.SC16, c.rxArgs.SPP)
	if len(scratch) == 0 {
		scratch = make([]sample.SC16, device.DefaultSPP)
	}

	discarded := 0
	for attempt := 1; attempt <= c.opts.DrainAttempts; attempt++ {
		n, md, err := rx.Recv(scratch, c.opts.DrainTimeout)
		if err != nil {
			c.rxLog.Debugw("Drain stopped on driver error", logger.FieldError, err, logger.FieldAttempt, attempt)
			break
		}
		discarded += n
		if n == 0 && md.ErrorCode == device.RxErrorNone {
			break
		}
	}
	if discarded > 0 {
		c.rxLog.Debugw("Drained RX stream", logger.FieldSamples, discarded)
		c.metrics.RecordDropped(c.id, discarded)
	}
}

// reacquireRx replaces observed with a fresh RX stream. When another caller
// already replaced it the current handle is returned untouched. A failed
// open leaves the handle nil.
func (c *Component) reacquireRx(observed device.RxStream) device.RxStream {
	c.handleMu.Lock()
	defer c.handleMu.Unlock()

	if c.rxStream != observed {
		return c.rxStream
	}

	c.rxLog.Debugw("The RX stream is no longer valid, obtaining a new one")
	c.metrics.RecordReacquire(c.id, directionRX)
	if c.rxStreaming {
		c.rxStreaming = false
		c.metrics.RecordStreaming(c.id, false)
	}
	if observed != nil {
		if err := observed.Close(); err != nil {
			c.rxLog.Debugw("Releasing old RX stream failed", logger.FieldError, err)
		}
	}

	c.rxStream = c.openRxLocked()
	if c.rxStream == nil {
		return nil
	}
	if c.started.Load() {
		c.startStreamingLocked()
	}
	return c.rxStream
}

// reacquireTx is reacquireRx for the TX stream.
func (c *Component) reacquireTx(observed device.TxStream) device.TxStream {
	c.handleMu.Lock()
	defer c.handleMu.Unlock()

	if c.txStream != observed {
		return c.txStream
	}

	c.txLog.Debugw("The TX stream is no longer valid, obtaining a new one")
	c.metrics.RecordReacquire(c.id, directionTX)
	if observed != nil {
		if err := observed.Close(); err != nil {
			c.txLog.Debugw("Releasing old TX stream failed", logger.FieldError, err)
		}
	}

	c.txStream = c.openTxLocked()
	return c.txStream
}

func (c *Component) rxHandle() device.RxStream {
	c.handleMu.Lock()
	defer c.handleMu.Unlock()
	return c.rxStream
}

func (c *Component) txHandle() device.TxStream {
	c.handleMu.Lock()
	defer c.handleMu.Unlock()
	return c.txStream
}
