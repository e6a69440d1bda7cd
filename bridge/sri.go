package bridge

import (
	"github.com/teranos/rfbridge/bulkio"
	"github.com/teranos/rfbridge/logger"
)

// DeriveSRI describes the transform output for an upstream stream sampled at
// upstream.XDelta seconds per sample. The frequency axis is centred on zero
// and the output is always complex.
func DeriveSRI(upstream bulkio.SRI, fftSize uint32) bulkio.SRI {
	out := upstream.Clone()
	n := float64(fftSize)

	out.XDelta = 1.0 / (upstream.XDelta * n)
	out.XStart = -(n/2 - 1) * out.XDelta
	out.XUnits = bulkio.UnitsFrequency
	out.Subsize = fftSize
	out.YStart = 0
	out.YDelta = upstream.XDelta * n
	out.YUnits = bulkio.UnitsTime
	out.Mode = bulkio.ModeComplex
	return out
}

// propagate records a new upstream SRI and pushes the derived one downstream.
func (c *Component) propagate(upstream bulkio.SRI) {
	c.sriMu.Lock()
	c.upstream = upstream.Clone()
	c.pushDerivedLocked()
	c.sriMu.Unlock()

	if !c.receivedSRI.Swap(true) {
		c.sriLog.Debugw("First SRI received", logger.FieldStreamID, upstream.StreamID)
	}
}

// repropagate re-derives the current SRI after a transform-size change.
func (c *Component) repropagate() {
	if !c.receivedSRI.Load() {
		return
	}
	c.sriMu.Lock()
	c.pushDerivedLocked()
	c.sriMu.Unlock()
}

func (c *Component) pushDerivedLocked() {
	c.current = DeriveSRI(c.upstream, c.fftSize.Load())
	c.out.PushSRI(c.current)
	c.sriLog.Debugw("Pushed SRI",
		logger.FieldStreamID, c.current.StreamID,
		logger.FieldFFTSize, c.current.Subsize,
		"xdelta", c.current.XDelta)
}

// CurrentSRI returns the last SRI pushed downstream and whether one exists.
func (c *Component) CurrentSRI() (bulkio.SRI, bool) {
	c.sriMu.Lock()
	defer c.sriMu.Unlock()
	if !c.receivedSRI.Load() {
		return bulkio.SRI{}, false
	}
	return c.current.Clone(), true
}

func (c *Component) currentStreamID() string {
	c.sriMu.Lock()
	defer c.sriMu.Unlock()
	return c.current.StreamID
}

// trackConnection runs connection bookkeeping for one ingress packet.
func (c *Component) trackConnection(streamID string, eos bool) {
	c.sriMu.Lock()
	added, removed := c.registry.observe(streamID, eos)
	c.sriMu.Unlock()

	hash := ConnectionHash(streamID)
	if added {
		c.log.Infow("Incoming connection added", logger.FieldStreamID, streamID, logger.FieldConnHash, hash)
		c.metrics.AddConnections(c.id, "incoming", 1)
		c.observers.notify(Event{Kind: EventIncomingAdded, InstanceID: c.id, StreamID: streamID, Hash: hash})
	}
	if removed {
		c.log.Infow("Incoming connection removed", logger.FieldStreamID, streamID, logger.FieldConnHash, hash)
		c.metrics.AddConnections(c.id, "incoming", -1)
		c.observers.notify(Event{Kind: EventIncomingRemoved, InstanceID: c.id, StreamID: streamID, Hash: hash})
	}
}
