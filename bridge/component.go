// Package bridge moves sample batches between a hardware FFT block chain and
// software ports. A Component claims an FFT block and a keep-one-in-N block,
// wires them into a graph, and runs independent RX and TX worker loops that
// own the hardware stream handles.
//
// Three paths run in parallel: the RX loop, the TX loop, and whichever
// goroutine calls the lifecycle and configuration methods. Stream handles
// are guarded by one lock that configuration changes and reacquisition
// share; the loops snapshot a handle under that lock and call the driver
// outside it.
package bridge

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/Masterminds/semver/v3"
	"go.uber.org/zap"

	"github.com/teranos/rfbridge/bulkio"
	"github.com/teranos/rfbridge/device"
	"github.com/teranos/rfbridge/errors"
	"github.com/teranos/rfbridge/logger"
	"github.com/teranos/rfbridge/metrics"
	"github.com/teranos/rfbridge/worker"
)

// GraphPrefix prefixes the name of every graph a component creates.
const GraphPrefix = "psd_"

// Component is one bridge instance bound to a device.
type Component struct {
	id      string
	dev     device.Device
	in      bulkio.Ingress
	out     bulkio.Egress
	opts    Options
	metrics *metrics.Metrics

	log     *zap.SugaredLogger
	rxLog   *zap.SugaredLogger
	txLog   *zap.SugaredLogger
	sriLog  *zap.SugaredLogger
	gateLog *zap.SugaredLogger

	observers Observers

	ctx    context.Context
	cancel context.CancelFunc

	// lifecycleMu serializes Initialize, Start, Stop, Release and the
	// Enable calls. Worker loops never take it.
	lifecycleMu sync.Mutex
	initialized bool
	released    bool
	graph       device.Graph
	rxLoop      *worker.Loop
	txLoop      *worker.Loop

	started   atomic.Bool
	rxEnabled atomic.Bool
	txEnabled atomic.Bool

	// handleMu guards the stream handles and every driver call that
	// reconfigures a block.
	handleMu     sync.Mutex
	fftRef       device.BlockInfo
	decRef       device.BlockInfo
	fftBlock     device.Block
	decBlock     device.Block
	rxStream     device.RxStream
	txStream     device.TxStream
	rxArgs       device.StreamArgs
	txArgs       device.StreamArgs
	rxStreaming  bool
	magnitudeOut string

	fftSize     atomic.Uint32
	expectEOB   atomic.Bool
	receivedSRI atomic.Bool

	// sriMu guards the propagated SRI and the connection registry.
	sriMu    sync.Mutex
	upstream bulkio.SRI
	current  bulkio.SRI
	registry connectionRegistry
}

// New creates a component. Nothing touches the device until Initialize.
// A nil log or metrics is allowed.
func New(ctx context.Context, dev device.Device, in bulkio.Ingress, out bulkio.Egress, opts Options, log *zap.SugaredLogger, m *metrics.Metrics) *Component {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if opts.ID == "" {
		opts.ID = NewInstanceID()
	}
	ctx, cancel := context.WithCancel(ctx)

	base := log.Named("bridge").With(logger.FieldInstanceID, opts.ID)
	c := &Component{
		id:           opts.ID,
		dev:          dev,
		in:           in,
		out:          out,
		opts:         opts,
		metrics:      m,
		log:          base,
		rxLog:        logger.AddRXSymbol(base.Named("rx")),
		txLog:        logger.AddTXSymbol(base.Named("tx")),
		sriLog:       logger.AddSRISymbol(base.Named("sri")),
		gateLog:      logger.AddGateSymbol(base.Named("gate")),
		ctx:          ctx,
		cancel:       cancel,
		magnitudeOut: opts.MagnitudeOut,
	}
	c.fftSize.Store(opts.FFTSize)
	return c
}

// ID returns the instance identifier.
func (c *Component) ID() string { return c.id }

// Observers returns the table lifecycle events are delivered through.
func (c *Component) Observers() *Observers { return &c.observers }

// GraphName returns the name of the graph created by Initialize.
func (c *Component) GraphName() string { return GraphPrefix + c.id }

// Initialize claims the FFT and keep-one-in-N blocks, connects them and
// pushes the initial configuration. Any failure here leaves the component
// unusable and is returned to the caller.
func (c *Component) Initialize() error {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	if c.released {
		return errors.Wrap(errors.ErrInvalidRequest, "component was released")
	}
	if c.initialized {
		return nil
	}
	if c.dev == nil {
		return errors.WithHint(errors.ErrNoDevice, "the device must be RF-NoC capable")
	}
	if c.in == nil || c.out == nil {
		return errors.Wrap(errors.ErrInvalidRequest, "component needs an ingress and an egress port")
	}
	if err := c.checkImageVersion(); err != nil {
		return err
	}

	fftRef, err := device.FindAvailableChannel(c.dev, c.opts.TransformHint)
	if err != nil {
		c.log.Errorw("Unable to find an available FFT block", logger.FieldError, err)
		return err
	}
	decRef, err := device.FindAvailableChannel(c.dev, c.opts.DecimatorHint)
	if err != nil {
		c.log.Errorw("Unable to find an available keep-one-in-N block", logger.FieldError, err)
		return err
	}

	fftBlock, err := c.dev.Block(fftRef.BlockID)
	if err != nil {
		return errors.Wrapf(err, "failed to open block %s", fftRef.BlockID)
	}
	decBlock, err := c.dev.Block(decRef.BlockID)
	if err != nil {
		return errors.Wrapf(err, "failed to open block %s", decRef.BlockID)
	}

	// A graph created by an earlier failed attempt is reused
	graph := c.graph
	if graph == nil {
		graph, err = c.dev.CreateGraph(c.GraphName())
		if err != nil {
			return errors.WithHint(errors.Wrap(err, "unable to create graph"), "check that the device supports RF-NoC graphs")
		}
		c.graph = graph
	}
	if err := graph.Connect(fftRef.BlockID, fftRef.Port, decRef.BlockID, decRef.Port); err != nil {
		return errors.Wrapf(err, "failed to connect %s to %s", fftRef, decRef)
	}

	c.handleMu.Lock()
	c.fftRef, c.decRef = fftRef, decRef
	c.fftBlock, c.decBlock = fftBlock, decBlock
	c.handleMu.Unlock()

	c.log.Infow("Claimed blocks",
		logger.FieldBlockID, fftRef.String(),
		"decimator", decRef.String(),
		logger.FieldGraph, graph.Name())

	if err := c.SetFFTSize(c.fftSize.Load()); err != nil {
		c.unclaimBlocks()
		return errors.WithHint(errors.Wrap(err, "unable to set FFT size with initial value"),
			"check bridge.fft_size and that the FFT block accepts spp updates")
	}
	if err := c.SetMagnitudeOut(c.MagnitudeOut()); err != nil {
		c.unclaimBlocks()
		return errors.WithHint(errors.Wrap(err, "unable to set FFT magnitude_out with initial value"),
			"check bridge.magnitude_out against the modes the FFT block supports")
	}

	c.initialized = true
	c.observers.notify(Event{
		Kind:       EventBlockClaimed,
		InstanceID: c.id,
		Blocks:     []device.BlockInfo{fftRef},
	})
	return nil
}

// unclaimBlocks undoes the block connection made by a failed Initialize so
// the ports are free for the next attempt.
func (c *Component) unclaimBlocks() {
	c.handleMu.Lock()
	defer c.handleMu.Unlock()
	if c.fftBlock != nil {
		c.fftBlock.Clear(c.fftRef.Port)
	}
	if c.decBlock != nil {
		c.decBlock.Clear(c.decRef.Port)
	}
	c.fftBlock, c.decBlock = nil, nil
	c.fftRef, c.decRef = device.BlockInfo{}, device.BlockInfo{}
}

// checkImageVersion enforces MinImageVersion on devices that report one.
func (c *Component) checkImageVersion() error {
	if c.opts.MinImageVersion == "" {
		return nil
	}
	constraint, err := semver.NewConstraint(c.opts.MinImageVersion)
	if err != nil {
		return errors.Wrapf(err, "invalid image version constraint %q", c.opts.MinImageVersion)
	}
	versioner, ok := c.dev.(device.ImageVersioner)
	if !ok {
		c.log.Debugw("Device does not report an image version, skipping check")
		return nil
	}
	v, err := semver.NewVersion(versioner.ImageVersion())
	if err != nil {
		return errors.Wrapf(err, "device reported unparseable image version %q", versioner.ImageVersion())
	}
	if !constraint.Check(v) {
		return errors.WithHintf(
			errors.Newf("FPGA image %s does not satisfy %s", v, c.opts.MinImageVersion),
			"load an FPGA image matching %s", c.opts.MinImageVersion)
	}
	return nil
}

// Start puts an enabled RX stream into continuous mode and starts the
// enabled loops.
func (c *Component) Start() error {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	if !c.initialized {
		return errors.Wrap(errors.ErrInvalidRequest, "start before initialize")
	}
	if c.started.Swap(true) {
		return nil
	}

	if c.rxLoop != nil {
		c.handleMu.Lock()
		c.startStreamingLocked()
		c.handleMu.Unlock()
		c.rxLoop.Start()
	}
	if c.txLoop != nil {
		c.txLoop.Start()
	}

	logger.OpenInfow(c.log, "Component started")
	return nil
}

// Stop halts both loops and takes the RX stream out of continuous mode.
// Handles stay open so a later Start resumes without reacquiring.
func (c *Component) Stop() error {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	if !c.started.Swap(false) {
		return nil
	}

	if c.rxLoop != nil {
		c.stopRxLoopLocked()
	}
	if c.txLoop != nil {
		c.stopTxLoopLocked()
	}

	logger.CloseInfow(c.log, "Component stopped")
	return nil
}

// Started reports whether the component is started.
func (c *Component) Started() bool { return c.started.Load() }

// Release stops everything, releases both stream handles, clears the FFT
// block port and forgets the propagated SRI. The component cannot be
// initialized again.
func (c *Component) Release() {
	if err := c.Stop(); err != nil {
		c.log.Warnw("Stop during release failed", logger.FieldError, err)
	}

	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	if c.released {
		return
	}
	c.disableRxLocked()
	c.disableTxLocked()

	c.handleMu.Lock()
	if c.fftBlock != nil {
		c.fftBlock.Clear(c.fftRef.Port)
	}
	c.handleMu.Unlock()

	c.receivedSRI.Store(false)
	c.expectEOB.Store(false)
	c.released = true
	c.cancel()

	logger.CloseInfow(c.log, "Component released")
}

// WatchOutPort reports connections made and broken on the egress port as
// outgoing connection events.
func (c *Component) WatchOutPort(p *bulkio.OutPort) {
	p.AddConnectListener(func(connectionID string) {
		hash := ConnectionHash(connectionID)
		c.log.Infow("Outgoing connection added", logger.FieldConnection, connectionID, logger.FieldConnHash, hash)
		c.metrics.AddConnections(c.id, "outgoing", 1)
		c.observers.notify(Event{Kind: EventOutgoingAdded, InstanceID: c.id, StreamID: connectionID, Hash: hash})
	})
	p.AddDisconnectListener(func(connectionID string) {
		hash := ConnectionHash(connectionID)
		c.log.Infow("Outgoing connection removed", logger.FieldConnection, connectionID, logger.FieldConnHash, hash)
		c.metrics.AddConnections(c.id, "outgoing", -1)
		c.observers.notify(Event{Kind: EventOutgoingRemoved, InstanceID: c.id, StreamID: connectionID, Hash: hash})
	})
}

// Status is a point-in-time view of the component.
type Status struct {
	ID           string           `json:"id"`
	Graph        string           `json:"graph"`
	FFTBlock     device.BlockInfo `json:"fft_block"`
	DecBlock     device.BlockInfo `json:"decimator_block"`
	Started      bool             `json:"started"`
	Ingress      bool             `json:"ingress"`
	Egress       bool             `json:"egress"`
	RxStreaming  bool             `json:"rx_streaming"`
	FFTSize      uint32           `json:"fft_size"`
	MagnitudeOut string           `json:"magnitude_out"`
	ReceivedSRI  bool             `json:"received_sri"`
}

// Status returns the current state.
func (c *Component) Status() Status {
	c.handleMu.Lock()
	defer c.handleMu.Unlock()
	return Status{
		ID:           c.id,
		Graph:        c.GraphName(),
		FFTBlock:     c.fftRef,
		DecBlock:     c.decRef,
		Started:      c.started.Load(),
		Ingress:      c.rxEnabled.Load(),
		Egress:       c.txEnabled.Load(),
		RxStreaming:  c.rxStreaming,
		FFTSize:      c.fftSize.Load(),
		MagnitudeOut: c.magnitudeOut,
		ReceivedSRI:  c.receivedSRI.Load(),
	}
}
