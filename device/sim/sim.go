// Package sim is an in-process device with an FFT block, a keep-one-in-N block
// and a loopback pipeline: samples sent on a TX stream come back out of RX
// streams, in order, with their burst boundaries. Faults can be queued to
// exercise the recovery paths of stream consumers.
package sim

import (
	"sort"
	"strings"
	"sync"

	"github.com/teranos/rfbridge/device"
	"github.com/teranos/rfbridge/errors"
	"github.com/teranos/rfbridge/sample"
)

// Block ids created by DefaultConfig.
const (
	FFTBlockID      = "0/FFT_0"
	OneInNBlockID   = "0/KEEP_ONE_IN_N_0"
	defaultPorts    = 1
	defaultRateHz   = 1e6
	defaultFFTMode  = "COMPLEX"
	defaultKeepN    = "1"
	defaultBlockSPP = "1024"
	defaultImage    = "4.6.0"
)

// BlockSpec describes one simulated block.
type BlockSpec struct {
	ID    string
	Ports int
	Args  map[string]string
}

// Config controls the simulated device.
type Config struct {
	// SampleRate drives the timestamps stamped on received samples.
	SampleRate float64
	Blocks     []BlockSpec
	// MaxSendChunk caps how many samples one Send accepts. Zero means no cap.
	MaxSendChunk int
	// Image is the reported FPGA image version.
	Image string
}

// DefaultConfig returns a device carrying one FFT and one keep-one-in-N block.
func DefaultConfig() Config {
	return Config{
		SampleRate: defaultRateHz,
		Image:      defaultImage,
		Blocks: []BlockSpec{
			{ID: FFTBlockID, Ports: defaultPorts, Args: map[string]string{
				device.ArgSPP:          defaultBlockSPP,
				device.ArgMagnitudeOut: defaultFFTMode,
			}},
			{ID: OneInNBlockID, Ports: defaultPorts, Args: map[string]string{
				device.ArgSPP: defaultBlockSPP,
				"n":           defaultKeepN,
			}},
		},
	}
}

// RecvFault replaces the result of one Recv call.
type RecvFault struct {
	// Err is returned as a driver failure.
	Err error
	// Code is reported in the metadata.
	Code device.RxErrorCode
	// Deliver keeps the normal data path and only stamps Code on the result.
	Deliver bool
}

// SendFault replaces the result of one Send call.
type SendFault struct {
	Err error
	// Limit caps the samples accepted by the call; zero accepts nothing.
	Limit int
}

// Device is the simulated device. It is safe for concurrent use.
type Device struct {
	mu     sync.Mutex
	cfg    Config
	blocks map[string]*Block
	order  []string
	graphs map[string]*Graph
	pipe   *pipeline

	rxOpens, txOpens   int
	rxCloses, txCloses int
	commands           []device.StreamCommand
	recvFaults         []RecvFault
	sendFaults         []SendFault
	openRxFaults       []error
	openTxFaults       []error
}

// New builds a simulated device.
func New(cfg Config) *Device {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = defaultRateHz
	}
	d := &Device{
		cfg:    cfg,
		blocks: make(map[string]*Block),
		graphs: make(map[string]*Graph),
		pipe:   newPipeline(cfg.SampleRate),
	}
	for _, spec := range cfg.Blocks {
		d.blocks[spec.ID] = newBlock(spec)
		d.order = append(d.order, spec.ID)
	}
	sort.Strings(d.order)
	return d
}

// NewDefault builds a device from DefaultConfig.
func NewDefault() *Device {
	return New(DefaultConfig())
}

// ImageVersion implements device.ImageVersioner.
func (d *Device) ImageVersion() string {
	return d.cfg.Image
}

// FindBlocks implements device.Device.
func (d *Device) FindBlocks(hint string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var ids []string
	for _, id := range d.order {
		if strings.Contains(id, hint) {
			ids = append(ids, id)
		}
	}
	return ids
}

// Block implements device.Device.
func (d *Device) Block(id string) (device.Block, error) {
	blk, err := d.SimBlock(id)
	if err != nil {
		return nil, err
	}
	return blk, nil
}

// SimBlock returns the concrete simulated block for inspection in tests.
func (d *Device) SimBlock(id string) (*Block, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	blk, ok := d.blocks[id]
	if !ok {
		return nil, errors.Wrapf(errors.ErrBlockNotFound, "block %s", id)
	}
	return blk, nil
}

// CreateGraph implements device.Device.
func (d *Device) CreateGraph(name string) (device.Graph, error) {
	if name == "" {
		return nil, errors.Wrap(errors.ErrInvalidRequest, "graph name is empty")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if g, ok := d.graphs[name]; ok {
		return g, nil
	}
	g := &Graph{name: name, dev: d}
	d.graphs[name] = g
	return g, nil
}

// OpenRxStream implements device.Device.
func (d *Device) OpenRxStream(args device.StreamArgs) (device.RxStream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := popErr(&d.openRxFaults); err != nil {
		return nil, err
	}
	if err := d.checkArgsLocked(args); err != nil {
		return nil, err
	}
	d.rxOpens++
	return &RxStream{dev: d, args: args}, nil
}

// OpenTxStream implements device.Device.
func (d *Device) OpenTxStream(args device.StreamArgs) (device.TxStream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := popErr(&d.openTxFaults); err != nil {
		return nil, err
	}
	if err := d.checkArgsLocked(args); err != nil {
		return nil, err
	}
	d.txOpens++
	return &TxStream{dev: d, args: args}, nil
}

func (d *Device) checkArgsLocked(args device.StreamArgs) error {
	if args.Format != sample.FormatSC16 {
		return errors.Wrapf(errors.ErrInvalidRequest, "unsupported sample format %q", args.Format)
	}
	blk, ok := d.blocks[args.BlockID]
	if !ok {
		return errors.Wrapf(errors.ErrBlockNotFound, "block %s", args.BlockID)
	}
	if args.Port < 0 || args.Port >= blk.ports {
		return errors.Wrapf(errors.ErrInvalidRequest, "block %s has no port %d", args.BlockID, args.Port)
	}
	if args.SPP <= 0 {
		return errors.Wrapf(errors.ErrInvalidRequest, "spp must be positive, got %d", args.SPP)
	}
	return nil
}

// Inject queues samples on the receive side as if the block chain produced them.
func (d *Device) Inject(samples []sample.SC16, eob bool) {
	d.pipe.push(samples, eob)
}

// Pending returns how many samples are queued for receive.
func (d *Device) Pending() int {
	return d.pipe.pending()
}

// Streaming reports whether continuous streaming is active.
func (d *Device) Streaming() bool {
	return d.pipe.isStreaming()
}

// QueueRecvFault queues a fault for the next Recv on any RX stream.
func (d *Device) QueueRecvFault(f RecvFault) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.recvFaults = append(d.recvFaults, f)
}

// QueueSendFault queues a fault for the next Send on any TX stream.
func (d *Device) QueueSendFault(f SendFault) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sendFaults = append(d.sendFaults, f)
}

// FailNextOpenRx makes the next OpenRxStream return err.
func (d *Device) FailNextOpenRx(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.openRxFaults = append(d.openRxFaults, err)
}

// FailNextOpenTx makes the next OpenTxStream return err.
func (d *Device) FailNextOpenTx(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.openTxFaults = append(d.openTxFaults, err)
}

// Counters is a snapshot of stream activity.
type Counters struct {
	RxOpens  int
	TxOpens  int
	RxCloses int
	TxCloses int
	Commands []device.StreamCommand
}

// Counters returns a snapshot of open, close and command counts.
func (d *Device) Counters() Counters {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Counters{
		RxOpens:  d.rxOpens,
		TxOpens:  d.txOpens,
		RxCloses: d.rxCloses,
		TxCloses: d.txCloses,
		Commands: append([]device.StreamCommand(nil), d.commands...),
	}
}

func (d *Device) popRecvFault() (RecvFault, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.recvFaults) == 0 {
		return RecvFault{}, false
	}
	f := d.recvFaults[0]
	d.recvFaults = d.recvFaults[1:]
	return f, true
}

func (d *Device) popSendFault() (SendFault, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.sendFaults) == 0 {
		return SendFault{}, false
	}
	f := d.sendFaults[0]
	d.sendFaults = d.sendFaults[1:]
	return f, true
}

func popErr(q *[]error) error {
	if len(*q) == 0 {
		return nil
	}
	err := (*q)[0]
	*q = (*q)[1:]
	return err
}

// Graph connects simulated blocks.
type Graph struct {
	name string
	dev  *Device
}

// Name implements device.Graph.
func (g *Graph) Name() string { return g.name }

// Connect implements device.Graph.
func (g *Graph) Connect(srcBlock string, srcPort int, dstBlock string, dstPort int) error {
	src, err := g.dev.SimBlock(srcBlock)
	if err != nil {
		return err
	}
	dst, err := g.dev.SimBlock(dstBlock)
	if err != nil {
		return err
	}
	if err := src.linkDownstream(srcPort, device.BlockInfo{BlockID: dstBlock, Port: dstPort}); err != nil {
		return errors.Wrapf(err, "graph %s", g.name)
	}
	if err := dst.linkUpstream(dstPort, device.BlockInfo{BlockID: srcBlock, Port: srcPort}); err != nil {
		src.Clear(srcPort)
		return errors.Wrapf(err, "graph %s", g.name)
	}
	return nil
}
