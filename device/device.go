// Package device is the contract between rfbridge and a hardware driver that
// exposes a chain of configurable processing blocks. Blocks are addressed by a
// stable identifier and a port; sample streams are opened against one
// block/port pair and carry typed batches in both directions.
//
// The bridge consumes these interfaces and never reimplements them. The sim
// subpackage provides an in-process implementation.
package device

import (
	"fmt"
	"strconv"
	"time"

	"github.com/teranos/rfbridge/sample"
)

// Argument keys understood by stream-capable blocks.
const (
	ArgSPP          = "spp"
	ArgMagnitudeOut = "magnitude_out"
	ArgReset        = "reset"
	ArgBlockID      = "block_id"
	ArgBlockPort    = "block_port"
)

// DefaultSPP is the samples-per-packet assumed when a block does not report one.
const DefaultSPP = 1024

// Device is a handle on an attached device and the blocks it carries.
type Device interface {
	// FindBlocks returns the ids of every block whose id contains hint, in a
	// stable order.
	FindBlocks(hint string) []string
	// Block returns the control interface for a block id.
	Block(id string) (Block, error)
	// CreateGraph creates a named graph used to connect blocks.
	CreateGraph(name string) (Graph, error)
	OpenRxStream(args StreamArgs) (RxStream, error)
	OpenTxStream(args StreamArgs) (TxStream, error)
}

// ImageVersioner is implemented by devices that report the version of the
// loaded FPGA image.
type ImageVersioner interface {
	ImageVersion() string
}

// Block controls one hardware processing stage.
type Block interface {
	ID() string
	// Args returns a copy of the block's current argument map.
	Args() map[string]string
	// SetArgs pushes arguments to one port of the block as a single update.
	SetArgs(args map[string]string, port int) error
	InputPorts() []int
	OutputPorts() []int
	// UpstreamPort reports the block connected to an input port, if any.
	UpstreamPort(port int) (BlockInfo, bool)
	// DownstreamPort reports the block connected to an output port, if any.
	DownstreamPort(port int) (BlockInfo, bool)
	// Clear drops connection state on a port.
	Clear(port int)
}

// Graph connects block ports into a processing chain.
type Graph interface {
	Name() string
	Connect(srcBlock string, srcPort int, dstBlock string, dstPort int) error
}

// RxStream receives sample batches from a block.
type RxStream interface {
	// Recv fills buf with up to len(buf) samples, waiting at most timeout.
	// Driver failures are returned as err; per-call conditions such as
	// timeout and overflow are reported in the metadata.
	Recv(buf []sample.SC16, timeout time.Duration) (int, RxMetadata, error)
	IssueStreamCommand(cmd StreamCommand) error
	Close() error
}

// TxStream sends sample batches to a block.
type TxStream interface {
	// Send transfers up to len(buf) samples and returns how many were accepted.
	Send(buf []sample.SC16, md TxMetadata, timeout time.Duration) (int, error)
	Close() error
}

// BlockInfo identifies one port of one block.
type BlockInfo struct {
	BlockID string `json:"block_id"`
	Port    int    `json:"port"`
}

// Valid reports whether the reference names a block and a port.
func (b BlockInfo) Valid() bool {
	return b.BlockID != "" && b.Port >= 0
}

func (b BlockInfo) String() string {
	return fmt.Sprintf("%s:%d", b.BlockID, b.Port)
}

// StreamArgs selects the block/port a stream binds to and its sample format.
type StreamArgs struct {
	Format  sample.Format
	BlockID string
	Port    int
	SPP     int
}

// Map renders the driver-level argument map for the stream.
func (a StreamArgs) Map() map[string]string {
	return map[string]string{
		ArgBlockID:   a.BlockID,
		ArgBlockPort: strconv.Itoa(a.Port),
		ArgSPP:       strconv.Itoa(a.SPP),
	}
}

func (a StreamArgs) String() string {
	return fmt.Sprintf("%s block_id=%s block_port=%d spp=%d", a.Format, a.BlockID, a.Port, a.SPP)
}

// SPPFromArgs reads the spp argument from a block argument map, falling back
// to DefaultSPP when it is missing or malformed.
func SPPFromArgs(args map[string]string) int {
	v, ok := args[ArgSPP]
	if !ok {
		return DefaultSPP
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return DefaultSPP
	}
	return n
}
