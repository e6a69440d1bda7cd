package bulkio

import (
	"context"

	"github.com/teranos/rfbridge/sample"
)

// Packet is one batch taken from an ingress port.
type Packet struct {
	Data     []sample.SC16
	T        Time
	EOB      bool
	EOS      bool
	StreamID string
	SRI      SRI
	// SRIChanged is set on the first packet after the stream's SRI changed.
	SRIChanged bool
}

// Ingress is the consuming side of an input port.
type Ingress interface {
	// GetPacket blocks until a packet arrives or ctx is done.
	GetPacket(ctx context.Context) (*Packet, error)
	// TryGetPacket returns the next packet or nil without waiting.
	TryGetPacket() *Packet
}

// Egress is the producing side of an output port. Implementations must not
// retain data after PushPacket returns.
type Egress interface {
	PushSRI(sri SRI)
	PushPacket(data []sample.SC16, t Time, eob bool, streamID string)
}
