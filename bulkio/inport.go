package bulkio

import (
	"context"
	"sync"

	"github.com/teranos/rfbridge/sample"
)

// DefaultQueueDepth is the packet capacity of an InPort built with depth <= 0.
const DefaultQueueDepth = 100

// InPort queues pushed packets for one consumer. Each stream's SRI is tracked
// so the first packet after a change is flagged. When the queue is full a
// blocking stream waits for room and a non-blocking stream drops its oldest
// queued packet.
type InPort struct {
	name  string
	queue chan *Packet

	mu      sync.Mutex
	sris    map[string]SRI
	changed map[string]bool
	dropped int
}

// NewInPort creates an input port holding up to depth packets.
func NewInPort(name string, depth int) *InPort {
	if depth <= 0 {
		depth = DefaultQueueDepth
	}
	return &InPort{
		name:    name,
		queue:   make(chan *Packet, depth),
		sris:    make(map[string]SRI),
		changed: make(map[string]bool),
	}
}

// Name returns the port name.
func (p *InPort) Name() string { return p.name }

// PushSRI records a stream's descriptor. Pushing an unchanged descriptor does
// not flag the next packet.
func (p *InPort) PushSRI(sri SRI) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cur, ok := p.sris[sri.StreamID]; ok && cur.Equal(sri) {
		return
	}
	p.sris[sri.StreamID] = sri.Clone()
	p.changed[sri.StreamID] = true
}

// PushPacket implements Egress, so an OutPort can feed an InPort directly.
// The data is copied.
func (p *InPort) PushPacket(data []sample.SC16, t Time, eob bool, streamID string) {
	p.Push(context.Background(), data, t, eob, false, streamID)
}

// PushEOS queues an empty end-of-stream packet.
func (p *InPort) PushEOS(t Time, streamID string) {
	p.Push(context.Background(), nil, t, false, true, streamID)
}

// Push queues a packet built from the arguments. It returns false if ctx ended
// while waiting for room on a blocking stream.
func (p *InPort) Push(ctx context.Context, data []sample.SC16, t Time, eob, eos bool, streamID string) bool {
	pkt := &Packet{
		Data:     append([]sample.SC16(nil), data...),
		T:        t,
		EOB:      eob,
		EOS:      eos,
		StreamID: streamID,
	}

	p.mu.Lock()
	sri, ok := p.sris[streamID]
	if !ok {
		sri = DefaultSRI(streamID)
		p.sris[streamID] = sri
		p.changed[streamID] = true
	}
	pkt.SRI = sri.Clone()
	pkt.SRIChanged = p.changed[streamID]
	delete(p.changed, streamID)
	if eos {
		delete(p.sris, streamID)
	}
	p.mu.Unlock()

	if sri.Blocking {
		select {
		case p.queue <- pkt:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		select {
		case p.queue <- pkt:
			return true
		default:
		}
		select {
		case <-p.queue:
			p.mu.Lock()
			p.dropped++
			p.mu.Unlock()
		default:
		}
	}
}

// GetPacket implements Ingress.
func (p *InPort) GetPacket(ctx context.Context) (*Packet, error) {
	select {
	case pkt := <-p.queue:
		return pkt, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TryGetPacket implements Ingress.
func (p *InPort) TryGetPacket() *Packet {
	select {
	case pkt := <-p.queue:
		return pkt
	default:
		return nil
	}
}

// Len returns the number of queued packets.
func (p *InPort) Len() int {
	return len(p.queue)
}

// Dropped returns how many packets were discarded on overflow.
func (p *InPort) Dropped() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dropped
}

// ActiveSRIs returns the descriptors of streams that have not ended.
func (p *InPort) ActiveSRIs() []SRI {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]SRI, 0, len(p.sris))
	for _, s := range p.sris {
		out = append(out, s.Clone())
	}
	return out
}
