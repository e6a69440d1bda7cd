package bulkio

import (
	"sort"
	"sync"

	"github.com/teranos/rfbridge/errors"
	"github.com/teranos/rfbridge/sample"
)

// ConnectionListener is told about connections made or broken on an OutPort.
type ConnectionListener func(connectionID string)

// OutPort fans pushes out to every connected sink. The current SRI of each
// stream is replayed to sinks that connect later.
type OutPort struct {
	name string

	mu           sync.RWMutex
	conns        map[string]Egress
	sris         map[string]SRI
	onConnect    []ConnectionListener
	onDisconnect []ConnectionListener
}

// NewOutPort creates an output port with no connections.
func NewOutPort(name string) *OutPort {
	return &OutPort{
		name:  name,
		conns: make(map[string]Egress),
		sris:  make(map[string]SRI),
	}
}

// Name returns the port name.
func (p *OutPort) Name() string { return p.name }

// AddConnectListener registers fn for new connections.
func (p *OutPort) AddConnectListener(fn ConnectionListener) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onConnect = append(p.onConnect, fn)
}

// AddDisconnectListener registers fn for removed connections.
func (p *OutPort) AddDisconnectListener(fn ConnectionListener) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onDisconnect = append(p.onDisconnect, fn)
}

// Connect attaches sink under connectionID and replays active SRIs to it.
func (p *OutPort) Connect(connectionID string, sink Egress) error {
	if connectionID == "" || sink == nil {
		return errors.Wrap(errors.ErrInvalidRequest, "connection needs an id and a sink")
	}

	p.mu.Lock()
	if _, exists := p.conns[connectionID]; exists {
		p.mu.Unlock()
		return errors.Wrapf(errors.ErrInvalidRequest, "connection %s already exists on %s", connectionID, p.name)
	}
	p.conns[connectionID] = sink
	replay := make([]SRI, 0, len(p.sris))
	for _, s := range p.sris {
		replay = append(replay, s.Clone())
	}
	listeners := append([]ConnectionListener(nil), p.onConnect...)
	p.mu.Unlock()

	for _, s := range replay {
		sink.PushSRI(s)
	}
	for _, fn := range listeners {
		fn(connectionID)
	}
	return nil
}

// Disconnect detaches a connection.
func (p *OutPort) Disconnect(connectionID string) error {
	p.mu.Lock()
	if _, exists := p.conns[connectionID]; !exists {
		p.mu.Unlock()
		return errors.Wrapf(errors.ErrNotFound, "connection %s on %s", connectionID, p.name)
	}
	delete(p.conns, connectionID)
	listeners := append([]ConnectionListener(nil), p.onDisconnect...)
	p.mu.Unlock()

	for _, fn := range listeners {
		fn(connectionID)
	}
	return nil
}

// Connections returns the connection ids in sorted order.
func (p *OutPort) Connections() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ids := make([]string, 0, len(p.conns))
	for id := range p.conns {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// PushSRI implements Egress.
func (p *OutPort) PushSRI(sri SRI) {
	p.mu.Lock()
	p.sris[sri.StreamID] = sri.Clone()
	sinks := p.sinksLocked()
	p.mu.Unlock()

	for _, s := range sinks {
		s.PushSRI(sri)
	}
}

// PushPacket implements Egress.
func (p *OutPort) PushPacket(data []sample.SC16, t Time, eob bool, streamID string) {
	p.mu.RLock()
	sinks := p.sinksLocked()
	p.mu.RUnlock()

	for _, s := range sinks {
		s.PushPacket(data, t, eob, streamID)
	}
}

// CurrentSRI returns the last descriptor pushed for a stream.
func (p *OutPort) CurrentSRI(streamID string) (SRI, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.sris[streamID]
	if !ok {
		return SRI{}, false
	}
	return s.Clone(), true
}

func (p *OutPort) sinksLocked() []Egress {
	out := make([]Egress, 0, len(p.conns))
	for _, s := range p.conns {
		out = append(out, s)
	}
	return out
}
