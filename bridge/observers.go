package bridge

import (
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/teranos/rfbridge/device"
)

// EventKind selects which observers an Event is delivered to.
type EventKind int

const (
	// EventBlockClaimed announces the hardware blocks an instance now owns.
	EventBlockClaimed EventKind = iota
	EventIncomingAdded
	EventIncomingRemoved
	EventOutgoingAdded
	EventOutgoingRemoved
)

func (k EventKind) String() string {
	switch k {
	case EventBlockClaimed:
		return "block_claimed"
	case EventIncomingAdded:
		return "incoming_added"
	case EventIncomingRemoved:
		return "incoming_removed"
	case EventOutgoingAdded:
		return "outgoing_added"
	case EventOutgoingRemoved:
		return "outgoing_removed"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is a lifecycle notification for whoever allocates hardware across
// components.
type Event struct {
	Kind       EventKind
	InstanceID string
	// StreamID is the upstream stream id for incoming events and the
	// connection id for outgoing ones.
	StreamID string
	Hash     int
	Blocks   []device.BlockInfo
}

// Observer receives events. Observers run on the goroutine that raised the
// event and must not block.
type Observer func(Event)

// Observers is an event-keyed table of handlers.
type Observers struct {
	mu    sync.RWMutex
	table map[EventKind][]Observer
}

// On registers fn for events of kind.
func (o *Observers) On(kind EventKind, fn Observer) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.table == nil {
		o.table = make(map[EventKind][]Observer)
	}
	o.table[kind] = append(o.table[kind], fn)
}

func (o *Observers) notify(ev Event) {
	o.mu.RLock()
	handlers := append([]Observer(nil), o.table[ev.Kind]...)
	o.mu.RUnlock()
	for _, fn := range handlers {
		fn(ev)
	}
}

// ConnectionHash reduces a stream or connection id to the six-digit number
// reported alongside connection events.
func ConnectionHash(id string) int {
	h := fnv.New32a()
	h.Write([]byte(id))
	return int(h.Sum32() % 1000000)
}

// connectionRegistry tracks which upstream stream ids are open.
type connectionRegistry struct {
	open map[string]bool
}

// observe records one packet for streamID and reports whether it opened a
// new connection or closed an existing one.
func (r *connectionRegistry) observe(streamID string, eos bool) (added, removed bool) {
	if r.open == nil {
		r.open = make(map[string]bool)
	}
	if !r.open[streamID] {
		if eos {
			// Opened and closed by the same packet
			return true, true
		}
		r.open[streamID] = true
		return true, false
	}
	if eos {
		delete(r.open, streamID)
		return false, true
	}
	return false, false
}

func (r *connectionRegistry) len() int {
	return len(r.open)
}
