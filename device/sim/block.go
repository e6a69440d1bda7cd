package sim

import (
	"sync"

	"github.com/teranos/rfbridge/device"
	"github.com/teranos/rfbridge/errors"
)

// ArgsUpdate records one SetArgs call.
type ArgsUpdate struct {
	Port int
	Args map[string]string
}

// Block is a simulated processing block.
type Block struct {
	mu         sync.Mutex
	id         string
	ports      int
	args       map[string]string
	upstream   map[int]device.BlockInfo
	downstream map[int]device.BlockInfo
	history    []ArgsUpdate
	failures   []error
	cleared    []int
}

func newBlock(spec BlockSpec) *Block {
	ports := spec.Ports
	if ports <= 0 {
		ports = defaultPorts
	}
	args := make(map[string]string, len(spec.Args))
	for k, v := range spec.Args {
		args[k] = v
	}
	return &Block{
		id:         spec.ID,
		ports:      ports,
		args:       args,
		upstream:   make(map[int]device.BlockInfo),
		downstream: make(map[int]device.BlockInfo),
	}
}

// ID implements device.Block.
func (b *Block) ID() string { return b.id }

// Args implements device.Block.
func (b *Block) Args() map[string]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return copyArgs(b.args)
}

// SetArgs implements device.Block.
func (b *Block) SetArgs(args map[string]string, port int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.failures) > 0 {
		err := b.failures[0]
		b.failures = b.failures[1:]
		return err
	}
	if port < 0 || port >= b.ports {
		return errors.Wrapf(errors.ErrInvalidRequest, "block %s has no port %d", b.id, port)
	}
	for k, v := range args {
		b.args[k] = v
	}
	b.history = append(b.history, ArgsUpdate{Port: port, Args: copyArgs(args)})
	return nil
}

// FailNextSetArgs makes the next SetArgs return err without applying anything.
func (b *Block) FailNextSetArgs(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = append(b.failures, err)
}

// History returns every applied SetArgs call in order.
func (b *Block) History() []ArgsUpdate {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]ArgsUpdate, len(b.history))
	for i, u := range b.history {
		out[i] = ArgsUpdate{Port: u.Port, Args: copyArgs(u.Args)}
	}
	return out
}

// Cleared returns the ports passed to Clear.
func (b *Block) Cleared() []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]int(nil), b.cleared...)
}

// InputPorts implements device.Block.
func (b *Block) InputPorts() []int { return b.portList() }

// OutputPorts implements device.Block.
func (b *Block) OutputPorts() []int { return b.portList() }

func (b *Block) portList() []int {
	ports := make([]int, b.ports)
	for i := range ports {
		ports[i] = i
	}
	return ports
}

// UpstreamPort implements device.Block.
func (b *Block) UpstreamPort(port int) (device.BlockInfo, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	info, ok := b.upstream[port]
	return info, ok
}

// DownstreamPort implements device.Block.
func (b *Block) DownstreamPort(port int) (device.BlockInfo, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	info, ok := b.downstream[port]
	return info, ok
}

// Clear implements device.Block.
func (b *Block) Clear(port int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.upstream, port)
	delete(b.downstream, port)
	b.cleared = append(b.cleared, port)
}

func (b *Block) linkDownstream(port int, to device.BlockInfo) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if port < 0 || port >= b.ports {
		return errors.Wrapf(errors.ErrInvalidRequest, "block %s has no port %d", b.id, port)
	}
	if existing, ok := b.downstream[port]; ok {
		return errors.Newf("block %s port %d already feeds %s", b.id, port, existing)
	}
	b.downstream[port] = to
	return nil
}

func (b *Block) linkUpstream(port int, from device.BlockInfo) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if port < 0 || port >= b.ports {
		return errors.Wrapf(errors.ErrInvalidRequest, "block %s has no port %d", b.id, port)
	}
	if existing, ok := b.upstream[port]; ok {
		return errors.Newf("block %s port %d already fed by %s", b.id, port, existing)
	}
	b.upstream[port] = from
	return nil
}

func copyArgs(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
