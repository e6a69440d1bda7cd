package device

import (
	"github.com/teranos/rfbridge/errors"
)

// FindAvailableChannel returns the first block matching hint with a port that
// is free on both its input and output side.
func FindAvailableChannel(dev Device, hint string) (BlockInfo, error) {
	return findAvailable(dev, hint, func(blk Block) []int {
		in, out := blk.InputPorts(), blk.OutputPorts()
		n := len(in)
		if len(out) < n {
			n = len(out)
		}
		var free []int
		for port := 0; port < n; port++ {
			if _, up := blk.UpstreamPort(port); up {
				continue
			}
			if _, down := blk.DownstreamPort(port); down {
				continue
			}
			free = append(free, port)
		}
		return free
	})
}

// FindAvailableSink returns the first block matching hint with an unconnected
// input port.
func FindAvailableSink(dev Device, hint string) (BlockInfo, error) {
	return findAvailable(dev, hint, func(blk Block) []int {
		var free []int
		for _, port := range blk.InputPorts() {
			if _, up := blk.UpstreamPort(port); !up {
				free = append(free, port)
			}
		}
		return free
	})
}

// FindAvailableSource returns the first block matching hint with an
// unconnected output port.
func FindAvailableSource(dev Device, hint string) (BlockInfo, error) {
	return findAvailable(dev, hint, func(blk Block) []int {
		var free []int
		for _, port := range blk.OutputPorts() {
			if _, down := blk.DownstreamPort(port); !down {
				free = append(free, port)
			}
		}
		return free
	})
}

func findAvailable(dev Device, hint string, freePorts func(Block) []int) (BlockInfo, error) {
	if dev == nil {
		return BlockInfo{Port: -1}, errors.ErrNoDevice
	}

	ids := dev.FindBlocks(hint)
	if len(ids) == 0 {
		return BlockInfo{Port: -1}, errors.WithHintf(
			errors.Wrapf(errors.ErrBlockNotFound, "no block matches hint %q", hint),
			"check that the loaded FPGA image contains a %s block", hint)
	}

	for _, id := range ids {
		blk, err := dev.Block(id)
		if err != nil {
			continue
		}
		if free := freePorts(blk); len(free) > 0 {
			return BlockInfo{BlockID: id, Port: free[0]}, nil
		}
	}

	return BlockInfo{BlockID: ids[0], Port: -1}, errors.WithHint(
		errors.Wrapf(errors.ErrNoAvailablePort, "every %q block port is in use", hint),
		"release another component holding the block or load an image with more channels")
}
