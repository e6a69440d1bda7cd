package metrics

import (
	"fmt"

	"github.com/shirou/gopsutil/v3/mem"

	"github.com/teranos/rfbridge/errors"
)

// memoryHeadroom is the share of available memory sample buffers may use
// before a warning is raised.
const memoryHeadroom = 0.25

var virtualMemory = mem.VirtualMemory

// MemoryStats returns total and available host memory in bytes.
func MemoryStats() (total uint64, available uint64, err error) {
	v, err := virtualMemory()
	if err != nil {
		return 0, 0, errors.Wrap(err, "failed to get memory stats")
	}
	return v.Total, v.Available, nil
}

// CheckMemoryPressure compares the bytes sample buffers need against available
// memory. It returns a warning message, or "" when there is room or memory
// cannot be read. The available figure is recorded on m.
func (m *Metrics) CheckMemoryPressure(bufferBytes uint64) string {
	total, available, err := MemoryStats()
	if err != nil {
		return ""
	}
	if m != nil {
		m.MemoryAvailable.Set(float64(available))
	}

	if float64(bufferBytes) > memoryHeadroom*float64(available) {
		const mib = 1024 * 1024
		return fmt.Sprintf(
			"Sample buffers need %.1fMiB but only %.1f/%.1fMiB is available. "+
				"Consider lowering stream.max_transfer_bytes or stream.buffer_fraction.",
			float64(bufferBytes)/mib, float64(available)/mib, float64(total)/mib)
	}
	return ""
}
