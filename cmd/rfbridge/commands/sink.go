package commands

import (
	"sync"

	"github.com/teranos/rfbridge/bulkio"
	"github.com/teranos/rfbridge/sample"
)

// statsSink counts what the bridge pushes downstream.
type statsSink struct {
	mu      sync.Mutex
	packets int
	samples int
	bursts  int
	sri     bulkio.SRI
	hasSRI  bool
}

func (s *statsSink) PushSRI(sri bulkio.SRI) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sri = sri.Clone()
	s.hasSRI = true
}

func (s *statsSink) PushPacket(data []sample.SC16, _ bulkio.Time, eob bool, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.packets++
	s.samples += len(data)
	if eob {
		s.bursts++
	}
}

type sinkStats struct {
	Packets int
	Samples int
	Bursts  int
	SRI     bulkio.SRI
	HasSRI  bool
}

func (s *statsSink) snapshot() sinkStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sinkStats{Packets: s.packets, Samples: s.samples, Bursts: s.bursts, SRI: s.sri.Clone(), HasSRI: s.hasSRI}
}
