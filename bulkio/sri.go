// Package bulkio carries typed sample batches between components along with
// the stream descriptor (SRI) that explains how to interpret them. Ports are
// in-memory: an OutPort fans pushes out to connected sinks, and an InPort
// queues them for a consumer goroutine.
package bulkio

import (
	"fmt"
	"maps"
)

// Units are X-Midas axis unit codes.
type Units int

const (
	UnitsNone      Units = 0
	UnitsTime      Units = 1
	UnitsFrequency Units = 3
)

func (u Units) String() string {
	switch u {
	case UnitsNone:
		return "none"
	case UnitsTime:
		return "time"
	case UnitsFrequency:
		return "frequency"
	default:
		return fmt.Sprintf("units(%d)", int(u))
	}
}

// Mode says whether samples are real or complex.
type Mode int

const (
	ModeScalar  Mode = 0
	ModeComplex Mode = 1
)

func (m Mode) String() string {
	if m == ModeComplex {
		return "complex"
	}
	return "scalar"
}

// SRI describes one stream: its identity, the sample spacing and start of the
// primary axis, and for framed data the frame length and frame spacing.
type SRI struct {
	StreamID string            `json:"stream_id"`
	XStart   float64           `json:"xstart"`
	XDelta   float64           `json:"xdelta"`
	XUnits   Units             `json:"xunits"`
	Subsize  uint32            `json:"subsize"`
	YStart   float64           `json:"ystart"`
	YDelta   float64           `json:"ydelta"`
	YUnits   Units             `json:"yunits"`
	Mode     Mode              `json:"mode"`
	Blocking bool              `json:"blocking"`
	Keywords map[string]string `json:"keywords,omitempty"`
}

// DefaultSRI returns the descriptor assumed for a stream nobody described.
func DefaultSRI(streamID string) SRI {
	return SRI{
		StreamID: streamID,
		XDelta:   1,
		XUnits:   UnitsTime,
		Mode:     ModeScalar,
	}
}

// Clone returns a copy that shares no keyword storage with s.
func (s SRI) Clone() SRI {
	out := s
	if s.Keywords != nil {
		out.Keywords = maps.Clone(s.Keywords)
	}
	return out
}

// Equal reports whether two descriptors are identical, keywords included.
func (s SRI) Equal(o SRI) bool {
	if s.StreamID != o.StreamID || s.XStart != o.XStart || s.XDelta != o.XDelta ||
		s.XUnits != o.XUnits || s.Subsize != o.Subsize || s.YStart != o.YStart ||
		s.YDelta != o.YDelta || s.YUnits != o.YUnits || s.Mode != o.Mode ||
		s.Blocking != o.Blocking {
		return false
	}
	return maps.Equal(s.Keywords, o.Keywords)
}

// SampleRate returns 1/XDelta, or zero when XDelta is unset.
func (s SRI) SampleRate() float64 {
	if s.XDelta == 0 {
		return 0
	}
	return 1 / s.XDelta
}
