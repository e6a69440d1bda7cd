// Package sample defines the element formats carried by hardware streams and
// software ports. A format is chosen once, when a stream is opened, and every
// batch on that stream is a slice of the matching Go type.
package sample

import "fmt"

// Format names a host-side sample representation.
type Format string

const (
	// FormatSC16 is complex int16 (I/Q interleaved on the wire)
	FormatSC16 Format = "sc16"
	// FormatFC32 is complex float32
	FormatFC32 Format = "fc32"
)

// BytesPerSample returns the wire size of one sample in the format.
func (f Format) BytesPerSample() int {
	switch f {
	case FormatSC16:
		return 4
	case FormatFC32:
		return 8
	default:
		return 0
	}
}

// Valid reports whether f is a known format.
func (f Format) Valid() bool {
	return f.BytesPerSample() > 0
}

// SC16 is one complex sample with 16-bit in-phase and quadrature parts.
type SC16 struct {
	I int16
	Q int16
}

func (s SC16) String() string {
	return fmt.Sprintf("(%d,%d)", s.I, s.Q)
}

// Complex64 widens the sample to a complex64.
func (s SC16) Complex64() complex64 {
	return complex(float32(s.I), float32(s.Q))
}

// Interleave copies samples into an I/Q interleaved int16 slice.
func Interleave(samples []SC16) []int16 {
	out := make([]int16, 2*len(samples))
	for i, s := range samples {
		out[2*i] = s.I
		out[2*i+1] = s.Q
	}
	return out
}

// Deinterleave builds samples from an I/Q interleaved int16 slice. A trailing
// odd element is ignored.
func Deinterleave(iq []int16) []SC16 {
	out := make([]SC16, len(iq)/2)
	for i := range out {
		out[i] = SC16{I: iq[2*i], Q: iq[2*i+1]}
	}
	return out
}

// CapacityFor returns how many samples of format f fit in fraction of maxBytes.
// It never returns less than one.
func CapacityFor(f Format, maxBytes int, fraction float64) int {
	bps := f.BytesPerSample()
	if bps == 0 || maxBytes <= 0 || fraction <= 0 {
		return 1
	}
	n := int(fraction * float64(maxBytes) / float64(bps))
	if n < 1 {
		return 1
	}
	return n
}
