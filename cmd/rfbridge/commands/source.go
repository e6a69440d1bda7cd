package commands

import (
	"context"
	"math"
	"time"

	"github.com/teranos/rfbridge/bulkio"
	"github.com/teranos/rfbridge/sample"
)

const (
	toneStreamID  = "tone"
	toneAmplitude = 8191
	tonePeriod    = 50 * time.Millisecond
)

// toneSource pushes a complex sinusoid into an input port, one batch per
// tick, until ctx ends. The stream closes with an EOS.
type toneSource struct {
	in        *bulkio.InPort
	rateHz    float64
	toneHz    float64
	batch     int
	generated int64
}

func (s *toneSource) run(ctx context.Context) {
	sri := bulkio.DefaultSRI(toneStreamID)
	sri.XDelta = 1 / s.rateHz
	sri.XUnits = bulkio.UnitsTime
	sri.Mode = bulkio.ModeComplex
	s.in.PushSRI(sri)

	ticker := time.NewTicker(tonePeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.in.PushEOS(s.timestamp(), toneStreamID)
			return
		case <-ticker.C:
			t := s.timestamp()
			s.in.Push(ctx, s.next(), t, false, false, toneStreamID)
		}
	}
}

func (s *toneSource) timestamp() bulkio.Time {
	return bulkio.FromSeconds(float64(s.generated) / s.rateHz)
}

func (s *toneSource) next() []sample.SC16 {
	out := make([]sample.SC16, s.batch)
	step := 2 * math.Pi * s.toneHz / s.rateHz
	for i := range out {
		phase := step * float64(s.generated+int64(i))
		out[i] = sample.SC16{
			I: int16(toneAmplitude * math.Cos(phase)),
			Q: int16(toneAmplitude * math.Sin(phase)),
		}
	}
	s.generated += int64(s.batch)
	return out
}
