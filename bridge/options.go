package bridge

import (
	"time"

	"github.com/teranos/rfbridge/am"
	"github.com/teranos/rfbridge/sample"
	"github.com/teranos/rfbridge/worker"
)

// Options configures a Component. Build them from an am.Config with
// OptionsFromConfig or start from DefaultOptions.
type Options struct {
	ID              string
	TransformHint   string
	DecimatorHint   string
	MinImageVersion string

	FFTSize       uint32
	MagnitudeOut  string
	ResetOnResize bool

	RecvTimeout          time.Duration
	SendTimeout          time.Duration
	DrainTimeout         time.Duration
	DrainAttempts        int
	MaxTransferBytes     int
	BufferFraction       float64
	MaxReacquireAttempts int

	Worker worker.Config

	// Trace logs every pushed batch and every send at debug level.
	Trace bool
}

// DefaultOptions mirrors the am defaults.
func DefaultOptions() Options {
	return Options{
		TransformHint:        am.DefaultTransformHint,
		DecimatorHint:        am.DefaultDecimatorHint,
		FFTSize:              am.DefaultFFTSize,
		MagnitudeOut:         am.DefaultMagnitudeOut,
		RecvTimeout:          3 * time.Second,
		SendTimeout:          100 * time.Millisecond,
		DrainTimeout:         100 * time.Millisecond,
		DrainAttempts:        16,
		MaxTransferBytes:     am.DefaultMaxTransferBytes,
		BufferFraction:       0.8,
		MaxReacquireAttempts: 3,
		Worker:               worker.DefaultConfig(),
	}
}

// OptionsFromConfig maps the loaded configuration onto component options.
func OptionsFromConfig(cfg *am.Config) Options {
	return Options{
		ID:                   cfg.Bridge.ID,
		TransformHint:        cfg.Device.TransformHint,
		DecimatorHint:        cfg.Device.DecimatorHint,
		MinImageVersion:      cfg.Device.MinImageVersion,
		FFTSize:              cfg.Bridge.FFTSize,
		MagnitudeOut:         cfg.Bridge.MagnitudeOut,
		ResetOnResize:        cfg.Bridge.ResetOnResize,
		RecvTimeout:          cfg.Stream.RecvTimeout(),
		SendTimeout:          cfg.Stream.SendTimeout(),
		DrainTimeout:         cfg.Stream.DrainTimeout(),
		DrainAttempts:        cfg.Stream.DrainAttempts,
		MaxTransferBytes:     cfg.Stream.MaxTransferBytes,
		BufferFraction:       cfg.Stream.BufferFraction,
		MaxReacquireAttempts: cfg.Stream.MaxReacquireAttempts,
		Worker: worker.Config{
			NoopDelay:   cfg.Worker.NoopDelay(),
			StopTimeout: cfg.Worker.StopTimeout(),
		},
	}
}

// rxCapacity is the RX batch size in samples.
func (o Options) rxCapacity() int {
	return sample.CapacityFor(sample.FormatSC16, o.MaxTransferBytes, o.BufferFraction)
}

func (o Options) maxReacquire() int {
	if o.MaxReacquireAttempts < 1 {
		return 1
	}
	return o.MaxReacquireAttempts
}
