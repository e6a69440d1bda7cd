package am

import (
	"github.com/Masterminds/semver/v3"

	"github.com/teranos/rfbridge/errors"
)

// Transform size bounds enforced by the configuration gate
const (
	MinFFTSize = 16
	MaxFFTSize = 4096
)

// ValidFFTSize reports whether n is a power of two within [MinFFTSize, MaxFFTSize]
func ValidFFTSize(n uint32) bool {
	return n >= MinFFTSize && n <= MaxFFTSize && n&(n-1) == 0
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Device.TransformHint == "" {
		return errors.New("device.transform_hint cannot be empty")
	}
	if c.Device.DecimatorHint == "" {
		return errors.New("device.decimator_hint cannot be empty")
	}
	if c.Device.SampleRate <= 0 {
		return errors.Newf("device.sample_rate must be > 0, got %f", c.Device.SampleRate)
	}
	if c.Device.MinImageVersion != "" {
		if _, err := semver.NewConstraint(c.Device.MinImageVersion); err != nil {
			return errors.Wrapf(err, "device.min_image_version %q is not a valid constraint", c.Device.MinImageVersion)
		}
	}

	if !ValidFFTSize(c.Bridge.FFTSize) {
		return errors.Newf("bridge.fft_size must be a power of two in [%d, %d], got %d", MinFFTSize, MaxFFTSize, c.Bridge.FFTSize)
	}
	if c.Bridge.MagnitudeOut == "" {
		return errors.New("bridge.magnitude_out cannot be empty")
	}

	// Timeouts: zero would turn every receive into a busy poll
	if c.Stream.RecvTimeoutMS <= 0 {
		return errors.Newf("stream.recv_timeout_ms must be > 0, got %d", c.Stream.RecvTimeoutMS)
	}
	if c.Stream.SendTimeoutMS <= 0 {
		return errors.Newf("stream.send_timeout_ms must be > 0, got %d", c.Stream.SendTimeoutMS)
	}
	if c.Stream.DrainTimeoutMS < 0 {
		return errors.Newf("stream.drain_timeout_ms must be >= 0, got %d", c.Stream.DrainTimeoutMS)
	}
	if c.Stream.DrainAttempts < 0 {
		return errors.Newf("stream.drain_attempts must be >= 0, got %d", c.Stream.DrainAttempts)
	}
	if c.Stream.MaxTransferBytes < 4 {
		return errors.Newf("stream.max_transfer_bytes must hold at least one sample, got %d", c.Stream.MaxTransferBytes)
	}
	if c.Stream.BufferFraction <= 0 || c.Stream.BufferFraction > 1 {
		return errors.Newf("stream.buffer_fraction must be in (0, 1], got %f", c.Stream.BufferFraction)
	}
	if c.Stream.MaxReacquireAttempts < 1 {
		return errors.Newf("stream.max_reacquire_attempts must be >= 1, got %d", c.Stream.MaxReacquireAttempts)
	}
	if c.Stream.QueueDepth < 0 {
		return errors.Newf("stream.queue_depth must be >= 0, got %d", c.Stream.QueueDepth)
	}

	if c.Worker.NoopDelayMS < 0 {
		return errors.Newf("worker.noop_delay_ms must be >= 0, got %d", c.Worker.NoopDelayMS)
	}
	if c.Worker.StopTimeoutMS <= 0 {
		return errors.Newf("worker.stop_timeout_ms must be > 0, got %d", c.Worker.StopTimeoutMS)
	}

	switch c.Log.Theme {
	case "", "gruvbox", "everforest":
	default:
		return errors.Newf("log.theme must be gruvbox or everforest, got %q", c.Log.Theme)
	}

	if c.Metrics.Enabled && c.Metrics.Address == "" {
		return errors.New("metrics.address cannot be empty when enabled")
	}

	return nil
}
