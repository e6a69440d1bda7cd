package am

import (
	"fmt"

	"github.com/spf13/viper"
)

// Default values shared with the bridge
const (
	DefaultFFTSize          = 1024
	DefaultMagnitudeOut     = "MAGNITUDE_SQUARED"
	DefaultTransformHint    = "FFT"
	DefaultDecimatorHint    = "KEEP_ONE_IN_N"
	DefaultMaxTransferBytes = 2 * 1024 * 1024
	DefaultMetricsAddress   = "127.0.0.1:9464"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Device defaults
	v.SetDefault("device.simulate", true)
	v.SetDefault("device.transform_hint", DefaultTransformHint)
	v.SetDefault("device.decimator_hint", DefaultDecimatorHint)
	v.SetDefault("device.sample_rate", 1e6)
	v.SetDefault("device.min_image_version", "")

	// Bridge defaults
	v.SetDefault("bridge.id", "")
	v.SetDefault("bridge.fft_size", DefaultFFTSize)
	v.SetDefault("bridge.magnitude_out", DefaultMagnitudeOut)
	v.SetDefault("bridge.reset_on_resize", false)
	v.SetDefault("bridge.auto_rx", true)
	v.SetDefault("bridge.auto_tx", true)

	// Stream defaults
	v.SetDefault("stream.recv_timeout_ms", 3000) // Matches the driver's default receive wait
	v.SetDefault("stream.send_timeout_ms", 100)
	v.SetDefault("stream.drain_timeout_ms", 100)
	v.SetDefault("stream.drain_attempts", 16)
	v.SetDefault("stream.max_transfer_bytes", DefaultMaxTransferBytes)
	v.SetDefault("stream.buffer_fraction", 0.8)
	v.SetDefault("stream.max_reacquire_attempts", 3)
	v.SetDefault("stream.queue_depth", 100)

	// Worker defaults
	v.SetDefault("worker.noop_delay_ms", 100)
	v.SetDefault("worker.stop_timeout_ms", 5000) // Longer than stream.recv_timeout_ms

	// Log defaults
	v.SetDefault("log.json", false)
	v.SetDefault("log.theme", "everforest")

	// Metrics defaults
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.address", DefaultMetricsAddress)
}

// BindEnvVars explicitly binds settings operators commonly override per host
func BindEnvVars(v *viper.Viper) {
	v.BindEnv("device.simulate", "RFBRIDGE_SIMULATE")
	v.BindEnv("bridge.fft_size", "RFBRIDGE_FFT_SIZE")
	v.BindEnv("metrics.address", "RFBRIDGE_METRICS_ADDRESS")
}

// GetLogTheme returns the log theme (default: everforest)
func (c *Config) GetLogTheme() string {
	if c.Log.Theme == "" {
		return "everforest"
	}
	return c.Log.Theme
}

// GetMetricsAddress returns the metrics listen address
func (c *Config) GetMetricsAddress() string {
	if c.Metrics.Address == "" {
		return DefaultMetricsAddress
	}
	return c.Metrics.Address
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf("Config{Device: {Simulate: %t}, Bridge: {FFTSize: %d, MagnitudeOut: %s}, Stream: {RecvTimeoutMS: %d}}",
		c.Device.Simulate, c.Bridge.FFTSize, c.Bridge.MagnitudeOut, c.Stream.RecvTimeoutMS)
}
