package am

import "time"

// Config represents the rfbridge configuration
type Config struct {
	Device  DeviceConfig  `mapstructure:"device"`
	Bridge  BridgeConfig  `mapstructure:"bridge"`
	Stream  StreamConfig  `mapstructure:"stream"`
	Worker  WorkerConfig  `mapstructure:"worker"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// DeviceConfig selects the device and the blocks claimed on it
type DeviceConfig struct {
	Simulate        bool    `mapstructure:"simulate"`          // Use the in-process simulated device
	TransformHint   string  `mapstructure:"transform_hint"`    // Block id hint for the FFT stage (default: FFT)
	DecimatorHint   string  `mapstructure:"decimator_hint"`    // Block id hint for the rate-reduction stage (default: KEEP_ONE_IN_N)
	SampleRate      float64 `mapstructure:"sample_rate"`       // Hz, stamps simulated timestamps
	MinImageVersion string  `mapstructure:"min_image_version"` // Semver constraint on the FPGA image (empty = any)
}

// BridgeConfig configures the streaming bridge component
type BridgeConfig struct {
	ID            string `mapstructure:"id"`              // Instance identifier (empty = generated)
	FFTSize       uint32 `mapstructure:"fft_size"`        // Power of two in [16, 4096]
	MagnitudeOut  string `mapstructure:"magnitude_out"`   // FFT output mode pushed to the block
	ResetOnResize bool   `mapstructure:"reset_on_resize"` // Pulse the block reset after a size change
	AutoRX        bool   `mapstructure:"auto_rx"`         // Enable ingress from hardware at startup
	AutoTX        bool   `mapstructure:"auto_tx"`         // Enable egress to hardware at startup
}

// StreamConfig tunes the hardware data path
type StreamConfig struct {
	RecvTimeoutMS        int     `mapstructure:"recv_timeout_ms"`
	SendTimeoutMS        int     `mapstructure:"send_timeout_ms"`
	DrainTimeoutMS       int     `mapstructure:"drain_timeout_ms"`
	DrainAttempts        int     `mapstructure:"drain_attempts"`         // Receives tried after stopping RX before release
	MaxTransferBytes     int     `mapstructure:"max_transfer_bytes"`     // Largest batch the egress port carries
	BufferFraction       float64 `mapstructure:"buffer_fraction"`        // Share of max_transfer_bytes used for the RX batch
	MaxReacquireAttempts int     `mapstructure:"max_reacquire_attempts"` // Consecutive failed sends before a batch is dropped
	QueueDepth           int     `mapstructure:"queue_depth"`            // Ingress port capacity in packets
}

// WorkerConfig paces the RX and TX service loops
type WorkerConfig struct {
	NoopDelayMS   int `mapstructure:"noop_delay_ms"`
	StopTimeoutMS int `mapstructure:"stop_timeout_ms"`
}

// LogConfig configures console output
type LogConfig struct {
	JSON  bool   `mapstructure:"json"`
	Theme string `mapstructure:"theme"` // Color theme: gruvbox, everforest
}

// MetricsConfig configures the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

// File system constants
const (
	DefaultDirPermissions  = 0755 // Standard directory permissions (rwxr-xr-x)
	DefaultFilePermissions = 0644 // Standard file permissions (rw-r--r--)
)

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// RecvTimeout returns the per-call receive timeout
func (c StreamConfig) RecvTimeout() time.Duration { return millis(c.RecvTimeoutMS) }

// SendTimeout returns the per-call send timeout
func (c StreamConfig) SendTimeout() time.Duration { return millis(c.SendTimeoutMS) }

// DrainTimeout returns the per-call timeout used while draining
func (c StreamConfig) DrainTimeout() time.Duration { return millis(c.DrainTimeoutMS) }

// NoopDelay returns the sleep after an idle loop iteration
func (c WorkerConfig) NoopDelay() time.Duration { return millis(c.NoopDelayMS) }

// StopTimeout returns the bounded wait when stopping a loop
func (c WorkerConfig) StopTimeout() time.Duration { return millis(c.StopTimeoutMS) }
