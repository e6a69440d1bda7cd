package bridge

import (
	"strconv"

	"github.com/teranos/rfbridge/am"
	"github.com/teranos/rfbridge/device"
	"github.com/teranos/rfbridge/errors"
	"github.com/teranos/rfbridge/logger"
)

// SetFFTSize changes the transform size. Sizes outside [16, 4096] or not a
// power of two are rejected, as is any size the block refuses; a rejected
// size leaves the previous one active. Before Initialize the size is only
// recorded and is pushed when the blocks are claimed.
func (c *Component) SetFFTSize(n uint32) error {
	prev := c.fftSize.Load()

	if !am.ValidFFTSize(n) {
		c.gateLog.Warnw("Rejected FFT size",
			logger.FieldFFTSize, n,
			logger.FieldPrevious, prev)
		c.metrics.RecordRejected(c.id, "fft_size")
		return errors.NewConfigRejectedError("fft size %d must be a power of two in [%d, %d]", n, am.MinFFTSize, am.MaxFFTSize)
	}

	c.handleMu.Lock()
	if c.fftBlock == nil {
		c.fftSize.Store(n)
		c.handleMu.Unlock()
		return nil
	}

	err := c.fftBlock.SetArgs(map[string]string{device.ArgSPP: strconv.FormatUint(uint64(n), 10)}, c.fftRef.Port)
	if err != nil {
		c.handleMu.Unlock()
		c.gateLog.Warnw("Unable to configure FFT with requested size",
			logger.FieldFFTSize, n,
			logger.FieldPrevious, prev,
			logger.FieldError, err)
		c.metrics.RecordRejected(c.id, "fft_size")
		return errors.Mark(errors.Wrapf(err, "fft block refused size %d", n), errors.ErrConfigRejected)
	}
	c.fftSize.Store(n)

	if c.opts.ResetOnResize {
		c.pulseResetLocked()
	}
	c.handleMu.Unlock()

	c.gateLog.Infow("FFT size applied", logger.FieldFFTSize, n, logger.FieldPrevious, prev)
	c.metrics.RecordFFTSize(c.id, n)
	c.repropagate()
	return nil
}

// pulseResetLocked toggles the block reset argument. Failures are logged and
// do not undo the size change.
func (c *Component) pulseResetLocked() {
	for _, v := range []string{"1", "0"} {
		if err := c.fftBlock.SetArgs(map[string]string{device.ArgReset: v}, c.fftRef.Port); err != nil {
			c.gateLog.Warnw("FFT reset pulse failed", logger.FieldError, err)
			return
		}
	}
}

// FFTSize returns the active transform size.
func (c *Component) FFTSize() uint32 {
	return c.fftSize.Load()
}

// SetMagnitudeOut pushes the FFT output mode. The mode is recorded even when
// the block refuses it; the error is the caller's to act on.
func (c *Component) SetMagnitudeOut(mode string) error {
	if mode == "" {
		return errors.NewConfigRejectedError("magnitude_out cannot be empty")
	}

	c.handleMu.Lock()
	c.magnitudeOut = mode
	blk, port := c.fftBlock, c.fftRef.Port
	var err error
	if blk != nil {
		err = blk.SetArgs(map[string]string{device.ArgMagnitudeOut: mode}, port)
	}
	c.handleMu.Unlock()

	if err != nil {
		c.gateLog.Errorw("Error while setting magnitude_out on FFT block",
			logger.FieldMagnitudeOut, mode,
			logger.FieldError, err)
		c.metrics.RecordRejected(c.id, "magnitude_out")
		return errors.Wrapf(err, "fft block refused magnitude_out %q", mode)
	}
	if blk != nil {
		c.gateLog.Infow("Magnitude mode applied", logger.FieldMagnitudeOut, mode)
	}
	return nil
}

// MagnitudeOut returns the last requested FFT output mode.
func (c *Component) MagnitudeOut() string {
	c.handleMu.Lock()
	defer c.handleMu.Unlock()
	return c.magnitudeOut
}

// ApplyConfig feeds a reloaded configuration through the gate. Only the
// settings that can change while streaming are applied: fft size, magnitude
// mode and the loop noop delay.
func (c *Component) ApplyConfig(cfg *am.Config) error {
	var errs error
	collect := func(err error) {
		if errs == nil {
			errs = err
			return
		}
		errs = errors.WithSecondaryError(errs, err)
	}

	if cfg.Bridge.FFTSize != c.FFTSize() {
		if err := c.SetFFTSize(cfg.Bridge.FFTSize); err != nil {
			collect(err)
		}
	}
	if cfg.Bridge.MagnitudeOut != c.MagnitudeOut() {
		if err := c.SetMagnitudeOut(cfg.Bridge.MagnitudeOut); err != nil {
			collect(err)
		}
	}
	if d := cfg.Worker.NoopDelay(); d > 0 {
		c.SetNoopDelay(d)
	}
	return errs
}
