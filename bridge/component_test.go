package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/rfbridge/am"
	"github.com/teranos/rfbridge/device"
	"github.com/teranos/rfbridge/device/sim"
	"github.com/teranos/rfbridge/errors"
)

func TestInitialize_ClaimsAndWiresBlocks(t *testing.T) {
	dev := sim.NewDefault()
	h := newHarness(t, dev, testOptions())

	var claimed []Event
	h.c.Observers().On(EventBlockClaimed, func(ev Event) { claimed = append(claimed, ev) })

	require.NoError(t, h.c.Initialize())
	require.NoError(t, h.c.Initialize(), "second initialize is a no-op")

	fft := h.fftBlock(t)
	down, ok := fft.DownstreamPort(0)
	require.True(t, ok)
	assert.Equal(t, device.BlockInfo{BlockID: sim.OneInNBlockID, Port: 0}, down)

	args := fft.Args()
	assert.Equal(t, "1024", args[device.ArgSPP])
	assert.Equal(t, am.DefaultMagnitudeOut, args[device.ArgMagnitudeOut])

	require.Len(t, claimed, 1)
	assert.Equal(t, "test", claimed[0].InstanceID)
	assert.Equal(t, []device.BlockInfo{{BlockID: sim.FFTBlockID, Port: 0}}, claimed[0].Blocks)

	st := h.c.Status()
	assert.Equal(t, "psd_test", st.Graph)
	assert.Equal(t, sim.FFTBlockID, st.FFTBlock.BlockID)
	assert.Equal(t, sim.OneInNBlockID, st.DecBlock.BlockID)
	assert.False(t, st.Started)
}

func TestInitialize_GeneratesID(t *testing.T) {
	opts := testOptions()
	opts.ID = ""
	h := initializedWith(t, sim.NewDefault(), opts)

	assert.NotEmpty(t, h.c.ID())
	assert.Equal(t, GraphPrefix+h.c.ID(), h.c.GraphName())
}

func TestInitialize_FatalFailures(t *testing.T) {
	onlyDecimator := sim.DefaultConfig()
	onlyDecimator.Blocks = onlyDecimator.Blocks[1:]

	t.Run("no device", func(t *testing.T) {
		h := newHarness(t, nil, testOptions())
		err := h.c.Initialize()
		assert.True(t, errors.Is(err, errors.ErrNoDevice))
		assert.True(t, errors.IsFatalInit(err))
	})

	t.Run("no fft block", func(t *testing.T) {
		h := newHarness(t, sim.New(onlyDecimator), testOptions())
		err := h.c.Initialize()
		assert.True(t, errors.Is(err, errors.ErrBlockNotFound))
		assert.NotEmpty(t, errors.GetAllHints(err))
	})

	t.Run("no available port", func(t *testing.T) {
		dev := sim.NewDefault()
		first := newHarness(t, dev, testOptions())
		require.NoError(t, first.c.Initialize())

		opts := testOptions()
		opts.ID = "second"
		second := newHarness(t, dev, opts)
		err := second.c.Initialize()
		assert.True(t, errors.Is(err, errors.ErrNoAvailablePort))
	})

	t.Run("initial fft size refused", func(t *testing.T) {
		dev := sim.NewDefault()
		blk, err := dev.SimBlock(sim.FFTBlockID)
		require.NoError(t, err)
		blk.FailNextSetArgs(errors.New("value_error"))

		h := newHarness(t, dev, testOptions())
		err = h.c.Initialize()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "initial value")
	})

	t.Run("initial magnitude refused", func(t *testing.T) {
		dev := sim.NewDefault()
		h := newHarness(t, dev, testOptions())

		blk, err := dev.SimBlock(sim.FFTBlockID)
		require.NoError(t, err)
		// The size push succeeds, the magnitude push fails
		blk.FailNextSetArgs(nil)
		blk.FailNextSetArgs(errors.New("value_error"))

		err = h.c.Initialize()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "magnitude_out")
	})

	t.Run("image too old", func(t *testing.T) {
		opts := testOptions()
		opts.MinImageVersion = ">= 5.0.0"
		h := newHarness(t, sim.NewDefault(), opts)
		err := h.c.Initialize()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "does not satisfy")
	})

	t.Run("image new enough", func(t *testing.T) {
		opts := testOptions()
		opts.MinImageVersion = "^4.0.0"
		h := newHarness(t, sim.NewDefault(), opts)
		assert.NoError(t, h.c.Initialize())
	})
}

// graphCounter counts graph creations on the simulator.
type graphCounter struct {
	*sim.Device
	created int
}

func (g *graphCounter) CreateGraph(name string) (device.Graph, error) {
	g.created++
	return g.Device.CreateGraph(name)
}

func TestInitialize_RetryAfterRefusedPush(t *testing.T) {
	dev := &graphCounter{Device: sim.NewDefault()}
	h := newHarness(t, dev, testOptions())
	h.dev = dev.Device

	fft := h.fftBlock(t)
	fft.FailNextSetArgs(errors.New("value_error"))
	require.Error(t, h.c.Initialize())

	assert.Nil(t, h.c.fftBlock, "a failed initialize keeps no block")
	assert.Nil(t, h.c.decBlock)
	_, linked := fft.DownstreamPort(0)
	assert.False(t, linked, "the FFT port is freed again")
	dec, err := h.dev.SimBlock(sim.OneInNBlockID)
	require.NoError(t, err)
	_, linked = dec.UpstreamPort(0)
	assert.False(t, linked, "the keep-one-in-N port is freed again")

	require.NoError(t, h.c.Initialize())
	assert.Equal(t, 1, dev.created, "the graph is created once across attempts")
	down, ok := fft.DownstreamPort(0)
	require.True(t, ok)
	assert.Equal(t, device.BlockInfo{BlockID: sim.OneInNBlockID, Port: 0}, down)
	assert.Equal(t, "1024", fft.Args()[device.ArgSPP])
}

func TestStart_RequiresInitialize(t *testing.T) {
	h := newHarness(t, sim.NewDefault(), testOptions())
	assert.Error(t, h.c.Start())

	h.c.EnableIngress(true)
	assert.False(t, h.c.IngressEnabled(), "enable before initialize is ignored")
}

func TestRelease(t *testing.T) {
	h := initialized(t)
	h.c.EnableIngress(true)
	h.c.EnableEgress(true)
	require.NoError(t, h.c.Start())
	h.c.propagate(upstreamSRI("a"))

	h.c.Release()
	h.c.Release()

	counters := h.dev.Counters()
	assert.Equal(t, 1, counters.RxCloses)
	assert.Equal(t, 1, counters.TxCloses)
	assert.Equal(t, []int{0}, h.fftBlock(t).Cleared())
	assert.False(t, h.c.Started())
	assert.False(t, h.c.IngressEnabled())
	assert.False(t, h.c.EgressEnabled())
	assert.False(t, h.c.receivedSRI.Load())

	assert.Error(t, h.c.Initialize(), "a released component stays released")
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := &am.Config{}
	cfg.Bridge.ID = "x"
	cfg.Bridge.FFTSize = 256
	cfg.Stream.RecvTimeoutMS = 1500
	cfg.Stream.MaxTransferBytes = 4096
	cfg.Stream.BufferFraction = 0.5
	cfg.Worker.StopTimeoutMS = 250

	opts := OptionsFromConfig(cfg)
	assert.Equal(t, "x", opts.ID)
	assert.Equal(t, uint32(256), opts.FFTSize)
	assert.Equal(t, int64(1500), opts.RecvTimeout.Milliseconds())
	assert.Equal(t, 512, opts.rxCapacity())
	assert.Equal(t, int64(250), opts.Worker.StopTimeout.Milliseconds())
	assert.Equal(t, 1, opts.maxReacquire())
}
