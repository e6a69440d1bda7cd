package device_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/rfbridge/device"
	"github.com/teranos/rfbridge/device/sim"
	"github.com/teranos/rfbridge/errors"
)

func twoChannelDevice() *sim.Device {
	return sim.New(sim.Config{Blocks: []sim.BlockSpec{
		{ID: "0/FFT_0", Ports: 2},
		{ID: "0/KEEP_ONE_IN_N_0", Ports: 1},
		{ID: "0/SINK_0", Ports: 1},
	}})
}

func TestFindAvailableChannel(t *testing.T) {
	dev := twoChannelDevice()

	info, err := device.FindAvailableChannel(dev, "FFT")
	require.NoError(t, err)
	assert.Equal(t, device.BlockInfo{BlockID: "0/FFT_0", Port: 0}, info)
	assert.True(t, info.Valid())

	g, err := dev.CreateGraph("g")
	require.NoError(t, err)
	require.NoError(t, g.Connect("0/FFT_0", 0, "0/KEEP_ONE_IN_N_0", 0))

	info, err = device.FindAvailableChannel(dev, "FFT")
	require.NoError(t, err)
	assert.Equal(t, 1, info.Port)

	// the keep-one-in-N input is now taken
	_, err = device.FindAvailableChannel(dev, "KEEP_ONE_IN_N")
	assert.ErrorIs(t, err, errors.ErrNoAvailablePort)
	assert.True(t, errors.IsFatalInit(err))
}

func TestFindAvailableSinkAndSource(t *testing.T) {
	dev := twoChannelDevice()
	g, err := dev.CreateGraph("g")
	require.NoError(t, err)
	require.NoError(t, g.Connect("0/FFT_0", 0, "0/SINK_0", 0))

	src, err := device.FindAvailableSource(dev, "SINK")
	require.NoError(t, err)
	assert.Equal(t, device.BlockInfo{BlockID: "0/SINK_0", Port: 0}, src)

	_, err = device.FindAvailableSink(dev, "SINK")
	assert.ErrorIs(t, err, errors.ErrNoAvailablePort)

	sink, err := device.FindAvailableSink(dev, "FFT")
	require.NoError(t, err)
	assert.Equal(t, 0, sink.Port)
}

func TestFindAvailableMissingBlock(t *testing.T) {
	info, err := device.FindAvailableChannel(twoChannelDevice(), "DDC")
	assert.ErrorIs(t, err, errors.ErrBlockNotFound)
	assert.False(t, info.Valid())
	assert.NotEmpty(t, errors.GetAllHints(err))

	_, err = device.FindAvailableChannel(nil, "FFT")
	assert.ErrorIs(t, err, errors.ErrNoDevice)
}

func TestSPPFromArgs(t *testing.T) {
	assert.Equal(t, 256, device.SPPFromArgs(map[string]string{"spp": "256"}))
	assert.Equal(t, device.DefaultSPP, device.SPPFromArgs(nil))
	assert.Equal(t, device.DefaultSPP, device.SPPFromArgs(map[string]string{"spp": "x"}))
	assert.Equal(t, device.DefaultSPP, device.SPPFromArgs(map[string]string{"spp": "-4"}))
}

func TestStreamArgsMap(t *testing.T) {
	args := device.StreamArgs{BlockID: "0/FFT_0", Port: 1, SPP: 512}
	assert.Equal(t, map[string]string{"block_id": "0/FFT_0", "block_port": "1", "spp": "512"}, args.Map())
}

func TestTimeSpec(t *testing.T) {
	ts := device.TimeSpecFromTicks(1500, 1000)
	assert.Equal(t, int64(1), ts.FullSecs)
	assert.InDelta(t, 0.5, ts.FracSecs, 1e-12)

	later := ts.Add(0.75)
	assert.Equal(t, int64(2), later.FullSecs)
	assert.InDelta(t, 0.25, later.FracSecs, 1e-12)

	earlier := ts.Add(-0.75)
	assert.Equal(t, int64(0), earlier.FullSecs)
	assert.InDelta(t, 0.75, earlier.FracSecs, 1e-12)

	assert.Equal(t, device.TimeSpec{}, device.TimeSpecFromTicks(10, 0))
}

func TestRxErrorCodeString(t *testing.T) {
	assert.Equal(t, "overflow", device.RxErrorOverflow.String())
	assert.Equal(t, "rx_error(42)", device.RxErrorCode(42).String())
	assert.Equal(t, "start_continuous", device.StartContinuous().Mode.String())
}
