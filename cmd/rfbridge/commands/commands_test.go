package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/rfbridge/am"
	"github.com/teranos/rfbridge/bulkio"
	"github.com/teranos/rfbridge/errors"
	"github.com/teranos/rfbridge/sample"
	"github.com/teranos/rfbridge/version"
)

func TestParseValue(t *testing.T) {
	assert.Equal(t, true, parseValue("true"))
	assert.Equal(t, int64(512), parseValue("512"))
	assert.Equal(t, 0.5, parseValue("0.5"))
	assert.Equal(t, "MAGNITUDE", parseValue("MAGNITUDE"))
}

func TestToneSource(t *testing.T) {
	in := bulkio.NewInPort(inPortName, 0)
	src := &toneSource{in: in, rateHz: 1e6, toneHz: 250e3, batch: 4}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		src.run(ctx)
		close(done)
	}()

	pkt, err := in.GetPacket(context.Background())
	require.NoError(t, err)
	assert.True(t, pkt.SRIChanged)
	assert.Equal(t, toneStreamID, pkt.StreamID)
	assert.Equal(t, 1e-6, pkt.SRI.XDelta)
	assert.Equal(t, bulkio.ModeComplex, pkt.SRI.Mode)
	require.Len(t, pkt.Data, 4)

	// A quarter-rate tone walks the unit circle in four samples
	assert.Equal(t, int16(toneAmplitude), pkt.Data[0].I)
	assert.Equal(t, int16(0), pkt.Data[0].Q)
	assert.Equal(t, int16(toneAmplitude), pkt.Data[1].Q)
	assert.Equal(t, int16(-toneAmplitude), pkt.Data[2].I)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("tone source did not stop")
	}

	var last *bulkio.Packet
	for p := in.TryGetPacket(); p != nil; p = in.TryGetPacket() {
		last = p
	}
	require.NotNil(t, last)
	assert.True(t, last.EOS)
}

func TestStatsSink(t *testing.T) {
	s := &statsSink{}
	assert.False(t, s.snapshot().HasSRI)

	sri := bulkio.DefaultSRI("a")
	sri.Subsize = 1024
	s.PushSRI(sri)
	s.PushPacket(make([]sample.SC16, 10), bulkio.Time{}, false, "a")
	s.PushPacket(make([]sample.SC16, 3), bulkio.Time{}, true, "a")

	st := s.snapshot()
	assert.Equal(t, 2, st.Packets)
	assert.Equal(t, 13, st.Samples)
	assert.Equal(t, 1, st.Bursts)
	assert.True(t, st.HasSRI)
	assert.Equal(t, uint32(1024), st.SRI.Subsize)
}

func TestOpenDevice(t *testing.T) {
	cfg := &am.Config{}
	cfg.Device.SampleRate = 2e6

	_, err := openDevice(cfg)
	assert.True(t, errors.Is(err, errors.ErrNoDevice))

	cfg.Device.Simulate = true
	dev, err := openDevice(cfg)
	require.NoError(t, err)
	assert.NotEmpty(t, dev.FindBlocks("FFT"))
}

func TestVersionCmd_JSON(t *testing.T) {
	var out bytes.Buffer
	VersionCmd.SetOut(&out)
	require.NoError(t, VersionCmd.Flags().Set("json", "true"))
	t.Cleanup(func() { _ = VersionCmd.Flags().Set("json", "false") })

	require.NoError(t, VersionCmd.RunE(VersionCmd, nil))

	var info version.Info
	require.NoError(t, json.Unmarshal(out.Bytes(), &info))
	assert.Equal(t, version.Get().Platform, info.Platform)
}

func TestAmGetAndSet(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	chdir(t, t.TempDir())
	am.Reset()
	t.Cleanup(am.Reset)

	var out bytes.Buffer
	amGetCmd.SetOut(&out)
	require.NoError(t, runAmGet(amGetCmd, []string{"bridge.fft_size"}))
	assert.Equal(t, "1024\n", out.String())

	require.NoError(t, runAmSet(amSetCmd, []string{"bridge.fft_size", "512"}))
	out.Reset()
	require.NoError(t, runAmGet(amGetCmd, []string{"bridge.fft_size"}))
	assert.Equal(t, "512\n", out.String())

	err := runAmSet(amSetCmd, []string{"bridge.fft_size", "500"})
	require.Error(t, err, "an invalid size is never written")

	assert.Error(t, runAmGet(amGetCmd, []string{"bridge.nope"}))
}
