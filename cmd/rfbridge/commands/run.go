package commands

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/teranos/rfbridge/am"
	"github.com/teranos/rfbridge/bridge"
	"github.com/teranos/rfbridge/bulkio"
	"github.com/teranos/rfbridge/device"
	"github.com/teranos/rfbridge/device/sim"
	"github.com/teranos/rfbridge/errors"
	"github.com/teranos/rfbridge/logger"
	"github.com/teranos/rfbridge/metrics"
	"github.com/teranos/rfbridge/sym"
)

const (
	inPortName    = "dataShort_in"
	outPortName   = "dataShort_out"
	statsInterval = 5 * time.Second
)

// RunCmd claims the blocks and streams until interrupted
var RunCmd = &cobra.Command{
	Use:   "run",
	Short: sym.RX + sym.TX + " Claim the FFT chain and stream until interrupted",
	Long: `Claim an FFT block and a keep-one-in-N block, connect them and stream.

Ingress packets are sent into the FFT block. Batches received from the
keep-one-in-N block are pushed to the output port with a frequency-axis
stream descriptor. With --tone-hz a test tone feeds the ingress port.

Changes to bridge.fft_size, bridge.magnitude_out and worker.noop_delay_ms in
the active config file are applied while running.`,
	RunE: runBridge,
}

var (
	runID      string
	runToneHz  float64
	runNoRX    bool
	runNoTX    bool
	runFFTSize uint32
)

func init() {
	RunCmd.Flags().StringVar(&runID, "id", "", "Instance id (overrides bridge.id)")
	RunCmd.Flags().Float64Var(&runToneHz, "tone-hz", 0, "Feed a complex test tone at this frequency (0 disables)")
	RunCmd.Flags().BoolVar(&runNoRX, "no-rx", false, "Do not enable ingress from hardware")
	RunCmd.Flags().BoolVar(&runNoTX, "no-tx", false, "Do not enable egress to hardware")
	RunCmd.Flags().Uint32Var(&runFFTSize, "fft-size", 0, "Initial FFT size (overrides bridge.fft_size)")
}

func runBridge(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	if runID != "" {
		cfg.Bridge.ID = runID
	}
	if runFFTSize != 0 {
		cfg.Bridge.FFTSize = runFFTSize
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}

	log := logger.ComponentLogger("rfbridge")
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dev, err := openDevice(cfg)
	if err != nil {
		return err
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		reg, registered, err := metrics.NewRegistry()
		if err != nil {
			return err
		}
		m = registered
		srv := serveMetrics(cfg.GetMetricsAddress(), reg, log)
		defer shutdownMetrics(srv, log)
	}

	opts := bridge.OptionsFromConfig(cfg)
	verbosity, _ := cmd.Flags().GetCount("verbose")
	opts.Trace = logger.ShouldLogTrace(verbosity)
	log.Debugw("Verbosity", "level", logger.LevelName(verbosity), "trace", opts.Trace)
	if warning := m.CheckMemoryPressure(uint64(opts.MaxTransferBytes)); warning != "" {
		pterm.Warning.Println(warning)
	}

	in := bulkio.NewInPort(inPortName, cfg.Stream.QueueDepth)
	out := bulkio.NewOutPort(outPortName)
	c := bridge.New(ctx, dev, in, out, opts, log, m)
	c.WatchOutPort(out)
	c.Observers().On(bridge.EventBlockClaimed, func(ev bridge.Event) {
		for _, b := range ev.Blocks {
			pterm.Info.Printfln("Instance %s claimed %s", ev.InstanceID, b)
		}
	})

	if err := c.Initialize(); err != nil {
		return errors.Wrap(err, "failed to initialize bridge")
	}
	defer c.Release()

	sink := &statsSink{}
	if err := out.Connect("stats", sink); err != nil {
		return err
	}

	if cfg.Bridge.AutoRX && !runNoRX {
		c.EnableIngress(true)
	}
	if cfg.Bridge.AutoTX && !runNoTX {
		c.EnableEgress(true)
	}
	if err := c.Start(); err != nil {
		return errors.Wrap(err, "failed to start bridge")
	}

	if watcher := watchConfig(c, log); watcher != nil {
		defer watcher.Stop()
	}

	if runToneHz > 0 {
		src := &toneSource{in: in, rateHz: cfg.Device.SampleRate, toneHz: runToneHz, batch: int(c.FFTSize())}
		go src.run(ctx)
	}

	printStatus(c.Status(), cfg)
	reportUntilDone(ctx, sink, log)

	final := sink.snapshot()
	pterm.Success.Printfln("Forwarded %d samples in %d packets (%d bursts)", final.Samples, final.Packets, final.Bursts)
	return nil
}

// openDevice returns the device named by the configuration. Only the
// simulated device is linked into this binary.
func openDevice(cfg *am.Config) (device.Device, error) {
	if !cfg.Device.Simulate {
		return nil, errors.WithHint(
			errors.Wrap(errors.ErrNoDevice, "no hardware driver is linked into this build"),
			"set device.simulate = true or RFBRIDGE_SIMULATE=true")
	}
	simCfg := sim.DefaultConfig()
	simCfg.SampleRate = cfg.Device.SampleRate
	return sim.New(simCfg), nil
}

func serveMetrics(addr string, reg *prometheus.Registry, log *zap.SugaredLogger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorw("Metrics endpoint stopped", logger.FieldError, err)
		}
	}()
	log.Infow("Serving metrics", "address", addr)
	return srv
}

func shutdownMetrics(srv *http.Server, log *zap.SugaredLogger) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warnw("Metrics endpoint did not shut down cleanly", logger.FieldError, err)
	}
}

// watchConfig feeds edits of the active config file into the bridge.
func watchConfig(c *bridge.Component, log *zap.SugaredLogger) *am.ConfigWatcher {
	path := am.ActiveConfigFile()
	if path == "" {
		return nil
	}
	watcher, err := am.NewConfigWatcher(path)
	if err != nil {
		log.Warnw("Config changes will not be applied while running", logger.FieldConfigFile, path, logger.FieldError, err)
		return nil
	}
	watcher.OnReload(func(cfg *am.Config) error {
		if err := c.ApplyConfig(cfg); err != nil {
			pterm.Warning.Printfln("Config change rejected: %v", err)
			return err
		}
		pterm.Info.Printfln("Applied %s (fft_size %d, magnitude_out %s)", path, c.FFTSize(), c.MagnitudeOut())
		return nil
	})
	watcher.Start()
	am.SetGlobalWatcher(watcher)
	return watcher
}

func printStatus(st bridge.Status, cfg *am.Config) {
	pterm.Success.Printfln("%s Bridge %s streaming on graph %s", sym.Open, st.ID, st.Graph)
	pterm.Printf("  FFT block:    %s\n", st.FFTBlock)
	pterm.Printf("  Decimator:    %s\n", st.DecBlock)
	pterm.Printf("  FFT size:     %d (%s)\n", st.FFTSize, st.MagnitudeOut)
	pterm.Printf("  Ingress:      %v   Egress: %v\n", st.Ingress, st.Egress)
	if cfg.Metrics.Enabled {
		pterm.Printf("  Metrics:      http://%s/metrics\n", cfg.GetMetricsAddress())
	}
	pterm.Println(pterm.Gray("  Press Ctrl+C to stop"))
}

// reportUntilDone logs forwarding totals periodically until ctx ends.
func reportUntilDone(ctx context.Context, sink *statsSink, log *zap.SugaredLogger) {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := sink.snapshot()
			fields := []interface{}{
				logger.FieldSamples, st.Samples,
				"packets", st.Packets,
			}
			if st.HasSRI {
				fields = append(fields, logger.FieldStreamID, st.SRI.StreamID, "bin_hz", st.SRI.XDelta)
			}
			log.Infow("Forwarding", fields...)
		}
	}
}
