package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/dabcore/ofdmreceiver/pkg/metricsink"
	"github.com/dabcore/ofdmreceiver/pkg/ofdm"
	"github.com/dabcore/ofdmreceiver/pkg/ofdm/modes"
	"github.com/dabcore/ofdmreceiver/pkg/sampleio"
	"github.com/dabcore/ofdmreceiver/pkg/sampleio/file"
	"github.com/dabcore/ofdmreceiver/pkg/sampleio/hackrf"
	"github.com/dabcore/ofdmreceiver/pkg/sampleio/rtlsdr"
	"github.com/dabcore/ofdmreceiver/pkg/status"
)

// AppConfig is the top-level configuration file format, combining device
// selection, the OFDM core's tunables, and the ambient observability
// stack.
type AppConfig struct {
	Mode       string `yaml:"mode"`
	CenterFreq int    `yaml:"center_freq"`
	SampleRate int    `yaml:"sample_rate"`

	Device DeviceConfig `yaml:"device"`
	OFDM   ofdm.Config  `yaml:"ofdm"`

	StatusPort int           `yaml:"status_port"`
	InfluxDB   *InfluxConfig `yaml:"influxdb"`
}

type DeviceConfig struct {
	Type string `yaml:"type"` // "rtlsdr", "hackrf", or "file"

	RTLSDRIndex int `yaml:"rtlsdr_index"`

	FilePath        string        `yaml:"file_path"`
	FileReadSize    int           `yaml:"file_read_size"`
	FileTimeBetween time.Duration `yaml:"file_time_between"`
	RecordToPath    string        `yaml:"record_to_path"`
}

type InfluxConfig struct {
	URL         string `yaml:"url"`
	Token       string `yaml:"token"`
	Org         string `yaml:"org"`
	Bucket      string `yaml:"bucket"`
	Measurement string `yaml:"measurement"`
}

func defaultAppConfig() AppConfig {
	return AppConfig{
		Mode:       "I",
		CenterFreq: 225648000,
		SampleRate: 2048000,
		Device:     DeviceConfig{Type: "rtlsdr"},
		OFDM:       ofdm.DefaultConfig(),
		StatusPort: 8080,
	}
}

func loadConfig(path string) (AppConfig, error) {
	cfg := defaultAppConfig()
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func parseMode(s string) (modes.Mode, error) {
	switch s {
	case "I", "i", "1":
		return modes.ModeI, nil
	case "II", "ii", "2":
		return modes.ModeII, nil
	case "III", "iii", "3":
		return modes.ModeIII, nil
	case "IV", "iv", "4":
		return modes.ModeIV, nil
	default:
		return 0, fmt.Errorf("unknown transmission mode %q", s)
	}
}

func buildDevice(cfg DeviceConfig, centerFreq, sampleRate int) (sampleio.Device, error) {
	switch cfg.Type {
	case "rtlsdr":
		return rtlsdr.NewDevice(cfg.RTLSDRIndex)
	case "hackrf":
		if cfg.RecordToPath != "" {
			return hackrf.NewRecordingDevice(cfg.RecordToPath)
		}
		return hackrf.NewDevice()
	case "file":
		readSize := cfg.FileReadSize
		if readSize <= 0 {
			readSize = 1 << 16
		}
		timeBetween := cfg.FileTimeBetween
		if timeBetween <= 0 {
			timeBetween = 10 * time.Millisecond
		}
		return file.NewDevice(cfg.FilePath, readSize, sampleRate, centerFreq, timeBetween)
	default:
		return nil, fmt.Errorf("unknown device type %q", cfg.Type)
	}
}

func buildMetricSink(cfg *InfluxConfig) metricsink.Sink {
	if cfg == nil {
		return metricsink.MockSink{}
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	measurement := cfg.Measurement
	if measurement == "" {
		measurement = "ofdm_frame"
	}
	return metricsink.NewInfluxSink(client.WriteAPI(cfg.Org, cfg.Bucket), measurement)
}

// receiverSnapshot adapts an ofdm.Demodulator to status.Provider without
// exposing the demodulator's package outside main.
type receiverSnapshot struct {
	demod *ofdm.Demodulator
}

func (r receiverSnapshot) Snapshot() status.Snapshot { return r.demod.Snapshot() }

func main() {
	configPath := flag.String("config", "", "path to a YAML configuration file")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
	if *verbose {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}
	log.Logger = logger

	if err := run(logger, *configPath); err != nil {
		logger.Fatal().Err(err).Msg("dabreceiver exited with error")
	}
}

func run(logger zerolog.Logger, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	mode, err := parseMode(cfg.Mode)
	if err != nil {
		return err
	}
	params, err := modes.Params(mode)
	if err != nil {
		return err
	}
	ref, err := modes.Reference(mode)
	if err != nil {
		return err
	}

	dev, err := buildDevice(cfg.Device, cfg.CenterFreq, cfg.SampleRate)
	if err != nil {
		return fmt.Errorf("build device: %w", err)
	}
	if cfg.SampleRate > dev.MaxSampleRate() {
		return fmt.Errorf("sample rate %d exceeds device max sample rate %d", cfg.SampleRate, dev.MaxSampleRate())
	}

	sink := buildMetricSink(cfg.InfluxDB)

	demod, err := ofdm.NewDemodulator(cfg.OFDM, params, ref,
		ofdm.WithLogger(logger.With().Str("component", "ofdm").Logger()),
		ofdm.WithMetricSink(sink),
		ofdm.WithObserver(func(r ofdm.FrameResult) {
			logger.Info().
				Uint64("frame", r.TotalFramesRead).
				Uint64("desyncs", r.TotalFramesDesync).
				Float64("freq_coarse_offset", r.FreqCoarseOffset).
				Float64("freq_fine_offset", r.FreqFineOffset).
				Int("bits", len(r.Bits)).
				Msg("decoded frame")
		}),
	)
	if err != nil {
		return fmt.Errorf("build demodulator: %w", err)
	}
	defer demod.Close()

	statusServer := status.NewServer(cfg.StatusPort, receiverSnapshot{demod: demod})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	eg, ctx := errgroup.WithContext(ctx)

	sampleChan := make(chan *sampleio.Segment, 4)
	eg.Go(func() error {
		return dev.Start(ctx, cfg.CenterFreq, cfg.SampleRate, sampleChan)
	})

	eg.Go(func() error {
		return statusServer.Run(ctx)
	})

	eg.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return dev.Stop()
			case seg := <-sampleChan:
				if err := demod.Process(seg.Data); err != nil {
					return err
				}
			}
		}
	})

	logger.Info().
		Str("mode", mode.String()).
		Int("center_freq", cfg.CenterFreq).
		Int("sample_rate", cfg.SampleRate).
		Int("status_port", cfg.StatusPort).
		Msg("dabreceiver starting")

	if err := eg.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
