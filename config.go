package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lcdmon/minidash/lcdpipe"
)

// PanelSection fixes the glass geometry and wiring quirks. Offsets and the
// BGR/inversion bits come from the specific panel batch and must be
// verified empirically.
type PanelSection struct {
	Width        int  `yaml:"width"`
	Height       int  `yaml:"height"`
	ColumnOffset int  `yaml:"column_offset"`
	RowOffset    int  `yaml:"row_offset"`
	Rotation     int  `yaml:"rotation"` // 0, 90, 180, 270
	BGR          bool `yaml:"bgr"`
	Inverted     bool `yaml:"inverted"`
}

// SPISection selects the bus and clock.
type SPISection struct {
	Port string `yaml:"port"`
	MHz  int    `yaml:"mhz"`
}

// PinsSection names the GPIO lines by periph.io pin name.
type PinsSection struct {
	DC        string `yaml:"dc"`
	Reset     string `yaml:"reset"`
	Backlight string `yaml:"backlight"`
}

// PipelineSection carries the render tunables. MergeRatio and MaxRegions
// are configuration, not contracts; validate them against the panel timing.
type PipelineSection struct {
	MaxChunk          int     `yaml:"max_chunk"`
	MaxRegions        int     `yaml:"max_regions"`
	MergeRatio        float64 `yaml:"merge_ratio"`
	FrameIntervalMS   int     `yaml:"frame_interval_ms"`
	TransferTimeoutMS int     `yaml:"transfer_timeout_ms"`
}

// SamplerSection paces the slow-sensor timer.
type SamplerSection struct {
	PeriodMS     int `yaml:"period_ms"`
	StaleAfterMS int `yaml:"stale_after_ms"`
}

// Config is the top-level application configuration.
type Config struct {
	Panel    PanelSection    `yaml:"panel"`
	SPI      SPISection      `yaml:"spi"`
	Pins     PinsSection     `yaml:"pins"`
	Pipeline PipelineSection `yaml:"pipeline"`
	Sampler  SamplerSection  `yaml:"sampler"`

	// Listen is the HTTP address of the telemetry/frame server.
	Listen string `yaml:"listen"`
	// InputDevice is the evdev node watched for redraw keys; empty
	// disables the watcher.
	InputDevice string `yaml:"input_device"`

	FontPath string `yaml:"font_path"`
	// PingHost is probed for the network zone's latency readout.
	PingHost string `yaml:"ping_host"`
	// BatteryPath points at the sysfs power supply directory.
	BatteryPath string `yaml:"battery_path"`
	// ThermalPath points at the sysfs thermal zone temperature file.
	ThermalPath string `yaml:"thermal_path"`
}

func defaultConfig() Config {
	return Config{
		Panel: PanelSection{Width: 320, Height: 170, Inverted: true},
		SPI:   SPISection{Port: "SPI1.0", MHz: 80},
		Pins:  PinsSection{DC: "GPIO121", Reset: "GPIO122", Backlight: "GPIO117"},
		Pipeline: PipelineSection{
			MaxChunk:          lcdpipe.DefaultMaxChunk,
			MaxRegions:        lcdpipe.DefaultMaxRegions,
			MergeRatio:        lcdpipe.DefaultMergeRatio,
			FrameIntervalMS:   33,
			TransferTimeoutMS: 250,
		},
		Sampler:     SamplerSection{PeriodMS: 500, StaleAfterMS: 1500},
		FontPath:    "/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
		Listen:      ":8081",
		PingHost:    "1.1.1.1",
		BatteryPath: "/sys/class/power_supply/battery",
		ThermalPath: "/sys/class/thermal/thermal_zone0/temp",
	}
}

// loadConfig reads the YAML config, filling defaults for absent fields. A
// missing file yields the defaults so the dashboard can start bare.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Panel.Width <= 0 || c.Panel.Height <= 0 {
		return fmt.Errorf("config: invalid panel size %dx%d", c.Panel.Width, c.Panel.Height)
	}
	switch c.Panel.Rotation {
	case 0, 90, 180, 270:
	default:
		return fmt.Errorf("config: rotation must be 0/90/180/270, got %d", c.Panel.Rotation)
	}
	if c.Pipeline.MaxChunk < 2 {
		return fmt.Errorf("config: max_chunk %d below one pixel", c.Pipeline.MaxChunk)
	}
	if c.Pipeline.MaxChunk%2 != 0 {
		return fmt.Errorf("config: max_chunk %d must be a multiple of the pixel size", c.Pipeline.MaxChunk)
	}
	if c.Pipeline.MaxRegions <= 0 {
		return fmt.Errorf("config: max_regions must be positive")
	}
	if c.Pipeline.MergeRatio < 1.0 {
		return fmt.Errorf("config: merge_ratio must be at least 1.0")
	}
	if c.SPI.MHz <= 0 {
		return fmt.Errorf("config: spi clock must be positive")
	}
	if c.SPI.Port == "" {
		return fmt.Errorf("config: spi port is required")
	}
	return nil
}

func (c Config) rotation() lcdpipe.Rotation {
	switch c.Panel.Rotation {
	case 90:
		return lcdpipe.Rotation90
	case 180:
		return lcdpipe.Rotation180
	case 270:
		return lcdpipe.Rotation270
	default:
		return lcdpipe.Rotation0
	}
}

func (c Config) frameInterval() time.Duration {
	return time.Duration(c.Pipeline.FrameIntervalMS) * time.Millisecond
}

func (c Config) transferTimeout() time.Duration {
	return time.Duration(c.Pipeline.TransferTimeoutMS) * time.Millisecond
}

func (c Config) samplerPeriod() time.Duration {
	return time.Duration(c.Sampler.PeriodMS) * time.Millisecond
}

func (c Config) samplerStaleAfter() time.Duration {
	return time.Duration(c.Sampler.StaleAfterMS) * time.Millisecond
}
