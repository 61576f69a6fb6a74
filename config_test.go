package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lcdmon/minidash/lcdpipe"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Panel.Width != 320 || cfg.Panel.Height != 170 {
		t.Errorf("default panel = %dx%d, want 320x170", cfg.Panel.Width, cfg.Panel.Height)
	}
	if cfg.Pipeline.MaxChunk != lcdpipe.DefaultMaxChunk {
		t.Errorf("default max chunk = %d", cfg.Pipeline.MaxChunk)
	}
	if err := cfg.validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "minidash.yaml")
	yaml := `
panel:
  width: 240
  height: 240
  rotation: 90
spi:
  port: SPI0.0
  mhz: 40
pipeline:
  max_regions: 4
listen: ":9000"
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Panel.Width != 240 || cfg.Panel.Rotation != 90 {
		t.Errorf("panel override not applied: %+v", cfg.Panel)
	}
	if cfg.SPI.Port != "SPI0.0" || cfg.SPI.MHz != 40 {
		t.Errorf("spi override not applied: %+v", cfg.SPI)
	}
	if cfg.Pipeline.MaxRegions != 4 {
		t.Errorf("max_regions = %d, want 4", cfg.Pipeline.MaxRegions)
	}
	// untouched fields keep their defaults
	if cfg.Pipeline.MergeRatio != lcdpipe.DefaultMergeRatio {
		t.Errorf("merge_ratio = %v, want default", cfg.Pipeline.MergeRatio)
	}
	if cfg.Listen != ":9000" {
		t.Errorf("listen = %q", cfg.Listen)
	}
}

func TestConfigValidate(t *testing.T) {
	bad := func(mutate func(*Config)) Config {
		cfg := defaultConfig()
		mutate(&cfg)
		return cfg
	}
	cases := []struct {
		name string
		cfg  Config
	}{
		{"zero width", bad(func(c *Config) { c.Panel.Width = 0 })},
		{"negative height", bad(func(c *Config) { c.Panel.Height = -1 })},
		{"bad rotation", bad(func(c *Config) { c.Panel.Rotation = 45 })},
		{"zero mhz", bad(func(c *Config) { c.SPI.MHz = 0 })},
		{"empty port", bad(func(c *Config) { c.SPI.Port = "" })},
		{"merge ratio below one", bad(func(c *Config) { c.Pipeline.MergeRatio = 0.5 })},
		{"odd max chunk", bad(func(c *Config) { c.Pipeline.MaxChunk = 4091 })},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.cfg.validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestConfigDurations(t *testing.T) {
	cfg := defaultConfig()
	if got := cfg.frameInterval(); got != 33*time.Millisecond {
		t.Errorf("frameInterval = %v", got)
	}
	if got := cfg.transferTimeout(); got != 250*time.Millisecond {
		t.Errorf("transferTimeout = %v", got)
	}
	if got := cfg.samplerPeriod(); got != 500*time.Millisecond {
		t.Errorf("samplerPeriod = %v", got)
	}
	if got := cfg.samplerStaleAfter(); got != 1500*time.Millisecond {
		t.Errorf("samplerStaleAfter = %v", got)
	}
}

func TestConfigRotation(t *testing.T) {
	cases := []struct {
		deg  int
		want lcdpipe.Rotation
	}{
		{0, lcdpipe.Rotation0},
		{90, lcdpipe.Rotation90},
		{180, lcdpipe.Rotation180},
		{270, lcdpipe.Rotation270},
	}
	for _, tc := range cases {
		cfg := defaultConfig()
		cfg.Panel.Rotation = tc.deg
		if got := cfg.rotation(); got != tc.want {
			t.Errorf("rotation(%d) = %v, want %v", tc.deg, got, tc.want)
		}
	}
}
