// minidash drives a parallel-bus LCD status panel from a double-buffered
// pipeline: zone painters mark dirty regions, the descriptor builder turns
// them into bounded transfer chains, and the panel driver flushes each
// chain through SPI with CASET/RASET windowing.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/lcdmon/minidash/lcdpipe"
)

func main() {
	configPath := flag.String("config", "/etc/minidash.yaml", "path to config file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	if _, err := host.Init(); err != nil {
		log.Fatalf("host init: %v", err)
	}

	spiPort, err := spireg.Open(cfg.SPI.Port)
	if err != nil {
		log.Fatalf("spi open %s: %v", cfg.SPI.Port, err)
	}
	defer spiPort.Close()

	conn, err := spiPort.Connect(physic.Frequency(cfg.SPI.MHz)*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		log.Fatalf("spi connect: %v", err)
	}

	dcPin := gpioreg.ByName(cfg.Pins.DC)
	if dcPin == nil {
		log.Fatalf("gpio %s not found", cfg.Pins.DC)
	}

	eng, err := lcdpipe.NewSPIEngine(conn, dcPin, cfg.Pipeline.MaxChunk)
	if err != nil {
		log.Fatalf("engine: %v", err)
	}

	panel, err := lcdpipe.NewPanel(eng, lcdpipe.PanelConfig{
		Width:           cfg.Panel.Width,
		Height:          cfg.Panel.Height,
		ColumnOffset:    cfg.Panel.ColumnOffset,
		RowOffset:       cfg.Panel.RowOffset,
		Rotation:        cfg.rotation(),
		BGR:             cfg.Panel.BGR,
		Inverted:        cfg.Panel.Inverted,
		TransferTimeout: cfg.transferTimeout(),
	})
	if err != nil {
		log.Fatalf("panel: %v", err)
	}
	if p := gpioreg.ByName(cfg.Pins.Reset); p != nil {
		panel.SetResetPin(p)
	}
	if p := gpioreg.ByName(cfg.Pins.Backlight); p != nil {
		panel.SetBacklightPin(p)
	}
	if err := panel.Init(); err != nil {
		log.Fatalf("panel init: %v", err)
	}
	if err := panel.EnableBacklight(true); err != nil {
		log.Printf("backlight: %v", err)
	}

	sched, sampler, err := buildPipeline(cfg, panel, eng.MaxChunk())
	if err != nil {
		log.Fatalf("pipeline: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronSched := startCollectors(cfg)
	defer cronSched.Stop()

	go sampler.Run(ctx)
	go httpServer(cfg.Listen, sched)
	go watchInput(ctx, cfg.InputDevice, sched)

	log.Printf("minidash running, panel %dx%d on %s", cfg.Panel.Width, cfg.Panel.Height, cfg.SPI.Port)
	if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("scheduler: %v", err)
	}
	log.Println("shutting down")
}

// buildPipeline assembles the render pipeline stages in dependency order.
// Any construction failure here is fatal to the caller.
func buildPipeline(cfg Config, panel *lcdpipe.Panel, maxChunk int) (*lcdpipe.Scheduler, *lcdpipe.Sampler, error) {
	pair, err := lcdpipe.NewBufferPair(cfg.Panel.Width, cfg.Panel.Height)
	if err != nil {
		return nil, nil, err
	}

	tel := lcdpipe.NewTelemetry()

	reg, err := lcdpipe.NewRegistry(lcdpipe.Rect{W: cfg.Panel.Width, H: cfg.Panel.Height},
		cfg.Pipeline.MaxRegions, cfg.Pipeline.MergeRatio, tel)
	if err != nil {
		return nil, nil, err
	}

	builder, err := lcdpipe.NewChainBuilder(cfg.Panel.Width, cfg.Panel.Height, maxChunk)
	if err != nil {
		return nil, nil, err
	}

	sampler, err := lcdpipe.NewSampler(cfg.samplerPeriod(), cfg.samplerStaleAfter(), tel)
	if err != nil {
		return nil, nil, err
	}
	sampler.Register("battery", readBatteryPercent(cfg.BatteryPath))
	sampler.Register("temp", readBoardTemp(cfg.ThermalPath))

	sched, err := lcdpipe.NewScheduler(pair, reg, builder, panel, tel,
		lcdpipe.SchedulerConfig{FrameInterval: cfg.frameInterval()})
	if err != nil {
		return nil, nil, err
	}

	dash := newDashboard(cfg, sampler, tel)
	if err := dash.registerZones(reg); err != nil {
		return nil, nil, err
	}
	for _, p := range dash.painters() {
		sched.AddPainter(p)
	}
	return sched, sampler, nil
}
