package main

import (
	"testing"
	"time"

	"github.com/lcdmon/minidash/lcdpipe"
)

func testDashboard(t *testing.T) (*dashboard, *lcdpipe.Registry, *lcdpipe.PixelBuffer) {
	t.Helper()
	cfg := defaultConfig()
	cfg.FontPath = "/nonexistent.ttf" // builtin face keeps the test hermetic

	sampler, err := lcdpipe.NewSampler(500*time.Millisecond, 1500*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("sampler: %v", err)
	}
	d := newDashboard(cfg, sampler, nil)

	reg, err := lcdpipe.NewRegistry(lcdpipe.Rect{W: 320, H: 170},
		lcdpipe.DefaultMaxRegions, lcdpipe.DefaultMergeRatio, nil)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	if err := d.registerZones(reg); err != nil {
		t.Fatalf("registerZones: %v", err)
	}

	buf, err := lcdpipe.NewPixelBuffer(320, 170)
	if err != nil {
		t.Fatalf("buffer: %v", err)
	}
	return d, reg, buf
}

func TestZoneLayoutFitsPanel(t *testing.T) {
	panel := lcdpipe.Rect{W: 320, H: 170}
	for _, z := range zoneLayout {
		if !z.Bounds.In(panel) {
			t.Errorf("zone %s %v exceeds panel bounds", z.Name, z.Bounds)
		}
	}
}

func TestZoneLayoutNoOverlap(t *testing.T) {
	for i, a := range zoneLayout {
		for _, b := range zoneLayout[i+1:] {
			if a.Bounds.Intersects(b.Bounds) {
				t.Errorf("zones %s and %s overlap: %v vs %v", a.Name, b.Name, a.Bounds, b.Bounds)
			}
		}
	}
}

func TestRegisterZonesDeclaresAll(t *testing.T) {
	_, reg, _ := testDashboard(t)
	names := reg.ZoneNames()
	if len(names) != len(zoneLayout) {
		t.Fatalf("registered %d zones, want %d", len(names), len(zoneLayout))
	}
	got, ok := reg.ZoneBounds("battery")
	if !ok {
		t.Fatal("battery zone missing")
	}
	want := lcdpipe.Rect{X: 150, Y: 45, W: 100, H: 8}
	if got != want {
		t.Errorf("battery bounds = %v, want %v", got, want)
	}
}

func TestPaintBatteryMarksOnceWhileStable(t *testing.T) {
	d, reg, buf := testDashboard(t)

	d.paintBattery(buf, reg)
	ds := reg.TakeDirty()
	if ds.Empty() {
		t.Fatal("first paint should mark the battery zone dirty")
	}
	found := false
	for _, r := range ds.Rects {
		if r == zoneBattery {
			found = true
		}
	}
	if !ds.FullFrame && !found {
		t.Errorf("dirty set %v does not contain battery zone %v", ds.Rects, zoneBattery)
	}

	// Placeholder value is unchanged, so the second paint must skip.
	d.paintBattery(buf, reg)
	if ds := reg.TakeDirty(); !ds.Empty() {
		t.Errorf("stable battery repaint marked dirty: %v", ds)
	}
}

func TestPaintBatteryPlaceholderWhenUnsampled(t *testing.T) {
	d, _, buf := testDashboard(t)
	reg, err := lcdpipe.NewRegistry(lcdpipe.Rect{W: 320, H: 170},
		lcdpipe.DefaultMaxRegions, lcdpipe.DefaultMergeRatio, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.registerZones(reg); err != nil {
		t.Fatal(err)
	}

	d.paintBattery(buf, reg)
	// With no sample the gauge paints only the empty background shade.
	empty := lcdpipe.RGB565(40, 40, 40)
	for x := zoneBattery.X; x < zoneBattery.X+zoneBattery.W; x++ {
		if got := buf.PixelAt(x, zoneBattery.Y); got != empty {
			t.Fatalf("pixel (%d,%d) = %04x, want empty shade %04x", x, zoneBattery.Y, got, empty)
		}
	}

	text, _ := d.batteryText()
	if text != "--%" {
		t.Errorf("batteryText = %q, want placeholder", text)
	}
}

func TestPaintersCoverAllZones(t *testing.T) {
	d, reg, buf := testDashboard(t)
	for _, p := range d.painters() {
		p(buf, reg)
	}
	ds := reg.TakeDirty()
	if ds.Empty() {
		t.Fatal("initial paint produced no dirty regions")
	}
}
