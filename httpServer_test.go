package main

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lcdmon/minidash/lcdpipe"
)

func testScheduler(t *testing.T) *lcdpipe.Scheduler {
	t.Helper()
	eng := lcdpipe.NewMemEngine(320, 170, lcdpipe.DefaultMaxChunk)
	panel, err := lcdpipe.NewPanel(eng, lcdpipe.PanelConfig{Width: 320, Height: 170})
	if err != nil {
		t.Fatalf("panel: %v", err)
	}
	if err := panel.Init(); err != nil {
		t.Fatalf("panel init: %v", err)
	}
	pair, err := lcdpipe.NewBufferPair(320, 170)
	if err != nil {
		t.Fatal(err)
	}
	tel := lcdpipe.NewTelemetry()
	reg, err := lcdpipe.NewRegistry(lcdpipe.Rect{W: 320, H: 170},
		lcdpipe.DefaultMaxRegions, lcdpipe.DefaultMergeRatio, tel)
	if err != nil {
		t.Fatal(err)
	}
	builder, err := lcdpipe.NewChainBuilder(320, 170, eng.MaxChunk())
	if err != nil {
		t.Fatal(err)
	}
	sched, err := lcdpipe.NewScheduler(pair, reg, builder, panel, tel,
		lcdpipe.SchedulerConfig{FrameInterval: 33 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	for _, z := range zoneLayout {
		if err := reg.AddZone(z.Name, z.Bounds); err != nil {
			t.Fatal(err)
		}
	}
	return sched
}

func TestMetricsEndpoint(t *testing.T) {
	app := newHTTPApp(testScheduler(t))
	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var snap lcdpipe.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func TestFrameEndpointServesPNG(t *testing.T) {
	app := newHTTPApp(testScheduler(t))
	resp, err := app.Test(httptest.NewRequest("GET", "/frame", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %q", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	if len(body) < 8 || string(body[1:4]) != "PNG" {
		t.Error("response is not a PNG")
	}
}

func TestLayoutEndpointListsZones(t *testing.T) {
	app := newHTTPApp(testScheduler(t))
	resp, err := app.Test(httptest.NewRequest("GET", "/layout.svg", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	svg := string(body)
	for _, z := range zoneLayout {
		if !strings.Contains(svg, ">"+z.Name+"<") {
			t.Errorf("layout SVG missing zone %s", z.Name)
		}
	}
}

func TestRedrawEndpoint(t *testing.T) {
	sched := testScheduler(t)
	app := newHTTPApp(sched)

	req := httptest.NewRequest("POST", "/redraw", strings.NewReader(`{"zone":"battery"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	ds := sched.Registry().TakeDirty()
	found := false
	for _, r := range ds.Rects {
		if r == zoneBattery {
			found = true
		}
	}
	if !ds.FullFrame && !found {
		t.Errorf("redraw did not mark battery zone: %v", ds)
	}

	req = httptest.NewRequest("POST", "/redraw", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != 400 {
		t.Errorf("empty zone status = %d, want 400", resp.StatusCode)
	}
}
