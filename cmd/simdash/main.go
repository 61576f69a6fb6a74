// simdash runs the render pipeline against an in-memory panel and shows
// the emulated panel RAM in a desktop window. Useful for checking zone
// layout and dirty-region behavior without hardware.
package main

import (
	"image"
	"log"
	"math"
	"time"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/lcdmon/minidash/lcdpipe"
)

const (
	panelW = 320
	panelH = 170
)

func main() {
	eng := lcdpipe.NewMemEngine(panelW, panelH, lcdpipe.DefaultMaxChunk)
	panel, err := lcdpipe.NewPanel(eng, lcdpipe.PanelConfig{Width: panelW, Height: panelH})
	if err != nil {
		log.Fatalf("panel: %v", err)
	}
	if err := panel.Init(); err != nil {
		log.Fatalf("panel init: %v", err)
	}

	pair, err := lcdpipe.NewBufferPair(panelW, panelH)
	if err != nil {
		log.Fatalf("buffers: %v", err)
	}
	tel := lcdpipe.NewTelemetry()
	reg, err := lcdpipe.NewRegistry(lcdpipe.Rect{W: panelW, H: panelH},
		lcdpipe.DefaultMaxRegions, lcdpipe.DefaultMergeRatio, tel)
	if err != nil {
		log.Fatalf("registry: %v", err)
	}
	builder, err := lcdpipe.NewChainBuilder(panelW, panelH, eng.MaxChunk())
	if err != nil {
		log.Fatalf("builder: %v", err)
	}
	sched, err := lcdpipe.NewScheduler(pair, reg, builder, panel, tel,
		lcdpipe.SchedulerConfig{FrameInterval: 33 * time.Millisecond})
	if err != nil {
		log.Fatalf("scheduler: %v", err)
	}

	mustAdd := func(name string, r lcdpipe.Rect) {
		if err := reg.AddZone(name, r); err != nil {
			log.Fatalf("zone %s: %v", name, err)
		}
	}
	mustAdd("clock", lcdpipe.Rect{X: 10, Y: 10, W: 120, H: 20})
	mustAdd("gauge", lcdpipe.Rect{X: 150, Y: 45, W: 100, H: 8})
	mustAdd("wave", lcdpipe.Rect{X: 10, Y: 80, W: 300, H: 60})

	start := time.Now()
	sched.AddPainter(func(back *lcdpipe.PixelBuffer, reg *lcdpipe.Registry) {
		sec := time.Now().Format("15:04:05")
		r, _ := reg.ZoneBounds("clock")
		shade := uint8(40 + 20*(time.Now().Second()%2))
		back.FillRect(r, lcdpipe.RGB565(shade, shade, 200))
		reg.MarkValue("clock", lcdpipe.Signature(sec), r)
	})
	sched.AddPainter(func(back *lcdpipe.PixelBuffer, reg *lcdpipe.Registry) {
		r, _ := reg.ZoneBounds("gauge")
		pct := (math.Sin(time.Since(start).Seconds()/3) + 1) / 2
		back.FillRect(r, lcdpipe.RGB565(40, 40, 40))
		back.FillRect(lcdpipe.Rect{X: r.X, Y: r.Y, W: int(float64(r.W) * pct), H: r.H},
			lcdpipe.RGB565(80, 200, 120))
		reg.MarkValue("gauge", lcdpipe.Signature(time.Now().Format("05.0")), r)
	})
	sched.AddPainter(func(back *lcdpipe.PixelBuffer, reg *lcdpipe.Registry) {
		r, _ := reg.ZoneBounds("wave")
		back.FillRect(r, lcdpipe.RGB565(0, 0, 0))
		t := time.Since(start).Seconds()
		for x := 0; x < r.W; x++ {
			y := r.Y + r.H/2 + int(float64(r.H)/2.5*math.Sin(t*2+float64(x)/20))
			back.SetPixel(r.X+x, y, lcdpipe.RGB565(240, 160, 60))
		}
		reg.MarkValue("wave", lcdpipe.Signature(time.Now().Format("05.00")), r)
	})

	g := &game{eng: eng, sched: sched}
	ebiten.SetWindowTitle("simdash")
	ebiten.SetWindowSize(panelW*2, panelH*2)
	ebiten.SetTPS(30)
	if err := ebiten.RunGame(g); err != nil {
		log.Fatal(err)
	}
}

type game struct {
	eng   *lcdpipe.MemEngine
	sched *lcdpipe.Scheduler
	img   *image.RGBA
	fbImg *ebiten.Image
}

func (g *game) Update() error {
	return g.sched.Tick()
}

// Draw decodes the emulated panel RAM, two bytes per pixel high byte
// first, into the window image.
func (g *game) Draw(screen *ebiten.Image) {
	if g.img == nil {
		g.img = image.NewRGBA(image.Rect(0, 0, panelW, panelH))
		g.fbImg = ebiten.NewImage(panelW, panelH)
	}
	ram := g.eng.RAM()
	dst := g.img.Pix
	for i := 0; i+1 < len(ram); i += 2 {
		px := uint16(ram[i])<<8 | uint16(ram[i+1])
		j := (i / 2) * 4
		dst[j+0] = uint8((px >> 11) << 3)
		dst[j+1] = uint8((px >> 5 & 0x3f) << 2)
		dst[j+2] = uint8((px & 0x1f) << 3)
		dst[j+3] = 0xff
	}
	g.fbImg.WritePixels(g.img.Pix)
	screen.DrawImage(g.fbImg, nil)
}

func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return panelW, panelH
}
