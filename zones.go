package main

import (
	"fmt"
	"image"
	"image/color"
	"time"

	"golang.org/x/image/font"

	"github.com/lcdmon/minidash/lcdpipe"
)

// Fixed dashboard layout for the 320x170 panel. Zones never overlap; any
// change here is picked up by both the painters and the layout endpoint.
var (
	zoneHeader  = lcdpipe.Rect{X: 0, Y: 0, W: 320, H: 20}
	zoneCPU     = lcdpipe.Rect{X: 0, Y: 30, W: 150, H: 25}
	zoneMem     = lcdpipe.Rect{X: 0, Y: 60, W: 150, H: 25}
	zoneNet     = lcdpipe.Rect{X: 0, Y: 90, W: 150, H: 36}
	zonePower   = lcdpipe.Rect{X: 150, Y: 20, W: 170, H: 24}
	zoneBattery = lcdpipe.Rect{X: 150, Y: 45, W: 100, H: 8}
	zoneTemp    = lcdpipe.Rect{X: 150, Y: 60, W: 170, H: 30}
	zoneGraph   = lcdpipe.Rect{X: 0, Y: 130, W: 200, H: 40}
)

var zoneLayout = []struct {
	Name   string
	Bounds lcdpipe.Rect
}{
	{"header", zoneHeader},
	{"cpu", zoneCPU},
	{"mem", zoneMem},
	{"net", zoneNet},
	{"power", zonePower},
	{"battery", zoneBattery},
	{"temp", zoneTemp},
	{"graph", zoneGraph},
}

var (
	colorText  = color.RGBA{230, 230, 230, 255}
	colorDim   = color.RGBA{140, 140, 140, 255}
	colorGood  = color.RGBA{80, 200, 120, 255}
	colorWarn  = color.RGBA{240, 160, 60, 255}
	colorAlert = color.RGBA{230, 70, 70, 255}
)

// dashboard binds the zone painters to their data sources. Painters run on
// every scheduler tick; the signature gate inside the registry decides
// whether a zone's pixels enter the dirty set.
type dashboard struct {
	sampler   *lcdpipe.Sampler
	tel       *lcdpipe.Telemetry
	faceBig   font.Face
	faceSmall font.Face
}

func newDashboard(cfg Config, sampler *lcdpipe.Sampler, tel *lcdpipe.Telemetry) *dashboard {
	big, _ := getFontFace(cfg.FontPath, 16)
	small, _ := getFontFace(cfg.FontPath, 11)
	return &dashboard{sampler: sampler, tel: tel, faceBig: big, faceSmall: small}
}

// registerZones declares the layout on the registry. Called once at startup
// before the scheduler runs.
func (d *dashboard) registerZones(reg *lcdpipe.Registry) error {
	for _, z := range zoneLayout {
		if err := reg.AddZone(z.Name, z.Bounds); err != nil {
			return fmt.Errorf("zone %s: %w", z.Name, err)
		}
	}
	return nil
}

// painters returns the per-tick paint functions in layout order.
func (d *dashboard) painters() []lcdpipe.Painter {
	return []lcdpipe.Painter{
		d.paintHeader,
		d.paintCPU,
		d.paintMem,
		d.paintNet,
		d.paintPower,
		d.paintBattery,
		d.paintTemp,
		d.paintGraph,
	}
}

// paintTile renders text lines into a zone-sized tile and blits it. All
// text painters funnel through here so the background fill stays uniform.
func (d *dashboard) paintTile(back *lcdpipe.PixelBuffer, bounds lcdpipe.Rect, draw func(img *image.RGBA)) {
	img := image.NewRGBA(image.Rect(0, 0, bounds.W, bounds.H))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	draw(img)
	back.DrawRGBA(bounds, img)
}

func (d *dashboard) paintHeader(back *lcdpipe.PixelBuffer, reg *lcdpipe.Registry) {
	now := time.Now().Format("15:04:05")
	status := now
	if d.tel != nil {
		status = fmt.Sprintf("%s  %.0f fps", now, d.tel.FPS())
	}
	d.paintTile(back, zoneHeader, func(img *image.RGBA) {
		drawText(img, "minidash", 4, 2, d.faceBig, colorText, false)
		drawText(img, status, zoneHeader.W-4-8*len(status), 2, d.faceSmall, colorDim, false)
	})
	reg.MarkValue("header", lcdpipe.Signature(status), zoneHeader)
}

func (d *dashboard) paintCPU(back *lcdpipe.PixelBuffer, reg *lcdpipe.Registry) {
	val := getData("CpuPct")
	text := "CPU " + val + "%"
	d.paintTile(back, zoneCPU, func(img *image.RGBA) {
		icon := iconImage("cpu", svgCPU, 16)
		blit(img, icon, 2, 4)
		drawText(img, text, 24, 4, d.faceBig, colorText, false)
	})
	reg.MarkValue("cpu", lcdpipe.Signature(text), zoneCPU)
}

func (d *dashboard) paintMem(back *lcdpipe.PixelBuffer, reg *lcdpipe.Registry) {
	text := fmt.Sprintf("MEM %s%% (%s/%s G)", getData("MemUsedPct"), getData("MemUsed"), getData("MemTotal"))
	d.paintTile(back, zoneMem, func(img *image.RGBA) {
		drawText(img, text, 2, 4, d.faceSmall, colorText, false)
	})
	reg.MarkValue("mem", lcdpipe.Signature(text), zoneMem)
}

func (d *dashboard) paintNet(back *lcdpipe.PixelBuffer, reg *lcdpipe.Registry) {
	line1 := fmt.Sprintf("D %s M  U %s M", getData("WanDOWN"), getData("WanUP"))
	line2 := fmt.Sprintf("ping %s ms  %s", getData("PingMS"), getData("WanIface"))
	d.paintTile(back, zoneNet, func(img *image.RGBA) {
		icon := iconImage("net", svgNetwork, 14)
		blit(img, icon, 2, 2)
		drawText(img, line1, 20, 2, d.faceSmall, colorText, false)
		drawText(img, line2, 20, 18, d.faceSmall, colorDim, false)
	})
	reg.MarkValue("net", lcdpipe.Signature(line1+"|"+line2), zoneNet)
}

// batteryText resolves the battery sample into display text, substituting
// a placeholder when the sampler has gone stale.
func (d *dashboard) batteryText() (string, color.RGBA) {
	s, ok := d.sampler.Latest("battery")
	if !ok {
		return "--%", colorDim
	}
	switch {
	case s.Value < 15:
		return fmtPct(s.Value), colorAlert
	case s.Value < 40:
		return fmtPct(s.Value), colorWarn
	default:
		return fmtPct(s.Value), colorGood
	}
}

func (d *dashboard) paintPower(back *lcdpipe.PixelBuffer, reg *lcdpipe.Registry) {
	text, clr := d.batteryText()
	d.paintTile(back, zonePower, func(img *image.RGBA) {
		icon := iconImage("battery", svgBattery, 16)
		blit(img, icon, 2, 4)
		drawText(img, text, 24, 4, d.faceBig, clr, false)
	})
	reg.MarkValue("power", lcdpipe.Signature(text), zonePower)
}

// paintBattery fills the gauge bar directly in RGB565, no tile needed.
func (d *dashboard) paintBattery(back *lcdpipe.PixelBuffer, reg *lcdpipe.Registry) {
	pct := -1.0
	if s, ok := d.sampler.Latest("battery"); ok {
		pct = s.Value
	}
	empty := lcdpipe.RGB565(40, 40, 40)
	fill := lcdpipe.RGB565(80, 200, 120)
	if pct >= 0 && pct < 15 {
		fill = lcdpipe.RGB565(230, 70, 70)
	}

	back.FillRect(zoneBattery, empty)
	if pct >= 0 {
		w := int(float64(zoneBattery.W) * pct / 100)
		back.FillRect(lcdpipe.Rect{X: zoneBattery.X, Y: zoneBattery.Y, W: w, H: zoneBattery.H}, fill)
	}
	reg.MarkValue("battery", lcdpipe.Signature(fmtPct(pct)), zoneBattery)
}

func (d *dashboard) paintTemp(back *lcdpipe.PixelBuffer, reg *lcdpipe.Registry) {
	text := "--.- C"
	clr := colorDim
	if s, ok := d.sampler.Latest("temp"); ok {
		text = fmt.Sprintf("%.1f C", s.Value)
		clr = colorText
		if s.Value >= 75 {
			clr = colorAlert
		}
	}
	d.paintTile(back, zoneTemp, func(img *image.RGBA) {
		icon := iconImage("temp", svgThermometer, 16)
		blit(img, icon, 2, 4)
		drawText(img, text, 24, 4, d.faceBig, clr, false)
	})
	reg.MarkValue("temp", lcdpipe.Signature(text), zoneTemp)
}

func (d *dashboard) paintGraph(back *lcdpipe.PixelBuffer, reg *lcdpipe.Registry) {
	sig := netHistory.signature()
	back.DrawRGBA(zoneGraph, renderRateGraph(zoneGraph.W, zoneGraph.H))
	reg.MarkValue("graph", lcdpipe.Signature(sig), zoneGraph)
}

// blit copies src onto dst at (x,y) honoring alpha via the buffer's own
// threshold rules later; here a straight copy keeps icons crisp.
func blit(dst *image.RGBA, src *image.RGBA, x, y int) {
	b := src.Bounds()
	for sy := 0; sy < b.Dy(); sy++ {
		for sx := 0; sx < b.Dx(); sx++ {
			c := src.RGBAAt(sx, sy)
			if c.A >= 0x80 {
				dst.SetRGBA(x+sx, y+sy, c)
			}
		}
	}
}
