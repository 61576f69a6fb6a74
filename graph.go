package main

import (
	"image"
	"image/color"
	"sync"

	"github.com/llgcode/draw2d/draw2dimg"
)

// rateHistory keeps a fixed window of throughput samples for the graph
// zone. One slot per collector tick, oldest first.
type rateHistory struct {
	mu   sync.Mutex
	down []float64
	up   []float64
	size int
}

var netHistory = newRateHistory(100)

func newRateHistory(size int) *rateHistory {
	return &rateHistory{size: size}
}

func recordRateSample(down, up float64) {
	netHistory.add(down, up)
}

func (h *rateHistory) add(down, up float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.down = append(h.down, down)
	h.up = append(h.up, up)
	if len(h.down) > h.size {
		h.down = h.down[1:]
		h.up = h.up[1:]
	}
}

func (h *rateHistory) snapshot() (down, up []float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]float64(nil), h.down...), append([]float64(nil), h.up...)
}

// signature folds the current window into a cheap change token so the
// graph zone only redraws when a new sample arrived.
func (h *rateHistory) signature() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.down) == 0 {
		return "empty"
	}
	last := len(h.down) - 1
	return "g" + itoa(len(h.down)) + ":" + ftoa(h.down[last]) + ":" + ftoa(h.up[last])
}

// renderRateGraph draws the download/upload history as two polylines into
// a fresh RGBA image sized to the zone.
func renderRateGraph(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	gc := draw2dimg.NewGraphicContext(img)

	gc.SetFillColor(color.RGBA{0, 0, 0, 255})
	gc.MoveTo(0, 0)
	gc.LineTo(float64(w), 0)
	gc.LineTo(float64(w), float64(h))
	gc.LineTo(0, float64(h))
	gc.Close()
	gc.Fill()

	down, up := netHistory.snapshot()
	if len(down) < 2 {
		return img
	}

	peak := 1.0
	for i := range down {
		if down[i] > peak {
			peak = down[i]
		}
		if up[i] > peak {
			peak = up[i]
		}
	}

	plot := func(series []float64, c color.RGBA) {
		gc.SetStrokeColor(c)
		gc.SetLineWidth(1.5)
		step := float64(w-2) / float64(len(series)-1)
		for i, v := range series {
			x := 1 + float64(i)*step
			y := float64(h-2) - v/peak*float64(h-4)
			if i == 0 {
				gc.MoveTo(x, y)
			} else {
				gc.LineTo(x, y)
			}
		}
		gc.Stroke()
	}

	plot(down, color.RGBA{80, 200, 120, 255})
	plot(up, color.RGBA{240, 160, 60, 255})
	return img
}
