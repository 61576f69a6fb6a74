package main

import (
	"image"
	"log"
	"strings"
	"sync"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// Inline icon artwork. Kept as SVG so the same asset serves both the panel
// rasterizer and the layout endpoint.
const (
	svgBattery = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 24 24">
<path fill="#ffffff" d="M4 7h14a2 2 0 0 1 2 2v1h1a1 1 0 0 1 1 1v2a1 1 0 0 1-1 1h-1v1a2 2 0 0 1-2 2H4a2 2 0 0 1-2-2V9a2 2 0 0 1 2-2zm0 2v6h14V9H4z"/>
</svg>`
	svgCPU = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 24 24">
<path fill="#ffffff" d="M9 2h2v2h2V2h2v2h2a2 2 0 0 1 2 2v2h2v2h-2v2h2v2h-2v2a2 2 0 0 1-2 2h-2v2h-2v-2h-2v2H9v-2H7a2 2 0 0 1-2-2v-2H3v-2h2v-2H3V8h2V6a2 2 0 0 1 2-2h2V2zm-2 4v12h10V6H7zm2 2h6v8H9V8z"/>
</svg>`
	svgThermometer = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 24 24">
<path fill="#ffffff" d="M12 2a3 3 0 0 1 3 3v8.17a5 5 0 1 1-6 0V5a3 3 0 0 1 3-3zm0 2a1 1 0 0 0-1 1v9.27l-.5.29a3 3 0 1 0 3 0l-.5-.29V5a1 1 0 0 0-1-1z"/>
</svg>`
	svgNetwork = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 24 24">
<path fill="#ffffff" d="M12 4a14 14 0 0 1 10 4.2l-1.4 1.4A12 12 0 0 0 12 6a12 12 0 0 0-8.6 3.6L2 8.2A14 14 0 0 1 12 4zm0 5a9 9 0 0 1 6.4 2.7L17 13.1A7 7 0 0 0 12 11a7 7 0 0 0-5 2.1l-1.4-1.4A9 9 0 0 1 12 9zm0 5a4 4 0 0 1 2.8 1.2L12 18l-2.8-2.8A4 4 0 0 1 12 14z"/>
</svg>`
)

var (
	iconMu    sync.Mutex
	iconCache = map[string]*image.RGBA{}
)

// iconImage rasterizes one of the embedded SVG assets at the given size,
// caching the result. A broken asset logs once and yields a blank tile.
func iconImage(name, src string, size int) *image.RGBA {
	key := name + itoa(size)
	iconMu.Lock()
	defer iconMu.Unlock()
	if img, ok := iconCache[key]; ok {
		return img
	}

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	icon, err := oksvg.ReadIconStream(strings.NewReader(src))
	if err != nil {
		log.Printf("icon %s: %v", name, err)
		iconCache[key] = img
		return img
	}
	icon.SetTarget(0, 0, float64(size), float64(size))
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(size, size, scanner), 1.0)
	iconCache[key] = img
	return img
}
